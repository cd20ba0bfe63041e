package timeit

import (
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/rsalesc/go-timeit/runner"
)

// Children run with an unlimited stack so deep recursion is judged by
// the memory ceiling rather than the platform's default stack size.
const childStackUnlimited = true

// dupTo points fd target at src. dup2 is unavailable on some linux
// architectures, dup3 covers them all.
func dupTo(src, target int) error {
	return unix.Dup3(src, target, 0)
}

// normalizeMemory converts the rusage peak memory to bytes. Linux
// reports ru_maxrss in kilobytes and leaves the integral-share fields
// at zero, which is tolerated rather than treated as an error.
func normalizeMemory(ru *syscall.Rusage) runner.Size {
	kb := ru.Maxrss + ru.Ixrss + ru.Idrss + ru.Isrss
	if kb < 0 {
		return 0
	}
	return runner.Size(uint64(kb) << 10)
}
