package timeit

import (
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/rsalesc/go-timeit/runner"
)

// Raising RLIMIT_STACK past the kernel cap fails on darwin, so the
// default stack size is kept.
const childStackUnlimited = false

func dupTo(src, target int) error {
	return unix.Dup2(src, target)
}

// normalizeMemory converts the rusage peak memory to bytes. Darwin
// reports ru_maxrss in bytes already.
func normalizeMemory(ru *syscall.Rusage) runner.Size {
	if ru.Maxrss < 0 {
		return 0
	}
	return runner.Size(ru.Maxrss)
}
