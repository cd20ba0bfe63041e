// Package rlimit provides the kernel-enforced backstops applied to the
// spawned child via the setrlimit syscall. These are a safety net behind
// the supervisor's polled limits, not the primary enforcement mechanism.
package rlimit

import (
	"fmt"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/rsalesc/go-timeit/runner"
)

// RLimits defines the rlimits installed in the child before exec.
type RLimits struct {
	CPU          uint64      // in s, delivers SIGXCPU at the soft limit
	CPUHard      uint64      // in s, delivers SIGKILL at the hard limit
	FileSize     runner.Size // in bytes, delivers SIGXFSZ at the soft limit
	FileSizeHard runner.Size // in bytes
	// StackUnlimited lifts RLIMIT_STACK so deep recursion is judged by
	// the memory ceiling rather than the platform's default stack size.
	StackUnlimited bool
}

// RLimit is one resource limit as defined by setrlimit.
type RLimit struct {
	// Res is the resource type (e.g. syscall.RLIMIT_CPU)
	Res int
	// Rlim is the limit applied to that resource
	Rlim syscall.Rlimit
}

func getRlimit(cur, max uint64) syscall.Rlimit {
	return syscall.Rlimit{Cur: cur, Max: max}
}

// PrepareRLimit creates the rlimit list to install in the child.
func (r *RLimits) PrepareRLimit() []RLimit {
	var ret []RLimit
	if r.CPU > 0 {
		cpuHard := r.CPUHard
		if cpuHard < r.CPU {
			cpuHard = r.CPU
		}

		ret = append(ret, RLimit{
			Res:  syscall.RLIMIT_CPU,
			Rlim: getRlimit(r.CPU, cpuHard),
		})
	}
	if r.FileSize > 0 {
		fsHard := r.FileSizeHard
		if fsHard < r.FileSize {
			fsHard = r.FileSize
		}

		ret = append(ret, RLimit{
			Res:  syscall.RLIMIT_FSIZE,
			Rlim: getRlimit(r.FileSize.Byte(), fsHard.Byte()),
		})
	}
	if r.StackUnlimited {
		ret = append(ret, RLimit{
			Res:  syscall.RLIMIT_STACK,
			Rlim: getRlimit(unix.RLIM_INFINITY, unix.RLIM_INFINITY),
		})
	}
	return ret
}

func (r RLimit) String() string {
	switch r.Res {
	case syscall.RLIMIT_CPU:
		return fmt.Sprintf("CPU[%d s:%d s]", r.Rlim.Cur, r.Rlim.Max)
	case syscall.RLIMIT_FSIZE:
		return fmt.Sprintf("File[%v:%v]", runner.Size(r.Rlim.Cur), runner.Size(r.Rlim.Max))
	case syscall.RLIMIT_STACK:
		if r.Rlim.Cur == unix.RLIM_INFINITY {
			return "Stack[unlimited]"
		}
		return fmt.Sprintf("Stack[%v:%v]", runner.Size(r.Rlim.Cur), runner.Size(r.Rlim.Max))
	default:
		return fmt.Sprintf("Unknown[%v:%v]", r.Rlim.Cur, r.Rlim.Max)
	}
}

func (r RLimits) String() string {
	var sb strings.Builder
	sb.WriteString("RLimits[")
	for i, rl := range r.PrepareRLimit() {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(rl.String())
	}
	sb.WriteString("]")
	return sb.String()
}
