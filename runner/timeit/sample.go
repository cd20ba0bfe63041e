//go:build linux || darwin

package timeit

import (
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/rsalesc/go-timeit/runner"
)

// sampler reads the child's live resource usage between ticks.
type sampler struct {
	proc *process.Process
}

func newSampler(pid int) *sampler {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		p = nil
	}
	return &sampler{proc: p}
}

// sample returns the child's CPU time and resident set so far, both
// best-effort: a child that exited between ticks reads as zero and the
// reap path supplies the authoritative numbers. Only this child's own
// usage is counted; successive or concurrent runs in one process never
// see each other's bill.
func (s *sampler) sample() (cpu time.Duration, rss runner.Size) {
	if s.proc != nil {
		if t, err := s.proc.Times(); err == nil {
			cpu = time.Duration((t.User + t.System) * float64(time.Second))
		}
		if m, err := s.proc.MemoryInfo(); err == nil {
			rss = runner.Size(m.RSS)
		}
	}
	return cpu, rss
}
