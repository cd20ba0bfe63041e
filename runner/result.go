package runner

import (
	"fmt"
	"time"
)

// Result is everything the supervisor learned about one finished run.
type Result struct {
	// ExitCode is the target's exit code, or the negative signal number
	// when the target was terminated by a signal.
	ExitCode int
	// ExitSig is the terminating signal number, 0 when the target exited.
	ExitSig int
	// Status is the derived outcome flag set, empty for a clean exit.
	Status Status
	// AlarmMsg names the asynchronous check that fired first, if any.
	AlarmMsg string

	Time     time.Duration // CPU time, user+sys
	WallTime time.Duration // elapsed real time from spawn to reap
	Memory   Size          // peak resident set
	Output   Size          // total bytes written to the stdout and stderr targets

	// metrics for the supervisor itself
	SetUpTime   time.Duration
	RunningTime time.Duration
}

func (r Result) String() string {
	switch {
	case r.Status.Empty():
		return fmt.Sprintf("Result[Exit(%d)][%v %v][%v %v]",
			r.ExitCode, r.Time, r.Memory, r.SetUpTime, r.RunningTime)

	case r.AlarmMsg != "":
		return fmt.Sprintf("Result[%v(%s) Exit(%d)][%v %v][%v %v]",
			r.Status, r.AlarmMsg, r.ExitCode, r.Time, r.Memory, r.SetUpTime, r.RunningTime)

	default:
		return fmt.Sprintf("Result[%v Exit(%d)][%v %v][%v %v]",
			r.Status, r.ExitCode, r.Time, r.Memory, r.SetUpTime, r.RunningTime)
	}
}
