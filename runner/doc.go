// Package runner provides the common vocabulary for supervised program
// execution together with the types shared by the supervisor, the record
// codec and the coordinated-run helper.
//
// # Status
//
// Status is a non-exclusive flag set describing how a run ended:
//
//	RE  nonzero exit code
//	SG  terminated by a signal
//	TO  CPU time limit exceeded
//	WT  wall-clock limit exceeded
//	ML  memory limit exceeded
//	OL  output size limit exceeded
//	TE  terminated externally
//
// Several flags are routinely true at once: a wall-clock violation always
// implies TO, and a child the supervisor had to kill also died by signal.
//
// # Size
//
// Size stores a byte count, underlying type uint64.
//
// # Limits
//
// Limits holds the four resource ceilings for one run. A zero field means
// that ceiling is not enforced.
//
// # Result
//
// Result carries the reaped exit status, the flag set, and the measured
// CPU time, wall time, peak memory and output byte count.
//
// # Runner
//
// Runner is the general interface to run one program under supervision,
// including a context for cancellation.
package runner
