package runner

import "context"

// Runner is the general interface to run one program under supervision.
//
// A non-nil error reports an infrastructure failure (spawn, child setup,
// exec); no result record may be produced for it. Every target-program
// outcome, including every limit violation, is a nil-error Result.
type Runner interface {
	Run(ctx context.Context) (Result, error)
}
