//go:build linux || darwin

// Package interact couples an interactor and a solution over a pair of
// anonymous pipes, each side supervised and limited on its own. The
// interactor reads what the solution writes and vice versa; an optional
// merged transcript records the whole exchange with each side's chunks
// prefixed by its label. Binaries using this package must call
// timeit.Init first thing, both sides go through the re-exec
// trampoline.
package interact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/rsalesc/go-timeit/runner"
	"github.com/rsalesc/go-timeit/runner/timeit"
)

// Default transcript labels.
const (
	DefaultInteractorPrefix = "INTERACTOR:"
	DefaultSolutionPrefix   = "SOLUTION:"
)

// Side is one participant of an exchange.
type Side struct {
	// Runner configures the participant. Its stdin and stdout plumbing,
	// its Dups and its Prefix are owned by the exchange and overwritten
	// by Run.
	Runner *timeit.Runner
	// Prefix labels this side in the merged transcript. Empty picks the
	// default label for the side.
	Prefix string
	// Capture, when set, receives an untagged copy of everything this
	// side says to its peer.
	Capture string
}

// Pair couples the two results of an exchange.
type Pair struct {
	Interactor runner.Result
	Solution   runner.Result
}

// Exchange wires an interactor against a solution.
type Exchange struct {
	Interactor Side
	Solution   Side
	// Merged, when set, receives one interleaved transcript of the
	// exchange. It is truncated and seeded with the two labels before
	// the sides start.
	Merged string
}

// Run supervises both sides to completion and returns their results.
// When one side fails at the supervisor level the other is cancelled,
// and the returned error joins the per-side failures. Limit violations
// are not errors; they land in the respective Result.
func (e *Exchange) Run(ctx context.Context) (Pair, error) {
	var p Pair
	if e.Interactor.Runner == nil || e.Solution.Runner == nil {
		return p, errors.New("interact: both sides need a runner")
	}
	ip := e.Interactor.Prefix
	if ip == "" {
		ip = DefaultInteractorPrefix
	}
	sp := e.Solution.Prefix
	if sp == "" {
		sp = DefaultSolutionPrefix
	}
	if e.Merged != "" {
		legend := ip + "\n" + sp + "\n"
		if err := os.WriteFile(e.Merged, []byte(legend), 0o644); err != nil {
			return p, fmt.Errorf("interact: seed transcript: %w", err)
		}
	}

	// solution speaks on a, the interactor answers on b
	aR, aW, err := os.Pipe()
	if err != nil {
		return p, fmt.Errorf("interact: pipe: %w", err)
	}
	bR, bW, err := os.Pipe()
	if err != nil {
		aR.Close()
		aW.Close()
		return p, fmt.Errorf("interact: pipe: %w", err)
	}

	wire := func(s Side, prefix string, stdin *os.File, stdout *os.File) *timeit.Runner {
		r := s.Runner
		r.Stdin = ""
		r.Stdout = ""
		r.StdinR = stdin
		r.StdoutW = stdout
		r.Prefix = prefix
		r.Dups = nil
		if e.Merged != "" {
			r.Dups = append(r.Dups, timeit.Dup{Stream: 'o', Path: e.Merged, Tagged: true})
		}
		if s.Capture != "" {
			r.Dups = append(r.Dups, timeit.Dup{Stream: 'o', Path: s.Capture})
		}
		return r
	}
	ir := wire(e.Interactor, ip, aR, bW)
	sr := wire(e.Solution, sp, bR, aW)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Each goroutine closes its side's write end once the side is done,
	// which is what delivers EOF to the peer still reading.
	var (
		wg         sync.WaitGroup
		ierr, serr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		p.Interactor, ierr = ir.Run(ctx)
		if ierr != nil {
			ierr = fmt.Errorf("interact: interactor: %w", ierr)
			cancel()
		}
		bW.Close()
		aR.Close()
	}()
	go func() {
		defer wg.Done()
		p.Solution, serr = sr.Run(ctx)
		if serr != nil {
			serr = fmt.Errorf("interact: solution: %w", serr)
			cancel()
		}
		aW.Close()
		bR.Close()
	}()
	wg.Wait()
	return p, errors.Join(ierr, serr)
}
