// Command timeit supervises one run of a target program: it enforces
// the configured resource ceilings, performs the standard stream
// plumbing and writes a single result record describing how the target
// ended.
//
// Usage: timeit <record-path> [options] <target argv>
//
// The target's outcome is communicated exclusively through the record.
// timeit itself exits 0 once the record is written, 1 on an
// infrastructure failure with no record produced, and 2 on a usage
// error.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rsalesc/go-timeit/pkg/record"
	"github.com/rsalesc/go-timeit/runner/timeit"
)

// a supervisor child takes over here, before any option handling
func init() {
	timeit.Init()
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: %s <record-path> [options] <target argv>

Options (unspaced values):
  -t<seconds>      CPU time ceiling (float seconds)
  -w<seconds>      wall clock ceiling
  -m<megabytes>    memory ceiling
  -f<kilobytes>    output size ceiling (stdout+stderr)
  -i<path>         redirect stdin
  -o<path>         redirect stdout
  -e<path>         redirect stderr
  -c<path>         working directory
  -d<side><path>   duplicate stdout (o) or stderr (e) to path
  -D<side><path>   same, with each write tagged by the -P prefix
  -P<prefix>       tag prefix for -D duplicates
`, os.Args[0])
	os.Exit(2)
}

func main() {
	r, recordPath, err := parseOpts(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "timeit:", err)
		printUsage()
	}

	// the cancellation path the outer judge uses to abort a run
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := r.Run(ctx)
	if err != nil {
		// No record: a missing record tells the caller the failure was
		// at the infrastructure level, not in the judged program.
		fmt.Fprintln(os.Stderr, "timeit:", err)
		os.Exit(1)
	}
	if err := record.WriteFile(recordPath, res); err != nil {
		fmt.Fprintln(os.Stderr, "timeit:", err)
		os.Exit(1)
	}
}
