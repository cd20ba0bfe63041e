// Command linetee is the per-line transcript filter: lines flow from
// stdin to stdout untouched while a tagged copy of each is appended to
// the transcript. Tagging whole lines keeps the merged log readable; the
// per-character variant in cmd/tee is the one to chain when partial-line
// latency matters. Exits silently on input EOF.
package main

import (
	"fmt"
	"os"

	"github.com/rsalesc/go-timeit/pkg/transcript"
)

func main() {
	if len(os.Args) != 3 || len(os.Args[1]) != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s <tag-character> <transcript-path>\n", os.Args[0])
		os.Exit(2)
	}
	tr, err := transcript.Open(os.Args[2])
	if err != nil {
		fmt.Fprintln(os.Stderr, "linetee:", err)
		os.Exit(1)
	}
	if err := transcript.Line(os.Stdout, tr, os.Stdin, os.Args[1][0]); err != nil {
		fmt.Fprintln(os.Stderr, "linetee:", err)
		tr.Close()
		os.Exit(1)
	}
	tr.Close()
}
