// Command tee is the per-character transcript filter: bytes flow from
// stdin to stdout untouched while a tagged copy is appended to the
// transcript, with the tag repeated at every line start. Chained between
// two communicating programs it preserves their exchange byte for byte,
// partial lines included, and exits silently on input EOF.
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
		fmt.Fprintln(os.Stderr, "tee:", err)
		os.Exit(1)
	}
	if err := transcript.Byte(os.Stdout, tr, os.Stdin, os.Args[1][0]); err != nil {
		fmt.Fprintln(os.Stderr, "tee:", err)
		tr.Close()
		os.Exit(1)
	}
	tr.Close()
}
