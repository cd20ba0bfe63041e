// Package pipe provides the stream duplicator: an OS pipe whose read end
// is relayed by a dedicated goroutine to every destination, so a stream
// can reach its real target and still be captured byte-for-byte, or
// tagged, elsewhere.
package pipe

import (
	"io"
	"os"

	"github.com/rsalesc/go-timeit/runner"
)

// chunkSize is the relay's fixed read size.
const chunkSize = 4096

// Dest is one duplicator destination.
type Dest struct {
	W io.Writer
	// Prefix, when set, precedes every chunk written to W.
	Prefix []byte
	// Max, when nonzero, caps the payload bytes written to W. Once a
	// destination is saturated further chunks are dropped for it while
	// the pipe keeps draining, so the producer never blocks.
	Max runner.Size
}

// Duplicator relays one producer pipe to N destinations.
//
// W is the write end handed to the producer (typically dup'ed onto the
// child's stdout or stderr). Done closes after the producer reaches EOF
// and the final destination writes have been issued.
type Duplicator struct {
	W    *os.File
	Done <-chan struct{}
}

// New creates a pipe and starts the relay goroutine. The caller must
// close its copy of W after handing it to the child, otherwise EOF never
// arrives. Destinations are not closed by the duplicator.
func New(dests ...Dest) (*Duplicator, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	done := make(chan struct{})
	go func() {
		relay(r, dests)
		r.Close()
		close(done)
	}()
	return &Duplicator{W: w, Done: done}, nil
}

type destState struct {
	Dest
	written uint64
	dead    bool
}

func relay(r io.Reader, dests []Dest) {
	states := make([]destState, len(dests))
	for i, d := range dests {
		states[i].Dest = d
	}
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			for i := range states {
				states[i].writeChunk(buf[:n])
			}
		}
		if err != nil {
			return
		}
	}
}

// writeChunk forwards one chunk to the destination, honoring its cap.
// A destination that fails to accept a write is abandoned; the remaining
// destinations and the drain of the pipe are unaffected.
func (d *destState) writeChunk(chunk []byte) {
	if d.dead {
		return
	}
	if d.Max > 0 {
		max := d.Max.Byte()
		if d.written >= max {
			return
		}
		if d.written+uint64(len(chunk)) > max {
			chunk = chunk[:max-d.written]
		}
	}
	if len(chunk) == 0 {
		return
	}
	out := chunk
	if len(d.Prefix) > 0 {
		// one write per tagged chunk, the two sides of an exchange may
		// share the destination in append mode
		out = make([]byte, 0, len(d.Prefix)+len(chunk))
		out = append(out, d.Prefix...)
		out = append(out, chunk...)
	}
	if _, err := d.W.Write(out); err != nil {
		d.dead = true
		return
	}
	d.written += uint64(len(chunk))
}
