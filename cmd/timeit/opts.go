package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rsalesc/go-timeit/runner"
	"github.com/rsalesc/go-timeit/runner/timeit"
)

// parseOpts decodes the wire invocation: args[1] is the record path,
// then unspaced option tokens up to the first token without a leading
// dash, then the target argv verbatim.
func parseOpts(args []string) (*timeit.Runner, string, error) {
	if len(args) < 2 {
		return nil, "", errors.New("missing result record path")
	}
	recordPath := args[1]
	r := &timeit.Runner{}
	i := 2
	for ; i < len(args) && strings.HasPrefix(args[i], "-"); i++ {
		opt := args[i]
		if len(opt) < 2 {
			return nil, "", fmt.Errorf("invalid option %q", opt)
		}
		val := opt[2:]

		var err error
		switch opt[1] {
		case 't':
			r.Limits.Time, err = parseSeconds(val)
		case 'w':
			r.Limits.WallTime, err = parseSeconds(val)
		case 'm':
			var mb uint64
			mb, err = strconv.ParseUint(val, 10, 64)
			r.Limits.Memory = runner.Size(mb << 20)
		case 'f':
			var kb uint64
			kb, err = strconv.ParseUint(val, 10, 64)
			r.Limits.Output = runner.Size(kb << 10)
		case 'i':
			r.Stdin = val
		case 'o':
			r.Stdout = val
		case 'e':
			r.Stderr = val
		case 'c':
			r.Dir = val
		case 'd', 'D':
			var d timeit.Dup
			d, err = parseDup(opt)
			r.Dups = append(r.Dups, d)
		case 'P':
			r.Prefix = val
		default:
			err = fmt.Errorf("invalid option %s", opt)
		}
		if err != nil {
			return nil, "", err
		}
	}
	r.Args = args[i:]
	if len(r.Args) == 0 {
		return nil, "", errors.New("missing target argv")
	}
	return r, recordPath, nil
}

// parseDup decodes -d<side><path> and -D<side><path>: duplicate stdout
// ('o') or stderr ('e') to path, the capital form with tagged writes.
// The selector has no usable slot for stdin, so 'i' is rejected rather
// than guessed at.
func parseDup(opt string) (timeit.Dup, error) {
	if len(opt) < 4 {
		return timeit.Dup{}, fmt.Errorf("invalid duplicate option %s", opt)
	}
	d := timeit.Dup{Stream: opt[2], Path: opt[3:], Tagged: opt[1] == 'D'}
	switch d.Stream {
	case 'o', 'e':
		return d, nil
	case 'i':
		return timeit.Dup{}, fmt.Errorf("stdin duplication is not supported (%s)", opt)
	default:
		return timeit.Dup{}, fmt.Errorf("invalid duplicate stream %q in %s", d.Stream, opt)
	}
}

func parseSeconds(val string) (time.Duration, error) {
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 {
		return 0, fmt.Errorf("negative duration %q", val)
	}
	return time.Duration(f * float64(time.Second)), nil
}
