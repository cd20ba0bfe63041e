// Package record implements the result record wire format: newline
// terminated `key: value` lines in fixed order, written once per run to a
// caller-supplied path and read back by the judge.
package record

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rsalesc/go-timeit/runner"
)

// Marshal renders the record for res in wire order: exit-code, exit-sig
// (signal-terminated runs only), status (non-empty flag sets only),
// alarm-msg (when an asynchronous check fired), time and time-wall in
// seconds with millisecond precision, mem in KB, file in bytes.
func Marshal(res runner.Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "exit-code: %d\n", res.ExitCode)
	if res.ExitSig != 0 {
		fmt.Fprintf(&b, "exit-sig: %d\n", res.ExitSig)
	}
	if !res.Status.Empty() {
		fmt.Fprintf(&b, "status: %v\n", res.Status)
	}
	if res.AlarmMsg != "" {
		fmt.Fprintf(&b, "alarm-msg: %s\n", res.AlarmMsg)
	}
	fmt.Fprintf(&b, "time: %.3f\n", res.Time.Seconds())
	fmt.Fprintf(&b, "time-wall: %.3f\n", res.WallTime.Seconds())
	fmt.Fprintf(&b, "mem: %d\n", res.Memory.KiB())
	fmt.Fprintf(&b, "file: %d\n", res.Output.Byte())
	return []byte(b.String())
}

// WriteFile writes the record for res to path, creating parent
// directories as needed. The record appears atomically, a reader never
// observes a half-written record.
func WriteFile(path string, res runner.Result) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create record dir: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, Marshal(res), 0o644); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// Parse reads a record back into a Result. Unknown keys are ignored so
// the format can grow; malformed values under known keys are errors.
func Parse(data []byte) (runner.Result, error) {
	var res runner.Result
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			return res, fmt.Errorf("malformed record line %q", line)
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		var err error
		switch key {
		case "exit-code":
			res.ExitCode, err = strconv.Atoi(value)
		case "exit-sig":
			res.ExitSig, err = strconv.Atoi(value)
		case "status":
			res.Status, err = runner.ParseStatus(value)
		case "alarm-msg":
			res.AlarmMsg = value
		case "time":
			res.Time, err = parseSeconds(value)
		case "time-wall":
			res.WallTime, err = parseSeconds(value)
		case "mem":
			var kb uint64
			kb, err = strconv.ParseUint(value, 10, 64)
			res.Memory = runner.Size(kb << 10)
		case "file":
			var n uint64
			n, err = strconv.ParseUint(value, 10, 64)
			res.Output = runner.Size(n)
		}
		if err != nil {
			return res, fmt.Errorf("record key %s: %w", key, err)
		}
	}
	return res, nil
}

// ReadFile parses the record at path.
func ReadFile(path string) (runner.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return runner.Result{}, err
	}
	return Parse(data)
}

func parseSeconds(value string) (time.Duration, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(math.Round(f * float64(time.Second))), nil
}
