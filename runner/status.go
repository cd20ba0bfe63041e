package runner

import (
	"fmt"
	"strings"
)

// Status is the non-exclusive set of flags describing how a run ended.
type Status uint16

// Run outcome flags. More than one may be set for a single run.
const (
	StatusRE Status = 1 << iota // nonzero exit code
	StatusSG                    // terminated by a signal
	StatusTO                    // CPU time limit exceeded
	StatusWT                    // wall-clock limit exceeded
	StatusML                    // memory limit exceeded
	StatusOL                    // output size limit exceeded
	StatusTE                    // terminated externally
)

var statusNames = []struct {
	flag Status
	name string
}{
	{StatusRE, "RE"},
	{StatusSG, "SG"},
	{StatusTO, "TO"},
	{StatusWT, "WT"},
	{StatusML, "ML"},
	{StatusOL, "OL"},
	{StatusTE, "TE"},
}

// Has reports whether every flag in t is set in s.
func (s Status) Has(t Status) bool {
	return s&t == t
}

// Empty reports whether no flag is set.
func (s Status) Empty() bool {
	return s == 0
}

// String joins the set flags with commas in canonical order, the same
// form used by the status line of a result record.
func (s Status) String() string {
	var b strings.Builder
	for _, e := range statusNames {
		if s&e.flag == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(e.name)
	}
	return b.String()
}

// ParseStatus parses a comma-joined flag set as found in result records.
// The empty string parses to the empty set.
func ParseStatus(str string) (Status, error) {
	var s Status
	if str == "" {
		return s, nil
	}
	for _, part := range strings.Split(str, ",") {
		part = strings.TrimSpace(part)
		found := false
		for _, e := range statusNames {
			if e.name == part {
				s |= e.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown status flag %q", part)
		}
	}
	return s, nil
}
