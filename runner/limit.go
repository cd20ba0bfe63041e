package runner

import (
	"fmt"
	"strings"
	"time"
)

// Limits represents the resource ceilings for one supervised run.
// A zero field disables the corresponding ceiling.
type Limits struct {
	Time     time.Duration // CPU time, user+sys
	WallTime time.Duration // elapsed real time
	Memory   Size          // peak resident set
	Output   Size          // stdout and stderr bytes combined
}

func (l Limits) String() string {
	var parts []string
	if l.Time > 0 {
		parts = append(parts, fmt.Sprintf("Time=%v", l.Time))
	}
	if l.WallTime > 0 {
		parts = append(parts, fmt.Sprintf("Wall=%v", l.WallTime))
	}
	if l.Memory > 0 {
		parts = append(parts, fmt.Sprintf("Memory=%v", l.Memory))
	}
	if l.Output > 0 {
		parts = append(parts, fmt.Sprintf("Output=%v", l.Output))
	}
	return "Limits[" + strings.Join(parts, ", ") + "]"
}
