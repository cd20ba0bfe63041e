package runner

import (
	"errors"
	"fmt"
	"strconv"
)

// Size stores a number of bytes for an object, e.g. memory or output.
// Maximum size is bounded by the 64-bit limit.
type Size uint64

// String stringer interface for print
func (s Size) String() string {
	t := uint64(s)
	switch {
	case t < 1<<10:
		return fmt.Sprintf("%d B", t)
	case t < 1<<20:
		return fmt.Sprintf("%.1f KiB", float64(t)/float64(1<<10))
	case t < 1<<30:
		return fmt.Sprintf("%.1f MiB", float64(t)/float64(1<<20))
	default:
		return fmt.Sprintf("%.1f GiB", float64(t)/float64(1<<30))
	}
}

// Set parses a size value with an optional k/m/g suffix.
func (s *Size) Set(str string) error {
	if str == "" {
		return errors.New("empty size")
	}
	switch str[len(str)-1] {
	case 'b', 'B':
		str = str[:len(str)-1]
	}

	factor := 0
	if str != "" {
		switch str[len(str)-1] {
		case 'k', 'K':
			factor = 10
			str = str[:len(str)-1]
		case 'm', 'M':
			factor = 20
			str = str[:len(str)-1]
		case 'g', 'G':
			factor = 30
			str = str[:len(str)-1]
		}
	}

	t, err := strconv.Atoi(str)
	if err != nil {
		return err
	}
	*s = Size(t << factor)
	return nil
}

// Byte returns the size in bytes
func (s Size) Byte() uint64 {
	return uint64(s)
}

// KiB returns the size in KiB
func (s Size) KiB() uint64 {
	return uint64(s) >> 10
}

// MiB returns the size in MiB
func (s Size) MiB() uint64 {
	return uint64(s) >> 20
}
