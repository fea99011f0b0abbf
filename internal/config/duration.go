package config

import (
	"fmt"
	"time"
)

// ParseDuration parses a config duration string: a positive integer followed
// by a unit suffix s, m, or h ("60s", "10m", "2h"). This is deliberately
// narrower than time.ParseDuration; config files stick to whole units.
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}

	unit := s[len(s)-1]
	digits := s[:len(s)-1]
	if len(digits) == 0 {
		return 0, fmt.Errorf("invalid duration %q: missing value", s)
	}

	var n int64
	for _, c := range digits {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid duration %q: expected integer followed by s, m, or h", s)
		}
		n = n*10 + int64(c-'0')
		if n > 1<<31 {
			return 0, fmt.Errorf("invalid duration %q: value too large", s)
		}
	}
	if n == 0 {
		return 0, fmt.Errorf("invalid duration %q: must be positive", s)
	}

	switch unit {
	case 's':
		return time.Duration(n) * time.Second, nil
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	default:
		return 0, fmt.Errorf("invalid duration %q: unknown unit %q (expected s, m, or h)", s, string(unit))
	}
}
