package ai

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

var (
	severityPattern = regexp.MustCompile(`\$([0-9]+(?:\.[0-9]+)?)\$`)
	numberRegex     = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)
	ErrParseFailed  = errors.New("parse_failed")
)

// ParseSeverity extracts the moderation score from a model response. It
// first tries the strict $<number>$ envelope and falls back to the
// first number found in the text (e.g. "severity: 7/10"). The result is
// clamped to the 0-10 scale.
func ParseSeverity(text string) (float64, error) {
	m := severityPattern.FindStringSubmatch(text)
	if len(m) >= 2 {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrParseFailed, err)
		}
		return clampSeverity(v), nil
	}
	raw := numberRegex.FindString(text)
	if raw == "" {
		return 0, fmt.Errorf("%w: no severity value found", ErrParseFailed)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}
	return clampSeverity(v), nil
}

func clampSeverity(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}
