package recommend

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

const defaultScore = 50

var rangePattern = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*[-–~]\s*(\d+(?:\.\d+)?)\s*$`)

// sanitizeScore coerces whatever the model produced for a score field into
// an integer in [0,100]. It is total: it never fails and always returns a
// value in range. Valid integers pass through unchanged; numeric ranges like
// "70-90" average their bounds; strings with embedded digits are stripped to
// the digits; everything else becomes the neutral default.
func sanitizeScore(value any) int {
	switch v := value.(type) {
	case int:
		return clampScore(float64(v))
	case int64:
		return clampScore(float64(v))
	case float64:
		return clampScore(v)
	case float32:
		return clampScore(float64(v))
	case string:
		return sanitizeScoreString(v)
	default:
		return defaultScore
	}
}

func sanitizeScoreString(raw string) int {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultScore
	}
	if m := rangePattern.FindStringSubmatch(trimmed); m != nil {
		lo, err1 := strconv.ParseFloat(m[1], 64)
		hi, err2 := strconv.ParseFloat(m[2], 64)
		if err1 == nil && err2 == nil {
			return clampScore((lo + hi) / 2)
		}
	}
	if parsed, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return clampScore(parsed)
	}
	digits := stripNonDigits(trimmed)
	if digits == "" {
		return defaultScore
	}
	parsed, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return defaultScore
	}
	return clampScore(parsed)
}

func stripNonDigits(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func clampScore(value float64) int {
	if math.IsNaN(value) {
		return defaultScore
	}
	rounded := int(math.Round(value))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}
