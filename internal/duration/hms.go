package duration

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// maxSeconds is the longest duration that fits in one day.
const maxSeconds = 24 * 60 * 60

// ParseHMS converts "HH:MM:SS", "MM:SS" or plain seconds into milliseconds.
// Fractional seconds are accepted ("00:03:12.5").
func ParseHMS(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, errors.New("empty duration")
	}

	parts := strings.Split(value, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid duration %q", value)
	}

	secPart := parts[len(parts)-1]
	seconds, err := strconv.ParseFloat(secPart, 64)
	if err != nil || seconds < 0 || math.IsInf(seconds, 0) || math.IsNaN(seconds) {
		return 0, fmt.Errorf("invalid seconds in %q", value)
	}
	if len(parts) > 1 && seconds >= 60 {
		return 0, fmt.Errorf("seconds must be below 60 in %q", value)
	}

	total := seconds
	multipliers := []float64{60, 3600}
	for i := len(parts) - 2; i >= 0; i-- {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid component %q in %q", parts[i], value)
		}
		idx := len(parts) - 2 - i
		if idx == 0 && len(parts) == 3 && n >= 60 {
			return 0, fmt.Errorf("minutes must be below 60 in %q", value)
		}
		total += float64(n) * multipliers[idx]
	}
	if total > maxSeconds {
		return 0, fmt.Errorf("duration %q exceeds 24:00:00", value)
	}
	return int64(total*1000 + 0.5), nil
}

// FormatHMS renders milliseconds as HH:MM:SS, appending .mmm when needed.
func FormatHMS(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	totalSeconds := ms / 1000
	rem := ms % 1000
	base := fmt.Sprintf("%02d:%02d:%02d", totalSeconds/3600, (totalSeconds%3600)/60, totalSeconds%60)
	if rem > 0 {
		base += fmt.Sprintf(".%03d", rem)
	}
	return base
}
