package domain

import "fmt"

const DurationUnavailable = "N/A"

// FormatDuration renders minutes as hours and minutes ("1h 35m", "2h", "45m").
// nil means the duration is unknown and renders as "N/A".
func FormatDuration(minutes *int) string {
	if minutes == nil {
		return DurationUnavailable
	}
	m := *minutes
	if m < 0 {
		m = 0
	}
	hours, rest := m/60, m%60
	switch {
	case hours > 0 && rest > 0:
		return fmt.Sprintf("%dh %dm", hours, rest)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dm", rest)
	}
}

func FormatMinutes(minutes int) string {
	return FormatDuration(&minutes)
}
