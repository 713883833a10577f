package tracker

import (
	"fmt"
	"time"
)

// ElapsedSeconds is the wall-clock difference between two timestamps,
// clamped to zero so skewed or out-of-order timestamps never surface as
// negative elapsed time.
func ElapsedSeconds(start, end time.Time) int64 {
	seconds := int64(end.Sub(start) / time.Second)
	if seconds < 0 {
		return 0
	}
	return seconds
}

// FormatClock renders seconds as HH:MM:SS. Hours may exceed 24; there is no
// day rollover in this format.
func FormatClock(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}

	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
}

// FormatTotal renders seconds as D:HH:MM:SS once a full day is reached,
// otherwise as HH:MM:SS.
func FormatTotal(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}

	days := seconds / 86400
	if days == 0 {
		return FormatClock(seconds)
	}

	remainder := seconds % 86400
	hours := remainder / 3600
	minutes := (remainder % 3600) / 60
	secs := remainder % 60

	return fmt.Sprintf("%d:%02d:%02d:%02d", days, hours, minutes, secs)
}
