// Package utils holds small formatting helpers shared by the CLI, reports
// and the status page.
package utils

import "fmt"

// FormatWatchTime renders a duration in seconds as "45s", "12m" or "2h 05m".
// Negative values are treated as their magnitude.
func FormatWatchTime(seconds int64) string {
	if seconds < 0 {
		seconds = -seconds
	}
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm", seconds/60)
	default:
		return fmt.Sprintf("%dh %02dm", seconds/3600, (seconds%3600)/60)
	}
}
