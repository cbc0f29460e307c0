// internal/pkg/response/utils.go
package response

import (
	"fmt"
	"strings"
	"time"
)

// NormalizeSlug lower-cases a status slug and strips surrounding noise so
// "Break ", "break" and "BREAK" all hit the same catalog entry.
func NormalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

// FormatDuration renders a duration the way the attendance screens show it:
// whole minutes, hours split out past sixty.
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "0 min"
	}
	mins := int(d.Round(time.Minute) / time.Minute)
	if mins >= 60 {
		return fmt.Sprintf("%d h %d min", mins/60, mins%60)
	}
	return fmt.Sprintf("%d min", mins)
}
