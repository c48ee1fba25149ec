package kube

import (
	"fmt"
	"time"
)

// FormatAge renders a resource age the way kubectl does: the most
// significant unit only, e.g. "3d", "7h", "12m", "45s".
func FormatAge(created time.Time) string {
	d := time.Since(created)
	switch {
	case d >= 24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours())/24)
	case d >= time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d >= time.Minute:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		if d < 0 {
			d = 0
		}
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
}
