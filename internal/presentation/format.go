package presentation

import (
	"fmt"
	"time"
)

const TimestampLayout = "02/01/2006 15:04:05"

// Percent renders count/total with one decimal, or exactly "0%" when there
// is nothing to divide by.
func Percent(count, total int) string {
	if total <= 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", float64(count)/float64(total)*100)
}

// ConfidencePercent renders a [0,1] score as a whole percentage.
func ConfidencePercent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}

func FormatTimestamp(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "-"
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(TimestampLayout)
}
