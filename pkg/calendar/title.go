package calendar

import (
	"fmt"
	"time"
)

// Title is the heading shown above a view, e.g. "June 2024", "Jun 2 - Jun 8",
// "Wednesday, June 5, 2024".
func Title(ref Date, g Granularity, ws WeekStart) string {
	switch g {
	case Weekly:
		week := WeekDates(ref, ws)
		first, last := week[0], week[len(week)-1]
		return fmt.Sprintf("%s %d - %s %d", first.Month.String()[:3], first.Day, last.Month.String()[:3], last.Day)
	case Daily:
		return fmt.Sprintf("%s, %s %d, %d", ref.Weekday(), ref.Month, ref.Day, ref.Year)
	default:
		return fmt.Sprintf("%s %d", ref.Month, ref.Year)
	}
}

// WeekdayLabels returns short weekday names starting at ws, for grid headers.
func WeekdayLabels(ws WeekStart) []string {
	labels := make([]string, WeekSize)
	for i := range labels {
		labels[i] = ((ws.Weekday() + time.Weekday(i)) % 7).String()[:3]
	}
	return labels
}
