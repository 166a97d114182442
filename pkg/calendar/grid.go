package calendar

import (
	"fmt"
	"strings"
	"time"
)

type Granularity string

const (
	Monthly Granularity = "monthly"
	Weekly  Granularity = "weekly"
	Daily   Granularity = "daily"
)

// Granularities lists the views in the order they are offered to the user.
var Granularities = []Granularity{Monthly, Weekly, Daily}

// ParseGranularity falls back to Monthly for anything it does not recognize.
func ParseGranularity(s string) Granularity {
	switch Granularity(strings.ToLower(strings.TrimSpace(s))) {
	case Weekly:
		return Weekly
	case Daily:
		return Daily
	default:
		return Monthly
	}
}

const (
	MonthGridSize = 42
	WeekSize      = 7
)

// WeekStart is the weekday used as index 0 of every week-aligned range.
type WeekStart time.Weekday

const DefaultWeekStart = WeekStart(time.Sunday)

// ParseWeekStart accepts weekday names ("sunday", "mon", ...). Unknown values fall
// back to DefaultWeekStart.
func ParseWeekStart(s string) WeekStart {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 3 {
		return DefaultWeekStart
	}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if strings.HasPrefix(strings.ToLower(wd.String()), s[:3]) {
			return WeekStart(wd)
		}
	}
	return DefaultWeekStart
}

func (ws WeekStart) Weekday() time.Weekday {
	if ws < WeekStart(time.Sunday) || ws > WeekStart(time.Saturday) {
		return time.Sunday
	}
	return time.Weekday(ws)
}

// StartOfWeek returns the most recent date on or before d whose weekday is ws.
func StartOfWeek(d Date, ws WeekStart) Date {
	delta := (int(d.Weekday()) - int(ws.Weekday()) + 7) % 7
	return d.AddDays(-delta)
}

// MonthGrid returns the 42 consecutive dates of a month view: the first of ref's month
// shifted back to the week start, so leading and trailing weeks are always whole.
func MonthGrid(ref Date, ws WeekStart) []Date {
	return consecutive(StartOfWeek(ref.FirstOfMonth(), ws), MonthGridSize)
}

// WeekDates returns the 7 dates of the week containing ref.
func WeekDates(ref Date, ws WeekStart) []Date {
	return consecutive(StartOfWeek(ref, ws), WeekSize)
}

// Dates returns the dates displayed for the given view.
func Dates(ref Date, g Granularity, ws WeekStart) []Date {
	switch g {
	case Weekly:
		return WeekDates(ref, ws)
	case Daily:
		return []Date{ref}
	default:
		return MonthGrid(ref, ws)
	}
}

func consecutive(start Date, n int) []Date {
	dates := make([]Date, n)
	for i := range dates {
		dates[i] = start.AddDays(i)
	}
	return dates
}

// Navigate moves ref one step in the direction given by the sign of direction.
//
// Monthly steps keep the day of month where the target month has it and otherwise
// clamp to the target month's last day, so 2024-01-31 +1 lands on 2024-02-29.
func Navigate(ref Date, g Granularity, direction int) Date {
	step := 0
	switch {
	case direction > 0:
		step = 1
	case direction < 0:
		step = -1
	default:
		return ref
	}

	switch g {
	case Weekly:
		return ref.AddDays(7 * step)
	case Daily:
		return ref.AddDays(step)
	default:
		first := NewDate(ref.Year, ref.Month+time.Month(step), 1)
		day := min(ref.Day, DaysIn(first.Year, first.Month))
		return Date{Year: first.Year, Month: first.Month, Day: day}
	}
}

// YearMonth identifies one monthly lecture listing.
type YearMonth struct {
	Year  int
	Month time.Month
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// MonthsCovered returns the distinct months touched by dates, in order of first
// appearance. A month grid spans up to three months.
func MonthsCovered(dates []Date) []YearMonth {
	seen := make(map[YearMonth]bool, 3)
	months := make([]YearMonth, 0, 3)
	for _, d := range dates {
		ym := YearMonth{Year: d.Year, Month: d.Month}
		if seen[ym] {
			continue
		}
		seen[ym] = true
		months = append(months, ym)
	}
	return months
}
