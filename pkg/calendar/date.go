package calendar

import (
	"fmt"
	"strings"
	"time"
)

// Date is a calendar day without time-of-day or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate normalizes overflowing values the way time.Date does (e.g. Feb 30 -> Mar 1/2).
func NewDate(year int, month time.Month, day int) Date {
	return fromUTC(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar day of t as observed in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return Date{Year: y, Month: m, Day: d}
}

func fromUTC(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// utc is used for all arithmetic so that DST transitions never shift a day.
func (d Date) utc() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// In returns midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) AddDays(n int) Date {
	return fromUTC(d.utc().AddDate(0, 0, n))
}

func (d Date) Weekday() time.Weekday {
	return d.utc().Weekday()
}

func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) Equal(other Date) bool {
	return d == other
}

func (d Date) Before(other Date) bool {
	return d.utc().Before(other.utc())
}

func (d Date) After(other Date) bool {
	return d.utc().After(other.utc())
}

// FirstOfMonth returns the first day of d's month.
func (d Date) FirstOfMonth() Date {
	return Date{Year: d.Year, Month: d.Month, Day: 1}
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// String returns the ISO 8601 date, e.g. "2024-06-05".
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// layouts accepted by ParseDate, tried in order. The bool marks layouts that carry
// an explicit offset.
var layouts = []struct {
	layout    string
	hasOffset bool
}{
	{time.DateOnly, false},
	{time.RFC3339Nano, true},
	{"2006-01-02T15:04:05", false},
	{"2006-01-02T15:04", false},
	{time.DateTime, false},
	{"2006-01-02 15:04:05Z07:00", true},
}

// ParseDate parses upstream date text into a calendar day.
//
// Text carrying an offset is converted into loc before the day is taken, so
// "2024-06-04T20:00:00Z" is 2024-06-05 in Asia/Seoul. Text without an offset is read
// as already local to loc.
func ParseDate(text string, loc *time.Location) (Date, error) {
	if loc == nil {
		loc = time.UTC
	}
	s := strings.TrimSpace(text)
	if s == "" {
		return Date{}, fmt.Errorf("empty date")
	}
	for _, l := range layouts {
		if l.hasOffset {
			t, err := time.Parse(l.layout, s)
			if err == nil {
				return DateOf(t, loc), nil
			}
			continue
		}
		t, err := time.ParseInLocation(l.layout, s, loc)
		if err == nil {
			return DateOf(t, loc), nil
		}
	}
	return Date{}, fmt.Errorf("unrecognized date %q", text)
}

// MustParseDate is ParseDate for literals in tests and defaults.
func MustParseDate(text string) Date {
	d, err := ParseDate(text, time.UTC)
	if err != nil {
		panic(err)
	}
	return d
}

// MarshalText encodes d as YYYY-MM-DD.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text), time.UTC)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
