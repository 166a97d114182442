package lecture

import (
	"net/url"

	"github.com/lecturedesk/lecturedesk/pkg/calendar"
)

// ViewState is what the calendar page shows: the reference date, the granularity and
// the lecture whose detail modal is open, if any.
type ViewState struct {
	Granularity calendar.Granularity
	Date        calendar.Date
	Lecture     ID
}

func (v ViewState) normalize(today calendar.Date) ViewState {
	if v.Date.IsZero() {
		v.Date = today
	}
	v.Granularity = calendar.ParseGranularity(string(v.Granularity))
	return v
}

// Query encodes the view as calendar page query parameters.
func (v ViewState) Query() url.Values {
	q := url.Values{}
	q.Set("view", string(v.Granularity))
	if !v.Date.IsZero() {
		q.Set("date", v.Date.String())
	}
	if v.Lecture != "" {
		q.Set("lecture", v.Lecture.String())
	}
	return q
}

// With returns a copy of the view showing another date with no lecture selected.
func (v ViewState) With(date calendar.Date) ViewState {
	return ViewState{Granularity: v.Granularity, Date: date}
}

type Day struct {
	Date     calendar.Date
	InMonth  bool
	Today    bool
	Lectures []Lecture
}

type CalendarPage struct {
	View     ViewState
	Title    string
	Weekdays []string
	Days     []Day
	// Count is the number of distinct lectures in the reference month.
	Count    int
	Today    calendar.Date
	Prev     calendar.Date
	Next     calendar.Date
	Selected *Lecture
	// Warning is shown above the calendar when stale data is displayed or the selected
	// lecture is gone.
	Warning string
}

// Weeks splits the days into rows of seven for the month grid.
func (p CalendarPage) Weeks() [][]Day {
	weeks := make([][]Day, 0, len(p.Days)/calendar.WeekSize+1)
	for i := 0; i < len(p.Days); i += calendar.WeekSize {
		end := min(i+calendar.WeekSize, len(p.Days))
		weeks = append(weeks, p.Days[i:end])
	}
	return weeks
}

// As returns a copy of the view with another granularity and no lecture selected.
func (v ViewState) As(g calendar.Granularity) ViewState {
	return ViewState{Granularity: g, Date: v.Date}
}

// Select returns a copy of the view with the detail modal of id open.
func (v ViewState) Select(id ID) ViewState {
	v.Lecture = id
	return v
}
