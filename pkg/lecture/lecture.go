package lecture

import (
	"fmt"
	"time"

	"github.com/lecturedesk/lecturedesk/internal/upstream"
	"github.com/lecturedesk/lecturedesk/pkg/calendar"
)

var ErrLectureNotFound = fmt.Errorf("lecture not found")

// ID identifies a lecture. The API sends it as a number or as a string; both decode to
// the same textual form so that 7 and "7" compare equal.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	s, err := upstream.DecodeID(b)
	if err != nil {
		return err
	}
	*id = ID(s)
	return nil
}

func (id ID) String() string {
	return string(id)
}

type Lecture struct {
	ID          ID     `json:"id"`
	Date        string `json:"date"`
	Title       string `json:"title"`
	Time        string `json:"time"`
	Instructor  string `json:"instructor"`
	Description string `json:"description"`
	ColorClass  string `json:"colorClass"`
}

func (l Lecture) Color() Color {
	return ColorFor(l.ColorClass)
}

// Day returns the calendar day the lecture takes place on, as seen in loc.
func (l Lecture) Day(loc *time.Location) (calendar.Date, error) {
	return calendar.ParseDate(l.Date, loc)
}
