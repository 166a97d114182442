package lecture

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	log "github.com/sirupsen/logrus"
)

// DefaultDuration is used for lectures that only state a start time.
const DefaultDuration = time.Hour

var timeRange = regexp.MustCompile(`^\s*(\d{1,2}):(\d{2})\s*(?:[-~–]\s*(\d{1,2}):(\d{2}))?\s*$`)

// ParseTimeRange reads the lecture "time" text ("14:00" or "14:00 - 15:30") as offsets
// from midnight. ok is false for anything else.
func ParseTimeRange(text string) (start, end time.Duration, ok bool) {
	m := timeRange.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, false
	}
	start, ok = hourMinute(m[1], m[2])
	if !ok {
		return 0, 0, false
	}
	if m[3] == "" {
		return start, start + DefaultDuration, true
	}
	end, ok = hourMinute(m[3], m[4])
	if !ok {
		return 0, 0, false
	}
	if end <= start {
		end = start + DefaultDuration
	}
	return start, end, true
}

func hourMinute(hh, mm string) (time.Duration, bool) {
	h, err := strconv.Atoi(hh)
	if err != nil || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m > 59 {
		return 0, false
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, true
}

func UID(id ID) string {
	return fmt.Sprintf("lecture-%s@lecturedesk", id)
}

// ExportICS renders lectures as an iCalendar document. Lectures without a readable
// date are left out.
func ExportICS(lectures []Lecture, loc *time.Location, name string, stamp time.Time) ([]byte, error) {
	if loc == nil {
		loc = time.UTC
	}
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//lecturedesk//lectures//EN")
	cal.SetName(name)
	cal.SetXWRCalName(name)
	cal.SetXWRTimezone(loc.String())

	exported := 0
	for i, l := range lectures {
		day, ok := dayOf(i, l, loc)
		if !ok {
			continue
		}
		event := cal.AddEvent(UID(l.ID))
		event.SetDtStampTime(stamp)
		event.SetSummary(l.Title)
		if desc := description(l); desc != "" {
			event.SetDescription(desc)
		}
		if start, end, ok := ParseTimeRange(l.Time); ok {
			midnight := day.In(loc)
			event.SetStartAt(midnight.Add(start))
			event.SetEndAt(midnight.Add(end))
		} else {
			event.SetAllDayStartAt(day.In(loc))
			event.SetAllDayEndAt(day.AddDays(1).In(loc))
		}
		exported++
	}
	log.Debugf("Exported %d of %d lecture(s) to %q", exported, len(lectures), name)
	return []byte(cal.Serialize()), nil
}

func description(l Lecture) string {
	parts := make([]string, 0, 2)
	if l.Instructor != "" {
		parts = append(parts, "Instructor: "+l.Instructor)
	}
	if l.Description != "" {
		parts = append(parts, l.Description)
	}
	return strings.Join(parts, "\n\n")
}
