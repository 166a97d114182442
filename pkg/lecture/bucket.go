package lecture

import (
	"time"

	"github.com/lecturedesk/lecturedesk/pkg/calendar"
	log "github.com/sirupsen/logrus"
)

// ForDate returns the lectures taking place on date, in input order, one per ID.
//
// Records without a date or with a date that cannot be parsed are skipped. When the
// same ID occurs more than once on the date, the first occurrence wins.
func ForDate(date calendar.Date, all []Lecture, loc *time.Location) []Lecture {
	matched := make([]Lecture, 0)
	for i, l := range all {
		day, ok := dayOf(i, l, loc)
		if !ok || !day.Equal(date) {
			continue
		}
		matched = append(matched, l)
	}

	unique := Unique(matched)
	if dropped := len(matched) - len(unique); dropped > 0 {
		log.Debugf("lecture: dropped %d duplicate lecture(s) on %s", dropped, date)
	}
	return unique
}

// Bucket groups lectures by displayed date. Every date in dates gets an entry, empty
// when nothing takes place on it. Each list is what ForDate returns for that date.
func Bucket(dates []calendar.Date, all []Lecture, loc *time.Location) map[calendar.Date][]Lecture {
	buckets := make(map[calendar.Date][]Lecture, len(dates))
	for _, d := range dates {
		buckets[d] = make([]Lecture, 0)
	}

	for i, l := range all {
		day, ok := dayOf(i, l, loc)
		if !ok {
			continue
		}
		if list, shown := buckets[day]; shown {
			buckets[day] = append(list, l)
		}
	}

	for d, list := range buckets {
		unique := Unique(list)
		if dropped := len(list) - len(unique); dropped > 0 {
			log.Debugf("lecture: dropped %d duplicate lecture(s) on %s", dropped, d)
		}
		buckets[d] = unique
	}
	return buckets
}

// Unique drops every lecture whose ID was already seen, keeping input order.
func Unique(all []Lecture) []Lecture {
	seen := make(map[ID]struct{}, len(all))
	unique := make([]Lecture, 0, len(all))
	for _, l := range all {
		if _, dup := seen[l.ID]; dup {
			continue
		}
		seen[l.ID] = struct{}{}
		unique = append(unique, l)
	}
	return unique
}

func dayOf(index int, l Lecture, loc *time.Location) (calendar.Date, bool) {
	if l.Date == "" {
		log.Debugf("lecture: record %d (id %q) has no date, skipping", index, l.ID)
		return calendar.Date{}, false
	}
	day, err := l.Day(loc)
	if err != nil {
		log.Debugf("lecture: record %d (id %q) has an unreadable date %q: %v", index, l.ID, l.Date, err)
		return calendar.Date{}, false
	}
	return day, true
}
