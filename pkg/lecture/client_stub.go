package lecture

import (
	"context"
	"sync"
	"time"

	"github.com/lecturedesk/lecturedesk/pkg/calendar"
)

type ClientStub struct {
	mu         sync.RWMutex
	months     map[calendar.YearMonth][]Lecture
	byId       map[ID]Lecture
	monthCalls map[calendar.YearMonth]int
	monthErr   error
	lectureErr error
}

func NewClientStub() *ClientStub {
	return &ClientStub{
		months:     make(map[calendar.YearMonth][]Lecture),
		byId:       make(map[ID]Lecture),
		monthCalls: make(map[calendar.YearMonth]int),
	}
}

func (c *ClientStub) GetLecturesByMonth(ctx context.Context, year int, month time.Month) ([]Lecture, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ym := calendar.YearMonth{Year: year, Month: month}
	c.monthCalls[ym]++
	if c.monthErr != nil {
		return nil, c.monthErr
	}
	result := make([]Lecture, len(c.months[ym]))
	copy(result, c.months[ym])
	return result, nil
}

func (c *ClientStub) GetLecturesByDate(ctx context.Context, date calendar.Date) ([]Lecture, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.monthErr != nil {
		return nil, c.monthErr
	}
	ym := calendar.YearMonth{Year: date.Year, Month: date.Month}
	return ForDate(date, c.months[ym], time.UTC), nil
}

func (c *ClientStub) GetLecture(ctx context.Context, id ID) (Lecture, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.lectureErr != nil {
		return Lecture{}, c.lectureErr
	}
	l, ok := c.byId[id]
	if !ok {
		return Lecture{}, ErrLectureNotFound
	}
	return l, nil
}

func (c *ClientStub) SetMonth(year int, month time.Month, lectures ...Lecture) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.months[calendar.YearMonth{Year: year, Month: month}] = lectures
}

func (c *ClientStub) SetLecture(l Lecture) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byId[l.ID] = l
}

func (c *ClientStub) SetMonthError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.monthErr = err
}

func (c *ClientStub) SetLectureError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lectureErr = err
}

func (c *ClientStub) MonthCalls(year int, month time.Month) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.monthCalls[calendar.YearMonth{Year: year, Month: month}]
}

func (c *ClientStub) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.months = make(map[calendar.YearMonth][]Lecture)
	c.byId = make(map[ID]Lecture)
	c.monthCalls = make(map[calendar.YearMonth]int)
	c.monthErr = nil
	c.lectureErr = nil
}
