package lecture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lecturedesk/lecturedesk/internal/event_bus"
	"github.com/lecturedesk/lecturedesk/internal/querycache"
	"github.com/lecturedesk/lecturedesk/internal/upstream"
	"github.com/lecturedesk/lecturedesk/internal/utils"
	"github.com/lecturedesk/lecturedesk/pkg/calendar"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type Service interface {
	// Month returns the lectures of one monthly listing. On a failed refetch the
	// previous listing is returned together with the error, if there is one.
	Month(ctx context.Context, year int, month time.Month) ([]Lecture, error)
	// Day returns the lectures of one day as listed by the per-date endpoint.
	Day(ctx context.Context, date calendar.Date) ([]Lecture, error)
	Calendar(ctx context.Context, view ViewState) (CalendarPage, error)
	Find(ctx context.Context, view ViewState, id ID) (Lecture, error)
	// Refresh drops the cached listings the view shows, so the next read refetches.
	Refresh(ctx context.Context, view ViewState) error
	Export(ctx context.Context, year int, month time.Month) ([]byte, error)
	Today() calendar.Date
}

// Scope names the principal whose data a request sees.
type Scope func(ctx context.Context) string

type Options struct {
	Location  *time.Location
	WeekStart calendar.WeekStart
}

type ServiceImpl struct {
	client    Client
	cache     *querycache.Cache
	scope     Scope
	eventBus  *event_bus.EventBus
	clock     utils.Clock
	loc       *time.Location
	weekStart calendar.WeekStart
}

func NewService(client Client, cache *querycache.Cache, scope Scope, eventBus *event_bus.EventBus, clock utils.Clock, opts Options) *ServiceImpl {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &ServiceImpl{
		client:    client,
		cache:     cache,
		scope:     scope,
		eventBus:  eventBus,
		clock:     clock,
		loc:       loc,
		weekStart: opts.WeekStart,
	}
}

func MonthKey(scope string, year int, month time.Month) string {
	return fmt.Sprintf("lectures/%s/%04d-%02d", scope, year, int(month))
}

func (s *ServiceImpl) Today() calendar.Date {
	return calendar.DateOf(s.clock.Now(), s.loc)
}

func (s *ServiceImpl) Month(ctx context.Context, year int, month time.Month) ([]Lecture, error) {
	key := MonthKey(s.scope(ctx), year, month)
	return querycache.Fetch(ctx, s.cache, key, func(ctx context.Context) ([]Lecture, error) {
		return s.client.GetLecturesByMonth(ctx, year, month)
	})
}

func (s *ServiceImpl) Day(ctx context.Context, date calendar.Date) ([]Lecture, error) {
	key := fmt.Sprintf("lectures/%s/date/%s", s.scope(ctx), date)
	lectures, err := querycache.Fetch(ctx, s.cache, key, func(ctx context.Context) ([]Lecture, error) {
		return s.client.GetLecturesByDate(ctx, date)
	})
	if err != nil {
		return lectures, err
	}
	return ForDate(date, lectures, s.loc), nil
}

type loaded struct {
	byMonth map[calendar.YearMonth][]Lecture
	// stale joins the refresh failures of listings served from their previous value.
	stale error
}

func (l loaded) all(months []calendar.YearMonth) []Lecture {
	all := make([]Lecture, 0)
	for _, ym := range months {
		all = append(all, l.byMonth[ym]...)
	}
	return all
}

// months loads every listing in parallel. A listing that failed but still has a
// previous value is used, and its failure is kept as stale.
func (s *ServiceImpl) months(ctx context.Context, months []calendar.YearMonth) (loaded, error) {
	results := make([][]Lecture, len(months))
	staleErrs := make([]error, len(months))

	g, gctx := errgroup.WithContext(ctx)
	for i, ym := range months {
		g.Go(func() error {
			lectures, err := s.Month(gctx, ym.Year, ym.Month)
			if err != nil {
				if lectures == nil {
					return fmt.Errorf("failed to load lectures of %s: %w", ym, err)
				}
				log.Warnf("Showing cached lectures of %s after a failed refresh: %v", ym, err)
				staleErrs[i] = err
			}
			results[i] = lectures
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return loaded{}, err
	}

	l := loaded{byMonth: make(map[calendar.YearMonth][]Lecture, len(months))}
	for i, ym := range months {
		l.byMonth[ym] = results[i]
	}
	l.stale = errors.Join(staleErrs...)
	return l, nil
}

func (s *ServiceImpl) Calendar(ctx context.Context, view ViewState) (CalendarPage, error) {
	view = view.normalize(s.Today())
	dates := calendar.Dates(view.Date, view.Granularity, s.weekStart)
	months := calendar.MonthsCovered(dates)

	data, err := s.months(ctx, months)
	if err != nil {
		return CalendarPage{}, err
	}
	all := data.all(months)

	today := s.Today()
	buckets := Bucket(dates, all, s.loc)
	days := make([]Day, 0, len(dates))
	for _, d := range dates {
		days = append(days, Day{
			Date:     d,
			InMonth:  d.Year == view.Date.Year && d.Month == view.Date.Month,
			Today:    d.Equal(today),
			Lectures: buckets[d],
		})
	}

	page := CalendarPage{
		View:     view,
		Title:    calendar.Title(view.Date, view.Granularity, s.weekStart),
		Weekdays: calendar.WeekdayLabels(s.weekStart),
		Days:     days,
		Count:    len(Unique(data.byMonth[calendar.YearMonth{Year: view.Date.Year, Month: view.Date.Month}])),
		Today:    today,
		Prev:     calendar.Navigate(view.Date, view.Granularity, -1),
		Next:     calendar.Navigate(view.Date, view.Granularity, +1),
	}
	if data.stale != nil {
		page.Warning = "Showing previously loaded lectures. " + upstream.UserMessage(data.stale)
	}

	if view.Lecture != "" {
		selected, err := s.find(ctx, all, view.Lecture)
		if err != nil {
			log.Debugf("Selected lecture %s not shown: %v", view.Lecture, err)
			page.Warning = "The selected lecture could not be found."
		} else {
			page.Selected = &selected
		}
	}
	return page, nil
}

func (s *ServiceImpl) Find(ctx context.Context, view ViewState, id ID) (Lecture, error) {
	view = view.normalize(s.Today())
	months := calendar.MonthsCovered(calendar.Dates(view.Date, view.Granularity, s.weekStart))
	data, err := s.months(ctx, months)
	if err != nil {
		return Lecture{}, err
	}
	return s.find(ctx, data.all(months), id)
}

func (s *ServiceImpl) find(ctx context.Context, loaded []Lecture, id ID) (Lecture, error) {
	for _, l := range loaded {
		if l.ID == id {
			return l, nil
		}
	}
	key := fmt.Sprintf("lectures/%s/id/%s", s.scope(ctx), id)
	return querycache.Fetch(ctx, s.cache, key, func(ctx context.Context) (Lecture, error) {
		return s.client.GetLecture(ctx, id)
	})
}

func (s *ServiceImpl) Refresh(ctx context.Context, view ViewState) error {
	view = view.normalize(s.Today())
	scope := s.scope(ctx)
	months := calendar.MonthsCovered(calendar.Dates(view.Date, view.Granularity, s.weekStart))

	names := make([]string, 0, len(months))
	for _, ym := range months {
		s.cache.Invalidate(MonthKey(scope, ym.Year, ym.Month))
		names = append(names, ym.String())
	}
	s.cache.InvalidatePrefix(fmt.Sprintf("lectures/%s/date/", scope))
	s.cache.InvalidatePrefix(fmt.Sprintf("lectures/%s/id/", scope))
	log.Debugf("Refreshing lectures of %v for %s", names, scope)

	err := s.eventBus.Publish(event_bus.NewEvent(ctx, event_bus.LecturesRefreshedType, event_bus.LecturesRefreshed{
		Scope:  scope,
		Months: names,
	}))
	if err != nil {
		log.Errorf("failed to publish lectures refreshed event: %v", err)
		return err
	}
	return nil
}

func (s *ServiceImpl) Export(ctx context.Context, year int, month time.Month) ([]byte, error) {
	lectures, err := s.Month(ctx, year, month)
	if err != nil && lectures == nil {
		return nil, err
	}
	name := fmt.Sprintf("Lectures %04d-%02d", year, int(month))
	return ExportICS(Unique(lectures), s.loc, name, s.clock.Now())
}
