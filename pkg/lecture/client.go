package lecture

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/lecturedesk/lecturedesk/internal/upstream"
	"github.com/lecturedesk/lecturedesk/pkg/calendar"
	log "github.com/sirupsen/logrus"
)

// API is the part of the upstream client the lecture endpoints need.
type API interface {
	Get(ctx context.Context, path string) ([]byte, error)
}

type Client interface {
	GetLecturesByMonth(ctx context.Context, year int, month time.Month) ([]Lecture, error) // /lectures/{year}/{MM}
	GetLecturesByDate(ctx context.Context, date calendar.Date) ([]Lecture, error)          // /lectures/date/{YYYY-MM-DD}
	GetLecture(ctx context.Context, id ID) (Lecture, error)                                // /lectures/{id}
}

type ClientImpl struct {
	api API
}

func NewClient(api API) *ClientImpl {
	return &ClientImpl{api: api}
}

func monthPath(year int, month time.Month) string {
	return fmt.Sprintf("/lectures/%d/%02d", year, int(month))
}

func (c *ClientImpl) GetLecturesByMonth(ctx context.Context, year int, month time.Month) ([]Lecture, error) {
	body, err := c.api.Get(ctx, monthPath(year, month))
	if err != nil {
		return nil, err
	}
	lectures, err := upstream.DecodeList[Lecture](body)
	if err != nil {
		log.Errorf("Failed to decode lectures of %d-%02d: %v", year, int(month), err)
		return nil, err
	}
	log.Debugf("Fetched %d lecture(s) for %d-%02d", len(lectures), year, int(month))
	return lectures, nil
}

func (c *ClientImpl) GetLecturesByDate(ctx context.Context, date calendar.Date) ([]Lecture, error) {
	body, err := c.api.Get(ctx, "/lectures/date/"+date.String())
	if err != nil {
		return nil, err
	}
	lectures, err := upstream.DecodeList[Lecture](body)
	if err != nil {
		log.Errorf("Failed to decode lectures of %s: %v", date, err)
		return nil, err
	}
	return lectures, nil
}

func (c *ClientImpl) GetLecture(ctx context.Context, id ID) (Lecture, error) {
	if id == "" {
		return Lecture{}, ErrLectureNotFound
	}
	body, err := c.api.Get(ctx, "/lectures/"+url.PathEscape(id.String()))
	if err != nil {
		var se *upstream.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return Lecture{}, fmt.Errorf("%w: %s", ErrLectureNotFound, id)
		}
		return Lecture{}, err
	}
	lecture, err := upstream.DecodeOne[Lecture](body)
	if err != nil {
		log.Errorf("Failed to decode lecture %s: %v", id, err)
		return Lecture{}, err
	}
	if lecture.ID == "" {
		lecture.ID = id
	}
	return lecture, nil
}
