package lecture

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/lecturedesk/lecturedesk/internal/rest"
	"github.com/lecturedesk/lecturedesk/internal/upstream"
	"github.com/lecturedesk/lecturedesk/internal/view"
	"github.com/lecturedesk/lecturedesk/pkg/calendar"
	"github.com/lecturedesk/lecturedesk/pkg/material"
	log "github.com/sirupsen/logrus"
)

type Renderer interface {
	Render(w http.ResponseWriter, status int, page string, data view.Page)
	RenderError(w http.ResponseWriter, r *http.Request, status int, tab string, body view.ErrorBody)
}

// MaterialReader lists the materials attached to a lecture for the detail modal.
type MaterialReader interface {
	ForLecture(ctx context.Context, lectureID string) ([]material.Material, error)
}

// CalendarBody is the body of the calendar page.
type CalendarBody struct {
	CalendarPage
	Materials []material.Material
}

type DayDTO struct {
	Date     string    `json:"date"`
	InMonth  bool      `json:"inMonth"`
	Today    bool      `json:"today"`
	Lectures []Lecture `json:"lectures"`
}

type CalendarDTO struct {
	View     string   `json:"view"`
	Date     string   `json:"date"`
	Title    string   `json:"title"`
	Count    int      `json:"count"`
	Prev     string   `json:"prev"`
	Next     string   `json:"next"`
	Weekdays []string `json:"weekdays"`
	Days     []DayDTO `json:"days"`
	Warning  string   `json:"warning,omitempty"`
}

type Handler struct {
	service   Service
	materials MaterialReader
	renderer  Renderer
}

func NewHandler(s Service, materials MaterialReader, renderer Renderer) *Handler {
	return &Handler{service: s, materials: materials, renderer: renderer}
}

// viewFrom reads view, date and lecture from q. An unreadable date is reported and
// replaced by today.
func viewFrom(q url.Values) (ViewState, error) {
	v := ViewState{
		Granularity: calendar.ParseGranularity(q.Get("view")),
		Lecture:     ID(strings.TrimSpace(q.Get("lecture"))),
	}
	if text := q.Get("date"); text != "" {
		d, err := calendar.ParseDate(text, time.UTC)
		if err != nil {
			return v, fmt.Errorf("invalid date %q", text)
		}
		v.Date = d
	}
	return v, nil
}

// Page renders the calendar. Query parameters: view (monthly, weekly, daily), date
// (YYYY-MM-DD, default today) and lecture (opens the detail modal).
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v, parseErr := viewFrom(r.URL.Query())

	page, err := h.service.Calendar(ctx, v)
	if err != nil {
		log.Errorf("Failed to load calendar: %v", err)
		h.renderer.RenderError(w, r, upstream.HTTPStatus(err), view.TabCalendar, view.ErrorBody{
			Message:  upstream.UserMessage(err),
			RetryURL: "/calendar/refresh",
			ReturnTo: "/calendar?" + v.Query().Encode(),
		})
		return
	}

	body := CalendarBody{CalendarPage: page}
	if page.Selected != nil && h.materials != nil {
		materials, err := h.materials.ForLecture(ctx, page.Selected.ID.String())
		if err != nil {
			log.Debugf("Materials of lecture %s not shown: %v", page.Selected.ID, err)
		}
		body.Materials = materials
	}

	data := view.NewPage(r, view.TabCalendar, page.Title, body)
	if parseErr != nil {
		data.Error = "The date in the address could not be read. Showing today instead."
	}
	h.renderer.Render(w, http.StatusOK, view.PageCalendar, data)
}

// Nav moves the view one step back (dir=-1) or forward (dir=1) and redirects to it.
func (h *Handler) Nav(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v, _ := viewFrom(q)
	if v.Date.IsZero() {
		v.Date = h.service.Today()
	}
	dir, err := strconv.Atoi(q.Get("dir"))
	if err != nil {
		dir = 0
	}
	next := v.With(calendar.Navigate(v.Date, v.Granularity, dir))
	http.Redirect(w, r, "/calendar?"+next.Query().Encode(), http.StatusFound)
}

// Refresh drops the cached lectures of the posted view and redirects back to it, or to
// the posted return address when it points into the calendar.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	target := r.PostForm.Get("return")
	if !strings.HasPrefix(target, "/calendar") {
		target = ""
	}
	form := r.PostForm
	if target != "" {
		if u, err := url.Parse(target); err == nil {
			form = u.Query()
		}
	}
	v, _ := viewFrom(form)

	if err := h.service.Refresh(r.Context(), v); err != nil {
		log.Errorf("Failed to refresh lectures: %v", err)
	}
	if target == "" {
		target = "/calendar?" + v.With(v.Date).Query().Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// CalendarJSON godoc
// @Summary Get the computed calendar
// @Tags Calendar
// @Produce json
// @Param view query string false "monthly, weekly or daily"
// @Param date query string false "Reference date (YYYY-MM-DD)"
// @Success 200 {object} CalendarDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid date"
// @Failure 502 {object} rest.ErrorResponse "Upstream API failed"
// @Router /api/calendar [get]
func (h *Handler) CalendarJSON(w http.ResponseWriter, r *http.Request) {
	v, err := viewFrom(r.URL.Query())
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid date", err.Error())
		return
	}
	page, err := h.service.Calendar(r.Context(), v)
	if err != nil {
		rest.WriteError(w, upstream.HTTPStatus(err), upstream.UserMessage(err), err.Error())
		return
	}
	rest.WriteJSON(w, http.StatusOK, calendarToDTO(page))
}

func calendarToDTO(page CalendarPage) CalendarDTO {
	days := make([]DayDTO, 0, len(page.Days))
	for _, d := range page.Days {
		days = append(days, DayDTO{
			Date:     d.Date.String(),
			InMonth:  d.InMonth,
			Today:    d.Today,
			Lectures: d.Lectures,
		})
	}
	return CalendarDTO{
		View:     string(page.View.Granularity),
		Date:     page.View.Date.String(),
		Title:    page.Title,
		Count:    page.Count,
		Prev:     page.Prev.String(),
		Next:     page.Next.String(),
		Weekdays: page.Weekdays,
		Days:     days,
		Warning:  page.Warning,
	}
}

// DayJSON godoc
// @Summary List the lectures of one day
// @Tags Calendar
// @Produce json
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {array} Lecture
// @Failure 400 {object} rest.ErrorResponse "Invalid date"
// @Router /api/lectures/date/{date} [get]
func (h *Handler) DayJSON(w http.ResponseWriter, r *http.Request) {
	date, err := calendar.ParseDate(mux.Vars(r)["date"], time.UTC)
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid date", err.Error())
		return
	}
	lectures, err := h.service.Day(r.Context(), date)
	if err != nil && lectures == nil {
		rest.WriteError(w, upstream.HTTPStatus(err), upstream.UserMessage(err), err.Error())
		return
	}
	rest.WriteJSON(w, http.StatusOK, lectures)
}

// LectureJSON godoc
// @Summary Get one lecture
// @Tags Calendar
// @Produce json
// @Param id path string true "Lecture ID"
// @Success 200 {object} Lecture
// @Failure 404 {object} rest.ErrorResponse "Lecture not found"
// @Router /api/lectures/{id} [get]
func (h *Handler) LectureJSON(w http.ResponseWriter, r *http.Request) {
	v, _ := viewFrom(r.URL.Query())
	lecture, err := h.service.Find(r.Context(), v, ID(mux.Vars(r)["id"]))
	if err != nil {
		if errors.Is(err, ErrLectureNotFound) {
			rest.WriteError(w, http.StatusNotFound, "Lecture not found", err.Error())
			return
		}
		rest.WriteError(w, upstream.HTTPStatus(err), upstream.UserMessage(err), err.Error())
		return
	}
	rest.WriteJSON(w, http.StatusOK, lecture)
}

// ExportMonth serves the lectures of /calendar/{year}/{month}.ics as iCalendar.
func (h *Handler) ExportMonth(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	year, yearErr := strconv.Atoi(vars["year"])
	month, monthErr := strconv.Atoi(vars["month"])
	if yearErr != nil || monthErr != nil || month < 1 || month > 12 {
		http.Error(w, "invalid month", http.StatusBadRequest)
		return
	}

	doc, err := h.service.Export(r.Context(), year, time.Month(month))
	if err != nil {
		log.Errorf("Failed to export %04d-%02d: %v", year, month, err)
		http.Error(w, upstream.UserMessage(err), upstream.HTTPStatus(err))
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="lectures-%04d-%02d.ics"`, year, month))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc); err != nil {
		log.Debugf("failed to write calendar export: %v", err)
	}
}
