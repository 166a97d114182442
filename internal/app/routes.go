package app

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/lecturedesk/lecturedesk/internal/rest"
	"github.com/lecturedesk/lecturedesk/internal/view"
	"github.com/lecturedesk/lecturedesk/pkg/material"
)

// RegisterRoutes registers all pages and API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {

	// Calendar
	r.HandleFunc("/calendar", deps.LectureHandler.Page).Methods("GET")
	r.HandleFunc("/calendar/nav", deps.LectureHandler.Nav).Methods("GET")
	r.HandleFunc("/calendar/refresh", deps.LectureHandler.Refresh).Methods("POST")
	r.HandleFunc("/calendar/{year:[0-9]{4}}/{month:[0-9]{2}}.ics", deps.LectureHandler.ExportMonth).Methods("GET")
	r.HandleFunc("/api/calendar", deps.LectureHandler.CalendarJSON).Methods("GET")
	r.HandleFunc("/api/lectures/date/{date}", deps.LectureHandler.DayJSON).Methods("GET")
	r.HandleFunc("/api/lectures/{id}", deps.LectureHandler.LectureJSON).Methods("GET")

	// Materials
	r.HandleFunc("/materials", deps.MaterialHandler.List).Methods("GET")
	r.HandleFunc(material.UploadPath, deps.MaterialHandler.Upload).Methods("POST")
	r.HandleFunc("/materials/refresh", deps.MaterialHandler.Refresh).Methods("POST")
	r.HandleFunc("/api/materials", deps.MaterialHandler.ListJSON).Methods("GET")

	r.HandleFunc("/health", health).Methods("GET")
	r.PathPrefix("/static/").Handler(view.Static())
	r.Handle("/", http.RedirectHandler("/calendar", http.StatusFound)).Methods("GET")
}

func health(w http.ResponseWriter, r *http.Request) {
	rest.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
