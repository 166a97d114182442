// Package test_utils hosts a fake lecture API for tests that cross package boundaries.
package test_utils

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// Record is one JSON object served by the fake API, in the loose shape the real API uses.
type Record map[string]any

// Upload is one multipart upload received by the fake API.
type Upload struct {
	Title    string
	Content  string
	FileName string
	Data     []byte
}

type failure struct {
	status    int
	remaining int
}

// FakeAPI serves the lecture and material endpoints from memory. Responses are wrapped
// in the {"success":true,"data":...} envelope unless Bare is set.
type FakeAPI struct {
	Server *httptest.Server
	Bare   bool

	mu        sync.Mutex
	lectures  map[string][]Record
	materials []Record
	byLecture map[string][]Record
	uploads   []Upload
	failures  map[string]*failure
	requests  []string
	tokens    []string
	nextID    int
}

// NewFakeAPI starts the fake API. It is closed when the test ends.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()

	f := &FakeAPI{
		lectures:  make(map[string][]Record),
		byLecture: make(map[string][]Record),
		failures:  make(map[string]*failure),
		nextID:    100,
	}

	r := mux.NewRouter()
	r.Use(f.record)
	r.HandleFunc("/lectures/date/{date}", f.lecturesByDate).Methods("GET")
	r.HandleFunc("/lectures/{year:[0-9]+}/{month:[0-9]+}", f.lecturesByMonth).Methods("GET")
	r.HandleFunc("/lectures/{id}", f.lecture).Methods("GET")
	r.HandleFunc("/materials", f.allMaterials).Methods("GET")
	r.HandleFunc("/materials/lecture/{id}", f.lectureMaterials).Methods("GET")
	r.HandleFunc("/materials/upload", f.upload).Methods("POST")

	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Server.Close)
	return f
}

// URL is the base URL to configure the API client with.
func (f *FakeAPI) URL() string {
	return f.Server.URL
}

// AddLectures stores lectures under the month key "YYYY-MM".
func (f *FakeAPI) AddLectures(month string, lectures ...Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lectures[month] = append(f.lectures[month], lectures...)
}

func (f *FakeAPI) AddMaterials(materials ...Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.materials = append(f.materials, materials...)
}

func (f *FakeAPI) AddLectureMaterials(lectureID string, materials ...Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byLecture[lectureID] = append(f.byLecture[lectureID], materials...)
}

// FailNext makes the next n requests to path answer with status.
func (f *FakeAPI) FailNext(path string, status, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[path] = &failure{status: status, remaining: n}
}

func (f *FakeAPI) Uploads() []Upload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Upload(nil), f.uploads...)
}

// Requests returns "METHOD /path" for every request received so far.
func (f *FakeAPI) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

// RequestCount counts received requests equal to "METHOD /path".
func (f *FakeAPI) RequestCount(request string) int {
	n := 0
	for _, r := range f.Requests() {
		if r == request {
			n++
		}
	}
	return n
}

// Tokens returns the bearer tokens received, in order. Requests without one add "".
func (f *FakeAPI) Tokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tokens...)
}

func (f *FakeAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r.Method+" "+r.URL.Path)
		f.tokens = append(f.tokens, strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
		fail, ok := f.failures[r.URL.Path]
		status := 0
		if ok && fail.remaining > 0 {
			fail.remaining--
			status = fail.status
		}
		f.mu.Unlock()

		if status != 0 {
			http.Error(w, fmt.Sprintf(`{"success":false,"message":"fake failure %d"}`, status), status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeAPI) write(w http.ResponseWriter, status int, data any) {
	var body any = data
	if !f.Bare {
		body = map[string]any{"success": true, "data": data}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Errorf("fake API: failed to encode response: %v", err)
	}
}

func (f *FakeAPI) lecturesByMonth(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	f.mu.Lock()
	lectures := append([]Record{}, f.lectures[vars["year"]+"-"+vars["month"]]...)
	f.mu.Unlock()
	f.write(w, http.StatusOK, lectures)
}

func (f *FakeAPI) lecturesByDate(w http.ResponseWriter, r *http.Request) {
	date := mux.Vars(r)["date"]
	f.mu.Lock()
	defer f.mu.Unlock()
	lectures := []Record{}
	for _, l := range f.lectures[date[:min(7, len(date))]] {
		if l["date"] == date {
			lectures = append(lectures, l)
		}
	}
	f.write(w, http.StatusOK, lectures)
}

func (f *FakeAPI) lecture(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, month := range f.lectures {
		for _, l := range month {
			if fmt.Sprint(l["id"]) == id {
				f.write(w, http.StatusOK, l)
				return
			}
		}
	}
	http.Error(w, `{"success":false,"message":"lecture not found"}`, http.StatusNotFound)
}

func (f *FakeAPI) allMaterials(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	materials := append([]Record{}, f.materials...)
	f.mu.Unlock()
	f.write(w, http.StatusOK, materials)
}

func (f *FakeAPI) lectureMaterials(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	f.mu.Lock()
	materials := append([]Record{}, f.byLecture[id]...)
	f.mu.Unlock()
	f.write(w, http.StatusOK, materials)
}

func (f *FakeAPI) upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		http.Error(w, `{"success":false,"message":"no file"}`, http.StatusBadRequest)
		return
	}
	file, err := files[0].Open()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.nextID++
	up := Upload{Title: r.FormValue("title"), Content: r.FormValue("content"), FileName: files[0].Filename, Data: data}
	f.uploads = append(f.uploads, up)
	created := Record{
		"id":          f.nextID,
		"title":       up.Title,
		"content":     up.Content,
		"name":        up.FileName,
		"size":        len(data),
		"upload_date": "2024-06-05T05:30:00Z",
	}
	f.materials = append(f.materials, created)
	f.mu.Unlock()

	f.write(w, http.StatusCreated, created)
}
