package material

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/lecturedesk/lecturedesk/internal/upstream"
)

var ErrMaterialNotFound = fmt.Errorf("material not found")

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

// Size is a file size as the API reports it: a byte count or preformatted text.
type Size struct {
	Bytes int64
	Text  string
	known bool
}

func SizeOf(n int64) Size {
	return Size{Bytes: n, known: true}
}

func (s *Size) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*s = Size{}
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var text string
		if err := json.Unmarshal(b, &text); err != nil {
			return err
		}
		text = strings.TrimSpace(text)
		if n, err := strconv.ParseInt(text, 10, 64); err == nil && n >= 0 {
			*s = SizeOf(n)
			return nil
		}
		s.Text = text
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("size must be a number or a string: %w", err)
	}
	if f < 0 {
		return nil
	}
	*s = SizeOf(int64(f))
	return nil
}

func (s Size) MarshalJSON() ([]byte, error) {
	if s.known {
		return json.Marshal(s.Bytes)
	}
	if s.Text != "" {
		return json.Marshal(s.Text)
	}
	return []byte("null"), nil
}

// String formats a byte count the way people read it ("1.2 MB"); text sizes are shown
// as sent.
func (s Size) String() string {
	if s.known {
		return humanize.Bytes(uint64(s.Bytes))
	}
	return s.Text
}

type Material struct {
	ID         ID     `json:"id"`
	Title      string `json:"title"`
	Name       string `json:"name"`
	Size       Size   `json:"size"`
	UploadDate string `json:"uploadDate"`
	Content    string `json:"content"`
	LectureID  string `json:"lectureId,omitempty"`
	CreatedAt  string `json:"createdAt,omitempty"`
	UpdatedAt  string `json:"updatedAt,omitempty"`
}

// wireMaterial accepts both the camelCase and the snake_case field names the API uses.
type wireMaterial struct {
	ID            ID              `json:"id"`
	Title         string          `json:"title"`
	Name          string          `json:"name"`
	OriginalName  string          `json:"originalName"`
	Size          Size            `json:"size"`
	UploadDate    string          `json:"uploadDate"`
	UploadDateAlt string          `json:"upload_date"`
	Content       string          `json:"content"`
	LectureID     json.RawMessage `json:"lectureId"`
	LectureIDAlt  json.RawMessage `json:"lecture_id"`
	CreatedAt     string          `json:"createdAt"`
	CreatedAtAlt  string          `json:"created_at"`
	UpdatedAt     string          `json:"updatedAt"`
	UpdatedAtAlt  string          `json:"updated_at"`
}

func (m *Material) UnmarshalJSON(b []byte) error {
	var w wireMaterial
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	lectureID, err := upstream.DecodeID(firstRaw(w.LectureID, w.LectureIDAlt))
	if err != nil {
		return fmt.Errorf("lectureId: %w", err)
	}
	*m = Material{
		ID:         w.ID,
		Title:      w.Title,
		Name:       first(w.Name, w.OriginalName),
		Size:       w.Size,
		UploadDate: first(w.UploadDate, w.UploadDateAlt),
		Content:    w.Content,
		LectureID:  lectureID,
		CreatedAt:  first(w.CreatedAt, w.CreatedAtAlt),
		UpdatedAt:  first(w.UpdatedAt, w.UpdatedAtAlt),
	}
	if m.UploadDate == "" {
		m.UploadDate = m.CreatedAt
	}
	return nil
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstRaw(values ...json.RawMessage) []byte {
	for _, v := range values {
		if len(bytes.TrimSpace(v)) > 0 {
			return v
		}
	}
	return nil
}

// DisplayTitle is the title, or the file name for untitled materials.
func (m Material) DisplayTitle() string {
	if strings.TrimSpace(m.Title) != "" {
		return m.Title
	}
	return m.Name
}

func (m Material) SizeText() string {
	return m.Size.String()
}

// TimestampLayout is how timestamps are shown, e.g. "2024. 06. 05. 14:30".
const TimestampLayout = "2006. 01. 02. 15:04"

var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04Z07:00",
}

// FormatTimestamp rewrites an ISO instant carrying a "Z" or "+" offset into loc using
// TimestampLayout. Any other text is returned unchanged.
func FormatTimestamp(text string, loc *time.Location) string {
	if !strings.Contains(text, "T") || !(strings.HasSuffix(text, "Z") || strings.Contains(text, "+")) {
		return text
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t.In(loc).Format(TimestampLayout)
		}
	}
	return text
}

// Localized returns m with its timestamps shown in loc.
func (m Material) Localized(loc *time.Location) Material {
	m.UploadDate = FormatTimestamp(m.UploadDate, loc)
	m.CreatedAt = FormatTimestamp(m.CreatedAt, loc)
	m.UpdatedAt = FormatTimestamp(m.UpdatedAt, loc)
	return m
}
