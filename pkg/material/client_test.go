package material

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lecturedesk/lecturedesk/internal/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *ClientImpl {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(upstream.NewClient(upstream.Config{BaseURL: srv.URL}, srv.Client()), seoul)
}

func TestClientImpl_GetAllMaterials(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/materials", r.URL.Path)
		_, _ = w.Write([]byte(`{"success":true,"data":[
			{"id":1,"title":"Syllabus","size":1000,"uploadDate":"2024-06-05T05:30:00Z"},
			{"id":2,"title":"Notes","upload_date":"2024-06-05T05:30:00"}
		]}`))
	})

	materials, err := client.GetAllMaterials(ctx)

	require.NoError(t, err)
	require.Len(t, materials, 2)
	assert.Equal(t, "2024. 06. 05. 14:30", materials[0].UploadDate)
	assert.Equal(t, "2024-06-05T05:30:00", materials[1].UploadDate)
}

func TestClientImpl_GetMaterialsByLecture(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/materials/lecture/3", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id":1}]`))
	})

	materials, err := client.GetMaterialsByLecture(ctx, "3")

	require.NoError(t, err)
	assert.Len(t, materials, 1)
}

func TestClientImpl_UploadFile(t *testing.T) {
	// given
	var files int
	var title, body string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/materials/upload", r.URL.Path)
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		title = r.FormValue("title")
		files = len(r.MultipartForm.File["files"])
		if files > 0 {
			f, err := r.MultipartForm.File["files"][0].Open()
			assert.NoError(t, err)
			b, _ := io.ReadAll(f)
			body = string(b)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":9,"title":"Week 1 slides","created_at":"2024-06-05T05:30:00Z"}}`))
	})

	// when
	created, err := client.UploadFile(ctx, validUpload())

	// then
	require.NoError(t, err)
	assert.Equal(t, "Week 1 slides", title)
	assert.Equal(t, 1, files)
	assert.Equal(t, "%PDF", body)
	require.Len(t, created, 1)
	assert.Equal(t, ID("9"), created[0].ID)
	assert.Equal(t, "2024. 06. 05. 14:30", created[0].UploadDate)
}

func TestClientImpl_UploadFile_UnreadableEcho(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`"ok"`))
	})

	created, err := client.UploadFile(ctx, validUpload())

	require.NoError(t, err)
	assert.Empty(t, created)
}
