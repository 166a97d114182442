package material

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/lecturedesk/lecturedesk/internal/rest"
	"github.com/lecturedesk/lecturedesk/internal/upstream"
	"github.com/lecturedesk/lecturedesk/internal/view"
	log "github.com/sirupsen/logrus"
)

const (
	// formOverhead is allowed on top of the file limit for the other form parts.
	formOverhead = 1 << 20
	// formMemory is kept in memory while parsing; larger files spill to disk.
	formMemory = 32 << 20
)

type Renderer interface {
	Render(w http.ResponseWriter, status int, page string, data view.Page)
	RenderError(w http.ResponseWriter, r *http.Request, status int, tab string, body view.ErrorBody)
}

// ListPage is the body of the materials page.
type ListPage struct {
	Materials []Material
	Count     int
	Selected  *Material
	Upload    *UploadForm
	Warning   string
}

// UploadForm is the state of the upload modal.
type UploadForm struct {
	Title    string
	Content  string
	FileName string
	// Pending is the token of a stashed file that is sent when no new file is chosen.
	Pending string
	Error   string
	MaxSize string
}

type Handler struct {
	service  Service
	renderer Renderer
}

func NewHandler(s Service, renderer Renderer) *Handler {
	return &Handler{service: s, renderer: renderer}
}

// List renders the materials page, optionally with the detail modal (?material=id) or
// the upload modal (?upload=1) open.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var form *UploadForm
	if q.Get("upload") != "" {
		form = h.newForm()
		if pending, ok := h.service.Pending(r.Context(), q.Get("pending")); ok {
			form.fill(pending, q.Get("pending"))
		}
	}
	h.render(w, r, http.StatusOK, form, ID(q.Get("material")))
}

func (h *Handler) newForm() *UploadForm {
	return &UploadForm{MaxSize: humanize.Bytes(uint64(h.service.MaxBytes()))}
}

func (f *UploadForm) fill(req UploadRequest, token string) {
	f.Title = req.Title
	f.Content = req.Content
	if req.File != nil && token != "" {
		f.FileName = req.File.Name
		f.Pending = token
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, form *UploadForm, selected ID) {
	materials, err := h.service.List(r.Context())
	page := ListPage{Upload: form}
	if err != nil {
		if materials == nil && form == nil {
			h.renderer.RenderError(w, r, upstream.HTTPStatus(err), view.TabMaterials, view.ErrorBody{
				Message:  upstream.UserMessage(err),
				RetryURL: "/materials/refresh",
				ReturnTo: "/materials",
			})
			return
		}
		if materials != nil {
			page.Warning = "Showing previously loaded materials. " + upstream.UserMessage(err)
		} else {
			page.Warning = "Materials could not be loaded. " + upstream.UserMessage(err)
		}
	}
	if materials == nil {
		materials = []Material{}
	}
	page.Materials = materials
	page.Count = len(materials)

	if selected != "" {
		for i := range materials {
			if materials[i].ID == selected {
				page.Selected = &materials[i]
				break
			}
		}
		if page.Selected == nil {
			page.Warning = "The selected material could not be found."
		}
	}
	h.renderer.Render(w, status, view.PageMaterials, view.NewPage(r, view.TabMaterials, "Materials", page))
}

// Upload handles the upload modal. Invalid input and rejected uploads re-render the
// modal with the entered data; the chosen file is kept under a pending token.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r = h.limit(w, r)
	ctx := r.Context()
	form := h.newForm()

	if err := r.ParseMultipartForm(formMemory); err != nil {
		if BodyTooLarge(r) {
			log.Debugf("Upload is too large: %v", err)
			h.TooLarge(w, r)
			return
		}
		log.Debugf("Failed to parse upload form: %v", err)
		form.Error = "The upload form could not be read."
		h.render(w, r, http.StatusBadRequest, form, "")
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			log.Debugf("failed to remove temporary upload files: %v", err)
		}
	}()

	req := UploadRequest{
		Title:   r.FormValue("title"),
		Content: r.FormValue("content"),
	}
	token := r.FormValue("pending")
	file, err := firstFile(r, "files")
	if err != nil {
		log.Debugf("Failed to read uploaded file: %v", err)
		form.Error = "The selected file could not be read."
		h.render(w, r, http.StatusBadRequest, form, "")
		return
	}
	if file != nil {
		req.File = file
		if token != "" {
			h.service.Forget(token)
			token = ""
		}
	} else if pending, ok := h.service.Pending(ctx, token); ok {
		req.File = pending.File
	} else {
		token = ""
	}

	if err := Validate(req, h.service.MaxBytes()); err != nil {
		if req.File != nil && token == "" && !errors.Is(err, ErrFileTooLarge) {
			token = h.service.Stash(ctx, req)
		}
		form.fill(req, token)
		form.Error = capitalize(err.Error()) + "."
		h.render(w, r, http.StatusBadRequest, form, "")
		return
	}

	if _, err := h.service.Upload(ctx, req); err != nil {
		if token == "" {
			token = h.service.Stash(ctx, req)
		}
		form.fill(req, token)
		form.Error = "Upload failed: " + upstream.UserMessage(err)
		h.render(w, r, upstream.HTTPStatus(err), form, "")
		return
	}
	if token != "" {
		h.service.Forget(token)
	}

	notice := url.Values{"notice": {"The file was uploaded."}}
	http.Redirect(w, r, "/materials?"+notice.Encode(), http.StatusSeeOther)
}

func firstFile(r *http.Request, field string) (*File, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	headers := r.MultipartForm.File[field]
	if len(headers) == 0 || headers[0].Filename == "" {
		return nil, nil
	}
	if len(headers) > 1 {
		log.Debugf("Ignoring %d additional file(s) in upload", len(headers)-1)
	}
	header := headers[0]
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	log.Debugf("Uploaded File: %s (%d bytes)", header.Filename, header.Size)
	return &File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.service.Refresh(r.Context())
	http.Redirect(w, r, "/materials", http.StatusSeeOther)
}

// ListJSON godoc
// @Summary List materials
// @Tags Materials
// @Produce json
// @Success 200 {array} Material
// @Failure 502 {object} rest.ErrorResponse "Upstream API failed"
// @Router /api/materials [get]
func (h *Handler) ListJSON(w http.ResponseWriter, r *http.Request) {
	materials, err := h.service.List(r.Context())
	if err != nil && materials == nil {
		rest.WriteError(w, upstream.HTTPStatus(err), upstream.UserMessage(err), err.Error())
		return
	}
	rest.WriteJSON(w, http.StatusOK, materials)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
