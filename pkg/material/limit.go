package material

import (
	"context"
	"errors"
	"io"
	"net/http"
)

// UploadPath is where the upload modal posts to.
const UploadPath = "/materials/upload"

type limitKey struct{}

// limitedBody is a MaxBytesReader that remembers whether the limit was hit, so code
// running after a failed parse can tell an oversized upload from a broken form.
type limitedBody struct {
	io.ReadCloser
	exceeded bool
}

func (b *limitedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		b.exceeded = true
	}
	return n, err
}

func (h *Handler) bodyLimit() int64 {
	return h.service.MaxBytes() + formOverhead
}

// limit caps r.Body once. Later calls see the body already limited and keep it.
func (h *Handler) limit(w http.ResponseWriter, r *http.Request) *http.Request {
	if _, ok := r.Context().Value(limitKey{}).(*limitedBody); ok {
		return r
	}
	body := &limitedBody{ReadCloser: http.MaxBytesReader(w, r.Body, h.bodyLimit())}
	r.Body = body
	return r.WithContext(context.WithValue(r.Context(), limitKey{}, body))
}

// LimitUpload caps the body of upload requests before any middleware parses the form.
func (h *Handler) LimitUpload(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == UploadPath {
			r = h.limit(w, r)
		}
		next.ServeHTTP(w, r)
	})
}

// BodyTooLarge reports whether reading r's body stopped at the upload limit.
func BodyTooLarge(r *http.Request) bool {
	body, ok := r.Context().Value(limitKey{}).(*limitedBody)
	return ok && body.exceeded
}

// TooLarge re-renders the upload modal for a body that exceeded the limit.
func (h *Handler) TooLarge(w http.ResponseWriter, r *http.Request) {
	form := h.newForm()
	form.Error = capitalize(ErrFileTooLarge.Error()) + ". Maximum size is " + form.MaxSize + "."
	h.render(w, r, http.StatusRequestEntityTooLarge, form, "")
}
