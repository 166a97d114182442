package material

import (
	"context"
	"net/url"
	"time"

	"github.com/lecturedesk/lecturedesk/internal/upstream"
	log "github.com/sirupsen/logrus"
)

// API is the part of the upstream client the material endpoints need.
type API interface {
	Get(ctx context.Context, path string) ([]byte, error)
	PostMultipart(ctx context.Context, path string, fields []upstream.FormField, files []upstream.FormFile) ([]byte, error)
}

type Client interface {
	GetAllMaterials(ctx context.Context) ([]Material, error)                         // GET /materials
	GetMaterialsByLecture(ctx context.Context, lectureID string) ([]Material, error) // GET /materials/lecture/{id}
	UploadFile(ctx context.Context, req UploadRequest) ([]Material, error)           // POST /materials/upload
}

// ClientImpl talks to the material endpoints. Every material it returns has its
// timestamps converted to the display zone.
type ClientImpl struct {
	api API
	loc *time.Location
}

func NewClient(api API, loc *time.Location) *ClientImpl {
	if loc == nil {
		loc = time.UTC
	}
	return &ClientImpl{api: api, loc: loc}
}

func (c *ClientImpl) GetAllMaterials(ctx context.Context) ([]Material, error) {
	return c.list(ctx, "/materials")
}

func (c *ClientImpl) GetMaterialsByLecture(ctx context.Context, lectureID string) ([]Material, error) {
	return c.list(ctx, "/materials/lecture/"+url.PathEscape(lectureID))
}

func (c *ClientImpl) list(ctx context.Context, path string) ([]Material, error) {
	body, err := c.api.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	materials, err := upstream.DecodeList[Material](body)
	if err != nil {
		log.Errorf("Failed to decode materials from %s: %v", path, err)
		return nil, err
	}
	return c.localize(materials), nil
}

func (c *ClientImpl) UploadFile(ctx context.Context, req UploadRequest) ([]Material, error) {
	fields := []upstream.FormField{
		{Name: "title", Value: req.Title},
		{Name: "content", Value: req.Content},
	}
	var files []upstream.FormFile
	if req.File != nil {
		files = append(files, upstream.FormFile{
			Field:       "files",
			Name:        req.File.Name,
			ContentType: req.File.ContentType,
			Data:        req.File.Data,
		})
	}

	body, err := c.api.PostMultipart(ctx, "/materials/upload", fields, files)
	if err != nil {
		return nil, err
	}
	created, err := upstream.DecodeMany[Material](body)
	if err != nil {
		// The upload went through; only the echo is unreadable.
		log.Warnf("Upload of %q succeeded but the response could not be decoded: %v", req.Title, err)
		return []Material{}, nil
	}
	return c.localize(created), nil
}

func (c *ClientImpl) localize(materials []Material) []Material {
	for i := range materials {
		materials[i] = materials[i].Localized(c.loc)
	}
	return materials
}
