package material

import (
	"context"
	"sync"
)

type ClientStub struct {
	mu        sync.RWMutex
	materials []Material
	byLecture map[string][]Material
	uploads   []UploadRequest
	listCalls int
	listErr   error
	uploadErr error
}

func NewClientStub() *ClientStub {
	return &ClientStub{
		byLecture: make(map[string][]Material),
	}
}

func (c *ClientStub) GetAllMaterials(ctx context.Context) ([]Material, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.listCalls++
	if c.listErr != nil {
		return nil, c.listErr
	}
	result := make([]Material, len(c.materials))
	copy(result, c.materials)
	return result, nil
}

func (c *ClientStub) GetMaterialsByLecture(ctx context.Context, lectureID string) ([]Material, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.listErr != nil {
		return nil, c.listErr
	}
	result := make([]Material, len(c.byLecture[lectureID]))
	copy(result, c.byLecture[lectureID])
	return result, nil
}

func (c *ClientStub) UploadFile(ctx context.Context, req UploadRequest) ([]Material, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.uploads = append(c.uploads, req)
	if c.uploadErr != nil {
		return nil, c.uploadErr
	}
	created := Material{
		ID:      ID(req.Title),
		Title:   req.Title,
		Content: req.Content,
	}
	if req.File != nil {
		created.Name = req.File.Name
		created.Size = SizeOf(int64(len(req.File.Data)))
	}
	c.materials = append(c.materials, created)
	return []Material{created}, nil
}

func (c *ClientStub) SetMaterials(materials ...Material) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.materials = materials
}

func (c *ClientStub) SetLectureMaterials(lectureID string, materials ...Material) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byLecture[lectureID] = materials
}

func (c *ClientStub) SetListError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listErr = err
}

func (c *ClientStub) SetUploadError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uploadErr = err
}

func (c *ClientStub) Uploads() []UploadRequest {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]UploadRequest, len(c.uploads))
	copy(result, c.uploads)
	return result
}

func (c *ClientStub) ListCalls() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.listCalls
}

func (c *ClientStub) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.materials = nil
	c.byLecture = make(map[string][]Material)
	c.uploads = nil
	c.listCalls = 0
	c.listErr = nil
	c.uploadErr = nil
}
