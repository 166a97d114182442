package material

import (
	"context"
	"fmt"

	"github.com/lecturedesk/lecturedesk/internal/event_bus"
	"github.com/lecturedesk/lecturedesk/internal/querycache"
	log "github.com/sirupsen/logrus"
)

type Service interface {
	List(ctx context.Context) ([]Material, error)
	ForLecture(ctx context.Context, lectureID string) ([]Material, error)
	Find(ctx context.Context, id ID) (Material, error)
	// Upload validates req, sends it and announces the new materials on the event bus.
	Upload(ctx context.Context, req UploadRequest) ([]Material, error)
	Refresh(ctx context.Context)
	// Stash keeps a rejected upload for a retry and returns its token.
	Stash(ctx context.Context, req UploadRequest) string
	Pending(ctx context.Context, token string) (UploadRequest, bool)
	Forget(token string)
	MaxBytes() int64
}

// Scope names the principal whose data a request sees.
type Scope func(ctx context.Context) string

type ServiceImpl struct {
	client   Client
	cache    *querycache.Cache
	scope    Scope
	eventBus *event_bus.EventBus
	pending  *PendingUploads
	maxBytes int64
}

func NewService(client Client, cache *querycache.Cache, scope Scope, eventBus *event_bus.EventBus, pending *PendingUploads, maxBytes int64) *ServiceImpl {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	service := &ServiceImpl{
		client:   client,
		cache:    cache,
		scope:    scope,
		eventBus: eventBus,
		pending:  pending,
		maxBytes: maxBytes,
	}
	event_bus.SubscribeTyped[event_bus.MaterialUploaded](
		eventBus,
		event_bus.MaterialUploadedType,
		func(e event_bus.EventT[event_bus.MaterialUploaded]) error {
			log.Debugf("received material uploaded event: %v", e.Data.Titles)
			service.invalidate(e.Data.Scope)
			return nil
		},
	)
	event_bus.SubscribeTyped[event_bus.LecturesRefreshed](
		eventBus,
		event_bus.LecturesRefreshedType,
		func(e event_bus.EventT[event_bus.LecturesRefreshed]) error {
			dropped := cache.InvalidatePrefix(lecturePrefix(e.Data.Scope))
			log.Debugf("dropped %d lecture material listing(s) after lecture refresh", dropped)
			return nil
		},
	)
	return service
}

func ListKey(scope string) string {
	return fmt.Sprintf("materials/%s/all", scope)
}

func lecturePrefix(scope string) string {
	return fmt.Sprintf("materials/%s/lecture/", scope)
}

func (s *ServiceImpl) MaxBytes() int64 {
	return s.maxBytes
}

func (s *ServiceImpl) List(ctx context.Context) ([]Material, error) {
	return querycache.Fetch(ctx, s.cache, ListKey(s.scope(ctx)), s.client.GetAllMaterials)
}

func (s *ServiceImpl) ForLecture(ctx context.Context, lectureID string) ([]Material, error) {
	key := lecturePrefix(s.scope(ctx)) + lectureID
	return querycache.Fetch(ctx, s.cache, key, func(ctx context.Context) ([]Material, error) {
		return s.client.GetMaterialsByLecture(ctx, lectureID)
	})
}

func (s *ServiceImpl) Find(ctx context.Context, id ID) (Material, error) {
	materials, err := s.List(ctx)
	if err != nil && materials == nil {
		return Material{}, err
	}
	for _, m := range materials {
		if m.ID == id {
			return m, nil
		}
	}
	return Material{}, fmt.Errorf("%w: %s", ErrMaterialNotFound, id)
}

func (s *ServiceImpl) Upload(ctx context.Context, req UploadRequest) ([]Material, error) {
	if err := Validate(req, s.maxBytes); err != nil {
		return nil, err
	}

	created, err := querycache.Mutate(ctx, s.cache, func(ctx context.Context) ([]Material, error) {
		return s.client.UploadFile(ctx, req)
	})
	if err != nil {
		log.Errorf("Upload of %q failed: %v", req.Title, err)
		return nil, err
	}
	log.Infof("Uploaded %q (%s)", req.Title, req.File.Name)

	titles := make([]string, 0, len(created))
	for _, m := range created {
		titles = append(titles, m.DisplayTitle())
	}
	// The upload already succeeded; a failing subscriber only leaves the list stale
	// until it expires or the user refreshes.
	err = s.eventBus.Publish(event_bus.NewEvent(ctx, event_bus.MaterialUploadedType, event_bus.MaterialUploaded{
		Scope:  s.scope(ctx),
		Titles: titles,
	}))
	if err != nil {
		log.Errorf("failed to publish material uploaded event: %v", err)
	}
	return created, nil
}

func (s *ServiceImpl) Refresh(ctx context.Context) {
	s.invalidate(s.scope(ctx))
}

func (s *ServiceImpl) invalidate(scope string) {
	s.cache.Invalidate(ListKey(scope))
	s.cache.InvalidatePrefix(lecturePrefix(scope))
}

func (s *ServiceImpl) Stash(ctx context.Context, req UploadRequest) string {
	return s.pending.Put(s.scope(ctx), req)
}

func (s *ServiceImpl) Pending(ctx context.Context, token string) (UploadRequest, bool) {
	if token == "" {
		return UploadRequest{}, false
	}
	return s.pending.Get(s.scope(ctx), token)
}

func (s *ServiceImpl) Forget(token string) {
	s.pending.Delete(token)
}
