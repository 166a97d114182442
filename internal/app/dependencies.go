package app

import (
	"net/http"
	"time"

	"github.com/lecturedesk/lecturedesk/internal/config"
	"github.com/lecturedesk/lecturedesk/internal/event_bus"
	"github.com/lecturedesk/lecturedesk/internal/querycache"
	"github.com/lecturedesk/lecturedesk/internal/upstream"
	"github.com/lecturedesk/lecturedesk/internal/utils"
	"github.com/lecturedesk/lecturedesk/internal/view"
	"github.com/lecturedesk/lecturedesk/pkg/lecture"
	"github.com/lecturedesk/lecturedesk/pkg/material"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Clock    utils.Clock
	EventBus *event_bus.EventBus
	Cache    *querycache.Cache
	API      *upstream.Client
	Renderer *view.Renderer

	LectureClient  lecture.Client
	LectureService *lecture.ServiceImpl
	LectureHandler *lecture.Handler

	PendingUploads  *material.PendingUploads
	MaterialClient  material.Client
	MaterialService *material.ServiceImpl
	MaterialHandler *material.Handler
}

// CachePolicy turns the cache settings into a query cache policy. 4xx answers are
// never retried.
func CachePolicy(cfg config.Cache) querycache.Policy {
	policy := querycache.DefaultPolicy()
	policy.StaleTime = cfg.StaleTime
	policy.CacheTime = cfg.CacheTime
	policy.Retry = cfg.Retry
	policy.MutationRetry = cfg.MutationRetry
	policy.FetchTimeout = cfg.FetchTimeout
	if cfg.MaxDelay > 0 {
		policy.RetryDelay = querycache.ExponentialDelay(time.Second, cfg.MaxDelay)
	}
	policy.RetryIf = upstream.IsRetryable
	return policy
}

// BuildDependencies initializes and wires all application services and handlers.
// httpClient may be nil.
func BuildDependencies(cfg config.Application, clock utils.Clock, httpClient *http.Client) (*Dependencies, error) {
	deps := &Dependencies{}
	loc := cfg.Location()

	deps.Clock = clock
	deps.EventBus = event_bus.NewEventBus()
	deps.Cache = querycache.New(CachePolicy(cfg.Cache), clock)
	deps.API = upstream.NewClient(upstream.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Token:   cfg.API.Token,
		OAuth: upstream.OAuthConfig{
			ClientID:     cfg.API.OAuth.ClientId,
			ClientSecret: cfg.API.OAuth.ClientSecret,
			TokenURL:     cfg.API.OAuth.TokenURL,
			Scopes:       cfg.API.OAuth.Scopes,
		},
	}, httpClient)

	renderer, err := view.NewRenderer(loc)
	if err != nil {
		return nil, err
	}
	deps.Renderer = renderer

	deps.PendingUploads = material.NewPendingUploads(cfg.Upload.PendingTTL, clock)
	deps.MaterialClient = material.NewClient(deps.API, loc)
	deps.MaterialService = material.NewService(deps.MaterialClient, deps.Cache, deps.API.Principal, deps.EventBus,
		deps.PendingUploads, cfg.Upload.MaxBytes)
	deps.MaterialHandler = material.NewHandler(deps.MaterialService, deps.Renderer)

	deps.LectureClient = lecture.NewClient(deps.API)
	deps.LectureService = lecture.NewService(deps.LectureClient, deps.Cache, deps.API.Principal, deps.EventBus, clock,
		lecture.Options{Location: loc, WeekStart: cfg.FirstWeekday()})
	deps.LectureHandler = lecture.NewHandler(deps.LectureService, deps.MaterialService, deps.Renderer)

	return deps, nil
}
