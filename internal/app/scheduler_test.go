package app

import (
	"context"
	"testing"
	"time"

	"github.com/lecturedesk/lecturedesk/internal/config"
	"github.com/lecturedesk/lecturedesk/pkg/material"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RunOnce_PrefetchesWithServiceIdentity(t *testing.T) {
	// given
	a := setupApp(t, func(cfg *config.Application) {
		cfg.API.Token = "service-token"
	})
	token := a.deps.PendingUploads.Put("anon", material.UploadRequest{Title: "old"})
	a.clock.Advance(time.Hour)
	s, err := NewScheduler(a.deps, "@every 1h", time.UTC)
	require.NoError(t, err)

	// when
	s.RunOnce(context.Background())

	// then
	assert.Equal(t, 1, a.api.RequestCount("GET /lectures/2024/06"))
	assert.Equal(t, 1, a.api.RequestCount("GET /materials"))
	assert.Equal(t, []string{"service-token", "service-token"}, a.api.Tokens())
	_, ok := a.deps.PendingUploads.Get("anon", token)
	assert.False(t, ok)
	assert.Equal(t, 0, a.deps.PendingUploads.Len())
}

func TestScheduler_RunOnce_SkipsPrefetchWithoutServiceIdentity(t *testing.T) {
	a := setupApp(t, nil)
	s, err := NewScheduler(a.deps, "", time.UTC)
	require.NoError(t, err)

	s.RunOnce(context.Background())
	s.Start()
	s.Stop(context.Background())

	assert.Empty(t, a.api.Requests())
}

func TestNewScheduler_RejectsBadSpec(t *testing.T) {
	a := setupApp(t, nil)

	_, err := NewScheduler(a.deps, "every tuesday", time.UTC)

	assert.Error(t, err)
}
