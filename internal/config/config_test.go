package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/lecturedesk/lecturedesk/pkg/calendar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "Asia/Seoul", cfg.Timezone)
	assert.Equal(t, 5*time.Minute, cfg.Cache.StaleTime)
	assert.Equal(t, 10*time.Minute, cfg.Cache.CacheTime)
	assert.Equal(t, 3, cfg.Cache.Retry)
	assert.Equal(t, 1, cfg.Cache.MutationRetry)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, calendar.WeekStart(time.Sunday), cfg.FirstWeekday())
	assert.Equal(t, "Asia/Seoul", cfg.Location().String())
}

func TestLoad_FileThenEnv(t *testing.T) {
	// given
	path := filepath.Join(t.TempDir(), "application.yaml")
	yaml := `
listen: ":9000"
weekstart: monday
api:
  baseurl: https://lectures.example.com/api
  timeout: 3s
cache:
  staletime: 1m
  retry: 5
upload:
  maxbytes: 1048576
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("LECTUREDESK_API_TOKEN", "service-token")
	t.Setenv("LECTUREDESK_CACHE_RETRY", "2")
	t.Setenv("LECTUREDESK_TIMEZONE", "UTC")

	// when
	cfg, err := Load(path)

	// then
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "https://lectures.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.API.Timeout)
	assert.Equal(t, "service-token", cfg.API.Token)
	assert.Equal(t, time.Minute, cfg.Cache.StaleTime)
	assert.Equal(t, 10*time.Minute, cfg.Cache.CacheTime)
	assert.Equal(t, 2, cfg.Cache.Retry)
	assert.Equal(t, int64(1<<20), cfg.Upload.MaxBytes)
	assert.Equal(t, calendar.WeekStart(time.Monday), cfg.FirstWeekday())
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "application.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unclosed"), 0o600))

	_, err := Load(path)

	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Application)
		ok     bool
	}{
		{"defaults", func(a *Application) {}, true},
		{"missing base url", func(a *Application) { a.API.BaseURL = " " }, false},
		{"unknown timezone", func(a *Application) { a.Timezone = "Mars/Olympus" }, false},
		{"short csrf key", func(a *Application) { a.CSRF.Key = "short" }, false},
		{"csrf key of 32 bytes", func(a *Application) { a.CSRF.Key = "0123456789abcdef0123456789abcdef" }, true},
		{"negative retry", func(a *Application) { a.Cache.Retry = -1 }, false},
		{"negative fetch timeout", func(a *Application) { a.Cache.FetchTimeout = -time.Second }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestWriteTimeout(t *testing.T) {
	tests := []struct {
		name  string
		fetch time.Duration
		want  time.Duration
	}{
		{"default fetch timeout", 25 * time.Second, 30 * time.Second},
		{"no fetch timeout", 0, 30 * time.Second},
		{"long fetch timeout", time.Minute, 65 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Cache.FetchTimeout = tt.fetch

			assert.Equal(t, tt.want, cfg.WriteTimeout())
			assert.Greater(t, cfg.WriteTimeout(), cfg.Cache.FetchTimeout)
		})
	}
}
