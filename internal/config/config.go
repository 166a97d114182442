package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/lecturedesk/lecturedesk/pkg/calendar"
	log "github.com/sirupsen/logrus"
)

const envPrefix = "LECTUREDESK_"

type Application struct {
	Listen    string   `koanf:"listen"`
	Timezone  string   `koanf:"timezone"`
	WeekStart string   `koanf:"weekstart"`
	API       API      `koanf:"api"`
	Cache     Cache    `koanf:"cache"`
	Upload    Upload   `koanf:"upload"`
	CSRF      CSRF     `koanf:"csrf"`
	Prefetch  Prefetch `koanf:"prefetch"`
}

type API struct {
	BaseURL string        `koanf:"baseurl"`
	Timeout time.Duration `koanf:"timeout"`
	// Token is a service token used for requests that carry no browser token.
	Token string `koanf:"token"`
	OAuth OAuth  `koanf:"oauth"`
}

type OAuth struct {
	ClientId     string   `koanf:"clientid"`
	ClientSecret string   `koanf:"clientsecret"`
	TokenURL     string   `koanf:"tokenurl"`
	Scopes       []string `koanf:"scopes"`
}

type Cache struct {
	StaleTime     time.Duration `koanf:"staletime"`
	CacheTime     time.Duration `koanf:"cachetime"`
	Retry         int           `koanf:"retry"`
	MutationRetry int           `koanf:"mutationretry"`
	MaxDelay      time.Duration `koanf:"maxdelay"`
	// FetchTimeout bounds one read including all of its retries.
	FetchTimeout time.Duration `koanf:"fetchtimeout"`
}

type Upload struct {
	MaxBytes   int64         `koanf:"maxbytes"`
	PendingTTL time.Duration `koanf:"pendingttl"`
}

type CSRF struct {
	// Key is the 32 byte authentication key. When empty a random key is generated at
	// startup, which invalidates open forms on restart.
	Key    string `koanf:"key"`
	Secure bool   `koanf:"secure"`
}

type Prefetch struct {
	// Cron is a robfig/cron spec. Empty disables the scheduler.
	Cron string `koanf:"cron"`
}

func Defaults() Application {
	return Application{
		Listen:    ":8080",
		Timezone:  "Asia/Seoul",
		WeekStart: "sunday",
		API: API{
			BaseURL: "http://localhost:3000/api",
			Timeout: 10 * time.Second,
		},
		Cache: Cache{
			StaleTime:     5 * time.Minute,
			CacheTime:     10 * time.Minute,
			Retry:         3,
			MutationRetry: 1,
			MaxDelay:      30 * time.Second,
			FetchTimeout:  25 * time.Second,
		},
		Upload: Upload{
			MaxBytes:   50 << 20,
			PendingTTL: 15 * time.Minute,
		},
		Prefetch: Prefetch{
			Cron: "*/5 * * * *",
		},
	}
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Defaults(), "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, envPrefix)), "_", ".")
			if k == "api.oauth.scopes" {
				return k, strings.Fields(strings.ReplaceAll(v, ",", " "))
			}
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}
	if err := app.Validate(); err != nil {
		return Application{}, err
	}
	return app, nil
}

// Validate rejects settings the application cannot start with.
func (a Application) Validate() error {
	if strings.TrimSpace(a.API.BaseURL) == "" {
		return fmt.Errorf("api.baseurl is required")
	}
	if _, err := time.LoadLocation(a.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", a.Timezone, err)
	}
	if a.CSRF.Key != "" && len(a.CSRF.Key) != 32 {
		return fmt.Errorf("csrf.key must be 32 bytes long, got %d", len(a.CSRF.Key))
	}
	if a.Cache.Retry < 0 || a.Cache.MutationRetry < 0 {
		return fmt.Errorf("cache retries must not be negative")
	}
	if a.Cache.FetchTimeout < 0 {
		return fmt.Errorf("cache.fetchtimeout must not be negative")
	}
	return nil
}

// WriteTimeout is the HTTP server's write timeout. It always outlives the fetch
// timeout so a page waiting on retries can still be written.
func (a Application) WriteTimeout() time.Duration {
	const base = 30 * time.Second
	if d := a.Cache.FetchTimeout + 5*time.Second; d > base {
		return d
	}
	return base
}

// Location is the display and date-normalization zone.
func (a Application) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		log.Warnf("Unknown timezone %q, using UTC", a.Timezone)
		return time.UTC
	}
	return loc
}

func (a Application) FirstWeekday() calendar.WeekStart {
	return calendar.ParseWeekStart(a.WeekStart)
}
