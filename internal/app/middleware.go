package app

import (
	"crypto/rand"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
	"github.com/lecturedesk/lecturedesk/internal/config"
	"github.com/lecturedesk/lecturedesk/internal/rest"
	"github.com/lecturedesk/lecturedesk/internal/upstream"
	"github.com/lecturedesk/lecturedesk/pkg/material"
	log "github.com/sirupsen/logrus"
)

const RequestIDHeader = "X-Request-Id"

// SetupMiddleware wires all HTTP middlewares for the application.
func SetupMiddleware(r *mux.Router, deps *Dependencies, cfg config.Application) error {
	r.Use(requestID)
	r.Use(accessLog)
	r.Use(forwardToken)
	r.Use(deps.MaterialHandler.LimitUpload)

	protect, err := csrfProtection(cfg.CSRF, deps.MaterialHandler)
	if err != nil {
		return err
	}
	r.Use(protect)
	return nil
}

// requestID reuses the caller's X-Request-Id or generates one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := req.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			req.Header.Set(RequestIDHeader, id)
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, req)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req)

		entry := log.WithFields(log.Fields{
			"request_id": req.Header.Get(RequestIDHeader),
			"method":     req.Method,
			"path":       req.URL.Path,
			"status":     rec.status,
			"duration":   time.Since(started).String(),
		})
		if rec.status >= 500 {
			entry.Warn("request failed")
		} else {
			entry.Debug("request done")
		}
	})
}

// forwardToken puts the browser's API token (cookie, else Authorization header) into
// the request context for the upstream client.
func forwardToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		token := ""
		if c, err := req.Cookie(upstream.TokenCookie); err == nil {
			token = c.Value
		} else if h := req.Header.Get("Authorization"); len(h) > 7 && h[:7] == "Bearer " {
			token = h[7:]
		}
		ctx := upstream.WithToken(req.Context(), token)
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

// csrfProtection guards every unsafe method. An upload whose body hit the size limit
// never yields a token, so it is answered with the upload form's 413 instead of 403.
func csrfProtection(cfg config.CSRF, uploads *material.Handler) (mux.MiddlewareFunc, error) {
	key := []byte(cfg.Key)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
		log.Warn("csrf.key is not set, generated a random key; open forms will not survive a restart")
	}

	protect := csrf.Protect(key,
		csrf.Secure(cfg.Secure),
		csrf.Path("/"),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if material.BodyTooLarge(req) {
				log.Debugf("Rejected oversized upload on %s", req.URL.Path)
				uploads.TooLarge(w, req)
				return
			}
			log.Warnf("CSRF check failed for %s %s: %v", req.Method, req.URL.Path, csrf.FailureReason(req))
			rest.WriteError(w, http.StatusForbidden, "Forbidden", "the form expired, reload the page and try again")
		})),
	)
	return func(next http.Handler) http.Handler {
		guarded := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if !cfg.Secure {
				req = csrf.PlaintextHTTPRequest(req)
			}
			guarded.ServeHTTP(w, req)
		})
	}, nil
}
