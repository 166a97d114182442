// Package upstream is the HTTP transport to the lecture API: base URL, timeouts,
// bearer authentication, status handling and the response envelope.
package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	DefaultTimeout  = 10 * time.Second
	maxResponseSize = 16 << 20
)

type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

type Config struct {
	BaseURL string
	Timeout time.Duration
	// Token is a static service token used when the browser did not send one.
	Token string
	// OAuth enables the client-credentials flow when Token is empty.
	OAuth OAuthConfig
}

type Client struct {
	baseURL       string
	timeout       time.Duration
	base          *http.Client
	serviceTokens oauth2.TokenSource
}

// NewClient builds the API client. base may be nil, in which case a default
// http.Client is used.
func NewClient(cfg Config, base *http.Client) *Client {
	if base == nil {
		base = &http.Client{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: timeout,
		base:    base,
	}

	switch {
	case cfg.Token != "":
		c.serviceTokens = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"})
	case cfg.OAuth.ClientID != "" && cfg.OAuth.TokenURL != "":
		cc := clientcredentials.Config{
			ClientID:     cfg.OAuth.ClientID,
			ClientSecret: cfg.OAuth.ClientSecret,
			TokenURL:     cfg.OAuth.TokenURL,
			Scopes:       cfg.OAuth.Scopes,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		c.serviceTokens = cc.TokenSource(ctx)
		log.Infof("API client uses OAuth2 client credentials from %s", cfg.OAuth.TokenURL)
	}
	return c
}

// HasServiceIdentity reports whether the client can call the API without a browser token.
func (c *Client) HasServiceIdentity() bool {
	return c.serviceTokens != nil
}

// httpClient returns a client that attaches the right bearer token for ctx: the
// browser's token first, then the service identity, else none.
func (c *Client) httpClient(ctx context.Context) *http.Client {
	var src oauth2.TokenSource
	if token, ok := TokenFrom(ctx); ok {
		src = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	} else if c.serviceTokens != nil {
		src = c.serviceTokens
	}
	if src == nil {
		return c.base
	}
	return oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, c.base), src)
}

// Get performs GET path and returns the raw body of a 2xx answer.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil, "")
}

// FormFile is one file part of a multipart upload.
type FormFile struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

// FormField is one plain part of a multipart upload. A slice keeps the part order stable.
type FormField struct {
	Name  string
	Value string
}

// PostMultipart sends a multipart/form-data POST. The body is built in memory so the
// call can be repeated by a retry.
func (c *Client) PostMultipart(ctx context.Context, path string, fields []FormField, files []FormFile) ([]byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(f.Field), escapeQuotes(f.Name)))
		contentType := f.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("failed to create file part: %w", err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, fmt.Errorf("failed to write file part: %w", err)
		}
	}
	for _, f := range fields {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", f.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, buf.Bytes(), w.FormDataContentType())
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, contentType string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		log.Errorf("Failed to create request: %v", err)
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	started := time.Now()
	resp, err := c.httpClient(ctx).Do(req)
	if err != nil {
		log.Errorf("API request %s %s failed: %v", method, path, err)
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		log.Errorf("Failed to read response of %s %s: %v", method, path, err)
		return nil, err
	}
	log.WithFields(log.Fields{
		"method":   method,
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(started).String(),
	}).Debug("API request done")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(raw)}
		log.Error(err)
		return nil, err
	}
	return raw, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
