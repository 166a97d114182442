package upstream

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

type contextKey string

const tokenKey contextKey = "upstream-token"

// TokenCookie is the browser cookie whose value is forwarded to the API as a bearer token.
const TokenCookie = "token"

// WithToken attaches the caller's API token to ctx.
func WithToken(ctx context.Context, token string) context.Context {
	token = strings.TrimSpace(token)
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey, token)
}

// TokenFrom returns the caller's API token, if any.
func TokenFrom(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey).(string)
	return token, ok && token != ""
}

// Principal names whose data a request sees, for scoping cache keys. Request tokens
// are hashed so they never appear in keys or logs.
func (c *Client) Principal(ctx context.Context) string {
	if token, ok := TokenFrom(ctx); ok {
		sum := sha256.Sum256([]byte(token))
		return "u-" + hex.EncodeToString(sum[:6])
	}
	if c.serviceTokens != nil {
		return "service"
	}
	return "anon"
}
