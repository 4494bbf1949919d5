package api

import (
	"context"
	"sync"
)

// credentials holds the bearer token shared by every request of one Client.
type credentials struct {
	mu    sync.RWMutex
	token string
}

type tokenOverrideKey struct{}

type tokenOverride struct {
	token string
}

// SetAuthToken makes every subsequent request carry "Authorization: Bearer token".
func (c *Client) SetAuthToken(token string) {
	c.creds.mu.Lock()
	c.creds.token = token
	c.creds.mu.Unlock()
}

// ClearAuthToken removes the bearer token from subsequent requests.
func (c *Client) ClearAuthToken() {
	c.SetAuthToken("")
}

// AuthToken returns the token requests are currently dispatched with.
func (c *Client) AuthToken() string {
	c.creds.mu.RLock()
	defer c.creds.mu.RUnlock()
	return c.creds.token
}

// WithToken binds token to requests issued with ctx, taking precedence over SetAuthToken.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenOverrideKey{}, tokenOverride{token: token})
}

// WithoutToken sends requests issued with ctx unauthenticated.
func WithoutToken(ctx context.Context) context.Context {
	return WithToken(ctx, "")
}

func (c *Client) tokenFor(ctx context.Context) string {
	if override, ok := ctx.Value(tokenOverrideKey{}).(tokenOverride); ok {
		return override.token
	}
	return c.AuthToken()
}
