package main

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/digest/internal/api"
	"github.com/five82/digest/internal/config"
	"github.com/five82/digest/internal/identity"
	"github.com/five82/digest/internal/session"
)

func TestBrowserCommand(t *testing.T) {
	const u = "https://auth.example/authorize"
	cases := map[string]string{"darwin": "open", "windows": "rundll32", "linux": "xdg-open", "freebsd": "xdg-open"}
	for goos, want := range cases {
		name, args := browserCommand(goos, u)
		assert.Equal(t, want, name, goos)
		assert.Equal(t, u, args[len(args)-1], goos)
	}
}

func TestPrintYAML(t *testing.T) {
	var buf bytes.Buffer
	err := printYAML(&buf, &api.Subscription{ID: "sub-1", Keywords: []string{"TSMC"}, IsActive: true})
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "id: sub-1")
	assert.Contains(t, out, "- TSMC")
}

func TestWhoAmI(t *testing.T) {
	rec := whoami(session.State{
		Status: session.StatusAuthenticated,
		User:   &identity.User{ID: "u1", Email: "alice@example.com"},
	})
	assert.Equal(t, "u1", rec.ID)
	assert.Equal(t, "alice@example.com", rec.Email)
	assert.True(t, rec.ExpiresAt.Equal(time.Time{}))

	var buf bytes.Buffer
	require.NoError(t, printYAML(&buf, rec))
	assert.NotContains(t, buf.String(), "session_expires_at")
}

func TestParseCommands(t *testing.T) {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	parser.SubcommandsOptional = true
	parser.CommandHandler = func(flags.Commander, []string) error { return nil }

	_, err := parser.ParseArgs([]string{"--api-url", "http://localhost:9000", "history", "--limit", "5"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000", opts.APIURL)
	assert.Equal(t, 5, opts.History.Limit)
	require.NotNil(t, parser.Active)
	assert.Equal(t, "history", parser.Active.Name)

	_, err = parser.ParseArgs([]string{"quick-setup", "--platform", "pager"})
	require.Error(t, err)
}

func TestSubDeleteNeedsConfirmation(t *testing.T) {
	cmd := &SubDeleteCmd{}
	err := cmd.Execute(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
}

func TestSecretsOfIncludesStoredSessionTokens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.toml")
	require.NoError(t, identity.NewFileStore(path).Save(&identity.Session{
		AccessToken:  "access-abc",
		RefreshToken: "refresh-xyz",
		User:         identity.User{ID: "u1"},
	}))

	cfg := config.Config{SupabaseAnonKey: "anon-key-123", SessionFile: path}
	got := secretsOf(cfg)
	assert.ElementsMatch(t, []string{"anon-key-123", "access-abc", "refresh-xyz"}, got)

	cfg.SessionFile = filepath.Join(t.TempDir(), "missing.toml")
	assert.Equal(t, []string{"anon-key-123"}, secretsOf(cfg))
}
