package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvAPIURL, EnvSupabaseURL, EnvSupabaseAnonKey, EnvColdStart} {
		t.Setenv(key, "")
	}
}

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	clearEnv(t)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != defaultAPIURL {
		t.Fatalf("APIURL = %q, want %q", cfg.APIURL, defaultAPIURL)
	}
	if cfg.ColdStart != ColdStartAuto {
		t.Fatalf("ColdStart = %q, want auto", cfg.ColdStart)
	}
	if cfg.CallbackPort != defaultCallbackPort {
		t.Fatalf("CallbackPort = %d, want %d", cfg.CallbackPort, defaultCallbackPort)
	}
	wantLog, _ := ExpandPath(defaultLogPath)
	if cfg.LogFile != wantLog {
		t.Fatalf("LogFile = %q, want %q", cfg.LogFile, wantLog)
	}
	if !strings.HasPrefix(cfg.SessionFile, home) {
		t.Fatalf("SessionFile = %q, want it under HOME %q", cfg.SessionFile, home)
	}
	if cfg.IdentityConfigured() {
		t.Fatalf("IdentityConfigured = true with no identity settings")
	}
	if len(cfg.Warnings) != 2 {
		t.Fatalf("Warnings = %v, want two missing-identity warnings", cfg.Warnings)
	}
}

func TestLoad_ParsesFileAndEnvWins(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	clearEnv(t)
	t.Setenv(EnvAPIURL, "https://digest-api.onrender.com")

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
api_url = "http://ignored:8000"
supabase_url = "  https://abcd.supabase.co  "
supabase_anon_key = "anon-key"
cold_start = "OFF"
callback_port = 40000
session_file = "~/sessions/digest.toml"
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != "https://digest-api.onrender.com" {
		t.Fatalf("APIURL = %q, want env value", cfg.APIURL)
	}
	if cfg.SupabaseURL != "https://abcd.supabase.co" {
		t.Fatalf("SupabaseURL = %q, want trimmed file value", cfg.SupabaseURL)
	}
	if cfg.ColdStart != ColdStartOff {
		t.Fatalf("ColdStart = %q, want off", cfg.ColdStart)
	}
	if cfg.CallbackPort != 40000 {
		t.Fatalf("CallbackPort = %d, want 40000", cfg.CallbackPort)
	}
	if cfg.SessionFile != filepath.Join(home, "sessions", "digest.toml") {
		t.Fatalf("SessionFile = %q, want it expanded under HOME", cfg.SessionFile)
	}
	if !cfg.IdentityConfigured() {
		t.Fatalf("IdentityConfigured = false, want true")
	}
	if len(cfg.Warnings) != 0 {
		t.Fatalf("Warnings = %v, want none", cfg.Warnings)
	}
}

func TestLoad_PlaceholdersWarnButDoNotFail(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearEnv(t)
	t.Setenv(EnvSupabaseURL, "https://your-project.supabase.co")
	t.Setenv(EnvSupabaseAnonKey, "your_supabase_anon_key")
	t.Setenv(EnvColdStart, "sometimes")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.IdentityConfigured() {
		t.Fatalf("IdentityConfigured = true for placeholder values")
	}
	if cfg.ColdStart != ColdStartAuto {
		t.Fatalf("ColdStart = %q, want auto fallback", cfg.ColdStart)
	}
	if len(cfg.Warnings) != 3 {
		t.Fatalf("Warnings = %v, want 3 entries", cfg.Warnings)
	}
}

func TestLoad_InvalidTOMLFails(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`api_url = [`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatalf("Load returned nil error, want parse error")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("Load error = %q, want it to mention parse config", err.Error())
	}
}

func TestLoadDotEnv_LocalWinsAndExistingEnvIsKept(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env.local"), []byte("NEXT_PUBLIC_API_URL=http://local:8000\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("NEXT_PUBLIC_API_URL=http://shared:8000\nNEXT_PUBLIC_SUPABASE_URL=https://abcd.supabase.co\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	t.Setenv(EnvSupabaseAnonKey, "from-shell")
	// godotenv fills only unset variables; Setenv registers the restore.
	t.Setenv(EnvAPIURL, "")
	t.Setenv(EnvSupabaseURL, "")
	_ = os.Unsetenv(EnvAPIURL)
	_ = os.Unsetenv(EnvSupabaseURL)

	if err := LoadDotEnv(dir); err != nil {
		t.Fatalf("LoadDotEnv returned error: %v", err)
	}
	if got := os.Getenv(EnvAPIURL); got != "http://local:8000" {
		t.Fatalf("%s = %q, want .env.local value", EnvAPIURL, got)
	}
	if got := os.Getenv(EnvSupabaseURL); got != "https://abcd.supabase.co" {
		t.Fatalf("%s = %q, want .env value", EnvSupabaseURL, got)
	}
	if got := os.Getenv(EnvSupabaseAnonKey); got != "from-shell" {
		t.Fatalf("%s = %q, want shell value kept", EnvSupabaseAnonKey, got)
	}
}

func TestLoadDotEnv_NoFilesIsNotAnError(t *testing.T) {
	if err := LoadDotEnv(t.TempDir()); err != nil {
		t.Fatalf("LoadDotEnv returned error: %v", err)
	}
}

func TestParseColdStartMode(t *testing.T) {
	tests := []struct {
		in      string
		want    ColdStartMode
		wantErr bool
	}{
		{"", ColdStartAuto, false},
		{"auto", ColdStartAuto, false},
		{" On ", ColdStartOn, false},
		{"off", ColdStartOff, false},
		{"maybe", ColdStartAuto, true},
	}
	for _, tt := range tests {
		got, err := ParseColdStartMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseColdStartMode(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseColdStartMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := ExpandPath("~/a/b")
	if err != nil {
		t.Fatalf("ExpandPath returned error: %v", err)
	}
	if want := filepath.Join(home, "a/b"); got != want {
		t.Fatalf("ExpandPath = %q, want %q", got, want)
	}
	if _, err := ExpandPath("   "); err == nil {
		t.Fatalf("ExpandPath returned nil error for blank path")
	}
}
