package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// ColdStartMode controls whether the request core treats the backend as a
// host that sleeps when idle.
type ColdStartMode string

const (
	ColdStartAuto ColdStartMode = "auto"
	ColdStartOn   ColdStartMode = "on"
	ColdStartOff  ColdStartMode = "off"
)

// Environment variable names.
const (
	EnvAPIURL          = "NEXT_PUBLIC_API_URL"
	EnvSupabaseURL     = "NEXT_PUBLIC_SUPABASE_URL"
	EnvSupabaseAnonKey = "NEXT_PUBLIC_SUPABASE_ANON_KEY"
	EnvColdStart       = "DIGEST_COLD_START"
)

const (
	defaultConfigPath   = "~/.config/digest/config.toml"
	defaultSessionPath  = "~/.config/digest/session.toml"
	defaultLogPath      = "~/.local/state/digest/digest.log"
	defaultAPIURL       = "http://localhost:8000"
	defaultCallbackPort = 54321
)

// placeholderMarkers flag values copied verbatim from an example env file.
var placeholderMarkers = []string{"your-project", "your_supabase", "placeholder", "example.com"}

// File is the on-disk shape of config.toml. Every key is optional.
type File struct {
	APIURL          string `toml:"api_url" json:"api_url,omitempty" jsonschema:"description=Backend base URL; the API lives under /api/v1,example=https://digest-api.onrender.com"`
	SupabaseURL     string `toml:"supabase_url" json:"supabase_url,omitempty" jsonschema:"description=Identity provider project URL"`
	SupabaseAnonKey string `toml:"supabase_anon_key" json:"supabase_anon_key,omitempty" jsonschema:"description=Identity provider public anon key"`
	ColdStart       string `toml:"cold_start" json:"cold_start,omitempty" jsonschema:"enum=auto,enum=on,enum=off,default=auto,description=Retry and extended timeouts for hosts that sleep when idle"`
	CallbackPort    int    `toml:"callback_port" json:"callback_port,omitempty" jsonschema:"minimum=1,maximum=65535,default=54321,description=Loopback port receiving the OAuth redirect"`
	LogFile         string `toml:"log_file" json:"log_file,omitempty" jsonschema:"description=Log file used while the dashboard owns the terminal"`
	SessionFile     string `toml:"session_file" json:"session_file,omitempty" jsonschema:"description=Where the signed-in session is persisted"`
}

// Config is the resolved runtime configuration.
type Config struct {
	APIURL          string
	SupabaseURL     string
	SupabaseAnonKey string
	ColdStart       ColdStartMode
	CallbackPort    int
	LogFile         string
	SessionFile     string

	// Warnings lists missing or placeholder values. They never fail Load.
	Warnings []string
}

// LoadDotEnv loads .env.local and then .env from dir into the process
// environment. Missing files are skipped and variables already set win.
func LoadDotEnv(dir string) error {
	var files []string
	for _, name := range []string{".env.local", ".env"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			files = append(files, path)
		}
	}
	if len(files) == 0 {
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

// Load reads the config file at path (the default location when empty) and
// overlays environment variables. A missing file is not an error.
func Load(path string) (Config, error) {
	file, err := readFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		APIURL:          pick(os.Getenv(EnvAPIURL), file.APIURL, defaultAPIURL),
		SupabaseURL:     pick(os.Getenv(EnvSupabaseURL), file.SupabaseURL, ""),
		SupabaseAnonKey: pick(os.Getenv(EnvSupabaseAnonKey), file.SupabaseAnonKey, ""),
		CallbackPort:    file.CallbackPort,
		LogFile:         mustExpand(pick(file.LogFile, defaultLogPath)),
		SessionFile:     mustExpand(pick(file.SessionFile, defaultSessionPath)),
	}
	if cfg.CallbackPort <= 0 || cfg.CallbackPort > 65535 {
		cfg.CallbackPort = defaultCallbackPort
	}

	mode, err := ParseColdStartMode(pick(os.Getenv(EnvColdStart), file.ColdStart, string(ColdStartAuto)))
	if err != nil {
		cfg.Warnings = append(cfg.Warnings, err.Error())
		mode = ColdStartAuto
	}
	cfg.ColdStart = mode

	cfg.Warnings = append(cfg.Warnings, cfg.check()...)
	return cfg, nil
}

// ParseColdStartMode accepts auto, on and off (case-insensitive).
func ParseColdStartMode(raw string) (ColdStartMode, error) {
	switch ColdStartMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ColdStartAuto:
		return ColdStartAuto, nil
	case ColdStartOn:
		return ColdStartOn, nil
	case ColdStartOff:
		return ColdStartOff, nil
	}
	return ColdStartAuto, fmt.Errorf("unknown cold start mode %q, using auto", raw)
}

// IdentityConfigured reports whether sign-in can work at all.
func (c Config) IdentityConfigured() bool {
	return c.SupabaseURL != "" && c.SupabaseAnonKey != "" &&
		!IsPlaceholder(c.SupabaseURL) && !IsPlaceholder(c.SupabaseAnonKey)
}

// IsPlaceholder reports whether v is empty or looks like a template value.
func IsPlaceholder(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return true
	}
	for _, marker := range placeholderMarkers {
		if strings.Contains(v, marker) {
			return true
		}
	}
	return false
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return defaultConfigPath
}

func (c Config) check() []string {
	var warnings []string
	if c.SupabaseURL == "" {
		warnings = append(warnings, EnvSupabaseURL+" is not set; sign-in is disabled")
	} else if IsPlaceholder(c.SupabaseURL) {
		warnings = append(warnings, EnvSupabaseURL+" looks like a placeholder")
	}
	if c.SupabaseAnonKey == "" {
		warnings = append(warnings, EnvSupabaseAnonKey+" is not set; sign-in is disabled")
	} else if IsPlaceholder(c.SupabaseAnonKey) {
		warnings = append(warnings, EnvSupabaseAnonKey+" looks like a placeholder")
	}
	if IsPlaceholder(c.APIURL) {
		warnings = append(warnings, EnvAPIURL+" looks like a placeholder")
	}
	return warnings
}

func readFile(path string) (File, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return File{}, err
	}

	f, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return File{}, nil
		}
		return File{}, fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return File{}, fmt.Errorf("read config: %w", err)
	}

	var file File
	if err := toml.Unmarshal(data, &file); err != nil {
		return File{}, fmt.Errorf("parse config: %w", err)
	}
	return file, nil
}

// pick returns the first non-blank value, trimmed.
func pick(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return ExpandPath(defaultConfigPath)
	}
	return ExpandPath(path)
}

func mustExpand(path string) string {
	expanded, err := ExpandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

// ExpandPath resolves a leading ~ and returns an absolute path.
func ExpandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
