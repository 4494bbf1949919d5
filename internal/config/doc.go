// Package config resolves digest's runtime configuration.
//
// # Sources
//
// Values are layered, later sources winning:
//
//  1. Built-in defaults
//  2. ~/.config/digest/config.toml (or the path passed to Load)
//  3. Environment variables, optionally seeded from .env.local and .env by LoadDotEnv
//  4. Command-line flags, applied by cmd/digest after Load returns
//
// # Environment
//
//   - NEXT_PUBLIC_API_URL: backend base URL, default http://localhost:8000.
//     Requests go to {url}/api/v1.
//   - NEXT_PUBLIC_SUPABASE_URL, NEXT_PUBLIC_SUPABASE_ANON_KEY: identity provider project
//   - DIGEST_COLD_START: auto (default), on or off
//
// The variable names match the web dashboard's so one .env file serves both.
//
// # TOML Format
//
//	api_url = "https://digest-api.onrender.com"
//	supabase_url = "https://abcd.supabase.co"
//	supabase_anon_key = "eyJ..."
//	cold_start = "auto"
//	callback_port = 54321
//	log_file = "~/.local/state/digest/digest.log"
//	session_file = "~/.config/digest/session.toml"
//
// Tilde expansion applies to log_file and session_file.
//
// # Warnings
//
// Missing identity settings and values that look copied from an example file
// (containing "your-project", "placeholder", "example.com" and similar) are
// reported in Config.Warnings. They never make Load fail: the dashboard starts
// and explains why sign-in is unavailable. Load fails only when the file exists
// but cannot be read or parsed.
package config
