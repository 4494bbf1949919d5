package main

import (
	"fmt"
	"io"
	"log"
	"os/exec"
	"runtime"

	"gopkg.in/yaml.v3"
)

// printYAML writes v as a YAML document.
func printYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return enc.Close()
}

// browserCommand returns the command that opens url in the default browser.
func browserCommand(goos, url string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{url}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	default:
		return "xdg-open", []string{url}
	}
}

// openBrowser starts the browser and always logs the address, so sign-in
// works over SSH where no browser can start.
func openBrowser(url string) error {
	log.Printf("[INFO] open this address to sign in: %s", url)
	name, args := browserCommand(runtime.GOOS, url)
	cmd := exec.Command(name, args...) //nolint:gosec // fixed launcher binary
	if err := cmd.Start(); err != nil {
		log.Printf("[WARN] can't start browser: %v", err)
		return nil
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
