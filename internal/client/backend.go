// Package client talks to a running beatsync server over HTTP.
package client

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

var (
	BaseURL = "http://localhost:3000" // -ldflags -X github.com/Acr4niu5/beatsync-local/internal/client.BaseURL=<default URL>
)

const (
	configDir   = ".beatsync" // This should be in the user's home directory
	baseURLFile = "base_url"  // This should be in the config directory
)

// LoadBaseURL overrides BaseURL with BEATSYNC_URL or, failing that, the
// contents of ~/.beatsync/base_url. A missing file keeps the default.
func LoadBaseURL() error {
	if env := os.Getenv("BEATSYNC_URL"); env != "" {
		return SetBaseURL(env)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(filepath.Join(home, configDir, baseURLFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return SetBaseURL(string(data))
}

// SetBaseURL validates raw and stores it without a trailing slash.
func SetBaseURL(raw string) error {
	// remove all \r or \n
	raw = strings.ReplaceAll(raw, "\r", "")
	raw = strings.ReplaceAll(raw, "\n", "")
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "/")
	if _, err := url.ParseRequestURI(raw); err != nil {
		return fmt.Errorf("invalid base url %q: %w", raw, err)
	}
	BaseURL = raw
	return nil
}

// GetHTTPClient returns an HTTP client that respects proxy environment variables
// (HTTP_PROXY, HTTPS_PROXY, NO_PROXY)
func GetHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
		},
	}
}
