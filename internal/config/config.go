// Package config loads the immutable process configuration from the
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Acr4niu5/beatsync-local/internal/logging"
	"github.com/Acr4niu5/beatsync-local/pkg/object"
	"github.com/Acr4niu5/beatsync-local/pkg/r2"

	"github.com/gnitoahc/go-dotenv"
)

const defaultMaxUploadBytes = 100 << 20

// Config is read once at startup and passed by value afterwards.
type Config struct {
	Port            int
	Mode            object.Mode
	MediaRoot       string
	MaxUploadBytes  int64
	IndexDriver     string
	IndexSource     string
	ShutdownTimeout time.Duration
	R2              r2.Config
	Log             logging.Config
}

// Load reads envFile when it exists, then the environment.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			dotenv.Load(envFile)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables alone.
func FromEnv() (Config, error) {
	mode, err := object.ParseMode(strings.ToLower(dotenv.Get("STORAGE_PROVIDER", string(object.ModeLocal))))
	if err != nil {
		return Config{}, err
	}

	port, err := strconv.Atoi(dotenv.Get("PORT", "3000"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid PORT: %w", err)
	}
	maxUpload, err := strconv.ParseInt(dotenv.Get("MAX_UPLOAD_BYTES", strconv.Itoa(defaultMaxUploadBytes)), 10, 64)
	if err != nil || maxUpload <= 0 {
		return Config{}, fmt.Errorf("invalid MAX_UPLOAD_BYTES %q", os.Getenv("MAX_UPLOAD_BYTES"))
	}
	shutdown, err := time.ParseDuration(dotenv.Get("SHUTDOWN_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	cfg := Config{
		Port:            port,
		Mode:            mode,
		MediaRoot:       dotenv.Get("MEDIA_ROOT", "./data/media"),
		MaxUploadBytes:  maxUpload,
		IndexDriver:     dotenv.Get("MEDIA_INDEX_DRIVER", ""),
		IndexSource:     dotenv.Get("MEDIA_INDEX_SOURCE", "file:media.db?cache=shared"),
		ShutdownTimeout: shutdown,
		Log: logging.Config{
			Level:  dotenv.Get("LOG_LEVEL", "info"),
			Format: dotenv.Get("LOG_FORMAT", "json"),
		},
	}

	if mode == object.ModeRemote {
		var missing []string
		required := func(key string) string {
			v := os.Getenv(key)
			if v == "" {
				missing = append(missing, key)
			}
			return v
		}
		cfg.R2 = r2.Config{
			AccessKey:        required("CF_ACCESS_KEY"),
			SecretAccessKey:  required("CF_SECRET_ACCESS_KEY"),
			Bucket:           required("CF_BUCKET"),
			AccountID:        dotenv.Get("CF_ACCOUNT_ID", ""),
			EndpointOverride: dotenv.Get("CF_ENDPOINT", ""),
			Region:           dotenv.Get("CF_REGION", "auto"),
			PublicURL:        required("CF_PUBLIC_URL"),
		}
		if cfg.R2.AccountID == "" && cfg.R2.EndpointOverride == "" {
			missing = append(missing, "CF_ACCOUNT_ID or CF_ENDPOINT")
		}
		if len(missing) > 0 {
			return Config{}, errors.New("remote storage requires " + strings.Join(missing, ", "))
		}
	}
	return cfg, nil
}

// Addr is the listen address for Port.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// String implements fmt.Stringer with secrets masked.
func (c Config) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "port=%d mode=%s media_root=%s max_upload_bytes=%d", c.Port, c.Mode, c.MediaRoot, c.MaxUploadBytes)
	if c.IndexDriver != "" {
		fmt.Fprintf(&sb, " index=%s", c.IndexDriver)
	}
	if c.Mode == object.ModeRemote {
		fmt.Fprintf(&sb, " bucket=%s access_key=%s secret=********", c.R2.Bucket, mask(c.R2.AccessKey))
	}
	return sb.String()
}

func mask(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}
