// Package object contains the object storage contract shared by the local
// filesystem and remote (R2) backends.
package object

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Mode identifies which kind of backend is bound for the process.
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
)

// ParseMode maps a configuration value onto a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeLocal, ModeRemote:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown storage mode %q (want %q or %q)", s, ModeLocal, ModeRemote)
}

// Object holds metadata about a stored item.
type Object struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	CustomMeta   map[string]string
}

// Range represents a byte range [Start, End] inclusive.
// If End < 0 the range is open-ended.
type Range struct {
	Start int64
	End   int64
}

// Length reports the number of bytes covered by a closed range.
func (r Range) Length() int64 {
	return r.End - r.Start + 1
}

// ErrNotFound is returned by implementations when key has no object.
var ErrNotFound = errors.New("object not found")

// Lifecycle defines init/teardown behavior.
type Lifecycle interface {
	Init(ctx context.Context, param any) error
	Close(ctx context.Context) error
}

// Reader exposes read-related operations.
type Reader interface {
	// Get returns object metadata and a stream the caller must close.
	// A non-nil rng limits the stream to that slice of the object.
	Get(ctx context.Context, key string, rng *Range) (Object, io.ReadCloser, error)
	// Stat returns metadata without streaming the body.
	Stat(ctx context.Context, key string) (Object, error)
	// List returns the objects whose key starts with prefix.
	List(ctx context.Context, prefix string) ([]Object, error)
}

// Writer exposes write-related operations.
type Writer interface {
	// Put uploads content and returns stored metadata.
	Put(ctx context.Context, key string, r io.Reader, sizeHint int64, contentType string, meta map[string]string) (Object, error)
}

// Deleter exposes delete behavior.
type Deleter interface {
	Delete(ctx context.Context, key string) error
}

// Locator describes where a backend lives and how clients reach its objects.
type Locator interface {
	// Mode reports the backend kind. It never changes after Init.
	Mode() Mode
	// PublicURL returns the URL a client can fetch key from. Relative URLs
	// are resolved against the serving origin by the caller.
	PublicURL(key string) string
}

// ObjectStorage aggregates the full contract for object backends.
type ObjectStorage interface {
	Lifecycle
	Reader
	Writer
	Deleter
	Locator
}
