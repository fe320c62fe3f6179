// Package local implements object.ObjectStorage on the local filesystem.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/Acr4niu5/beatsync-local/pkg/object"
	"github.com/Acr4niu5/beatsync-local/pkg/sqlite"
)

const tempPattern = ".beatsync-*.tmp"

// Config holds local filesystem backend settings.
type Config struct {
	// Root is the media root every key is resolved under.
	Root string
	// CreateDirs creates Root and intermediate directories on demand.
	CreateDirs bool
	// URLPrefix is prepended to escaped keys by PublicURL. Defaults to "/media/".
	URLPrefix string
	// Index optionally records content types of stored objects. The storage
	// takes ownership and closes it.
	Index *sqlite.Index
}

// Storage implements object.ObjectStorage for a directory tree.
type Storage struct {
	root       string
	createDirs bool
	urlPrefix  string
	index      *sqlite.Index
}

// Init validates the media root.
func (s *Storage) Init(_ context.Context, param any) error {
	cfg, ok := param.(Config)
	if !ok {
		if p, ok := param.(*Config); ok && p != nil {
			cfg = *p
		} else {
			return fmt.Errorf("local: unexpected config type %T", param)
		}
	}
	if cfg.Root == "" {
		return errors.New("local: Root is required")
	}
	if cfg.URLPrefix == "" {
		cfg.URLPrefix = "/media/"
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return fmt.Errorf("local: resolve root %s: %w", cfg.Root, err)
	}
	info, err := os.Stat(root)
	switch {
	case err == nil && !info.IsDir():
		return fmt.Errorf("local: root %s is not a directory", root)
	case os.IsNotExist(err) && cfg.CreateDirs:
		if err := os.MkdirAll(root, 0o755); err != nil {
			return fmt.Errorf("local: create root %s: %w", root, err)
		}
	case err != nil:
		return fmt.Errorf("local: stat root %s: %w", root, err)
	}

	s.root = root
	s.createDirs = cfg.CreateDirs
	s.urlPrefix = cfg.URLPrefix
	s.index = cfg.Index
	return nil
}

// Close releases the index when one is attached.
func (s *Storage) Close(ctx context.Context) error {
	if s.index != nil {
		return s.index.Close(ctx)
	}
	return nil
}

// Mode reports object.ModeLocal.
func (s *Storage) Mode() object.Mode { return object.ModeLocal }

// ResolvePath maps a validated key onto its path under the media root.
func (s *Storage) ResolvePath(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// PublicURL returns the media route URL for key, escaping each segment.
func (s *Storage) PublicURL(key string) string {
	segs := strings.Split(key, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return s.urlPrefix + strings.Join(segs, "/")
}

// Stat returns size and content type without opening the file.
func (s *Storage) Stat(ctx context.Context, key string) (object.Object, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return object.Object{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return object.Object{}, mapError(key, err)
	}
	if info.IsDir() {
		return object.Object{}, object.ErrNotFound
	}
	return s.describe(ctx, key, info)
}

// Get opens the file and, when rng is set, limits the stream to that slice.
func (s *Storage) Get(ctx context.Context, key string, rng *object.Range) (object.Object, io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return object.Object{}, nil, err
	}
	path, err := s.pathFor(key)
	if err != nil {
		return object.Object{}, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return object.Object{}, nil, mapError(key, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return object.Object{}, nil, fmt.Errorf("local: stat %s: %w", key, err)
	}
	if info.IsDir() {
		f.Close()
		return object.Object{}, nil, object.ErrNotFound
	}

	obj, err := s.describe(ctx, key, info)
	if err != nil {
		f.Close()
		return object.Object{}, nil, err
	}
	if rng == nil {
		return obj, f, nil
	}

	start, end, err := clampRange(*rng, info.Size())
	if err != nil {
		f.Close()
		return object.Object{}, nil, err
	}
	return obj, &sectionReadCloser{
		Reader: io.NewSectionReader(f, start, end-start+1),
		Closer: f,
	}, nil
}

// List walks the media root and returns objects whose key has prefix.
func (s *Storage) List(ctx context.Context, prefix string) ([]object.Object, error) {
	var objects []object.Object
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if matched, _ := filepath.Match(tempPattern, d.Name()); matched {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		obj, err := s.describe(ctx, key, info)
		if err != nil {
			return err
		}
		objects = append(objects, obj)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("local: list %q: %w", prefix, err)
	}
	return objects, nil
}

// Put writes content atomically through a temp file and rename.
func (s *Storage) Put(ctx context.Context, key string, r io.Reader, _ int64, contentType string, meta map[string]string) (object.Object, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return object.Object{}, err
	}
	dir := filepath.Dir(path)
	if s.createDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return object.Object{}, fmt.Errorf("local: create dirs for %s: %w", key, err)
		}
	}

	tmp, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return object.Object{}, fmt.Errorf("local: create temp for %s: %w", key, err)
	}
	tmpName := tmp.Name()

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return object.Object{}, fmt.Errorf("local: write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return object.Object{}, fmt.Errorf("local: close temp for %s: %w", key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return object.Object{}, fmt.Errorf("local: rename temp to %s: %w", key, err)
	}

	if s.index != nil {
		if err := s.index.Record(ctx, sqlite.Entry{
			Key:         key,
			ContentType: contentType,
			Size:        size,
			Meta:        meta,
		}); err != nil {
			return object.Object{}, err
		}
	}
	return s.Stat(ctx, key)
}

// Delete removes the file and its index entry.
func (s *Storage) Delete(ctx context.Context, key string) error {
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return mapError(key, err)
	}
	if s.index != nil {
		return s.index.Remove(ctx, key)
	}
	return nil
}

// pathFor resolves key and refuses paths that land outside the root.
func (s *Storage) pathFor(key string) (string, error) {
	if s.root == "" {
		return "", errors.New("local: storage not initialized")
	}
	path := s.ResolvePath(key)
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", object.ErrNotFound
	}
	return path, nil
}

func (s *Storage) describe(ctx context.Context, key string, info fs.FileInfo) (object.Object, error) {
	obj := object.Object{
		Key:          key,
		Size:         info.Size(),
		LastModified: info.ModTime().UTC(),
	}
	if s.index != nil {
		entry, err := s.index.Lookup(ctx, key)
		switch {
		case err == nil:
			obj.ContentType = entry.ContentType
			obj.CustomMeta = entry.Meta
		case !errors.Is(err, object.ErrNotFound):
			return object.Object{}, err
		}
	}
	if obj.ContentType == "" {
		obj.ContentType = mime.TypeByExtension(filepath.Ext(key))
	}
	return obj, nil
}

func clampRange(rng object.Range, size int64) (int64, int64, error) {
	if rng.Start < 0 || rng.Start >= size {
		return 0, 0, fmt.Errorf("local: range start %d outside object of %d bytes", rng.Start, size)
	}
	end := rng.End
	if end < 0 || end >= size {
		end = size - 1
	}
	if end < rng.Start {
		return 0, 0, fmt.Errorf("local: invalid range end %d", rng.End)
	}
	return rng.Start, end, nil
}

func mapError(key string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return object.ErrNotFound
	}
	return fmt.Errorf("local: %s: %w", key, err)
}

type sectionReadCloser struct {
	io.Reader
	io.Closer
}

// Ensure Storage implements ObjectStorage interface.
var _ object.ObjectStorage = (*Storage)(nil)
