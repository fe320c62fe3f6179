package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/Acr4niu5/beatsync-local/pkg/object"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "media.db")
	src := fmt.Sprintf("file:%s?cache=shared&mode=rwc", dbPath)

	x := &Index{}
	if err := x.Init(ctx, Config{Source: src}); err != nil {
		t.Fatalf("init index: %v", err)
	}
	t.Cleanup(func() { _ = x.Close(ctx) })
	return x
}

func TestIndexRecordLookup(t *testing.T) {
	ctx := context.Background()
	x := newTestIndex(t)

	entry := Entry{
		Key:         "room-42/track.ogg",
		ContentType: "audio/ogg",
		Size:        1234,
		Meta:        map[string]string{"room": "42"},
	}
	if err := x.Record(ctx, entry); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, err := x.Lookup(ctx, entry.Key)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got.ContentType != entry.ContentType {
		t.Fatalf("Lookup: expected content type %s got %s", entry.ContentType, got.ContentType)
	}
	if got.Size != entry.Size {
		t.Fatalf("Lookup: expected size %d got %d", entry.Size, got.Size)
	}
	if got.Meta["room"] != "42" {
		t.Fatalf("Lookup: expected meta room=42 got %v", got.Meta)
	}
	if got.CreatedAt.IsZero() {
		t.Fatalf("Lookup: expected created_at to be set")
	}

	// Recording the same key again replaces the row.
	entry.ContentType = "audio/mpeg"
	entry.Size = 99
	if err := x.Record(ctx, entry); err != nil {
		t.Fatalf("Record overwrite: %v", err)
	}
	got, err = x.Lookup(ctx, entry.Key)
	if err != nil {
		t.Fatalf("Lookup after overwrite: %v", err)
	}
	if got.ContentType != "audio/mpeg" || got.Size != 99 {
		t.Fatalf("Lookup after overwrite: got %+v", got)
	}
}

func TestIndexRemove(t *testing.T) {
	ctx := context.Background()
	x := newTestIndex(t)

	if err := x.Record(ctx, Entry{Key: "default/a.mp3", Size: 1}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := x.Remove(ctx, "default/a.mp3"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := x.Lookup(ctx, "default/a.mp3"); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("Lookup after remove: expected ErrNotFound got %v", err)
	}
	if err := x.Remove(ctx, "default/a.mp3"); err != nil {
		t.Fatalf("Remove missing: %v", err)
	}
}

func TestIndexInitValidation(t *testing.T) {
	ctx := context.Background()
	if err := (&Index{}).Init(ctx, Config{}); err == nil {
		t.Fatalf("Init without source: expected error")
	}
	if err := (&Index{}).Init(ctx, Config{Source: "file::memory:", Table: "bad name"}); err == nil {
		t.Fatalf("Init with bad table: expected error")
	}
	if err := (&Index{}).Init(ctx, "nope"); err == nil {
		t.Fatalf("Init with wrong param type: expected error")
	}
	if _, err := (&Index{}).Lookup(ctx, "x"); err == nil {
		t.Fatalf("Lookup before Init: expected error")
	}
}
