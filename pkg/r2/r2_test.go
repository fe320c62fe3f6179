package r2

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/Acr4niu5/beatsync-local/pkg/object"

	"github.com/aws/smithy-go"
	"github.com/gnitoahc/go-dotenv"
)

func TestR2(t *testing.T) {
	ctx := context.Background()
	dotenv.Load("../../.env")

	accountID := os.Getenv("CF_ACCOUNT_ID")
	accessKey := os.Getenv("CF_ACCESS_KEY")
	secretKey := os.Getenv("CF_SECRET_ACCESS_KEY")
	bucket := os.Getenv("CF_BUCKET")

	if accountID == "" || accessKey == "" || secretKey == "" || bucket == "" {
		t.Skip("CF_* environment variables not set; skipping R2 integration test")
	}

	storage := Storage{}
	if err := storage.Init(ctx, Config{
		AccountID:       accountID,
		AccessKey:       accessKey,
		SecretAccessKey: secretKey,
		Bucket:          bucket,
		PublicURL:       os.Getenv("CF_PUBLIC_URL"),
	}); err != nil {
		t.Fatalf("init storage: %v", err)
	}
	t.Cleanup(func() { _ = storage.Close(ctx) })

	prefix := fmt.Sprintf("beatsync-test-%d/", time.Now().UnixNano())
	key := prefix + "clip.mp3"
	content := []byte("0123456789abcdefghij")

	if _, err := storage.Put(ctx, key, bytes.NewReader(content), int64(len(content)), "audio/mpeg", nil); err != nil {
		t.Fatalf("Put: %v", err)
	}
	t.Cleanup(func() { _ = storage.Delete(ctx, key) })

	statObj, err := storage.Stat(ctx, key)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if statObj.Size != int64(len(content)) || statObj.ContentType != "audio/mpeg" {
		t.Fatalf("Stat: got size %d type %q", statObj.Size, statObj.ContentType)
	}

	gotObj, rc, err := storage.Get(ctx, key, &object.Range{Start: 10, End: 14})
	if err != nil {
		t.Fatalf("Get range: %v", err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		t.Fatalf("Get range read: %v", err)
	}
	if string(data) != "abcde" {
		t.Fatalf("Get range: expected %q got %q", "abcde", data)
	}
	if gotObj.Size != int64(len(content)) {
		t.Fatalf("Get range: expected total size %d got %d", len(content), gotObj.Size)
	}

	objs, err := storage.List(ctx, prefix)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(objs) != 1 || objs[0].Key != key {
		t.Fatalf("List: expected [%s] got %+v", key, objs)
	}

	if err := storage.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := storage.Stat(ctx, key); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("Stat after delete: expected ErrNotFound, got %v", err)
	}
}

func TestRangeHeader(t *testing.T) {
	if got := rangeHeader(object.Range{Start: 0, End: 1023}); got != "bytes=0-1023" {
		t.Fatalf("closed range: got %q", got)
	}
	if got := rangeHeader(object.Range{Start: 500, End: -1}); got != "bytes=500-" {
		t.Fatalf("open range: got %q", got)
	}
}

func TestTotalFromContentRange(t *testing.T) {
	tests := []struct {
		in    string
		total int64
		ok    bool
	}{
		{"bytes 0-1023/5000000", 5000000, true},
		{"bytes */1000", 1000, true},
		{"bytes 0-9/*", 0, false},
		{"", 0, false},
		{"bytes 0-9/abc", 0, false},
	}
	for _, tt := range tests {
		total, ok := totalFromContentRange(tt.in)
		if total != tt.total || ok != tt.ok {
			t.Fatalf("totalFromContentRange(%q) = %d, %v; want %d, %v", tt.in, total, ok, tt.total, tt.ok)
		}
	}
}

func TestMapError(t *testing.T) {
	if mapError(nil) != nil {
		t.Fatalf("mapError(nil) should be nil")
	}
	if err := mapError(&smithy.GenericAPIError{Code: "NotFound"}); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("NotFound: expected ErrNotFound got %v", err)
	}
	boom := errors.New("boom")
	if err := mapError(boom); !errors.Is(err, boom) || errors.Is(err, object.ErrNotFound) {
		t.Fatalf("other error: got %v", err)
	}
}

func TestPublicURL(t *testing.T) {
	s := Storage{publicURL: "https://cdn.example.com"}
	if got := s.PublicURL("default/intro track.mp3"); got != "https://cdn.example.com/default/intro%20track.mp3" {
		t.Fatalf("PublicURL: got %q", got)
	}
	if got := (&Storage{}).PublicURL("default/a.mp3"); got != "" {
		t.Fatalf("PublicURL without base: got %q", got)
	}
	if s.Mode() != object.ModeRemote {
		t.Fatalf("Mode: expected remote got %s", s.Mode())
	}
}

func TestInitValidation(t *testing.T) {
	ctx := context.Background()
	if err := (&Storage{}).Init(ctx, Config{Bucket: "b", AccessKey: "a", SecretAccessKey: "s"}); err == nil {
		t.Fatalf("Init without account or endpoint: expected error")
	}
	if err := (&Storage{}).Init(ctx, Config{AccountID: "acct"}); err == nil {
		t.Fatalf("Init without credentials: expected error")
	}
	if _, err := (&Storage{}).Stat(ctx, "k"); err == nil {
		t.Fatalf("Stat before Init: expected error")
	}
}
