package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestDiskArtifactStoreRoundTrip(t *testing.T) {
	store, err := NewDiskArtifactStore(t.TempDir())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}

	ref, err := store.Store(strings.NewReader("fake audio"), "webm")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if !strings.HasSuffix(ref, ".webm") {
		t.Errorf("expected .webm suffix, got %q", ref)
	}

	rc, err := store.Open(ref)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "fake audio" {
		t.Errorf("expected stored content back, got %q", data)
	}

	if _, err := store.Path(ref); err != nil {
		t.Errorf("path: %v", err)
	}

	if err := store.Delete(ref); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Open(ref); !errors.Is(err, ErrArtifactNotFound) {
		t.Errorf("expected ErrArtifactNotFound after delete, got %v", err)
	}
	// Reset runs delete again on an already-removed ref.
	if err := store.Delete(ref); err != nil {
		t.Errorf("second delete must be a no-op, got %v", err)
	}
}

func TestDiskArtifactStoreRejectsPathRefs(t *testing.T) {
	store, err := NewDiskArtifactStore(t.TempDir())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}

	for _, ref := range []string{"", "../etc/passwd", "a/b.webm", `a\b.webm`} {
		if _, err := store.Open(ref); !errors.Is(err, ErrArtifactNotFound) {
			t.Errorf("ref %q: expected ErrArtifactNotFound, got %v", ref, err)
		}
	}
}

func TestRedisArtifactStage(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	stage := NewRedisArtifactStage(client)
	ctx := context.Background()

	ref, err := stage.Get(ctx, "p-1")
	if err != nil {
		t.Fatalf("get empty: %v", err)
	}
	if ref != "" {
		t.Errorf("expected no staged ref, got %q", ref)
	}

	if err := stage.Put(ctx, "p-1", "first.webm"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := stage.Put(ctx, "p-1", "second.webm"); err != nil {
		t.Fatalf("replace: %v", err)
	}

	ref, err = stage.Get(ctx, "p-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ref != "second.webm" {
		t.Errorf("expected latest staged ref, got %q", ref)
	}

	if err := stage.Clear(ctx, "p-1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	ref, _ = stage.Get(ctx, "p-1")
	if ref != "" {
		t.Errorf("expected cleared ref, got %q", ref)
	}
}
