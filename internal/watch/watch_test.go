package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileFiresOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".stagehand.yml")
	if err := os.WriteFile(path, []byte("a"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fired := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- File(ctx, path, func() {
			select {
			case fired <- struct{}{}:
			default:
			}
			cancel()
		})
	}()

	// give the watcher a moment to register before touching the file
	time.Sleep(200 * time.Millisecond)
	if err := os.WriteFile(path, []byte("b"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	select {
	case <-fired:
	case <-ctx.Done():
		t.Fatalf("watcher did not fire on write")
	}
	if err := <-done; err != nil {
		t.Fatalf("File returned error: %v", err)
	}
}

func TestFileIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".stagehand.yml")
	sibling := filepath.Join(dir, "other.txt")
	if err := os.WriteFile(path, []byte("a"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	fired := make(chan struct{}, 1)
	go func() {
		_ = File(ctx, path, func() {
			select {
			case fired <- struct{}{}:
			default:
			}
		})
	}()

	time.Sleep(200 * time.Millisecond)
	if err := os.WriteFile(sibling, []byte("x"), 0o644); err != nil {
		t.Fatalf("write sibling: %v", err)
	}

	select {
	case <-fired:
		t.Fatalf("watcher fired for a sibling file")
	case <-ctx.Done():
	}
}

func TestFileStopsOnContextCancel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".stagehand.yml")
	if err := os.WriteFile(path, []byte("a"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- File(ctx, path, func() {}) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("File returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("File did not return after cancel")
	}
}
