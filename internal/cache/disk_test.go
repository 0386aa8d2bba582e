package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDiskCache_SetGet(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "pages")
	c := NewDiskCache(dir, time.Hour)

	if _, found := c.Get(Key("page", "https://example.com/issue-1")); found {
		t.Fatal("expected miss before the directory exists")
	}

	key := Key("page", "https://example.com/issue-1")
	if err := c.Set(key, []byte("<html>issue</html>"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, found := c.Get(key)
	if !found || string(val) != "<html>issue</html>" {
		t.Errorf("expected cached page, got %q (found=%v)", val, found)
	}

	// A second instance sees the same entry
	if _, found := NewDiskCache(dir, time.Hour).Get(key); !found {
		t.Error("expected entry to persist across instances")
	}
}

func TestDiskCache_Expiry(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if err := c.Set("k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, found := c.Get("k"); found {
		t.Error("expected entry to expire")
	}
	if _, err := os.Stat(c.path("k")); !os.IsNotExist(err) {
		t.Error("expected expired entry to be removed")
	}
}

func TestDiskCache_Corrupt(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	if err := os.WriteFile(c.path("k"), []byte("not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, found := c.Get("k"); found {
		t.Error("expected corrupt entry to miss")
	}
}

func TestDiskCache_DeleteClear(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "c")
	c := NewDiskCache(dir, time.Hour)
	_ = c.Set("a", []byte("1"), 0)
	_ = c.Set("b", []byte("2"), 0)

	if err := c.Delete("a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := c.Delete("a"); err != nil {
		t.Errorf("expected deleting a missing key to succeed, got %v", err)
	}
	if _, found := c.Get("a"); found {
		t.Error("expected a to be deleted")
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, found := c.Get("b"); found {
		t.Error("expected b to be cleared")
	}
}

func TestLayeredCache(t *testing.T) {
	front := NewMemoryCache(time.Minute, time.Minute)
	back := NewDiskCache(t.TempDir(), time.Hour)
	c := NewLayeredCache(front, back)

	if err := c.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, found := back.Get("k"); !found {
		t.Error("expected write-through to the back layer")
	}

	// Back-layer hits are promoted
	_ = front.Clear()
	if val, found := c.Get("k"); !found || string(val) != "v" {
		t.Fatalf("expected back-layer hit, got %q (found=%v)", val, found)
	}
	if _, found := front.Get("k"); !found {
		t.Error("expected promotion to the front layer")
	}

	if err := c.Delete("k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, found := c.Get("k"); found {
		t.Error("expected k to be deleted from both layers")
	}
}
