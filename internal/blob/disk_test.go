package blob

import (
	"context"
	"io"
	"strings"
	"testing"
)

func newTestDisk(t *testing.T) *DiskStore {
	t.Helper()
	s, err := NewDiskStore(t.TempDir(), "http://localhost:8080/")
	if err != nil {
		t.Fatalf("create disk store: %v", err)
	}
	return s
}

func TestPutAndOpenRoundTrip(t *testing.T) {
	s := newTestDisk(t)
	ctx := context.Background()

	obj, err := s.Put(ctx, strings.NewReader("hello"), "note.txt", "text/plain")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if obj.Size != 5 {
		t.Fatalf("size = %d, want 5", obj.Size)
	}
	if !strings.HasPrefix(obj.URL, "http://localhost:8080/files/") {
		t.Fatalf("unexpected url %q", obj.URL)
	}
	if !strings.HasSuffix(obj.Key, ".txt") {
		t.Fatalf("key %q must keep the extension", obj.Key)
	}

	r, contentType, err := s.Open(ctx, obj.Key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("content = %q", data)
	}
	if !strings.HasPrefix(contentType, "text/plain") {
		t.Fatalf("content type = %q", contentType)
	}
}

func TestPutGeneratesDistinctKeys(t *testing.T) {
	s := newTestDisk(t)
	ctx := context.Background()

	a, err := s.Put(ctx, strings.NewReader("a"), "img.png", "image/png")
	if err != nil {
		t.Fatalf("put a: %v", err)
	}
	b, err := s.Put(ctx, strings.NewReader("b"), "img.png", "image/png")
	if err != nil {
		t.Fatalf("put b: %v", err)
	}
	if a.Key == b.Key {
		t.Fatal("same filename must not collide")
	}
}

func TestOpenRejectsTraversal(t *testing.T) {
	s := newTestDisk(t)

	for _, key := range []string{"../secret", "a/b", "..", ""} {
		if _, _, err := s.Open(context.Background(), key); err == nil {
			t.Fatalf("key %q must be rejected", key)
		}
	}
}

func TestDeleteMissingKeyIsNoError(t *testing.T) {
	s := newTestDisk(t)
	if err := s.Delete(context.Background(), "never-stored.bin"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
}
