package blob

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestFSStore_RoundTrip(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	ref, err := s.Save(ctx, strings.NewReader("hello bytes"), "shot.png")
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	ok, err := s.Exists(ctx, ref)
	if err != nil || !ok {
		t.Fatalf("exists: ok=%v err=%v", ok, err)
	}

	rc, err := s.Open(ctx, ref)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil || string(data) != "hello bytes" {
		t.Fatalf("read back: %q err=%v", data, err)
	}

	if err := s.Delete(ctx, ref); err != nil {
		t.Fatalf("delete: %v", err)
	}
	ok, err = s.Exists(ctx, ref)
	if err != nil || ok {
		t.Fatalf("expected gone after delete, ok=%v err=%v", ok, err)
	}

	// deleting twice is fine
	if err := s.Delete(ctx, ref); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestFSStore_RejectsEscapingRefs(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	for _, ref := range []string{"../outside", "/etc/passwd"} {
		if _, err := s.Open(context.Background(), ref); err == nil {
			t.Fatalf("expected error for ref %q", ref)
		}
	}
}
