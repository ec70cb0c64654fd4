package revision

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestStage_Validation(t *testing.T) {
	f := newFixture(t)

	ctx := context.Background()
	cases := []struct {
		name  string
		kind  string
		size  int64
		field string
	}{
		{"bad kind", "executable", 10, "kind"},
		{"empty file", "image", 0, "size"},
		{"oversized", "image", 2 << 20, "size"},
	}
	for _, tc := range cases {
		_, err := f.ingester.Stage(ctx, strings.NewReader("x"), "a.bin", tc.kind, tc.size, "draft-1")
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("%s: expected ValidationError, got %v", tc.name, err)
		}
		if ve.Field != tc.field {
			t.Fatalf("%s: expected field %q, got %q", tc.name, tc.field, ve.Field)
		}
	}
}

func TestStage_NoDeduplication(t *testing.T) {
	f := newFixture(t)

	ctx := context.Background()
	a, err := f.ingester.Stage(ctx, strings.NewReader("same bytes"), "a.png", "image", 10, "draft-1")
	if err != nil {
		t.Fatalf("stage a: %v", err)
	}
	b, err := f.ingester.Stage(ctx, strings.NewReader("same bytes"), "a.png", "image", 10, "draft-1")
	if err != nil {
		t.Fatalf("stage b: %v", err)
	}
	if a.ID == b.ID || a.StorageRef == b.StorageRef {
		t.Fatalf("identical uploads must create distinct rows and refs")
	}
}

func TestStage_StorageFailureLeavesNoRow(t *testing.T) {
	f := newFixture(t)
	f.blobs.failSave = true

	_, err := f.ingester.Stage(context.Background(), strings.NewReader("x"), "a.png", "image", 1, "draft-err")
	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %v", err)
	}

	atts, err := f.repo.ListAttachmentsByDraft(context.Background(), "draft-err")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(atts) != 0 {
		t.Fatalf("expected no rows after storage failure, got %d", len(atts))
	}
}

func TestFinalize_BindsAtMostOnce(t *testing.T) {
	f := newFixture(t)
	proj := seedProject(t, f.db, 1, 2)
	rev := mustCreate(t, f, proj.ID)

	ctx := context.Background()
	att, err := f.ingester.Stage(ctx, strings.NewReader("x"), "a.png", "image", 1, "draft-2")
	if err != nil {
		t.Fatalf("stage: %v", err)
	}

	msg := &Message{RevisionID: rev.ID, SenderKind: SenderClient, SenderID: 1, Body: "m1"}
	if err := f.repo.InsertMessage(ctx, msg); err != nil {
		t.Fatalf("insert message: %v", err)
	}
	other := &Message{RevisionID: rev.ID, SenderKind: SenderClient, SenderID: 1, Body: "m2"}
	if err := f.repo.InsertMessage(ctx, other); err != nil {
		t.Fatalf("insert other: %v", err)
	}

	if err := f.ingester.Finalize(ctx, att.ID, msg.ID); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := f.ingester.Finalize(ctx, att.ID, other.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on rebind, got %v", err)
	}
	if err := f.ingester.Finalize(ctx, 424242, msg.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing attachment, got %v", err)
	}

	got, err := f.repo.GetAttachment(ctx, att.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.MessageID == nil || *got.MessageID != msg.ID {
		t.Fatalf("attachment rebound, owner=%v", got.MessageID)
	}
}
