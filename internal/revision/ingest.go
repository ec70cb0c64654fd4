package revision

import (
	"context"
	"errors"
	"io"

	"github.com/atelierhq/commission-platform/internal/blob"
	"gorm.io/gorm"
)

// Ingester validates and persists inbound files. Identical bytes uploaded
// twice get two rows; callers needing idempotence dedupe upstream.
type Ingester struct {
	repo     *Repo
	blobs    blob.Store
	maxBytes int64
}

func NewIngester(repo *Repo, blobs blob.Store, maxBytes int64) *Ingester {
	if maxBytes <= 0 {
		maxBytes = 50 << 20
	}
	return &Ingester{repo: repo, blobs: blobs, maxBytes: maxBytes}
}

// Stage persists an uploaded file under a wizard draft key. The bytes are
// written to blob storage first; a storage failure aborts before any row is
// created.
func (g *Ingester) Stage(ctx context.Context, r io.Reader, declaredName, declaredKind string, sizeBytes int64, draftKey string) (*Attachment, error) {
	kind, ok := ParseAttachmentKind(declaredKind)
	if !ok {
		return nil, &ValidationError{Field: "kind", Reason: "must be one of image, video, document"}
	}
	if sizeBytes <= 0 {
		return nil, &ValidationError{Field: "size", Reason: "file is empty"}
	}
	if sizeBytes > g.maxBytes {
		return nil, &ValidationError{Field: "size", Reason: "file exceeds the upload limit"}
	}
	if declaredName == "" {
		declaredName = "upload"
	}

	ref, err := g.blobs.Save(ctx, io.LimitReader(r, sizeBytes), declaredName)
	if err != nil {
		return nil, &StorageError{Op: "save", Err: err}
	}

	att := &Attachment{
		DraftKey:     &draftKey,
		Kind:         kind,
		StorageRef:   ref,
		OriginalName: declaredName,
		SizeBytes:    sizeBytes,
	}
	if err := g.repo.CreateAttachment(ctx, att); err != nil {
		// best effort: do not leave bytes nobody references
		_ = g.blobs.Delete(ctx, ref)
		return nil, err
	}
	return att, nil
}

// Finalize rebinds a staged attachment to a message. Happens at most once
// per attachment; a second call fails with ErrInvalidState.
func (g *Ingester) Finalize(ctx context.Context, attachmentID, messageID uint64) error {
	att, err := g.repo.GetAttachment(ctx, attachmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if att.MessageID != nil {
		return ErrInvalidState
	}
	rows, err := g.repo.BindAttachment(ctx, attachmentID, messageID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrInvalidState
	}
	return nil
}

// Open streams an attachment's bytes back out of blob storage.
func (g *Ingester) Open(ctx context.Context, att *Attachment) (io.ReadCloser, error) {
	rc, err := g.blobs.Open(ctx, att.StorageRef)
	if err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}
	return rc, nil
}
