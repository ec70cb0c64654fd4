package revision

import (
	"context"
	"strings"
)

// Thread owns the ordered message conversation around one revision.
type Thread struct {
	store    *Store
	repo     *Repo
	ingester *Ingester
	notifier Notifier
}

func NewThread(store *Store, repo *Repo, ingester *Ingester, notifier Notifier) *Thread {
	return &Thread{store: store, repo: repo, ingester: ingester, notifier: notifier}
}

// Append adds a message from actorID, binds the listed staged attachments to
// it, and notifies the counterparty.
func (t *Thread) Append(ctx context.Context, revisionID string, actorID uint64, body string, attachmentIDs []uint64, isInternal bool) (*Message, error) {
	rev, proj, err := t.store.getScoped(ctx, revisionID, actorID)
	if err != nil {
		return nil, err
	}
	kind := senderKindFor(proj, actorID)
	if isInternal && kind != SenderExecutor {
		return nil, &ValidationError{Field: "is_internal", Reason: "only the execution team writes internal notes"}
	}

	msg, err := t.append(ctx, rev, kind, actorID, body, attachmentIDs, isInternal)
	if err != nil {
		return nil, err
	}

	if !isInternal {
		atts, attErr := t.repo.ListAttachmentsByMessage(ctx, msg.ID)
		if attErr != nil {
			atts = nil
		}
		t.notifier.NewMessage(ctx, proj, rev, msg, atts, actorID)
	}
	return msg, nil
}

// AppendInitial writes a revision's opening message without a new-message
// notification; the creation event already covers it.
func (t *Thread) AppendInitial(ctx context.Context, rev *Revision, actorID uint64, body string, attachmentIDs []uint64) (*Message, error) {
	return t.append(ctx, rev, SenderClient, actorID, body, attachmentIDs, false)
}

func (t *Thread) append(ctx context.Context, rev *Revision, kind SenderKind, actorID uint64, body string, attachmentIDs []uint64, isInternal bool) (*Message, error) {
	body = strings.TrimSpace(body)
	if body == "" && len(attachmentIDs) == 0 {
		return nil, &ValidationError{Field: "body", Reason: "message is empty"}
	}

	msg := &Message{
		RevisionID: rev.ID,
		SenderKind: kind,
		SenderID:   actorID,
		Body:       body,
		IsInternal: isInternal,
	}
	if err := t.repo.InsertMessage(ctx, msg); err != nil {
		return nil, err
	}
	for _, attID := range attachmentIDs {
		if err := t.ingester.Finalize(ctx, attID, msg.ID); err != nil {
			return nil, err
		}
	}
	return msg, nil
}

// List returns the thread for revisionID. With beforeID == 0 messages come
// oldest-first; with a cursor they come newest-first ending before that id.
// Clients never see internal notes regardless of includeInternal.
func (t *Thread) List(ctx context.Context, revisionID string, actorID uint64, limit int, beforeID uint64, includeInternal bool) ([]Message, error) {
	rev, proj, err := t.store.getScoped(ctx, revisionID, actorID)
	if err != nil {
		return nil, err
	}
	if senderKindFor(proj, actorID) == SenderClient {
		includeInternal = false
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return t.repo.ListMessages(ctx, rev.ID, limit, beforeID, includeInternal)
}

// Attachments returns the files bound to one message of a visible revision.
func (t *Thread) Attachments(ctx context.Context, revisionID string, actorID uint64, messageID uint64) ([]Attachment, error) {
	rev, proj, err := t.store.getScoped(ctx, revisionID, actorID)
	if err != nil {
		return nil, err
	}
	msg, err := t.repo.GetMessage(ctx, messageID)
	if err != nil || msg.RevisionID != rev.ID {
		return nil, ErrNotFound
	}
	if msg.IsInternal && senderKindFor(proj, actorID) == SenderClient {
		return nil, ErrNotFound
	}
	return t.repo.ListAttachmentsByMessage(ctx, messageID)
}
