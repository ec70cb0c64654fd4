// Package wizard runs the per-actor, multi-step capture of a new revision.
// Draft state lives in a shared TTL store keyed by actor id, never in
// process memory, so any instance can serve any step.
package wizard

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atelierhq/commission-platform/internal/revision"
)

type Step string

const (
	StepTitle       Step = "title"
	StepDescription Step = "description"
	StepFiles       Step = "files"
	StepPriority    Step = "priority"
	StepConfirm     Step = "confirm"
)

// FilesDone is the explicit signal that advances past the files step.
const FilesDone = "done"

// Session is one actor's in-flight draft. It is JSON in redis; nothing here
// must survive a crash.
type Session struct {
	ActorID   uint64 `json:"actor_id"`
	ProjectID uint64 `json:"project_id"`

	// DraftKey owns staged attachments until Confirm binds them.
	DraftKey string `json:"draft_key"`

	Title       string            `json:"title"`
	Description string            `json:"description"`
	Priority    revision.Priority `json:"priority"`

	AttachmentIDs []uint64 `json:"attachment_ids"`

	Step      Step      `json:"step"`
	CreatedAt time.Time `json:"created_at"`
}

// Sessions is the shared keyed store. Put replaces atomically and refreshes
// the TTL; Get returns revision.ErrInvalidState when no session exists.
type Sessions interface {
	Put(ctx context.Context, s *Session) error
	Get(ctx context.Context, actorID uint64) (*Session, error)
	Delete(ctx context.Context, actorID uint64) error
}

type Wizard struct {
	sessions Sessions
	store    *revision.Store
	thread   *revision.Thread
	ingester *revision.Ingester
	notifier revision.Notifier
}

func New(sessions Sessions, store *revision.Store, thread *revision.Thread, ingester *revision.Ingester, notifier revision.Notifier) *Wizard {
	return &Wizard{sessions: sessions, store: store, thread: thread, ingester: ingester, notifier: notifier}
}

// Start opens a fresh draft at the title step. Any unfinished session for
// the actor is silently discarded; its staged files become sweeper fodder.
func (w *Wizard) Start(ctx context.Context, actorID, projectID uint64) (*Session, error) {
	if _, err := w.store.Project(ctx, projectID, actorID); err != nil {
		return nil, err
	}
	s := &Session{
		ActorID:   actorID,
		ProjectID: projectID,
		DraftKey:  uuid.NewString(),
		Step:      StepTitle,
		CreatedAt: time.Now().UTC(),
	}
	if err := w.sessions.Put(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Current returns the actor's in-flight session, for display layers that
// re-render the active step.
func (w *Wizard) Current(ctx context.Context, actorID uint64) (*Session, error) {
	return w.sessions.Get(ctx, actorID)
}

// SubmitField feeds one value into the current step. On validation failure
// the session stays where it is.
func (w *Wizard) SubmitField(ctx context.Context, actorID uint64, value string) (*Session, error) {
	s, err := w.sessions.Get(ctx, actorID)
	if err != nil {
		return nil, err
	}

	value = strings.TrimSpace(value)
	switch s.Step {
	case StepTitle:
		if err := revision.ValidateTitle(value); err != nil {
			return nil, err
		}
		s.Title = value
		s.Step = StepDescription

	case StepDescription:
		if err := revision.ValidateDescription(value); err != nil {
			return nil, err
		}
		s.Description = value
		s.Step = StepFiles

	case StepFiles:
		if !strings.EqualFold(value, FilesDone) {
			return nil, &revision.ValidationError{Field: "files", Reason: "attach files or send \"done\" to continue"}
		}
		s.Step = StepPriority

	case StepPriority:
		p, ok := revision.ParsePriority(strings.ToLower(value))
		if !ok {
			return nil, &revision.ValidationError{Field: "priority", Reason: "must be one of low, normal, high, urgent"}
		}
		s.Priority = p
		s.Step = StepConfirm

	default:
		return nil, revision.ErrInvalidState
	}

	if err := w.sessions.Put(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// StageFile stores an uploaded file under the draft. Only valid at the files
// step.
func (w *Wizard) StageFile(ctx context.Context, actorID uint64, r io.Reader, name, kind string, sizeBytes int64) (*revision.Attachment, error) {
	s, err := w.sessions.Get(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if s.Step != StepFiles {
		return nil, revision.ErrInvalidState
	}
	att, err := w.ingester.Stage(ctx, r, name, kind, sizeBytes, s.DraftKey)
	if err != nil {
		return nil, err
	}
	s.AttachmentIDs = append(s.AttachmentIDs, att.ID)
	if err := w.sessions.Put(ctx, s); err != nil {
		return nil, err
	}
	return att, nil
}

// Confirm turns the draft into a durable Revision with its opening message,
// binds the staged files, notifies the counterparty and destroys the
// session.
func (w *Wizard) Confirm(ctx context.Context, actorID uint64) (*revision.Revision, error) {
	s, err := w.sessions.Get(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if s.Step != StepConfirm {
		return nil, revision.ErrInvalidState
	}

	rev, err := w.store.Create(ctx, s.ProjectID, actorID, s.Title, s.Description, s.Priority)
	if err != nil {
		return nil, err
	}

	if _, err := w.thread.AppendInitial(ctx, rev, actorID, s.Description, s.AttachmentIDs); err != nil {
		return nil, err
	}

	proj, err := w.store.Project(ctx, s.ProjectID, actorID)
	if err == nil {
		w.notifier.RevisionCreated(ctx, proj, rev, actorID)
	}

	if err := w.sessions.Delete(ctx, actorID); err != nil {
		return nil, err
	}
	return rev, nil
}

// Cancel drops the draft without creating anything. Staged attachments stay
// behind as draft-owned orphans until the sweeper reclaims them.
func (w *Wizard) Cancel(ctx context.Context, actorID uint64) error {
	if _, err := w.sessions.Get(ctx, actorID); err != nil {
		return err
	}
	return w.sessions.Delete(ctx, actorID)
}
