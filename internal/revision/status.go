package revision

import (
	"context"
	"fmt"
	"time"

	"github.com/atelierhq/commission-platform/internal/directory"
)

// allowedTransitions is the full workflow graph. approved and rejected are
// terminal; needs_rework re-enters the in_progress loop.
var allowedTransitions = map[Status][]Status{
	StatusPending:     {StatusInProgress, StatusRejected},
	StatusInProgress:  {StatusCompleted, StatusRejected},
	StatusCompleted:   {StatusApproved, StatusNeedsRework},
	StatusNeedsRework: {StatusInProgress},
	StatusApproved:    {},
	StatusRejected:    {},
}

// CanTransition reports whether from -> to is in the workflow graph.
func CanTransition(from, to Status) bool {
	for _, t := range allowedTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// StatusMachine validates and applies workflow transitions. The status write
// and the audit message commit together; the notification is attempted after
// and its outcome never affects the result.
type StatusMachine struct {
	store    *Store
	repo     *Repo
	notifier Notifier
}

func NewStatusMachine(store *Store, repo *Repo, notifier Notifier) *StatusMachine {
	return &StatusMachine{store: store, repo: repo, notifier: notifier}
}

func (m *StatusMachine) Transition(ctx context.Context, revisionID string, actorID uint64, target Status, comment string) (*Revision, error) {
	rev, proj, err := m.store.getScoped(ctx, revisionID, actorID)
	if err != nil {
		return nil, err
	}

	from := rev.Status
	if !CanTransition(from, target) {
		return nil, &InvalidTransitionError{From: from, To: target}
	}

	var completedAt *time.Time
	if target == StatusCompleted || target == StatusApproved {
		now := time.Now().UTC()
		completedAt = &now
	}

	audit := &Message{
		RevisionID: rev.ID,
		SenderKind: senderKindFor(proj, actorID),
		SenderID:   actorID,
		Body:       transitionSummary(from, target, comment),
	}

	applied, err := m.repo.ApplyTransition(ctx, rev.ID, rev.LockVersion, target, completedAt, audit)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Version mismatch: either a concurrent transition won, or the row
		// vanished. Re-read to tell the two apart.
		if _, getErr := m.repo.GetByRevisionID(ctx, revisionID); getErr != nil {
			return nil, ErrNotFound
		}
		return nil, ErrConflict
	}

	rev.Status = target
	rev.LockVersion++
	rev.CompletedAt = completedAt

	m.notifier.StatusChanged(ctx, proj, rev, from, target, actorID, comment)
	return rev, nil
}

func senderKindFor(proj *directory.Project, actorID uint64) SenderKind {
	if proj.OwnerActorID == actorID {
		return SenderClient
	}
	return SenderExecutor
}

func transitionSummary(from, to Status, comment string) string {
	s := fmt.Sprintf("Status changed: %s -> %s", from, to)
	if comment != "" {
		s += "\n" + comment
	}
	return s
}
