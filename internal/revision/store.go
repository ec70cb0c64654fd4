package revision

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/atelierhq/commission-platform/internal/common"
	"github.com/atelierhq/commission-platform/internal/directory"
	"gorm.io/gorm"
)

const (
	MinTitleLen       = 5
	MinDescriptionLen = 10
)

// Notifier is the fan-out side of the workflow. Implementations deliver
// best-effort and never report failure back; the durable truth is the store.
type Notifier interface {
	RevisionCreated(ctx context.Context, proj *directory.Project, rev *Revision, actorID uint64)
	StatusChanged(ctx context.Context, proj *directory.Project, rev *Revision, from, to Status, actorID uint64, comment string)
	NewMessage(ctx context.Context, proj *directory.Project, rev *Revision, msg *Message, atts []Attachment, actorID uint64)
}

// Store owns Revision rows: creation with per-project numbering, scoped
// reads, assignment and progress tracking. Creation notifications are the
// caller's job, raised only after the whole create flow (revision plus
// opening message) is durable.
type Store struct {
	repo     *Repo
	projects directory.Projects
}

func NewStore(repo *Repo, projects directory.Projects) *Store {
	return &Store{repo: repo, projects: projects}
}

func ValidateTitle(title string) error {
	if len(strings.TrimSpace(title)) < MinTitleLen {
		return &ValidationError{Field: "title", Reason: "must be at least 5 characters"}
	}
	return nil
}

func ValidateDescription(desc string) error {
	if len(strings.TrimSpace(desc)) < MinDescriptionLen {
		return &ValidationError{Field: "description", Reason: "must be at least 10 characters"}
	}
	return nil
}

// visibleTo reports whether actorID may see revisions of proj: the owner and
// the assigned executor may, nobody else. Failed checks surface as NotFound
// so callers cannot probe for existence.
func visibleTo(proj *directory.Project, rev *Revision, actorID uint64) bool {
	if proj.OwnerActorID == actorID {
		return true
	}
	if proj.AssignedExecutorID != nil && *proj.AssignedExecutorID == actorID {
		return true
	}
	if rev != nil && rev.AssignedTo != nil && *rev.AssignedTo == actorID {
		return true
	}
	return false
}

func (s *Store) project(ctx context.Context, projectID uint64) (*directory.Project, error) {
	proj, err := s.projects.Get(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return proj, nil
}

func (s *Store) Create(ctx context.Context, projectID, creatorID uint64, title, description string, priority Priority) (*Revision, error) {
	if err := ValidateTitle(title); err != nil {
		return nil, err
	}
	if err := ValidateDescription(description); err != nil {
		return nil, err
	}
	if _, ok := ParsePriority(string(priority)); !ok {
		return nil, &ValidationError{Field: "priority", Reason: "must be one of low, normal, high, urgent"}
	}

	proj, err := s.project(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !visibleTo(proj, nil, creatorID) {
		return nil, ErrNotFound
	}

	rid, err := common.NewULID()
	if err != nil {
		return nil, err
	}

	rev := &Revision{
		RevisionID:  rid,
		ProjectID:   projectID,
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Priority:    priority,
		Status:      StatusPending,
		CreatedBy:   creatorID,
		AssignedTo:  proj.AssignedExecutorID,
	}
	if err := s.repo.CreateRevision(ctx, rev); err != nil {
		return nil, err
	}
	return rev, nil
}

// Project is the scoped project lookup for callers that need the owning
// project alongside a revision (notification routing, wizard).
func (s *Store) Project(ctx context.Context, projectID, actorID uint64) (*directory.Project, error) {
	proj, err := s.project(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !visibleTo(proj, nil, actorID) {
		return nil, ErrNotFound
	}
	return proj, nil
}

// Get returns the revision only if it is visible to actorID.
func (s *Store) Get(ctx context.Context, revisionID string, actorID uint64) (*Revision, error) {
	rev, _, err := s.getScoped(ctx, revisionID, actorID)
	return rev, err
}

func (s *Store) getScoped(ctx context.Context, revisionID string, actorID uint64) (*Revision, *directory.Project, error) {
	rev, err := s.repo.GetByRevisionID(ctx, revisionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	proj, err := s.project(ctx, rev.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	if !visibleTo(proj, rev, actorID) {
		return nil, nil, ErrNotFound
	}
	return rev, proj, nil
}

// ListByProject returns the project's revisions newest-first, scoped the same
// way as Get.
func (s *Store) ListByProject(ctx context.Context, projectID, actorID uint64) ([]Revision, error) {
	proj, err := s.project(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !visibleTo(proj, nil, actorID) {
		return nil, ErrNotFound
	}
	return s.repo.ListByProject(ctx, projectID)
}

// Assign hands a revision to an executor.
func (s *Store) Assign(ctx context.Context, revisionID string, actorID, executorID uint64) (*Revision, error) {
	rev, err := s.Get(ctx, revisionID, actorID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateAssignee(ctx, rev.ID, executorID); err != nil {
		return nil, err
	}
	rev.AssignedTo = &executorID
	return rev, nil
}

// RecordProgress updates the executor's progress on an in-flight revision.
func (s *Store) RecordProgress(ctx context.Context, revisionID string, actorID uint64, percent int, addSpent time.Duration) (*Revision, error) {
	if percent < 0 || percent > 100 {
		return nil, &ValidationError{Field: "progress_percent", Reason: "must be between 0 and 100"}
	}
	if addSpent < 0 {
		return nil, &ValidationError{Field: "time_spent", Reason: "must not be negative"}
	}
	rev, err := s.Get(ctx, revisionID, actorID)
	if err != nil {
		return nil, err
	}
	if rev.AssignedTo == nil || *rev.AssignedTo != actorID {
		return nil, ErrNotFound
	}
	if rev.Status != StatusInProgress {
		return nil, ErrInvalidState
	}
	if err := s.repo.UpdateProgress(ctx, rev.ID, percent, addSpent); err != nil {
		return nil, err
	}
	rev.ProgressPercent = percent
	rev.TimeSpentSeconds += int64(addSpent.Seconds())
	return rev, nil
}
