package revision

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// CreateRevision inserts rev with the next revision_number for its project.
// The unique (project_id, revision_number) index is the arbiter: when two
// concurrent creates pick the same number, the loser re-reads and retries.
func (r *Repo) CreateRevision(ctx context.Context, rev *Revision) error {
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		var maxNumber uint
		if err = r.db.WithContext(ctx).Model(&Revision{}).
			Where("project_id = ?", rev.ProjectID).
			Select("COALESCE(MAX(revision_number), 0)").
			Scan(&maxNumber).Error; err != nil {
			return err
		}
		rev.Number = maxNumber + 1
		err = r.db.WithContext(ctx).Create(rev).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
	}
	return err
}

func (r *Repo) GetByRevisionID(ctx context.Context, revisionID string) (*Revision, error) {
	var rev Revision
	if err := r.db.WithContext(ctx).
		Where("revision_id = ?", revisionID).
		First(&rev).Error; err != nil {
		return nil, err
	}
	return &rev, nil
}

// ListByProject returns revisions in revision_number DESC order (newest first).
func (r *Repo) ListByProject(ctx context.Context, projectID uint64) ([]Revision, error) {
	var revs []Revision
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("revision_number DESC").
		Find(&revs).Error; err != nil {
		return nil, err
	}
	return revs, nil
}

// ApplyTransition commits the status change and its audit message together.
// Returns false without writing anything when the version check fails.
func (r *Repo) ApplyTransition(ctx context.Context, id uint64, lockVersion uint, to Status, completedAt *time.Time, audit *Message) (bool, error) {
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"status":       to,
			"lock_version": lockVersion + 1,
		}
		if completedAt != nil {
			updates["completed_at"] = *completedAt
		}
		res := tx.Model(&Revision{}).
			Where("id = ? AND lock_version = ?", id, lockVersion).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if err := tx.Create(audit).Error; err != nil {
			return err
		}
		applied = true
		return nil
	})
	return applied, err
}

func (r *Repo) UpdateProgress(ctx context.Context, id uint64, percent int, addSpent time.Duration) error {
	return r.db.WithContext(ctx).Model(&Revision{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"progress_percent":   percent,
			"time_spent_seconds": gorm.Expr("time_spent_seconds + ?", int64(addSpent.Seconds())),
		}).Error
}

func (r *Repo) UpdateAssignee(ctx context.Context, id uint64, executorID uint64) error {
	return r.db.WithContext(ctx).Model(&Revision{}).
		Where("id = ?", id).
		Update("assigned_to", executorID).Error
}

func (r *Repo) InsertMessage(ctx context.Context, m *Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// ListMessages returns messages in (created_at, id) ASC order (oldest first).
// beforeID > 0 flips to a newest-first page ending just before that id, for
// cursor paging from display layers.
func (r *Repo) ListMessages(ctx context.Context, revisionID uint64, limit int, beforeID uint64, includeInternal bool) ([]Message, error) {
	q := r.db.WithContext(ctx).Where("revision_id = ?", revisionID)
	if !includeInternal {
		q = q.Where("is_internal = ?", false)
	}
	if beforeID > 0 {
		q = q.Where("id < ?", beforeID).Order("created_at DESC, id DESC")
	} else {
		q = q.Order("created_at ASC, id ASC")
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var msgs []Message
	if err := q.Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *Repo) GetMessage(ctx context.Context, id uint64) (*Message, error) {
	var m Message
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repo) CreateAttachment(ctx context.Context, a *Attachment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *Repo) GetAttachment(ctx context.Context, id uint64) (*Attachment, error) {
	var a Attachment
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// BindAttachment moves an attachment from its draft key to a message. The
// WHERE clause only matches still-unbound rows, so a second bind attempt
// changes nothing and reports zero rows.
func (r *Repo) BindAttachment(ctx context.Context, id, messageID uint64) (int64, error) {
	res := r.db.WithContext(ctx).Model(&Attachment{}).
		Where("id = ? AND message_id IS NULL", id).
		Updates(map[string]any{
			"message_id": messageID,
			"draft_key":  nil,
		})
	return res.RowsAffected, res.Error
}

func (r *Repo) ListAttachmentsByMessage(ctx context.Context, messageID uint64) ([]Attachment, error) {
	var atts []Attachment
	if err := r.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("id ASC").
		Find(&atts).Error; err != nil {
		return nil, err
	}
	return atts, nil
}

func (r *Repo) ListAttachmentsByDraft(ctx context.Context, draftKey string) ([]Attachment, error) {
	var atts []Attachment
	if err := r.db.WithContext(ctx).
		Where("draft_key = ?", draftKey).
		Order("id ASC").
		Find(&atts).Error; err != nil {
		return nil, err
	}
	return atts, nil
}

// ListOrphanedAttachments returns draft-owned attachments created before
// cutoff. Used by the sweeper to reclaim files staged for wizard sessions
// that were cancelled or expired.
func (r *Repo) ListOrphanedAttachments(ctx context.Context, cutoff time.Time, limit int) ([]Attachment, error) {
	var atts []Attachment
	if err := r.db.WithContext(ctx).
		Where("message_id IS NULL AND created_at < ?", cutoff).
		Order("id ASC").
		Limit(limit).
		Find(&atts).Error; err != nil {
		return nil, err
	}
	return atts, nil
}

func (r *Repo) DeleteAttachment(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&Attachment{}, "id = ?", id).Error
}
