package revision

import "time"

type Status string

const (
	StatusPending     Status = "pending"
	StatusInProgress  Status = "in_progress"
	StatusCompleted   Status = "completed"
	StatusApproved    Status = "approved"
	StatusNeedsRework Status = "needs_rework"
	StatusRejected    Status = "rejected"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ParsePriority maps raw user input to a Priority.
func ParsePriority(s string) (Priority, bool) {
	switch Priority(s) {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return Priority(s), true
	}
	return "", false
}

type SenderKind string

const (
	SenderClient   SenderKind = "client"
	SenderExecutor SenderKind = "executor"
)

type AttachmentKind string

const (
	KindImage    AttachmentKind = "image"
	KindVideo    AttachmentKind = "video"
	KindDocument AttachmentKind = "document"
)

func ParseAttachmentKind(s string) (AttachmentKind, bool) {
	switch AttachmentKind(s) {
	case KindImage, KindVideo, KindDocument:
		return AttachmentKind(s), true
	}
	return "", false
}

type Revision struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement" json:"-"`
	RevisionID string `gorm:"type:varchar(26);uniqueIndex;not null" json:"revision_id"`
	ProjectID  uint64 `gorm:"index:idx_rev_project_number,priority:1;not null" json:"project_id"`

	// Number is assigned once at creation from the per-project maximum + 1
	// and never reused.
	Number uint `gorm:"column:revision_number;index:idx_rev_project_number,unique,priority:2;not null" json:"revision_number"`

	Title       string   `gorm:"type:varchar(200);not null" json:"title"`
	Description string   `gorm:"type:text;not null" json:"description"`
	Priority    Priority `gorm:"type:varchar(16);not null" json:"priority"`
	Status      Status   `gorm:"type:varchar(20);index;not null" json:"status"`

	CreatedBy  uint64  `gorm:"index;not null" json:"created_by"`
	AssignedTo *uint64 `gorm:"index" json:"assigned_to"`

	ProgressPercent  int   `gorm:"not null;default:0" json:"progress_percent"`
	TimeSpentSeconds int64 `gorm:"not null;default:0" json:"time_spent_seconds"`

	// LockVersion guards the read-validate-write transition sequence.
	LockVersion uint `gorm:"not null;default:0" json:"-"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

func (Revision) TableName() string { return "revisions" }

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

type Message struct {
	ID         uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RevisionID uint64     `gorm:"index:idx_msg_revision_created,priority:1;not null" json:"-"`
	SenderKind SenderKind `gorm:"type:varchar(16);not null" json:"sender_kind"`
	SenderID   uint64     `gorm:"index;not null" json:"sender_id"`
	Body       string     `gorm:"type:text;not null" json:"body"`

	// Internal messages are never shown to the client.
	IsInternal bool `gorm:"not null;default:false" json:"is_internal"`

	CreatedAt time.Time `gorm:"index:idx_msg_revision_created,priority:2" json:"created_at"`
}

func (Message) TableName() string { return "revision_messages" }

type Attachment struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"`

	// Exactly one of MessageID and DraftKey is set: DraftKey while the file is
	// staged under a wizard draft, MessageID once it is bound. The bind happens
	// at most once.
	MessageID *uint64 `gorm:"index" json:"message_id"`
	DraftKey  *string `gorm:"type:varchar(36);index" json:"-"`

	Kind         AttachmentKind `gorm:"type:varchar(16);not null" json:"kind"`
	StorageRef   string         `gorm:"type:varchar(512);not null" json:"storage_ref"`
	OriginalName string         `gorm:"type:varchar(255);not null" json:"original_name"`
	SizeBytes    int64          `gorm:"not null" json:"size_bytes"`

	CreatedAt time.Time `json:"created_at"`
}

func (Attachment) TableName() string { return "revision_attachments" }
