// Package directory exposes the platform's identity and project records to
// the revision subsystem. The subsystem only consumes the two interfaces;
// the gorm-backed implementations below are the platform's own thin glue.
package directory

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Actor struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	ExternalID string `gorm:"type:varchar(64);uniqueIndex;not null" json:"external_id"`

	DisplayName string `gorm:"type:varchar(100);not null" json:"display_name"`

	// NotificationChannel is the opaque channel id the outbound transport
	// delivers to (a chat id on the conversational front-end).
	NotificationChannel string `gorm:"type:varchar(64);not null" json:"-"`

	IsExecutor bool `gorm:"not null;default:false" json:"is_executor"`

	PasswordHash string `gorm:"type:varchar(100)" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Actor) TableName() string { return "actors" }

type Project struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Title        string `gorm:"type:varchar(200);not null" json:"title"`
	OwnerActorID uint64 `gorm:"index;not null" json:"owner_actor_id"`

	// AssignedExecutorID is nil until the team picks someone up; events on
	// unassigned projects route to the team channel instead.
	AssignedExecutorID *uint64 `gorm:"index" json:"assigned_executor_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Project) TableName() string { return "projects" }

// ProfileHints carries whatever the front-end knows about a first-contact
// actor.
type ProfileHints struct {
	DisplayName         string
	NotificationChannel string
}

type Actors interface {
	Resolve(ctx context.Context, id uint64) (*Actor, error)
	ResolveExternal(ctx context.Context, externalID string) (*Actor, error)
	Ensure(ctx context.Context, externalID string, hints ProfileHints) (*Actor, error)
}

type Projects interface {
	Get(ctx context.Context, id uint64) (*Project, error)
}

type GormActors struct {
	db *gorm.DB
}

func NewGormActors(db *gorm.DB) *GormActors { return &GormActors{db: db} }

func (a *GormActors) Resolve(ctx context.Context, id uint64) (*Actor, error) {
	var actor Actor
	if err := a.db.WithContext(ctx).First(&actor, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &actor, nil
}

func (a *GormActors) ResolveExternal(ctx context.Context, externalID string) (*Actor, error) {
	var actor Actor
	if err := a.db.WithContext(ctx).
		Where("external_id = ?", externalID).
		First(&actor).Error; err != nil {
		return nil, err
	}
	return &actor, nil
}

// Ensure upserts by external id. Safe to call on every inbound interaction.
func (a *GormActors) Ensure(ctx context.Context, externalID string, hints ProfileHints) (*Actor, error) {
	actor := Actor{
		ExternalID:          externalID,
		DisplayName:         hints.DisplayName,
		NotificationChannel: hints.NotificationChannel,
	}
	if actor.NotificationChannel == "" {
		actor.NotificationChannel = externalID
	}
	err := a.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name", "notification_channel", "updated_at"}),
		}).
		Create(&actor).Error
	if err != nil {
		return nil, err
	}
	return a.ResolveExternal(ctx, externalID)
}

type GormProjects struct {
	db *gorm.DB
}

func NewGormProjects(db *gorm.DB) *GormProjects { return &GormProjects{db: db} }

func (p *GormProjects) Get(ctx context.Context, id uint64) (*Project, error) {
	var proj Project
	if err := p.db.WithContext(ctx).First(&proj, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &proj, nil
}
