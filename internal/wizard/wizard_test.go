package wizard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/atelierhq/commission-platform/internal/directory"
	"github.com/atelierhq/commission-platform/internal/revision"
)

type memSessions struct {
	m map[uint64]*Session
}

func newMemSessions() *memSessions { return &memSessions{m: map[uint64]*Session{}} }

func (s *memSessions) Put(ctx context.Context, sess *Session) error {
	cp := *sess
	s.m[sess.ActorID] = &cp
	return nil
}

func (s *memSessions) Get(ctx context.Context, actorID uint64) (*Session, error) {
	sess, ok := s.m[actorID]
	if !ok {
		return nil, revision.ErrInvalidState
	}
	cp := *sess
	return &cp, nil
}

func (s *memSessions) Delete(ctx context.Context, actorID uint64) error {
	delete(s.m, actorID)
	return nil
}

type memBlob struct {
	seq int
}

func (b *memBlob) Save(ctx context.Context, r io.Reader, suggestedName string) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	b.seq++
	return fmt.Sprintf("mem/%d-%s", b.seq, suggestedName), nil
}
func (b *memBlob) Exists(ctx context.Context, ref string) (bool, error) { return true, nil }
func (b *memBlob) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(nil)), nil
}
func (b *memBlob) Delete(ctx context.Context, ref string) error { return nil }

type countingNotifier struct {
	created  int
	statuses int
	messages int
}

func (n *countingNotifier) RevisionCreated(ctx context.Context, proj *directory.Project, rev *revision.Revision, actorID uint64) {
	n.created++
}
func (n *countingNotifier) StatusChanged(ctx context.Context, proj *directory.Project, rev *revision.Revision, from, to revision.Status, actorID uint64, comment string) {
	n.statuses++
}
func (n *countingNotifier) NewMessage(ctx context.Context, proj *directory.Project, rev *revision.Revision, msg *revision.Message, atts []revision.Attachment, actorID uint64) {
	n.messages++
}

type wizFixture struct {
	db       *gorm.DB
	wiz      *Wizard
	repo     *revision.Repo
	notifier *countingNotifier
	proj     *directory.Project
}

func newWizFixture(t *testing.T) *wizFixture {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open("file::memory:?cache=shared"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&directory.Actor{}, &directory.Project{}, &revision.Revision{}, &revision.Message{}, &revision.Attachment{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	executor := uint64(2)
	for id, name := range map[uint64]string{1: "client", 2: "executor"} {
		actor := directory.Actor{ID: id, ExternalID: fmt.Sprintf("wiz-ext-%d", id), DisplayName: name, NotificationChannel: fmt.Sprintf("chan-%d", id)}
		if err := db.Where("id = ?", id).FirstOrCreate(&actor).Error; err != nil {
			t.Fatalf("seed actor: %v", err)
		}
	}
	proj := &directory.Project{Title: "Landing page", OwnerActorID: 1, AssignedExecutorID: &executor}
	if err := db.Create(proj).Error; err != nil {
		t.Fatalf("seed project: %v", err)
	}

	repo := revision.NewRepo(db)
	notifier := &countingNotifier{}
	store := revision.NewStore(repo, directory.NewGormProjects(db))
	ingester := revision.NewIngester(repo, &memBlob{}, 1<<20)
	thread := revision.NewThread(store, repo, ingester, notifier)
	wiz := New(newMemSessions(), store, thread, ingester, notifier)

	return &wizFixture{db: db, wiz: wiz, repo: repo, notifier: notifier, proj: proj}
}

func TestWizard_HappyPath(t *testing.T) {
	f := newWizFixture(t)
	ctx := context.Background()

	if _, err := f.wiz.Start(ctx, 1, f.proj.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.wiz.SubmitField(ctx, 1, "Fix header"); err != nil {
		t.Fatalf("title: %v", err)
	}
	if _, err := f.wiz.SubmitField(ctx, 1, "Header color is wrong, should be blue, contrast too low"); err != nil {
		t.Fatalf("description: %v", err)
	}
	att, err := f.wiz.StageFile(ctx, 1, strings.NewReader("png bytes"), "header.png", "image", 9)
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if _, err := f.wiz.SubmitField(ctx, 1, "done"); err != nil {
		t.Fatalf("files done: %v", err)
	}
	s, err := f.wiz.SubmitField(ctx, 1, "high")
	if err != nil {
		t.Fatalf("priority: %v", err)
	}
	if s.Step != StepConfirm {
		t.Fatalf("expected confirm step, got %s", s.Step)
	}

	rev, err := f.wiz.Confirm(ctx, 1)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if rev.Number != 1 || rev.Status != revision.StatusPending || rev.Priority != revision.PriorityHigh {
		t.Fatalf("unexpected revision: #%d %s %s", rev.Number, rev.Status, rev.Priority)
	}

	msgs, err := f.repo.ListMessages(ctx, rev.ID, 10, 0, true)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 1 || !strings.Contains(msgs[0].Body, "Header color is wrong") {
		t.Fatalf("expected one opening message with the description, got %+v", msgs)
	}

	atts, err := f.repo.ListAttachmentsByMessage(ctx, msgs[0].ID)
	if err != nil {
		t.Fatalf("list attachments: %v", err)
	}
	if len(atts) != 1 || atts[0].ID != att.ID {
		t.Fatalf("expected the staged attachment bound to the opening message")
	}

	// one notification total: the created event, no separate new-message one
	if f.notifier.created != 1 || f.notifier.messages != 0 {
		t.Fatalf("expected exactly one created notification, got created=%d messages=%d",
			f.notifier.created, f.notifier.messages)
	}

	// session gone
	if _, err := f.wiz.Current(ctx, 1); !errors.Is(err, revision.ErrInvalidState) {
		t.Fatalf("expected session destroyed, got %v", err)
	}
}

func TestWizard_ShortTitleStaysOnTitleStep(t *testing.T) {
	f := newWizFixture(t)
	ctx := context.Background()

	if _, err := f.wiz.Start(ctx, 1, f.proj.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	_, err := f.wiz.SubmitField(ctx, 1, "Fix")
	var ve *revision.ValidationError
	if !errors.As(err, &ve) || ve.Field != "title" {
		t.Fatalf("expected title ValidationError, got %v", err)
	}

	s, err := f.wiz.Current(ctx, 1)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if s.Step != StepTitle {
		t.Fatalf("expected wizard still at title, got %s", s.Step)
	}
}

func TestWizard_CancelLeavesOrphans(t *testing.T) {
	f := newWizFixture(t)
	ctx := context.Background()

	s, err := f.wiz.Start(ctx, 1, f.proj.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.wiz.SubmitField(ctx, 1, "Fix header"); err != nil {
		t.Fatalf("title: %v", err)
	}
	if _, err := f.wiz.SubmitField(ctx, 1, "Header color is wrong on mobile"); err != nil {
		t.Fatalf("description: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := f.wiz.StageFile(ctx, 1, strings.NewReader("bytes"), "f.png", "image", 5); err != nil {
			t.Fatalf("stage %d: %v", i, err)
		}
	}
	if err := f.wiz.Cancel(ctx, 1); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	var count int64
	if err := f.db.Model(&revision.Revision{}).Where("project_id = ?", f.proj.ID).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("cancel created %d revisions", count)
	}

	orphans, err := f.repo.ListAttachmentsByDraft(ctx, s.DraftKey)
	if err != nil {
		t.Fatalf("list draft: %v", err)
	}
	if len(orphans) != 2 {
		t.Fatalf("expected 2 draft-owned orphans, got %d", len(orphans))
	}
	for _, a := range orphans {
		if a.MessageID != nil {
			t.Fatalf("orphan %d unexpectedly bound", a.ID)
		}
	}
}

func TestWizard_StartReplacesExistingSession(t *testing.T) {
	f := newWizFixture(t)
	ctx := context.Background()

	if _, err := f.wiz.Start(ctx, 1, f.proj.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.wiz.SubmitField(ctx, 1, "Fix header"); err != nil {
		t.Fatalf("title: %v", err)
	}

	// a fresh start silently discards the old draft
	s2, err := f.wiz.Start(ctx, 1, f.proj.ID)
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if s2.Step != StepTitle || s2.Title != "" {
		t.Fatalf("expected clean session, got step=%s title=%q", s2.Step, s2.Title)
	}
}

func TestWizard_OutOfOrderOperations(t *testing.T) {
	f := newWizFixture(t)
	ctx := context.Background()

	// no session at all
	if _, err := f.wiz.Confirm(ctx, 1); !errors.Is(err, revision.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState without session, got %v", err)
	}

	if _, err := f.wiz.Start(ctx, 1, f.proj.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	// confirm before reaching the confirm step
	if _, err := f.wiz.Confirm(ctx, 1); !errors.Is(err, revision.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState at title step, got %v", err)
	}
	// staging outside the files step
	if _, err := f.wiz.StageFile(ctx, 1, strings.NewReader("x"), "f.png", "image", 1); !errors.Is(err, revision.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState staging at title step, got %v", err)
	}
}
