package revision

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/atelierhq/commission-platform/internal/directory"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open("file::memory:?cache=shared"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&directory.Actor{}, &directory.Project{}, &Revision{}, &Message{}, &Attachment{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

var projectSeq atomic.Uint64

// seedProject creates a project with a fresh owner. executorID == 0 leaves
// the project unassigned.
func seedProject(t *testing.T, db *gorm.DB, ownerID, executorID uint64) *directory.Project {
	t.Helper()
	for _, id := range []uint64{ownerID, executorID} {
		if id == 0 {
			continue
		}
		actor := directory.Actor{
			ID:                  id,
			ExternalID:          fmt.Sprintf("ext-%d", id),
			DisplayName:         fmt.Sprintf("actor %d", id),
			NotificationChannel: fmt.Sprintf("chan-%d", id),
		}
		if err := db.Where("id = ?", id).FirstOrCreate(&actor).Error; err != nil {
			t.Fatalf("seed actor %d: %v", id, err)
		}
	}
	proj := directory.Project{
		ID:           projectSeq.Add(1),
		Title:        "Landing page",
		OwnerActorID: ownerID,
	}
	if executorID != 0 {
		proj.AssignedExecutorID = &executorID
	}
	if err := db.Create(&proj).Error; err != nil {
		t.Fatalf("seed project: %v", err)
	}
	return &proj
}

type fakeNotifier struct {
	created  int
	statuses int
	messages int

	lastFrom Status
	lastTo   Status
}

func (n *fakeNotifier) RevisionCreated(ctx context.Context, proj *directory.Project, rev *Revision, actorID uint64) {
	n.created++
}

func (n *fakeNotifier) StatusChanged(ctx context.Context, proj *directory.Project, rev *Revision, from, to Status, actorID uint64, comment string) {
	n.statuses++
	n.lastFrom, n.lastTo = from, to
}

func (n *fakeNotifier) NewMessage(ctx context.Context, proj *directory.Project, rev *Revision, msg *Message, atts []Attachment, actorID uint64) {
	n.messages++
}

type memBlob struct {
	files    map[string][]byte
	seq      int
	failSave bool
}

func newMemBlob() *memBlob {
	return &memBlob{files: map[string][]byte{}}
}

func (b *memBlob) Save(ctx context.Context, r io.Reader, suggestedName string) (string, error) {
	if b.failSave {
		return "", fmt.Errorf("disk full")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	b.seq++
	ref := fmt.Sprintf("mem/%d-%s", b.seq, suggestedName)
	b.files[ref] = data
	return ref, nil
}

func (b *memBlob) Exists(ctx context.Context, ref string) (bool, error) {
	_, ok := b.files[ref]
	return ok, nil
}

func (b *memBlob) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	data, ok := b.files[ref]
	if !ok {
		return nil, fmt.Errorf("no such blob %q", ref)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *memBlob) Delete(ctx context.Context, ref string) error {
	delete(b.files, ref)
	return nil
}

type fixture struct {
	db       *gorm.DB
	repo     *Repo
	store    *Store
	machine  *StatusMachine
	thread   *Thread
	ingester *Ingester
	notifier *fakeNotifier
	blobs    *memBlob
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := openTestDB(t)
	repo := NewRepo(db)
	notifier := &fakeNotifier{}
	blobs := newMemBlob()
	store := NewStore(repo, directory.NewGormProjects(db))
	ingester := NewIngester(repo, blobs, 1<<20)
	return &fixture{
		db:       db,
		repo:     repo,
		store:    store,
		machine:  NewStatusMachine(store, repo, notifier),
		thread:   NewThread(store, repo, ingester, notifier),
		ingester: ingester,
		notifier: notifier,
		blobs:    blobs,
	}
}
