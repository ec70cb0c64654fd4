// Package blob abstracts durable byte storage for attachments. Production
// runs against the platform's object store; FSStore keeps bytes on local
// disk for development and tests.
package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Store interface {
	// Save persists bytes and returns an opaque storage reference.
	Save(ctx context.Context, r io.Reader, suggestedName string) (string, error)
	Exists(ctx context.Context, ref string) (bool, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	Delete(ctx context.Context, ref string) error
}

type FSStore struct {
	root string
}

func NewFSStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{root: root}, nil
}

func (s *FSStore) Save(ctx context.Context, r io.Reader, suggestedName string) (string, error) {
	_ = ctx
	ext := filepath.Ext(suggestedName)
	if len(ext) > 16 {
		ext = ""
	}
	// date prefix keeps directories small enough to list
	ref := filepath.Join(time.Now().UTC().Format("2006/01/02"), uuid.NewString()+ext)
	full := filepath.Join(s.root, ref)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(full)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(full)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(full)
		return "", err
	}
	return ref, nil
}

func (s *FSStore) Exists(ctx context.Context, ref string) (bool, error) {
	_ = ctx
	full, err := s.resolve(ref)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *FSStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	_ = ctx
	full, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}

func (s *FSStore) Delete(ctx context.Context, ref string) error {
	full, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *FSStore) resolve(ref string) (string, error) {
	clean := filepath.Clean(ref)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("blob: bad ref %q", ref)
	}
	return filepath.Join(s.root, clean), nil
}
