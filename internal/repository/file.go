package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

const (
	fileRecordVersion = 1
	fileRecordExt     = ".json"
)

// fileRecord is the on-disk document for one identity.
type fileRecord struct {
	Version int `json:"version"`
	*domain.EnrolledIdentity
}

// FileStore keeps one JSON document per account in a directory. Records
// are written to a temporary file and linked into place, so a record is
// either absent or complete and an existing account is never overwritten.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create gallery dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Dir() string {
	return s.dir
}

// LoadAll reads every record, ordered by enrollment time then account id.
// A record that cannot be parsed fails the whole load.
func (s *FileStore) LoadAll(ctx context.Context) ([]*domain.EnrolledIdentity, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read gallery dir: %w", err)
	}

	identities := make([]*domain.EnrolledIdentity, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileRecordExt) {
			continue
		}

		identity, err := readRecord(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		identities = append(identities, identity)
	}

	sort.SliceStable(identities, func(i, j int) bool {
		if !identities[i].EnrolledAt.Equal(identities[j].EnrolledAt) {
			return identities[i].EnrolledAt.Before(identities[j].EnrolledAt)
		}
		return identities[i].AccountID < identities[j].AccountID
	})

	return identities, nil
}

func readRecord(path string) (*domain.EnrolledIdentity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read record %s: %w", filepath.Base(path), err)
	}

	rec := fileRecord{EnrolledIdentity: &domain.EnrolledIdentity{}}
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse record %s: %w", filepath.Base(path), err)
	}
	if rec.Version != fileRecordVersion {
		return nil, fmt.Errorf("record %s: unsupported version %d", filepath.Base(path), rec.Version)
	}
	if rec.AccountID == "" || len(rec.Embeddings) == 0 {
		return nil, fmt.Errorf("record %s: missing account_id or embeddings", filepath.Base(path))
	}
	return rec.EnrolledIdentity, nil
}

// Append writes identity to <dir>/<escaped account id>.json.
func (s *FileStore) Append(ctx context.Context, identity *domain.EnrolledIdentity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if identity.ID == uuid.Nil {
		identity.ID = uuid.New()
	}

	data, err := json.Marshal(fileRecord{Version: fileRecordVersion, EnrolledIdentity: identity})
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target := filepath.Join(s.dir, accountFileName(identity.AccountID))

	tmp, err := os.CreateTemp(s.dir, ".identity-*")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp record: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp record: %w", err)
	}

	// Link fails when target exists, which makes the create exclusive.
	if err := os.Link(tmpName, target); err != nil {
		if errors.Is(err, os.ErrExist) {
			return domain.ErrDuplicateAccount.WithError(err)
		}
		return fmt.Errorf("publish record: %w", err)
	}

	return nil
}

// accountFileName escapes path separators so an account id always maps to
// a single file inside the store directory.
func accountFileName(accountID string) string {
	return url.PathEscape(accountID) + fileRecordExt
}
