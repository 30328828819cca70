package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	errs "github.com/matzehuels/phaseflow/pkg/errors"
)

const sessionExt = ".json"

// FileStore keeps one JSON document per session in a directory. Writes go
// through a temp file and a rename so a crash never leaves a torn session.
type FileStore struct {
	mu  sync.RWMutex
	dir string
}

// NewFileStore creates a file-based session store in dir, or in
// $XDG_CONFIG_HOME/phaseflow/sessions when dir is empty.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("get config dir: %w", err)
		}
		dir = filepath.Join(base, "phaseflow", "sessions")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Path returns the directory holding session files.
func (s *FileStore) Path() string { return s.dir }

func (s *FileStore) file(id string) string {
	return filepath.Join(s.dir, id+sessionExt)
}

func (s *FileStore) Get(ctx context.Context, id string) (*Session, error) {
	// Ids are file names; anything that is not a uuid cannot exist.
	if !ValidID(id) {
		return nil, nil
	}
	s.mu.RLock()
	sess, err := readSessionFile(s.file(id))
	s.mu.RUnlock()
	if err != nil || sess == nil {
		return nil, err
	}
	if sess.IsExpired() {
		_ = s.Delete(ctx, id)
		return nil, nil
	}
	return sess, nil
}

func (s *FileStore) Set(_ context.Context, sess *Session) error {
	if !ValidID(sess.ID) {
		return errs.New(errs.ErrCodeInvalidInput, "invalid session id %q", sess.ID)
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tmp, err := os.CreateTemp(s.dir, sess.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("write session %s: %w", sess.ID, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write session %s: %w", sess.ID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write session %s: %w", sess.ID, err)
	}
	if err := os.Rename(tmp.Name(), s.file(sess.ID)); err != nil {
		return fmt.Errorf("write session %s: %w", sess.ID, err)
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, id string) error {
	if !ValidID(id) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.file(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// Cleanup removes expired and unreadable session files.
func (s *FileStore) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	now := time.Now()
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, sessionExt) {
			continue
		}
		path := filepath.Join(s.dir, name)
		sess, err := readSessionFile(path)
		if err != nil || (sess != nil && now.After(sess.ExpiresAt)) {
			os.Remove(path)
		}
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

// readSessionFile returns nil, nil when path does not exist.
func readSessionFile(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", filepath.Base(path), err)
	}
	return &sess, nil
}

var _ Store = (*FileStore)(nil)
