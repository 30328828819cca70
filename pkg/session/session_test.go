package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	errs "github.com/matzehuels/phaseflow/pkg/errors"
	"github.com/matzehuels/phaseflow/pkg/flow"
)

func testFlow() flow.ProcessFlow {
	return flow.ProcessFlow{Phases: []flow.Phase{{
		Phase:       "Load",
		Description: "read input",
		Code:        []string{"open()"},
	}}}
}

func TestNew(t *testing.T) {
	sess, err := New(testFlow(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if !ValidID(sess.ID) {
		t.Errorf("ID = %q, want a uuid", sess.ID)
	}
	if got := sess.ExpiresAt.Sub(sess.CreatedAt); got != DefaultTTL {
		t.Errorf("ttl = %v, want %v", got, DefaultTTL)
	}
	if sess.Expanded == nil || len(sess.Expanded) != 0 {
		t.Errorf("Expanded = %v, want empty", sess.Expanded)
	}
	if sess.IsExpired() {
		t.Error("new session is expired")
	}
}

func TestValidID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"3f1c8b6e-2f55-4a57-9a61-1e9d8f1f3a10", true},
		{"", false},
		{"../etc/passwd", false},
		{"abc", false},
	}
	for _, tt := range tests {
		if got := ValidID(tt.id); got != tt.want {
			t.Errorf("ValidID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestStores(t *testing.T) {
	stores := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"file": func(t *testing.T) Store {
			s, err := NewFileStore(t.TempDir())
			if err != nil {
				t.Fatal(err)
			}
			return s
		},
	}
	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			defer s.Close()

			sess, _ := New(testFlow(), time.Hour)
			if err := s.Set(ctx, sess); err != nil {
				t.Fatalf("Set: %v", err)
			}

			got, err := s.Get(ctx, sess.ID)
			if err != nil || got == nil {
				t.Fatalf("Get = %v, %v", got, err)
			}
			if got.Flow.Phases[0].Phase != "Load" {
				t.Errorf("Flow = %+v", got.Flow)
			}

			got.SetExpanded([]string{"phase-0"}, time.Hour)
			if err := s.Set(ctx, got); err != nil {
				t.Fatal(err)
			}
			again, _ := s.Get(ctx, sess.ID)
			if len(again.Expanded) != 1 || again.Expanded[0] != "phase-0" {
				t.Errorf("Expanded = %v, want [phase-0]", again.Expanded)
			}

			if err := s.Delete(ctx, sess.ID); err != nil {
				t.Fatal(err)
			}
			if got, _ := s.Get(ctx, sess.ID); got != nil {
				t.Error("Get after Delete should return nil")
			}
			if err := s.Delete(ctx, sess.ID); err != nil {
				t.Errorf("second Delete: %v", err)
			}
		})

		t.Run(name+"/expired", func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			sess, _ := New(testFlow(), time.Hour)
			sess.ExpiresAt = time.Now().Add(-time.Minute)
			if err := s.Set(ctx, sess); err != nil {
				t.Fatal(err)
			}
			if got, _ := s.Get(ctx, sess.ID); got != nil {
				t.Error("expired session returned")
			}
			if err := s.Cleanup(ctx); err != nil {
				t.Errorf("Cleanup: %v", err)
			}
		})
	}
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	sess, _ := New(testFlow(), time.Hour)
	sess.Expanded = []string{"phase-0"}
	s.Set(ctx, sess)

	sess.Expanded[0] = "mutated"
	got, _ := s.Get(ctx, sess.ID)
	if got.Expanded[0] != "phase-0" {
		t.Error("store shares the caller's slice")
	}
}

func TestMemoryStoreCleanup(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	live, _ := New(testFlow(), time.Hour)
	dead, _ := New(testFlow(), time.Hour)
	dead.ExpiresAt = time.Now().Add(-time.Second)
	s.Set(ctx, live)
	s.Set(ctx, dead)

	s.Cleanup(ctx)
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestFileStoreCleanup(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, _ := NewFileStore(dir)
	dead, _ := New(testFlow(), time.Hour)
	dead.ExpiresAt = time.Now().Add(-time.Second)
	s.Set(ctx, dead)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep"), 0o600)
	torn := filepath.Join(dir, "7b0e4c2a-1f1d-4c55-9d1e-0b5d3c2a9e11.json")
	os.WriteFile(torn, []byte("{"), 0o600)

	if err := s.Cleanup(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, dead.ID+".json")); !os.IsNotExist(err) {
		t.Error("expired session file not removed")
	}
	if _, err := os.Stat(torn); !os.IsNotExist(err) {
		t.Error("unreadable session file not removed")
	}
	if _, err := os.Stat(filepath.Join(dir, "notes.txt")); err != nil {
		t.Error("unrelated file removed")
	}
}

func TestFileStoreOverwrite(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, _ := NewFileStore(dir)
	sess, _ := New(testFlow(), time.Hour)
	s.Set(ctx, sess)
	sess.SetExpanded([]string{"code-0"}, time.Hour)
	if err := s.Set(ctx, sess); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(ctx, sess.ID)
	if err != nil || got == nil {
		t.Fatalf("Get = %v, %v", got, err)
	}
	if len(got.Expanded) != 1 || got.Expanded[0] != "code-0" {
		t.Errorf("Expanded = %v", got.Expanded)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("dir has %d entries, want 1 (temp files left behind?)", len(entries))
	}
}

func TestFileStoreRejectsBadID(t *testing.T) {
	s, _ := NewFileStore(t.TempDir())
	sess := &Session{ID: "../escape", ExpiresAt: time.Now().Add(time.Hour)}
	if err := s.Set(context.Background(), sess); !errs.Is(err, errs.ErrCodeInvalidInput) {
		t.Errorf("Set error = %v, want INVALID_INPUT", err)
	}
	if got, err := s.Get(context.Background(), "../escape"); got != nil || err != nil {
		t.Errorf("Get = %v, %v", got, err)
	}
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, err := Load(ctx, s, "missing")
	if !errs.Is(err, errs.ErrCodeSessionNotFound) {
		t.Errorf("err = %v, want SESSION_NOT_FOUND", err)
	}

	sess, _ := New(testFlow(), time.Hour)
	s.Set(ctx, sess)
	got, err := Load(ctx, s, sess.ID)
	if err != nil || got.ID != sess.ID {
		t.Errorf("Load = %v, %v", got, err)
	}
}

func TestNewRedisStoreBadURL(t *testing.T) {
	if _, err := NewRedisStore(context.Background(), "not a url"); err == nil {
		t.Error("expected error for invalid url")
	}
}

func TestNewMongoStoreBadURI(t *testing.T) {
	if _, err := NewMongoStore(context.Background(), "not-a-uri", "", ""); err == nil {
		t.Error("expected error for invalid uri")
	}
}
