package gitsync

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// sourceRepo is a local repository acting as the remote.
type sourceRepo struct {
	t    *testing.T
	dir  string
	repo *git.Repository
}

func newSourceRepo(t *testing.T, files map[string]string) *sourceRepo {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("Failed to init source repository: %v", err)
	}
	src := &sourceRepo{t: t, dir: dir, repo: repo}
	src.commit("Initial commit", files)
	return src
}

func (s *sourceRepo) commit(msg string, files map[string]string) {
	s.t.Helper()

	wt, err := s.repo.Worktree()
	if err != nil {
		s.t.Fatalf("Failed to get source worktree: %v", err)
	}
	for name, content := range files {
		path := filepath.Join(s.dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			s.t.Fatalf("Failed to create dir for %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			s.t.Fatalf("Failed to write %s: %v", name, err)
		}
		if _, err := wt.Add(name); err != nil {
			s.t.Fatalf("Failed to add %s: %v", name, err)
		}
	}
	_, err = wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Test Author",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		s.t.Fatalf("Failed to commit: %v", err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path) // #nosec G304 -- test path
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}
	return string(data)
}

// ---------------------------------------------------------------------------
// TestSync_FreshClone - Missing working copy is cloned
// ---------------------------------------------------------------------------

func TestSync_FreshClone(t *testing.T) {
	t.Parallel()

	src := newSourceRepo(t, map[string]string{"cv.md": "# Jane Doe\n"})
	workDir := filepath.Join(t.TempDir(), "cv_repo")

	s := New(workDir)
	outcome, err := s.Sync(context.Background(), src.dir)
	if err != nil {
		t.Fatalf("Sync() unexpected error: %v", err)
	}
	if outcome != OutcomeCloned {
		t.Errorf("Sync() outcome = %v, want %v", outcome, OutcomeCloned)
	}
	if got := readFile(t, filepath.Join(workDir, "cv.md")); got != "# Jane Doe\n" {
		t.Errorf("cv.md = %q, want %q", got, "# Jane Doe\n")
	}

	origin, err := s.OriginURL()
	if err != nil {
		t.Fatalf("OriginURL() unexpected error: %v", err)
	}
	if origin != src.dir {
		t.Errorf("OriginURL() = %q, want %q", origin, src.dir)
	}
}

// ---------------------------------------------------------------------------
// TestSync_EmptyDirectory - Existing empty directory is treated as missing
// ---------------------------------------------------------------------------

func TestSync_EmptyDirectory(t *testing.T) {
	t.Parallel()

	src := newSourceRepo(t, map[string]string{"cv.md": "content"})
	workDir := filepath.Join(t.TempDir(), "cv_repo")
	if err := os.Mkdir(workDir, 0o750); err != nil {
		t.Fatalf("Failed to create work dir: %v", err)
	}

	outcome, err := New(workDir, WithDepth(0)).Sync(context.Background(), src.dir)
	if err != nil {
		t.Fatalf("Sync() unexpected error: %v", err)
	}
	if outcome != OutcomeCloned {
		t.Errorf("Sync() outcome = %v, want %v", outcome, OutcomeCloned)
	}
}

// ---------------------------------------------------------------------------
// TestSync_PicksUpNewCommit - Second sync sees content committed upstream
// ---------------------------------------------------------------------------

func TestSync_PicksUpNewCommit(t *testing.T) {
	t.Parallel()

	src := newSourceRepo(t, map[string]string{"cv.md": "v1"})
	workDir := filepath.Join(t.TempDir(), "cv_repo")
	s := New(workDir, WithDepth(0))

	if _, err := s.Sync(context.Background(), src.dir); err != nil {
		t.Fatalf("first Sync() unexpected error: %v", err)
	}

	src.commit("Update CV", map[string]string{"cv.md": "v2"})

	outcome, err := s.Sync(context.Background(), src.dir)
	if err != nil {
		t.Fatalf("second Sync() unexpected error: %v", err)
	}
	// A pull the library cannot apply falls back to a clone; either way
	// the working copy must match the remote.
	if outcome != OutcomeUpdated && outcome != OutcomeRecloned {
		t.Errorf("second Sync() outcome = %v, want updated or recloned", outcome)
	}
	if got := readFile(t, filepath.Join(workDir, "cv.md")); got != "v2" {
		t.Errorf("cv.md = %q, want %q", got, "v2")
	}
}

// ---------------------------------------------------------------------------
// TestSync_OriginChanged - A different URL replaces the working copy
// ---------------------------------------------------------------------------

func TestSync_OriginChanged(t *testing.T) {
	t.Parallel()

	first := newSourceRepo(t, map[string]string{"cv.md": "first"})
	second := newSourceRepo(t, map[string]string{"cv.md": "second"})
	workDir := filepath.Join(t.TempDir(), "cv_repo")
	s := New(workDir, WithDepth(0))

	if _, err := s.Sync(context.Background(), first.dir); err != nil {
		t.Fatalf("first Sync() unexpected error: %v", err)
	}

	outcome, err := s.Sync(context.Background(), second.dir)
	if err != nil {
		t.Fatalf("second Sync() unexpected error: %v", err)
	}
	if outcome != OutcomeRecloned {
		t.Errorf("Sync() outcome = %v, want %v", outcome, OutcomeRecloned)
	}
	origin, err := s.OriginURL()
	if err != nil {
		t.Fatalf("OriginURL() unexpected error: %v", err)
	}
	if origin != second.dir {
		t.Errorf("OriginURL() = %q, want %q", origin, second.dir)
	}
	if got := readFile(t, filepath.Join(workDir, "cv.md")); got != "second" {
		t.Errorf("cv.md = %q, want %q", got, "second")
	}
}

// ---------------------------------------------------------------------------
// TestSync_CorruptWorkingCopy - Non-repository contents are replaced
// ---------------------------------------------------------------------------

func TestSync_CorruptWorkingCopy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(t *testing.T, path string)
	}{
		{
			name: "directory without .git",
			setup: func(t *testing.T, path string) {
				if err := os.MkdirAll(path, 0o750); err != nil {
					t.Fatal(err)
				}
				if err := os.WriteFile(filepath.Join(path, "junk.txt"), []byte("junk"), 0o600); err != nil {
					t.Fatal(err)
				}
			},
		},
		{
			name: "regular file at path",
			setup: func(t *testing.T, path string) {
				if err := os.WriteFile(path, []byte("not a dir"), 0o600); err != nil {
					t.Fatal(err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := newSourceRepo(t, map[string]string{"cv.md": "fresh"})
			workDir := filepath.Join(t.TempDir(), "cv_repo")
			tt.setup(t, workDir)

			outcome, err := New(workDir, WithDepth(0)).Sync(context.Background(), src.dir)
			if err != nil {
				t.Fatalf("Sync() unexpected error: %v", err)
			}
			if outcome != OutcomeRecloned {
				t.Errorf("Sync() outcome = %v, want %v", outcome, OutcomeRecloned)
			}
			if _, err := os.Stat(filepath.Join(workDir, "junk.txt")); !os.IsNotExist(err) {
				t.Errorf("junk.txt still present after reclone (stat err = %v)", err)
			}
			if got := readFile(t, filepath.Join(workDir, "cv.md")); got != "fresh" {
				t.Errorf("cv.md = %q, want %q", got, "fresh")
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestSync_CloneFailure - Failed clone returns SyncError and leaves nothing
// ---------------------------------------------------------------------------

func TestSync_CloneFailure(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "does-not-exist")
	workDir := filepath.Join(t.TempDir(), "cv_repo")

	outcome, err := New(workDir).Sync(context.Background(), missing)
	if err == nil {
		t.Fatal("Sync() expected error, got nil")
	}
	if outcome != OutcomeNone {
		t.Errorf("Sync() outcome = %v, want %v", outcome, OutcomeNone)
	}

	var syncErr *SyncError
	if !errors.As(err, &syncErr) {
		t.Fatalf("Sync() error = %T, want *SyncError", err)
	}
	if syncErr.Op != "clone" {
		t.Errorf("SyncError.Op = %q, want %q", syncErr.Op, "clone")
	}
	if syncErr.Diagnostic() == "" {
		t.Error("SyncError.Diagnostic() is empty")
	}
	if _, statErr := os.Stat(workDir); !os.IsNotExist(statErr) {
		t.Errorf("work dir exists after failed clone (stat err = %v)", statErr)
	}
}

// ---------------------------------------------------------------------------
// TestSyncWith_HoldsLock - Callback runs while the working copy is locked
// ---------------------------------------------------------------------------

func TestSyncWith_HoldsLock(t *testing.T) {
	t.Parallel()

	src := newSourceRepo(t, map[string]string{"cv.md": "locked"})
	workDir := filepath.Join(t.TempDir(), "cv_repo")
	s := New(workDir, WithDepth(0))
	other := New(workDir, WithDepth(0), WithLockTimeout(200*time.Millisecond))

	var called bool
	_, err := s.SyncWith(context.Background(), src.dir, func(dir string) error {
		called = true
		if dir != workDir {
			t.Errorf("callback dir = %q, want %q", dir, workDir)
		}
		if got := readFile(t, filepath.Join(dir, "cv.md")); got != "locked" {
			t.Errorf("cv.md = %q, want %q", got, "locked")
		}
		if _, err := other.Sync(context.Background(), src.dir); !errors.Is(err, ErrLockTimeout) {
			t.Errorf("concurrent Sync() error = %v, want ErrLockTimeout", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("SyncWith() unexpected error: %v", err)
	}
	if !called {
		t.Error("SyncWith() did not call the callback")
	}

	// Lock is released afterwards.
	if _, err := other.Sync(context.Background(), src.dir); err != nil {
		t.Errorf("Sync() after release unexpected error: %v", err)
	}
}

// ---------------------------------------------------------------------------
// TestSyncWith_InProcessWaitBounded - Same-process waiters time out too
// ---------------------------------------------------------------------------

func TestSyncWith_InProcessWaitBounded(t *testing.T) {
	t.Parallel()

	src := newSourceRepo(t, map[string]string{"cv.md": "x"})
	s := New(filepath.Join(t.TempDir(), "cv_repo"), WithDepth(0), WithLockTimeout(200*time.Millisecond))

	_, err := s.SyncWith(context.Background(), src.dir, func(string) error {
		done := make(chan error, 1)
		go func() {
			_, err := s.Sync(context.Background(), src.dir)
			done <- err
		}()
		select {
		case err := <-done:
			if !errors.Is(err, ErrLockTimeout) {
				t.Errorf("concurrent Sync() error = %v, want ErrLockTimeout", err)
			}
		case <-time.After(10 * time.Second):
			t.Fatal("concurrent Sync() still waiting past the lock timeout")
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := s.Sync(ctx, src.dir); !errors.Is(err, context.Canceled) {
			t.Errorf("Sync() with canceled context error = %v, want context.Canceled", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("SyncWith() unexpected error: %v", err)
	}
}

// ---------------------------------------------------------------------------
// TestSyncWith_CallbackError - Callback errors are returned unchanged
// ---------------------------------------------------------------------------

func TestSyncWith_CallbackError(t *testing.T) {
	t.Parallel()

	src := newSourceRepo(t, map[string]string{"cv.md": "x"})
	s := New(filepath.Join(t.TempDir(), "cv_repo"), WithDepth(0))
	sentinel := errors.New("read failed")

	outcome, err := s.SyncWith(context.Background(), src.dir, func(string) error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Errorf("SyncWith() error = %v, want %v", err, sentinel)
	}
	if outcome != OutcomeCloned {
		t.Errorf("SyncWith() outcome = %v, want %v", outcome, OutcomeCloned)
	}
}

// ---------------------------------------------------------------------------
// TestSync_CanceledContext - Canceled context fails before touching disk
// ---------------------------------------------------------------------------

func TestSync_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	workDir := filepath.Join(t.TempDir(), "cv_repo")
	_, err := New(workDir).Sync(ctx, "https://example.invalid/cv.git")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Sync() error = %v, want context.Canceled", err)
	}
}

// ---------------------------------------------------------------------------
// TestOutcome_String - Outcome labels used in logs and metrics
// ---------------------------------------------------------------------------

func TestOutcome_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		outcome Outcome
		want    string
	}{
		{OutcomeNone, "none"},
		{OutcomeCloned, "cloned"},
		{OutcomeUpdated, "updated"},
		{OutcomeRecloned, "recloned"},
		{Outcome(42), "none"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			if got := tt.outcome.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
