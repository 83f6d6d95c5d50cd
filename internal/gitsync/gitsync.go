package gitsync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/gofrs/flock"
	logger "github.com/sirupsen/logrus"

	"github.com/DigitumDei/cvserve/internal/fileutil"
	"github.com/DigitumDei/cvserve/internal/metrics"
)

// Defaults for a Synchronizer created without options.
const (
	DefaultDepth         = 1
	DefaultPullRetries   = 2
	defaultRetryInterval = 500 * time.Millisecond
	defaultLockTimeout   = 2 * time.Minute
	lockPollInterval     = 100 * time.Millisecond
)

// Synchronizer maintains the working copy at a fixed path.
// It is safe for concurrent use.
type Synchronizer struct {
	path          string
	depth         int
	pullRetries   int
	retryInterval time.Duration
	lockTimeout   time.Duration

	sem  chan struct{} // in-process lock; a channel so waiting honours ctx
	lock *flock.Flock
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithDepth sets the clone and pull depth. 0 fetches full history.
func WithDepth(n int) Option {
	return func(s *Synchronizer) {
		if n >= 0 {
			s.depth = n
		}
	}
}

// WithPullRetries sets how many times a pull failing with a transient
// network error is retried before falling back to a fresh clone.
func WithPullRetries(n int) Option {
	return func(s *Synchronizer) {
		if n >= 0 {
			s.pullRetries = n
		}
	}
}

// WithRetryInterval sets the initial backoff between pull retries.
func WithRetryInterval(d time.Duration) Option {
	return func(s *Synchronizer) {
		if d > 0 {
			s.retryInterval = d
		}
	}
}

// WithLockTimeout bounds how long Sync waits for the working copy lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Synchronizer) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// New creates a Synchronizer for the working copy at path. The path and its
// lock file (path + ".lock") are created on demand.
func New(path string, opts ...Option) *Synchronizer {
	path = filepath.Clean(path)
	s := &Synchronizer{
		path:          path,
		depth:         DefaultDepth,
		pullRetries:   DefaultPullRetries,
		retryInterval: defaultRetryInterval,
		lockTimeout:   defaultLockTimeout,
		sem:           make(chan struct{}, 1),
		lock:          flock.New(path + ".lock"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the working copy directory.
func (s *Synchronizer) Path() string {
	return s.path
}

// Sync brings the working copy in line with repoURL.
func (s *Synchronizer) Sync(ctx context.Context, repoURL string) (Outcome, error) {
	return s.SyncWith(ctx, repoURL, nil)
}

// SyncWith syncs and then calls fn with the working copy directory while
// still holding the lock, so no concurrent Sync can remove the tree
// underneath fn. fn is not called if the sync fails.
func (s *Synchronizer) SyncWith(ctx context.Context, repoURL string, fn func(dir string) error) (Outcome, error) {
	unlock, err := s.acquire(ctx)
	if err != nil {
		return OutcomeNone, err
	}
	defer unlock()

	outcome, err := s.sync(ctx, repoURL)
	if err != nil {
		return outcome, err
	}
	if fn == nil {
		return outcome, nil
	}
	return outcome, fn(s.path)
}

// OriginURL reports the origin URL recorded in the working copy.
func (s *Synchronizer) OriginURL() (string, error) {
	repo, err := git.PlainOpen(s.path)
	if err != nil {
		return "", err
	}
	return originURL(repo)
}

// acquire takes the in-process lock, then the cross-process file lock.
// Both waits share one lockTimeout budget.
func (s *Synchronizer) acquire(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	select {
	case s.sem <- struct{}{}:
	case <-lockCtx.Done():
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("locking %s: %w", s.path, ErrLockTimeout)
	}
	release := func() { <-s.sem }

	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		release()
		return nil, fmt.Errorf("creating parent of %s: %w", s.path, err)
	}

	locked, err := s.lock.TryLockContext(lockCtx, lockPollInterval)
	if err != nil || !locked {
		release()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err == nil || errors.Is(err, context.DeadlineExceeded) {
			err = ErrLockTimeout
		}
		return nil, fmt.Errorf("locking %s: %w", s.lock.Path(), err)
	}

	return func() {
		_ = s.lock.Unlock()
		release()
	}, nil
}

// sync runs the three-way decision and records the result.
func (s *Synchronizer) sync(ctx context.Context, repoURL string) (Outcome, error) {
	start := time.Now()
	log := logger.WithFields(logger.Fields{"path": s.path, "repo": RedactURL(repoURL)})

	outcome, err := s.reconcile(ctx, repoURL, log)

	label := outcome.String()
	if err != nil {
		label = "failed"
	}
	metrics.GitSync(label, start)

	log = log.WithFields(logger.Fields{"outcome": label, "duration": time.Since(start).String()})
	if err != nil {
		log.WithError(err).Error("[gitsync] Synchronization failed")
		return outcome, err
	}
	log.Info("[gitsync] Synchronization complete")
	return outcome, nil
}

func (s *Synchronizer) reconcile(ctx context.Context, repoURL string, log *logger.Entry) (Outcome, error) {
	exists, err := fileutil.DirExists(s.path)
	switch {
	case !exists:
		log.Infof("[gitsync] Cloning into %s", s.path)
		if err := s.clone(ctx, repoURL); err != nil {
			return OutcomeNone, err
		}
		return OutcomeCloned, nil

	case err == nil:
		if empty, emptyErr := fileutil.IsEmptyDir(s.path); emptyErr == nil && empty {
			log.Infof("[gitsync] Cloning into empty %s", s.path)
			if err := s.clone(ctx, repoURL); err != nil {
				return OutcomeNone, err
			}
			return OutcomeCloned, nil
		}

		err = s.update(ctx, repoURL, log)
		if err == nil {
			return OutcomeUpdated, nil
		}
	}

	log.WithError(err).Warn("[gitsync] Existing working copy unusable, re-cloning")

	if rmErr := os.RemoveAll(s.path); rmErr != nil {
		return OutcomeNone, &SyncError{Op: "remove", URL: repoURL, Err: rmErr}
	}
	if err := s.clone(ctx, repoURL); err != nil {
		return OutcomeNone, err
	}
	return OutcomeRecloned, nil
}

// clone performs a fresh (shallow by default) clone. A failed clone leaves
// no directory behind so the next call starts from the missing-copy state.
func (s *Synchronizer) clone(ctx context.Context, repoURL string) error {
	var progress bytes.Buffer
	_, err := git.PlainCloneContext(ctx, s.path, false, &git.CloneOptions{
		URL:          repoURL,
		RemoteName:   git.DefaultRemoteName,
		Depth:        s.depth,
		SingleBranch: true,
		Tags:         git.NoTags,
		Progress:     &progress,
	})
	if err != nil {
		_ = os.RemoveAll(s.path)
		return &SyncError{Op: "clone", URL: repoURL, Output: progress.String(), Err: err}
	}
	return nil
}
