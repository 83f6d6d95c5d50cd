package gitsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-git/go-git/v5"
	logger "github.com/sirupsen/logrus"

	"github.com/DigitumDei/cvserve/internal/metrics"
)

// update attempts the incremental path: open, verify origin, pull.
// Any error means the caller should remove the copy and clone again.
func (s *Synchronizer) update(ctx context.Context, repoURL string, log *logger.Entry) error {
	repo, err := git.PlainOpen(s.path)
	if err != nil {
		return fmt.Errorf("opening working copy: %w", err)
	}

	current, err := originURL(repo)
	if err != nil {
		return err
	}
	if current != repoURL {
		log.Infof("[gitsync] Origin changed from %s", RedactURL(current))
		return ErrOriginMismatch
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("opening worktree: %w", err)
	}

	pull := func() (struct{}, error) {
		err := wt.PullContext(ctx, &git.PullOptions{
			RemoteName:   git.DefaultRemoteName,
			Depth:        s.depth,
			SingleBranch: true,
			Force:        true,
		})
		switch {
		case err == nil, errors.Is(err, git.NoErrAlreadyUpToDate):
			return struct{}{}, nil
		case isTransient(err):
			return struct{}{}, err
		default:
			return struct{}{}, backoff.Permanent(err)
		}
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = s.retryInterval

	_, err = backoff.Retry(ctx, pull,
		backoff.WithBackOff(exp),
		backoff.WithMaxTries(uint(s.pullRetries+1)), // #nosec G115 -- pullRetries is validated non-negative
		backoff.WithNotify(func(err error, next time.Duration) {
			metrics.GitPullRetries.Inc()
			log.WithError(err).Warnf("[gitsync] Pull failed, retrying in %s", next)
		}),
	)
	if err != nil {
		return fmt.Errorf("pulling: %w", err)
	}
	return nil
}

// originURL returns the first configured URL of the origin remote.
func originURL(repo *git.Repository) (string, error) {
	remote, err := repo.Remote(git.DefaultRemoteName)
	if err != nil {
		if errors.Is(err, git.ErrRemoteNotFound) {
			return "", ErrNoOrigin
		}
		return "", fmt.Errorf("reading origin: %w", err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", ErrNoOrigin
	}
	return urls[0], nil
}

// isTransient reports whether err looks like a network hiccup worth retrying.
// Cancellation and deadline errors never are.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTimeout || dnsErr.IsTemporary
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
