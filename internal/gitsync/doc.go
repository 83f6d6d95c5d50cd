// Package gitsync keeps one local working copy of a remote git repository
// up to date.
//
// A Synchronizer owns a single directory. Each Sync call ends in exactly one
// of three outcomes:
//
//   - the directory is missing (or empty): shallow clone;
//   - the directory is a repository whose origin equals the requested URL:
//     incremental pull of the remote default branch;
//   - anything else (origin mismatch, unreadable repository, failed pull):
//     delete the directory and clone again.
//
// The working copy is disposable. Any state the synchronizer cannot reuse is
// thrown away rather than repaired. Sync serializes callers with an
// in-process lock and a lock file next to the directory, so several
// handlers (or processes sharing the disk) never interleave a delete with a
// read.
package gitsync
