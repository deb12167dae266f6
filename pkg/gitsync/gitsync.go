// Package gitsync keeps the challenge repository's working tree synced with
// a remote git branch, per spec.md §4.C. It wraps go-git/go-git/v5, the
// pure-Go analogue of the original implementation's pure-Rust gix client
// (original_source/crates/manager/src/repo/git.rs): shallow clone,
// replacement of an existing tree via a temp-dir clone plus rename-or-copy
// fallback, and HEAD commit inspection.
package gitsync

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/rs/zerolog"

	"github.com/flagforge/ctfmanager/pkg/log"
)

// Kind classifies a sync failure per spec.md §4.C.
type Kind string

const (
	NetworkError Kind = "network_error"
	AuthError    Kind = "auth_error"
	DirExists    Kind = "dir_exists"
	IoError      Kind = "io_error"
	Other        Kind = "other"
)

// Error is a classified gitsync failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Op)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// CommitInfo describes the HEAD commit of a synced repository.
type CommitInfo struct {
	Hash   string
	UnixTs int64
	Author string
	Title  string
}

var logger = log.WithComponent("gitsync")

// Sync ensures dest holds a shallow, single-branch checkout of url@branch.
// If dest/.git already exists, a fresh clone is made into a temp directory,
// the old tree is removed, and the clone is renamed into place (falling back
// to a recursive copy across filesystems); the swap is not atomic. If dest exists and is non-empty but isn't a git repo, Sync
// fails with DirExists.
func Sync(dest, url, branch string) error {
	l := logger.With().Str("url", url).Str("branch", branch).Logger()

	if _, err := os.Stat(filepath.Join(dest, ".git")); err == nil {
		return syncExisting(l, dest, url, branch)
	}

	if entries, err := os.ReadDir(dest); err == nil && len(entries) > 0 {
		return newErr(DirExists, "sync", fmt.Errorf("%s exists and is not empty", dest))
	}

	l.Info().Msg("cloning repository")
	return shallowClone(url, branch, dest)
}

func syncExisting(l zerolog.Logger, dest, url, branch string) error {
	tmp, err := os.MkdirTemp("", "gitsync-*")
	if err != nil {
		return newErr(IoError, "mkdir temp", err)
	}
	defer os.RemoveAll(tmp)

	tmpRepo := filepath.Join(tmp, "repo")
	l.Info().Msg("re-cloning repository to temp dir before swap")
	if err := shallowClone(url, branch, tmpRepo); err != nil {
		return err
	}

	if err := os.RemoveAll(dest); err != nil {
		return newErr(IoError, "remove old tree", err)
	}

	if err := os.Rename(tmpRepo, dest); err == nil {
		return nil
	}

	l.Warn().Msg("rename across filesystems failed, falling back to recursive copy")
	if err := copyDir(tmpRepo, dest); err != nil {
		return newErr(IoError, "copy new tree into place", err)
	}
	return nil
}

func shallowClone(url, branch, dest string) error {
	_, err := git.PlainClone(dest, false, &git.CloneOptions{
		URL:           url,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
		Depth:         1,
	})
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, transport.ErrAuthenticationRequired), errors.Is(err, transport.ErrAuthorizationFailed):
		return newErr(AuthError, "clone", err)
	case errors.Is(err, transport.ErrRepositoryNotFound):
		return newErr(NetworkError, "clone", err)
	}
	return newErr(Other, "clone", err)
}

func copyDir(src, dst string) error {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, e := range entries {
		s := filepath.Join(src, e.Name())
		d := filepath.Join(dst, e.Name())
		if e.IsDir() {
			if err := copyDir(s, d); err != nil {
				return err
			}
			continue
		}
		if e.Type()&os.ModeSymlink != 0 {
			continue
		}
		if err := copyFile(s, d); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

// HeadInfo returns the HEAD commit's metadata, or (nil, nil) if dest is not
// a git repository.
func HeadInfo(dest string) (*CommitInfo, error) {
	repo, err := git.PlainOpen(dest)
	if err != nil {
		return nil, nil
	}
	head, err := repo.Head()
	if err != nil {
		return nil, nil
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, nil
	}

	title := commit.Message
	if idx := indexOfNewline(title); idx >= 0 {
		title = title[:idx]
	}

	return &CommitInfo{
		Hash:   commit.Hash.String(),
		UnixTs: commit.Committer.When.Unix(),
		Author: commit.Committer.Name,
		Title:  title,
	}, nil
}

func indexOfNewline(s string) int {
	for i, r := range s {
		if r == '\n' {
			return i
		}
	}
	return -1
}
