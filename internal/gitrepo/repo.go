// Package gitrepo resolves commit ids and metadata by shelling out to git.
package gitrepo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/tinytelemetry/logluts/internal/model"
)

var (
	// ErrRepoNotFound is returned by Open when path is not a git repository.
	ErrRepoNotFound = errors.New("gitrepo: couldn't find git repo")
	// ErrCommitNotFound is returned by Lookup when an id no longer resolves.
	ErrCommitNotFound = errors.New("gitrepo: commit not found")
)

// Repo is a git repository addressed by its git directory.
type Repo struct {
	gitDir string

	// Branch, when set, is resolved by Current instead of HEAD.
	Branch string
}

var _ model.CommitResolver = (*Repo)(nil)

// Open accepts either a worktree or a .git directory.
func Open(ctx context.Context, path string) (*Repo, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRepoNotFound, path)
	}

	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--absolute-git-dir")
	cmd.Dir = path
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s", ErrRepoNotFound, path)
	}
	return &Repo{gitDir: strings.TrimSpace(string(out))}, nil
}

// Current returns the short id of the branch tip, or of HEAD when the
// checkout is detached.
func (r *Repo) Current(ctx context.Context) (string, error) {
	rev := "HEAD"
	if r.Branch != "" {
		rev = "refs/heads/" + r.Branch
	} else if branch, err := r.git(ctx, "symbolic-ref", "--quiet", "--short", "HEAD"); err == nil {
		rev = "refs/heads/" + branch
	}

	id, err := r.git(ctx, "rev-parse", "--short", "--verify", rev+"^{commit}")
	if err != nil {
		return "", fmt.Errorf("gitrepo: resolve %s: %w", rev, err)
	}
	return id, nil
}

// Lookup returns the committer date and first-line message for id.
func (r *Repo) Lookup(ctx context.Context, id string) (model.CommitInfo, error) {
	hash, err := r.git(ctx, "rev-parse", "--verify", "--quiet", id+"^{commit}")
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return model.CommitInfo{}, fmt.Errorf("%w: %s", ErrCommitNotFound, id)
		}
		return model.CommitInfo{}, fmt.Errorf("gitrepo: lookup %s: %w", id, err)
	}

	out, err := r.git(ctx, "show", "-s", "--format=%H%n%h%n%cI%n%s", hash)
	if err != nil {
		return model.CommitInfo{}, fmt.Errorf("gitrepo: show %s: %w", id, err)
	}
	return parseShow(id, out)
}

func parseShow(id, out string) (model.CommitInfo, error) {
	lines := strings.SplitN(out, "\n", 4)
	if len(lines) < 3 {
		return model.CommitInfo{}, fmt.Errorf("gitrepo: unexpected show output for %s: %q", id, out)
	}
	date, err := time.Parse(time.RFC3339, strings.TrimSpace(lines[2]))
	if err != nil {
		return model.CommitInfo{}, fmt.Errorf("gitrepo: parse date for %s: %w", id, err)
	}
	info := model.CommitInfo{
		ID:   id,
		Hash: strings.TrimSpace(lines[0]),
		Date: date,
	}
	if len(lines) == 4 {
		info.Message = strings.TrimSpace(lines[3])
	}
	return info, nil
}

func (r *Repo) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"--git-dir=" + r.gitDir}, args...)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%w: %s", err, msg)
		}
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
