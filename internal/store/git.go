package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

var (
	ErrCommitFailed  = errors.New("commit failed")
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrSyncConflict  = errors.New("sync conflict")
	ErrNoRemote      = errors.New("no remote configured")
)

// Git drives the version-control backend for one repository directory by
// shelling out to the git binary.
type Git struct {
	dir string
}

func NewGit(dir string) *Git {
	return &Git{dir: dir}
}

// run executes git against the repository and returns trimmed combined
// output. Prompts and pagers are disabled so failures surface instead of
// hanging.
func (g *Git) run(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = g.dir
	cmd.Env = append(os.Environ(),
		"GIT_PAGER=cat",
		"GIT_TERMINAL_PROMPT=0",
		"GIT_SSH_COMMAND=ssh -oBatchMode=yes",
	)
	out, err := cmd.CombinedOutput()
	result := strings.TrimSpace(string(out))
	slog.Debug("git", "args", args, "err", err)
	if err != nil {
		if result != "" {
			return result, fmt.Errorf("git %s: %s", strings.Join(args, " "), result)
		}
		return result, fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return result, nil
}

// Init creates the repository if the directory is not one yet.
func (g *Git) Init() error {
	if _, err := os.Stat(g.dir + "/.git"); err == nil {
		return nil
	}
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return err
	}
	_, err := g.run("init")
	return err
}

func (g *Git) hasCommits() bool {
	_, err := g.run("rev-parse", "--verify", "HEAD")
	return err == nil
}

// CommitCount returns the depth of the current history.
func (g *Git) CommitCount() (int, error) {
	if !g.hasCommits() {
		return 0, nil
	}
	out, err := g.run("rev-list", "--count", "HEAD")
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(out)
}

// Add stages the given paths, or everything when none are given.
func (g *Git) Add(paths ...string) error {
	args := []string{"add"}
	if len(paths) == 0 {
		args = append(args, "-A")
	} else {
		args = append(args, "--")
		args = append(args, paths...)
	}
	_, err := g.run(args...)
	return err
}

// hasStagedChanges reports whether the index differs from HEAD.
func (g *Git) hasStagedChanges() bool {
	if !g.hasCommits() {
		out, err := g.run("status", "--porcelain")
		return err == nil && out != ""
	}
	_, err := g.run("diff", "--cached", "--quiet")
	return err != nil
}

// Commit records the staged changes. Committing with nothing staged is a
// no-op rather than an error.
func (g *Git) Commit(message string) error {
	if !g.hasStagedChanges() {
		return nil
	}
	if _, err := g.run("commit", "--no-gpg-sign", "-m", message); err != nil {
		return fmt.Errorf("%w: %v", ErrCommitFailed, err)
	}
	return nil
}

// IsTracked reports whether the path is known to the index.
func (g *Git) IsTracked(path string) bool {
	out, err := g.run("ls-files", "--", path)
	return err == nil && out != ""
}

// Rollback restores every tracked file to its committed content. Untracked
// files are left alone; the caller decides which of its own creations to
// take back.
func (g *Git) Rollback() error {
	if !g.hasCommits() {
		return nil
	}
	_, err := g.run("reset", "--hard", "HEAD")
	return err
}

// Undo discards the most recent n commits entirely, restoring the working
// tree to the state before them.
func (g *Git) Undo(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: %d commits requested", ErrNothingToUndo, n)
	}
	count, err := g.CommitCount()
	if err != nil {
		return err
	}
	if count == 0 || n > count {
		return fmt.Errorf("%w: history has %d commits, %d requested", ErrNothingToUndo, count, n)
	}
	if n == count {
		// Undoing the entire history: drop the branch ref, empty the
		// index and sweep the now-untracked files.
		if _, err := g.run("update-ref", "-d", "HEAD"); err != nil {
			return err
		}
		if _, err := g.run("read-tree", "--empty"); err != nil {
			return err
		}
		_, err := g.run("clean", "-fd")
		return err
	}
	_, err = g.run("reset", "--hard", fmt.Sprintf("HEAD~%d", n))
	return err
}

// Sync pulls remote changes then pushes local commits against the first
// configured remote, establishing the upstream tracking relationship on
// first use. Merge conflicts are surfaced rather than resolved; the merge
// is aborted so local state stays untouched.
func (g *Git) Sync() error {
	remotes, err := g.run("remote")
	if err != nil {
		return err
	}
	if remotes == "" {
		return ErrNoRemote
	}
	remote := strings.Fields(remotes)[0]

	branch, err := g.run("rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return err
	}

	if out, err := g.run("pull", "--no-rebase", remote, branch); err != nil {
		if strings.Contains(out, "CONFLICT") || strings.Contains(out, "Automatic merge failed") {
			_, _ = g.run("merge", "--abort")
			return fmt.Errorf("%w: %s", ErrSyncConflict, out)
		}
		// A brand new remote has no branch to pull yet.
		if !strings.Contains(out, "couldn't find remote ref") {
			return err
		}
	}

	_, err = g.run("push", "-u", remote, branch)
	return err
}

// RunRaw passes arbitrary arguments through to git against the repository,
// returning the raw output.
func (g *Git) RunRaw(args ...string) (string, error) {
	return g.run(args...)
}
