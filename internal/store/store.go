// Package store persists tasks as individually addressable files inside a
// version-controlled repository and wraps every mutation in commits.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"tasket/internal/task"
)

var (
	ErrRepoUnavailable = errors.New("repository unavailable")

	timeNow = func() time.Time { return time.Now() }
)

// Bulk commit strategies.
const (
	StrategyPerTask = "per_task"
	StrategySingle  = "single"
)

// ValidStrategy reports whether s names a known commit strategy.
func ValidStrategy(s string) bool {
	return s == StrategyPerTask || s == StrategySingle
}

// touchedFile records the files changed for one task by the current logical
// operation, in the order tasks were touched.
type touchedFile struct {
	paths   []string
	summary string
}

// Store owns the repository directory. One Store serves one logical command
// invocation: writes accumulate in the working tree and land in history via
// Commit, or are rolled back wholesale on failure.
type Store struct {
	Root     string
	Strategy string

	git     *Git
	touched []touchedFile
}

// Open prepares the repository at root, auto-initializing an empty
// versioned repository on first run.
func Open(root, strategy string) (*Store, error) {
	if strategy == "" {
		strategy = StrategyPerTask
	}
	if !ValidStrategy(strategy) {
		return nil, fmt.Errorf("unknown commit strategy %q", strategy)
	}
	if info, err := os.Stat(root); err == nil && !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrRepoUnavailable, root)
	}
	s := &Store{Root: root, Strategy: strategy, git: NewGit(root)}
	if err := s.git.Init(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRepoUnavailable, err)
	}
	return s, nil
}

// LoadAll reads every task file in the repository and assigns transient IDs.
// Both the current frontmatter layout (.md) and the legacy header-only
// layout (.yml) are recognized; when both exist for one key the current
// layout wins.
func (s *Store) LoadAll() (*TaskSet, error) {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRepoUnavailable, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	// .md before .yml so the current layout shadows a legacy leftover.
	sort.Slice(names, func(i, j int) bool {
		im, jm := strings.HasSuffix(names[i], ".md"), strings.HasSuffix(names[j], ".md")
		if im != jm {
			return im
		}
		return names[i] < names[j]
	})

	ts := NewTaskSet()
	for _, name := range names {
		ext := filepath.Ext(name)
		if ext != ".md" && ext != ".yml" {
			continue
		}
		key := strings.TrimSuffix(name, ext)
		if !task.ValidKey(key) {
			return nil, fmt.Errorf("%w %s: file name does not encode a task key", task.ErrCorruptFile, name)
		}
		if _, dup := ts.GetByKey(key); dup {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.Root, name))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRepoUnavailable, err)
		}
		t, err := task.Unmarshal(key, data)
		if err != nil {
			return nil, err
		}
		if err := ts.Add(t); err != nil {
			return nil, err
		}
	}
	ts.AssignIDs()
	return ts, nil
}

// Save writes a single task file and records it for the pending commit.
// A task read from the legacy layout is rewritten in place and its old file
// staged for deletion.
func (s *Store) Save(t *task.Task) error {
	data, err := task.Marshal(t)
	if err != nil {
		return err
	}
	path := s.taskPath(t.Key, ".md")
	if err := atomicWriteFile(path, data, 0o644); err != nil {
		s.rollbackOnError()
		return fmt.Errorf("%w: %v", ErrCommitFailed, err)
	}
	paths := []string{path}
	if legacy := s.taskPath(t.Key, ".yml"); fileExists(legacy) {
		// A never-committed legacy file has no deletion to stage; naming
		// it in the commit pathspec would make git refuse the whole add.
		tracked := s.git.IsTracked(legacy)
		if err := os.Remove(legacy); err != nil {
			s.rollbackOnError()
			return fmt.Errorf("%w: %v", ErrCommitFailed, err)
		}
		if tracked {
			paths = append(paths, legacy)
		}
	}
	t.WritePending = false
	s.touch(t.Summary, paths...)
	return nil
}

// Remove deletes the task's file and records the deletion for the pending
// commit.
func (s *Store) Remove(t *task.Task) error {
	var removed []string
	for _, ext := range []string{".md", ".yml"} {
		path := s.taskPath(t.Key, ext)
		if !fileExists(path) {
			continue
		}
		if err := os.Remove(path); err != nil {
			s.rollbackOnError()
			return fmt.Errorf("%w: %v", ErrCommitFailed, err)
		}
		removed = append(removed, path)
	}
	t.Deleted = true
	if len(removed) > 0 {
		s.touch(t.Summary, removed...)
	}
	return nil
}

// SavePending flushes every task marked write-pending, in set order.
func (s *Store) SavePending(ts *TaskSet) error {
	for _, t := range ts.All() {
		if !t.WritePending {
			continue
		}
		if err := s.Save(t); err != nil {
			return err
		}
	}
	return nil
}

// Commit records the current logical operation in history per the
// configured strategy: one commit per touched task, or a single commit
// covering every changed file. On failure the working tree is rolled back
// so no partial state is left behind.
func (s *Store) Commit(description string) error {
	if len(s.touched) == 0 {
		return nil
	}
	defer func() { s.touched = nil }()

	switch s.Strategy {
	case StrategySingle:
		if err := s.git.Add(); err != nil {
			s.rollbackOnError()
			return fmt.Errorf("%w: %v", ErrCommitFailed, err)
		}
		if err := s.git.Commit(description); err != nil {
			s.rollbackOnError()
			return err
		}
	default:
		for _, f := range s.touched {
			if err := s.git.Add(f.paths...); err != nil {
				s.rollbackOnError()
				return fmt.Errorf("%w: %v", ErrCommitFailed, err)
			}
			if err := s.git.Commit(fmt.Sprintf("%s: %s", description, f.summary)); err != nil {
				s.rollbackOnError()
				return err
			}
		}
	}
	return nil
}

// Undo discards the most recent n commits entirely.
func (s *Store) Undo(n int) error {
	return s.git.Undo(n)
}

// Sync pulls then pushes against the configured remote.
func (s *Store) Sync() error {
	return s.git.Sync()
}

// RunRaw passes arguments straight through to the version-control tool.
func (s *Store) RunRaw(args ...string) (string, error) {
	return s.git.RunRaw(args...)
}

func (s *Store) touch(summary string, paths ...string) {
	for i, have := range s.touched {
		if have.paths[0] == paths[0] {
			s.touched[i].paths = paths
			s.touched[i].summary = summary
			return
		}
	}
	s.touched = append(s.touched, touchedFile{paths: paths, summary: summary})
}

// rollbackOnError restores the working tree after a failed write so the
// repository observes either the full pre-state or full post-state. Tracked
// files return to their committed content; of the untracked files only the
// ones this operation created are removed, never user files git has not
// seen yet.
func (s *Store) rollbackOnError() {
	_ = s.git.Rollback()
	for _, f := range s.touched {
		for _, p := range f.paths {
			if fileExists(p) && !s.git.IsTracked(p) {
				_ = os.Remove(p)
			}
		}
	}
	s.touched = nil
}

func (s *Store) taskPath(key, ext string) string {
	return filepath.Join(s.Root, key+ext)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func atomicWriteFile(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, fmt.Sprintf(".tmp-%d", timeNow().UnixNano()))
	if err := os.WriteFile(tmp, data, perm); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
