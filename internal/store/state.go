package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"tasket/internal/query"
)

var ErrContextReadOnly = errors.New("context is read-only")

// contextFile is the on-disk shape of a persisted context: the Filter
// subset that may be stored, with the due constraint already resolved.
type contextFile struct {
	Tags        []string   `yaml:"tags,omitempty"`
	AntiTags    []string   `yaml:"anti_tags,omitempty"`
	Project     string     `yaml:"project,omitempty"`
	AntiProject string     `yaml:"anti_project,omitempty"`
	Priority    string     `yaml:"priority,omitempty"`
	DueOp       string     `yaml:"due_op,omitempty"`
	Due         *time.Time `yaml:"due,omitempty"`
}

// LocalState holds the persisted context. It is loaded once per invocation
// and flushed to disk immediately on change. When the context comes from
// the environment override it is read-only and the context command's write
// path is disabled.
type LocalState struct {
	Context  query.Filter
	ReadOnly bool

	path string
}

// LoadState reads the context from the override tokens when present,
// otherwise from the state file at path. A missing or empty file means no
// context is set.
func LoadState(path, envOverride string) (*LocalState, error) {
	if strings.TrimSpace(envOverride) != "" {
		f, err := query.Parse(strings.Fields(envOverride), time.Now())
		if err != nil {
			return nil, err
		}
		if err := f.ValidateContext(); err != nil {
			return nil, err
		}
		return &LocalState{Context: f, ReadOnly: true, path: path}, nil
	}

	state := &LocalState{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return state, nil
		}
		return nil, err
	}
	var cf contextFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("bad context file %s: %w", path, err)
	}
	state.Context = cf.filter()
	return state, nil
}

// Set validates and replaces the context, flushing it to disk. An empty
// filter clears the context.
func (s *LocalState) Set(f query.Filter) error {
	if s.ReadOnly {
		return ErrContextReadOnly
	}
	if err := f.ValidateContext(); err != nil {
		return err
	}
	s.Context = f
	return s.save()
}

// ContextFor returns the context to merge for a command filter, honoring
// the bypass signal.
func (s *LocalState) ContextFor(f query.Filter) query.Filter {
	if f.IgnoreContext {
		return query.Filter{}
	}
	return s.Context
}

func (s *LocalState) save() error {
	if s.Context.Empty() {
		err := os.Remove(s.path)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	cf := contextFile{
		Tags:        s.Context.Tags,
		AntiTags:    s.Context.AntiTags,
		Project:     s.Context.Project,
		AntiProject: s.Context.AntiProject,
		Priority:    s.Context.Priority,
		DueOp:       s.Context.DueOp,
	}
	if s.Context.DueOp != "" {
		due := s.Context.Due
		cf.Due = &due
	}
	data, err := yaml.Marshal(&cf)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return atomicWriteFile(s.path, data, 0o644)
}

func (cf contextFile) filter() query.Filter {
	f := query.Filter{
		Tags:        cf.Tags,
		AntiTags:    cf.AntiTags,
		Project:     cf.Project,
		AntiProject: cf.AntiProject,
		Priority:    cf.Priority,
		DueOp:       cf.DueOp,
	}
	if cf.Due != nil {
		f.Due = *cf.Due
	}
	return f
}
