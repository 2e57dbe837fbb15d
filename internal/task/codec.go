package task

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrCorruptFile = errors.New("corrupt task file")

// header is the structured block at the top of every task file. Unknown keys
// are rejected so a mistyped hand edit fails loudly instead of silently
// dropping data.
type header struct {
	Summary  string     `yaml:"summary"`
	Tags     []string   `yaml:"tags,omitempty"`
	Project  string     `yaml:"project,omitempty"`
	Priority string     `yaml:"priority,omitempty"`
	Status   string     `yaml:"status"`
	Created  *time.Time `yaml:"created"`
	Resolved *time.Time `yaml:"resolved,omitempty"`
	Due      *time.Time `yaml:"due,omitempty"`
}

// legacyFile is the older header-only layout with notes embedded as a field.
// It is read for compatibility and rewritten to the current layout on the
// next save.
type legacyFile struct {
	header `yaml:",inline"`
	Notes  string `yaml:"notes,omitempty"`
}

// Marshal renders the task in the current file layout: a YAML frontmatter
// header followed by the free-form notes body.
func Marshal(t *Task) ([]byte, error) {
	h := header{
		Summary:  t.Summary,
		Tags:     t.Tags,
		Project:  t.Project,
		Priority: t.Priority,
		Status:   t.Status,
		Created:  &t.Created,
	}
	if !t.Resolved.IsZero() {
		resolved := t.Resolved
		h.Resolved = &resolved
	}
	if !t.Due.IsZero() {
		due := t.Due
		h.Due = &due
	}
	head, err := yaml.Marshal(&h)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(head)
	buf.WriteString("---\n")
	if strings.TrimSpace(t.Notes) != "" {
		buf.WriteString("\n")
		buf.WriteString(t.Notes)
		if !strings.HasSuffix(t.Notes, "\n") {
			buf.WriteString("\n")
		}
	}
	return buf.Bytes(), nil
}

// Unmarshal parses a task file in either layout. The key comes from the
// file name and is set by the caller's store, not the file contents.
func Unmarshal(key string, data []byte) (*Task, error) {
	s := strings.ReplaceAll(string(data), "\r\n", "\n")

	if strings.HasPrefix(s, "---\n") {
		return unmarshalFrontmatter(key, s)
	}

	var legacy legacyFile
	if err := strictDecode([]byte(s), &legacy); err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrCorruptFile, key, err)
	}
	t, err := fromHeader(key, legacy.header)
	if err != nil {
		return nil, err
	}
	t.Notes = legacy.Notes
	// Rewrite to the current layout on next save.
	t.WritePending = true
	return t, nil
}

func unmarshalFrontmatter(key, s string) (*Task, error) {
	rest := strings.TrimPrefix(s, "---\n")
	head, body, found := strings.Cut(rest, "\n---\n")
	if !found {
		if trimmed, ok := strings.CutSuffix(rest, "\n---"); ok {
			head, body = trimmed, ""
		} else {
			return nil, fmt.Errorf("%w %s: unterminated header block", ErrCorruptFile, key)
		}
	}
	var h header
	if err := strictDecode([]byte(head), &h); err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrCorruptFile, key, err)
	}
	t, err := fromHeader(key, h)
	if err != nil {
		return nil, err
	}
	t.Notes = strings.TrimPrefix(body, "\n")
	t.Notes = strings.TrimRight(t.Notes, "\n")
	if t.Notes != "" {
		t.Notes += "\n"
	}
	return t, nil
}

func fromHeader(key string, h header) (*Task, error) {
	if strings.TrimSpace(h.Summary) == "" {
		return nil, fmt.Errorf("%w %s: missing summary", ErrCorruptFile, key)
	}
	if h.Status == "" {
		return nil, fmt.Errorf("%w %s: missing status", ErrCorruptFile, key)
	}
	if !ValidStatus(h.Status) {
		return nil, fmt.Errorf("%w %s: unknown status %q", ErrCorruptFile, key, h.Status)
	}
	if h.Created == nil || h.Created.IsZero() {
		return nil, fmt.Errorf("%w %s: missing created timestamp", ErrCorruptFile, key)
	}
	t := &Task{
		Key:      key,
		Summary:  h.Summary,
		Tags:     h.Tags,
		Project:  h.Project,
		Priority: h.Priority,
		Status:   h.Status,
		Created:  *h.Created,
	}
	if h.Resolved != nil {
		t.Resolved = *h.Resolved
	}
	if h.Due != nil {
		t.Due = *h.Due
	}
	return t, nil
}

func strictDecode(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}
