package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	tk := New("fix the roof")

	assert.Equal(t, "fix the roof", tk.Summary)
	assert.Equal(t, StatusPending, tk.Status)
	assert.Equal(t, PriorityNormal, tk.Priority)
	assert.True(t, ValidKey(tk.Key))
	assert.False(t, tk.Created.IsZero())
	assert.True(t, tk.Resolved.IsZero())
	assert.True(t, tk.WritePending)
	require.NoError(t, tk.Validate())
}

func TestNewKeysAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		key := NewKey()
		require.True(t, ValidKey(key))
		require.False(t, seen[key], "duplicate key %s", key)
		seen[key] = true
	}
}

func TestNormalise(t *testing.T) {
	tk := New("tidy")
	tk.Project = "Home"
	tk.Tags = []string{"Garden", "roof", "garden", ""}
	tk.Priority = ""

	tk.Normalise()

	assert.Equal(t, "home", tk.Project)
	assert.Equal(t, []string{"garden", "roof"}, tk.Tags)
	assert.Equal(t, PriorityNormal, tk.Priority)
}

func TestNormaliseClearsResolvedID(t *testing.T) {
	tk := New("done thing")
	tk.ID = 4
	tk.Status = StatusResolved
	tk.Resolved = time.Now()

	tk.Normalise()

	assert.Zero(t, tk.ID)
}

func TestValidate(t *testing.T) {
	base := func() *Task { return New("ok") }

	t.Run("empty summary", func(t *testing.T) {
		tk := base()
		tk.Summary = "  "
		assert.ErrorIs(t, tk.Validate(), ErrValidation)
	})

	t.Run("unknown status", func(t *testing.T) {
		tk := base()
		tk.Status = "sleeping"
		assert.ErrorIs(t, tk.Validate(), ErrValidation)
	})

	t.Run("unknown priority", func(t *testing.T) {
		tk := base()
		tk.Priority = "P9"
		assert.ErrorIs(t, tk.Validate(), ErrValidation)
	})

	t.Run("bad key", func(t *testing.T) {
		tk := base()
		tk.Key = "not-a-key"
		assert.ErrorIs(t, tk.Validate(), ErrValidation)
	})

	t.Run("resolved time without resolved status", func(t *testing.T) {
		tk := base()
		tk.Resolved = time.Now()
		assert.ErrorIs(t, tk.Validate(), ErrValidation)
	})

	t.Run("resolved status without resolved time", func(t *testing.T) {
		tk := base()
		tk.Status = StatusResolved
		assert.ErrorIs(t, tk.Validate(), ErrValidation)
	})

	t.Run("resolved pair is valid", func(t *testing.T) {
		tk := base()
		tk.Status = StatusResolved
		tk.Resolved = time.Now()
		assert.NoError(t, tk.Validate())
	})
}

func TestTagOperations(t *testing.T) {
	tk := New("tagged")
	tk.AddTag("work")
	tk.AddTag("work")
	tk.AddTag("home")

	assert.Equal(t, []string{"work", "home"}, tk.Tags)
	assert.True(t, tk.HasTag("home"))

	tk.RemoveTag("work")
	assert.Equal(t, []string{"home"}, tk.Tags)
	assert.False(t, tk.HasTag("work"))

	tk.RemoveTag("absent")
	assert.Equal(t, []string{"home"}, tk.Tags)
}

func TestUnorganised(t *testing.T) {
	tk := New("loose end")
	assert.True(t, tk.Unorganised())

	tk.AddTag("work")
	assert.False(t, tk.Unorganised())

	tk.Tags = nil
	tk.Project = "house"
	assert.False(t, tk.Unorganised())
}

func TestHidden(t *testing.T) {
	assert.True(t, Hidden(StatusResolved))
	assert.True(t, Hidden(StatusTemplate))
	assert.True(t, Hidden(StatusRecurring))
	assert.False(t, Hidden(StatusPending))
	assert.False(t, Hidden(StatusActive))
	assert.False(t, Hidden(StatusPaused))
}

func TestString(t *testing.T) {
	tk := New("paint fence")
	tk.ID = 7
	assert.Equal(t, "7: paint fence", tk.String())

	tk.ID = 0
	assert.Equal(t, "paint fence", tk.String())
}
