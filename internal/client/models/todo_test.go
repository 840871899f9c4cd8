package models

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestPatch_Apply(t *testing.T) {
	base := Todo{ID: "a", Text: "Buy milk", CreatedAt: time.Unix(10, 0).UTC(), UpdatedAt: time.Unix(10, 0).UTC()}
	ts := time.Unix(20, 0).UTC()

	tests := []struct {
		name  string
		patch Patch
		want  Todo
	}{
		{name: "empty patch", patch: Patch{}, want: base},
		{
			name:  "done and updatedAt",
			patch: Patch{Done: Ptr(true), UpdatedAt: &ts},
			want:  Todo{ID: "a", Text: "Buy milk", Done: true, CreatedAt: base.CreatedAt, UpdatedAt: ts},
		},
		{
			name:  "text deleted counter",
			patch: Patch{Text: Ptr("Buy oat milk"), Deleted: Ptr(true), Counter: Ptr(int64(3))},
			want:  Todo{ID: "a", Text: "Buy oat milk", Deleted: true, CreatedAt: base.CreatedAt, UpdatedAt: base.UpdatedAt, Counter: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.patch.Apply(base)); diff != "" {
				t.Fatalf("Apply() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNextUpdatedAt(t *testing.T) {
	prev := time.Date(2024, 1, 1, 12, 0, 0, 500_000, time.UTC)

	t.Run("clock ahead", func(t *testing.T) {
		now := prev.Add(time.Second)
		assert.Equal(t, now, NextUpdatedAt(prev, now))
	})

	t.Run("clock equal bumps by one tick", func(t *testing.T) {
		assert.Equal(t, prev.Add(time.Microsecond), NextUpdatedAt(prev, prev))
	})

	t.Run("clock behind bumps by one tick", func(t *testing.T) {
		assert.Equal(t, prev.Add(time.Microsecond), NextUpdatedAt(prev, prev.Add(-time.Hour)))
	})

	t.Run("truncates to microseconds", func(t *testing.T) {
		now := prev.Add(time.Second + 999)
		got := NextUpdatedAt(prev, now)
		assert.Equal(t, 0, got.Nanosecond()%1000)
		assert.True(t, got.After(prev))
	})

	t.Run("zero prev", func(t *testing.T) {
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, now, NextUpdatedAt(time.Time{}, now))
	})
}

func TestTodo_Active(t *testing.T) {
	assert.True(t, Todo{}.Active())
	assert.False(t, Todo{Deleted: true}.Active())
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "Buy milk", NormalizeText("  Buy milk\n"))
	assert.Equal(t, "", NormalizeText(" \t "))
}

func TestChange_Removed(t *testing.T) {
	assert.True(t, Change{ID: "a"}.Removed())
	assert.False(t, Change{ID: "a", After: &Todo{ID: "a"}}.Removed())
}
