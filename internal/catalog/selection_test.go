package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"submission-app/internal/metadata"
)

func entries(ids ...uint) []metadata.Entry {
	out := make([]metadata.Entry, 0, len(ids))
	for _, id := range ids {
		out = append(out, metadata.Entry{ID: id})
	}
	return out
}

func TestDeliverMatchingParent(t *testing.T) {
	s := NewSelection()
	s.Select(CascadeWilayahs, 1)

	assert.True(t, s.Deliver(CascadeWilayahs, 1, entries(5, 6)))
	assert.Equal(t, entries(5, 6), s.List(CascadeWilayahs))
	assert.Equal(t, uint(1), s.Current(CascadeWilayahs))
}

func TestStaleDeliveryDiscarded(t *testing.T) {
	s := NewSelection()
	s.Select(CascadeWilayahs, 1)
	s.Select(CascadeWilayahs, 2)

	// the slow response for the abandoned parent arrives first
	assert.False(t, s.Deliver(CascadeWilayahs, 1, entries(5, 6)))
	assert.Empty(t, s.List(CascadeWilayahs))

	assert.True(t, s.Deliver(CascadeWilayahs, 2, entries(7, 8)))
	assert.Equal(t, entries(7, 8), s.List(CascadeWilayahs))
}

func TestStaleDeliveryCannotOverwrite(t *testing.T) {
	s := NewSelection()
	s.Select(CascadeWilayahs, 1)
	s.Select(CascadeWilayahs, 2)

	// the current parent's response lands before the abandoned one
	assert.True(t, s.Deliver(CascadeWilayahs, 2, entries(7, 8)))
	assert.False(t, s.Deliver(CascadeWilayahs, 1, entries(5, 6)))
	assert.Equal(t, entries(7, 8), s.List(CascadeWilayahs))
}

func TestReselectClearsListUntilRedelivered(t *testing.T) {
	s := NewSelection()
	s.Select(CascadeCategories, 1)
	s.Deliver(CascadeCategories, 1, entries(4))

	s.Select(CascadeCategories, 2)
	assert.Empty(t, s.List(CascadeCategories), "old children must not show under the new parent")

	// selecting the same parent again keeps the delivered list
	s.Deliver(CascadeCategories, 2, entries(9))
	s.Select(CascadeCategories, 2)
	assert.Equal(t, entries(9), s.List(CascadeCategories))
}

func TestCascadesAreIndependent(t *testing.T) {
	s := NewSelection()
	s.Select(CascadeCategories, 1)
	s.Select(CascadeWilayahs, 1)

	s.Deliver(CascadeCategories, 1, entries(4))
	assert.Empty(t, s.List(CascadeWilayahs))
	assert.Equal(t, entries(4), s.List(CascadeCategories))
}
