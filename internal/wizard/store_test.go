package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"submission-app/internal/domain/place"
	"submission-app/internal/logger"
	"submission-app/internal/staging"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	files, err := staging.NewDiskStore(t.TempDir())
	require.NoError(t, err)
	limits := staging.Limits{
		MaxBytes:      1 << 20,
		MaxCount:      10,
		AcceptedTypes: []string{"image/jpeg"},
	}
	return NewManager(nil, files, limits, logger.NewNop())
}

func TestManagerCreateAndGet(t *testing.T) {
	m := newTestManager(t)

	w, err := m.Create(7)
	require.NoError(t, err)
	require.NotEmpty(t, w.ID)
	assert.Equal(t, StepCategory, w.CurrentStep())

	got, err := m.Get(w.ID, 7)
	require.NoError(t, err)
	assert.Same(t, w, got)
}

func TestManagerScopesSessionsToUser(t *testing.T) {
	m := newTestManager(t)

	w, err := m.Create(7)
	require.NoError(t, err)

	_, err = m.Get(w.ID, 8)
	assert.Error(t, err, "another user's session id must behave as missing")
}

func TestManagerUnknownSession(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Get("b2c6d77e-0000-0000-0000-000000000000", 7)
	assert.Error(t, err)
}

func TestManagerDrop(t *testing.T) {
	m := newTestManager(t)
	w, err := m.Create(7)
	require.NoError(t, err)

	require.NoError(t, m.Drop(w.ID))
	_, err = m.Get(w.ID, 7)
	assert.Error(t, err)
}

func TestManagerSessionsAreIndependent(t *testing.T) {
	m := newTestManager(t)

	a, err := m.Create(7)
	require.NoError(t, err)
	b, err := m.Create(7)
	require.NoError(t, err)
	require.NotEqual(t, a.ID, b.ID)

	require.NoError(t, a.Update(place.Patch{
		Name: &place.BilingualText{Ar: "ن", En: "n"},
	}))
	assert.Empty(t, b.Document().Name.En)
}
