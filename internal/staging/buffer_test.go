package staging

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"submission-app/internal/domain/media"
)

func testLimits() Limits {
	return Limits{
		MaxBytes:      1 << 20,
		MaxCount:      5,
		AcceptedTypes: []string{"image/jpeg", "image/png"},
	}
}

func newTestBuffer(t *testing.T) *Buffer {
	t.Helper()
	files, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	return NewBuffer(files, testLimits())
}

func incoming(name, contentType string, size int64) IncomingFile {
	return IncomingFile{
		Name:        name,
		Size:        size,
		ContentType: contentType,
		Data:        strings.NewReader("binary"),
	}
}

func primaryCount(b *Buffer) int {
	n := 0
	for _, d := range b.Drafts() {
		if d.IsPrimary {
			n++
		}
	}
	return n
}

func TestAddFilesAssignsOrderAndPrimary(t *testing.T) {
	b := newTestBuffer(t)

	added, rejected := b.AddFiles([]IncomingFile{
		incoming("a.jpg", "image/jpeg", 100),
		incoming("b.jpg", "image/jpeg", 100),
		incoming("c.png", "image/png", 100),
	})
	require.Empty(t, rejected)
	require.Len(t, added, 3)

	assert.True(t, added[0].IsPrimary, "first file in an empty buffer becomes primary")
	assert.False(t, added[1].IsPrimary)
	assert.False(t, added[2].IsPrimary)
	for i, d := range added {
		assert.Equal(t, i, d.DisplayOrder)
		assert.Equal(t, media.StatusPending, d.Status)
		assert.NotEmpty(t, d.LocalPath)
	}
}

func TestAddFilesRejectsPerFile(t *testing.T) {
	b := newTestBuffer(t)

	added, rejected := b.AddFiles([]IncomingFile{
		incoming("big.jpg", "image/jpeg", 2<<20),
		incoming("doc.pdf", "application/pdf", 100),
		incoming("ok.jpg", "image/jpeg", 100),
	})
	require.Len(t, added, 1)
	require.Len(t, rejected, 2)
	assert.Equal(t, "big.jpg", rejected[0].FileName)
	assert.Equal(t, "doc.pdf", rejected[1].FileName)
	assert.Equal(t, "ok.jpg", added[0].FileName)
	assert.True(t, added[0].IsPrimary)
}

func TestAddFilesCapacityCeilingIsPartial(t *testing.T) {
	b := newTestBuffer(t)

	var batch []IncomingFile
	for i := 0; i < 7; i++ {
		batch = append(batch, incoming("f.jpg", "image/jpeg", 100))
	}
	added, rejected := b.AddFiles(batch)
	assert.Len(t, added, 5)
	assert.Len(t, rejected, 2)
	assert.Equal(t, 5, b.Len())
}

func TestSinglePrimaryInvariant(t *testing.T) {
	b := newTestBuffer(t)

	added, _ := b.AddFiles([]IncomingFile{
		incoming("a.jpg", "image/jpeg", 100),
		incoming("b.jpg", "image/jpeg", 100),
		incoming("c.jpg", "image/jpeg", 100),
	})

	require.NoError(t, b.SetPrimary(added[2].ID))
	assert.Equal(t, 1, primaryCount(b))
	assert.True(t, added[2].IsPrimary)

	require.NoError(t, b.SetPrimary(added[1].ID))
	assert.Equal(t, 1, primaryCount(b))

	// removing the primary hands the flag to the first remaining by order
	_, err := b.Remove(added[1].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, primaryCount(b))
	assert.True(t, added[0].IsPrimary)

	// empty buffer has zero primaries
	_, err = b.Remove(added[0].ID)
	require.NoError(t, err)
	_, err = b.Remove(added[2].ID)
	require.NoError(t, err)
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, 0, primaryCount(b))
}

func TestRemoveReleasesStagedFile(t *testing.T) {
	b := newTestBuffer(t)
	added, _ := b.AddFiles([]IncomingFile{incoming("a.jpg", "image/jpeg", 100)})
	path := added[0].LocalPath

	removed, err := b.Remove(added[0].ID)
	require.NoError(t, err)
	assert.Empty(t, removed.LocalPath)
	assert.NoFileExists(t, path)
}

func TestReorderRenumbersContiguously(t *testing.T) {
	b := newTestBuffer(t)
	added, _ := b.AddFiles([]IncomingFile{
		incoming("a.jpg", "image/jpeg", 100),
		incoming("b.jpg", "image/jpeg", 100),
		incoming("c.jpg", "image/jpeg", 100),
		incoming("d.jpg", "image/jpeg", 100),
	})

	require.NoError(t, b.Reorder(3, 0))

	drafts := b.Drafts()
	require.Len(t, drafts, 4)
	assert.Equal(t, added[3].ID, drafts[0].ID)
	assert.Equal(t, added[0].ID, drafts[1].ID)
	for i, d := range drafts {
		assert.Equal(t, i, d.DisplayOrder, "display_order must be contiguous from 0")
	}

	assert.Error(t, b.Reorder(0, 9))
}

func TestUpdateMetadataLeavesOrderAndPrimaryAlone(t *testing.T) {
	b := newTestBuffer(t)
	added, _ := b.AddFiles([]IncomingFile{
		incoming("a.jpg", "image/jpeg", 100),
		incoming("b.jpg", "image/jpeg", 100),
	})

	alt := "wadi view"
	captionAr := "وادي"
	require.NoError(t, b.UpdateMetadata(added[1].ID, media.MetadataPatch{
		AltText:   &alt,
		CaptionAr: &captionAr,
	}))

	assert.Equal(t, "wadi view", added[1].AltText)
	assert.Equal(t, "وادي", added[1].CaptionAr)
	assert.Equal(t, 1, added[1].DisplayOrder)
	assert.False(t, added[1].IsPrimary)
	assert.True(t, added[0].IsPrimary)
}

func TestReleaseDropsEverything(t *testing.T) {
	b := newTestBuffer(t)
	added, _ := b.AddFiles([]IncomingFile{
		incoming("a.jpg", "image/jpeg", 100),
		incoming("b.jpg", "image/jpeg", 100),
	})
	paths := []string{added[0].LocalPath, added[1].LocalPath}

	require.NoError(t, b.Release())
	assert.Equal(t, 0, b.Len())
	for _, p := range paths {
		assert.NoFileExists(t, p)
	}
}

func TestOrdersStayUniqueAfterRemoval(t *testing.T) {
	b := newTestBuffer(t)
	added, _ := b.AddFiles([]IncomingFile{
		incoming("a.jpg", "image/jpeg", 100),
		incoming("b.jpg", "image/jpeg", 100),
		incoming("c.jpg", "image/jpeg", 100),
	})
	_, err := b.Remove(added[0].ID)
	require.NoError(t, err)

	more, _ := b.AddFiles([]IncomingFile{incoming("d.jpg", "image/jpeg", 100)})
	require.Len(t, more, 1)

	seen := map[int]bool{}
	for _, d := range b.Drafts() {
		assert.False(t, seen[d.DisplayOrder], "display_order %d duplicated", d.DisplayOrder)
		seen[d.DisplayOrder] = true
	}
}

type stuckFiles struct {
	FileStore
	removeErr error
}

func (s *stuckFiles) Remove(path string) error {
	if s.removeErr != nil {
		return s.removeErr
	}
	return s.FileStore.Remove(path)
}

func TestRemoveReassignsPrimaryDespiteReleaseFailure(t *testing.T) {
	disk, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	files := &stuckFiles{FileStore: disk, removeErr: errors.New("device busy")}
	b := NewBuffer(files, testLimits())

	added, rejected := b.AddFiles([]IncomingFile{
		incoming("a.jpg", "image/jpeg", 100),
		incoming("b.jpg", "image/jpeg", 100),
	})
	require.Empty(t, rejected)
	require.Len(t, added, 2)
	require.True(t, added[0].IsPrimary)

	removed, err := b.Remove(added[0].ID)
	require.Error(t, err)
	require.NotNil(t, removed, "the draft is gone even when the file release fails")

	assert.Equal(t, 1, b.Len())
	assert.Equal(t, 1, primaryCount(b))
	assert.True(t, b.Drafts()[0].IsPrimary)
}
