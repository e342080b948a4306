package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"submission-app/internal/domain/media"
	"submission-app/internal/logger"
	"submission-app/internal/metadata"
	"submission-app/internal/staging"
)

type fakeStore struct {
	mu       sync.Mutex
	objects  map[string]string
	puts     int
	failKey  func(key string) bool
	inFlight func(key string)
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string]string)}
}

func (s *fakeStore) Upload(_ context.Context, key, _ string, r io.Reader) (string, error) {
	if s.inFlight != nil {
		s.inFlight(key)
	}
	s.mu.Lock()
	s.puts++
	s.mu.Unlock()
	if s.failKey != nil && s.failKey(key) {
		return "", errors.New("storage write failed")
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.objects[key] = string(body)
	s.mu.Unlock()
	return s.PublicURL(key), nil
}

func (s *fakeStore) uploads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

func (s *fakeStore) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.objects))
	for k := range s.objects {
		out = append(out, k)
	}
	return out
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

func (s *fakeStore) PublicURL(key string) string {
	return "https://cdn.test/" + key
}

type fakeRegistrar struct {
	placeCalls   [][]metadata.PlaceImage
	sectionCalls map[uint][][]metadata.SectionImage
	err          error
	failCount    int
}

func (r *fakeRegistrar) failNext() error {
	if r.failCount > 0 {
		r.failCount--
		return errors.New("metadata api unavailable")
	}
	return r.err
}

func (r *fakeRegistrar) RegisterPlaceImages(_ context.Context, _ uint, images []metadata.PlaceImage) error {
	if err := r.failNext(); err != nil {
		return err
	}
	r.placeCalls = append(r.placeCalls, images)
	return nil
}

func (r *fakeRegistrar) RegisterSectionImages(_ context.Context, sectionID uint, images []metadata.SectionImage) error {
	if err := r.failNext(); err != nil {
		return err
	}
	if r.sectionCalls == nil {
		r.sectionCalls = make(map[uint][][]metadata.SectionImage)
	}
	r.sectionCalls[sectionID] = append(r.sectionCalls[sectionID], images)
	return nil
}

func stagedBuffer(t *testing.T, names ...string) *staging.Buffer {
	t.Helper()
	files, err := staging.NewDiskStore(t.TempDir())
	require.NoError(t, err)
	buf := staging.NewBuffer(files, staging.Limits{
		MaxBytes:      1 << 20,
		MaxCount:      15,
		AcceptedTypes: []string{"image/jpeg"},
	})
	incoming := make([]staging.IncomingFile, 0, len(names))
	for _, name := range names {
		incoming = append(incoming, staging.IncomingFile{
			Name:        name,
			Size:        int64(len(name)),
			ContentType: "image/jpeg",
			Data:        strings.NewReader("body-of-" + name),
		})
	}
	added, rejected := buf.AddFiles(incoming)
	require.Empty(t, rejected)
	require.Len(t, added, len(names))
	return buf
}

func draftByName(t *testing.T, buf *staging.Buffer, name string) *media.ImageDraft {
	t.Helper()
	for _, d := range buf.Drafts() {
		if d.FileName == name {
			return d
		}
	}
	t.Fatalf("no draft named %s", name)
	return nil
}

func TestPlaceImagesCoverAndGalleryPaths(t *testing.T) {
	store := newFakeStore()
	api := &fakeRegistrar{}
	p := NewPipeline(store, api, logger.NewNop())
	buf := stagedBuffer(t, "cover.jpg", "second.jpg", "third.jpg")

	report := p.PlaceImages(context.Background(), 42, buf)
	assert.Equal(t, 3, report.Registered)
	assert.Empty(t, report.Failures)

	// the primary lands at the deterministic cover path
	assert.Contains(t, store.objects, "places/42/cover.jpg")
	second := draftByName(t, buf, "second.jpg")
	galleryKey := fmt.Sprintf("places/42/gallery/%02d-%s.jpg", second.DisplayOrder, shortID(second))
	assert.Contains(t, store.objects, galleryKey)
	assert.Equal(t, "body-of-second.jpg", store.objects[galleryKey])

	require.Len(t, api.placeCalls, 1, "registration is one batch per collection")
	batch := api.placeCalls[0]
	require.Len(t, batch, 3)
	primaries := 0
	for _, img := range batch {
		assert.True(t, strings.HasPrefix(img.ImageURL, "https://cdn.test/places/42/"))
		if img.IsPrimary {
			primaries++
		}
	}
	assert.Equal(t, 1, primaries)
}

func TestPlaceImagesPartialFailure(t *testing.T) {
	store := newFakeStore()
	api := &fakeRegistrar{}
	p := NewPipeline(store, api, logger.NewNop())
	buf := stagedBuffer(t, "a.jpg", "b.jpg", "c.jpg")

	bad := draftByName(t, buf, "b.jpg")
	store.failKey = func(key string) bool { return strings.Contains(key, shortID(bad)) }

	report := p.PlaceImages(context.Background(), 7, buf)
	assert.Equal(t, 2, report.Registered)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "b.jpg", report.Failures[0].FileName)
	assert.Equal(t, bad.ID, report.Failures[0].DraftID)
	assert.NotEmpty(t, report.Failures[0].Message)

	assert.Equal(t, media.StatusError, bad.Status)
	assert.NotEmpty(t, bad.UploadError)

	// the batch contains only the two successes
	require.Len(t, api.placeCalls, 1)
	assert.Len(t, api.placeCalls[0], 2)
}

func TestRetryUploadsOnlyPendingDrafts(t *testing.T) {
	store := newFakeStore()
	api := &fakeRegistrar{}
	p := NewPipeline(store, api, logger.NewNop())
	buf := stagedBuffer(t, "a.jpg", "b.jpg")

	bad := draftByName(t, buf, "b.jpg")
	store.failKey = func(key string) bool { return strings.Contains(key, shortID(bad)) }

	report := p.PlaceImages(context.Background(), 7, buf)
	require.Equal(t, 1, report.Registered)
	require.Len(t, report.Failures, 1)
	firstKey := draftByName(t, buf, "a.jpg").StoragePath

	// the retry re-attempts only the failed draft and reuses its path scheme
	store.failKey = nil
	report = p.PlaceImages(context.Background(), 7, buf)
	assert.Equal(t, 1, report.Registered)
	assert.Empty(t, report.Failures)
	assert.Equal(t, firstKey, draftByName(t, buf, "a.jpg").StoragePath)
	assert.Equal(t, media.StatusCompleted, bad.Status)
	assert.Empty(t, bad.UploadError)

	// a third run has nothing left to do and issues no registration
	calls := len(api.placeCalls)
	report = p.PlaceImages(context.Background(), 7, buf)
	assert.Equal(t, 0, report.Registered)
	assert.Empty(t, report.Failures)
	assert.Len(t, api.placeCalls, calls)
}

func TestRegistrationFailureMarksAllUploaded(t *testing.T) {
	store := newFakeStore()
	api := &fakeRegistrar{err: errors.New("metadata api unavailable")}
	p := NewPipeline(store, api, logger.NewNop())
	buf := stagedBuffer(t, "a.jpg", "b.jpg")

	report := p.PlaceImages(context.Background(), 7, buf)
	assert.Equal(t, 0, report.Registered)
	assert.Len(t, report.Failures, 2)
	for _, d := range buf.Drafts() {
		assert.Equal(t, media.StatusError, d.Status)
		// storage result and staged copy survive for the retry
		assert.NotEmpty(t, d.StoragePath)
		assert.FileExists(t, d.LocalPath)
	}
}

func TestRegistrationRetryReusesUploadedBinaries(t *testing.T) {
	store := newFakeStore()
	api := &fakeRegistrar{failCount: 1}
	p := NewPipeline(store, api, logger.NewNop())
	buf := stagedBuffer(t, "a.jpg", "b.jpg")

	report := p.PlaceImages(context.Background(), 7, buf)
	require.Equal(t, 0, report.Registered)
	require.Len(t, report.Failures, 2)
	require.Equal(t, 2, store.uploads())

	// the retry re-issues only the registration batch
	report = p.PlaceImages(context.Background(), 7, buf)
	assert.Equal(t, 2, report.Registered)
	assert.Empty(t, report.Failures)
	assert.Equal(t, 2, store.uploads(), "binaries are not transferred again")
	require.Len(t, api.placeCalls, 1)
	assert.Len(t, api.placeCalls[0], 2)
	for _, d := range buf.Drafts() {
		assert.Equal(t, media.StatusCompleted, d.Status)
		assert.Empty(t, d.UploadError)
		assert.Empty(t, d.LocalPath, "staged copy is released once registered")
	}
}

func TestRemovedMidFlightDraftIsDiscarded(t *testing.T) {
	store := newFakeStore()
	api := &fakeRegistrar{}
	p := NewPipeline(store, api, logger.NewNop())
	buf := stagedBuffer(t, "a.jpg", "b.jpg")

	// remove the draft while its upload is in flight: the transfer completes
	// but the result must be discarded
	gone := draftByName(t, buf, "b.jpg")
	store.inFlight = func(key string) {
		if strings.Contains(key, shortID(gone)) {
			_, _ = buf.Remove(gone.ID)
		}
	}

	report := p.PlaceImages(context.Background(), 7, buf)
	assert.Equal(t, 1, report.Registered)
	require.Len(t, api.placeCalls, 1)
	require.Len(t, api.placeCalls[0], 1)
	assert.NotContains(t, api.placeCalls[0][0].ImageURL, shortID(gone))

	// the ownerless object is dropped from storage as well
	for _, key := range store.keys() {
		assert.NotContains(t, key, shortID(gone))
	}
}

func TestSessionReadsDuringUpload(t *testing.T) {
	store := newFakeStore()
	api := &fakeRegistrar{}
	p := NewPipeline(store, api, logger.NewNop())
	buf := stagedBuffer(t, "a.jpg", "b.jpg", "c.jpg")

	// a session poll reads draft snapshots while uploads write them back
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			for _, d := range buf.Snapshot() {
				_ = d.Status
				_ = d.PublicURL
				_ = d.UploadError
			}
		}
	}()

	report := p.PlaceImages(context.Background(), 7, buf)
	<-done
	assert.Equal(t, 3, report.Registered)
	assert.Empty(t, report.Failures)
}

func TestSectionImagesScopedPathsAndPayload(t *testing.T) {
	store := newFakeStore()
	api := &fakeRegistrar{}
	p := NewPipeline(store, api, logger.NewNop())
	buf := stagedBuffer(t, "falaj.jpg")

	alt := "falaj channel"
	require.NoError(t, buf.UpdateMetadata(buf.Drafts()[0].ID, media.MetadataPatch{
		AltTextEn: &alt,
	}))

	report := p.SectionImages(context.Background(), 42, 9, buf)
	assert.Equal(t, 1, report.Registered)
	assert.Empty(t, report.Failures)

	d := buf.Drafts()[0]
	assert.Equal(t, fmt.Sprintf("places/42/sections/9/%02d-%s.jpg", d.DisplayOrder, shortID(d)), d.StoragePath)

	require.Len(t, api.sectionCalls[9], 1)
	img := api.sectionCalls[9][0][0]
	assert.Equal(t, "falaj channel", img.AltTextEn)
	assert.Equal(t, d.PublicURL, img.ImageURL)
	assert.Equal(t, d.DisplayOrder, img.SortOrder)
}

func TestStagedFileReleasedAfterUpload(t *testing.T) {
	store := newFakeStore()
	api := &fakeRegistrar{}
	p := NewPipeline(store, api, logger.NewNop())
	buf := stagedBuffer(t, "a.jpg")

	path := buf.Drafts()[0].LocalPath
	require.NotEmpty(t, path)

	report := p.PlaceImages(context.Background(), 7, buf)
	require.Equal(t, 1, report.Registered)
	assert.NoFileExists(t, path, "staging copy is released once the binary is durable")
}
