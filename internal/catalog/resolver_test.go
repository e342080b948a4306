package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"submission-app/internal/domain/submission"
	"submission-app/internal/logger"
	"submission-app/internal/metadata"
)

type fakeFetcher struct {
	primary    []metadata.Entry
	secondary  map[uint][]metadata.Entry
	wilayahs   map[uint][]metadata.Entry
	properties map[uint][]metadata.Entry
	err        error
	calls      int
}

func (f *fakeFetcher) PrimaryCategories(context.Context) ([]metadata.Entry, error) {
	f.calls++
	return f.primary, f.err
}

func (f *fakeFetcher) SecondaryCategories(_ context.Context, parentID uint) ([]metadata.Entry, error) {
	f.calls++
	return f.secondary[parentID], f.err
}

func (f *fakeFetcher) Governates(context.Context) ([]metadata.Entry, error) {
	f.calls++
	return nil, f.err
}

func (f *fakeFetcher) Wilayahs(_ context.Context, governorateID uint) ([]metadata.Entry, error) {
	f.calls++
	return f.wilayahs[governorateID], f.err
}

func (f *fakeFetcher) PropertiesByCategory(_ context.Context, categoryID uint) ([]metadata.Entry, error) {
	f.calls++
	return f.properties[categoryID], f.err
}

func TestChildrenRoutesByCascade(t *testing.T) {
	api := &fakeFetcher{
		secondary:  map[uint][]metadata.Entry{1: entries(4, 5)},
		wilayahs:   map[uint][]metadata.Entry{2: entries(7)},
		properties: map[uint][]metadata.Entry{4: entries(11)},
	}
	r := NewResolver(api, nil, logger.NewNop())

	got, err := r.Children(context.Background(), CascadeCategories, 1)
	require.NoError(t, err)
	assert.Equal(t, entries(4, 5), got)

	got, err = r.Children(context.Background(), CascadeWilayahs, 2)
	require.NoError(t, err)
	assert.Equal(t, entries(7), got)

	got, err = r.Children(context.Background(), CascadeProperties, 4)
	require.NoError(t, err)
	assert.Equal(t, entries(11), got)
}

func TestFetchErrorDegradesToEmptyList(t *testing.T) {
	api := &fakeFetcher{err: errors.New("upstream down")}
	r := NewResolver(api, nil, logger.NewNop())

	got, err := r.Children(context.Background(), CascadeWilayahs, 3)
	assert.NotNil(t, got)
	assert.Empty(t, got, "callers always receive a usable list")
	require.Error(t, err)
	assert.Equal(t, submission.KindDependency, submission.KindOf(err))

	var failure *submission.Failure
	require.ErrorAs(t, err, &failure)
	assert.ErrorContains(t, failure.Err, "upstream down")
}

func TestUnknownCascadeRejected(t *testing.T) {
	r := NewResolver(&fakeFetcher{}, nil, logger.NewNop())

	got, err := r.Children(context.Background(), Cascade("bogus"), 1)
	assert.Empty(t, got)
	assert.Equal(t, submission.KindDependency, submission.KindOf(err))
}

func TestMember(t *testing.T) {
	list := entries(4, 5, 6)
	assert.True(t, Member(list, 5))
	assert.False(t, Member(list, 9))
	assert.False(t, Member(nil, 9))
}
