package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"submission-app/internal/domain/submission"
	"submission-app/internal/logger"
	"submission-app/internal/metadata"
)

// Cascade identifies one parent-driven dependent fetch.
type Cascade string

const (
	CascadeCategories Cascade = "categories" // primary -> secondary
	CascadeWilayahs   Cascade = "wilayahs"   // governorate -> wilayah
	CascadeProperties Cascade = "properties" // category -> properties
)

// Fetcher is the slice of the metadata client the resolver needs.
type Fetcher interface {
	PrimaryCategories(ctx context.Context) ([]metadata.Entry, error)
	SecondaryCategories(ctx context.Context, parentID uint) ([]metadata.Entry, error)
	Governates(ctx context.Context) ([]metadata.Entry, error)
	Wilayahs(ctx context.Context, governorateID uint) ([]metadata.Entry, error)
	PropertiesByCategory(ctx context.Context, categoryID uint) ([]metadata.Entry, error)
}

const cacheTTL = 10 * time.Minute

// Resolver fetches cascade reference data, caching each dependent list under
// a key derived from (cascade, parent id) so one parent's result can never
// surface under another.
type Resolver struct {
	api   Fetcher
	redis *redis.Client // nil disables caching
	log   *logger.Logger
}

func NewResolver(api Fetcher, rdb *redis.Client, log *logger.Logger) *Resolver {
	return &Resolver{api: api, redis: rdb, log: log.With("service", "CatalogResolver")}
}

func (r *Resolver) PrimaryCategories(ctx context.Context) ([]metadata.Entry, error) {
	return r.resolve(ctx, "catalog:categories:primary", func() ([]metadata.Entry, error) {
		return r.api.PrimaryCategories(ctx)
	})
}

func (r *Resolver) Governates(ctx context.Context) ([]metadata.Entry, error) {
	return r.resolve(ctx, "catalog:governates", func() ([]metadata.Entry, error) {
		return r.api.Governates(ctx)
	})
}

// Children resolves one cascade for the given parent. A fetch error degrades
// to an empty list plus the returned error; it never panics or aborts the
// wizard step.
func (r *Resolver) Children(ctx context.Context, cascade Cascade, parentID uint) ([]metadata.Entry, error) {
	key := fmt.Sprintf("catalog:%s:%d", cascade, parentID)
	return r.resolve(ctx, key, func() ([]metadata.Entry, error) {
		switch cascade {
		case CascadeCategories:
			return r.api.SecondaryCategories(ctx, parentID)
		case CascadeWilayahs:
			return r.api.Wilayahs(ctx, parentID)
		case CascadeProperties:
			return r.api.PropertiesByCategory(ctx, parentID)
		default:
			return nil, fmt.Errorf("unknown cascade %q", cascade)
		}
	})
}

func (r *Resolver) resolve(ctx context.Context, key string, fetch func() ([]metadata.Entry, error)) ([]metadata.Entry, error) {
	if cached, ok := r.cacheGet(ctx, key); ok {
		return cached, nil
	}

	entries, err := fetch()
	if err != nil {
		r.log.Warn("cascade fetch failed", "key", key, "error", err)
		return []metadata.Entry{}, submission.NewDependency("failed to load "+key, err)
	}
	r.cacheSet(ctx, key, entries)
	return entries, nil
}

func (r *Resolver) cacheGet(ctx context.Context, key string) ([]metadata.Entry, bool) {
	if r.redis == nil {
		return nil, false
	}
	raw, err := r.redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var entries []metadata.Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false
	}
	return entries, true
}

func (r *Resolver) cacheSet(ctx context.Context, key string, entries []metadata.Entry) {
	if r.redis == nil {
		return
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := r.redis.Set(ctx, key, raw, cacheTTL).Err(); err != nil {
		r.log.Warn("cache write failed", "key", key, "error", err)
	}
}

// Member reports whether id is in the dependent list.
func Member(entries []metadata.Entry, id uint) bool {
	for _, e := range entries {
		if e.ID == id {
			return true
		}
	}
	return false
}
