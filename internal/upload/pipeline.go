package upload

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"submission-app/internal/domain/media"
	"submission-app/internal/domain/submission"
	"submission-app/internal/logger"
	"submission-app/internal/metadata"
	"submission-app/internal/staging"
	"submission-app/internal/storage"
)

// Registrar is the slice of the metadata client that registers uploaded
// image URLs.
type Registrar interface {
	RegisterPlaceImages(ctx context.Context, placeID uint, images []metadata.PlaceImage) error
	RegisterSectionImages(ctx context.Context, sectionID uint, images []metadata.SectionImage) error
}

// Report is the outcome of one collection's two-phase upload. Failures carry
// one entry per file; nothing is dropped silently.
type Report struct {
	Registered int                    `json:"registered"`
	Failures   []submission.FileError `json:"failures"`
}

// Pipeline pushes image binaries to the object store (phase A) and then
// registers the resulting URLs with the metadata API in one batch per
// collection (phase B). Phase B is only issued after every phase-A attempt
// of the collection has resolved.
type Pipeline struct {
	store storage.ObjectStore
	api   Registrar
	log   *logger.Logger
}

func NewPipeline(store storage.ObjectStore, api Registrar, log *logger.Logger) *Pipeline {
	return &Pipeline{store: store, api: api, log: log.With("service", "UploadPipeline")}
}

// PlaceImages uploads a place-level collection. The primary image lands at
// the deterministic cover path; the rest under gallery with a zero-padded
// index. Retried uploads reuse the same path and overwrite in place.
func (p *Pipeline) PlaceImages(ctx context.Context, placeID uint, buf *staging.Buffer) Report {
	uploaded, failures := p.uploadAll(ctx, buf, func(d *media.ImageDraft) string {
		if d.IsPrimary {
			return fmt.Sprintf("places/%d/cover%s", placeID, ext(d))
		}
		return fmt.Sprintf("places/%d/gallery/%02d-%s%s", placeID, d.DisplayOrder, shortID(d), ext(d))
	})

	if len(uploaded) == 0 {
		return Report{Failures: failures}
	}

	images := make([]metadata.PlaceImage, 0, len(uploaded))
	for _, d := range uploaded {
		images = append(images, metadata.PlaceImage{
			ImageURL:     d.PublicURL,
			AltText:      d.AltText,
			IsPrimary:    d.IsPrimary,
			DisplayOrder: d.DisplayOrder,
		})
	}
	if err := p.api.RegisterPlaceImages(ctx, placeID, images); err != nil {
		return Report{Failures: append(failures, p.registrationFailures(buf, uploaded, err)...)}
	}
	p.complete(buf, uploaded)
	return Report{Registered: len(uploaded), Failures: failures}
}

// SectionImages uploads one content section's collection under its
// section-scoped path.
func (p *Pipeline) SectionImages(ctx context.Context, placeID, sectionID uint, buf *staging.Buffer) Report {
	uploaded, failures := p.uploadAll(ctx, buf, func(d *media.ImageDraft) string {
		return fmt.Sprintf("places/%d/sections/%d/%02d-%s%s", placeID, sectionID, d.DisplayOrder, shortID(d), ext(d))
	})

	if len(uploaded) == 0 {
		return Report{Failures: failures}
	}

	images := make([]metadata.SectionImage, 0, len(uploaded))
	for _, d := range uploaded {
		images = append(images, metadata.SectionImage{
			ImageURL:  d.PublicURL,
			AltTextAr: d.AltTextAr,
			AltTextEn: d.AltTextEn,
			CaptionAr: d.CaptionAr,
			CaptionEn: d.CaptionEn,
			SortOrder: d.DisplayOrder,
		})
	}
	if err := p.api.RegisterSectionImages(ctx, sectionID, images); err != nil {
		return Report{Failures: append(failures, p.registrationFailures(buf, uploaded, err)...)}
	}
	p.complete(buf, uploaded)
	return Report{Registered: len(uploaded), Failures: failures}
}

// uploadAll runs phase A for every pending draft of the buffer. Drafts fail
// independently; a completed draft from an earlier invocation is skipped,
// and a draft that already carries a storage result goes straight to the
// batch so a retry after a failed registration does not re-transfer binaries.
// The returned slices only settle once every attempt has resolved.
func (p *Pipeline) uploadAll(ctx context.Context, buf *staging.Buffer, keyFor func(*media.ImageDraft) string) ([]*media.ImageDraft, []submission.FileError) {
	var (
		mu       sync.Mutex
		uploaded []*media.ImageDraft
		failures []submission.FileError
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, d := range buf.Drafts() {
		if d.Uploaded() {
			continue
		}
		draft := d
		g.Go(func() error {
			if draft.StoragePath == "" || draft.PublicURL == "" {
				buf.MarkUploading(draft)
				if err := p.uploadOne(ctx, buf, draft, keyFor(draft)); err != nil {
					buf.MarkFailed(draft, err)
					p.log.Warn("image upload failed", "file", draft.FileName, "error", err)
					mu.Lock()
					failures = append(failures, submission.FileError{
						DraftID:  draft.ID,
						FileName: draft.FileName,
						Message:  err.Error(),
					})
					mu.Unlock()
					return nil // sibling uploads continue
				}
			}
			if !buf.Contains(draft.ID) {
				// removed mid-flight; the stored object has no owner left
				if err := p.store.Delete(ctx, draft.StoragePath); err != nil {
					p.log.Warn("orphaned object not deleted", "path", draft.StoragePath, "error", err)
				}
				return nil
			}
			mu.Lock()
			uploaded = append(uploaded, draft)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return uploaded, failures
}

func (p *Pipeline) uploadOne(ctx context.Context, buf *staging.Buffer, d *media.ImageDraft, key string) error {
	r, err := buf.Open(d)
	if err != nil {
		return fmt.Errorf("staged file unreadable: %w", err)
	}
	defer r.Close()

	url, err := p.store.Upload(ctx, key, d.MimeType, r)
	if err != nil {
		return err
	}
	buf.MarkUploaded(d, key, url)
	return nil
}

// complete settles a registered batch: drafts flip to completed and their
// staged copies are released.
func (p *Pipeline) complete(buf *staging.Buffer, uploaded []*media.ImageDraft) {
	for _, d := range uploaded {
		buf.MarkCompleted(d)
	}
}

// registrationFailures reports every draft of a failed phase-B batch. Their
// staged copies and storage results stay intact so a retry re-issues only
// the registration.
func (p *Pipeline) registrationFailures(buf *staging.Buffer, uploaded []*media.ImageDraft, err error) []submission.FileError {
	out := make([]submission.FileError, 0, len(uploaded))
	for _, d := range uploaded {
		buf.MarkFailed(d, fmt.Errorf("metadata registration failed: %w", err))
		out = append(out, submission.FileError{
			DraftID:  d.ID,
			FileName: d.FileName,
			Message:  fmt.Sprintf("metadata registration failed: %v", err),
		})
	}
	return out
}

func ext(d *media.ImageDraft) string {
	if e := filepath.Ext(d.FileName); e != "" {
		return strings.ToLower(e)
	}
	switch d.MimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/avif":
		return ".avif"
	}
	return ""
}

func shortID(d *media.ImageDraft) string {
	if len(d.ID) >= 8 {
		return d.ID[:8]
	}
	return d.ID
}
