package submit

import (
	"context"
	"errors"

	"submission-app/internal/domain/place"
	"submission-app/internal/domain/submission"
	"submission-app/internal/logger"
	"submission-app/internal/metadata"
	"submission-app/internal/upload"
	"submission-app/internal/wizard"
)

// Creator is the slice of the metadata client that creates the place record.
type Creator interface {
	CreatePlace(ctx context.Context, doc *place.FormDocument) (*metadata.CreatedPlace, error)
}

// WarningSink persists per-file upload warnings alongside a successful
// place creation.
type WarningSink interface {
	SaveWarnings(ctx context.Context, warnings []submission.Warning) error
}

// Result is the outcome of a successful submission. Warnings list the image
// uploads that failed; the place record itself exists either way.
type Result struct {
	Place    *metadata.CreatedPlace `json:"place"`
	Warnings []submission.Warning   `json:"warnings"`
}

// Coordinator sequences the submission: validate, create the metadata
// record, then run the upload pipeline for the place-level collection and
// each staged content section. Image failures are collected as warnings and
// never roll back the created place.
type Coordinator struct {
	api      Creator
	pipeline *upload.Pipeline
	warnings WarningSink
	log      *logger.Logger
}

func NewCoordinator(api Creator, pipeline *upload.Pipeline, warnings WarningSink, log *logger.Logger) *Coordinator {
	return &Coordinator{
		api:      api,
		pipeline: pipeline,
		warnings: warnings,
		log:      log.With("service", "SubmissionCoordinator"),
	}
}

// Submit drives the full sequence for one wizard session. On a validation
// or creation failure the session stays on the review step with the
// document preserved; otherwise the session reaches success even when image
// uploads partially fail.
func (c *Coordinator) Submit(ctx context.Context, w *wizard.Wizard) (*Result, error) {
	if err := w.BeginSubmit(); err != nil {
		return nil, submission.NewCreation(err.Error(), nil)
	}

	doc := w.Document()
	if errs := place.ValidateFull(&doc); !errs.Valid() {
		w.FailSubmit()
		return nil, submission.NewValidation(errs)
	}

	created, err := c.api.CreatePlace(ctx, &doc)
	if err != nil {
		w.FailSubmit()
		if errors.Is(err, metadata.ErrUnauthorized) {
			return nil, submission.NewCreation("metadata api rejected credentials", err)
		}
		return nil, submission.NewCreation("place creation failed", err)
	}
	c.log.Info("place record created", "place_id", created.ID, "session_id", w.ID)

	var warnings []submission.Warning

	if w.Images().Len() > 0 {
		report := c.pipeline.PlaceImages(ctx, created.ID, w.Images())
		warnings = append(warnings, placeWarnings(w.ID, created.ID, report)...)
	}

	// each section's batch runs independently; one failure never blocks a
	// sibling section
	sectionIDs := sectionIDsByIndex(created, &doc)
	for index, buf := range w.SectionBuffers() {
		if buf.Len() == 0 {
			continue
		}
		sectionID, ok := sectionIDs[index]
		if !ok {
			c.log.Warn("no server section id for staged images", "section_index", index)
			warnings = append(warnings, submission.Warning{
				SessionID: w.ID,
				PlaceID:   created.ID,
				Scope:     submission.ScopeSection,
				Message:   "content section was not created; its images were skipped",
			})
			continue
		}
		report := c.pipeline.SectionImages(ctx, created.ID, sectionID, buf)
		warnings = append(warnings, sectionWarnings(w.ID, created.ID, sectionID, report)...)
	}

	if len(warnings) > 0 && c.warnings != nil {
		if err := c.warnings.SaveWarnings(ctx, warnings); err != nil {
			c.log.Error("failed to persist submission warnings", "error", err)
		}
	}

	// the authoritative record exists; image completeness is best-effort
	w.Complete(created)
	return &Result{Place: created, Warnings: warnings}, nil
}

// sectionIDsByIndex maps draft section indexes to the server-assigned ids,
// matching by sort order.
func sectionIDsByIndex(created *metadata.CreatedPlace, doc *place.FormDocument) map[int]uint {
	out := make(map[int]uint, len(created.ContentSections))
	for _, cs := range created.ContentSections {
		if cs.SortOrder >= 0 && cs.SortOrder < len(doc.ContentSections) {
			out[cs.SortOrder] = cs.ID
		}
	}
	return out
}

func placeWarnings(sessionID string, placeID uint, report upload.Report) []submission.Warning {
	out := make([]submission.Warning, 0, len(report.Failures))
	for _, f := range report.Failures {
		out = append(out, submission.Warning{
			SessionID: sessionID,
			PlaceID:   placeID,
			Scope:     submission.ScopePlace,
			FileName:  f.FileName,
			Message:   f.Message,
		})
	}
	return out
}

func sectionWarnings(sessionID string, placeID, sectionID uint, report upload.Report) []submission.Warning {
	out := make([]submission.Warning, 0, len(report.Failures))
	for _, f := range report.Failures {
		sid := sectionID
		out = append(out, submission.Warning{
			SessionID: sessionID,
			PlaceID:   placeID,
			Scope:     submission.ScopeSection,
			SectionID: &sid,
			FileName:  f.FileName,
			Message:   f.Message,
		})
	}
	return out
}
