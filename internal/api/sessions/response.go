package sessions

import (
	"submission-app/internal/domain/media"
	"submission-app/internal/domain/place"
	"submission-app/internal/domain/submission"
	"submission-app/internal/metadata"
	"submission-app/internal/staging"
	wiz "submission-app/internal/wizard"
)

type ImageDTO struct {
	ID       string `json:"id"`
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`

	AltText   string `json:"alt_text,omitempty"`
	AltTextAr string `json:"alt_text_ar,omitempty"`
	AltTextEn string `json:"alt_text_en,omitempty"`
	CaptionAr string `json:"caption_ar,omitempty"`
	CaptionEn string `json:"caption_en,omitempty"`

	DisplayOrder int  `json:"display_order"`
	IsPrimary    bool `json:"is_primary"`

	Status      string `json:"status"`
	PublicURL   string `json:"public_url,omitempty"`
	UploadError string `json:"upload_error,omitempty"`
}

type SessionDTO struct {
	ID            string             `json:"id"`
	Step          int                `json:"step"`
	StepName      string             `json:"step_name"`
	CompletedStep int                `json:"completed_step"`
	Status        string             `json:"status"`
	Document      place.FormDocument `json:"document"`

	Images        []ImageDTO             `json:"images"`
	SectionImages map[int][]ImageDTO     `json:"section_images,omitempty"`
	Place         *metadata.CreatedPlace `json:"place,omitempty"`

	Warnings []submission.Warning `json:"warnings,omitempty"`
}

func toImageDTO(d *media.ImageDraft) ImageDTO {
	return ImageDTO{
		ID:           d.ID,
		FileName:     d.FileName,
		MimeType:     d.MimeType,
		Size:         d.Size,
		AltText:      d.AltText,
		AltTextAr:    d.AltTextAr,
		AltTextEn:    d.AltTextEn,
		CaptionAr:    d.CaptionAr,
		CaptionEn:    d.CaptionEn,
		DisplayOrder: d.DisplayOrder,
		IsPrimary:    d.IsPrimary,
		Status:       string(d.Status),
		PublicURL:    d.PublicURL,
		UploadError:  d.UploadError,
	}
}

// toImageDTOs reads from a snapshot, not the live drafts; the upload
// pipeline may be writing them back concurrently.
func toImageDTOs(buf *staging.Buffer) []ImageDTO {
	drafts := buf.Snapshot()
	out := make([]ImageDTO, 0, len(drafts))
	for i := range drafts {
		out = append(out, toImageDTO(&drafts[i]))
	}
	return out
}

func toSessionDTO(w *wiz.Wizard, warnings []submission.Warning) SessionDTO {
	dto := SessionDTO{
		ID:            w.ID,
		Step:          int(w.CurrentStep()),
		StepName:      w.CurrentStep().String(),
		CompletedStep: int(w.CompletedStep()),
		Status:        string(w.Status()),
		Document:      w.Document(),
		Images:        toImageDTOs(w.Images()),
		Place:         w.CreatedPlace(),
		Warnings:      warnings,
	}
	sections := w.SectionBuffers()
	if len(sections) > 0 {
		dto.SectionImages = make(map[int][]ImageDTO, len(sections))
		for i, buf := range sections {
			dto.SectionImages[i] = toImageDTOs(buf)
		}
	}
	return dto
}
