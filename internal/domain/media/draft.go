package media

import "time"

type DraftStatus string

const (
	StatusPending   DraftStatus = "pending"
	StatusUploading DraftStatus = "uploading"
	StatusCompleted DraftStatus = "completed"
	StatusError     DraftStatus = "error"
)

// ImageDraft is one image before and during upload. Pre-upload it holds a
// local staging path; post-upload it holds the storage path and public URL.
// The lifecycle is one-way: local -> uploaded.
type ImageDraft struct {
	ID       string `json:"id"`
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`

	// LocalPath points at the staged copy on disk until the binary is
	// uploaded and the staging file released.
	LocalPath string `json:"local_path,omitempty"`

	AltText   string `json:"alt_text"`
	AltTextAr string `json:"alt_text_ar"`
	AltTextEn string `json:"alt_text_en"`
	CaptionAr string `json:"caption_ar"`
	CaptionEn string `json:"caption_en"`

	DisplayOrder int  `json:"display_order"`
	IsPrimary    bool `json:"is_primary"`

	Status      DraftStatus `json:"status"`
	StoragePath string      `json:"storage_path,omitempty"`
	PublicURL   string      `json:"public_url,omitempty"`
	UploadError string      `json:"upload_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Uploaded reports whether the draft's binary is stored and registered.
func (d *ImageDraft) Uploaded() bool {
	return d.Status == StatusCompleted
}

// MetadataPatch carries alt text and caption edits. Nil fields are left
// untouched; order and the primary flag are never changed through here.
type MetadataPatch struct {
	AltText   *string `json:"alt_text"`
	AltTextAr *string `json:"alt_text_ar"`
	AltTextEn *string `json:"alt_text_en"`
	CaptionAr *string `json:"caption_ar"`
	CaptionEn *string `json:"caption_en"`
}

func (d *ImageDraft) ApplyMetadata(p MetadataPatch) {
	if p.AltText != nil {
		d.AltText = *p.AltText
	}
	if p.AltTextAr != nil {
		d.AltTextAr = *p.AltTextAr
	}
	if p.AltTextEn != nil {
		d.AltTextEn = *p.AltTextEn
	}
	if p.CaptionAr != nil {
		d.CaptionAr = *p.CaptionAr
	}
	if p.CaptionEn != nil {
		d.CaptionEn = *p.CaptionEn
	}
}
