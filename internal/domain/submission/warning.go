package submission

import "time"

const (
	ScopePlace   = "place"
	ScopeSection = "section"
)

// Warning is a persisted submission-level notice: the place record exists
// but one image upload failed. Kept so a client can re-offer the upload
// outside the wizard.
type Warning struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string `gorm:"type:uuid;not null;index" json:"session_id"`
	PlaceID   uint   `gorm:"not null;index" json:"place_id"`

	Scope     string `gorm:"not null" json:"scope"`
	SectionID *uint  `gorm:"index" json:"section_id,omitempty"`

	FileName string `json:"file_name"`
	Message  string `gorm:"not null" json:"message"`

	CreatedAt time.Time `json:"created_at"`
}
