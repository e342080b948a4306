package submit

import (
	"context"

	"gorm.io/gorm"

	"submission-app/internal/domain/submission"
)

type warningStore struct {
	db *gorm.DB
}

// NewWarningStore persists submission warnings in the database.
func NewWarningStore(db *gorm.DB) WarningSink {
	return &warningStore{db: db}
}

func (s *warningStore) SaveWarnings(ctx context.Context, warnings []submission.Warning) error {
	if len(warnings) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&warnings).Error
}

// WarningsForSession lists the persisted warnings of one session so a client
// can re-offer the failed uploads later.
func WarningsForSession(ctx context.Context, db *gorm.DB, sessionID string) ([]submission.Warning, error) {
	var out []submission.Warning
	err := db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}
