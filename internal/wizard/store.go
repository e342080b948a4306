package wizard

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"submission-app/internal/domain/media"
	"submission-app/internal/domain/place"
	"submission-app/internal/logger"
	"submission-app/internal/metadata"
	"submission-app/internal/staging"
)

// SessionRecord is the persisted snapshot of a wizard session. The full
// state travels as one jsonb document; step and status are lifted into
// columns for querying.
type SessionRecord struct {
	ID     string `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uint   `gorm:"not null;index" json:"-"`

	CurrentStep int    `gorm:"not null;default:1" json:"current_step"`
	Status      string `gorm:"not null;default:'editing'" json:"status"`

	State json.RawMessage `gorm:"type:jsonb;not null;default:'{}'" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type sessionState struct {
	Document  place.FormDocument         `json:"document"`
	Completed Step                       `json:"completed"`
	Images    []media.ImageDraft         `json:"images"`
	Sections  map[int][]media.ImageDraft `json:"sections"`
	Created   *metadata.CreatedPlace     `json:"created,omitempty"`
}

// Manager owns the live wizard sessions and mirrors each mutation into the
// database so a session survives a restart. A nil db keeps sessions in
// memory only (tests).
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Wizard

	db     *gorm.DB
	files  staging.FileStore
	limits staging.Limits
	log    *logger.Logger
}

func NewManager(db *gorm.DB, files staging.FileStore, limits staging.Limits, log *logger.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Wizard),
		db:       db,
		files:    files,
		limits:   limits,
		log:      log.With("service", "WizardManager"),
	}
}

func (m *Manager) newBuffer() *staging.Buffer {
	return staging.NewBuffer(m.files, m.limits)
}

// Create opens a new wizard session for the user.
func (m *Manager) Create(userID uint) (*Wizard, error) {
	w := New(uuid.NewString(), userID, m.newBuffer)

	m.mu.Lock()
	m.sessions[w.ID] = w
	m.mu.Unlock()

	if err := m.Save(w); err != nil {
		return nil, err
	}
	return w, nil
}

// Get returns a live session, falling back to the persisted snapshot when
// the process was restarted since the session was opened.
func (m *Manager) Get(id string, userID uint) (*Wizard, error) {
	m.mu.Lock()
	w, ok := m.sessions[id]
	m.mu.Unlock()

	if !ok {
		var err error
		w, err = m.load(id)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.sessions[id] = w
		m.mu.Unlock()
	}

	if w.UserID != userID {
		return nil, fmt.Errorf("session %s not found", id)
	}
	return w, nil
}

// Save snapshots the session into the database.
func (m *Manager) Save(w *Wizard) error {
	if m.db == nil {
		return nil
	}

	w.mu.Lock()
	state := sessionState{
		Document:  w.document,
		Completed: w.completed,
		Images:    w.images.Snapshot(),
		Sections:  make(map[int][]media.ImageDraft, len(w.sections)),
		Created:   w.created,
	}
	for i, buf := range w.sections {
		state.Sections[i] = buf.Snapshot()
	}
	rec := SessionRecord{
		ID:          w.ID,
		UserID:      w.UserID,
		CurrentStep: int(w.currentStep),
		Status:      string(w.status),
	}
	w.mu.Unlock()

	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}
	rec.State = raw

	return m.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"current_step", "status", "state", "updated_at"}),
	}).Create(&rec).Error
}

// Drop removes a finished session from memory and the database.
func (m *Manager) Drop(id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()

	if m.db == nil {
		return nil
	}
	return m.db.Delete(&SessionRecord{}, "id = ?", id).Error
}

func (m *Manager) load(id string) (*Wizard, error) {
	if m.db == nil {
		return nil, fmt.Errorf("session %s not found", id)
	}

	var rec SessionRecord
	if err := m.db.First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("session %s not found", id)
		}
		return nil, err
	}

	var state sessionState
	if err := json.Unmarshal(rec.State, &state); err != nil {
		return nil, fmt.Errorf("failed to restore session %s: %w", id, err)
	}

	w := New(rec.ID, rec.UserID, m.newBuffer)
	w.mu.Lock()
	w.currentStep = Step(rec.CurrentStep)
	w.completed = state.Completed
	w.status = Status(rec.Status)
	w.document = state.Document
	w.created = state.Created
	w.images.Restore(state.Images)
	for i, drafts := range state.Sections {
		buf := m.newBuffer()
		buf.Restore(drafts)
		w.sections[i] = buf
	}
	w.mu.Unlock()

	m.log.Info("session restored from snapshot", "session_id", rec.ID)
	return w, nil
}
