package wizard

import (
	"fmt"
	"sync"

	"submission-app/internal/catalog"
	"submission-app/internal/domain/place"
	"submission-app/internal/metadata"
	"submission-app/internal/staging"
)

type Step int

const (
	StepCategory Step = iota + 1
	StepBasicInfo
	StepLocation
	StepContent
	StepImages
	StepContact
	StepReview
	StepSuccess
)

func (s Step) String() string {
	switch s {
	case StepCategory:
		return "category"
	case StepBasicInfo:
		return "basic_info"
	case StepLocation:
		return "location"
	case StepContent:
		return "content"
	case StepImages:
		return "images"
	case StepContact:
		return "contact"
	case StepReview:
		return "review"
	case StepSuccess:
		return "success"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

type Status string

const (
	StatusEditing    Status = "editing"
	StatusSubmitting Status = "submitting"
	StatusSuccess    Status = "success"
)

// Wizard owns one in-progress FormDocument for the lifetime of a submission
// session. Step transitions are gated by per-step validation; the terminal
// success state is reachable only through Complete, which the submission
// coordinator calls once the place record exists.
type Wizard struct {
	ID     string
	UserID uint

	// Cascades tracks the active parent of each dependent fetch so a stale
	// response can be discarded instead of applied.
	Cascades *catalog.Selection

	mu          sync.Mutex
	currentStep Step
	completed   Step // highest step that has passed validation
	status      Status
	document    place.FormDocument
	images      *staging.Buffer
	sections    map[int]*staging.Buffer
	created     *metadata.CreatedPlace

	newBuffer func() *staging.Buffer
}

func New(id string, userID uint, newBuffer func() *staging.Buffer) *Wizard {
	return &Wizard{
		ID:          id,
		UserID:      userID,
		Cascades:    catalog.NewSelection(),
		currentStep: StepCategory,
		status:      StatusEditing,
		images:      newBuffer(),
		sections:    make(map[int]*staging.Buffer),
		newBuffer:   newBuffer,
	}
}

var stepChecks = map[Step]func(*place.FormDocument) place.Fields{
	StepCategory:  place.ValidateCategory,
	StepBasicInfo: place.ValidateBasicInfo,
	StepLocation:  place.ValidateLocation,
	StepContent:   place.ValidateContent,
	StepContact:   place.ValidateContact,
}

// Advance validates the current step's slice of the document. On success the
// wizard moves one step forward; on failure it stays put and returns the
// field errors. Validation is pure, so retrying an already-valid step is
// harmless.
func (w *Wizard) Advance() (place.Fields, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.status != StatusEditing {
		return nil, fmt.Errorf("cannot advance while %s", w.status)
	}
	if w.currentStep >= StepReview {
		return nil, fmt.Errorf("review step completes by submission, not advance")
	}

	if check := stepChecks[w.currentStep]; check != nil {
		if errs := check(&w.document); !errs.Valid() {
			return errs, nil
		}
	}
	if w.currentStep > w.completed {
		w.completed = w.currentStep
	}
	w.currentStep++
	return nil, nil
}

// Retreat moves one step back without re-validating or discarding data.
func (w *Wizard) Retreat() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.status != StatusEditing {
		return fmt.Errorf("cannot retreat while %s", w.status)
	}
	if w.currentStep <= StepCategory {
		return fmt.Errorf("already at the first step")
	}
	w.currentStep--
	return nil
}

// JumpTo moves directly to a previously-completed step. Skipping ahead is
// not permitted.
func (w *Wizard) JumpTo(step Step) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.status != StatusEditing {
		return fmt.Errorf("cannot jump while %s", w.status)
	}
	if step < StepCategory || step > w.completed {
		return fmt.Errorf("step %s has not been completed yet", step)
	}
	w.currentStep = step
	return nil
}

// Update merges a partial document. Unrelated fields are never touched.
func (w *Wizard) Update(p place.Patch) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.status != StatusEditing {
		return fmt.Errorf("cannot edit while %s", w.status)
	}
	w.document.Apply(p)
	return nil
}

// SelectParentCategory sets the parent and clears any chosen child category
// that is not in the new dependent list.
func (w *Wizard) SelectParentCategory(id uint, children []uint) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.document.ParentCategoryID = id
	w.document.CategoryIDs = intersect(w.document.CategoryIDs, children)
}

// SelectGovernorate sets the governorate and clears a wilayah selection that
// does not belong to it.
func (w *Wizard) SelectGovernorate(id uint, wilayahs []uint) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.document.GovernorateID = id
	if w.document.WilayahID != 0 && !contains(wilayahs, w.document.WilayahID) {
		w.document.WilayahID = 0
	}
}

// FilterProperties drops selected property ids not applicable to the chosen
// category.
func (w *Wizard) FilterProperties(valid []uint) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.document.PropertyIDs = intersect(w.document.PropertyIDs, valid)
}

// Images is the place-level staging buffer.
func (w *Wizard) Images() *staging.Buffer {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.images
}

// SectionBuffer returns the staging buffer of one content section, creating
// it on first use.
func (w *Wizard) SectionBuffer(index int) (*staging.Buffer, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if index < 0 || index >= len(w.document.ContentSections) {
		return nil, fmt.Errorf("no content section at index %d", index)
	}
	buf, ok := w.sections[index]
	if !ok {
		buf = w.newBuffer()
		w.sections[index] = buf
	}
	return buf, nil
}

// SectionBuffers returns the staged section collections keyed by section
// index.
func (w *Wizard) SectionBuffers() map[int]*staging.Buffer {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make(map[int]*staging.Buffer, len(w.sections))
	for i, b := range w.sections {
		out[i] = b
	}
	return out
}

// Reset returns to step 1 with an empty document. Every staged file is
// released before the state is dropped.
func (w *Wizard) Reset() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var firstErr error
	if err := w.images.Release(); err != nil {
		firstErr = err
	}
	for _, buf := range w.sections {
		if err := buf.Release(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	w.document = place.FormDocument{}
	w.currentStep = StepCategory
	w.completed = 0
	w.status = StatusEditing
	w.images = w.newBuffer()
	w.sections = make(map[int]*staging.Buffer)
	w.created = nil
	return firstErr
}

// BeginSubmit enters the submitting sub-state. Only valid from the review
// step.
func (w *Wizard) BeginSubmit() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.status == StatusSuccess {
		return fmt.Errorf("submission already succeeded")
	}
	if w.status == StatusSubmitting {
		return fmt.Errorf("submission already in progress")
	}
	if w.currentStep != StepReview {
		return fmt.Errorf("submit from step %s is not allowed", w.currentStep)
	}
	w.status = StatusSubmitting
	return nil
}

// FailSubmit returns to the review step with the document preserved for
// correction and resubmission.
func (w *Wizard) FailSubmit() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.status == StatusSubmitting {
		w.status = StatusEditing
	}
}

// Complete records the created place and enters the terminal success state.
// Image upload failures do not block this transition.
func (w *Wizard) Complete(created *metadata.CreatedPlace) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.created = created
	w.completed = StepReview
	w.currentStep = StepSuccess
	w.status = StatusSuccess
}

func (w *Wizard) CurrentStep() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.currentStep
}

func (w *Wizard) CompletedStep() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.completed
}

func (w *Wizard) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// Document returns a copy of the in-progress draft.
func (w *Wizard) Document() place.FormDocument {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.document
}

// CreatedPlace is non-nil once the metadata record exists.
func (w *Wizard) CreatedPlace() *metadata.CreatedPlace {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.created
}

func intersect(ids, allowed []uint) []uint {
	out := ids[:0:0]
	for _, id := range ids {
		if contains(allowed, id) {
			out = append(out, id)
		}
	}
	return out
}

func contains(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
