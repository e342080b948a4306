package staging

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"submission-app/internal/domain/media"
	"submission-app/internal/domain/submission"
)

// Limits gate files at staging time, before any network call.
type Limits struct {
	MaxBytes      int64
	MaxCount      int
	AcceptedTypes []string
}

// IncomingFile is one file as received from the client.
type IncomingFile struct {
	Name        string
	Size        int64
	ContentType string
	Data        io.Reader
}

// Buffer holds ImageDrafts and their user-edited metadata before upload. It
// owns the single-primary invariant and display ordering; the upload
// pipeline only writes back per-draft status.
type Buffer struct {
	mu     sync.Mutex
	files  FileStore
	limits Limits
	drafts []*media.ImageDraft
}

func NewBuffer(files FileStore, limits Limits) *Buffer {
	return &Buffer{files: files, limits: limits}
}

// AddFiles stages each accepted file and rejects the rest per-file. A file
// over the size ceiling, of an unaccepted type, or beyond the capacity
// ceiling is rejected without affecting its siblings.
func (b *Buffer) AddFiles(files []IncomingFile) ([]*media.ImageDraft, []submission.FileError) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var added []*media.ImageDraft
	var rejected []submission.FileError

	for _, f := range files {
		if f.Size > b.limits.MaxBytes {
			rejected = append(rejected, submission.FileError{
				FileName: f.Name,
				Message:  fmt.Sprintf("file exceeds the %d byte limit", b.limits.MaxBytes),
			})
			continue
		}
		if !b.acceptedType(f.ContentType) {
			rejected = append(rejected, submission.FileError{
				FileName: f.Name,
				Message:  fmt.Sprintf("unsupported file type %q", f.ContentType),
			})
			continue
		}
		if len(b.drafts) >= b.limits.MaxCount {
			rejected = append(rejected, submission.FileError{
				FileName: f.Name,
				Message:  fmt.Sprintf("image limit of %d reached", b.limits.MaxCount),
			})
			continue
		}

		path, err := b.files.Save(f.Name, f.Data)
		if err != nil {
			rejected = append(rejected, submission.FileError{
				FileName: f.Name,
				Message:  "failed to stage file",
			})
			continue
		}

		draft := &media.ImageDraft{
			ID:           uuid.NewString(),
			FileName:     f.Name,
			MimeType:     f.ContentType,
			Size:         f.Size,
			LocalPath:    path,
			DisplayOrder: b.nextOrder(),
			IsPrimary:    len(b.drafts) == 0,
			Status:       media.StatusPending,
			CreatedAt:    time.Now(),
		}
		b.drafts = append(b.drafts, draft)
		added = append(added, draft)
	}
	return added, rejected
}

// Remove deletes the draft and releases its staged file. When the primary
// image is removed and others remain, the first remaining image by display
// order becomes primary. The removal always completes; a failed file release
// is reported alongside the removed draft so the caller can still issue a
// storage delete for an already-uploaded binary.
func (b *Buffer) Remove(id string) (*media.ImageDraft, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := b.indexOf(id)
	if idx < 0 {
		return nil, fmt.Errorf("image %s not found", id)
	}
	removed := b.drafts[idx]
	b.drafts = append(b.drafts[:idx], b.drafts[idx+1:]...)

	if removed.IsPrimary && len(b.drafts) > 0 {
		b.firstByOrder().IsPrimary = true
	}

	err := b.files.Remove(removed.LocalPath)
	removed.LocalPath = ""
	if err != nil {
		return removed, fmt.Errorf("failed to release staged file: %w", err)
	}
	return removed, nil
}

// SetPrimary marks the target image primary and clears the flag on every
// sibling. Callers never observe zero or multiple primaries.
func (b *Buffer) SetPrimary(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.indexOf(id) < 0 {
		return fmt.Errorf("image %s not found", id)
	}
	for _, d := range b.drafts {
		d.IsPrimary = d.ID == id
	}
	return nil
}

// Reorder moves one draft and renumbers display_order contiguously from 0 to
// match the new order.
func (b *Buffer) Reorder(fromIndex, toIndex int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.drafts)
	if fromIndex < 0 || fromIndex >= n || toIndex < 0 || toIndex >= n {
		return fmt.Errorf("reorder out of range (%d -> %d of %d)", fromIndex, toIndex, n)
	}
	moved := b.drafts[fromIndex]
	rest := append(b.drafts[:fromIndex:fromIndex], b.drafts[fromIndex+1:]...)
	b.drafts = append(rest[:toIndex:toIndex], append([]*media.ImageDraft{moved}, rest[toIndex:]...)...)

	for i, d := range b.drafts {
		d.DisplayOrder = i
	}
	return nil
}

func (b *Buffer) UpdateMetadata(id string, p media.MetadataPatch) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := b.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("image %s not found", id)
	}
	b.drafts[idx].ApplyMetadata(p)
	return nil
}

// Drafts returns the drafts in display order. The slice is a copy; the
// drafts themselves are shared.
func (b *Buffer) Drafts() []*media.ImageDraft {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*media.ImageDraft, len(b.drafts))
	copy(out, b.drafts)
	return out
}

// Contains reports whether the draft is still owned by the buffer. An
// in-flight upload whose draft was removed mid-flight checks this before
// keeping its result.
func (b *Buffer) Contains(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.indexOf(id) >= 0
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.drafts)
}

// Open hands the upload pipeline a reader over a draft's staged binary.
func (b *Buffer) Open(d *media.ImageDraft) (io.ReadCloser, error) {
	b.mu.Lock()
	path := d.LocalPath
	b.mu.Unlock()
	return b.files.Open(path)
}

// The Mark methods are the upload pipeline's write-back path. Drafts are
// shared between the buffer and in-flight uploads; every mutation goes
// through the buffer mutex so session reads never observe a torn draft.

// MarkUploading flags a draft whose binary transfer has started.
func (b *Buffer) MarkUploading(d *media.ImageDraft) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d.Status = media.StatusUploading
}

// MarkUploaded records the storage result of a finished binary transfer.
// The staged copy stays put until the draft's registration lands.
func (b *Buffer) MarkUploaded(d *media.ImageDraft, key, publicURL string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d.StoragePath = key
	d.PublicURL = publicURL
}

// MarkFailed records an upload or registration failure. The staged copy and
// any storage result are kept so a retry only re-runs the failed phase.
func (b *Buffer) MarkFailed(d *media.ImageDraft, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d.Status = media.StatusError
	d.UploadError = err.Error()
}

// MarkCompleted finishes a draft whose registration landed and releases the
// staged copy; until then the local binary is still needed for retries.
func (b *Buffer) MarkCompleted(d *media.ImageDraft) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d.Status = media.StatusCompleted
	d.UploadError = ""
	if d.LocalPath != "" {
		_ = b.files.Remove(d.LocalPath)
		d.LocalPath = ""
	}
}

// Release drops every draft and its staged file. Called on form reset;
// leaving staged files behind is a resource leak.
func (b *Buffer) Release() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var firstErr error
	for _, d := range b.drafts {
		if err := b.files.Remove(d.LocalPath); err != nil && firstErr == nil {
			firstErr = err
		}
		d.LocalPath = ""
	}
	b.drafts = nil
	return firstErr
}

// Snapshot and Restore serialize the buffer for session persistence.
func (b *Buffer) Snapshot() []media.ImageDraft {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]media.ImageDraft, len(b.drafts))
	for i, d := range b.drafts {
		out[i] = *d
	}
	return out
}

func (b *Buffer) Restore(drafts []media.ImageDraft) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drafts = make([]*media.ImageDraft, len(drafts))
	for i := range drafts {
		d := drafts[i]
		b.drafts[i] = &d
	}
}

func (b *Buffer) indexOf(id string) int {
	for i, d := range b.drafts {
		if d.ID == id {
			return i
		}
	}
	return -1
}

func (b *Buffer) firstByOrder() *media.ImageDraft {
	first := b.drafts[0]
	for _, d := range b.drafts[1:] {
		if d.DisplayOrder < first.DisplayOrder {
			first = d
		}
	}
	return first
}

// nextOrder is the buffer length unless removals left a higher order in
// place; orders stay unique without being contiguous.
func (b *Buffer) nextOrder() int {
	next := len(b.drafts)
	for _, d := range b.drafts {
		if d.DisplayOrder >= next {
			next = d.DisplayOrder + 1
		}
	}
	return next
}

func (b *Buffer) acceptedType(ct string) bool {
	for _, t := range b.limits.AcceptedTypes {
		if t == ct {
			return true
		}
	}
	return false
}
