package sessions

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"submission-app/internal/catalog"
	"submission-app/internal/domain/media"
	"submission-app/internal/domain/place"
	"submission-app/internal/domain/submission"
	"submission-app/internal/logger"
	"submission-app/internal/metadata"
	"submission-app/internal/staging"
	"submission-app/internal/storage"
	"submission-app/internal/submit"
	wiz "submission-app/internal/wizard"
)

type Handler struct {
	manager     *wiz.Manager
	resolver    *catalog.Resolver
	coordinator *submit.Coordinator
	store       storage.ObjectStore
	db          *gorm.DB
	log         *logger.Logger
}

func NewHandler(manager *wiz.Manager, resolver *catalog.Resolver, coordinator *submit.Coordinator, store storage.ObjectStore, db *gorm.DB, log *logger.Logger) *Handler {
	return &Handler{
		manager:     manager,
		resolver:    resolver,
		coordinator: coordinator,
		store:       store,
		db:          db,
		log:         log.With("handler", "sessions"),
	}
}

func mustUserID(c *gin.Context) (uint, bool) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return 0, false
	}
	return userID, true
}

func (h *Handler) session(c *gin.Context) (*wiz.Wizard, bool) {
	userID, ok := mustUserID(c)
	if !ok {
		return nil, false
	}
	w, err := h.manager.Get(c.Param("id"), userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return nil, false
	}
	return w, true
}

func (h *Handler) save(w *wiz.Wizard) {
	if err := h.manager.Save(w); err != nil {
		h.log.Error("failed to persist session", "session_id", w.ID, "error", err)
	}
}

// ------------------------------
// POST /sessions
// ------------------------------
func (h *Handler) Create(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	w, err := h.manager.Create(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open session"})
		return
	}
	c.JSON(http.StatusCreated, toSessionDTO(w, nil))
}

// ------------------------------
// GET /sessions/:id
// ------------------------------
func (h *Handler) Get(c *gin.Context) {
	w, ok := h.session(c)
	if !ok {
		return
	}
	var warnings []submission.Warning
	if h.db != nil {
		var err error
		warnings, err = submit.WarningsForSession(c.Request.Context(), h.db, w.ID)
		if err != nil {
			h.log.Warn("failed to load warnings", "session_id", w.ID, "error", err)
		}
	}
	c.JSON(http.StatusOK, toSessionDTO(w, warnings))
}

// ------------------------------
// PUT /sessions/:id/document
// ------------------------------
func (h *Handler) UpdateDocument(c *gin.Context) {
	w, ok := h.session(c)
	if !ok {
		return
	}

	var req place.Patch
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := w.Update(req); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	// dependent selections are invalidated against the new parent's list
	var fetchErrs []string
	if req.ParentCategoryID != nil {
		if msg := h.cascade(c, w, catalog.CascadeCategories, *req.ParentCategoryID); msg != "" {
			fetchErrs = append(fetchErrs, msg)
		}
	}
	if req.GovernorateID != nil {
		if msg := h.cascade(c, w, catalog.CascadeWilayahs, *req.GovernorateID); msg != "" {
			fetchErrs = append(fetchErrs, msg)
		}
	}

	h.save(w)
	resp := gin.H{"session": toSessionDTO(w, nil)}
	if len(fetchErrs) > 0 {
		resp["dependency_errors"] = fetchErrs
	}
	c.JSON(http.StatusOK, resp)
}

// cascade fetches the dependent list for the newly selected parent and
// applies the invalidation, discarding the response if the parent changed
// again while the fetch was in flight. A fetch failure degrades to an empty
// list plus a reported error.
func (h *Handler) cascade(c *gin.Context, w *wiz.Wizard, cascade catalog.Cascade, parentID uint) string {
	w.Cascades.Select(cascade, parentID)

	entries, err := h.resolver.Children(c.Request.Context(), cascade, parentID)
	if !w.Cascades.Deliver(cascade, parentID, entries) {
		return "" // stale response, a newer selection won
	}

	ids := entryIDs(entries)
	switch cascade {
	case catalog.CascadeCategories:
		w.SelectParentCategory(parentID, ids)
	case catalog.CascadeWilayahs:
		w.SelectGovernorate(parentID, ids)
	case catalog.CascadeProperties:
		w.FilterProperties(ids)
	}

	if err != nil {
		return err.Error()
	}
	return ""
}

// ------------------------------
// step transitions
// ------------------------------
func (h *Handler) Advance(c *gin.Context) {
	w, ok := h.session(c)
	if !ok {
		return
	}
	fields, err := w.Advance()
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if !fields.Valid() {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Validation failed", "fields": fields})
		return
	}
	h.save(w)
	c.JSON(http.StatusOK, toSessionDTO(w, nil))
}

func (h *Handler) Retreat(c *gin.Context) {
	w, ok := h.session(c)
	if !ok {
		return
	}
	if err := w.Retreat(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	h.save(w)
	c.JSON(http.StatusOK, toSessionDTO(w, nil))
}

func (h *Handler) Jump(c *gin.Context) {
	w, ok := h.session(c)
	if !ok {
		return
	}
	var req JumpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := w.JumpTo(wiz.Step(*req.Step)); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	h.save(w)
	c.JSON(http.StatusOK, toSessionDTO(w, nil))
}

func (h *Handler) Reset(c *gin.Context) {
	w, ok := h.session(c)
	if !ok {
		return
	}
	if err := w.Reset(); err != nil {
		h.log.Warn("staged file release failed on reset", "session_id", w.ID, "error", err)
	}
	h.save(w)
	c.JSON(http.StatusOK, toSessionDTO(w, nil))
}

// ------------------------------
// image staging
// ------------------------------
func (h *Handler) AddImages(c *gin.Context) {
	w, ok := h.session(c)
	if !ok {
		return
	}
	h.stageInto(c, w, w.Images())
}

func (h *Handler) AddSectionImages(c *gin.Context) {
	w, ok := h.session(c)
	if !ok {
		return
	}
	index, err := sectionIndex(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	buf, err := w.SectionBuffer(index)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	h.stageInto(c, w, buf)
}

func (h *Handler) stageInto(c *gin.Context, w *wiz.Wizard, buf *staging.Buffer) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Multipart form required"})
		return
	}
	headers := form.File["images"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No images attached"})
		return
	}

	var incoming []staging.IncomingFile
	var opened []interface{ Close() error }
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			continue
		}
		opened = append(opened, f)
		incoming = append(incoming, staging.IncomingFile{
			Name:        fh.Filename,
			Size:        fh.Size,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        f,
		})
	}
	added, rejected := buf.AddFiles(incoming)
	for _, f := range opened {
		_ = f.Close()
	}

	h.save(w)

	addedDTOs := make([]ImageDTO, 0, len(added))
	for _, d := range added {
		addedDTOs = append(addedDTOs, toImageDTO(d))
	}
	if len(added) == 0 {
		f := submission.NewResource("no file was accepted for staging")
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": f.Message, "kind": f.Kind, "rejected": rejected})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"added": addedDTOs, "rejected": rejected})
}

// findBuffer locates the buffer owning the image: the place-level buffer or
// any section buffer.
func findBuffer(w *wiz.Wizard, imageID string) *staging.Buffer {
	if w.Images().Contains(imageID) {
		return w.Images()
	}
	for _, buf := range w.SectionBuffers() {
		if buf.Contains(imageID) {
			return buf
		}
	}
	return nil
}

// ------------------------------
// DELETE /sessions/:id/images/:imageId
// ------------------------------
func (h *Handler) RemoveImage(c *gin.Context) {
	w, ok := h.session(c)
	if !ok {
		return
	}
	imageID := c.Param("imageId")
	buf := findBuffer(w, imageID)
	if buf == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
		return
	}
	removed, err := buf.Remove(imageID)
	if removed == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
		return
	}
	if err != nil {
		// the draft is gone either way; a stuck staged file is not fatal
		h.log.Warn("staged file release failed", "image_id", imageID, "error", err)
	}
	// an already-uploaded draft also drops its storage object, best effort
	if removed.StoragePath != "" {
		if err := h.store.Delete(c.Request.Context(), removed.StoragePath); err != nil {
			h.log.Warn("storage delete failed", "path", removed.StoragePath, "error", err)
		}
	}
	h.save(w)
	c.JSON(http.StatusOK, toSessionDTO(w, nil))
}

func (h *Handler) SetPrimary(c *gin.Context) {
	w, ok := h.session(c)
	if !ok {
		return
	}
	if err := w.Images().SetPrimary(c.Param("imageId")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	h.save(w)
	c.JSON(http.StatusOK, toSessionDTO(w, nil))
}

func (h *Handler) Reorder(c *gin.Context) {
	w, ok := h.session(c)
	if !ok {
		return
	}
	var req ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := w.Images().Reorder(*req.FromIndex, *req.ToIndex); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.save(w)
	c.JSON(http.StatusOK, toSessionDTO(w, nil))
}

func (h *Handler) UpdateImage(c *gin.Context) {
	w, ok := h.session(c)
	if !ok {
		return
	}
	var req media.MetadataPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	imageID := c.Param("imageId")
	buf := findBuffer(w, imageID)
	if buf == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
		return
	}
	if err := buf.UpdateMetadata(imageID, req); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	h.save(w)
	c.JSON(http.StatusOK, toSessionDTO(w, nil))
}

// ------------------------------
// POST /sessions/:id/submit
// ------------------------------
func (h *Handler) Submit(c *gin.Context) {
	w, ok := h.session(c)
	if !ok {
		return
	}

	result, err := h.coordinator.Submit(c.Request.Context(), w)
	h.save(w)
	if err != nil {
		var f *submission.Failure
		switch {
		case errors.As(err, &f) && f.Kind == submission.KindValidation:
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Validation failed", "fields": f.Fields})
		case submission.KindOf(err) == submission.KindCreation:
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session":  toSessionDTO(w, result.Warnings),
		"place":    result.Place,
		"warnings": result.Warnings,
	})
}

func entryIDs(entries []metadata.Entry) []uint {
	out := make([]uint, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func sectionIndex(c *gin.Context) (int, error) {
	i, err := strconv.Atoi(c.Param("sectionIndex"))
	if err != nil || i < 0 {
		return 0, fmt.Errorf("invalid section index %q", c.Param("sectionIndex"))
	}
	return i, nil
}
