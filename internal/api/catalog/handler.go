package catalog

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	catalogsvc "submission-app/internal/catalog"
	"submission-app/internal/logger"
)

type Handler struct {
	resolver *catalogsvc.Resolver
	log      *logger.Logger
}

func NewHandler(resolver *catalogsvc.Resolver, log *logger.Logger) *Handler {
	return &Handler{resolver: resolver, log: log.With("handler", "catalog")}
}

// Every cascade endpoint degrades a fetch failure to an empty list plus an
// error flag; the wizard step stays usable and the client can retry.
func (h *Handler) PrimaryCategories(c *gin.Context) {
	entries, err := h.resolver.PrimaryCategories(c.Request.Context())
	h.respond(c, entries, err)
}

func (h *Handler) SecondaryCategories(c *gin.Context) {
	parentID, ok := paramID(c, "parentId")
	if !ok {
		return
	}
	entries, err := h.resolver.Children(c.Request.Context(), catalogsvc.CascadeCategories, parentID)
	h.respond(c, entries, err)
}

func (h *Handler) Governates(c *gin.Context) {
	entries, err := h.resolver.Governates(c.Request.Context())
	h.respond(c, entries, err)
}

func (h *Handler) Wilayahs(c *gin.Context) {
	governorateID, ok := paramID(c, "id")
	if !ok {
		return
	}
	entries, err := h.resolver.Children(c.Request.Context(), catalogsvc.CascadeWilayahs, governorateID)
	h.respond(c, entries, err)
}

func (h *Handler) Properties(c *gin.Context) {
	categoryID, ok := paramID(c, "categoryId")
	if !ok {
		return
	}
	entries, err := h.resolver.Children(c.Request.Context(), catalogsvc.CascadeProperties, categoryID)
	h.respond(c, entries, err)
}

func (h *Handler) respond(c *gin.Context, entries interface{}, err error) {
	resp := gin.H{"data": entries}
	if err != nil {
		h.log.Warn("catalog fetch degraded", "path", c.FullPath(), "error", err)
		resp["error"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}
