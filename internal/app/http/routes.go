package routes

import (
	catalogapi "submission-app/internal/api/catalog"
	sessionsapi "submission-app/internal/api/sessions"
	"submission-app/internal/app/http/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, sessions *sessionsapi.Handler, catalog *catalogapi.Handler) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Cascade reference data
	cat := r.Group("/catalog")
	cat.Use(middleware.AuthMiddleware())
	cat.GET("/categories/primary", catalog.PrimaryCategories)
	cat.GET("/categories/secondary/:parentId", catalog.SecondaryCategories)
	cat.GET("/governates", catalog.Governates)
	cat.GET("/governates/:id/wilayahs", catalog.Wilayahs)
	cat.GET("/properties/category/:categoryId", catalog.Properties)

	// Wizard sessions
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(), middleware.SanitizeAndCleanInputMiddleware())

	auth.POST("/sessions", sessions.Create)
	auth.GET("/sessions/:id", sessions.Get)
	auth.PUT("/sessions/:id/document", sessions.UpdateDocument)

	auth.POST("/sessions/:id/advance", sessions.Advance)
	auth.POST("/sessions/:id/retreat", sessions.Retreat)
	auth.POST("/sessions/:id/jump", sessions.Jump)
	auth.POST("/sessions/:id/reset", sessions.Reset)

	auth.POST("/sessions/:id/images", sessions.AddImages)
	auth.POST("/sessions/:id/sections/:sectionIndex/images", sessions.AddSectionImages)
	auth.DELETE("/sessions/:id/images/:imageId", sessions.RemoveImage)
	auth.PUT("/sessions/:id/image-order", sessions.Reorder)
	auth.PUT("/sessions/:id/images/:imageId/primary", sessions.SetPrimary)
	auth.PATCH("/sessions/:id/images/:imageId", sessions.UpdateImage)

	auth.POST("/sessions/:id/submit", sessions.Submit)
}
