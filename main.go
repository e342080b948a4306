package main

import (
	"context"
	"log"
	"os"
	"time"

	"submission-app/config"
	"submission-app/database"
	catalogapi "submission-app/internal/api/catalog"
	sessionsapi "submission-app/internal/api/sessions"
	routes "submission-app/internal/app/http"
	"submission-app/internal/catalog"
	"submission-app/internal/logger"
	"submission-app/internal/metadata"
	"submission-app/internal/staging"
	"submission-app/internal/storage"
	"submission-app/internal/submit"
	"submission-app/internal/upload"
	"submission-app/internal/wizard"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// gin.SetMode(gin.ReleaseMode) uncomment only in production
	config.LoadEnv()
	database.InitDB()
	database.InitRedis()

	appLog, err := logger.New(os.Getenv("APP_ENV"))
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer appLog.Sync()

	var store storage.ObjectStore
	if config.USE_GCS {
		store, err = storage.NewGCSStore(context.Background(), config.GCS_BUCKET_NAME, config.CDN_DOMAIN, appLog)
	} else {
		store, err = storage.NewLocalStore(config.LOCAL_STORAGE_DIR, "http://localhost:"+config.PORT+"/static", appLog)
	}
	if err != nil {
		appLog.Fatal("failed to build object store", "error", err)
	}

	files, err := staging.NewDiskStore(config.STAGING_DIR)
	if err != nil {
		appLog.Fatal("failed to build staging store", "error", err)
	}
	limits := staging.Limits{
		MaxBytes:      config.MAX_IMAGE_BYTES,
		MaxCount:      config.MAX_IMAGES_PER_PLACE,
		AcceptedTypes: config.ACCEPTED_IMAGE_TYPES,
	}

	api := metadata.NewClient(config.METADATA_API_URL, config.METADATA_API_TOKEN, appLog)
	resolver := catalog.NewResolver(api, database.RedisClient, appLog)
	manager := wizard.NewManager(database.DB, files, limits, appLog)
	pipeline := upload.NewPipeline(store, api, appLog)
	coordinator := submit.NewCoordinator(api, pipeline, submit.NewWarningStore(database.DB), appLog)

	sessions := sessionsapi.NewHandler(manager, resolver, coordinator, store, database.DB, appLog)
	catalogHandler := catalogapi.NewHandler(resolver, appLog)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{config.CORS_ORIGIN},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if !config.USE_GCS {
		r.Static("/static", config.LOCAL_STORAGE_DIR)
	}

	routes.RegisterRoutes(r, sessions, catalogHandler)

	r.Run(":" + config.PORT)
}
