package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

var (
	PORT        string
	DB_URL      string
	JWT_SECRET  string
	CORS_ORIGIN string

	METADATA_API_URL   string
	METADATA_API_TOKEN string

	USE_GCS           bool
	GCS_BUCKET_NAME   string
	CDN_DOMAIN        string
	LOCAL_STORAGE_DIR string

	REDIS_ADDRESS  string
	REDIS_PASSWORD string

	STAGING_DIR          string
	MAX_IMAGE_BYTES      int64
	MAX_IMAGES_PER_PLACE int
	ACCEPTED_IMAGE_TYPES []string
)

func LoadEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}

	PORT = getEnv("PORT", "8080")
	DB_URL = mustEnv("DB_URL")
	JWT_SECRET = mustEnv("JWT_SECRET")
	CORS_ORIGIN = getEnv("CORS_ORIGIN", "*")

	METADATA_API_URL = mustEnv("METADATA_API_URL")
	METADATA_API_TOKEN = mustEnv("METADATA_API_TOKEN")

	USE_GCS = getEnv("USE_GCS", "false") == "true"
	GCS_BUCKET_NAME = getEnv("GCS_BUCKET_NAME", "")
	if USE_GCS && GCS_BUCKET_NAME == "" {
		log.Fatal("USE_GCS=true but GCS_BUCKET_NAME is not set")
	}
	CDN_DOMAIN = getEnv("CDN_DOMAIN", "")
	LOCAL_STORAGE_DIR = getEnv("LOCAL_STORAGE_DIR", "./uploads")

	REDIS_ADDRESS = getEnv("REDIS_ADDRESS", "")
	REDIS_PASSWORD = getEnv("REDIS_PASSWORD", "")

	STAGING_DIR = getEnv("STAGING_DIR", os.TempDir())
	MAX_IMAGE_BYTES = getEnvInt64("MAX_IMAGE_BYTES", 10<<20)
	MAX_IMAGES_PER_PLACE = int(getEnvInt64("MAX_IMAGES_PER_PLACE", 15))
	ACCEPTED_IMAGE_TYPES = strings.Split(
		getEnv("ACCEPTED_IMAGE_TYPES", "image/jpeg,image/png,image/webp,image/avif"), ",")
}

func mustEnv(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("Missing required environment variable: %s", key)
	}
	return v
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	v, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Fatalf("Invalid value for %s: %q", key, v)
	}
	return n
}
