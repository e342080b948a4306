package database

import (
	"log"
	"os"

	"submission-app/internal/domain/submission"
	"submission-app/internal/wizard"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func InitDB() {
	dsn := os.Getenv("DB_URL")
	if dsn == "" {
		log.Fatal("DB_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	DB = db

	if err := DB.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error; err != nil {
		log.Fatal("Failed to enable pgcrypto extension:", err)
	}

	if err := DB.AutoMigrate(
		&wizard.SessionRecord{},
		&submission.Warning{},
	); err != nil {
		log.Fatal("AutoMigrate error:", err)
	}
}
