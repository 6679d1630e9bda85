package database

import (
	"fmt"
	"log/slog"

	"github.com/yukikurage/file-hosting-api/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates the users and files tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Profile{}, &models.File{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if err := AddIndexes(db); err != nil {
		return fmt.Errorf("failed to add indexes: %w", err)
	}
	return nil
}

// AddIndexes adds the composite indexes the list queries rely on.
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		model   any
		name    string
		columns string
	}{
		// Per-user file listing, newest first
		{&models.File{}, "idx_files_userid_uploaded_at", "userid, uploaded_at"},
		// Admin user listing
		{&models.Profile{}, "idx_users_created_at", "created_at"},
	}

	migrator := db.Migrator()
	for _, idx := range indexes {
		if migrator.HasIndex(idx.model, idx.name) {
			slog.Debug("Index already exists, skipping", "index", idx.name)
			continue
		}

		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(idx.model); err != nil {
			return fmt.Errorf("failed to parse model for index %s: %w", idx.name, err)
		}
		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, stmt.Schema.Table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
		slog.Debug("Created index", "index", idx.name, "table", stmt.Schema.Table)
	}

	return nil
}
