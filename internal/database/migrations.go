package database

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"
)

// AddIndexes adds the indexes the list and dashboard queries rely on. Only
// postgres is handled; AutoMigrate covers the tag-declared indexes elsewhere.
func AddIndexes(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}

	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Task indexes for filtering, summaries and recent lists
		{"tasks", "idx_tasks_status", "status"},
		{"tasks", "idx_tasks_priority", "priority"},
		{"tasks", "idx_tasks_due_date", "due_date"},
		{"tasks", "idx_tasks_created_at", "created_at"},
		{"tasks", "idx_tasks_updated_at", "updated_at"},

		// Task assignments indexes
		{"task_assignments", "idx_task_assignments_user_id", "user_id"},

		// Notification lookup by dedup key within the window
		{"notifications", "idx_notifications_dedup_created", "dedup_key, created_at"},
	}

	for _, idx := range indexes {
		var count int64
		err := db.Raw(`
			SELECT COUNT(*)
			FROM pg_indexes
			WHERE tablename = ? AND indexname = ?
		`, idx.table, idx.name).Count(&count).Error

		if err != nil {
			return fmt.Errorf("failed to check index %s: %w", idx.name, err)
		}

		if count > 0 {
			slog.Debug("index already exists", slog.String("index", idx.name))
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		slog.Info("created index", slog.String("index", idx.name), slog.String("table", idx.table))
	}

	return nil
}

// MigrateDatabase runs table migrations followed by index creation.
func MigrateDatabase(db *gorm.DB) error {
	if err := Migrate(db); err != nil {
		return err
	}

	if err := AddIndexes(db); err != nil {
		return fmt.Errorf("failed to add indexes: %w", err)
	}

	return nil
}
