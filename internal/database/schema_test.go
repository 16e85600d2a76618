package database

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const migrationsDir = "../../migrations"

func readMigration(t *testing.T, name string) string {
	t.Helper()
	content, err := os.ReadFile(filepath.Join(migrationsDir, name))
	if err != nil {
		t.Fatalf("Failed to read migration %s: %v", name, err)
	}
	return string(content)
}

func TestMigrationFilesHaveUpAndDown(t *testing.T) {
	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("Failed to read migrations directory: %v", err)
	}

	sqlFileCount := 0
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}
		sqlFileCount++
		content := readMigration(t, file.Name())

		for _, directive := range []string{
			"-- +goose Up",
			"-- +goose Down",
			"-- +goose StatementBegin",
			"-- +goose StatementEnd",
		} {
			if !strings.Contains(content, directive) {
				t.Errorf("Migration file %s missing %q directive", file.Name(), directive)
			}
		}
	}

	if sqlFileCount == 0 {
		t.Error("No SQL migration files found")
	}
}

func TestMigrationFilesCreateDocumentTables(t *testing.T) {
	expectedTables := map[string]string{
		"products":        "00001_create_products_table.sql",
		"batch_inventory": "00002_create_batch_inventory_table.sql",
	}

	for tableName, migrationFile := range expectedTables {
		content := readMigration(t, migrationFile)

		if !strings.Contains(content, "CREATE TABLE IF NOT EXISTS "+tableName) {
			t.Errorf("Migration file %s does not create table %s", migrationFile, tableName)
		}
		if !strings.Contains(content, "DROP TABLE IF EXISTS "+tableName) {
			t.Errorf("Migration file %s does not drop table %s in down section", migrationFile, tableName)
		}
		for _, column := range []string{"id TEXT PRIMARY KEY", "data JSONB NOT NULL", "created_at TIMESTAMPTZ", "updated_at TIMESTAMPTZ"} {
			if !strings.Contains(content, column) {
				t.Errorf("Table %s missing column definition: %s", tableName, column)
			}
		}
	}
}

func TestBatchStatusIsConstrained(t *testing.T) {
	content := readMigration(t, "00002_create_batch_inventory_table.sql")

	if !strings.Contains(content, "CHECK (status IN ('active', 'depleted', 'archived'))") {
		t.Error("batch_inventory.status must be limited to the known batch states")
	}
	if !strings.Contains(content, "(created_at DESC)") {
		t.Error("batch_inventory needs a created_at DESC index for the live batch list")
	}
}

func TestChangeTriggersNotifyListenerChannels(t *testing.T) {
	content := readMigration(t, "00003_create_change_notify_triggers.sql")

	for _, channel := range []string{ChannelProducts, ChannelBatches} {
		if !strings.Contains(content, "notify_document_change('"+channel+"')") {
			t.Errorf("no trigger notifies channel %s", channel)
		}
	}
	if !strings.Contains(content, "pg_notify") {
		t.Error("trigger function does not call pg_notify")
	}
}
