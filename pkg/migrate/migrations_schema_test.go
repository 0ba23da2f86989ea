package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitMigrationCoversCoreTables(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_init_schema.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no init schema migration found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS users",
		"CREATE TABLE IF NOT EXISTS teams",
		"CREATE TABLE IF NOT EXISTS permissions",
		"UNIQUE (role, permission_id)",
		"CREATE TABLE IF NOT EXISTS customers",
		"CREATE TABLE IF NOT EXISTS transactions",
		"CREATE TABLE IF NOT EXISTS artists",
		"CREATE TABLE IF NOT EXISTS access_requests",
		"CREATE TABLE IF NOT EXISTS audit_logs",
		"CREATE TABLE IF NOT EXISTS change_histories",
		"CHECK (status IN ('DRAFT', 'PENDING', 'APPROVED', 'REJECTED'))",
		"CHECK (target_type IN ('CUSTOMER', 'TRANSACTION'))",
		"DROP TABLE IF EXISTS audit_logs",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
