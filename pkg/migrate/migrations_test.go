package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/backoffice-api/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one %s migration, found %d", suffix, len(matches))
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestMigrationsContainConstraints(t *testing.T) {
	tests := []struct {
		suffix string
		checks []string
	}{
		{
			suffix: "create_users",
			checks: []string{
				"CREATE TABLE IF NOT EXISTS users",
				"CREATE UNIQUE INDEX IF NOT EXISTS ux_users_email ON users (lower(email))",
				"CHECK (role IN ('admin', 'user'))",
				"DROP TABLE IF EXISTS users",
			},
		},
		{
			suffix: "create_inventory_items",
			checks: []string{
				"CREATE TABLE IF NOT EXISTS inventory_items",
				"CHECK (quantity >= 0)",
				"CHECK (price >= 0)",
				"images jsonb NOT NULL",
				"DROP TABLE IF EXISTS inventory_items",
			},
		},
		{
			suffix: "create_orders",
			checks: []string{
				"CREATE TABLE IF NOT EXISTS orders",
				"CHECK (status IN ('Cash on Delivery', 'Paid', 'Cancelled'))",
				"order_status text NOT NULL DEFAULT 'Placed'",
				"REFERENCES orders(id) ON DELETE CASCADE",
				"DROP TABLE IF EXISTS orders",
			},
		},
		{
			suffix: "create_outbox_events",
			checks: []string{
				"CREATE TABLE IF NOT EXISTS outbox_events",
				"WHERE published_at IS NULL",
				"CREATE TABLE IF NOT EXISTS outbox_dlq",
			},
		},
	}

	for _, tt := range tests {
		content := readMigration(t, tt.suffix)
		for _, sub := range tt.checks {
			if !strings.Contains(content, sub) {
				t.Errorf("%s: missing expected statement %q", tt.suffix, sub)
			}
		}
	}
}

func TestOrderStatusColumnHasNoCheck(t *testing.T) {
	content := readMigration(t, "create_orders")
	if strings.Contains(content, "CHECK (order_status") {
		t.Fatalf("order_status must accept values outside the declared set")
	}
}

func TestCheckDirAcceptsShippedMigrations(t *testing.T) {
	versions, err := migrate.CheckDir("migrations")
	if err != nil {
		t.Fatalf("CheckDir: %v", err)
	}
	if len(versions) != 4 || versions[0] != "20260105090000" {
		t.Fatalf("unexpected versions %v", versions)
	}
}

func TestNewSQLFile(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

	path, err := migrate.NewSQLFile(dir, "Add Supplier Index!", now)
	if err != nil {
		t.Fatalf("NewSQLFile: %v", err)
	}
	if filepath.Base(path) != "20260301123000_add_supplier_index.sql" {
		t.Fatalf("unexpected filename %s", path)
	}
	if _, err := migrate.CheckDir(dir); err != nil {
		t.Fatalf("generated migration should pass lint: %v", err)
	}
	if _, err := migrate.NewSQLFile(dir, "add supplier index", now); err == nil {
		t.Fatalf("expected collision on same version and slug")
	}
	if _, err := migrate.NewSQLFile(dir, "!!!", now); err == nil {
		t.Fatalf("expected empty slug to be rejected")
	}
}

func TestCheckDirRejects(t *testing.T) {
	cases := map[string]string{
		"bad.sql":                       "-- +goose Up\n-- +goose Down\n",
		"20260101000000_no_down.sql":    "-- +goose Up\nselect 1;\n",
		"20260101000000_unbalanced.sql": "-- +goose Up\n-- +goose StatementBegin\nselect 1;\n-- +goose Down\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			if _, err := migrate.CheckDir(dir); err == nil {
				t.Fatalf("expected %s to fail lint", name)
			}
		})
	}
}
