package migrate_test

import (
	"io/fs"
	"os"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stanton-energie/heizoel-backend/pkg/migrate"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	versions, err := migrate.Validate(migrate.Embedded())
	if err != nil {
		t.Fatalf("validate embedded migrations: %v", err)
	}
	if len(versions) != 5 {
		t.Fatalf("expected 5 migrations, got %d", len(versions))
	}
	if versions[0] != "20260301090000" {
		t.Fatalf("suppliers must be created first, got %s", versions[0])
	}

	onDisk, err := migrate.Validate(os.DirFS("migrations"))
	if err != nil {
		t.Fatalf("validate on-disk migrations: %v", err)
	}
	if len(onDisk) != len(versions) {
		t.Fatalf("embedded set out of sync with disk: %d vs %d", len(versions), len(onDisk))
	}
}

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	matches, err := fs.Glob(migrate.Embedded(), "*_create_orders.sql")
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one orders migration, got %v (%v)", matches, err)
	}
	data, err := fs.ReadFile(migrate.Embedded(), matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_order_number",
		"CREATE TABLE IF NOT EXISTS order_status_history",
		"CREATE TABLE IF NOT EXISTS order_notes",
		"DROP TABLE IF EXISTS order_status_history",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestValidateRejectsBrokenFiles(t *testing.T) {
	good := "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose StatementEnd\n-- +goose Down\nSELECT 1;\n"
	cases := map[string]fstest.MapFS{
		"bad name": {"20260301_orders.sql": {Data: []byte(good)}},
		"duplicate version": {
			"20260301090000_a.sql": {Data: []byte(good)},
			"20260301090000_b.sql": {Data: []byte(good)},
		},
		"missing down": {"20260301090000_a.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n")}},
		"unbalanced":   {"20260301090000_a.sql": {Data: []byte("-- +goose Up\n-- +goose StatementBegin\n-- +goose Down\n")}},
	}
	for name, fsys := range cases {
		if _, err := migrate.Validate(fsys); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 4, 2, 8, 15, 0, 0, time.UTC)

	path, err := migrate.CreateSQLMigration(dir, "Add Invoice Index!", now)
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "20260402081500_add_invoice_index.sql") {
		t.Fatalf("unexpected filename %s", path)
	}
	if _, err := migrate.Validate(os.DirFS(dir)); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
	if _, err := migrate.CreateSQLMigration(dir, "add invoice index", now); err == nil {
		t.Fatalf("expected collision error for same version and slug")
	}
	if _, err := migrate.CreateSQLMigration(dir, "!!!", now); err == nil {
		t.Fatalf("expected error for empty slug")
	}
}
