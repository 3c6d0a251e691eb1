package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/adspace-backend/pkg/migrate"
	"github.com/angelmondragon/adspace-backend/pkg/migrate/migrations"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	if err := migrate.ValidateFS(migrations.FS); err != nil {
		t.Fatalf("validate embedded migrations: %v", err)
	}
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}

func TestMigrationsContainConstraints(t *testing.T) {
	cases := map[string][]string{
		"*_create_users_and_providers.sql": {
			"CREATE TABLE IF NOT EXISTS users",
			"CHECK (role IN ('Admin', 'Provider', 'Client'))",
			"CREATE UNIQUE INDEX IF NOT EXISTS ux_providers_clabe",
			"DROP TABLE IF EXISTS users",
		},
		"*_create_media_inventory.sql": {
			"CHECK (price_per_day > 0)",
			"CHECK (end_days >= start_days)",
			"FOREIGN KEY (price_rule_id) REFERENCES price_rules(id) ON DELETE CASCADE",
			"ux_media_price_rules_pair",
		},
		"*_create_campaigns.sql": {
			"CHECK (currency IN ('USD', 'EUR', 'COP', 'MXN', 'ARS'))",
			"CHECK (end_date >= start_date)",
			"ux_campaign_items_pair",
		},
		"*_create_settlement.sql": {
			"CREATE TABLE IF NOT EXISTS payouts",
			"CHECK (status IN ('Pending', 'Paid'))",
			"CREATE TABLE IF NOT EXISTS outbox_events",
			"WHERE published_at IS NULL",
		},
		"*_default_cancellation_band.sql": {
			"INSERT INTO cancellation_policies (start_days, end_days, commission)",
			"SELECT 0, 7, 50",
			"WHERE NOT EXISTS",
		},
	}

	for pattern, checks := range cases {
		matches, err := fs.Glob(migrations.FS, pattern)
		if err != nil {
			t.Fatalf("glob migrations: %v", err)
		}
		if len(matches) != 1 {
			t.Fatalf("expected one migration for %s, found %d", pattern, len(matches))
		}
		data, err := fs.ReadFile(migrations.FS, matches[0])
		if err != nil {
			t.Fatalf("read migration file: %v", err)
		}
		content := string(data)
		for _, sub := range checks {
			if !strings.Contains(content, sub) {
				t.Errorf("%s missing expected statement %q", matches[0], sub)
			}
		}
	}
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, " Add Payout Index! ", time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if filepath.Base(path) != "20260201100000_add_payout_index.sql" {
		t.Fatalf("unexpected path %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
}

func TestCreateSQLMigrationRejectsStaleVersion(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "20260301000000_later.sql")
	if err := os.WriteFile(existing, []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("seed migration: %v", err)
	}
	if _, err := migrate.CreateSQLMigration(dir, "earlier", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)); err == nil {
		t.Fatal("expected stale version to be rejected")
	}
}

func TestValidateFSRejectsBadFiles(t *testing.T) {
	cases := map[string]string{
		"bad-name.sql":                  "-- +goose Up\n-- +goose Down\n",
		"20260101000000_no_down.sql":    "-- +goose Up\nSELECT 1;\n",
		"20260101000000_unbalanced.sql": "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n",
	}
	for name, body := range cases {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if err := migrate.ValidateDir(dir); err == nil {
			t.Errorf("expected %s to fail validation", name)
		}
	}
}
