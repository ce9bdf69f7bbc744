package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/smartcanteen/canteen-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	require.NoError(t, err)
	require.Len(t, matches, 1, "expected exactly one %s migration", suffix)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}

func TestMigrationsDirIsValid(t *testing.T) {
	require.NoError(t, migrate.ValidateDir("migrations"))
}

func TestEmbeddedMigrationsMatchDir(t *testing.T) {
	embedded := migrate.Embedded()
	require.NoError(t, migrate.ValidateFS(embedded))

	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	require.NoError(t, err)
	inBinary, err := fs.Glob(embedded, "*.sql")
	require.NoError(t, err)
	require.Len(t, inBinary, len(onDisk))
}

func TestValidateFSRejectsBadFiles(t *testing.T) {
	body := []byte("-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n")

	bad := fstest.MapFS{"create_things.sql": {Data: body}}
	require.ErrorContains(t, migrate.ValidateFS(bad), "invalid migration filename")

	dup := fstest.MapFS{
		"20260101000000_a.sql": {Data: body},
		"20260101000000_b.sql": {Data: body},
	}
	require.ErrorContains(t, migrate.ValidateFS(dup), "duplicate migration version")

	noDown := fstest.MapFS{"20260101000000_a.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n")}}
	require.ErrorContains(t, migrate.ValidateFS(noDown), "-- +goose Down")
}

func TestSourceUsesEmbeddedForDefaultDir(t *testing.T) {
	entries, err := fs.ReadDir(migrate.Source(""), ".")
	require.NoError(t, err)
	require.NotEmpty(t, entries)
}

func TestMigrationConstraints(t *testing.T) {
	cases := map[string][]string{
		"create_catalog": {
			"CONSTRAINT ux_tags_name_type UNIQUE (name, tag_type)",
			"FOREIGN KEY (menu_item_id) REFERENCES menu_items(id) ON DELETE CASCADE",
			"FOREIGN KEY (tag_id) REFERENCES tags(id) ON DELETE CASCADE",
			"DROP TABLE IF EXISTS menu_item_tags",
		},
		"create_inventory": {
			"menu_item_id uuid NOT NULL UNIQUE",
			"CHECK (stock_level >= 0)",
			"CHECK (threshold >= 0)",
			"DROP TABLE IF EXISTS inventory",
		},
		"create_orders": {
			"FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE SET NULL",
			"FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE",
			"CHECK (quantity > 0)",
			"'pending', 'confirmed', 'preparing', 'ready', 'completed', 'cancelled'",
		},
		"create_payments": {
			"'mobile-money', 'card', 'cash'",
			"FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE",
		},
		"create_notifications": {
			"FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE",
		},
		"create_outbox": {
			"CREATE TABLE IF NOT EXISTS outbox_events",
			"CREATE TABLE IF NOT EXISTS outbox_dlq",
		},
	}

	for suffix, checks := range cases {
		t.Run(suffix, func(t *testing.T) {
			content := readMigration(t, suffix)
			for _, sub := range checks {
				if !strings.Contains(content, sub) {
					t.Errorf("missing expected statement %q", sub)
				}
			}
		})
	}
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()

	path, err := migrate.CreateSQLMigration(dir, "Add Pickup Window!")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, "_add_pickup_window.sql"), path)
	require.NoError(t, migrate.ValidateDir(dir))

	_, err = migrate.CreateSQLMigration(dir, "!!!")
	require.Error(t, err)
}
