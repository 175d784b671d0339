package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mercadito-app/mercadito-backend/pkg/migrate"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %q", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestListsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_shopping_lists_table.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS shopping_lists",
		"REFERENCES users(id) ON DELETE CASCADE",
		"CHECK (state IN ('scanning', 'paying', 'finished'))",
		"to_pick JSONB NOT NULL DEFAULT '[]'::jsonb",
		"picked JSONB NOT NULL DEFAULT '[]'::jsonb",
		"DROP TABLE IF EXISTS shopping_lists",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestListItemsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_list_items_table.sql")

	checks := []string{
		"REFERENCES shopping_lists(id) ON DELETE CASCADE",
		"CHECK (quantity >= 1)",
		"idx_list_items_list_lower_name",
	}
	for _, sub := range checks {
		t.Run(sub, func(t *testing.T) {
			if !strings.Contains(content, sub) {
				t.Errorf("missing expected statement %q", sub)
			}
		})
	}
}

func TestProductsMigrationContainsStockGuard(t *testing.T) {
	content := readMigration(t, "*_create_products_table.sql")
	for _, sub := range []string{"CHECK (stock >= 0)", "idx_products_barcode"} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("shipped migrations failed validation: %v", err)
	}
}
