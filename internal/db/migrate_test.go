package db

import (
	"io/fs"
	"testing"
)

func TestMigrate_RejectsBadInput(t *testing.T) {
	if err := Migrate("", "up"); err == nil {
		t.Fatalf("expected error for empty database url")
	}
	if err := Migrate("postgres://localhost/biosync", "sideways"); err == nil {
		t.Fatalf("expected error for unknown direction")
	}
}

func TestMigrationFS_PairsUpAndDown(t *testing.T) {
	ups, err := fs.Glob(migrationFS, "migrations/*.up.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	downs, err := fs.Glob(migrationFS, "migrations/*.down.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(ups) == 0 {
		t.Fatalf("expected embedded up migrations")
	}
	if len(ups) != len(downs) {
		t.Fatalf("expected matching up/down migrations, got %d up and %d down", len(ups), len(downs))
	}
}
