package database

import (
	"testing"
	"testing/fstest"
)

func TestListMigrations_OrdersByVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/010_later.sql":   {Data: []byte("SELECT 1;")},
		"migrations/002_second.sql":  {Data: []byte("SELECT 1;")},
		"migrations/001_first.sql":   {Data: []byte("SELECT 1;")},
		"migrations/README.md":       {Data: []byte("docs")},
		"migrations/abc_invalid.sql": {Data: []byte("SELECT 1;")},
	}

	got, err := listMigrations(fsys)
	if err != nil {
		t.Fatalf("listMigrations returned error: %v", err)
	}

	want := []int{1, 2, 10}
	if len(got) != len(want) {
		t.Fatalf("expected %d migrations, got %d (%+v)", len(want), len(got), got)
	}
	for i, v := range want {
		if got[i].version != v {
			t.Fatalf("migration %d: expected version %d, got %d", i, v, got[i].version)
		}
	}
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	got, err := listMigrations(migrationFiles)
	if err != nil {
		t.Fatalf("listMigrations returned error: %v", err)
	}
	if len(got) < 2 {
		t.Fatalf("expected identities and profile migrations to be embedded, got %d", len(got))
	}
	if got[0].path != "migrations/001_identities.sql" {
		t.Fatalf("unexpected first migration %q", got[0].path)
	}
}
