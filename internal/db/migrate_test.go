package db

import (
	"io/fs"
	"strings"
	"testing"
)

func TestMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrations, "migrations")
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Fatalf("unexpected file %q", name)
		}
	}
	if len(ups) == 0 {
		t.Fatalf("no migrations embedded")
	}
	for v := range ups {
		if !downs[v] {
			t.Fatalf("migration %s has no down file", v)
		}
	}
}

func TestGraphMigrationDeclaresMergeKeys(t *testing.T) {
	data, err := migrations.ReadFile("migrations/000001_graph.up.sql")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	sql := string(data)
	for _, want := range []string{"UNIQUE (label, merge_key)", "UNIQUE (source_id, target_id, rel_type)"} {
		if !strings.Contains(sql, want) {
			t.Fatalf("expected %q in graph migration", want)
		}
	}
}
