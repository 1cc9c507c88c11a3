package database

import (
	"os"
	"path/filepath"
	"testing"
)

func TestListMigrationFilesSortsUpOnly(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"0002_submission_user.up.sql",
		"0001_create_submissions.up.sql",
		"0001_create_submissions.down.sql",
		"README.md",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("--"), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	got := listMigrationFiles(dir)
	want := []string{"0001_create_submissions.up.sql", "0002_submission_user.up.sql"}
	if len(got) != len(want) {
		t.Fatalf("files = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("files[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestAppliedBetween(t *testing.T) {
	files := []string{"0001_a.up.sql", "0002_b.up.sql", "0003_c.up.sql", "notes.up.sql"}
	if got := appliedBetween(files, 1, 3); len(got) != 2 || got[0] != "0002_b.up.sql" {
		t.Fatalf("appliedBetween(1, 3) = %v", got)
	}
	if got := appliedBetween(files, 3, 3); len(got) != 0 {
		t.Fatalf("no change applied %v", got)
	}
	if got := appliedBetween(files, 0, 1); len(got) != 1 || got[0] != "0001_a.up.sql" {
		t.Fatalf("appliedBetween(0, 1) = %v", got)
	}
}

func TestResolveMigrationsDir(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "m")
	got, err := resolveMigrationsDir(abs)
	if err != nil || got != abs {
		t.Fatalf("absolute dir = %q, %v", got, err)
	}
	got, err = resolveMigrationsDir("")
	if err != nil {
		t.Fatalf("default dir: %v", err)
	}
	if filepath.Base(got) != "migrations" {
		t.Fatalf("default dir = %q", got)
	}
}

func TestConfigURLEscapesCredentials(t *testing.T) {
	cfg := Config{Host: "db", Port: "5432", User: "bot", Password: "p@ss/word", Name: "reviews"}
	want := "postgres://bot:p%40ss%2Fword@db:5432/reviews?sslmode=disable"
	if got := cfg.URL(); got != want {
		t.Fatalf("URL = %s, want %s", got, want)
	}
	if dsn := cfg.DSN(); dsn != "user=bot password=p@ss/word host=db port=5432 dbname=reviews sslmode=disable" {
		t.Fatalf("DSN = %s", dsn)
	}
}
