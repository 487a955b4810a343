package migrate

import (
	"errors"
	"io/fs"
	"strings"
	"testing"

	"ztcp-auth/internal/db"
)

func TestRun_EmptyDSN(t *testing.T) {
	for _, dsn := range []string{"", "   "} {
		err := Run(dsn, "up")
		if !errors.Is(err, db.ErrEmptyDSN) {
			t.Errorf("Run(%q) err = %v, want ErrEmptyDSN", dsn, err)
		}
	}
}

func TestParseDirection(t *testing.T) {
	testCases := []struct {
		in   string
		want Direction
		ok   bool
	}{
		{"up", Up, true},
		{"down", Down, true},
		{"", "", false},
		{"invalid", "", false},
		{"UP", "", false},
		{"Up", "", false},
		{"both", "", false},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseDirection(tc.in)
			if tc.ok && err != nil {
				t.Fatalf("ParseDirection(%q): %v", tc.in, err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("ParseDirection(%q) should return error", tc.in)
			}
			if got != tc.want {
				t.Errorf("ParseDirection(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestRun_InvalidDirectionCheckedBeforeConnect(t *testing.T) {
	err := Run("postgres://localhost/test", "sideways")
	if err == nil || !strings.Contains(err.Error(), "direction") {
		t.Fatalf("err = %v, want direction error", err)
	}
}

func TestRun_UnreachableDatabase(t *testing.T) {
	err := Run("postgres://localhost with spaces/test", "up")
	if err == nil {
		t.Fatal("Run with malformed DSN should return error")
	}
	if errors.Is(err, ErrNoChange) {
		t.Error("Run should never surface ErrNoChange")
	}
}

func TestVersion_EmptyDSN(t *testing.T) {
	if _, _, err := Version(""); !errors.Is(err, db.ErrEmptyDSN) {
		t.Fatalf("err = %v, want ErrEmptyDSN", err)
	}
}

func TestMigrationFS_PairsUpAndDown(t *testing.T) {
	entries, err := fs.ReadDir(db.MigrationFS, "migrations")
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("no embedded migrations")
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
			t.Errorf("unexpected migration file %q", name)
		}
	}
	for v := range ups {
		if !downs[v] {
			t.Errorf("migration %s has no down file", v)
		}
	}
	for v := range downs {
		if !ups[v] {
			t.Errorf("migration %s has no up file", v)
		}
	}
}
