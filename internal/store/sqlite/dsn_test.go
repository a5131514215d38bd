package sqlite

import (
	"net/url"
	"slices"
	"strings"
	"testing"
)

func TestDriverDSN(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		path    string
		pragmas []string
		extra   map[string]string
		wantErr bool
	}{
		{name: "absolute path", input: "sqlite:///var/lib/affinity.db", path: "/var/lib/affinity.db", pragmas: defaultPragmas},
		{name: "explicit relative", input: "sqlite://./affinity.db", path: "./affinity.db", pragmas: defaultPragmas},
		{name: "bare relative", input: "sqlite://affinity.db", path: "./affinity.db", pragmas: defaultPragmas},
		{name: "escaped path", input: "sqlite://my%20data.db", path: "./my data.db", pragmas: defaultPragmas},
		{
			name:    "extra options keep default pragmas",
			input:   "sqlite://affinity.db?cache=shared",
			path:    "./affinity.db",
			pragmas: defaultPragmas,
			extra:   map[string]string{"cache": "shared"},
		},
		{
			name:    "explicit pragma replaces defaults",
			input:   "sqlite://affinity.db?_pragma=busy_timeout(100)",
			path:    "./affinity.db",
			pragmas: []string{"busy_timeout(100)"},
		},
		{name: "empty path", input: "sqlite://", wantErr: true},
		{name: "wrong scheme", input: "postgres://localhost/affinity", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := driverDSN(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			path, rawQuery, _ := strings.Cut(got, "?")
			if path != tt.path {
				t.Fatalf("path = %q, want %q", path, tt.path)
			}
			options, err := url.ParseQuery(rawQuery)
			if err != nil {
				t.Fatalf("parsing %q: %v", rawQuery, err)
			}
			if !slices.Equal(options["_pragma"], tt.pragmas) {
				t.Fatalf("pragmas = %v, want %v", options["_pragma"], tt.pragmas)
			}
			for key, want := range tt.extra {
				if options.Get(key) != want {
					t.Fatalf("option %s = %q, want %q", key, options.Get(key), want)
				}
			}
		})
	}
}

func TestDriverDSNMemory(t *testing.T) {
	got, err := driverDSN("sqlite://:memory:")
	if err != nil || got != memoryDSN {
		t.Fatalf("driverDSN(:memory:) = %q, %v", got, err)
	}
}

func TestSplitStatements(t *testing.T) {
	ddl := `
	-- comment line
	CREATE TABLE a (id TEXT);
	CREATE TABLE b (
		id TEXT
	);
	`
	stmts := splitStatements(ddl)
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(stmts), stmts)
	}
	if !strings.HasPrefix(stmts[1], "CREATE TABLE b") {
		t.Fatalf("unexpected second statement %q", stmts[1])
	}
}
