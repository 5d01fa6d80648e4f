package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"buckets/internal/config"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAllocateCommand(t *testing.T) {
	out, err := run(t, "allocate", "1000")
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	for _, want := range []string{"Save", "Student Loans", "Expenses", "150.00", "250.00", "350.00", "35.0%", "1000.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestAllocateCommandRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no amount", []string{"allocate"}},
		{"not a number", []string{"allocate", "lots"}},
		{"negative", []string{"allocate", "-5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); err == nil {
				t.Fatalf("expected error for %v", tt.args)
			}
		})
	}
}

func TestMigrateCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "data", "buckets.db")
	t.Setenv("BUCKETS_CONFIG", "")
	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("SQLITE_DB_PATH", dbPath)
	t.Setenv("LOG_LEVEL", "error")

	out, err := run(t, "migrate")
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !strings.HasPrefix(out, "schema version ") {
		t.Errorf("output = %q", out)
	}

	// Second run is a no-op at the same version.
	again, err := run(t, "migrate")
	if err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if again != out {
		t.Errorf("second run = %q, want %q", again, out)
	}
}

func TestMigrateCommandNeedsSQLite(t *testing.T) {
	t.Setenv("BUCKETS_CONFIG", "")
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("LOG_LEVEL", "error")

	if _, err := run(t, "migrate"); err == nil || !strings.Contains(err.Error(), "sqlite") {
		t.Fatalf("err = %v, want sqlite requirement", err)
	}
}

func TestCheckWorkerConfig(t *testing.T) {
	base := config.Config{
		DataBackend:         config.BackendSQLite,
		AMQPURL:             "amqp://localhost/",
		GoogleSpreadsheetID: "sheet",
	}

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		dryRun  bool
		wantErr []string
	}{
		{name: "complete", mutate: func(*config.Config) {}},
		{
			name:    "memory backend",
			mutate:  func(c *config.Config) { c.DataBackend = config.BackendMemory },
			wantErr: []string{"DATA_BACKEND=sqlite"},
		},
		{
			name:    "no amqp and no sheet",
			mutate:  func(c *config.Config) { c.AMQPURL = ""; c.GoogleSpreadsheetID = "" },
			wantErr: []string{"AMQP_URL", "GOOGLE_SPREADSHEET_ID"},
		},
		{
			name:   "dry run without sheet",
			mutate: func(c *config.Config) { c.GoogleSpreadsheetID = "" },
			dryRun: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := checkWorkerConfig(&cfg, workerOptions{dryRun: tt.dryRun})
			if len(tt.wantErr) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			for _, want := range tt.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q missing %q", err, want)
				}
			}
		})
	}
}
