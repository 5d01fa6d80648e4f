package google

import (
	"testing"
	"time"

	"buckets/internal/core"
	ports "buckets/internal/sheets"
)

func TestEncodeDecodeRow(t *testing.T) {
	r := ports.Row{
		UserID:    "u1",
		WeekStart: core.NewDate(2025, 1, 6),
		Bucket:    core.BucketWants,
		Budgeted:  core.Cents(1500),
		Spent:     core.Cents(2500),
		Income:    core.Cents(1000),
		Variance:  core.Cents(-1000),
		Collected: true,
	}
	encoded := encodeRow(r, time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC))
	if len(encoded) != numCols {
		t.Fatalf("encoded %d cols, want %d", len(encoded), numCols)
	}

	got, ok := decodeRow(toStrings(encoded))
	if !ok {
		t.Fatal("decodeRow rejected an encoded row")
	}
	if !got.WeekStart.Equal(r.WeekStart) {
		t.Errorf("week = %s, want %s", got.WeekStart, r.WeekStart)
	}
	got.WeekStart = r.WeekStart
	if got != r {
		t.Errorf("decodeRow = %+v, want %+v", got, r)
	}
}

func TestDecodeRowRejects(t *testing.T) {
	tests := []struct {
		name string
		cols []string
	}{
		{"header", ports.Header},
		{"short", []string{"u1", "2025-01-06"}},
		{"bad bucket", []string{"u1", "2025-01-06", "fun", "1", "1", "0", "0", "no"}},
		{"bad amount", []string{"u1", "2025-01-06", "wants", "x", "1", "0", "0", "no"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := decodeRow(tt.cols); ok {
				t.Error("expected row to be rejected")
			}
		})
	}
}

func TestToStringsAvoidsExponents(t *testing.T) {
	got := toStrings([]any{1000000.0, -12.5, "  wants "})
	want := []string{"1000000", "-12.5", "wants"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("toStrings[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMergeRows(t *testing.T) {
	existing := [][]any{
		headerRow(),
		{"u1", "2025-01-06", "save", 15.0},
		{"u2", "2025-01-06", "save", 20.0},
		{"u1", "2024-12-30", "save", 10.0},
		{},
	}
	fresh := [][]any{{"u1", "2025-01-06", "save", 99.0}}

	got := mergeRows(existing, "u1", "2025-01-06", fresh)
	if len(got) != 4 {
		t.Fatalf("merged %d rows, want header + 2 kept + 1 fresh", len(got))
	}
	if toStrings(got[0])[0] != ports.Header[0] {
		t.Errorf("first row = %v, want header", got[0])
	}
	if toStrings(got[1])[0] != "u2" || toStrings(got[2])[1] != "2024-12-30" {
		t.Errorf("kept rows out of order: %v", got[1:3])
	}
	if toStrings(got[3])[3] != "99" {
		t.Errorf("last row = %v, want fresh row", got[3])
	}

	if got := mergeRows(nil, "u1", "2025-01-06", nil); len(got) != 1 {
		t.Errorf("empty sheet merge = %v, want header only", got)
	}
}
