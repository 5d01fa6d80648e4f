package core

import "testing"

func TestSplitStoredCategory(t *testing.T) {
	cases := []struct {
		in     string
		bucket Bucket
		raw    string
	}{
		{"wants::Dining", BucketWants, "Dining"},
		{"student_loans::Loan payment", BucketStudentLoans, "Loan payment"},
		{"Dining", "", "Dining"},
		{"rent::March", "", "rent::March"},
		{"save::a::b", BucketSave, "a::b"},
		{"::x", "", "::x"},
	}
	for _, tc := range cases {
		got := SplitStoredCategory(tc.in)
		if tc.bucket == "" {
			if got.Locked() {
				t.Fatalf("%q should not be locked", tc.in)
			}
		} else if !got.Locked() || *got.Bucket != tc.bucket {
			t.Fatalf("%q expected bucket %s, got %+v", tc.in, tc.bucket, got)
		}
		if got.Raw != tc.raw {
			t.Fatalf("%q expected raw %q, got %q", tc.in, tc.raw, got.Raw)
		}
	}
}

func TestLockAndRelabel(t *testing.T) {
	stored := LockCategory(BucketWants, " Dining ")
	if stored != "wants::Dining" {
		t.Fatalf("LockCategory = %q", stored)
	}
	if got := RelabelCategory(stored, "Restaurants"); got != "wants::Restaurants" {
		t.Fatalf("relabel locked = %q", got)
	}
	if got := RelabelCategory("Dining", " Food "); got != "Food" {
		t.Fatalf("relabel unlocked = %q", got)
	}
}

func TestClassifier(t *testing.T) {
	c := NewClassifier([]CategoryMapping{
		{Raw: "Groceries", Bucket: BucketExpenses},
		{Raw: "  dining   out ", Bucket: BucketWants},
		{Raw: "Broken", Bucket: "nope"},
	})
	cases := []struct {
		in     string
		bucket Bucket
		ok     bool
	}{
		{"groceries", BucketExpenses, true},
		{"Dining Out", BucketWants, true},
		{"save::Groceries", BucketSave, true},
		{"Broken", "", false},
		{"Unknown", "", false},
	}
	for _, tc := range cases {
		b, ok := c.Classify(tc.in)
		if ok != tc.ok || b != tc.bucket {
			t.Fatalf("Classify(%q) = %q, %v", tc.in, b, ok)
		}
	}
}

func TestClassifyTracker(t *testing.T) {
	cases := map[string]Tracker{
		"savings":        TrackerSavings,
		"save":           TrackerSavings,
		"Savings Jar":    TrackerSavings,
		"student_loans":  TrackerStudentLoans,
		"Loan extra":     TrackerStudentLoans,
		"emergency":      TrackerEmergency,
		"Emergency fund": TrackerEmergency,
		"wants":          TrackerExtraMoney,
		"expenses":       TrackerExtraMoney,
		"Extra money":    TrackerExtraMoney,
		"vacation":       TrackerExtraMoney,
	}
	for in, want := range cases {
		if got := ClassifyTracker(in); got != want {
			t.Fatalf("ClassifyTracker(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestTrackerForBucket(t *testing.T) {
	want := map[Bucket]Tracker{
		BucketSave:         TrackerSavings,
		BucketWants:        TrackerExtraMoney,
		BucketEmergency:    TrackerEmergency,
		BucketStudentLoans: TrackerStudentLoans,
		BucketExpenses:     TrackerExtraMoney,
	}
	for b, tr := range want {
		if got := TrackerForBucket(b); got != tr {
			t.Fatalf("TrackerForBucket(%s) = %s", b, got)
		}
	}
}

func TestSuggestBucket(t *testing.T) {
	mappings := []CategoryMapping{
		{Raw: "Groceries", Bucket: BucketExpenses},
		{Raw: "Restaurants", Bucket: BucketWants},
	}
	s, ok := SuggestBucket("grocery", mappings)
	if !ok || s.Bucket != BucketExpenses {
		t.Fatalf("expected expenses suggestion, got %+v %v", s, ok)
	}
	s, ok = SuggestBucket("Emergncy", nil)
	if !ok || s.Bucket != BucketEmergency {
		t.Fatalf("expected emergency suggestion, got %+v %v", s, ok)
	}
	if _, ok := SuggestBucket("zzzzzzzz", mappings); ok {
		t.Fatal("expected no suggestion")
	}
	if _, ok := SuggestBucket("  ", mappings); ok {
		t.Fatal("expected no suggestion for blank label")
	}
}
