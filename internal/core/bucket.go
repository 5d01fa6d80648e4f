package core

import "strings"

// Bucket is one of the five fixed budget categories.
type Bucket string

const (
	BucketSave         Bucket = "save"
	BucketWants        Bucket = "wants"
	BucketEmergency    Bucket = "emergency"
	BucketStudentLoans Bucket = "student_loans"
	BucketExpenses     Bucket = "expenses"
)

var bucketOrder = []Bucket{BucketSave, BucketWants, BucketEmergency, BucketStudentLoans, BucketExpenses}

var bucketLabels = map[Bucket]string{
	BucketSave:         "Save",
	BucketWants:        "Wants",
	BucketEmergency:    "Emergency",
	BucketStudentLoans: "Student Loans",
	BucketExpenses:     "Expenses",
}

var bucketAliases = map[string]Bucket{
	"savings":      BucketSave,
	"want":         BucketWants,
	"student_loan": BucketStudentLoans,
	"loans":        BucketStudentLoans,
	"expense":      BucketExpenses,
}

// AllBuckets returns the buckets in display order.
func AllBuckets() []Bucket {
	out := make([]Bucket, len(bucketOrder))
	copy(out, bucketOrder)
	return out
}

func (b Bucket) Valid() bool {
	_, ok := bucketLabels[b]
	return ok
}

// Label returns the display name, or the raw key for unknown buckets.
func (b Bucket) Label() string {
	if l, ok := bucketLabels[b]; ok {
		return l
	}
	return string(b)
}

// ParseBucket accepts a bucket key, its display label, or a common alias.
func ParseBucket(s string) (Bucket, error) {
	key := labelKey(s)
	if b := Bucket(key); b.Valid() {
		return b, nil
	}
	if b, ok := bucketAliases[key]; ok {
		return b, nil
	}
	return "", ErrUnknownBucket
}

// labelKey lowercases s and joins its words with underscores,
// so "Student Loans" and "student-loans" both become "student_loans".
func labelKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", " ", "_", " ").Replace(s)
	return strings.Join(strings.Fields(s), "_")
}
