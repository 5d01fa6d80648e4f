package core

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// LockDelimiter separates a locked bucket key from the raw label in a stored category.
const LockDelimiter = "::"

// StoredCategory is a stored category string split into its parts.
// Bucket is nil when the category is not locked.
type StoredCategory struct {
	Bucket *Bucket
	Raw    string
}

func (s StoredCategory) Locked() bool {
	return s.Bucket != nil
}

// LockCategory encodes raw as explicitly assigned to b.
func LockCategory(b Bucket, raw string) string {
	return string(b) + LockDelimiter + strings.TrimSpace(raw)
}

// SplitStoredCategory decodes a stored category. Only the first delimiter
// counts, and only when its prefix names a known bucket; otherwise the whole
// string is the raw label.
func SplitStoredCategory(category string) StoredCategory {
	idx := strings.Index(category, LockDelimiter)
	if idx < 0 {
		return StoredCategory{Raw: category}
	}
	b := Bucket(strings.ToLower(strings.TrimSpace(category[:idx])))
	if !b.Valid() {
		return StoredCategory{Raw: category}
	}
	return StoredCategory{Bucket: &b, Raw: category[idx+len(LockDelimiter):]}
}

// RelabelCategory replaces the raw label of stored while keeping any lock.
func RelabelCategory(stored, newRaw string) string {
	sc := SplitStoredCategory(stored)
	if sc.Locked() {
		return LockCategory(*sc.Bucket, newRaw)
	}
	return strings.TrimSpace(newRaw)
}

// NormalizeLabel is the comparison form of a raw category label.
func NormalizeLabel(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Classifier resolves transaction categories to buckets.
type Classifier struct {
	mappings map[string]Bucket
}

func NewClassifier(mappings []CategoryMapping) *Classifier {
	c := &Classifier{mappings: make(map[string]Bucket, len(mappings))}
	for _, m := range mappings {
		if !m.Bucket.Valid() {
			continue
		}
		c.mappings[NormalizeLabel(m.Raw)] = m.Bucket
	}
	return c
}

// Classify returns the bucket for a stored category. A locked prefix wins
// over any mapping; otherwise the normalized raw label is looked up.
func (c *Classifier) Classify(category string) (Bucket, bool) {
	sc := SplitStoredCategory(category)
	if sc.Locked() {
		return *sc.Bucket, true
	}
	b, ok := c.mappings[NormalizeLabel(sc.Raw)]
	return b, ok
}

// Tracker is a savings tracker that collections and adjustments feed.
type Tracker string

const (
	TrackerSavings      Tracker = "savings"
	TrackerStudentLoans Tracker = "student_loans"
	TrackerEmergency    Tracker = "emergency"
	TrackerExtraMoney   Tracker = "extra_money"
)

// AllTrackers returns the trackers in display order.
func AllTrackers() []Tracker {
	return []Tracker{TrackerSavings, TrackerStudentLoans, TrackerEmergency, TrackerExtraMoney}
}

// trackerRules is evaluated in order; first prefix match wins.
var trackerRules = []struct {
	prefix  string
	tracker Tracker
}{
	{"sav", TrackerSavings},
	{"student", TrackerStudentLoans},
	{"loan", TrackerStudentLoans},
	{"emerg", TrackerEmergency},
	{"extra", TrackerExtraMoney},
	{"want", TrackerExtraMoney},
}

// ClassifyTracker maps a collection label (bucket key, tracker key or free
// label) to a tracker. Unknown labels fall back to extra money.
func ClassifyTracker(label string) Tracker {
	key := labelKey(label)
	switch Tracker(key) {
	case TrackerSavings, TrackerStudentLoans, TrackerEmergency, TrackerExtraMoney:
		return Tracker(key)
	}
	if b := Bucket(key); b.Valid() {
		return TrackerForBucket(b)
	}
	for _, r := range trackerRules {
		if strings.HasPrefix(key, r.prefix) {
			return r.tracker
		}
	}
	return TrackerExtraMoney
}

// TrackerForBucket is the tracker that receives a bucket's collected leftover.
func TrackerForBucket(b Bucket) Tracker {
	switch b {
	case BucketSave:
		return TrackerSavings
	case BucketEmergency:
		return TrackerEmergency
	case BucketStudentLoans:
		return TrackerStudentLoans
	default:
		return TrackerExtraMoney
	}
}

// SuggestionThreshold is the minimum similarity for SuggestBucket.
const SuggestionThreshold = 0.6

// Suggestion is a bucket proposed for an unmapped label.
type Suggestion struct {
	Bucket     Bucket  `json:"bucket"`
	MatchedRaw string  `json:"matched_raw"`
	Similarity float64 `json:"similarity"`
}

// SuggestBucket proposes a bucket for raw by fuzzy matching it against
// existing mappings and bucket names.
func SuggestBucket(raw string, mappings []CategoryMapping) (Suggestion, bool) {
	needle := NormalizeLabel(raw)
	if needle == "" {
		return Suggestion{}, false
	}

	type candidate struct {
		label  string
		bucket Bucket
	}
	candidates := make([]candidate, 0, len(mappings)+len(bucketOrder))
	for _, m := range mappings {
		if m.Bucket.Valid() {
			candidates = append(candidates, candidate{NormalizeLabel(m.Raw), m.Bucket})
		}
	}
	for _, b := range bucketOrder {
		candidates = append(candidates, candidate{NormalizeLabel(b.Label()), b})
	}

	var best Suggestion
	found := false
	for _, c := range candidates {
		sim := similarity(needle, c.label)
		if sim < SuggestionThreshold {
			continue
		}
		if !found || sim > best.Similarity {
			best = Suggestion{Bucket: c.bucket, MatchedRaw: c.label, Similarity: sim}
			found = true
		}
	}
	return best, found
}

func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(maxLen)
}

// SortMappings orders mappings by raw label for stable listings.
func SortMappings(mappings []CategoryMapping) {
	sort.Slice(mappings, func(i, j int) bool {
		return NormalizeLabel(mappings[i].Raw) < NormalizeLabel(mappings[j].Raw)
	})
}
