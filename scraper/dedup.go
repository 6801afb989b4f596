package scraper

import (
	"sync"

	"github.com/use-agent/tenderscope/models"
)

// TitleSet is a set of tender titles. A nil *TitleSet is empty and
// read-only. It is safe for concurrent use.
type TitleSet struct {
	mu     sync.RWMutex
	titles map[string]struct{}
}

// NewTitleSet returns a set holding titles.
func NewTitleSet(titles ...string) *TitleSet {
	t := &TitleSet{titles: make(map[string]struct{}, len(titles))}
	for _, title := range titles {
		t.titles[title] = struct{}{}
	}
	return t
}

// Has reports whether title is in the set.
func (t *TitleSet) Has(title string) bool {
	if t == nil {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.titles[title]
	return ok
}

// Add inserts title. It panics on a nil set.
func (t *TitleSet) Add(title string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.titles[title] = struct{}{}
}

// Len returns the number of titles.
func (t *TitleSet) Len() int {
	if t == nil {
		return 0
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.titles)
}

// Clone returns an independent copy. Cloning nil yields an empty set.
func (t *TitleSet) Clone() *TitleSet {
	out := NewTitleSet()
	if t == nil {
		return out
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	for title := range t.titles {
		out.titles[title] = struct{}{}
	}
	return out
}

// MergeByTitle concatenates groups in order, keeping the first record seen
// for each title.
func MergeByTitle(groups ...[]models.TenderRecord) []models.TenderRecord {
	seen := make(map[string]struct{})
	var out []models.TenderRecord
	for _, group := range groups {
		for _, rec := range group {
			if _, dup := seen[rec.Title]; dup {
				continue
			}
			seen[rec.Title] = struct{}{}
			out = append(out, rec)
		}
	}
	return out
}
