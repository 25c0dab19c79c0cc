// internal/audience/selection.go
package audience

import (
	"sort"

	"loyalty-admin/internal/models"
)

// Selection is a set of customer ids.
type Selection map[models.CustomerID]struct{}

// NewSelection builds a Selection from ids.
func NewSelection(ids ...models.CustomerID) Selection {
	s := make(Selection, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s Selection) Has(id models.CustomerID) bool {
	_, ok := s[id]
	return ok
}

func (s Selection) Add(id models.CustomerID) {
	s[id] = struct{}{}
}

func (s Selection) Remove(id models.CustomerID) {
	delete(s, id)
}

// Toggle flips membership of id and reports whether it is now selected.
func (s Selection) Toggle(id models.CustomerID) bool {
	if s.Has(id) {
		delete(s, id)
		return false
	}
	s[id] = struct{}{}
	return true
}

func (s Selection) Len() int {
	return len(s)
}

// IDs returns the members sorted, for stable logging and output.
func (s Selection) IDs() []models.CustomerID {
	ids := make([]models.CustomerID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Clone returns an independent copy.
func (s Selection) Clone() Selection {
	out := make(Selection, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}
