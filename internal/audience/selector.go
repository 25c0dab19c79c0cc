// internal/audience/selector.go
package audience

import (
	"fmt"
	"sync"

	"loyalty-admin/internal/common/errors"
	"loyalty-admin/internal/models"
)

// Mode chooses between broadcasting to everyone and an explicit selection.
type Mode string

const (
	ModeAll      Mode = "all"
	ModeSelected Mode = "selected"
)

// ParseMode accepts "all" and "selected"; an empty string means ModeAll.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeAll:
		return ModeAll, nil
	case ModeSelected:
		return ModeSelected, nil
	default:
		return "", fmt.Errorf("unknown audience mode %q", s)
	}
}

// Selector keeps a filtered view over the customer population and a selection
// that survives filter changes.
type Selector struct {
	mu        sync.RWMutex
	customers []indexed
	filters   Filters
	selection Selection
	mode      Mode

	// filtered is the memoized view for the current customers and filters.
	filtered []models.Customer
	stale    bool
}

// NewSelector returns a selector in ModeAll over customers.
func NewSelector(customers []models.Customer) *Selector {
	s := &Selector{selection: Selection{}, mode: ModeAll}
	s.SetCustomers(customers)
	return s
}

// SetCustomers replaces the population. The selection is kept.
func (s *Selector) SetCustomers(customers []models.Customer) {
	idx := make([]indexed, len(customers))
	for i, c := range customers {
		idx[i] = indexCustomer(c)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers = idx
	s.stale = true
}

// Customers returns the whole population.
func (s *Selector) Customers() []models.Customer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Customer, len(s.customers))
	for i, c := range s.customers {
		out[i] = c.customer
	}
	return out
}

// SetFilters replaces the predicates. The selection is kept.
func (s *Selector) SetFilters(f Filters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f == s.filters {
		return
	}
	s.filters = f
	s.stale = true
}

func (s *Selector) Filters() Filters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters
}

// Filtered returns the customers matching the current filters.
func (s *Selector) Filtered() []models.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	view := s.filteredLocked()
	out := make([]models.Customer, len(view))
	copy(out, view)
	return out
}

func (s *Selector) filteredLocked() []models.Customer {
	if !s.stale && s.filtered != nil {
		return s.filtered
	}
	f := s.filters.normalized()
	view := make([]models.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		if f.matchesIndexed(c) {
			view = append(view, c.customer)
		}
	}
	s.filtered = view
	s.stale = false
	return view
}

// Toggle flips membership of id. Ids outside the population are accepted;
// Resolve never returns them.
func (s *Selector) Toggle(id models.CustomerID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.Toggle(id)
}

// IsSelected reports whether id is in the selection.
func (s *Selector) IsSelected(id models.CustomerID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection.Has(id)
}

// Selection returns a copy of the selection.
func (s *Selector) Selection() Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection.Clone()
}

// AllFilteredSelected is true when the filtered view is non-empty and every
// member of it is selected.
func (s *Selector) AllFilteredSelected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allFilteredSelectedLocked()
}

func (s *Selector) allFilteredSelectedLocked() bool {
	view := s.filteredLocked()
	if len(view) == 0 {
		return false
	}
	for _, c := range view {
		if !s.selection.Has(c.ID) {
			return false
		}
	}
	return true
}

// SelectAllFiltered adds every member of the filtered view.
func (s *Selector) SelectAllFiltered() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.filteredLocked() {
		s.selection.Add(c.ID)
	}
}

// DeselectAllFiltered removes the members of the filtered view and nothing else.
func (s *Selector) DeselectAllFiltered() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.filteredLocked() {
		s.selection.Remove(c.ID)
	}
}

// ToggleAllFiltered is the bulk checkbox: deselect the filtered view when it is
// fully selected, otherwise select all of it. Selections outside the view are
// never touched. It reports whether the view ended up selected.
func (s *Selector) ToggleAllFiltered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	view := s.filteredLocked()
	if s.allFilteredSelectedLocked() {
		for _, c := range view {
			s.selection.Remove(c.ID)
		}
		return false
	}
	for _, c := range view {
		s.selection.Add(c.ID)
	}
	return len(view) > 0
}

func (s *Selector) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// SetMode switches broadcast mode. Any switch clears the selection.
func (s *Selector) SetMode(m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m == s.mode {
		return
	}
	s.mode = m
	s.selection = Selection{}
}

// Reset clears selection and filters and returns to ModeAll.
func (s *Selector) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = Selection{}
	s.filters = Filters{}
	s.mode = ModeAll
	s.stale = true
}

// Resolve returns the dispatch audience. In ModeSelected it is the selected
// customers in population order, and an empty selection is an EmptyAudienceError.
func (s *Selector) Resolve() ([]models.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.mode == ModeAll {
		out := make([]models.Customer, len(s.customers))
		for i, c := range s.customers {
			out[i] = c.customer
		}
		return out, nil
	}

	if s.selection.Len() == 0 {
		return nil, errors.NewEmptyAudienceError()
	}

	out := make([]models.Customer, 0, s.selection.Len())
	for _, c := range s.customers {
		if s.selection.Has(c.customer.ID) {
			out = append(out, c.customer)
		}
	}
	return out, nil
}
