// Package audience resolves the set of customers a push notification targets
// and collects their device tokens.
package audience

import (
	"strings"

	"loyalty-admin/internal/models"
)

// Filters holds one optional case-insensitive substring predicate per field.
// A blank predicate places no constraint on its field.
type Filters struct {
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Country     string `json:"country,omitempty"`
}

// IsZero reports whether no predicate constrains the view.
func (f Filters) IsZero() bool {
	return f.normalized() == (Filters{})
}

// Matches reports whether c satisfies every non-blank predicate.
func (f Filters) Matches(c models.Customer) bool {
	return f.normalized().matchesIndexed(indexCustomer(c))
}

// FilteredView returns the customers matching f, in population order.
func FilteredView(all []models.Customer, f Filters) []models.Customer {
	n := f.normalized()
	out := make([]models.Customer, 0, len(all))
	for _, c := range all {
		if n.matchesIndexed(indexCustomer(c)) {
			out = append(out, c)
		}
	}
	return out
}

// normalized lowercases and trims every predicate.
func (f Filters) normalized() Filters {
	return Filters{
		Name:        strings.ToLower(strings.TrimSpace(f.Name)),
		Email:       strings.ToLower(strings.TrimSpace(f.Email)),
		PhoneNumber: strings.ToLower(strings.TrimSpace(f.PhoneNumber)),
		Country:     strings.ToLower(strings.TrimSpace(f.Country)),
	}
}

// indexed is a customer with its searchable fields lowercased once.
type indexed struct {
	customer models.Customer
	name     string
	email    string
	phone    string
	country  string
}

func indexCustomer(c models.Customer) indexed {
	return indexed{
		customer: c,
		name:     strings.ToLower(c.Username),
		email:    strings.ToLower(c.Email),
		phone:    strings.ToLower(c.PhoneNumber),
		country:  strings.ToLower(c.Country),
	}
}

// matchesIndexed expects f to be normalized.
func (f Filters) matchesIndexed(c indexed) bool {
	return contains(c.name, f.Name) &&
		contains(c.email, f.Email) &&
		contains(c.phone, f.PhoneNumber) &&
		contains(c.country, f.Country)
}

func contains(field, predicate string) bool {
	return predicate == "" || strings.Contains(field, predicate)
}
