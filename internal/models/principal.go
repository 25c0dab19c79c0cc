// internal/models/principal.go
package models

// PrincipalKind selects the capability catalog of a principal.
type PrincipalKind string

const (
	PrincipalAdmin    PrincipalKind = "admin"
	PrincipalEmployee PrincipalKind = "employee"
)

// Principal is an admin or employee record as persisted by the API.
// Permissions is the sparse capability map; absent keys mean false.
type Principal struct {
	ID          string          `json:"id"`
	Kind        PrincipalKind   `json:"kind"`
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	Permissions map[string]bool `json:"permissions"`
}
