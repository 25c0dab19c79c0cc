// internal/customers/source.go
package customers

import (
	"context"

	"loyalty-admin/internal/models"
)

// Source supplies the customer population. Field-name normalization happens
// inside each implementation, so callers always see models.Customer.
type Source interface {
	FetchCustomers(ctx context.Context) ([]models.Customer, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]models.Customer, error)

func (f SourceFunc) FetchCustomers(ctx context.Context) ([]models.Customer, error) {
	return f(ctx)
}

// Static serves a fixed population.
type Static []models.Customer

func (s Static) FetchCustomers(context.Context) ([]models.Customer, error) {
	out := make([]models.Customer, len(s))
	copy(out, s)
	return out, nil
}
