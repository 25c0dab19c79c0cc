// internal/customers/postgres.go
package customers

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"loyalty-admin/internal/common/errors"
	"loyalty-admin/internal/common/logger"
	"loyalty-admin/internal/models"
)

var tableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*(\.[a-zA-Z_][a-zA-Z0-9_]*)?$`)

// PostgresSource reads customers straight from the platform database.
type PostgresSource struct {
	db     *sql.DB
	query  string
	logger logger.Logger
}

func NewPostgresSource(db *sql.DB, table string, log logger.Logger) (*PostgresSource, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid customers table name %q", table)
	}
	return &PostgresSource{
		db: db,
		query: fmt.Sprintf(
			"SELECT id, username, email, phone_number, country, device_token FROM %s ORDER BY id", table),
		logger: logger.Component(log, "postgres-customers"),
	}, nil
}

// FetchCustomers treats NULL columns as empty strings.
func (s *PostgresSource) FetchCustomers(ctx context.Context) ([]models.Customer, error) {
	rows, err := s.db.QueryContext(ctx, s.query)
	if err != nil {
		return nil, errors.NewCustomerFetchError("postgres", err)
	}
	defer rows.Close()

	var out []models.Customer
	for rows.Next() {
		var (
			id                                   string
			username, email, phone, country, tok sql.NullString
		)
		if err := rows.Scan(&id, &username, &email, &phone, &country, &tok); err != nil {
			return nil, errors.NewCustomerFetchError("postgres", fmt.Errorf("scan customer: %w", err))
		}
		out = append(out, models.Customer{
			ID:          models.CustomerID(id),
			Username:    username.String,
			Email:       email.String,
			PhoneNumber: phone.String,
			Country:     country.String,
			DeviceToken: tok.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewCustomerFetchError("postgres", err)
	}

	s.logger.Debug("Loaded customers", map[string]interface{}{"count": len(out)})
	return out, nil
}
