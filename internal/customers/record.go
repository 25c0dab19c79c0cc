// internal/customers/record.go
package customers

import "loyalty-admin/internal/models"

// Record is a customer as stored upstream. It accepts every field spelling
// the platform has used and Normalize picks the first one set.
type Record struct {
	MongoID     string `json:"_id"`
	ID          string `json:"id"`
	Username    string `json:"username"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	PhoneNumber string `json:"phoneNumber"`
	Country     string `json:"country"`
	FCMToken    string `json:"fcmToken"`
	DeviceToken string `json:"deviceToken"`
}

func (r Record) Normalize() models.Customer {
	return models.Customer{
		ID:          models.CustomerID(firstNonEmpty(r.MongoID, r.ID)),
		Username:    firstNonEmpty(r.Username, r.Name),
		Email:       r.Email,
		PhoneNumber: firstNonEmpty(r.PhoneNumber, r.Phone),
		Country:     r.Country,
		DeviceToken: firstNonEmpty(r.DeviceToken, r.FCMToken),
	}
}

func NormalizeAll(records []Record) []models.Customer {
	out := make([]models.Customer, 0, len(records))
	for _, r := range records {
		out = append(out, r.Normalize())
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
