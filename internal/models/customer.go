// internal/models/customer.go
package models

import "strings"

// CustomerID identifies a customer across sources.
type CustomerID string

// Customer is a member of the loyalty population. An empty DeviceToken means
// the customer cannot receive push notifications.
type Customer struct {
	ID          CustomerID `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	PhoneNumber string     `json:"phoneNumber"`
	Country     string     `json:"country"`
	DeviceToken string     `json:"deviceToken,omitempty"`
}

// CanReceivePush reports whether the customer has a usable delivery address.
func (c Customer) CanReceivePush() bool {
	return strings.TrimSpace(c.DeviceToken) != ""
}
