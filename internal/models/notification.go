// internal/models/notification.go
package models

// NotificationRequest is the single batched push request submitted per dispatch.
type NotificationRequest struct {
	Title        string   `json:"title"`
	Body         string   `json:"body"`
	DeviceTokens []string `json:"tokens"`
}

// Push dispatch statuses reported by workers and the console.
const (
	StatusSent            = "sent"
	StatusPartiallyFailed = "partially_failed"
	StatusFailed          = "failed"
	StatusRejected        = "rejected"
)
