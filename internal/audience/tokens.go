// internal/audience/tokens.go
package audience

import (
	"loyalty-admin/internal/common/errors"
	"loyalty-admin/internal/models"
)

// CollectTokens returns the usable device tokens of audience, in order and
// with duplicates kept. Empty and whitespace-only tokens are dropped. When
// nothing is left it returns a NoRecipientsError.
func CollectTokens(audience []models.Customer) ([]string, error) {
	tokens := make([]string, 0, len(audience))
	for _, c := range audience {
		if c.CanReceivePush() {
			tokens = append(tokens, c.DeviceToken)
		}
	}
	if len(tokens) == 0 {
		return nil, errors.NewNoRecipientsError(len(audience))
	}
	return tokens, nil
}
