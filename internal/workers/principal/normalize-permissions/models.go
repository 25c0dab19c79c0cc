package normalizepermissions

import "loyalty-admin/internal/permission"

type Input struct {
	PrincipalType string                 `json:"principalType"` // "admin" or "employee"
	PrincipalID   string                 `json:"principalId,omitempty"`
	Permissions   map[string]interface{} `json:"permissions"`
}

type Output struct {
	Permissions  permission.Map          `json:"permissions"`
	Capabilities []permission.Descriptor `json:"capabilities"`
	Persisted    bool                    `json:"persisted"`
}
