package validation

// nonBlank matches any string holding at least one non-whitespace character.
var nonBlank = map[string]interface{}{
	"type":      "string",
	"minLength": 1,
	"pattern":   `\S`,
}

var (
	// ComposeForm validates the title and body of a notification.
	ComposeForm = mustCompile("compose-form", map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"title", "body"},
		"properties": map[string]interface{}{
			"title": nonBlank,
			"body":  nonBlank,
		},
	})

	// SendPushCampaignInput validates send-push-campaign job variables.
	SendPushCampaignInput = mustCompile("send-push-campaign-input", map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"title", "body"},
		"properties": map[string]interface{}{
			"title": nonBlank,
			"body":  nonBlank,
			"audience": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"mode": map[string]interface{}{
						"type": "string",
						"enum": []interface{}{"all", "selected", "filtered"},
					},
					"customerIds": map[string]interface{}{
						"type":  "array",
						"items": map[string]interface{}{"type": "string"},
					},
					"filters": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"name":        map[string]interface{}{"type": "string"},
							"email":       map[string]interface{}{"type": "string"},
							"phoneNumber": map[string]interface{}{"type": "string"},
							"country":     map[string]interface{}{"type": "string"},
						},
					},
				},
			},
		},
	})

	// NormalizePermissionsInput validates normalize-permissions job variables.
	NormalizePermissionsInput = mustCompile("normalize-permissions-input", map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"principalType"},
		"properties": map[string]interface{}{
			"principalType": map[string]interface{}{"type": "string", "minLength": 1},
			"principalId":   map[string]interface{}{"type": "string"},
			"permissions":   map[string]interface{}{"type": "object"},
		},
	})
)
