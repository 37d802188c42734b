package usecase

type CreateUserInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type SyncOutput struct {
	Succeeded int `json:"synced"`
	Failed    int `json:"failed"`
}

type WebhookFields struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`
}

// WebhookInput is the CRM's update notification. Timestamp is an ISO 8601
// string; when empty the update is stamped with the time it was applied.
type WebhookInput struct {
	CRMID         string         `json:"crm_id"`
	UpdatedFields *WebhookFields `json:"updated_fields"`
	Timestamp     string         `json:"timestamp,omitempty"`
}
