package usecase

import (
	"net/mail"
	"strings"
	"time"
)

func ValidateCreateUserInput(input CreateUserInput) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(input.Name) == "" {
		errors = append(errors, ValidationError{"name", "is required"})
	} else if len(input.Name) > 255 {
		errors = append(errors, ValidationError{"name", "must not exceed 255 characters"})
	}

	if strings.TrimSpace(input.Email) == "" {
		errors = append(errors, ValidationError{"email", "is required"})
	} else if !isValidEmail(input.Email) {
		errors = append(errors, ValidationError{"email", "must be a valid email"})
	}

	if strings.TrimSpace(input.Phone) == "" {
		errors = append(errors, ValidationError{"phone", "is required"})
	}

	return errors
}

func ValidateWebhookInput(input WebhookInput) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(input.CRMID) == "" {
		errors = append(errors, ValidationError{"crm_id", "is required"})
	}

	if input.UpdatedFields == nil {
		errors = append(errors, ValidationError{"updated_fields", "is required"})
	} else {
		f := input.UpdatedFields
		if f.Name != nil && strings.TrimSpace(*f.Name) == "" {
			errors = append(errors, ValidationError{"updated_fields.name", "must not be empty"})
		}
		if f.Phone != nil && strings.TrimSpace(*f.Phone) == "" {
			errors = append(errors, ValidationError{"updated_fields.phone", "must not be empty"})
		}
		if f.Email != nil && !isValidEmail(*f.Email) {
			errors = append(errors, ValidationError{"updated_fields.email", "must be a valid email"})
		}
	}

	if input.Timestamp != "" {
		if _, err := parseTimestamp(input.Timestamp); err != nil {
			errors = append(errors, ValidationError{"timestamp", "must be a valid ISO 8601 date"})
		}
	}

	return errors
}

func isValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func parseTimestamp(ts string) (time.Time, error) {
	layouts := []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}
	var err error
	for _, layout := range layouts {
		var t time.Time
		if t, err = time.Parse(layout, ts); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}
