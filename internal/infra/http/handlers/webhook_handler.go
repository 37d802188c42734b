package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"

	"github.com/xavierca1/crm-sync/internal/usecase"
)

const maxWebhookBody = 64 << 10

const webhookSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["crm_id", "updated_fields"],
  "additionalProperties": false,
  "properties": {
    "crm_id": {"type": "string", "minLength": 1},
    "updated_fields": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "name": {"type": "string"},
        "email": {"type": "string"},
        "phone": {"type": "string"}
      }
    },
    "timestamp": {"type": "string"}
  }
}`

type WebhookApplier interface {
	Execute(ctx context.Context, input usecase.WebhookInput) error
}

type WebhookHandler struct {
	ApplyWebhookUC WebhookApplier
	schema         *jsonschema.Schema
}

func NewWebhookHandler(uc WebhookApplier) (*WebhookHandler, error) {
	schema, err := compileWebhookSchema()
	if err != nil {
		return nil, fmt.Errorf("compile webhook schema: %w", err)
	}
	return &WebhookHandler{
		ApplyWebhookUC: uc,
		schema:         schema,
	}, nil
}

func compileWebhookSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(webhookSchemaJSON))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("webhook.schema.json", doc); err != nil {
		return nil, err
	}
	return c.Compile("webhook.schema.json")
}

// Handle (POST /webhook)
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read body")
		return
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Bad JSON")
		return
	}
	if err := h.schema.Validate(doc); err != nil {
		writeError(w, http.StatusBadRequest, schemaErrorMessage(err))
		return
	}

	var input usecase.WebhookInput
	if err := json.Unmarshal(body, &input); err != nil {
		writeError(w, http.StatusBadRequest, "Bad JSON")
		return
	}

	err = h.ApplyWebhookUC.Execute(r.Context(), input)
	if err != nil {
		if ve, ok := usecase.AsValidationError(err); ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("%q %s", ve.Field, ve.Message))
			return
		}
		if usecase.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		var de *usecase.DomainError
		if errors.As(err, &de) {
			writeErrorResponse(w, http.StatusConflict, de.Code, de.Message)
			return
		}
		slog.Error("Error handling webhook", "crm_id", input.CRMID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to process webhook")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "User updated successfully",
	})
}

// schemaErrorMessage names the first offending field, e.g. `"crm_id" is required`.
func schemaErrorMessage(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}

	switch k := ve.ErrorKind.(type) {
	case *kind.Required:
		if len(k.Missing) > 0 {
			return fmt.Sprintf("%q is required", fieldPath(ve.InstanceLocation, k.Missing[0]))
		}
	case *kind.AdditionalProperties:
		if len(k.Properties) > 0 {
			return fmt.Sprintf("%q is not allowed", fieldPath(ve.InstanceLocation, k.Properties[0]))
		}
	}

	if len(ve.InstanceLocation) == 0 {
		return "payload must be a JSON object"
	}
	return fmt.Sprintf("%q is invalid", fieldPath(ve.InstanceLocation, ""))
}

func fieldPath(location []string, leaf string) string {
	parts := slices.Clone(location)
	if leaf != "" {
		parts = append(parts, leaf)
	}
	return strings.Join(parts, ".")
}
