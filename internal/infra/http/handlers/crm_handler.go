package handlers

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/crm-sync/internal/infra/crmmock"
	"github.com/xavierca1/crm-sync/internal/infra/integration/crm"
)

// CRMHandler serves the mock CRM that the sync client talks to in local and
// demo setups.
type CRMHandler struct {
	Store *crmmock.Store
}

func NewCRMHandler(store *crmmock.Store) *CRMHandler {
	return &CRMHandler{Store: store}
}

type tokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// Token (POST /crm/token) accepts the client credentials as a form or as JSON.
func (h *CRMHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		req.ClientID = r.PostForm.Get("client_id")
		req.ClientSecret = r.PostForm.Get("client_secret")
	}

	token, err := h.Store.IssueToken(req.ClientID, req.ClientSecret)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid client credentials")
		return
	}

	writeJSON(w, http.StatusOK, crm.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   crmmock.TokenTTL,
	})
}

// CreateUser (POST /crm/users)
func (h *CRMHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req crm.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Bad JSON")
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Phone) == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	rec := h.Store.Create(req.Name, req.Email, req.Phone)
	writeJSON(w, http.StatusCreated, crm.CreateUserResponse{CRMID: rec.CRMID})
}

// GetUser (GET /crm/users/{crmId})
func (h *CRMHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Store.Get(chi.URLParam(r, "crmId"))
	if err != nil {
		if errors.Is(err, crmmock.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, crm.UserResponse{
		CRMID: rec.CRMID,
		Name:  rec.Name,
		Email: rec.Email,
		Phone: rec.Phone,
	})
}
