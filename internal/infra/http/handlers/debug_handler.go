package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/xavierca1/crm-sync/internal/entity"
	"github.com/xavierca1/crm-sync/internal/infra/database"
)

type TableInspector interface {
	Columns(ctx context.Context) ([]database.Column, error)
}

type DebugHandler struct {
	Inspector TableInspector
	Repo      entity.UserRepositoryInterface
}

type TableInfo struct {
	Schema      []database.Column `json:"schema"`
	RecordCount int               `json:"recordCount"`
	Records     []*entity.User    `json:"records"`
}

func NewDebugHandler(inspector TableInspector, repo entity.UserRepositoryInterface) *DebugHandler {
	return &DebugHandler{
		Inspector: inspector,
		Repo:      repo,
	}
}

// DBInfo (GET /debug/db-info)
func (h *DebugHandler) DBInfo(w http.ResponseWriter, r *http.Request) {
	cols, err := h.Inspector.Columns(r.Context())
	if err != nil {
		slog.Error("Error fetching database info", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	users, err := h.Repo.List(r.Context())
	if err != nil {
		slog.Error("Error fetching database info", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tables": map[string]TableInfo{
			"users": {Schema: cols, RecordCount: len(users), Records: users},
		},
	})
}
