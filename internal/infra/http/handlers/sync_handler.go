package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/xavierca1/crm-sync/internal/usecase"
)

type SyncExecutor interface {
	Execute(ctx context.Context) (usecase.SyncOutput, error)
}

type SyncRequester interface {
	RequestSync(ctx context.Context, origin string) error
}

type SyncHandler struct {
	SyncUC    SyncExecutor
	Requester SyncRequester
}

type SyncResponse struct {
	Message string `json:"message"`
	Synced  int    `json:"synced"`
	Failed  int    `json:"failed"`
}

func NewSyncHandler(uc SyncExecutor, requester SyncRequester) *SyncHandler {
	return &SyncHandler{
		SyncUC:    uc,
		Requester: requester,
	}
}

// Handle (POST /sync) runs a sync inline. With ?async=true and a queue
// configured, the run is handed to the queue worker instead.
func (h *SyncHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("async") == "true" && h.Requester != nil {
		if err := h.Requester.RequestSync(r.Context(), "api"); err != nil {
			slog.Error("Failed to enqueue sync", "error", err)
			writeErrorResponse(w, http.StatusInternalServerError, "Failed to enqueue sync", err.Error())
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"message": "Sync queued"})
		return
	}

	slog.Info("Sync manually triggered via API endpoint")

	out, err := h.SyncUC.Execute(r.Context())
	if err != nil {
		slog.Error("Error triggering sync", "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to complete sync process", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, SyncResponse{
		Message: "Sync completed",
		Synced:  out.Succeeded,
		Failed:  out.Failed,
	})
}
