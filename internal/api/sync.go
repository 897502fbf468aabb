package api

import (
	"net/http"

	"github.com/akazakov/sklad/internal/sync"
)

// SyncHandler exposes manual synchronization controls.
type SyncHandler struct {
	Reconciler *sync.Reconciler
}

// Refresh handles POST /api/sync/refresh: pull the owner's most recently
// written transactions from the remote store on demand.
func (h *SyncHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	if !h.Reconciler.Enabled() {
		jsonError(w, http.StatusServiceUnavailable, "remote sync not configured")
		return
	}

	if err := h.Reconciler.RefreshRecent(r.Context(), claims.OwnerID); err != nil {
		jsonError(w, http.StatusBadGateway, "refresh failed")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "refreshed"})
}
