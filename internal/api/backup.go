package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/akazakov/sklad/internal/backup"
)

// BackupHandler serves full-database export and import. The document covers
// every owner scope on this instance, photos included.
type BackupHandler struct {
	DB *sql.DB
}

// Export handles GET /api/backup.
func (h *BackupHandler) Export(w http.ResponseWriter, r *http.Request) {
	doc, err := backup.Export(r.Context(), h.DB)
	if err != nil {
		slog.Error("backup export failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to export backup")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="backup.json"`)
	if err := backup.Encode(w, doc); err != nil {
		slog.Error("backup encoding failed", "error", err)
	}
}

// Import handles POST /api/backup. The document is decoded in full before
// any write happens, so a malformed file changes nothing.
func (h *BackupHandler) Import(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	doc, err := backup.Decode(r.Body)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid backup document: "+err.Error())
		return
	}

	if err := backup.Import(r.Context(), h.DB, doc); err != nil {
		slog.Error("backup import failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to import backup")
		return
	}

	slog.Info("backup imported",
		"containers", len(doc.Containers),
		"products", len(doc.Products),
		"transactions", len(doc.Transactions),
	)
	jsonResponse(w, http.StatusOK, map[string]int{
		"containers":   len(doc.Containers),
		"products":     len(doc.Products),
		"transactions": len(doc.Transactions),
	})
}
