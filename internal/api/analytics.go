package api

import (
	"database/sql"
	"net/http"

	"github.com/akazakov/sklad/internal/analytics"
)

// AnalyticsHandler serves cost reports over a date range.
type AnalyticsHandler struct {
	DB *sql.DB
}

// Report handles GET /api/analytics/report?from=...&to=...
func (h *AnalyticsHandler) Report(w http.ResponseWriter, r *http.Request) {
	report, ok := h.compute(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, report)
}

// ReportCSV handles GET /api/analytics/report.csv with the same parameters.
func (h *AnalyticsHandler) ReportCSV(w http.ResponseWriter, r *http.Request) {
	report, ok := h.compute(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="report.csv"`)
	if err := analytics.WriteReportCSV(w, report); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to render CSV")
	}
}

func (h *AnalyticsHandler) compute(w http.ResponseWriter, r *http.Request) (*analytics.Report, bool) {
	q := r.URL.Query()
	from, err := parseDate(q.Get("from"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	to, err := parseDate(q.Get("to"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	report, err := analytics.Compute(r.Context(), h.DB, ownerScope(r.Context()), from, to)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to compute report")
		return nil, false
	}
	return report, true
}
