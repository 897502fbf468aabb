package api

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/akazakov/sklad/internal/analytics"
	"github.com/akazakov/sklad/internal/model"
	"github.com/akazakov/sklad/internal/store"
)

// TransactionsHandler serves the transaction history.
type TransactionsHandler struct {
	DB *sql.DB
}

// List handles GET /api/transactions with optional kind, product_id, from,
// to, and limit filters. Newest first.
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := h.filter(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	transactions, err := store.ListTransactions(r.Context(), h.DB, filter)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	if transactions == nil {
		transactions = []model.Transaction{}
	}
	jsonResponse(w, http.StatusOK, transactions)
}

// ExportCSV handles GET /api/transactions/export.csv: the filtered history
// with product details resolved, custom fields as extra columns.
func (h *TransactionsHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	filter, err := h.filter(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	transactions, err := store.ListTransactions(r.Context(), h.DB, filter)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}

	products := make(map[string]model.Product)
	for _, t := range transactions {
		if t.ProductID == "" {
			continue
		}
		if _, seen := products[t.ProductID]; seen {
			continue
		}
		p, err := store.GetProduct(r.Context(), h.DB, t.ProductID)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "failed to resolve products")
			return
		}
		if p != nil {
			products[t.ProductID] = *p
		}
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="history.csv"`)
	if err := analytics.WriteHistoryCSV(w, transactions, products); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to render CSV")
	}
}

// Delete handles DELETE /api/transactions/{id}. It removes the history entry
// only; the product's quantity stays as the movement left it.
func (h *TransactionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	transaction, err := store.GetTransaction(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get transaction")
		return
	}
	if transaction == nil || transaction.OwnerID != ownerScope(r.Context()) {
		jsonError(w, http.StatusNotFound, "transaction not found")
		return
	}

	if err := store.DeleteTransaction(r.Context(), h.DB, id); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to delete transaction")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "transaction deleted"})
}

func (h *TransactionsHandler) filter(r *http.Request) (store.TransactionFilter, error) {
	q := r.URL.Query()
	filter := store.TransactionFilter{
		OwnerID:      ownerScope(r.Context()),
		Kind:         q.Get("kind"),
		ProductID:    q.Get("product_id"),
		CategoryLike: q.Get("category"),
	}

	var err error
	if filter.From, err = parseDate(q.Get("from")); err != nil {
		return filter, err
	}
	if filter.To, err = parseDate(q.Get("to")); err != nil {
		return filter, err
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return filter, errInvalidLimit
		}
		filter.Limit = limit
	}
	return filter, nil
}

var errInvalidLimit = &queryError{"invalid limit"}

type queryError struct{ msg string }

func (e *queryError) Error() string { return e.msg }

// parseDate accepts RFC 3339 or a bare date. Empty input is the zero time,
// meaning no bound.
func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, &queryError{"invalid date: " + raw}
	}
	return t, nil
}
