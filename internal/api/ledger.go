package api

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/akazakov/sklad/internal/ledger"
	"github.com/akazakov/sklad/internal/model"
	"github.com/akazakov/sklad/internal/sync"
)

// LedgerHandler handles the inventory mutation endpoints. Every committed
// mutation is pushed to the remote store best-effort after the local commit.
type LedgerHandler struct {
	Ledger     *ledger.Ledger
	Reconciler *sync.Reconciler
}

type intakeRequest struct {
	ProductID    string            `json:"product_id"`
	Name         string            `json:"name"`
	Organization string            `json:"organization"`
	Price        string            `json:"price"`
	Quantity     int64             `json:"quantity"`
	Category     string            `json:"category"`
	Technique    string            `json:"technique"`
	Barcode      string            `json:"barcode"`
	CustomFields map[string]string `json:"custom_fields"`
	ContainerID  string            `json:"container_id"`
}

type expenseRequest struct {
	Barcode   string `json:"barcode"`
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	Purpose   string `json:"purpose"`
}

type expenseResponse struct {
	Product     *model.Product     `json:"product,omitempty"`
	Transaction *model.Transaction `json:"transaction,omitempty"`
	Candidates  []model.Product    `json:"candidates,omitempty"`
}

// Intake handles POST /api/ledger/intake.
func (h *LedgerHandler) Intake(w http.ResponseWriter, r *http.Request) {
	var req intakeRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	params, err := h.intakeParams(r, req)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid price")
		return
	}

	result, err := h.Ledger.Intake(r.Context(), params)
	if err != nil {
		ledgerError(w, err)
		return
	}

	h.push(result)
	jsonResponse(w, http.StatusCreated, expenseResponse{
		Product:     result.Product,
		Transaction: result.Transaction,
	})
}

// Expense handles POST /api/ledger/expense. With a product_id the expense is
// explicit; with only a barcode it runs in quick mode and may come back with
// candidates instead of a deduction when the barcode is ambiguous.
func (h *LedgerHandler) Expense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	owner := ownerScope(r.Context())

	var result *ledger.Result
	var err error
	if req.ProductID != "" {
		purpose := req.Purpose
		if purpose == "" {
			purpose = ledger.DefaultExpensePurpose
		}
		result, err = h.Ledger.ExpenseProduct(r.Context(), req.ProductID, req.Quantity, purpose, owner)
	} else {
		result, err = h.Ledger.ExpenseQuick(r.Context(), req.Barcode, req.Quantity, owner)
	}
	if err != nil {
		ledgerError(w, err)
		return
	}

	if len(result.Candidates) > 0 {
		// Nothing was deducted; the caller has to choose a product.
		jsonResponse(w, http.StatusMultipleChoices, expenseResponse{Candidates: result.Candidates})
		return
	}

	h.push(result)
	jsonResponse(w, http.StatusOK, expenseResponse{
		Product:     result.Product,
		Transaction: result.Transaction,
	})
}

// Placeholder handles POST /api/ledger/placeholder: a zero-quantity product
// with no transaction record.
func (h *LedgerHandler) Placeholder(w http.ResponseWriter, r *http.Request) {
	var req intakeRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	params, err := h.intakeParams(r, req)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid price")
		return
	}

	product, err := h.Ledger.CreatePlaceholder(r.Context(), params)
	if err != nil {
		ledgerError(w, err)
		return
	}

	h.Reconciler.PushProduct(*product)
	jsonResponse(w, http.StatusCreated, product)
}

// PurchasedQuantity handles GET /api/products/{id}/purchased.
func (h *LedgerHandler) PurchasedQuantity(w http.ResponseWriter, r *http.Request) {
	total, err := h.Ledger.PurchasedQuantity(r.Context(), r.PathValue("id"))
	if err != nil {
		ledgerError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]int64{"purchased_quantity": total})
}

func (h *LedgerHandler) intakeParams(r *http.Request, req intakeRequest) (ledger.IntakeParams, error) {
	price := decimal.Zero
	if req.Price != "" {
		var err error
		price, err = decimal.NewFromString(req.Price)
		if err != nil {
			return ledger.IntakeParams{}, err
		}
	}

	return ledger.IntakeParams{
		ProductID:    req.ProductID,
		Name:         req.Name,
		Organization: req.Organization,
		Price:        price,
		Quantity:     req.Quantity,
		Category:     req.Category,
		Technique:    req.Technique,
		Barcode:      req.Barcode,
		CustomFields: req.CustomFields,
		ContainerID:  req.ContainerID,
		OwnerID:      ownerScope(r.Context()),
	}, nil
}

// push replicates a committed ledger result without blocking the response.
func (h *LedgerHandler) push(result *ledger.Result) {
	if result.Product != nil {
		h.Reconciler.PushProduct(*result.Product)
	}
	if result.Transaction != nil {
		h.Reconciler.PushTransaction(*result.Transaction)
	}
}

// ledgerError maps ledger failures to HTTP statuses.
func ledgerError(w http.ResponseWriter, err error) {
	var verr *ledger.ValidationError
	switch {
	case errors.As(err, &verr):
		jsonError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, ledger.ErrNoStock):
		jsonError(w, http.StatusNotFound, "no product in stock matches")
	case errors.Is(err, ledger.ErrProductNotFound):
		jsonError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, ledger.ErrInsufficientStock):
		jsonError(w, http.StatusConflict, err.Error())
	default:
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}
