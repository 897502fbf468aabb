// Package analytics folds the transaction log over a date range into
// purchase and expense totals, broken down by category and technique.
package analytics

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/akazakov/sklad/internal/model"
	"github.com/akazakov/sklad/internal/store"
)

// Bucket labels for products without a category or technique.
const (
	NoCategory  = "(no category)"
	NoTechnique = "(no technique)"
)

// Report holds the aggregated totals for a period.
type Report struct {
	TotalPurchaseCost   decimal.Decimal            `json:"total_purchase_cost"`
	TotalExpenseCost    decimal.Decimal            `json:"total_expense_cost"`
	IntakeCount         int                        `json:"intake_count"`
	ExpenseCount        int                        `json:"expense_count"`
	PurchaseByCategory  map[string]decimal.Decimal `json:"purchase_by_category"`
	ExpenseByCategory   map[string]decimal.Decimal `json:"expense_by_category"`
	PurchaseByTechnique map[string]decimal.Decimal `json:"purchase_by_technique"`
	ExpenseByTechnique  map[string]decimal.Decimal `json:"expense_by_technique"`
}

// Compute aggregates transactions with from <= date <= to in the given owner
// scope. Expense cost is unit price times the recorded expense quantity.
// Purchase cost reconstructs the historical batch size instead of trusting
// the intake-time quantity: unit price times (current quantity + expense
// quantities recorded in the period). The reconstruction is attributed once
// per matched intake transaction, so a product with several intake events in
// the range counts the full reconstructed cost for each of them.
//
// Transactions whose product reference was nullified are skipped entirely.
func Compute(ctx context.Context, db *sql.DB, ownerID string, from, to time.Time) (*Report, error) {
	transactions, err := store.ListTransactions(ctx, db, store.TransactionFilter{
		OwnerID: ownerID,
		From:    from,
		To:      to,
	})
	if err != nil {
		return nil, err
	}

	report := &Report{
		PurchaseByCategory:  make(map[string]decimal.Decimal),
		ExpenseByCategory:   make(map[string]decimal.Decimal),
		PurchaseByTechnique: make(map[string]decimal.Decimal),
		ExpenseByTechnique:  make(map[string]decimal.Decimal),
	}

	products := make(map[string]*model.Product)
	lookup := func(id string) (*model.Product, error) {
		if p, ok := products[id]; ok {
			return p, nil
		}
		p, err := store.GetProduct(ctx, db, id)
		if err != nil {
			return nil, err
		}
		products[id] = p
		return p, nil
	}

	expenseSums := make(map[string]int64)

	for _, t := range transactions {
		if t.Kind != model.TransactionExpense || t.ProductID == "" {
			continue
		}
		p, err := lookup(t.ProductID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			continue
		}

		report.ExpenseCount++
		cost := p.Price.Mul(decimal.NewFromInt(t.ExpenseQuantity))
		report.TotalExpenseCost = report.TotalExpenseCost.Add(cost)
		addTo(report.ExpenseByCategory, categoryOf(p), cost)
		addTo(report.ExpenseByTechnique, techniqueOf(p), cost)

		expenseSums[p.ID] += t.ExpenseQuantity
	}

	for _, t := range transactions {
		if t.Kind != model.TransactionIntake || t.ProductID == "" {
			continue
		}
		p, err := lookup(t.ProductID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			continue
		}

		report.IntakeCount++
		purchased := p.Quantity + expenseSums[p.ID]
		cost := p.Price.Mul(decimal.NewFromInt(purchased))
		report.TotalPurchaseCost = report.TotalPurchaseCost.Add(cost)
		addTo(report.PurchaseByCategory, categoryOf(p), cost)
		addTo(report.PurchaseByTechnique, techniqueOf(p), cost)
	}

	return report, nil
}

func addTo(m map[string]decimal.Decimal, key string, v decimal.Decimal) {
	m[key] = m[key].Add(v)
}

func categoryOf(p *model.Product) string {
	if p.Category == "" {
		return NoCategory
	}
	return p.Category
}

func techniqueOf(p *model.Product) string {
	if p.Technique == "" {
		return NoTechnique
	}
	return p.Technique
}
