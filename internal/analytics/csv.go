package analytics

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/akazakov/sklad/internal/model"
)

// WriteReportCSV renders a report as a sectioned CSV document: a summary
// block, then per-category and per-technique blocks with purchase and
// expense columns. Every field is quoted and money carries exactly two
// decimal digits.
func WriteReportCSV(w io.Writer, r *Report) error {
	if err := writeRow(w, "metric", "value"); err != nil {
		return err
	}
	rows := [][2]string{
		{"total purchase cost", r.TotalPurchaseCost.StringFixed(2)},
		{"total expense cost", r.TotalExpenseCost.StringFixed(2)},
		{"intake operations", fmt.Sprintf("%d", r.IntakeCount)},
		{"expense operations", fmt.Sprintf("%d", r.ExpenseCount)},
	}
	for _, row := range rows {
		if err := writeRow(w, row[0], row[1]); err != nil {
			return err
		}
	}

	if err := writeBucketSection(w, "category", r.PurchaseByCategory, r.ExpenseByCategory); err != nil {
		return err
	}
	return writeBucketSection(w, "technique", r.PurchaseByTechnique, r.ExpenseByTechnique)
}

// WriteHistoryCSV renders one row per transaction: fixed columns followed by
// the sorted union of every custom-field name seen across the referenced
// products. products maps product id to product for reference resolution.
func WriteHistoryCSV(w io.Writer, transactions []model.Transaction, products map[string]model.Product) error {
	keySet := make(map[string]bool)
	for _, t := range transactions {
		if p, ok := products[t.ProductID]; ok {
			for k := range p.CustomFields {
				keySet[k] = true
			}
		}
	}
	customKeys := make([]string, 0, len(keySet))
	for k := range keySet {
		customKeys = append(customKeys, k)
	}
	sort.Strings(customKeys)

	header := []string{"date", "kind", "name", "organization", "price", "quantity", "category", "technique", "purpose"}
	header = append(header, customKeys...)
	if err := writeRow(w, header...); err != nil {
		return err
	}

	for _, t := range transactions {
		p, ok := products[t.ProductID]
		row := []string{
			t.Date.Format("02.01.2006 15:04"),
			t.Kind,
		}
		if ok {
			row = append(row,
				p.Name, p.Organization, p.Price.StringFixed(2),
				fmt.Sprintf("%d", p.Quantity), p.Category, p.Technique,
			)
		} else {
			row = append(row, "", "", "", "", "", "")
		}
		row = append(row, t.ExpensePurpose)
		for _, k := range customKeys {
			row = append(row, p.CustomFields[k])
		}
		if err := writeRow(w, row...); err != nil {
			return err
		}
	}
	return nil
}

// writeBucketSection renders one breakdown block: the union of keys from
// both maps, sorted, with purchase and expense amounts side by side.
func writeBucketSection(w io.Writer, label string, purchase, expense map[string]decimal.Decimal) error {
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	if err := writeRow(w, label, "purchase", "expense"); err != nil {
		return err
	}

	keySet := make(map[string]bool)
	for k := range purchase {
		keySet[k] = true
	}
	for k := range expense {
		keySet[k] = true
	}
	keys := make([]string, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := writeRow(w, k, purchase[k].StringFixed(2), expense[k].StringFixed(2)); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(w io.Writer, fields ...string) error {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	_, err := fmt.Fprintln(w, strings.Join(quoted, ","))
	return err
}
