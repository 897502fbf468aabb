package analytics

import (
	"io"

	"github.com/gocarina/gocsv"

	"github.com/akazakov/sklad/internal/model"
)

// productRow is the flat CSV shape of a product for stock exports.
type productRow struct {
	ID           string `csv:"id"`
	Name         string `csv:"name"`
	Organization string `csv:"organization"`
	Price        string `csv:"price"`
	Quantity     int64  `csv:"quantity"`
	Category     string `csv:"category"`
	Technique    string `csv:"technique"`
	Barcode      string `csv:"barcode"`
	ContainerID  string `csv:"container_id"`
}

// WriteProductsCSV renders the current stock list, one row per product.
func WriteProductsCSV(w io.Writer, products []model.Product) error {
	rows := make([]productRow, 0, len(products))
	for _, p := range products {
		rows = append(rows, productRow{
			ID:           p.ID,
			Name:         p.Name,
			Organization: p.Organization,
			Price:        p.Price.StringFixed(2),
			Quantity:     p.Quantity,
			Category:     p.Category,
			Technique:    p.Technique,
			Barcode:      p.Barcode,
			ContainerID:  p.ContainerID,
		})
	}
	return gocsv.Marshal(&rows, w)
}
