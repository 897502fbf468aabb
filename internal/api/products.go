package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/akazakov/sklad/internal/analytics"
	"github.com/akazakov/sklad/internal/imaging"
	"github.com/akazakov/sklad/internal/model"
	"github.com/akazakov/sklad/internal/store"
	"github.com/akazakov/sklad/internal/sync"
)

// ProductsHandler handles product read, update, and photo endpoints.
// Quantity never changes here; that is the ledger's job.
type ProductsHandler struct {
	DB         *sql.DB
	Reconciler *sync.Reconciler
}

type updateProductRequest struct {
	Name         string            `json:"name"`
	Organization string            `json:"organization"`
	Category     string            `json:"category"`
	Technique    string            `json:"technique"`
	Barcode      string            `json:"barcode"`
	CustomFields map[string]string `json:"custom_fields"`
	ContainerID  string            `json:"container_id"`
}

// List handles GET /api/products with optional filters.
func (h *ProductsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ProductFilter{
		OwnerID:      ownerScope(r.Context()),
		Barcode:      q.Get("barcode"),
		ContainerID:  q.Get("container_id"),
		NameLike:     q.Get("name"),
		CategoryLike: q.Get("category"),
		InStock:      q.Get("in_stock") == "true",
	}
	if raw := q.Get("min_quantity"); raw != "" {
		min, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid min_quantity")
			return
		}
		filter.MinQuantity = &min
	}

	products, err := store.ListProducts(r.Context(), h.DB, filter)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list products")
		return
	}
	if products == nil {
		products = []model.Product{}
	}
	jsonResponse(w, http.StatusOK, products)
}

// Get handles GET /api/products/{id}.
func (h *ProductsHandler) Get(w http.ResponseWriter, r *http.Request) {
	product := h.scoped(w, r)
	if product == nil {
		return
	}
	jsonResponse(w, http.StatusOK, product)
}

// Update handles PUT /api/products/{id}: descriptive fields only.
func (h *ProductsHandler) Update(w http.ResponseWriter, r *http.Request) {
	product := h.scoped(w, r)
	if product == nil {
		return
	}

	var req updateProductRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	product.Name = req.Name
	product.Organization = req.Organization
	product.Category = req.Category
	product.Technique = req.Technique
	product.Barcode = req.Barcode
	product.CustomFields = req.CustomFields
	product.ContainerID = req.ContainerID

	if err := store.UpdateProduct(r.Context(), h.DB, product); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to update product")
		return
	}

	updated, err := store.GetProduct(r.Context(), h.DB, product.ID)
	if err != nil || updated == nil {
		jsonError(w, http.StatusInternalServerError, "failed to reload product")
		return
	}

	h.Reconciler.PushProduct(*updated)
	jsonResponse(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/products/{id}. Transactions referencing the
// product survive with their reference cleared.
func (h *ProductsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	product := h.scoped(w, r)
	if product == nil {
		return
	}

	if err := store.DeleteProduct(r.Context(), h.DB, product.ID); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to delete product")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "product deleted"})
}

// Autofill handles GET /api/products/autofill?barcode=... and returns the
// descriptive fields of an existing product with that barcode, so intake
// forms can prefill themselves after a scan.
func (h *ProductsHandler) Autofill(w http.ResponseWriter, r *http.Request) {
	barcode := r.URL.Query().Get("barcode")
	if barcode == "" {
		jsonError(w, http.StatusBadRequest, "barcode required")
		return
	}

	products, err := store.ListProducts(r.Context(), h.DB, store.ProductFilter{
		OwnerID: ownerScope(r.Context()),
		Barcode: barcode,
	})
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to look up barcode")
		return
	}
	if len(products) == 0 {
		jsonError(w, http.StatusNotFound, "no product with that barcode")
		return
	}

	p := products[0]
	jsonResponse(w, http.StatusOK, map[string]any{
		"name":          p.Name,
		"organization":  p.Organization,
		"price":         p.Price,
		"category":      p.Category,
		"technique":     p.Technique,
		"custom_fields": p.CustomFields,
	})
}

// ExportCSV handles GET /api/products/export.csv with the current stock list.
func (h *ProductsHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	products, err := store.ListProducts(r.Context(), h.DB, store.ProductFilter{
		OwnerID: ownerScope(r.Context()),
	})
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="products.csv"`)
	if err := analytics.WriteProductsCSV(w, products); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to render CSV")
	}
}

// UploadPhoto handles PUT /api/products/{id}/photo. The photo is validated,
// downscaled, and re-encoded before storage.
func (h *ProductsHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	product := h.scoped(w, r)
	if product == nil {
		return
	}

	// Limit to 10 MB.
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("photo")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "photo file required")
		return
	}
	defer file.Close()

	data, err := imaging.Process(file)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.SetProductPhoto(r.Context(), h.DB, product.ID, data); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to save photo")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "photo uploaded"})
}

// GetPhoto handles GET /api/products/{id}/photo.
func (h *ProductsHandler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	product := h.scoped(w, r)
	if product == nil {
		return
	}

	data, err := store.GetProductPhoto(r.Context(), h.DB, product.ID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get photo")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no photo")
		return
	}

	// Photos are stored re-encoded as JPEG.
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}

// scoped loads the product from the path id and checks it belongs to the
// request's owner scope. Writes the error response itself on failure.
func (h *ProductsHandler) scoped(w http.ResponseWriter, r *http.Request) *model.Product {
	product, err := store.GetProduct(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get product")
		return nil
	}
	if product == nil || product.OwnerID != ownerScope(r.Context()) {
		jsonError(w, http.StatusNotFound, "product not found")
		return nil
	}
	return product
}
