package api

import (
	"database/sql"
	"net/http"

	"github.com/akazakov/sklad/internal/ledger"
	"github.com/akazakov/sklad/internal/sync"
)

// NewRouter creates the API router with all endpoints registered. Every
// route passes through the auth middleware; requests without a token operate
// in the guest scope.
func NewRouter(db *sql.DB, lgr *ledger.Ledger, rec *sync.Reconciler, jwtSecret string) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret, Reconciler: rec}
	ledgerHandler := &LedgerHandler{Ledger: lgr, Reconciler: rec}
	productsHandler := &ProductsHandler{DB: db, Reconciler: rec}
	containersHandler := &ContainersHandler{DB: db}
	transactionsHandler := &TransactionsHandler{DB: db}
	settingsHandler := &SettingsHandler{DB: db}
	backupHandler := &BackupHandler{DB: db}
	analyticsHandler := &AnalyticsHandler{DB: db}
	syncHandler := &SyncHandler{Reconciler: rec}

	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, http.HandlerFunc(h))
	}

	// Accounts.
	handle("POST /api/auth/register", authHandler.Register)
	handle("POST /api/auth/login", authHandler.Login)
	mux.Handle("POST /api/auth/logout", RequireAuth(http.HandlerFunc(authHandler.Logout)))

	// Ledger: the only quantity-changing endpoints.
	handle("POST /api/ledger/intake", ledgerHandler.Intake)
	handle("POST /api/ledger/expense", ledgerHandler.Expense)
	handle("POST /api/ledger/placeholder", ledgerHandler.Placeholder)

	// Products.
	handle("GET /api/products", productsHandler.List)
	handle("GET /api/products/autofill", productsHandler.Autofill)
	handle("GET /api/products/export.csv", productsHandler.ExportCSV)
	handle("GET /api/products/{id}", productsHandler.Get)
	handle("PUT /api/products/{id}", productsHandler.Update)
	handle("DELETE /api/products/{id}", productsHandler.Delete)
	handle("PUT /api/products/{id}/photo", productsHandler.UploadPhoto)
	handle("GET /api/products/{id}/photo", productsHandler.GetPhoto)
	handle("GET /api/products/{id}/purchased", ledgerHandler.PurchasedQuantity)

	// Containers.
	handle("GET /api/containers", containersHandler.List)
	handle("POST /api/containers", containersHandler.Create)
	handle("GET /api/containers/{id}", containersHandler.Get)
	handle("PUT /api/containers/{id}", containersHandler.Rename)
	handle("DELETE /api/containers/{id}", containersHandler.Delete)

	// Transaction history.
	handle("GET /api/transactions", transactionsHandler.List)
	handle("GET /api/transactions/export.csv", transactionsHandler.ExportCSV)
	handle("DELETE /api/transactions/{id}", transactionsHandler.Delete)

	// Vocabularies.
	handle("GET /api/settings/vocabularies/{key}", settingsHandler.Get)
	handle("PUT /api/settings/vocabularies/{key}", settingsHandler.Set)
	handle("POST /api/settings/vocabularies/{key}/entries", settingsHandler.AddEntry)
	handle("DELETE /api/settings/vocabularies/{key}/entries/{entry}", settingsHandler.RemoveEntry)

	// Backup.
	handle("GET /api/backup", backupHandler.Export)
	handle("POST /api/backup", backupHandler.Import)

	// Analytics.
	handle("GET /api/analytics/report", analyticsHandler.Report)
	handle("GET /api/analytics/report.csv", analyticsHandler.ReportCSV)

	// Sync.
	mux.Handle("POST /api/sync/refresh", RequireAuth(http.HandlerFunc(syncHandler.Refresh)))

	authMW := AuthMiddleware(jwtSecret, db)
	return authMW(mux)
}
