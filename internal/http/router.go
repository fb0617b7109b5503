package http

import (
	"net/http"

	"collection-backend/internal/auth"
	"collection-backend/internal/handlers"
	"collection-backend/internal/middleware"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Handlers groups everything the router dispatches to.
type Handlers struct {
	Auth           *handlers.AuthHandler
	Employees      *handlers.EmployeeHandler
	Shops          *handlers.ShopHandler
	Collections    *handlers.CollectionHandler
	Reconciliation *handlers.ReconciliationHandler
	Health         *handlers.HealthHandler
}

// NewRouter builds the HTTP surface. CORS wraps the router so preflight
// requests are answered before route matching.
func NewRouter(
	h Handlers,
	authMiddleware *middleware.AuthMiddleware,
	cors func(http.Handler) http.Handler,
	log zerolog.Logger,
) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.PanicRecovery)
	r.Use(middleware.MetricsMiddleware)

	// Public routes
	r.HandleFunc("/auth/login", h.Auth.Login).Methods("POST")
	r.HandleFunc("/health", h.Health.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", h.Health.ReadinessHealth).Methods("GET")
	r.HandleFunc("/health/detailed", h.Health.DetailedHealth).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware.Authenticate)

	adminOnly := middleware.RequireRole(auth.RoleAdmin)
	admin := func(fn http.HandlerFunc) http.Handler {
		return adminOnly(fn)
	}

	// Employees
	api.Handle("/employees", admin(h.Employees.ListEmployees)).Methods("GET")
	api.Handle("/employees", admin(h.Employees.CreateEmployee)).Methods("POST")
	api.Handle("/employees/{id:[0-9]+}/status", admin(h.Employees.SetStatus)).Methods("PUT")
	api.HandleFunc("/employees/{id:[0-9]+}/cash-in-bag", h.Employees.CashInBag).Methods("GET")
	api.Handle("/employees/{id:[0-9]+}/handover", admin(h.Employees.VerifyHandover)).Methods("POST")

	// Shops and ledger
	api.HandleFunc("/shops", h.Shops.ListShops).Methods("GET")
	api.Handle("/shops", admin(h.Shops.CreateShop)).Methods("POST")
	api.HandleFunc("/shops/{id:[0-9]+}", h.Shops.GetShop).Methods("GET")
	api.Handle("/shops/{id:[0-9]+}", admin(h.Shops.DeleteShop)).Methods("DELETE")
	api.Handle("/shops/{id:[0-9]+}/balance", admin(h.Shops.ApplyBalanceChange)).Methods("POST")
	api.Handle("/shops/{id:[0-9]+}/audit", admin(h.Shops.AuditTrail)).Methods("GET")
	api.Handle("/shops/{id:[0-9]+}/integrity", admin(h.Shops.CheckIntegrity)).Methods("GET")

	// Collections
	api.HandleFunc("/collections", h.Collections.ListTransactions).Methods("GET")
	api.HandleFunc("/collections", h.Collections.RecordCollection).Methods("POST")

	// Reconciliation
	api.Handle("/reconciliations", admin(h.Reconciliation.Verify)).Methods("POST")
	api.Handle("/reconciliations", admin(h.Reconciliation.ListByDate)).Methods("GET")
	api.Handle("/reconciliations/close-day", admin(h.Reconciliation.CloseDay)).Methods("POST")
	api.Handle("/reconciliations/{id:[0-9]+}", admin(h.Reconciliation.VerifyByID)).Methods("PUT")
	api.Handle("/reconciliations/{employeeID:[0-9]+}/{date}", admin(h.Reconciliation.Get)).Methods("GET")

	return cors(r)
}
