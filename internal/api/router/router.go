package router

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	"gopharma/internal/api/inventory"
	"gopharma/internal/api/openapi"
	"gopharma/internal/api/pricing"
	"gopharma/internal/api/procurement"
	"gopharma/internal/pkg/logger"
	"gopharma/internal/pkg/metrics"
	"gopharma/internal/pkg/middleware"
)

// Deps reúne os handlers e middlewares já inicializados no main.
// Auth e RateLimit são opcionais (nil desativa).
type Deps struct {
	Inventory   *inventory.Handler
	Pricing     *pricing.Handler
	Procurement *procurement.Handler
	Metrics     *metrics.Metrics
	Logger      logger.Logger
	Auth        func(http.Handler) http.Handler
	RateLimit   func(http.Handler) http.Handler
}

// NewRouter configura e retorna o roteador HTTP principal.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	// --- 1. Rotas de infraestrutura ---
	mux.HandleFunc("GET /ping", PingHandler)
	mux.Handle("GET /metrics", d.Metrics.Handler())
	mux.HandleFunc("GET /swagger/doc.json", openapi.Handler)
	mux.Handle("GET /swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// --- 2. Rotas v1 (protegidas) ---
	v1 := func(h http.HandlerFunc) http.Handler {
		var handler http.Handler = h
		if d.Auth != nil {
			handler = d.Auth(handler)
		}
		if d.RateLimit != nil {
			handler = d.RateLimit(handler)
		}
		return handler
	}

	mux.Handle("POST /v1/inventory/batches/fefo-select", v1(d.Inventory.FEFOSelectHandler))
	mux.Handle("GET /v1/inventory/expiry/dashboard", v1(d.Inventory.ExpiryDashboardHandler))
	mux.Handle("GET /v1/inventory/dashboard-stats", v1(d.Inventory.DashboardStatsHandler))
	mux.Handle("POST /v1/inventory/stock/adjust", v1(d.Inventory.AdjustStockHandler))

	mux.Handle("POST /v1/pricing/calculate", v1(d.Pricing.CalculateHandler))
	mux.Handle("POST /v1/pricing/calculate-bulk", v1(d.Pricing.CalculateBulkHandler))
	mux.Handle("GET /v1/pricing/tiers", v1(d.Pricing.TiersHandler))
	mux.Handle("GET /v1/pricing/customers/{id}/tier", v1(d.Pricing.CustomerTierHandler))

	mux.Handle("POST /v1/procurement/invoices/match", v1(d.Procurement.MatchInvoiceHandler))

	// --- 3. Middlewares globais ---
	return middleware.WithRequestID(middleware.WithLogging(d.Logger, d.Metrics)(mux))
}

// PingHandler é uma função utilitária para o health check.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}
