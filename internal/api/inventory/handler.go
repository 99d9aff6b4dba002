package inventory

import (
	"context"
	"net/http"

	"gopharma/internal/api/respond"
	"gopharma/internal/domain"
	"gopharma/internal/pkg/logger"
)

// BatchService define o contrato que o Handler espera do alocador FEFO.
type BatchService interface {
	AllocateFEFO(ctx context.Context, productID, locationID string, quantityNeeded int) (domain.AllocationResult, error)
	ExpiryDashboard(ctx context.Context, locationID string) (domain.DashboardResult, error)
	InventoryStats(ctx context.Context, locationID string) (domain.InventoryStats, error)
}

// StockService define o contrato de ajuste de estoque de lotes.
type StockService interface {
	AdjustStock(ctx context.Context, adjustment domain.StockAdjustmentRequest) (domain.Batch, error)
}

// DecisionRecorder conta as decisões produzidas (implementado por metrics.Metrics).
type DecisionRecorder interface {
	ObserveDecision(engine, outcome string)
}

// Handler agrupa os handlers de inventário.
type Handler struct {
	Batches BatchService
	Stock   StockService
	Metrics DecisionRecorder
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando os serviços e o Logger.
func NewHandler(batches BatchService, stock StockService, rec DecisionRecorder, log logger.Logger) *Handler {
	return &Handler{
		Batches: batches,
		Stock:   stock,
		Metrics: rec,
		Logger:  log,
	}
}

// FEFOSelectHandler lida com POST /v1/inventory/batches/fefo-select.
func (h *Handler) FEFOSelectHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.FEFORequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.ServiceResponse(w, r, h.Logger, nil, err, http.StatusOK)
		return
	}

	result, err := h.Batches.AllocateFEFO(r.Context(), req.ProductID, req.LocationID, req.QuantityNeeded)
	if err != nil {
		respond.ServiceResponse(w, r, h.Logger, nil, err, http.StatusOK)
		return
	}

	outcome := "FULLY_ALLOCATED"
	if !result.FullyAllocated {
		outcome = "SHORTAGE"
	}
	h.Metrics.ObserveDecision("fefo", outcome)
	respond.ServiceResponse(w, r, h.Logger, result, nil, http.StatusOK)
}

// ExpiryDashboardHandler lida com GET /v1/inventory/expiry/dashboard?location_id=.
func (h *Handler) ExpiryDashboardHandler(w http.ResponseWriter, r *http.Request) {
	result, err := h.Batches.ExpiryDashboard(r.Context(), r.URL.Query().Get("location_id"))
	respond.ServiceResponse(w, r, h.Logger, result, err, http.StatusOK)
}

// DashboardStatsHandler lida com GET /v1/inventory/dashboard-stats?location_id=.
func (h *Handler) DashboardStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Batches.InventoryStats(r.Context(), r.URL.Query().Get("location_id"))
	respond.ServiceResponse(w, r, h.Logger, stats, err, http.StatusOK)
}

// AdjustStockHandler lida com POST /v1/inventory/stock/adjust.
func (h *Handler) AdjustStockHandler(w http.ResponseWriter, r *http.Request) {
	var adjustment domain.StockAdjustmentRequest
	if err := respond.DecodeJSON(r, &adjustment); err != nil {
		respond.ServiceResponse(w, r, h.Logger, nil, err, http.StatusOK)
		return
	}

	batch, err := h.Stock.AdjustStock(r.Context(), adjustment)
	if err != nil {
		respond.ServiceResponse(w, r, h.Logger, nil, err, http.StatusOK)
		return
	}
	respond.ServiceResponse(w, r, h.Logger, batch, nil, http.StatusOK)
}
