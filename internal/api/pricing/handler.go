package pricing

import (
	"context"
	"net/http"

	"gopharma/internal/api/respond"
	"gopharma/internal/domain"
	"gopharma/internal/pkg/logger"
)

// PricingService define o contrato que o Handler espera do resolvedor de preços.
type PricingService interface {
	ResolvePrice(ctx context.Context, pc domain.PriceContext) (domain.PriceDecision, error)
	ResolveBulk(ctx context.Context, req domain.BulkPriceRequest) (domain.BulkPriceResult, error)
	TierDiscounts() []domain.TierDiscount
	CustomerTier(ctx context.Context, customerID string) (domain.CustomerTierInfo, error)
}

// DecisionRecorder conta as decisões produzidas (implementado por metrics.Metrics).
type DecisionRecorder interface {
	ObserveDecision(engine, outcome string)
}

// Handler agrupa os handlers de preços.
type Handler struct {
	Service PricingService
	Metrics DecisionRecorder
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler de preços.
func NewHandler(svc PricingService, rec DecisionRecorder, log logger.Logger) *Handler {
	return &Handler{Service: svc, Metrics: rec, Logger: log}
}

// CalculateHandler lida com POST /v1/pricing/calculate.
func (h *Handler) CalculateHandler(w http.ResponseWriter, r *http.Request) {
	var pc domain.PriceContext
	if err := respond.DecodeJSON(r, &pc); err != nil {
		respond.ServiceResponse(w, r, h.Logger, nil, err, http.StatusOK)
		return
	}

	decision, err := h.Service.ResolvePrice(r.Context(), pc)
	if err != nil {
		respond.ServiceResponse(w, r, h.Logger, nil, err, http.StatusOK)
		return
	}
	h.Metrics.ObserveDecision("pricing", string(decision.AppliedRule))
	respond.ServiceResponse(w, r, h.Logger, decision, nil, http.StatusOK)
}

// CalculateBulkHandler lida com POST /v1/pricing/calculate-bulk.
func (h *Handler) CalculateBulkHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.BulkPriceRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.ServiceResponse(w, r, h.Logger, nil, err, http.StatusOK)
		return
	}

	result, err := h.Service.ResolveBulk(r.Context(), req)
	if err != nil {
		respond.ServiceResponse(w, r, h.Logger, nil, err, http.StatusOK)
		return
	}
	for _, item := range result.Items {
		h.Metrics.ObserveDecision("pricing", string(item.AppliedRule))
	}
	respond.ServiceResponse(w, r, h.Logger, result, nil, http.StatusOK)
}

// TiersHandler lida com GET /v1/pricing/tiers.
func (h *Handler) TiersHandler(w http.ResponseWriter, r *http.Request) {
	respond.ServiceResponse(w, r, h.Logger, map[string]interface{}{"tiers": h.Service.TierDiscounts()}, nil, http.StatusOK)
}

// CustomerTierHandler lida com GET /v1/pricing/customers/{id}/tier.
func (h *Handler) CustomerTierHandler(w http.ResponseWriter, r *http.Request) {
	info, err := h.Service.CustomerTier(r.Context(), r.PathValue("id"))
	respond.ServiceResponse(w, r, h.Logger, info, err, http.StatusOK)
}
