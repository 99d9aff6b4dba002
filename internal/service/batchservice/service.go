package batchservice

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gopharma/internal/domain"
	apperror "gopharma/internal/errors"
	"gopharma/internal/pkg/cascade"
	"gopharma/internal/pkg/logger"
)

// Service implementa o alocador FEFO (First-Expiry-First-Out) e o painel de validade.
// Não guarda estado entre requisições e nunca altera quantidades de lotes.
type Service struct {
	source domain.BatchSource
	policy domain.Policy
	logger logger.Logger
	now    func() time.Time
	alerts cascade.Cascade[int64, domain.AlertLevel]
}

// NewService cria e retorna uma nova instância do Serviço de Lotes.
func NewService(source domain.BatchSource, policy domain.Policy, log logger.Logger) *Service {
	return &Service{
		source: source,
		policy: policy,
		logger: log,
		now:    time.Now,
		alerts: AlertCascade(policy),
	}
}

// WithClock substitui o relógio usado para calcular "hoje" (testes determinísticos).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// today é o dia civil corrente no fuso da política.
func (s *Service) today() time.Time {
	return s.policy.Today(s.now())
}

// AlertCascade monta a classificação de alerta por dias até o vencimento.
// Limites superiores exclusivos, avaliados em ordem: CRITICAL, WARNING, ATTENTION, senão OK.
func AlertCascade(policy domain.Policy) cascade.Cascade[int64, domain.AlertLevel] {
	return cascade.Below(domain.AlertOK,
		cascade.Threshold[domain.AlertLevel]{Limit: int64(policy.CriticalDays), Value: domain.AlertCritical},
		cascade.Threshold[domain.AlertLevel]{Limit: int64(policy.WarningDays), Value: domain.AlertWarning},
		cascade.Threshold[domain.AlertLevel]{Limit: int64(policy.AttentionDays), Value: domain.AlertAttention},
	)
}

func (s *Service) alertLevel(days int) domain.AlertLevel {
	level, _, _ := s.alerts.Evaluate(int64(days))
	return level
}

// AllocateFEFO monta o plano de retirada de quantityNeeded unidades, consumindo
// primeiro os lotes com vencimento mais próximo. Lotes vencidos nunca são alocados.
func (s *Service) AllocateFEFO(ctx context.Context, productID, locationID string, quantityNeeded int) (domain.AllocationResult, error) {
	s.logger.Debug("Iniciando alocação FEFO.", map[string]interface{}{
		"product_id":      productID,
		"location_id":     locationID,
		"quantity_needed": quantityNeeded,
	})

	// 1. Validação da requisição
	if strings.TrimSpace(productID) == "" || strings.TrimSpace(locationID) == "" {
		return domain.AllocationResult{}, apperror.NewValidationError("Produto e local são obrigatórios para a alocação.")
	}
	if quantityNeeded <= 0 {
		s.logger.Warn("Quantidade solicitada inválida.", map[string]interface{}{"quantity_needed": quantityNeeded})
		return domain.AllocationResult{}, apperror.NewValidationError("A quantidade solicitada deve ser positiva.")
	}

	// 2. Leitura única dos lotes
	batches, err := s.source.BatchesFor(ctx, productID, locationID)
	if err != nil {
		s.logger.Error("Falha ao buscar lotes no repositório.", err)
		return domain.AllocationResult{}, apperror.Propagate("Falha interna ao buscar lotes.", err)
	}

	// 3. Filtra vencidos e ordena por validade (desempate por batch_id)
	today := s.today()
	eligible := make([]domain.Batch, 0, len(batches))
	for _, b := range batches {
		if err := checkBatch(b); err != nil {
			return domain.AllocationResult{}, err
		}
		if !domain.CivilDate(b.ExpiryDate).After(today) {
			continue
		}
		eligible = append(eligible, b)
	}
	slices.SortStableFunc(eligible, compareFEFO)

	// 4. Consumo guloso
	result := domain.AllocationResult{ProductID: productID, Lines: []domain.AllocationLine{}}
	remaining := quantityNeeded
	for _, b := range eligible {
		if remaining == 0 {
			break
		}
		taken := min(b.QuantityOnHand, remaining)
		if taken == 0 {
			continue
		}
		days := daysBetween(today, b.ExpiryDate)
		result.Lines = append(result.Lines, domain.AllocationLine{
			BatchID:       b.BatchID,
			ProductID:     b.ProductID,
			QuantityTaken: taken,
			ExpiryDate:    b.ExpiryDate,
			DaysToExpiry:  days,
			AlertLevel:    s.alertLevel(days),
		})
		result.TotalAllocated += taken
		remaining -= taken
	}

	if remaining < 0 || result.TotalAllocated > quantityNeeded {
		return domain.AllocationResult{}, apperror.NewInvariantError(
			fmt.Sprintf("alocação de %d excede o solicitado (%d)", result.TotalAllocated, quantityNeeded))
	}

	result.FullyAllocated = result.TotalAllocated >= quantityNeeded
	result.Shortage = quantityNeeded - result.TotalAllocated

	s.logger.Info("Alocação FEFO concluída.", map[string]interface{}{
		"product_id":      productID,
		"location_id":     locationID,
		"batches":         len(result.Lines),
		"total_allocated": result.TotalAllocated,
		"shortage":        result.Shortage,
	})
	return result, nil
}

// ExpiryDashboard classifica todos os lotes (opcionalmente de um local) por faixa de alerta.
// O valor em risco soma as faixas CRITICAL e WARNING.
func (s *Service) ExpiryDashboard(ctx context.Context, locationID string) (domain.DashboardResult, error) {
	s.logger.Debug("Montando painel de validade.", map[string]interface{}{"location_id": locationID})

	batches, err := s.source.AllBatches(ctx, strings.TrimSpace(locationID))
	if err != nil {
		s.logger.Error("Falha ao buscar lotes para o painel.", err)
		return domain.DashboardResult{}, apperror.Propagate("Falha interna ao montar painel de validade.", err)
	}

	today := s.today()
	result := domain.DashboardResult{
		TotalValueAtRisk: decimal.Zero,
		Items:            make([]domain.DashboardItem, 0, len(batches)),
	}

	for _, b := range batches {
		if err := checkBatch(b); err != nil {
			return domain.DashboardResult{}, err
		}
		days := daysBetween(today, b.ExpiryDate)
		level := s.alertLevel(days)
		value := b.UnitValue.Mul(decimal.NewFromInt(int64(b.QuantityOnHand)))

		switch level {
		case domain.AlertCritical:
			result.CriticalBatches++
			result.TotalValueAtRisk = result.TotalValueAtRisk.Add(value)
		case domain.AlertWarning:
			result.WarningBatches++
			result.TotalValueAtRisk = result.TotalValueAtRisk.Add(value)
		case domain.AlertAttention:
			result.AttentionBatches++
		default:
			result.OKBatches++
		}

		result.Items = append(result.Items, domain.DashboardItem{
			BatchID:         b.BatchID,
			ProductID:       b.ProductID,
			LocationID:      b.LocationID,
			Quantity:        b.QuantityOnHand,
			ManufactureDate: b.ManufactureDate,
			ExpiryDate:      b.ExpiryDate,
			DaysToExpiry:    days,
			AlertLevel:      level,
			Value:           value,
		})
	}

	slices.SortStableFunc(result.Items, func(a, b domain.DashboardItem) int {
		if c := cmp.Compare(a.DaysToExpiry, b.DaysToExpiry); c != 0 {
			return c
		}
		return cmp.Compare(a.BatchID, b.BatchID)
	})

	s.logger.Info("Painel de validade montado.", map[string]interface{}{
		"location_id": locationID,
		"critical":    result.CriticalBatches,
		"warning":     result.WarningBatches,
		"attention":   result.AttentionBatches,
		"at_risk":     result.TotalValueAtRisk.StringFixed(2),
	})
	return result, nil
}

// InventoryStats resume o estoque por produto e lote.
// Lotes vencidos não entram no valor nem no estoque alocável.
func (s *Service) InventoryStats(ctx context.Context, locationID string) (domain.InventoryStats, error) {
	batches, err := s.source.AllBatches(ctx, strings.TrimSpace(locationID))
	if err != nil {
		s.logger.Error("Falha ao buscar lotes para as estatísticas.", err)
		return domain.InventoryStats{}, apperror.Propagate("Falha interna ao montar estatísticas de estoque.", err)
	}

	today := s.today()
	stats := domain.InventoryStats{TotalBatches: len(batches), TotalValue: decimal.Zero}
	sellable := make(map[string]int)

	for _, b := range batches {
		if err := checkBatch(b); err != nil {
			return domain.InventoryStats{}, err
		}
		if _, seen := sellable[b.ProductID]; !seen {
			sellable[b.ProductID] = 0
		}

		days := daysBetween(today, b.ExpiryDate)
		if days <= 0 {
			if b.QuantityOnHand > 0 {
				stats.ExpiredBatches++
			}
			continue
		}

		sellable[b.ProductID] += b.QuantityOnHand
		stats.TotalValue = stats.TotalValue.Add(b.UnitValue.Mul(decimal.NewFromInt(int64(b.QuantityOnHand))))
		if b.QuantityOnHand > 0 && s.alertLevel(days) == domain.AlertCritical {
			stats.ExpiringSoon++
		}
	}

	stats.TotalProducts = len(sellable)
	for _, qty := range sellable {
		switch {
		case qty == 0:
			stats.OutOfStockItems++
		case qty < s.policy.LowStockQuantity:
			stats.LowStockItems++
		}
	}

	s.logger.Info("Estatísticas de estoque montadas.", map[string]interface{}{
		"location_id":  locationID,
		"products":     stats.TotalProducts,
		"batches":      stats.TotalBatches,
		"out_of_stock": stats.OutOfStockItems,
	})
	return stats, nil
}

// compareFEFO ordena por data de validade e, em empate, por batch_id.
func compareFEFO(a, b domain.Batch) int {
	if c := domain.CivilDate(a.ExpiryDate).Compare(domain.CivilDate(b.ExpiryDate)); c != 0 {
		return c
	}
	return cmp.Compare(a.BatchID, b.BatchID)
}

// checkBatch rejeita registros que violam as invariantes de Batch.
func checkBatch(b domain.Batch) error {
	if b.QuantityOnHand < 0 {
		return apperror.NewInvariantError(fmt.Sprintf("lote %s com quantidade negativa (%d)", b.BatchID, b.QuantityOnHand))
	}
	if !b.ManufactureDate.IsZero() && !b.ExpiryDate.After(b.ManufactureDate) {
		return apperror.NewInvariantError(fmt.Sprintf("lote %s vence antes da fabricação", b.BatchID))
	}
	return nil
}

// daysBetween devolve a diferença em dias civis de from até to.
func daysBetween(from, to time.Time) int {
	return int(domain.CivilDate(to).Sub(domain.CivilDate(from)).Hours() / 24)
}
