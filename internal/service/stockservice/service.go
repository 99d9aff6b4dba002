package stockservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gopharma/internal/domain"
	apperror "gopharma/internal/errors"
	"gopharma/internal/pkg/logger"
)

// Service aplica ajustes de quantidade em lotes (contagem, avaria, baixa de um plano FEFO).
type Service struct {
	writer domain.BatchStockWriter
	logger logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Estoque.
func NewService(writer domain.BatchStockWriter, logger logger.Logger) *Service {
	return &Service{writer: writer, logger: logger}
}

// AdjustStock aplica um ajuste à quantidade de um lote em um local.
func (s *Service) AdjustStock(ctx context.Context, adjustment domain.StockAdjustmentRequest) (domain.Batch, error) {
	s.logger.Debug("Iniciando ajuste de estoque no serviço.", map[string]interface{}{
		"batch_id":    adjustment.BatchID,
		"location_id": adjustment.LocationID,
		"delta":       adjustment.Delta,
	})

	if strings.TrimSpace(adjustment.BatchID) == "" || strings.TrimSpace(adjustment.LocationID) == "" {
		return domain.Batch{}, apperror.NewValidationError("Lote e local são obrigatórios.")
	}
	if adjustment.Delta == 0 {
		return domain.Batch{}, apperror.NewValidationError("O ajuste de estoque (delta) não pode ser zero.")
	}
	if strings.TrimSpace(adjustment.Reason) == "" {
		return domain.Batch{}, apperror.NewValidationError("O motivo do ajuste é obrigatório.")
	}

	batch, err := s.writer.AdjustBatchQuantity(ctx, adjustment)
	if err != nil {
		s.logger.Error("Falha ao ajustar estoque no repositório.", err)
		var conflictErr *apperror.ConflictError
		if errors.As(err, &conflictErr) {
			return domain.Batch{}, apperror.NewConflictError(fmt.Sprintf("Falha de concorrência: %s", conflictErr.Msg))
		}
		var validationErr *apperror.ValidationError
		if errors.As(err, &validationErr) {
			return domain.Batch{}, apperror.NewValidationError(fmt.Sprintf("Validação do estoque: %s", validationErr.Msg))
		}
		return domain.Batch{}, apperror.Propagate("Falha interna ao ajustar estoque.", err)
	}

	if batch.QuantityOnHand < 0 {
		return domain.Batch{}, apperror.NewInvariantError(fmt.Sprintf("lote %s com quantidade negativa após ajuste", batch.BatchID))
	}

	s.logger.Info("Estoque ajustado com sucesso.", map[string]interface{}{
		"batch_id":     batch.BatchID,
		"location_id":  batch.LocationID,
		"reason":       adjustment.Reason,
		"new_quantity": batch.QuantityOnHand,
		"new_version":  batch.Version,
	})
	return batch, nil
}
