package matchingservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gopharma/internal/domain"
	apperror "gopharma/internal/errors"
	"gopharma/internal/pkg/cascade"
	"gopharma/internal/pkg/logger"
)

var hundred = decimal.NewFromInt(100)

// Service implementa a conciliação de três vias entre PO, GRN e fatura.
type Service struct {
	source    domain.DocumentSource
	policy    domain.Policy
	logger    logger.Logger
	now       func() time.Time
	severity  cascade.Cascade[decimal.Decimal, domain.Severity]
	decisions cascade.Cascade[[]domain.MatchLine, domain.MatchStatus]
}

// NewService cria e retorna uma nova instância do Serviço de Conciliação.
func NewService(source domain.DocumentSource, policy domain.Policy, log logger.Logger) *Service {
	return &Service{
		source:    source,
		policy:    policy,
		logger:    log,
		now:       time.Now,
		severity:  SeverityCascade(policy),
		decisions: DecisionCascade(policy),
	}
}

// WithClock substitui o relógio usado em MatchedAt.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// SeverityCascade classifica o valor absoluto de uma divergência, do maior limiar para o menor.
func SeverityCascade(policy domain.Policy) cascade.Cascade[decimal.Decimal, domain.Severity] {
	return cascade.Cascade[decimal.Decimal, domain.Severity]{
		{Name: string(domain.SeverityHigh), Apply: func(amount decimal.Decimal) (domain.Severity, bool) {
			return domain.SeverityHigh, amount.GreaterThanOrEqual(policy.HighVarianceAmount)
		}},
		{Name: string(domain.SeverityMedium), Apply: func(amount decimal.Decimal) (domain.Severity, bool) {
			return domain.SeverityMedium, amount.GreaterThanOrEqual(policy.MediumVarianceAmount)
		}},
		{Name: string(domain.SeverityLow), Apply: func(decimal.Decimal) (domain.Severity, bool) {
			return domain.SeverityLow, true
		}},
	}
}

// DecisionCascade decide o status a partir das divergências encontradas.
// REJECTED não faz parte da cascata: é reservado para a ação manual.
func DecisionCascade(policy domain.Policy) cascade.Cascade[[]domain.MatchLine, domain.MatchStatus] {
	return cascade.Cascade[[]domain.MatchLine, domain.MatchStatus]{
		{Name: "PERFECT_MATCH", Apply: func(lines []domain.MatchLine) (domain.MatchStatus, bool) {
			return domain.MatchAutoApproved, len(lines) == 0
		}},
		{Name: "WITHIN_TOLERANCE", Apply: func(lines []domain.MatchLine) (domain.MatchStatus, bool) {
			for _, l := range lines {
				if l.VariancePercentage.GreaterThan(policy.TolerancePercentage) {
					return "", false
				}
			}
			return domain.MatchAutoApproved, true
		}},
		{Name: "MANUAL_REVIEW", Apply: func([]domain.MatchLine) (domain.MatchStatus, bool) {
			return domain.MatchRequiresReview, true
		}},
	}
}

const percentScale = 4

// Match concilia os três documentos e devolve a decisão de aprovação.
// matchedBy é a identidade de quem solicitou (opcional).
func (s *Service) Match(ctx context.Context, req domain.MatchRequest, matchedBy string) (domain.MatchDecision, error) {
	s.logger.Debug("Iniciando conciliação de três vias.", map[string]interface{}{
		"purchase_order_id": req.PurchaseOrderID,
		"goods_receipt_id":  req.GoodsReceiptID,
		"invoice_id":        req.InvoiceID,
	})

	if strings.TrimSpace(req.PurchaseOrderID) == "" || strings.TrimSpace(req.GoodsReceiptID) == "" || strings.TrimSpace(req.InvoiceID) == "" {
		s.logger.Warn("Requisição de conciliação incompleta.", nil)
		return domain.MatchDecision{}, apperror.NewValidationError("PO, GRN e fatura são obrigatórios.")
	}

	// 1. Leitura dos documentos (uma leitura por documento)
	poLines, err := s.source.PurchaseOrderLines(ctx, req.PurchaseOrderID)
	if err != nil {
		s.logger.Error("Falha ao buscar o pedido de compra.", err)
		return domain.MatchDecision{}, apperror.Propagate("Falha interna ao buscar o pedido de compra.", err)
	}
	grnLines, err := s.source.GoodsReceiptLines(ctx, req.GoodsReceiptID)
	if err != nil {
		s.logger.Error("Falha ao buscar o recebimento.", err)
		return domain.MatchDecision{}, apperror.Propagate("Falha interna ao buscar o recebimento.", err)
	}
	invoiceLines, err := s.source.InvoiceLines(ctx, req.InvoiceID)
	if err != nil {
		s.logger.Error("Falha ao buscar a fatura.", err)
		return domain.MatchDecision{}, apperror.Propagate("Falha interna ao buscar a fatura.", err)
	}

	// 2. Passes de divergência, na ordem fixa quantidade, preço, itens não pedidos
	po := indexByProduct(poLines)
	grn := indexByProduct(grnLines)
	invoice := aggregateInOrder(invoiceLines)

	quantity, err := s.quantityVariances(invoice, grn)
	if err != nil {
		return domain.MatchDecision{}, err
	}
	variances := make([]domain.MatchLine, 0, len(invoice))
	variances = append(variances, quantity...)
	variances = append(variances, s.priceVariances(invoice, po)...)
	variances = append(variances, unorderedItems(invoice, po)...)

	// 3. Decisão
	total := decimal.Zero
	for _, v := range variances {
		if v.VarianceAmount.IsNegative() {
			return domain.MatchDecision{}, apperror.NewInvariantError(
				fmt.Sprintf("valor de divergência negativo para o produto %s", v.ProductID))
		}
		total = total.Add(v.VarianceAmount)
	}

	// A tolerância é comparada com o percentual exato; o valor exibido tem 4 casas.
	status, rule, _ := s.decisions.Evaluate(variances)
	for i := range variances {
		variances[i].VariancePercentage = variances[i].VariancePercentage.Round(percentScale)
	}
	decision := domain.MatchDecision{
		Status:              status,
		Variances:           variances,
		TotalVarianceAmount: total,
		Recommendation:      s.recommendation(rule, variances, total),
		AutoApproved:        status == domain.MatchAutoApproved,
		MatchedAt:           s.now().UTC(),
		MatchedBy:           matchedBy,
	}

	s.logger.Info("Conciliação concluída.", map[string]interface{}{
		"invoice_id":     req.InvoiceID,
		"status":         decision.Status,
		"variances":      len(variances),
		"total_variance": total.StringFixed(2),
	})
	return decision, nil
}

// invoiceLine é a linha de fatura consolidada por produto.
type invoiceLine struct {
	productID string
	quantity  int
	unitPrice decimal.Decimal
}

// aggregateInOrder consolida as linhas por produto mantendo a ordem da primeira ocorrência.
// O preço unitário é o da primeira linha do produto.
func aggregateInOrder(lines []domain.DocumentLine) []invoiceLine {
	out := make([]invoiceLine, 0, len(lines))
	pos := make(map[string]int, len(lines))
	for _, l := range lines {
		if i, ok := pos[l.ProductID]; ok {
			out[i].quantity += l.Quantity
			continue
		}
		pos[l.ProductID] = len(out)
		out = append(out, invoiceLine{productID: l.ProductID, quantity: l.Quantity, unitPrice: l.UnitPrice})
	}
	return out
}

// indexByProduct soma as quantidades por produto (um GRN pode ter vários lotes do mesmo produto).
func indexByProduct(lines []domain.DocumentLine) map[string]domain.DocumentLine {
	idx := make(map[string]domain.DocumentLine, len(lines))
	for _, l := range lines {
		if cur, ok := idx[l.ProductID]; ok {
			cur.Quantity += l.Quantity
			idx[l.ProductID] = cur
			continue
		}
		idx[l.ProductID] = l
	}
	return idx
}

func (s *Service) quantityVariances(invoice []invoiceLine, grn map[string]domain.DocumentLine) ([]domain.MatchLine, error) {
	var out []domain.MatchLine
	for _, inv := range invoice {
		received := grn[inv.productID].Quantity
		if received == inv.quantity {
			continue
		}
		diff := received - inv.quantity
		if diff < 0 {
			diff = -diff
		}
		denominator := max(received, inv.quantity)
		if denominator <= 0 {
			return nil, apperror.NewInvariantError(
				fmt.Sprintf("quantidades não positivas para o produto %s", inv.productID))
		}

		amount := decimal.NewFromInt(int64(diff)).Mul(inv.unitPrice).Abs()
		grnQty, invQty := received, inv.quantity
		out = append(out, domain.MatchLine{
			Type:               domain.VarianceQuantity,
			ProductID:          inv.productID,
			GRNQuantity:        &grnQty,
			InvoiceQuantity:    &invQty,
			VarianceAmount:     amount,
			VariancePercentage: decimal.NewFromInt(int64(diff)).Div(decimal.NewFromInt(int64(denominator))).Mul(hundred),
			Severity:           s.classify(amount),
		})
	}
	return out, nil
}

func (s *Service) priceVariances(invoice []invoiceLine, po map[string]domain.DocumentLine) []domain.MatchLine {
	var out []domain.MatchLine
	for _, inv := range invoice {
		ordered, ok := po[inv.productID]
		if !ok || !ordered.UnitPrice.IsPositive() || ordered.UnitPrice.Equal(inv.unitPrice) {
			continue
		}
		diff := ordered.UnitPrice.Sub(inv.unitPrice).Abs()
		amount := diff.Mul(decimal.NewFromInt(int64(inv.quantity))).Abs()
		poPrice, invPrice := ordered.UnitPrice, inv.unitPrice
		out = append(out, domain.MatchLine{
			Type:               domain.VariancePrice,
			ProductID:          inv.productID,
			POPrice:            &poPrice,
			InvoicePrice:       &invPrice,
			VarianceAmount:     amount,
			VariancePercentage: diff.Div(ordered.UnitPrice).Mul(hundred),
			Severity:           s.classify(amount),
		})
	}
	return out
}

// unorderedItems é sempre HIGH com 100%, sem passar pela classificação por valor.
func unorderedItems(invoice []invoiceLine, po map[string]domain.DocumentLine) []domain.MatchLine {
	var out []domain.MatchLine
	for _, inv := range invoice {
		if _, ok := po[inv.productID]; ok {
			continue
		}
		qty, price := inv.quantity, inv.unitPrice
		out = append(out, domain.MatchLine{
			Type:               domain.VarianceUnorderedItem,
			ProductID:          inv.productID,
			InvoiceQuantity:    &qty,
			InvoicePrice:       &price,
			VarianceAmount:     decimal.NewFromInt(int64(qty)).Mul(price).Abs(),
			VariancePercentage: hundred,
			Severity:           domain.SeverityHigh,
		})
	}
	return out
}

func (s *Service) classify(amount decimal.Decimal) domain.Severity {
	sev, _, _ := s.severity.Evaluate(amount.Abs())
	return sev
}

func (s *Service) recommendation(rule string, variances []domain.MatchLine, total decimal.Decimal) string {
	money := fmt.Sprintf("%s %s", s.policy.Currency, total.StringFixed(2))
	switch rule {
	case "PERFECT_MATCH":
		return "Conciliação perfeita: quantidades e preços conferem. Pode ser aprovada para pagamento."
	case "WITHIN_TOLERANCE":
		return fmt.Sprintf("Divergências dentro da tolerância de %s%%. Divergência total: %s. Aprovação automática.",
			s.policy.TolerancePercentage.String(), money)
	}

	var high, medium int
	for _, v := range variances {
		switch v.Severity {
		case domain.SeverityHigh:
			high++
		case domain.SeverityMedium:
			medium++
		}
	}
	var parts []string
	if high > 0 {
		parts = append(parts, fmt.Sprintf("%d divergência(s) de severidade HIGH", high))
	}
	if medium > 0 {
		parts = append(parts, fmt.Sprintf("%d divergência(s) de severidade MEDIUM", medium))
	}
	msg := "Revisão manual necessária."
	if len(parts) > 0 {
		msg += " " + strings.Join(parts, " e ") + "."
	}
	return fmt.Sprintf("%s Divergência total: %s. Investigue as diferenças antes de aprovar.", msg, money)
}
