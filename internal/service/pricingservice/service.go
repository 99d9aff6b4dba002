package pricingservice

import (
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

var hundred = decimal.NewFromInt(100)

// facts reúne tudo o que a cascata precisa, lido uma única vez do PricingSource.
type facts struct {
	basePrice    decimal.Decimal
	tier         domain.CustomerTier
	tierDiscount decimal.Decimal
	override     decimal.Decimal
	hasOverride  bool
	volumePct    decimal.Decimal
	promoPct     decimal.Decimal
}

// outcome é o resultado de uma regra: preço final e percentual aplicado.
type outcome struct {
	rule       domain.AppliedRule
	finalPrice decimal.Decimal
	percentage decimal.Decimal
}

// Service implementa o resolvedor de preços por cascata de prioridade.
type Service struct {
	source domain.PricingSource
	policy domain.Policy
	logger logger.Logger
	now    func() time.Time
	rules  cascade.Cascade[facts, outcome]
}

// NewService cria e retorna uma nova instância do Serviço de Preços.
func NewService(source domain.PricingSource, policy domain.Policy, log logger.Logger) *Service {
	return &Service{
		source: source,
		policy: policy,
		logger: log,
		now:    time.Now,
		rules:  priceRules(),
	}
}

// WithClock substitui o relógio usado para avaliar promoções ativas.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// priceRules é a cascata de preços: a primeira regra aplicável vence, sem combinação.
func priceRules() cascade.Cascade[facts, outcome] {
	return cascade.Cascade[facts, outcome]{
		{
			Name: string(domain.RuleCustomerOverride),
			Apply: func(f facts) (outcome, bool) {
				if !f.hasOverride {
					return outcome{}, false
				}
				pct := f.basePrice.Sub(f.override).Div(f.basePrice).Mul(hundred)
				return outcome{rule: domain.RuleCustomerOverride, finalPrice: f.override, percentage: pct}, true
			},
		},
		{
			Name: string(domain.RuleTierPricing),
			Apply: func(f facts) (outcome, bool) {
				if !f.tierDiscount.IsPositive() {
					return outcome{}, false
				}
				return outcome{rule: domain.RuleTierPricing, finalPrice: applyDiscount(f.basePrice, f.tierDiscount), percentage: f.tierDiscount}, true
			},
		},
		{
			Name: "VOLUME_OR_PROMOTION",
			Apply: func(f facts) (outcome, bool) {
				best := decimal.Max(f.volumePct, f.promoPct)
				if !best.IsPositive() {
					return outcome{}, false
				}
				// Em empate, o desconto por volume vence.
				rule := domain.RulePromotionalDiscount
				if f.volumePct.GreaterThanOrEqual(f.promoPct) {
					rule = domain.RuleVolumeDiscount
				}
				return outcome{rule: rule, finalPrice: applyDiscount(f.basePrice, best), percentage: best}, true
			},
		},
		{
			Name: string(domain.RuleBasePrice),
			Apply: func(f facts) (outcome, bool) {
				return outcome{rule: domain.RuleBasePrice, finalPrice: f.basePrice, percentage: decimal.Zero}, true
			},
		},
	}
}

// ResolvePrice devolve o preço unitário aplicável ao produto, cliente e quantidade.
func (s *Service) ResolvePrice(ctx context.Context, pc domain.PriceContext) (domain.PriceDecision, error) {
	s.logger.Debug("Iniciando resolução de preço.", map[string]interface{}{
		"product_id":  pc.ProductID,
		"customer_id": pc.CustomerID,
		"location_id": pc.LocationID,
		"quantity":    pc.Quantity,
	})

	// 1. Validação da requisição
	if err := validateContext(pc); err != nil {
		s.logger.Warn("Consulta de preço inválida.", map[string]interface{}{"error": err.Error()})
		return domain.PriceDecision{}, err
	}

	// 2. Leitura dos dados de referência
	f, err := s.loadFacts(ctx, pc)
	if err != nil {
		return domain.PriceDecision{}, err
	}

	// 3. Avaliação da cascata
	out, _, ok := s.rules.Evaluate(f)
	if !ok {
		return domain.PriceDecision{}, apperror.NewInvariantError("nenhuma regra de preço aplicável")
	}
	if out.rule != domain.RuleCustomerOverride && out.finalPrice.GreaterThan(f.basePrice) {
		return domain.PriceDecision{}, apperror.NewInvariantError(
			fmt.Sprintf("regra %s aumentou o preço base de %s para %s", out.rule, f.basePrice, out.finalPrice))
	}

	decision := buildDecision(pc, f, out)
	s.logger.Info("Preço resolvido.", map[string]interface{}{
		"product_id":   pc.ProductID,
		"customer_id":  pc.CustomerID,
		"pricing_rule": decision.AppliedRule,
		"final_price":  decision.FinalPrice.String(),
	})
	return decision, nil
}

// loadFacts faz no máximo uma leitura por dado necessário.
func (s *Service) loadFacts(ctx context.Context, pc domain.PriceContext) (facts, error) {
	base, err := s.source.BasePrice(ctx, pc.ProductID, pc.LocationID)
	if err != nil {
		if apperror.IsNotFound(err) {
			s.logger.Warn("Preço base não encontrado.", map[string]interface{}{"product_id": pc.ProductID, "location_id": pc.LocationID})
			return facts{}, apperror.NewPriceNotFoundError(pc.ProductID, pc.LocationID, err)
		}
		s.logger.Error("Falha ao buscar preço base.", err)
		return facts{}, apperror.Propagate("Falha interna ao buscar preço base.", err)
	}
	if !base.IsPositive() {
		return facts{}, apperror.NewInvariantError(fmt.Sprintf("preço base não positivo para o produto %s", pc.ProductID))
	}

	tier, err := s.source.CustomerTier(ctx, pc.CustomerID)
	if err != nil {
		s.logger.Error("Falha ao buscar tier do cliente.", err)
		return facts{}, apperror.Propagate("Falha interna ao buscar tier do cliente.", err)
	}

	override, hasOverride, err := s.source.CustomerOverride(ctx, pc.ProductID, pc.CustomerID)
	if err != nil {
		s.logger.Error("Falha ao buscar preço negociado.", err)
		return facts{}, apperror.Propagate("Falha interna ao buscar preço negociado.", err)
	}

	breaks, err := s.source.VolumeBreaks(ctx, pc.ProductID)
	if err != nil {
		s.logger.Error("Falha ao buscar tabela de volume.", err)
		return facts{}, apperror.Propagate("Falha interna ao buscar tabela de volume.", err)
	}

	now := s.now()
	promos, err := s.source.ActivePromotions(ctx, pc.ProductID, pc.LocationID, now)
	if err != nil {
		s.logger.Error("Falha ao buscar promoções.", err)
		return facts{}, apperror.Propagate("Falha interna ao buscar promoções.", err)
	}

	return facts{
		basePrice:    base,
		tier:         tier,
		tierDiscount: s.policy.TierDiscount(tier),
		override:     override,
		hasOverride:  hasOverride,
		volumePct:    VolumeDiscount(breaks, pc.Quantity),
		promoPct:     PromotionalDiscount(promos, now),
	}, nil
}

// VolumeDiscount devolve o percentual da maior faixa atingida pela quantidade.
func VolumeDiscount(breaks []domain.VolumeBreak, quantity int) decimal.Decimal {
	sorted := slices.Clone(breaks)
	slices.SortFunc(sorted, func(a, b domain.VolumeBreak) int { return b.MinQuantity - a.MinQuantity })
	for _, vb := range sorted {
		if quantity >= vb.MinQuantity {
			return vb.DiscountPercentage
		}
	}
	return decimal.Zero
}

// PromotionalDiscount devolve o maior percentual entre as promoções vigentes.
func PromotionalDiscount(promos []domain.Promotion, now time.Time) decimal.Decimal {
	best := decimal.Zero
	for _, p := range promos {
		if p.ActiveAt(now) && p.DiscountPercentage.GreaterThan(best) {
			best = p.DiscountPercentage
		}
	}
	return best
}

// ResolveBulk resolve o preço de vários itens para o mesmo cliente e local.
// Qualquer falha interrompe a cotação inteira.
func (s *Service) ResolveBulk(ctx context.Context, req domain.BulkPriceRequest) (domain.BulkPriceResult, error) {
	if len(req.Items) == 0 {
		return domain.BulkPriceResult{}, apperror.NewValidationError("A cotação deve conter ao menos um item.")
	}

	result := domain.BulkPriceResult{
		CustomerID:   req.CustomerID,
		Items:        make([]domain.PriceDecision, 0, len(req.Items)),
		TotalAmount:  decimal.Zero,
		TotalSavings: decimal.Zero,
	}
	for i, item := range req.Items {
		decision, err := s.ResolvePrice(ctx, domain.PriceContext{
			ProductID:  item.ProductID,
			CustomerID: req.CustomerID,
			LocationID: req.LocationID,
			Quantity:   item.Quantity,
		})
		if err != nil {
			return domain.BulkPriceResult{}, fmt.Errorf("item %d (%s): %w", i+1, item.ProductID, err)
		}
		result.Items = append(result.Items, decision)
		result.TotalAmount = result.TotalAmount.Add(decision.TotalAmount)
		result.TotalSavings = result.TotalSavings.Add(decision.Savings)
	}

	s.logger.Info("Cotação em lote concluída.", map[string]interface{}{
		"customer_id":  req.CustomerID,
		"items":        len(result.Items),
		"total_amount": result.TotalAmount.String(),
	})
	return result, nil
}

// TierDiscounts devolve a tabela de descontos por tier, do maior para o menor.
func (s *Service) TierDiscounts() []domain.TierDiscount {
	tiers := domain.AllTiers()
	out := make([]domain.TierDiscount, 0, len(tiers))
	for _, tier := range tiers {
		out = append(out, domain.TierDiscount{Tier: tier, DiscountPercentage: s.policy.TierDiscount(tier)})
	}
	return out
}

// CustomerTier devolve a classificação atual do cliente e o desconto correspondente.
func (s *Service) CustomerTier(ctx context.Context, customerID string) (domain.CustomerTierInfo, error) {
	if strings.TrimSpace(customerID) == "" {
		return domain.CustomerTierInfo{}, apperror.NewValidationError("O ID do cliente é obrigatório.")
	}
	tier, err := s.source.CustomerTier(ctx, customerID)
	if err != nil {
		return domain.CustomerTierInfo{}, apperror.Propagate("Falha interna ao buscar tier do cliente.", err)
	}
	return domain.CustomerTierInfo{
		CustomerID:         customerID,
		Tier:               tier,
		DiscountPercentage: s.policy.TierDiscount(tier),
	}, nil
}

func validateContext(pc domain.PriceContext) error {
	if strings.TrimSpace(pc.ProductID) == "" || strings.TrimSpace(pc.CustomerID) == "" || strings.TrimSpace(pc.LocationID) == "" {
		return apperror.NewValidationError("Produto, cliente e local são obrigatórios.")
	}
	if pc.Quantity <= 0 {
		return apperror.NewValidationError("A quantidade deve ser positiva.")
	}
	return nil
}

func applyDiscount(base, pct decimal.Decimal) decimal.Decimal {
	return base.Mul(decimal.NewFromInt(1).Sub(pct.Div(hundred)))
}

func buildDecision(pc domain.PriceContext, f facts, out outcome) domain.PriceDecision {
	qty := decimal.NewFromInt(int64(pc.Quantity))
	unitDiff := f.basePrice.Sub(out.finalPrice)

	decision := domain.PriceDecision{
		ProductID:    pc.ProductID,
		CustomerID:   pc.CustomerID,
		Quantity:     pc.Quantity,
		BasePrice:    f.basePrice,
		FinalPrice:   out.finalPrice,
		TotalAmount:  out.finalPrice.Mul(qty),
		AppliedRule:  out.rule,
		CustomerTier: f.tier,
		Savings:      unitDiff.Mul(qty),
	}
	// O override pode reportar percentual negativo (sobrepreço); as demais regras só reportam desconto.
	if !out.percentage.IsZero() {
		pct := out.percentage.Round(4)
		decision.DiscountPercentage = &pct
	}
	if unitDiff.IsPositive() {
		decision.DiscountAmount = &unitDiff
	}
	return decision
}
