package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomerTier é a classificação do cliente que define o desconto de tier.
type CustomerTier string

const (
	TierPlatinum CustomerTier = "PLATINUM"
	TierGold     CustomerTier = "GOLD"
	TierSilver   CustomerTier = "SILVER"
	TierBronze   CustomerTier = "BRONZE"
	TierRegular  CustomerTier = "REGULAR"
)

// AllTiers lista os tiers do maior para o menor desconto.
func AllTiers() []CustomerTier {
	return []CustomerTier{TierPlatinum, TierGold, TierSilver, TierBronze, TierRegular}
}

// IsValid verifica se o tier é conhecido.
func (t CustomerTier) IsValid() bool {
	switch t {
	case TierPlatinum, TierGold, TierSilver, TierBronze, TierRegular:
		return true
	}
	return false
}

// AppliedRule identifica a regra da cascata de preços que venceu.
type AppliedRule string

const (
	RuleCustomerOverride    AppliedRule = "CUSTOMER_OVERRIDE"
	RuleTierPricing         AppliedRule = "TIER_PRICING"
	RuleVolumeDiscount      AppliedRule = "VOLUME_DISCOUNT"
	RulePromotionalDiscount AppliedRule = "PROMOTIONAL_DISCOUNT"
	RuleBasePrice           AppliedRule = "BASE_PRICE"
)

// PriceContext identifica uma consulta de preço.
type PriceContext struct {
	ProductID  string `json:"product_id"`
	CustomerID string `json:"customer_id"`
	LocationID string `json:"location_id"`
	Quantity   int    `json:"quantity"`
}

// PriceDecision é o resultado auditável da cascata de preços.
type PriceDecision struct {
	ProductID          string           `json:"product_id"`
	CustomerID         string           `json:"customer_id"`
	Quantity           int              `json:"quantity"`
	BasePrice          decimal.Decimal  `json:"base_price"`
	FinalPrice         decimal.Decimal  `json:"final_price"`
	TotalAmount        decimal.Decimal  `json:"total_amount"`
	AppliedRule        AppliedRule      `json:"pricing_rule"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage,omitempty"`
	DiscountAmount     *decimal.Decimal `json:"discount_amount,omitempty"`
	CustomerTier       CustomerTier     `json:"customer_tier"`
	Savings            decimal.Decimal  `json:"savings"`
}

// VolumeBreak é uma faixa da tabela de desconto por volume.
type VolumeBreak struct {
	MinQuantity        int             `json:"min_quantity"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
}

// Promotion é uma campanha promocional para um produto em um local.
type Promotion struct {
	PromotionID        string          `json:"promotion_id"`
	ProductID          string          `json:"product_id"`
	LocationID         string          `json:"location_id"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	ValidFrom          time.Time       `json:"valid_from"`
	ValidTo            time.Time       `json:"valid_to"`
	Active             bool            `json:"active"`
}

// ActiveAt informa se a promoção vale no instante informado (janela inclusiva).
func (p Promotion) ActiveAt(now time.Time) bool {
	return p.Active && !now.Before(p.ValidFrom) && !now.After(p.ValidTo)
}

// BulkPriceItem é um item de uma cotação em lote.
type BulkPriceItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// BulkPriceRequest é o payload de cálculo de preços em lote.
type BulkPriceRequest struct {
	CustomerID string          `json:"customer_id"`
	LocationID string          `json:"location_id"`
	Items      []BulkPriceItem `json:"items"`
}

// BulkPriceResult agrega as decisões de uma cotação em lote.
type BulkPriceResult struct {
	CustomerID   string          `json:"customer_id"`
	Items        []PriceDecision `json:"items"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	TotalSavings decimal.Decimal `json:"total_savings"`
}

// TierDiscount descreve o desconto associado a um tier.
type TierDiscount struct {
	Tier               CustomerTier    `json:"tier"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
}

// CustomerTierInfo é a classificação atual de um cliente.
type CustomerTierInfo struct {
	CustomerID         string          `json:"customer_id"`
	Tier               CustomerTier    `json:"tier"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
}
