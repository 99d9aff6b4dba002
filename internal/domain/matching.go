package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MatchStatus é o estado final da conciliação de três vias.
type MatchStatus string

const (
	MatchAutoApproved   MatchStatus = "AUTO_APPROVED"
	MatchRequiresReview MatchStatus = "REQUIRES_REVIEW"
	// MatchRejected é reservado para a ação manual; o motor nunca o produz.
	MatchRejected MatchStatus = "REJECTED"
)

// VarianceType classifica uma divergência entre documentos.
type VarianceType string

const (
	VarianceQuantity      VarianceType = "QUANTITY"
	VariancePrice         VarianceType = "PRICE"
	VarianceUnorderedItem VarianceType = "UNORDERED_ITEM"
)

// Severity é a gravidade de uma divergência.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// DocumentLine é uma linha de PO, GRN ou fatura, indexada por produto.
// UnitPrice é zero nas linhas de GRN.
type DocumentLine struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	BatchID   string          `json:"batch_id,omitempty"`
}

// MatchRequest identifica os três documentos a conciliar.
type MatchRequest struct {
	PurchaseOrderID string `json:"purchase_order_id"`
	GoodsReceiptID  string `json:"goods_receipt_id"`
	InvoiceID       string `json:"invoice_id"`
}

// MatchLine é uma divergência detectada. Apenas os campos relevantes ao tipo são preenchidos.
type MatchLine struct {
	Type               VarianceType     `json:"type"`
	ProductID          string           `json:"product_id"`
	GRNQuantity        *int             `json:"grn_quantity,omitempty"`
	InvoiceQuantity    *int             `json:"invoice_quantity,omitempty"`
	POPrice            *decimal.Decimal `json:"po_price,omitempty"`
	InvoicePrice       *decimal.Decimal `json:"invoice_price,omitempty"`
	VarianceAmount     decimal.Decimal  `json:"variance_amount"`
	VariancePercentage decimal.Decimal  `json:"variance_percentage"`
	Severity           Severity         `json:"severity"`
}

// MatchDecision é a decisão de aprovação da fatura.
type MatchDecision struct {
	Status              MatchStatus     `json:"status"`
	Variances           []MatchLine     `json:"variances"`
	TotalVarianceAmount decimal.Decimal `json:"total_variance_amount"`
	Recommendation      string          `json:"recommendation"`
	AutoApproved        bool            `json:"auto_approved"`
	MatchedAt           time.Time       `json:"matched_at"`
	MatchedBy           string          `json:"matched_by,omitempty"`
}
