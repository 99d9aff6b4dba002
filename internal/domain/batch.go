package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertLevel classifica um lote pela proximidade do vencimento.
type AlertLevel string

const (
	AlertCritical  AlertLevel = "CRITICAL"
	AlertWarning   AlertLevel = "WARNING"
	AlertAttention AlertLevel = "ATTENTION"
	AlertOK        AlertLevel = "OK"
)

// Batch representa um lote de produto em um local, com datas de fabricação e validade.
// Invariante: ExpiryDate > ManufactureDate.
type Batch struct {
	BatchID         string          `json:"batch_id"`
	ProductID       string          `json:"product_id"`
	LocationID      string          `json:"location_id"`
	QuantityOnHand  int             `json:"quantity_on_hand"`
	ManufactureDate time.Time       `json:"manufacture_date"`
	ExpiryDate      time.Time       `json:"expiry_date"`
	UnitValue       decimal.Decimal `json:"unit_value"` // Valor declarado por unidade (dashboard de risco)
	Version         int             `json:"version"`    // Controle de Concorrência Otimista (OCC)
}

// AllocationLine é a quantidade retirada de um lote em uma alocação FEFO.
type AllocationLine struct {
	BatchID       string     `json:"batch_id"`
	ProductID     string     `json:"product_id"`
	QuantityTaken int        `json:"quantity_taken"`
	ExpiryDate    time.Time  `json:"expiry_date"`
	DaysToExpiry  int        `json:"days_to_expiry"`
	AlertLevel    AlertLevel `json:"alert_level"`
}

// AllocationResult é o plano de alocação devolvido ao chamador. Nenhuma quantidade é baixada.
type AllocationResult struct {
	ProductID      string           `json:"product_id"`
	Lines          []AllocationLine `json:"batches_selected"`
	TotalAllocated int              `json:"total_quantity"`
	FullyAllocated bool             `json:"fully_allocated"`
	Shortage       int              `json:"shortage"`
}

// DashboardItem é um lote classificado no painel de validade.
type DashboardItem struct {
	BatchID         string          `json:"batch_id"`
	ProductID       string          `json:"product_id"`
	LocationID      string          `json:"location_id"`
	Quantity        int             `json:"quantity"`
	ManufactureDate time.Time       `json:"manufacturing_date"`
	ExpiryDate      time.Time       `json:"expiry_date"`
	DaysToExpiry    int             `json:"days_to_expiry"`
	AlertLevel      AlertLevel      `json:"alert_level"`
	Value           decimal.Decimal `json:"value"`
}

// DashboardResult agrega os lotes por faixa de alerta.
type DashboardResult struct {
	CriticalBatches  int             `json:"critical_batches"`
	WarningBatches   int             `json:"warning_batches"`
	AttentionBatches int             `json:"attention_batches"`
	OKBatches        int             `json:"ok_batches"`
	TotalValueAtRisk decimal.Decimal `json:"total_value_at_risk"`
	Items            []DashboardItem `json:"items"`
}

// StockAdjustmentRequest é o payload de ajuste de quantidade de um lote
// (contagem cíclica, avaria, baixa de um plano de alocação).
type StockAdjustmentRequest struct {
	BatchID    string `json:"batch_id"`
	LocationID string `json:"location_id"`
	Delta      int    `json:"quantity_change"` // Positivo para entrada, negativo para saída
	Reason     string `json:"reason"`
}

// FEFORequest é o payload de seleção de lotes FEFO.
type FEFORequest struct {
	ProductID      string `json:"product_id"`
	LocationID     string `json:"location_id"`
	QuantityNeeded int    `json:"quantity_needed"`
}

// InventoryStats são os indicadores do painel de estoque.
type InventoryStats struct {
	TotalProducts   int             `json:"total_products"`
	TotalBatches    int             `json:"total_batches"`
	TotalValue      decimal.Decimal `json:"total_value"`
	LowStockItems   int             `json:"low_stock_items"`
	OutOfStockItems int             `json:"out_of_stock_items"`
	ExpiringSoon    int             `json:"expiring_soon"`
	ExpiredBatches  int             `json:"expired_batches"`
}
