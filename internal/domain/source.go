package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// BatchSource fornece os lotes lidos pelo alocador FEFO e pelo painel de validade.
type BatchSource interface {
	// BatchesFor devolve todos os lotes de um produto em um local (inclusive vencidos).
	BatchesFor(ctx context.Context, productID, locationID string) ([]Batch, error)
	// AllBatches devolve todos os lotes; locationID vazio significa todos os locais.
	AllBatches(ctx context.Context, locationID string) ([]Batch, error)
}

// PricingSource fornece os dados de referência da cascata de preços.
type PricingSource interface {
	// BasePrice devolve NotFoundError quando não há preço para o produto no local.
	BasePrice(ctx context.Context, productID, locationID string) (decimal.Decimal, error)
	// CustomerTier devolve NotFoundError para clientes inexistentes.
	CustomerTier(ctx context.Context, customerID string) (CustomerTier, error)
	// CustomerOverride devolve ok=false quando não há preço negociado.
	CustomerOverride(ctx context.Context, productID, customerID string) (price decimal.Decimal, ok bool, err error)
	// VolumeBreaks devolve a tabela de volume aplicável ao produto (vazia = sem desconto por volume).
	VolumeBreaks(ctx context.Context, productID string) ([]VolumeBreak, error)
	// ActivePromotions devolve as promoções ativas no instante informado.
	ActivePromotions(ctx context.Context, productID, locationID string, at time.Time) ([]Promotion, error)
}

// DocumentSource fornece as linhas de PO, GRN e fatura. Documentos ausentes resultam em NotFoundError.
type DocumentSource interface {
	PurchaseOrderLines(ctx context.Context, purchaseOrderID string) ([]DocumentLine, error)
	GoodsReceiptLines(ctx context.Context, goodsReceiptID string) ([]DocumentLine, error)
	InvoiceLines(ctx context.Context, invoiceID string) ([]DocumentLine, error)
}

// RecordSource é a capacidade completa de leitura consumida pelos motores de decisão.
type RecordSource interface {
	BatchSource
	PricingSource
	DocumentSource
}

// BatchStockWriter persiste ajustes de quantidade de lotes (fora dos motores de decisão).
type BatchStockWriter interface {
	AdjustBatchQuantity(ctx context.Context, adjustment StockAdjustmentRequest) (Batch, error)
}
