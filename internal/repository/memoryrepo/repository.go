package memoryrepo

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"gopharma/internal/domain"
	"gopharma/internal/errors"
)

var (
	_ domain.RecordSource     = (*Repository)(nil)
	_ domain.BatchStockWriter = (*Repository)(nil)
)

type batchKey struct{ batchID, locationID string }
type pairKey struct{ a, b string }

// Repository é uma fonte de registros em memória, usada em testes e no modo RECORD_SOURCE=memory.
// Segue o mesmo contrato de erros do repositório PostgreSQL.
type Repository struct {
	mu sync.RWMutex

	batches        map[batchKey]domain.Batch
	batchOrder     []batchKey
	basePrices     map[pairKey]decimal.Decimal
	tiers          map[string]domain.CustomerTier
	overrides      map[pairKey]decimal.Decimal
	volumeBreaks   map[string][]domain.VolumeBreak
	globalBreaks   []domain.VolumeBreak
	promotions     []domain.Promotion
	purchaseOrders map[string][]domain.DocumentLine
	goodsReceipts  map[string][]domain.DocumentLine
	invoices       map[string][]domain.DocumentLine
}

// NewRepository cria um repositório vazio; globalBreaks é a tabela de volume padrão.
func NewRepository(globalBreaks []domain.VolumeBreak) *Repository {
	return &Repository{
		batches:        make(map[batchKey]domain.Batch),
		basePrices:     make(map[pairKey]decimal.Decimal),
		tiers:          make(map[string]domain.CustomerTier),
		overrides:      make(map[pairKey]decimal.Decimal),
		volumeBreaks:   make(map[string][]domain.VolumeBreak),
		globalBreaks:   slices.Clone(globalBreaks),
		purchaseOrders: make(map[string][]domain.DocumentLine),
		goodsReceipts:  make(map[string][]domain.DocumentLine),
		invoices:       make(map[string][]domain.DocumentLine),
	}
}

// --- Carga de dados ---

// AddBatch inclui ou substitui um lote. Versão zero vira 1.
func (r *Repository) AddBatch(b domain.Batch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.Version == 0 {
		b.Version = 1
	}
	k := batchKey{b.BatchID, b.LocationID}
	if _, exists := r.batches[k]; !exists {
		r.batchOrder = append(r.batchOrder, k)
	}
	r.batches[k] = b
}

// SetBasePrice define o preço base do produto no local.
func (r *Repository) SetBasePrice(productID, locationID string, price decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.basePrices[pairKey{productID, locationID}] = price
}

// SetCustomerTier cadastra o cliente com o tier informado.
func (r *Repository) SetCustomerTier(customerID string, tier domain.CustomerTier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tiers[customerID] = tier
}

// SetOverride define um preço negociado para o par (produto, cliente).
func (r *Repository) SetOverride(productID, customerID string, price decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[pairKey{productID, customerID}] = price
}

// SetVolumeBreaks define a tabela de volume específica do produto.
func (r *Repository) SetVolumeBreaks(productID string, breaks []domain.VolumeBreak) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.volumeBreaks[productID] = slices.Clone(breaks)
}

// AddPromotion inclui uma campanha promocional.
func (r *Repository) AddPromotion(p domain.Promotion) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.promotions = append(r.promotions, p)
}

// AddPurchaseOrder registra as linhas de um pedido de compra.
func (r *Repository) AddPurchaseOrder(id string, lines ...domain.DocumentLine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purchaseOrders[id] = slices.Clone(lines)
}

// AddGoodsReceipt registra as linhas de um recebimento.
func (r *Repository) AddGoodsReceipt(id string, lines ...domain.DocumentLine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.goodsReceipts[id] = slices.Clone(lines)
}

// AddInvoice registra as linhas de uma fatura.
func (r *Repository) AddInvoice(id string, lines ...domain.DocumentLine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invoices[id] = slices.Clone(lines)
}

// --- domain.BatchSource ---

func (r *Repository) BatchesFor(_ context.Context, productID, locationID string) ([]domain.Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []domain.Batch{}
	for _, k := range r.batchOrder {
		b := r.batches[k]
		if b.ProductID == productID && b.LocationID == locationID {
			out = append(out, b)
		}
	}
	if len(out) == 0 {
		return nil, errors.NewNotFoundError(fmt.Sprintf("Lotes do produto %s no local %s não encontrados.", productID, locationID))
	}
	return out, nil
}

func (r *Repository) AllBatches(_ context.Context, locationID string) ([]domain.Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []domain.Batch{}
	for _, k := range r.batchOrder {
		b := r.batches[k]
		if locationID == "" || b.LocationID == locationID {
			out = append(out, b)
		}
	}
	return out, nil
}

// --- domain.PricingSource ---

func (r *Repository) BasePrice(_ context.Context, productID, locationID string) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	price, ok := r.basePrices[pairKey{productID, locationID}]
	if !ok {
		return decimal.Zero, errors.NewNotFoundError(fmt.Sprintf("Preço base do produto %s no local %s não encontrado.", productID, locationID))
	}
	return price, nil
}

func (r *Repository) CustomerTier(_ context.Context, customerID string) (domain.CustomerTier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tier, ok := r.tiers[customerID]
	if !ok {
		return "", errors.NewNotFoundError(fmt.Sprintf("Cliente %s não encontrado.", customerID))
	}
	return tier, nil
}

func (r *Repository) CustomerOverride(_ context.Context, productID, customerID string) (decimal.Decimal, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	price, ok := r.overrides[pairKey{productID, customerID}]
	return price, ok, nil
}

func (r *Repository) VolumeBreaks(_ context.Context, productID string) ([]domain.VolumeBreak, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if breaks, ok := r.volumeBreaks[productID]; ok {
		return slices.Clone(breaks), nil
	}
	return slices.Clone(r.globalBreaks), nil
}

func (r *Repository) ActivePromotions(_ context.Context, productID, locationID string, at time.Time) ([]domain.Promotion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.Promotion{}
	for _, p := range r.promotions {
		if p.ProductID == productID && p.LocationID == locationID && p.ActiveAt(at) {
			out = append(out, p)
		}
	}
	return out, nil
}

// --- domain.DocumentSource ---

func (r *Repository) PurchaseOrderLines(_ context.Context, id string) ([]domain.DocumentLine, error) {
	return r.document(r.purchaseOrders, "Pedido de compra", id)
}

func (r *Repository) GoodsReceiptLines(_ context.Context, id string) ([]domain.DocumentLine, error) {
	return r.document(r.goodsReceipts, "Recebimento", id)
}

func (r *Repository) InvoiceLines(_ context.Context, id string) ([]domain.DocumentLine, error) {
	return r.document(r.invoices, "Fatura", id)
}

func (r *Repository) document(docs map[string][]domain.DocumentLine, kind, id string) ([]domain.DocumentLine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lines, ok := docs[id]
	if !ok {
		return nil, errors.NewNotFoundError(fmt.Sprintf("%s %s não encontrado.", kind, id))
	}
	return slices.Clone(lines), nil
}

// --- domain.BatchStockWriter ---

// AdjustBatchQuantity aplica o ajuste sob lock exclusivo, incrementando a versão.
func (r *Repository) AdjustBatchQuantity(_ context.Context, adjustment domain.StockAdjustmentRequest) (domain.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := batchKey{adjustment.BatchID, adjustment.LocationID}
	b, ok := r.batches[k]
	if !ok {
		return domain.Batch{}, errors.NewNotFoundError(fmt.Sprintf("Lote %s no local %s não encontrado.", adjustment.BatchID, adjustment.LocationID))
	}
	newQuantity := b.QuantityOnHand + adjustment.Delta
	if newQuantity < 0 {
		return domain.Batch{}, errors.NewValidationError("Ajuste resultaria em quantidade negativa.")
	}
	b.QuantityOnHand = newQuantity
	b.Version++
	r.batches[k] = b
	return b, nil
}
