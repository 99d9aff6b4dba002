package recordrepo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gopharma/internal/domain"
	"gopharma/internal/errors"
	"gopharma/internal/pkg/logger"
)

var (
	_ domain.RecordSource     = (*RecordRepository)(nil)
	_ domain.BatchStockWriter = (*RecordRepository)(nil)
)

// RecordRepository implementa domain.RecordSource e domain.BatchStockWriter sobre o PostgreSQL.
type RecordRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewRecordRepository cria e retorna uma nova instância do Repositório de Registros.
func NewRecordRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *RecordRepository {
	return &RecordRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

const batchColumns = `batch_id, product_id, location_id, quantity_on_hand, manufacture_date, expiry_date, unit_value, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBatch(row rowScanner) (domain.Batch, error) {
	var b domain.Batch
	err := row.Scan(&b.BatchID, &b.ProductID, &b.LocationID, &b.QuantityOnHand,
		&b.ManufactureDate, &b.ExpiryDate, &b.UnitValue, &b.Version)
	return b, err
}

// BatchesFor busca todos os lotes de um produto em um local, inclusive vencidos.
func (r *RecordRepository) BatchesFor(ctx context.Context, productID, locationID string) ([]domain.Batch, error) {
	r.logger.Debug("Buscando lotes no repositório.", map[string]interface{}{"product_id": productID, "location_id": locationID})

	query := `SELECT ` + batchColumns + ` FROM product_batches WHERE product_id = $1 AND location_id = $2`
	batches, err := r.queryBatches(ctx, query, productID, locationID)
	if err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		r.logger.Info("Nenhum lote encontrado.", map[string]interface{}{"product_id": productID, "location_id": locationID})
		return nil, errors.NewNotFoundError(fmt.Sprintf("Lotes do produto %s no local %s não encontrados.", productID, locationID))
	}
	return batches, nil
}

// AllBatches busca os lotes de um local; locationID vazio devolve todos os locais.
func (r *RecordRepository) AllBatches(ctx context.Context, locationID string) ([]domain.Batch, error) {
	if locationID == "" {
		return r.queryBatches(ctx, `SELECT `+batchColumns+` FROM product_batches`)
	}
	return r.queryBatches(ctx, `SELECT `+batchColumns+` FROM product_batches WHERE location_id = $1`, locationID)
}

func (r *RecordRepository) queryBatches(ctx context.Context, query string, args ...any) ([]domain.Batch, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	rows, err := r.DB.QueryContext(ctxTimeout, query, args...)
	if err != nil {
		r.logger.Error("Falha ao buscar lotes no DB.", err)
		return nil, errors.NewDBError("Falha ao buscar lotes", err)
	}
	defer rows.Close()

	batches := []domain.Batch{}
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, errors.NewDBError("Falha ao ler lote", err)
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Falha ao iterar lotes", err)
	}
	return batches, nil
}

// BasePrice busca o preço base do produto no local.
func (r *RecordRepository) BasePrice(ctx context.Context, productID, locationID string) (decimal.Decimal, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var price decimal.Decimal
	err := r.DB.QueryRowContext(ctxTimeout,
		`SELECT base_price FROM product_prices WHERE product_id = $1 AND location_id = $2`,
		productID, locationID,
	).Scan(&price)
	if err == sql.ErrNoRows {
		return decimal.Zero, errors.NewNotFoundError(fmt.Sprintf("Preço base do produto %s no local %s não encontrado.", productID, locationID))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar preço base no DB.", err)
		return decimal.Zero, errors.NewDBError("Falha ao buscar preço base", err)
	}
	return price, nil
}

// CustomerTier busca o tier atual do cliente.
func (r *RecordRepository) CustomerTier(ctx context.Context, customerID string) (domain.CustomerTier, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var tier string
	err := r.DB.QueryRowContext(ctxTimeout, `SELECT tier FROM customers WHERE customer_id = $1`, customerID).Scan(&tier)
	if err == sql.ErrNoRows {
		return "", errors.NewNotFoundError(fmt.Sprintf("Cliente %s não encontrado.", customerID))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar tier do cliente no DB.", err)
		return "", errors.NewDBError("Falha ao buscar tier do cliente", err)
	}
	return domain.CustomerTier(tier), nil
}

// CustomerOverride busca o preço negociado do cliente para o produto, se existir.
func (r *RecordRepository) CustomerOverride(ctx context.Context, productID, customerID string) (decimal.Decimal, bool, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var price decimal.Decimal
	err := r.DB.QueryRowContext(ctxTimeout,
		`SELECT override_price FROM customer_price_overrides WHERE product_id = $1 AND customer_id = $2`,
		productID, customerID,
	).Scan(&price)
	if err == sql.ErrNoRows {
		return decimal.Zero, false, nil
	}
	if err != nil {
		r.logger.Error("Falha ao buscar preço negociado no DB.", err)
		return decimal.Zero, false, errors.NewDBError("Falha ao buscar preço negociado", err)
	}
	return price, true, nil
}

// VolumeBreaks devolve as faixas específicas do produto ou, na ausência delas, as faixas globais.
func (r *RecordRepository) VolumeBreaks(ctx context.Context, productID string) ([]domain.VolumeBreak, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	rows, err := r.DB.QueryContext(ctxTimeout, `
        SELECT min_quantity, discount_percentage, product_id IS NOT NULL
        FROM volume_discounts
        WHERE product_id = $1 OR product_id IS NULL
        ORDER BY min_quantity DESC`, productID)
	if err != nil {
		r.logger.Error("Falha ao buscar tabela de volume no DB.", err)
		return nil, errors.NewDBError("Falha ao buscar tabela de volume", err)
	}
	defer rows.Close()

	specific, global := []domain.VolumeBreak{}, []domain.VolumeBreak{}
	for rows.Next() {
		var vb domain.VolumeBreak
		var isSpecific bool
		if err := rows.Scan(&vb.MinQuantity, &vb.DiscountPercentage, &isSpecific); err != nil {
			return nil, errors.NewDBError("Falha ao ler faixa de volume", err)
		}
		if isSpecific {
			specific = append(specific, vb)
		} else {
			global = append(global, vb)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Falha ao iterar faixas de volume", err)
	}
	if len(specific) > 0 {
		return specific, nil
	}
	return global, nil
}

// ActivePromotions busca as promoções ativas do produto no local no instante informado.
func (r *RecordRepository) ActivePromotions(ctx context.Context, productID, locationID string, at time.Time) ([]domain.Promotion, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	rows, err := r.DB.QueryContext(ctxTimeout, `
        SELECT promotion_id, product_id, location_id, discount_percentage, valid_from, valid_to, active
        FROM promotions
        WHERE product_id = $1 AND location_id = $2 AND active AND valid_from <= $3 AND valid_to >= $3`,
		productID, locationID, at)
	if err != nil {
		r.logger.Error("Falha ao buscar promoções no DB.", err)
		return nil, errors.NewDBError("Falha ao buscar promoções", err)
	}
	defer rows.Close()

	promos := []domain.Promotion{}
	for rows.Next() {
		var p domain.Promotion
		if err := rows.Scan(&p.PromotionID, &p.ProductID, &p.LocationID, &p.DiscountPercentage, &p.ValidFrom, &p.ValidTo, &p.Active); err != nil {
			return nil, errors.NewDBError("Falha ao ler promoção", err)
		}
		promos = append(promos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Falha ao iterar promoções", err)
	}
	return promos, nil
}

// PurchaseOrderLines busca as linhas do pedido de compra.
func (r *RecordRepository) PurchaseOrderLines(ctx context.Context, purchaseOrderID string) ([]domain.DocumentLine, error) {
	return r.documentLines(ctx, "Pedido de compra", purchaseOrderID,
		`SELECT EXISTS (SELECT 1 FROM purchase_orders WHERE purchase_order_id = $1)`,
		`SELECT product_id, quantity, unit_price, ''::text FROM purchase_order_lines WHERE purchase_order_id = $1 ORDER BY line_no`)
}

// GoodsReceiptLines busca as linhas do recebimento (GRN). UnitPrice fica zerado.
func (r *RecordRepository) GoodsReceiptLines(ctx context.Context, goodsReceiptID string) ([]domain.DocumentLine, error) {
	return r.documentLines(ctx, "Recebimento", goodsReceiptID,
		`SELECT EXISTS (SELECT 1 FROM goods_receipts WHERE goods_receipt_id = $1)`,
		`SELECT product_id, quantity, 0::numeric, batch_id FROM goods_receipt_lines WHERE goods_receipt_id = $1 ORDER BY line_no`)
}

// InvoiceLines busca as linhas da fatura do fornecedor.
func (r *RecordRepository) InvoiceLines(ctx context.Context, invoiceID string) ([]domain.DocumentLine, error) {
	return r.documentLines(ctx, "Fatura", invoiceID,
		`SELECT EXISTS (SELECT 1 FROM invoices WHERE invoice_id = $1)`,
		`SELECT product_id, quantity, unit_price, ''::text FROM invoice_lines WHERE invoice_id = $1 ORDER BY line_no`)
}

// documentLines lê cabeçalho e linhas na mesma transação somente leitura.
func (r *RecordRepository) documentLines(ctx context.Context, kind, id, existsQuery, linesQuery string) ([]domain.DocumentLine, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctxTimeout, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		r.logger.Error("Falha ao iniciar transação de leitura de documento.", err)
		return nil, errors.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctxTimeout, existsQuery, id).Scan(&exists); err != nil {
		r.logger.Error("Falha ao buscar documento no DB.", err)
		return nil, errors.NewDBError(fmt.Sprintf("Falha ao buscar %s", kind), err)
	}
	if !exists {
		r.logger.Info("Documento não encontrado.", map[string]interface{}{"kind": kind, "id": id})
		return nil, errors.NewNotFoundError(fmt.Sprintf("%s %s não encontrado.", kind, id))
	}

	rows, err := tx.QueryContext(ctxTimeout, linesQuery, id)
	if err != nil {
		r.logger.Error("Falha ao buscar linhas do documento no DB.", err)
		return nil, errors.NewDBError(fmt.Sprintf("Falha ao buscar linhas de %s", kind), err)
	}
	defer rows.Close()

	lines := []domain.DocumentLine{}
	for rows.Next() {
		var l domain.DocumentLine
		if err := rows.Scan(&l.ProductID, &l.Quantity, &l.UnitPrice, &l.BatchID); err != nil {
			return nil, errors.NewDBError("Falha ao ler linha de documento", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Falha ao iterar linhas de documento", err)
	}
	return lines, nil
}

// AdjustBatchQuantity aplica um ajuste ao lote, utilizando transação e controle de concorrência otimista (OCC).
// Cada ajuste também gera um registro em stock_movements.
func (r *RecordRepository) AdjustBatchQuantity(ctx context.Context, adjustment domain.StockAdjustmentRequest) (domain.Batch, error) {
	r.logger.Debug("Iniciando atualização de lote no repositório.", map[string]interface{}{
		"batch_id":    adjustment.BatchID,
		"location_id": adjustment.LocationID,
		"delta":       adjustment.Delta,
	})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		r.logger.Error("Falha ao iniciar transação para atualização de lote.", err)
		return domain.Batch{}, errors.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback()

	// 1. Lote atual com a versão lida
	current, err := scanBatch(tx.QueryRowContext(ctxTimeout,
		`SELECT `+batchColumns+` FROM product_batches WHERE batch_id = $1 AND location_id = $2`,
		adjustment.BatchID, adjustment.LocationID))
	if err == sql.ErrNoRows {
		return domain.Batch{}, errors.NewNotFoundError(fmt.Sprintf("Lote %s no local %s não encontrado.", adjustment.BatchID, adjustment.LocationID))
	}
	if err != nil {
		r.logger.Error("Falha ao selecionar lote para atualização.", err)
		return domain.Batch{}, errors.NewDBError("Falha ao buscar lote para atualização", err)
	}

	// 2. A quantidade resultante nunca pode ser negativa
	newQuantity := current.QuantityOnHand + adjustment.Delta
	if newQuantity < 0 {
		r.logger.Warn("Tentativa de ajustar lote para quantidade negativa.", map[string]interface{}{
			"batch_id":         adjustment.BatchID,
			"current_quantity": current.QuantityOnHand,
			"delta":            adjustment.Delta,
		})
		return domain.Batch{}, errors.NewValidationError("Ajuste resultaria em quantidade negativa.")
	}

	// 3. Atualização com OCC
	result, err := tx.ExecContext(ctxTimeout, `
        UPDATE product_batches
        SET quantity_on_hand = $1, version = $2, updated_at = $3
        WHERE batch_id = $4 AND location_id = $5 AND version = $6`,
		newQuantity, current.Version+1, time.Now().UTC(),
		adjustment.BatchID, adjustment.LocationID, current.Version,
	)
	if err != nil {
		r.logger.Error("Falha ao atualizar lote.", err)
		return domain.Batch{}, errors.NewDBError("Falha ao atualizar lote", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return domain.Batch{}, errors.NewDBError("Falha ao verificar linhas afetadas", err)
	}
	if rowsAffected == 0 {
		r.logger.Warn("Falha no controle de concorrência otimista (OCC). Versão do lote desatualizada.", map[string]interface{}{
			"batch_id":         adjustment.BatchID,
			"expected_version": current.Version,
		})
		return domain.Batch{}, errors.NewConflictError("O lote foi modificado por outra operação. Tente novamente.")
	}

	// 4. Registro do movimento
	_, err = tx.ExecContext(ctxTimeout, `
        INSERT INTO stock_movements (id, batch_id, location_id, quantity_change, reason, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New().String(), adjustment.BatchID, adjustment.LocationID, adjustment.Delta, adjustment.Reason, time.Now().UTC(),
	)
	if err != nil {
		r.logger.Error("Falha ao registrar movimento de estoque.", err)
		return domain.Batch{}, errors.NewDBError("Falha ao registrar movimento", err)
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Falha ao commitar transação de atualização de lote.", err)
		return domain.Batch{}, errors.NewDBError("Falha ao commitar transação", err)
	}

	current.QuantityOnHand = newQuantity
	current.Version++
	r.logger.Info("Lote atualizado com sucesso.", map[string]interface{}{
		"batch_id":     adjustment.BatchID,
		"new_quantity": newQuantity,
		"new_version":  current.Version,
	})
	return current, nil
}
