//go:build integration

package recordrepo_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"gopharma/internal/domain"
	apperror "gopharma/internal/errors"
	"gopharma/internal/pkg/database"
	"gopharma/internal/pkg/logger"
	"gopharma/internal/repository/recordrepo"
	"gopharma/internal/service/pricingservice"
	"gopharma/migrations"
)

// setupDB sobe um PostgreSQL descartável, aplica as migrações e carrega os dados de teste.
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("gopharma"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, testcontainers.TerminateContainer(container)) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.NewPostgresDB(dsn, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	goose.SetBaseFS(migrations.FS)
	require.NoError(t, goose.SetDialect("postgres"))
	require.NoError(t, goose.Up(db, "."))

	_, err = db.Exec(`
        INSERT INTO product_batches (batch_id, product_id, location_id, quantity_on_hand, manufacture_date, expiry_date, unit_value)
        VALUES ('B1', 'PROD-001', 'LOC-MAIN', 50, '2025-01-01', '2027-03-25', 12.5),
               ('B2', 'PROD-001', 'LOC-MAIN', 100, '2025-01-01', '2027-06-23', 12.5);
        INSERT INTO product_prices (product_id, location_id, base_price) VALUES ('PROD-001', 'LOC-MAIN', 100);
        INSERT INTO customers (customer_id, name, tier) VALUES ('CUST-1', 'Farmácia Central', 'GOLD');
        INSERT INTO customer_price_overrides (product_id, customer_id, override_price) VALUES ('PROD-001', 'CUST-1', 90);
        INSERT INTO volume_discounts (product_id, min_quantity, discount_percentage) VALUES ('PROD-002', 10, 3);
        INSERT INTO purchase_orders (purchase_order_id, supplier_id) VALUES ('PO-1', 'SUP-1');
        INSERT INTO purchase_order_lines (purchase_order_id, line_no, product_id, quantity, unit_price)
        VALUES ('PO-1', 1, 'PROD-001', 100, 50), ('PO-1', 2, 'PROD-002', 50, 120);`)
	require.NoError(t, err)
	return db
}

func TestIntegration_RecordRepository(t *testing.T) {
	db := setupDB(t)
	repo := recordrepo.NewRecordRepository(db, 5*time.Second, logger.NewNop())
	ctx := context.Background()

	t.Run("lotes", func(t *testing.T) {
		batches, err := repo.BatchesFor(ctx, "PROD-001", "LOC-MAIN")
		require.NoError(t, err)
		assert.Len(t, batches, 2)

		_, err = repo.BatchesFor(ctx, "PROD-404", "LOC-MAIN")
		assert.IsType(t, &apperror.NotFoundError{}, err)

		all, err := repo.AllBatches(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("faixas de volume", func(t *testing.T) {
		global, err := repo.VolumeBreaks(ctx, "PROD-001")
		require.NoError(t, err)
		assert.Len(t, global, 3)

		specific, err := repo.VolumeBreaks(ctx, "PROD-002")
		require.NoError(t, err)
		require.Len(t, specific, 1)
		assert.Equal(t, 10, specific[0].MinQuantity)
	})

	t.Run("documentos", func(t *testing.T) {
		lines, err := repo.PurchaseOrderLines(ctx, "PO-1")
		require.NoError(t, err)
		require.Len(t, lines, 2)
		assert.True(t, decimal.NewFromInt(50).Equal(lines[0].UnitPrice))

		_, err = repo.InvoiceLines(ctx, "INV-404")
		assert.IsType(t, &apperror.NotFoundError{}, err)
	})

	t.Run("preço com override", func(t *testing.T) {
		svc := pricingservice.NewService(repo, domain.DefaultPolicy(), logger.NewNop())
		decision, err := svc.ResolvePrice(ctx, domain.PriceContext{ProductID: "PROD-001", CustomerID: "CUST-1", LocationID: "LOC-MAIN", Quantity: 1})
		require.NoError(t, err)
		assert.Equal(t, domain.RuleCustomerOverride, decision.AppliedRule)

		_, err = svc.ResolvePrice(ctx, domain.PriceContext{ProductID: "PROD-001", CustomerID: "CUST-1", LocationID: "LOC-404", Quantity: 1})
		assert.IsType(t, &apperror.PriceNotFoundError{}, err)
	})

	t.Run("ajuste de lote", func(t *testing.T) {
		adj := domain.StockAdjustmentRequest{BatchID: "B1", LocationID: "LOC-MAIN", Delta: -20, Reason: "baixa FEFO"}
		batch, err := repo.AdjustBatchQuantity(ctx, adj)
		require.NoError(t, err)
		assert.Equal(t, 30, batch.QuantityOnHand)
		assert.Equal(t, 2, batch.Version)

		adj.Delta = -31
		_, err = repo.AdjustBatchQuantity(ctx, adj)
		assert.IsType(t, &apperror.ValidationError{}, err)

		var movements int
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM stock_movements WHERE batch_id = 'B1'`).Scan(&movements))
		assert.Equal(t, 1, movements)
	})
}
