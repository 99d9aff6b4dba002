package memoryrepo_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopharma/internal/domain"
	apperror "gopharma/internal/errors"
	"gopharma/internal/pkg/logger"
	"gopharma/internal/repository/memoryrepo"
	"gopharma/internal/service/batchservice"
	"gopharma/internal/service/matchingservice"
	"gopharma/internal/service/pricingservice"
)

var today = time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)

func clock() time.Time { return today }

func TestRepository_NotFoundContract(t *testing.T) {
	repo := memoryrepo.NewRepository(nil)
	ctx := context.Background()

	_, err := repo.BatchesFor(ctx, "PROD-404", "LOC-MAIN")
	assert.IsType(t, &apperror.NotFoundError{}, err)
	_, err = repo.BasePrice(ctx, "PROD-404", "LOC-MAIN")
	assert.IsType(t, &apperror.NotFoundError{}, err)
	_, err = repo.CustomerTier(ctx, "CUST-404")
	assert.IsType(t, &apperror.NotFoundError{}, err)
	_, err = repo.InvoiceLines(ctx, "INV-404")
	assert.IsType(t, &apperror.NotFoundError{}, err)

	_, ok, err := repo.CustomerOverride(ctx, "PROD-404", "CUST-404")
	assert.NoError(t, err)
	assert.False(t, ok)

	all, err := repo.AllBatches(ctx, "")
	assert.NoError(t, err)
	assert.Empty(t, all)
}

func TestRepository_VolumeBreaksFallback(t *testing.T) {
	repo := memoryrepo.NewRepository(domain.DefaultPolicy().DefaultVolumeBreaks)
	repo.SetVolumeBreaks("PROD-002", []domain.VolumeBreak{{MinQuantity: 10, DiscountPercentage: decimal.NewFromInt(3)}})

	global, err := repo.VolumeBreaks(context.Background(), "PROD-001")
	require.NoError(t, err)
	assert.Len(t, global, 3)

	specific, err := repo.VolumeBreaks(context.Background(), "PROD-002")
	require.NoError(t, err)
	assert.Len(t, specific, 1)
}

func TestRepository_AdjustBatchQuantityConcurrent(t *testing.T) {
	repo := memoryrepo.NewRepository(nil)
	repo.AddBatch(domain.Batch{BatchID: "B1", ProductID: "PROD-001", LocationID: "LOC-MAIN", QuantityOnHand: 100})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = repo.AdjustBatchQuantity(context.Background(),
				domain.StockAdjustmentRequest{BatchID: "B1", LocationID: "LOC-MAIN", Delta: -3, Reason: "venda"})
		}()
	}
	wg.Wait()

	batches, err := repo.BatchesFor(context.Background(), "PROD-001", "LOC-MAIN")
	require.NoError(t, err)
	// 33 ajustes cabem em 100 unidades; os demais são rejeitados.
	assert.Equal(t, 1, batches[0].QuantityOnHand)
	assert.Equal(t, 34, batches[0].Version)

	_, err = repo.AdjustBatchQuantity(context.Background(),
		domain.StockAdjustmentRequest{BatchID: "B9", LocationID: "LOC-MAIN", Delta: 1, Reason: "x"})
	assert.IsType(t, &apperror.NotFoundError{}, err)
}

// TestFixture_EnginesEndToEnd roda os três motores sobre os dados de demonstração.
func TestFixture_EnginesEndToEnd(t *testing.T) {
	policy := domain.DefaultPolicy()
	policy.Location = time.UTC
	repo := memoryrepo.Fixture(today, policy)
	ctx := context.Background()
	log := logger.NewNop()

	t.Run("FEFO", func(t *testing.T) {
		svc := batchservice.NewService(repo, policy, log).WithClock(clock)
		result, err := svc.AllocateFEFO(ctx, "PROD-001", "LOC-MAIN", 120)
		require.NoError(t, err)
		require.Len(t, result.Lines, 2)
		assert.Equal(t, "BATCH-001", result.Lines[0].BatchID)
		assert.Equal(t, 50, result.Lines[0].QuantityTaken)
		assert.Equal(t, "BATCH-002", result.Lines[1].BatchID)
		assert.Equal(t, 70, result.Lines[1].QuantityTaken)
		assert.True(t, result.FullyAllocated)
	})

	t.Run("painel", func(t *testing.T) {
		svc := batchservice.NewService(repo, policy, log).WithClock(clock)
		dash, err := svc.ExpiryDashboard(ctx, "LOC-MAIN")
		require.NoError(t, err)
		assert.Equal(t, 2, dash.CriticalBatches) // BATCH-X (vencido) e BATCH-A
		assert.Equal(t, 1, dash.WarningBatches)
		assert.Equal(t, 2, dash.AttentionBatches) // BATCH-001 e BATCH-C
		assert.Equal(t, 3, dash.OKBatches)
		assert.True(t, decimal.NewFromInt(6000).Equal(dash.TotalValueAtRisk))
	})

	t.Run("preços", func(t *testing.T) {
		svc := pricingservice.NewService(repo, policy, log).WithClock(clock)

		override, err := svc.ResolvePrice(ctx, domain.PriceContext{ProductID: "PROD-001", CustomerID: "CUST-002", LocationID: "LOC-MAIN", Quantity: 1})
		require.NoError(t, err)
		assert.Equal(t, domain.RuleCustomerOverride, override.AppliedRule)

		promo, err := svc.ResolvePrice(ctx, domain.PriceContext{ProductID: "PROD-003", CustomerID: "CUST-004", LocationID: "LOC-MAIN", Quantity: 20})
		require.NoError(t, err)
		assert.Equal(t, domain.RulePromotionalDiscount, promo.AppliedRule)
		assert.True(t, decimal.RequireFromString("69").Equal(promo.FinalPrice))
	})

	t.Run("conciliação", func(t *testing.T) {
		svc := matchingservice.NewService(repo, policy, log).WithClock(clock)

		review, err := svc.Match(ctx, domain.MatchRequest{PurchaseOrderID: "PO-001", GoodsReceiptID: "GRN-001", InvoiceID: "INV-001"}, "")
		require.NoError(t, err)
		assert.Equal(t, domain.MatchRequiresReview, review.Status)
		require.Len(t, review.Variances, 3)
		assert.Equal(t, domain.VarianceQuantity, review.Variances[0].Type)
		assert.Equal(t, domain.VariancePrice, review.Variances[1].Type)
		assert.Equal(t, domain.VarianceUnorderedItem, review.Variances[2].Type)
		assert.True(t, decimal.NewFromInt(4098).Equal(review.TotalVarianceAmount))

		perfect, err := svc.Match(ctx, domain.MatchRequest{PurchaseOrderID: "PO-001", GoodsReceiptID: "GRN-001", InvoiceID: "INV-002"}, "")
		require.NoError(t, err)
		assert.Equal(t, domain.MatchAutoApproved, perfect.Status)
		assert.Empty(t, perfect.Variances)
	})
}
