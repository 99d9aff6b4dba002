package pricingservice_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gopharma/internal/domain"
	apperror "gopharma/internal/errors"
	"gopharma/internal/pkg/logger"
	"gopharma/internal/service/pricingservice"
)

// MockPricingSource é uma implementação mock da interface domain.PricingSource
type MockPricingSource struct {
	mock.Mock
}

func (m *MockPricingSource) BasePrice(ctx context.Context, productID, locationID string) (decimal.Decimal, error) {
	args := m.Called(ctx, productID, locationID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockPricingSource) CustomerTier(ctx context.Context, customerID string) (domain.CustomerTier, error) {
	args := m.Called(ctx, customerID)
	return args.Get(0).(domain.CustomerTier), args.Error(1)
}

func (m *MockPricingSource) CustomerOverride(ctx context.Context, productID, customerID string) (decimal.Decimal, bool, error) {
	args := m.Called(ctx, productID, customerID)
	return args.Get(0).(decimal.Decimal), args.Bool(1), args.Error(2)
}

func (m *MockPricingSource) VolumeBreaks(ctx context.Context, productID string) ([]domain.VolumeBreak, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).([]domain.VolumeBreak), args.Error(1)
}

func (m *MockPricingSource) ActivePromotions(ctx context.Context, productID, locationID string, at time.Time) ([]domain.Promotion, error) {
	args := m.Called(ctx, productID, locationID, at)
	return args.Get(0).([]domain.Promotion), args.Error(1)
}

var now = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(expected).Equal(actual), "esperado %s, obtido %s", expected, actual)
}

// fixture monta um mock com valores neutros; cada teste sobrescreve o que precisa.
type fixture struct {
	base     string
	tier     domain.CustomerTier
	override string
	promos   []domain.Promotion
}

func (f fixture) source() *MockPricingSource {
	src := new(MockPricingSource)
	src.On("BasePrice", mock.Anything, "PROD-001", "LOC-MAIN").Return(dec(f.base), nil)
	src.On("CustomerTier", mock.Anything, "CUST-1").Return(f.tier, nil)
	if f.override != "" {
		src.On("CustomerOverride", mock.Anything, "PROD-001", "CUST-1").Return(dec(f.override), true, nil)
	} else {
		src.On("CustomerOverride", mock.Anything, "PROD-001", "CUST-1").Return(decimal.Zero, false, nil)
	}
	src.On("VolumeBreaks", mock.Anything, "PROD-001").Return(domain.DefaultPolicy().DefaultVolumeBreaks, nil)
	promos := f.promos
	if promos == nil {
		promos = []domain.Promotion{}
	}
	src.On("ActivePromotions", mock.Anything, "PROD-001", "LOC-MAIN", now).Return(promos, nil)
	return src
}

func newTestService(src domain.PricingSource) *pricingservice.Service {
	return pricingservice.NewService(src, domain.DefaultPolicy(), logger.NewNop()).
		WithClock(func() time.Time { return now })
}

func priceCtx(qty int) domain.PriceContext {
	return domain.PriceContext{ProductID: "PROD-001", CustomerID: "CUST-1", LocationID: "LOC-MAIN", Quantity: qty}
}

func promo(pct string) domain.Promotion {
	return domain.Promotion{
		PromotionID:        "PROMO-1",
		ProductID:          "PROD-001",
		LocationID:         "LOC-MAIN",
		DiscountPercentage: dec(pct),
		ValidFrom:          now.AddDate(0, 0, -1),
		ValidTo:            now.AddDate(0, 0, 1),
		Active:             true,
	}
}

func TestResolvePrice_OverrideBeatsTier(t *testing.T) {
	src := fixture{base: "100", tier: domain.TierGold, override: "90"}.source()

	decision, err := newTestService(src).ResolvePrice(context.Background(), priceCtx(5))

	require.NoError(t, err)
	assert.Equal(t, domain.RuleCustomerOverride, decision.AppliedRule)
	assertDecimal(t, "90", decision.FinalPrice)
	assertDecimal(t, "450", decision.TotalAmount)
	assertDecimal(t, "50", decision.Savings)
	require.NotNil(t, decision.DiscountPercentage)
	assertDecimal(t, "10", *decision.DiscountPercentage)
	require.NotNil(t, decision.DiscountAmount)
	assertDecimal(t, "10", *decision.DiscountAmount)
	assert.Equal(t, domain.TierGold, decision.CustomerTier)
	src.AssertExpectations(t)
}

func TestResolvePrice_OverrideMarkup(t *testing.T) {
	src := fixture{base: "100", tier: domain.TierRegular, override: "110"}.source()

	decision, err := newTestService(src).ResolvePrice(context.Background(), priceCtx(2))

	require.NoError(t, err)
	assert.Equal(t, domain.RuleCustomerOverride, decision.AppliedRule)
	assertDecimal(t, "110", decision.FinalPrice)
	require.NotNil(t, decision.DiscountPercentage)
	assertDecimal(t, "-10", *decision.DiscountPercentage)
	assert.Nil(t, decision.DiscountAmount)
	assertDecimal(t, "-20", decision.Savings)
}

// TestResolvePrice_TierPrecedesVolume: 60 unidades GOLD recebem 10% de tier, não 5% de volume.
func TestResolvePrice_TierPrecedesVolume(t *testing.T) {
	src := fixture{base: "100", tier: domain.TierGold}.source()

	decision, err := newTestService(src).ResolvePrice(context.Background(), priceCtx(60))

	require.NoError(t, err)
	assert.Equal(t, domain.RuleTierPricing, decision.AppliedRule)
	assertDecimal(t, "90", decision.FinalPrice)
	assertDecimal(t, "5400", decision.TotalAmount)
	assertDecimal(t, "600", decision.Savings)
	require.NotNil(t, decision.DiscountPercentage)
	assertDecimal(t, "10", *decision.DiscountPercentage)
}

func TestResolvePrice_VolumeAndPromotion(t *testing.T) {
	cases := []struct {
		name     string
		qty      int
		promos   []domain.Promotion
		rule     domain.AppliedRule
		final    string
		discount string
	}{
		{"volume maior", 100, []domain.Promotion{promo("5")}, domain.RuleVolumeDiscount, "90", "10"},
		{"promoção maior", 20, []domain.Promotion{promo("8")}, domain.RulePromotionalDiscount, "92", "8"},
		{"empate favorece volume", 50, []domain.Promotion{promo("5")}, domain.RuleVolumeDiscount, "95", "5"},
		{"somente promoção", 3, []domain.Promotion{promo("3"), promo("7.5")}, domain.RulePromotionalDiscount, "92.5", "7.5"},
		{"sem desconto", 19, nil, domain.RuleBasePrice, "100", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := fixture{base: "100", tier: domain.TierRegular, promos: tc.promos}.source()

			decision, err := newTestService(src).ResolvePrice(context.Background(), priceCtx(tc.qty))

			require.NoError(t, err)
			assert.Equal(t, tc.rule, decision.AppliedRule)
			assertDecimal(t, tc.final, decision.FinalPrice)
			assert.True(t, decision.FinalPrice.LessThanOrEqual(decision.BasePrice))
			assert.True(t, decision.TotalAmount.Equal(decision.FinalPrice.Mul(decimal.NewFromInt(int64(tc.qty)))))
			if tc.discount == "" {
				assert.Nil(t, decision.DiscountPercentage)
				assert.Nil(t, decision.DiscountAmount)
				assert.True(t, decision.Savings.IsZero())
				return
			}
			require.NotNil(t, decision.DiscountPercentage)
			assertDecimal(t, tc.discount, *decision.DiscountPercentage)
		})
	}
}

func TestResolvePrice_IgnoresPromotionOutsideWindow(t *testing.T) {
	expired := promo("20")
	expired.ValidTo = now.Add(-time.Minute)
	inactive := promo("30")
	inactive.Active = false
	src := fixture{base: "100", tier: domain.TierRegular, promos: []domain.Promotion{expired, inactive}}.source()

	decision, err := newTestService(src).ResolvePrice(context.Background(), priceCtx(1))

	require.NoError(t, err)
	assert.Equal(t, domain.RuleBasePrice, decision.AppliedRule)
}

func TestResolvePrice_MissingBasePrice(t *testing.T) {
	src := new(MockPricingSource)
	src.On("BasePrice", mock.Anything, "PROD-001", "LOC-MAIN").
		Return(decimal.Zero, apperror.NewNotFoundError("preço base"))

	_, err := newTestService(src).ResolvePrice(context.Background(), priceCtx(1))

	assert.Error(t, err)
	assert.IsType(t, &apperror.PriceNotFoundError{}, err)
	src.AssertNotCalled(t, "CustomerTier", mock.Anything, mock.Anything)
}

func TestResolvePrice_UnknownCustomerPropagates(t *testing.T) {
	src := new(MockPricingSource)
	src.On("BasePrice", mock.Anything, "PROD-001", "LOC-MAIN").Return(dec("100"), nil)
	src.On("CustomerTier", mock.Anything, "CUST-1").
		Return(domain.TierRegular, apperror.NewNotFoundError("cliente CUST-1"))

	_, err := newTestService(src).ResolvePrice(context.Background(), priceCtx(1))

	assert.IsType(t, &apperror.NotFoundError{}, err)
}

func TestResolvePrice_SourceFailureIsInternal(t *testing.T) {
	src := new(MockPricingSource)
	src.On("BasePrice", mock.Anything, "PROD-001", "LOC-MAIN").Return(decimal.Zero, errors.New("timeout"))

	_, err := newTestService(src).ResolvePrice(context.Background(), priceCtx(1))

	assert.IsType(t, &apperror.InternalError{}, err)
}

func TestResolvePrice_NonPositiveBaseIsInvariant(t *testing.T) {
	src := new(MockPricingSource)
	src.On("BasePrice", mock.Anything, "PROD-001", "LOC-MAIN").Return(decimal.Zero, nil)

	_, err := newTestService(src).ResolvePrice(context.Background(), priceCtx(1))

	assert.IsType(t, &apperror.InvariantError{}, err)
}

func TestResolvePrice_Validation(t *testing.T) {
	src := new(MockPricingSource)
	svc := newTestService(src)

	for _, pc := range []domain.PriceContext{
		priceCtx(0),
		priceCtx(-3),
		{ProductID: "", CustomerID: "CUST-1", LocationID: "LOC-MAIN", Quantity: 1},
		{ProductID: "PROD-001", CustomerID: " ", LocationID: "LOC-MAIN", Quantity: 1},
	} {
		_, err := svc.ResolvePrice(context.Background(), pc)
		assert.IsType(t, &apperror.ValidationError{}, err)
	}
	src.AssertNotCalled(t, "BasePrice", mock.Anything, mock.Anything, mock.Anything)
}

func TestVolumeDiscount_UnsortedBreaks(t *testing.T) {
	breaks := []domain.VolumeBreak{
		{MinQuantity: 20, DiscountPercentage: dec("2")},
		{MinQuantity: 100, DiscountPercentage: dec("10")},
		{MinQuantity: 50, DiscountPercentage: dec("5")},
	}

	assertDecimal(t, "0", pricingservice.VolumeDiscount(breaks, 19))
	assertDecimal(t, "2", pricingservice.VolumeDiscount(breaks, 20))
	assertDecimal(t, "5", pricingservice.VolumeDiscount(breaks, 99))
	assertDecimal(t, "10", pricingservice.VolumeDiscount(breaks, 500))
	assertDecimal(t, "0", pricingservice.VolumeDiscount(nil, 500))
}

func TestResolveBulk(t *testing.T) {
	src := fixture{base: "100", tier: domain.TierSilver}.source()

	result, err := newTestService(src).ResolveBulk(context.Background(), domain.BulkPriceRequest{
		CustomerID: "CUST-1",
		LocationID: "LOC-MAIN",
		Items: []domain.BulkPriceItem{
			{ProductID: "PROD-001", Quantity: 2},
			{ProductID: "PROD-001", Quantity: 10},
		},
	})

	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	assertDecimal(t, "1140", result.TotalAmount)
	assertDecimal(t, "60", result.TotalSavings)
}

func TestResolveBulk_FailsWhole(t *testing.T) {
	src := fixture{base: "100", tier: domain.TierSilver}.source()
	svc := newTestService(src)

	_, err := svc.ResolveBulk(context.Background(), domain.BulkPriceRequest{CustomerID: "CUST-1", LocationID: "LOC-MAIN"})
	assert.IsType(t, &apperror.ValidationError{}, err)

	result, err := svc.ResolveBulk(context.Background(), domain.BulkPriceRequest{
		CustomerID: "CUST-1",
		LocationID: "LOC-MAIN",
		Items:      []domain.BulkPriceItem{{ProductID: "PROD-001", Quantity: 1}, {ProductID: "PROD-001", Quantity: 0}},
	})
	var validation *apperror.ValidationError
	assert.ErrorAs(t, err, &validation)
	assert.Empty(t, result.Items)
}

func TestTierDiscountsAndCustomerTier(t *testing.T) {
	src := new(MockPricingSource)
	src.On("CustomerTier", mock.Anything, "CUST-9").Return(domain.TierPlatinum, nil)
	svc := newTestService(src)

	table := svc.TierDiscounts()
	require.Len(t, table, 5)
	assert.Equal(t, domain.TierPlatinum, table[0].Tier)
	assertDecimal(t, "15", table[0].DiscountPercentage)
	assertDecimal(t, "0", table[4].DiscountPercentage)

	info, err := svc.CustomerTier(context.Background(), "CUST-9")
	require.NoError(t, err)
	assert.Equal(t, domain.TierPlatinum, info.Tier)
	assertDecimal(t, "15", info.DiscountPercentage)

	_, err = svc.CustomerTier(context.Background(), "")
	assert.IsType(t, &apperror.ValidationError{}, err)
}
