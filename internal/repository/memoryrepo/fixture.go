package memoryrepo

import (
	"time"

	"github.com/shopspring/decimal"

	"gopharma/internal/domain"
)

// Fixture monta um conjunto de dados de demonstração com datas relativas a today.
// Cobre os cenários usuais: split FEFO, lotes vencidos, cascata de preços e as três divergências de conciliação.
func Fixture(today time.Time, policy domain.Policy) *Repository {
	r := NewRepository(policy.DefaultVolumeBreaks)
	day := func(n int) time.Time { return today.AddDate(0, 0, n) }
	money := decimal.RequireFromString

	for _, b := range []domain.Batch{
		{BatchID: "BATCH-001", ProductID: "PROD-001", QuantityOnHand: 50, ExpiryDate: day(160), UnitValue: money("60")},
		{BatchID: "BATCH-002", ProductID: "PROD-001", QuantityOnHand: 100, ExpiryDate: day(250), UnitValue: money("60")},
		{BatchID: "BATCH-003", ProductID: "PROD-001", QuantityOnHand: 75, ExpiryDate: day(720), UnitValue: money("60")},
		{BatchID: "BATCH-A", ProductID: "PROD-002", QuantityOnHand: 10, ExpiryDate: day(15), UnitValue: money("150")},
		{BatchID: "BATCH-B", ProductID: "PROD-002", QuantityOnHand: 25, ExpiryDate: day(45), UnitValue: money("150")},
		{BatchID: "BATCH-C", ProductID: "PROD-003", QuantityOnHand: 50, ExpiryDate: day(120), UnitValue: money("150")},
		{BatchID: "BATCH-D", ProductID: "PROD-003", QuantityOnHand: 100, ExpiryDate: day(365), UnitValue: money("150")},
		{BatchID: "BATCH-X", ProductID: "PROD-003", QuantityOnHand: 5, ExpiryDate: day(-3), UnitValue: money("150")},
	} {
		b.LocationID = "LOC-MAIN"
		b.ManufactureDate = day(-365)
		r.AddBatch(b)
	}

	r.SetBasePrice("PROD-001", "LOC-MAIN", money("100"))
	r.SetBasePrice("PROD-002", "LOC-MAIN", money("250"))
	r.SetBasePrice("PROD-003", "LOC-MAIN", money("75"))

	r.SetCustomerTier("CUST-001", domain.TierPlatinum)
	r.SetCustomerTier("CUST-002", domain.TierGold)
	r.SetCustomerTier("CUST-003", domain.TierSilver)
	r.SetCustomerTier("CUST-004", domain.TierRegular)
	r.SetOverride("PROD-001", "CUST-002", money("90"))

	r.AddPromotion(domain.Promotion{
		PromotionID:        "PROMO-INVERNO",
		ProductID:          "PROD-003",
		LocationID:         "LOC-MAIN",
		DiscountPercentage: money("8"),
		ValidFrom:          day(-7),
		ValidTo:            day(23),
		Active:             true,
	})

	r.AddPurchaseOrder("PO-001",
		domain.DocumentLine{ProductID: "PROD-001", Quantity: 100, UnitPrice: money("50")},
		domain.DocumentLine{ProductID: "PROD-002", Quantity: 50, UnitPrice: money("120")},
	)
	r.AddGoodsReceipt("GRN-001",
		domain.DocumentLine{ProductID: "PROD-001", Quantity: 98, BatchID: "BATCH-A"},
		domain.DocumentLine{ProductID: "PROD-002", Quantity: 50, BatchID: "BATCH-B"},
	)
	r.AddInvoice("INV-001",
		domain.DocumentLine{ProductID: "PROD-001", Quantity: 98, UnitPrice: money("51")},
		domain.DocumentLine{ProductID: "PROD-002", Quantity: 50, UnitPrice: money("120")},
		domain.DocumentLine{ProductID: "PROD-003", Quantity: 10, UnitPrice: money("200")},
	)
	r.AddInvoice("INV-002",
		domain.DocumentLine{ProductID: "PROD-001", Quantity: 98, UnitPrice: money("50")},
		domain.DocumentLine{ProductID: "PROD-002", Quantity: 50, UnitPrice: money("120")},
	)

	return r
}
