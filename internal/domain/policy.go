package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Limiares de alerta de validade, em dias. Limites superiores exclusivos.
const (
	CriticalExpiryDays  = 30
	WarningExpiryDays   = 90
	AttentionExpiryDays = 180
)

// LowStockQuantity é o limite padrão de estoque baixo por produto, em unidades.
const LowStockQuantity = 20

// Policy reúne os limiares e tabelas que as cascatas de regras consultam.
// Os valores padrão estão em DefaultPolicy; nenhum serviço recalcula limiares localmente.
type Policy struct {
	// Validade
	CriticalDays  int
	WarningDays   int
	AttentionDays int
	// Location define o dia civil de "hoje". Nil usa time.Local.
	Location *time.Location
	// Produtos com estoque alocável abaixo deste valor contam como estoque baixo.
	LowStockQuantity int

	// Preços
	TierDiscounts       map[CustomerTier]decimal.Decimal
	DefaultVolumeBreaks []VolumeBreak

	// Conciliação
	TolerancePercentage  decimal.Decimal
	HighVarianceAmount   decimal.Decimal
	MediumVarianceAmount decimal.Decimal
	Currency             string
}

// DefaultPolicy devolve a política padrão do negócio.
func DefaultPolicy() Policy {
	return Policy{
		CriticalDays:  CriticalExpiryDays,
		WarningDays:   WarningExpiryDays,
		AttentionDays: AttentionExpiryDays,
		Location:      time.Local,

		LowStockQuantity: LowStockQuantity,

		TierDiscounts: map[CustomerTier]decimal.Decimal{
			TierPlatinum: decimal.NewFromInt(15),
			TierGold:     decimal.NewFromInt(10),
			TierSilver:   decimal.NewFromInt(5),
			TierBronze:   decimal.NewFromInt(2),
			TierRegular:  decimal.Zero,
		},
		DefaultVolumeBreaks: []VolumeBreak{
			{MinQuantity: 100, DiscountPercentage: decimal.NewFromInt(10)},
			{MinQuantity: 50, DiscountPercentage: decimal.NewFromInt(5)},
			{MinQuantity: 20, DiscountPercentage: decimal.NewFromInt(2)},
		},

		TolerancePercentage:  decimal.RequireFromString("2.0"),
		HighVarianceAmount:   decimal.NewFromInt(1000),
		MediumVarianceAmount: decimal.NewFromInt(500),
		Currency:             "PKR",
	}
}

// TierDiscount devolve o percentual do tier (zero para tiers desconhecidos).
func (p Policy) TierDiscount(tier CustomerTier) decimal.Decimal {
	if d, ok := p.TierDiscounts[tier]; ok {
		return d
	}
	return decimal.Zero
}

// Today devolve a data civil atual em p.Location, como meia-noite UTC.
func (p Policy) Today(now time.Time) time.Time {
	loc := p.Location
	if loc == nil {
		loc = time.Local
	}
	return CivilDate(now.In(loc))
}

// CivilDate devolve o dia do calendário de t no próprio fuso de t, como meia-noite UTC.
// Datas de validade vêm de colunas DATE, sem fuso, e não são convertidas.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
