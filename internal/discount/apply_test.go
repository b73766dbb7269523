package discount_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/velmart/backend-store/internal/discount"
	"github.com/velmart/backend-store/internal/money"
)

func TestApplyValuePercent(t *testing.T) {
	// 20% off 120.00 in a 2-decimal currency yields 96.00.
	out, err := discount.ApplyValue(discount.Percent{Bps: 2000}, money.New(12000, "PLN"))
	require.NoError(t, err)
	require.Equal(t, int64(9600), out.Amount)

	// 100% off is legal for percentages.
	out, err = discount.ApplyValue(discount.Percent{Bps: 10000}, money.New(12000, "PLN"))
	require.NoError(t, err)
	require.Equal(t, int64(0), out.Amount)
}

func TestApplyValueFixedFloors(t *testing.T) {
	out, err := discount.ApplyValue(discount.Fixed{Amount: money.New(5000, "PLN")}, money.New(4000, "PLN"))
	require.NoError(t, err)
	require.Equal(t, int64(1), out.Amount)

	out, err = discount.ApplyValue(discount.Fixed{Amount: money.New(1000, "PLN")}, money.New(4000, "PLN"))
	require.NoError(t, err)
	require.Equal(t, int64(3000), out.Amount)
}

func TestApplyValueFixedKeepsZeroPrice(t *testing.T) {
	// A line legally at zero after a 100% percentage discount must stay at
	// zero when a fixed amount follows; the floor clamp never raises a price.
	out, err := discount.ApplyValue(discount.Percent{Bps: 10000}, money.New(12000, "PLN"))
	require.NoError(t, err)
	require.Equal(t, int64(0), out.Amount)

	out, err = discount.ApplyValue(discount.Fixed{Amount: money.New(500, "PLN")}, out)
	require.NoError(t, err)
	require.Equal(t, int64(0), out.Amount)
}

func TestApplyValueCurrencyMismatch(t *testing.T) {
	_, err := discount.ApplyValue(discount.Fixed{Amount: money.New(100, "EUR")}, money.New(4000, "PLN"))
	require.ErrorIs(t, err, money.ErrCurrencyMismatch)
}

func linesFor(prices ...int64) ([]discount.Line, *discount.Context) {
	snap := discount.Snapshot{}
	for _, p := range prices {
		snap.Items = append(snap.Items, discount.Item{
			LineID:    uuid.New(),
			ProductID: uuid.New(),
			Qty:       1,
			Price:     money.New(p, "PLN"),
		})
	}
	return discount.LinesFromSnapshot(snap), &discount.Context{Snapshot: snap}
}

func TestApplyToLinesScoping(t *testing.T) {
	lines, ctx := linesFor(12000, 8000)
	d := discount.Discount{
		ID:               uuid.New(),
		Value:            discount.Percent{Bps: 2000},
		Target:           discount.TargetProducts,
		TargetAllowList:  true,
		TargetProductIDs: []uuid.UUID{lines[0].ProductID},
	}

	applied, err := discount.ApplyToLines(d, lines, ctx)
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, int64(9600), lines[0].Price.Amount)
	require.Equal(t, []uuid.UUID{d.ID}, lines[0].AppliedDiscountIDs)
	// Out-of-scope line untouched.
	require.Equal(t, int64(8000), lines[1].Price.Amount)
	require.Empty(t, lines[1].AppliedDiscountIDs)
}

func TestApplyToLinesDenyList(t *testing.T) {
	lines, ctx := linesFor(10000, 10000)
	d := discount.Discount{
		ID:               uuid.New(),
		Value:            discount.Percent{Bps: 1000},
		Target:           discount.TargetProducts,
		TargetAllowList:  false,
		TargetProductIDs: []uuid.UUID{lines[0].ProductID},
	}

	applied, err := discount.ApplyToLines(d, lines, ctx)
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, int64(10000), lines[0].Price.Amount)
	require.Equal(t, int64(9000), lines[1].Price.Amount)
}

func TestApplyToCheapestPicksLowestCurrentPrice(t *testing.T) {
	lines, ctx := linesFor(12000, 12000, 8000)
	d := discount.Discount{ID: uuid.New(), Value: discount.Percent{Bps: 5000}, Target: discount.TargetCheapestProduct}

	applied, err := discount.ApplyToCheapest(d, lines, ctx)
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, int64(12000), lines[0].Price.Amount)
	require.Equal(t, int64(12000), lines[1].Price.Amount)
	require.Equal(t, int64(4000), lines[2].Price.Amount)
}

func TestApplyToCheapestTieBreaksOnEarliestLine(t *testing.T) {
	lines, ctx := linesFor(5000, 5000)
	d := discount.Discount{ID: uuid.New(), Value: discount.Fixed{Amount: money.New(1000, "PLN")}, Target: discount.TargetCheapestProduct}

	applied, err := discount.ApplyToCheapest(d, lines, ctx)
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, int64(4000), lines[0].Price.Amount)
	require.Equal(t, int64(5000), lines[1].Price.Amount)
}

func TestApplyToCheapestReselectsBetweenPasses(t *testing.T) {
	lines, ctx := linesFor(6000, 5000)
	first := discount.Discount{ID: uuid.New(), Value: discount.Fixed{Amount: money.New(3000, "PLN")}, Target: discount.TargetCheapestProduct}
	second := discount.Discount{ID: uuid.New(), Value: discount.Fixed{Amount: money.New(1000, "PLN")}, Target: discount.TargetCheapestProduct}

	_, err := discount.ApplyToCheapest(first, lines, ctx)
	require.NoError(t, err)
	// First pass dropped line 1 to 2000; it stays cheapest for pass two.
	_, err = discount.ApplyToCheapest(second, lines, ctx)
	require.NoError(t, err)
	require.Equal(t, int64(6000), lines[0].Price.Amount)
	require.Equal(t, int64(1000), lines[1].Price.Amount)
}

func TestApplyToShippingGatedByMethod(t *testing.T) {
	method := uuid.New()
	other := uuid.New()
	d := discount.Discount{
		ID:                    uuid.New(),
		Value:                 discount.Percent{Bps: 10000},
		Target:                discount.TargetShippingPrice,
		TargetAllowList:       true,
		TargetShippingMethods: []uuid.UUID{method},
	}

	price := money.New(1500, "PLN")
	out, applied, err := discount.ApplyToShipping(d, &method, price)
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, int64(0), out.Amount)

	out, applied, err = discount.ApplyToShipping(d, &other, price)
	require.NoError(t, err)
	require.False(t, applied)
	require.Equal(t, price, out)

	_, applied, err = discount.ApplyToShipping(d, nil, price)
	require.NoError(t, err)
	require.False(t, applied)
}

func TestApplyToTotal(t *testing.T) {
	d := discount.Discount{ID: uuid.New(), Value: discount.Fixed{Amount: money.New(2500, "PLN")}, Target: discount.TargetOrderValue}
	out, err := discount.ApplyToTotal(d, money.New(10000, "PLN"))
	require.NoError(t, err)
	require.Equal(t, int64(7500), out.Amount)
}
