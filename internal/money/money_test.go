package money_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/velmart/backend-store/internal/money"
)

func TestPercentageOfHalfUp(t *testing.T) {
	m := money.New(12000, "PLN")
	// 20% off leaves 80%.
	require.Equal(t, int64(9600), m.PercentageOf(8000).Amount)
	require.Equal(t, m, m.PercentageOf(10000))
	// 333 * 33.33% = 110.98890 -> rounds to 111.
	require.Equal(t, int64(111), money.New(333, "PLN").PercentageOf(3333).Amount)
}

func TestPercentageOfMonotone(t *testing.T) {
	m := money.New(9999, "EUR")
	prev := m.Amount + 1
	for bps := int64(10000); bps >= 0; bps -= 250 {
		got := m.PercentageOf(bps).Amount
		require.LessOrEqual(t, got, prev, "bps=%d", bps)
		prev = got
	}
	require.Equal(t, int64(0), m.PercentageOf(0).Amount)
}

func TestSubFloorClampsAtOneMinorUnit(t *testing.T) {
	price := money.New(500, "PLN")
	out, err := price.SubFloor(money.New(500, "PLN"), 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), out.Amount)

	out, err = price.SubFloor(money.New(9999, "PLN"), 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), out.Amount)

	out, err = price.SubFloor(money.New(100, "PLN"), 1)
	require.NoError(t, err)
	require.Equal(t, int64(400), out.Amount)
}

func TestSubFloorNeverRaisesPrice(t *testing.T) {
	zero := money.New(0, "PLN")
	out, err := zero.SubFloor(money.New(500, "PLN"), 1)
	require.NoError(t, err)
	require.Equal(t, int64(0), out.Amount)

	out, err = money.New(1, "PLN").SubFloor(money.New(500, "PLN"), 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), out.Amount)
}

func TestCurrencyMismatch(t *testing.T) {
	_, err := money.New(100, "PLN").Add(money.New(100, "EUR"))
	require.ErrorIs(t, err, money.ErrCurrencyMismatch)

	_, err = money.New(100, "PLN").Compare(money.New(100, "EUR"))
	require.ErrorIs(t, err, money.ErrCurrencyMismatch)

	// Currency codes compare case-insensitively.
	sum, err := money.New(100, "pln").Add(money.New(1, "PLN"))
	require.NoError(t, err)
	require.Equal(t, int64(101), sum.Amount)
}

func TestMin(t *testing.T) {
	a := money.New(100, "PLN")
	b := money.New(200, "PLN")
	got, err := a.Min(b)
	require.NoError(t, err)
	require.Equal(t, a, got)
	got, err = b.Min(a)
	require.NoError(t, err)
	require.Equal(t, a, got)
	_, err = a.Min(money.New(1, "EUR"))
	require.ErrorIs(t, err, money.ErrCurrencyMismatch)
}

func TestCompare(t *testing.T) {
	a := money.New(100, "PLN")
	b := money.New(200, "PLN")
	got, err := a.Compare(b)
	require.NoError(t, err)
	require.Equal(t, -1, got)
	got, err = b.Compare(a)
	require.NoError(t, err)
	require.Equal(t, 1, got)
	got, err = a.Compare(a)
	require.NoError(t, err)
	require.Equal(t, 0, got)
}
