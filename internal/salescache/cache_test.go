package salescache_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/velmart/backend-store/internal/discount"
	"github.com/velmart/backend-store/internal/salescache"
)

func newCache(t *testing.T) (*salescache.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return &salescache.Cache{R: client, TTL: time.Minute}, mr
}

func TestCacheRoundTrip(t *testing.T) {
	cache, _ := newCache(t)
	ctx := context.Background()

	// Cold cache is a miss, not an error.
	_, hit, err := cache.ActiveSaleIDs(ctx)
	require.NoError(t, err)
	require.False(t, hit)

	ids := []uuid.UUID{uuid.New(), uuid.New()}
	require.NoError(t, cache.Store(ctx, ids))

	got, hit, err := cache.ActiveSaleIDs(ctx)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, ids, got)
}

func TestCacheStoresEmptySetAsHit(t *testing.T) {
	cache, _ := newCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Store(ctx, nil))
	got, hit, err := cache.ActiveSaleIDs(ctx)
	require.NoError(t, err)
	require.True(t, hit)
	require.Empty(t, got)
}

func TestCacheInvalidate(t *testing.T) {
	cache, _ := newCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Store(ctx, []uuid.UUID{uuid.New()}))
	require.NoError(t, cache.Invalidate(ctx))

	_, hit, err := cache.ActiveSaleIDs(ctx)
	require.NoError(t, err)
	require.False(t, hit)
}

func TestCacheExpiry(t *testing.T) {
	cache, mr := newCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Store(ctx, []uuid.UUID{uuid.New()}))
	mr.FastForward(2 * time.Minute)

	_, hit, err := cache.ActiveSaleIDs(ctx)
	require.NoError(t, err)
	require.False(t, hit)
}

type stubSource struct {
	sales []discount.Discount
	uses  map[uuid.UUID]int64
}

func (s stubSource) ListActiveSales(context.Context) ([]discount.Discount, error) {
	return s.sales, nil
}

func (s stubSource) CountUses(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]int64, error) {
	out := make(map[uuid.UUID]int64, len(ids))
	for _, id := range ids {
		out[id] = s.uses[id]
	}
	return out, nil
}

func TestRefreshKeepsTimeEligibleSales(t *testing.T) {
	cache, _ := newCache(t)
	now := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	running := discount.Discount{
		ID:     uuid.New(),
		Active: true,
		Value:  discount.Percent{Bps: 1000},
		Target: discount.TargetOrderValue,
		Groups: []discount.Group{{Conditions: []discount.Condition{
			discount.DateBetween{Start: &past, End: &future, InRange: true},
		}}},
	}
	expired := discount.Discount{
		ID:     uuid.New(),
		Active: true,
		Value:  discount.Percent{Bps: 1000},
		Target: discount.TargetOrderValue,
		Groups: []discount.Group{{Conditions: []discount.Condition{
			discount.DateBetween{End: &past, InRange: true},
		}}},
	}
	// Cart-dependent gating is deferred to the request path, so this sale
	// still lands in the cache.
	min := int64(3)
	cartGated := discount.Discount{
		ID:     uuid.New(),
		Active: true,
		Value:  discount.Percent{Bps: 1000},
		Target: discount.TargetOrderValue,
		Groups: []discount.Group{{Conditions: []discount.Condition{
			discount.CartLength{Min: &min},
		}}},
	}

	r := &salescache.Refresher{
		Source: stubSource{sales: []discount.Discount{running, expired, cartGated}},
		Cache:  cache,
		Now:    func() time.Time { return now },
	}

	n, err := r.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)

	ids, hit, err := cache.ActiveSaleIDs(context.Background())
	require.NoError(t, err)
	require.True(t, hit)
	require.ElementsMatch(t, []uuid.UUID{running.ID, cartGated.ID}, ids)
}

func TestRefreshDropsExhaustedSales(t *testing.T) {
	cache, _ := newCache(t)
	sale := discount.Discount{
		ID:     uuid.New(),
		Active: true,
		Value:  discount.Percent{Bps: 1000},
		Target: discount.TargetOrderValue,
		Groups: []discount.Group{{Conditions: []discount.Condition{discount.MaxUses{Max: 5}}}},
	}

	r := &salescache.Refresher{
		Source: stubSource{
			sales: []discount.Discount{sale},
			uses:  map[uuid.UUID]int64{sale.ID: 5},
		},
		Cache: cache,
	}

	n, err := r.Refresh(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)

	ids, hit, err := cache.ActiveSaleIDs(context.Background())
	require.NoError(t, err)
	require.True(t, hit)
	require.Empty(t, ids)
}
