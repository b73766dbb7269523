package salescache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/velmart/backend-store/internal/discount"
	"github.com/velmart/backend-store/internal/obs"
)

// Source provides the sale rows and usage counters the refresher evaluates.
type Source interface {
	ListActiveSales(ctx context.Context) ([]discount.Discount, error)
	CountUses(ctx context.Context, discountIDs []uuid.UUID) (map[uuid.UUID]int64, error)
}

// Refresher recomputes the cached active-sales set. Evaluation runs without
// any cart or user, so cart-dependent conditions pass vacuously and are
// re-checked on the request path.
type Refresher struct {
	Source Source
	Cache  *Cache
	Now    func() time.Time
	Logger zerolog.Logger
}

// Refresh recomputes and stores the id set. It returns how many sale ids
// were cached.
func (r *Refresher) Refresh(ctx context.Context) (int, error) {
	if r == nil || r.Source == nil || r.Cache == nil {
		return 0, errors.New("salescache: refresher not configured")
	}
	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}

	sales, err := r.Source.ListActiveSales(ctx)
	if err != nil {
		r.record("error")
		return 0, err
	}

	ectx := &discount.Context{Now: now, Partial: true}
	if len(sales) > 0 {
		ids := make([]uuid.UUID, 0, len(sales))
		for _, d := range sales {
			ids = append(ids, d.ID)
		}
		uses, err := r.Source.CountUses(ctx, ids)
		if err != nil {
			r.record("error")
			return 0, err
		}
		ectx.Uses = uses
	}

	active := make([]uuid.UUID, 0, len(sales))
	for _, d := range sales {
		ok, err := discount.Eligible(d, ectx)
		if err != nil {
			// One misconfigured sale must not starve the rest of the set.
			r.Logger.Error().Err(err).Str("discount_id", d.ID.String()).Msg("skipping sale with invalid conditions")
			continue
		}
		if ok {
			active = append(active, d.ID)
		}
	}

	if err := r.Cache.Store(ctx, active); err != nil {
		r.record("error")
		return 0, err
	}
	r.record("ok")
	if obs.SalesCacheSize != nil {
		obs.SalesCacheSize.Set(float64(len(active)))
	}
	r.Logger.Info().Int("active", len(active)).Int("scanned", len(sales)).Msg("active sales cache refreshed")
	return len(active), nil
}

func (r *Refresher) record(result string) {
	if obs.SalesCacheRefreshTotal != nil {
		obs.SalesCacheRefreshTotal.WithLabelValues(result).Inc()
	}
}
