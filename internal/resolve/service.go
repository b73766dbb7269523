package resolve

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/velmart/backend-store/internal/discount"
	"github.com/velmart/backend-store/internal/money"
)

// Repository captures the persistence reads the orchestrator needs. All
// methods are read-only; usage counters are incremented by order
// finalization, never here.
type Repository interface {
	GetCouponByCode(ctx context.Context, code string) (discount.Discount, error)
	ListActiveSales(ctx context.Context) ([]discount.Discount, error)
	ListSalesByIDs(ctx context.Context, ids []uuid.UUID) ([]discount.Discount, error)
	CountUses(ctx context.Context, discountIDs []uuid.UUID) (map[uuid.UUID]int64, error)
	CountUserUses(ctx context.Context, discountIDs []uuid.UUID, userID uuid.UUID) (map[uuid.UUID]int64, error)
	ProductSetChains(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error)
	UserMemberships(ctx context.Context, userID uuid.UUID) (roles, organizations []uuid.UUID, err error)
}

// SalesSource yields the cached set of currently active sale ids. The second
// return reports a cache hit; on a miss the orchestrator falls back to a
// full repository scan.
type SalesSource interface {
	ActiveSaleIDs(ctx context.Context) ([]uuid.UUID, bool, error)
}

// ItemInput is one snapshot line as supplied by the cart/order collaborator.
// Price is the line total in minor units.
type ItemInput struct {
	LineID    uuid.UUID
	ProductID uuid.UUID
	Qty       int
	Price     int64
}

// Snapshot is the cart or order view a resolution runs against.
type Snapshot struct {
	Currency         string
	Items            []ItemInput
	ShippingMethodID *uuid.UUID
	ShippingPrice    int64
	// CouponCodes carries the codes already attached to a persisted order.
	// Cart resolution supplies codes separately.
	CouponCodes []string
}

// ItemResult is the per-line outcome: the initial price, the price after
// every eligible discount folded in, and which discounts touched the line.
type ItemResult struct {
	LineID             uuid.UUID   `json:"lineId"`
	ProductID          uuid.UUID   `json:"productId"`
	Qty                int         `json:"qty"`
	PriceInitial       money.Money `json:"priceInitial"`
	Price              money.Money `json:"price"`
	AppliedDiscountIDs []uuid.UUID `json:"appliedDiscountIds,omitempty"`
}

// AppliedCoupon identifies a coupon that contributed to the result.
type AppliedCoupon struct {
	Code string    `json:"code"`
	ID   uuid.UUID `json:"id"`
}

// Coupon rejection reasons surfaced per code alongside a best-effort result.
const (
	RejectionUnknown    = "unknown_code"
	RejectionIneligible = "not_eligible"
)

// CouponError reports one rejected coupon code. Rejections never abort the
// rest of the resolution.
type CouponError struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// Result is the resolved cart/order: final per-line and order-level amounts
// plus the applied-discount bookkeeping.
type Result struct {
	Items []ItemResult `json:"items"`

	Subtotal      money.Money `json:"subtotal"`
	Total         money.Money `json:"total"`
	Tax           money.Money `json:"tax"`
	ShippingPrice money.Money `json:"shippingPrice"`
	GrandTotal    money.Money `json:"grandTotal"`

	AppliedSaleIDs             []uuid.UUID     `json:"appliedSaleIds,omitempty"`
	AppliedCoupons             []AppliedCoupon `json:"appliedCoupons,omitempty"`
	AppliedOrderDiscountIDs    []uuid.UUID     `json:"appliedOrderDiscountIds,omitempty"`
	AppliedShippingDiscountIDs []uuid.UUID     `json:"appliedShippingDiscountIds,omitempty"`

	CouponErrors []CouponError `json:"couponErrors,omitempty"`
}

// Service orchestrates discount resolution for carts and orders. All state
// lives in the supplied context and repository; the service itself is safe
// for concurrent use.
type Service struct {
	Repo     Repository
	Sales    SalesSource
	Now      func() time.Time
	Currency string
	TaxBps   int
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ResolveCart resolves a not-yet-persisted cart with the supplied coupon
// codes.
func (s *Service) ResolveCart(ctx context.Context, snap Snapshot, couponCodes []string, userID *uuid.UUID) (Result, error) {
	return s.resolve(ctx, snap, couponCodes, userID)
}

// ResolveOrder resolves a persisted order; coupon codes travel with the
// snapshot. Cart and order resolutions share one code path so both agree
// bit-for-bit.
func (s *Service) ResolveOrder(ctx context.Context, snap Snapshot, userID *uuid.UUID) (Result, error) {
	return s.resolve(ctx, snap, snap.CouponCodes, userID)
}

// IsEligible runs a full eligibility check for one discount against an
// already-assembled evaluation context.
func (s *Service) IsEligible(d discount.Discount, ectx *discount.Context) (bool, error) {
	return discount.Eligible(d, ectx)
}

// ValidateCoupon checks a single code ahead of full cart resolution, e.g.
// during checkout form validation. The snapshot may be empty.
func (s *Service) ValidateCoupon(ctx context.Context, code string, snap Snapshot, userID *uuid.UUID) (discount.Discount, error) {
	if s == nil || s.Repo == nil {
		return discount.Discount{}, errors.New("resolve: service not configured")
	}
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return discount.Discount{}, discount.ErrUnknownCoupon
	}
	d, err := s.Repo.GetCouponByCode(ctx, trimmed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return discount.Discount{}, discount.ErrUnknownCoupon
		}
		return discount.Discount{}, err
	}
	if !d.Active {
		return discount.Discount{}, discount.ErrUnknownCoupon
	}
	ectx, err := s.buildContext(ctx, snap, []string{trimmed}, userID, []discount.Discount{d})
	if err != nil {
		return discount.Discount{}, err
	}
	ok, err := discount.Eligible(d, ectx)
	if err != nil {
		return discount.Discount{}, err
	}
	if !ok {
		return discount.Discount{}, discount.ErrCouponIneligible
	}
	return d, nil
}

func (s *Service) resolve(ctx context.Context, snap Snapshot, couponCodes []string, userID *uuid.UUID) (Result, error) {
	if s == nil || s.Repo == nil {
		return Result{}, errors.New("resolve: service not configured")
	}
	currency := snap.Currency
	if strings.TrimSpace(currency) == "" {
		currency = s.Currency
	}

	// Gather: cached active sales plus every supplied coupon code.
	sales, err := s.gatherSales(ctx)
	if err != nil {
		return Result{}, err
	}
	coupons, couponErrs, err := s.gatherCoupons(ctx, couponCodes)
	if err != nil {
		return Result{}, err
	}

	candidates := make([]discount.Discount, 0, len(sales)+len(coupons))
	candidates = append(candidates, sales...)
	candidates = append(candidates, coupons...)

	ectx, err := s.buildContext(ctx, snap, couponCodes, userID, candidates)
	if err != nil {
		return Result{}, err
	}

	// Filter: a failing sale is skipped silently, a failing coupon becomes
	// a per-code rejection. Evaluation errors are configuration errors and
	// abort the whole resolution.
	eligible := make([]discount.Discount, 0, len(candidates))
	for _, d := range candidates {
		ok, err := discount.Eligible(d, ectx)
		if err != nil {
			return Result{}, err
		}
		if ok {
			eligible = append(eligible, d)
			continue
		}
		if !d.IsSale() {
			couponErrs = append(couponErrs, CouponError{Code: *d.Code, Reason: RejectionIneligible})
		}
	}

	// Order: ascending priority, product targets before order value before
	// shipping; stable so gathered order breaks remaining ties.
	slices.SortStableFunc(eligible, discount.ByPriority)

	return s.apply(snap, currency, eligible, ectx, couponErrs)
}

func (s *Service) gatherSales(ctx context.Context) ([]discount.Discount, error) {
	if s.Sales != nil {
		ids, ok, err := s.Sales.ActiveSaleIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve: read sales cache: %w", err)
		}
		if ok {
			if len(ids) == 0 {
				return nil, nil
			}
			return s.Repo.ListSalesByIDs(ctx, ids)
		}
	}
	return s.Repo.ListActiveSales(ctx)
}

func (s *Service) gatherCoupons(ctx context.Context, codes []string) ([]discount.Discount, []CouponError, error) {
	var (
		coupons []discount.Discount
		rejects []CouponError
	)
	seen := make(map[string]struct{}, len(codes))
	for _, raw := range codes {
		code := strings.TrimSpace(raw)
		if code == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		d, err := s.Repo.GetCouponByCode(ctx, code)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				rejects = append(rejects, CouponError{Code: code, Reason: RejectionUnknown})
				continue
			}
			return nil, nil, err
		}
		if !d.Active {
			rejects = append(rejects, CouponError{Code: code, Reason: RejectionUnknown})
			continue
		}
		coupons = append(coupons, d)
	}
	return coupons, rejects, nil
}

// buildContext assembles the immutable evaluation context once per call:
// snapshot lines, pre-resolved totals, and every collaborator-owned lookup
// (usage counters, set ancestry, memberships) preloaded so condition
// evaluation performs no I/O.
func (s *Service) buildContext(ctx context.Context, snap Snapshot, couponCodes []string, userID *uuid.UUID, candidates []discount.Discount) (*discount.Context, error) {
	currency := snap.Currency
	if strings.TrimSpace(currency) == "" {
		currency = s.Currency
	}

	items := make([]discount.Item, 0, len(snap.Items))
	var subtotal int64
	productIDs := make([]uuid.UUID, 0, len(snap.Items))
	for _, it := range snap.Items {
		items = append(items, discount.Item{
			LineID:    it.LineID,
			ProductID: it.ProductID,
			Qty:       it.Qty,
			Price:     money.New(it.Price, currency),
		})
		subtotal += it.Price
		if !slices.Contains(productIDs, it.ProductID) {
			productIDs = append(productIDs, it.ProductID)
		}
	}

	total := money.New(subtotal, currency)
	tax := total.PercentageOf(int64(s.TaxBps))
	totalWithTax, err := total.Add(tax)
	if err != nil {
		return nil, err
	}

	ectx := &discount.Context{
		Now:    s.now(),
		UserID: userID,
		Snapshot: discount.Snapshot{
			Items:            items,
			ShippingMethodID: snap.ShippingMethodID,
			ShippingPrice:    money.New(snap.ShippingPrice, currency),
		},
		Total:        total,
		TotalWithTax: totalWithTax,
		CouponCodes:  normaliseCodes(couponCodes),
	}

	ids := make([]uuid.UUID, 0, len(candidates))
	for _, d := range candidates {
		ids = append(ids, d.ID)
	}
	if len(ids) > 0 {
		uses, err := s.Repo.CountUses(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("resolve: load usage counters: %w", err)
		}
		ectx.Uses = uses
		if userID != nil {
			userUses, err := s.Repo.CountUserUses(ctx, ids, *userID)
			if err != nil {
				return nil, fmt.Errorf("resolve: load per-user usage counters: %w", err)
			}
			ectx.UserUses = userUses
		}
	}
	if len(productIDs) > 0 {
		chains, err := s.Repo.ProductSetChains(ctx, productIDs)
		if err != nil {
			return nil, fmt.Errorf("resolve: load product set ancestry: %w", err)
		}
		ectx.ProductSets = chains
	}
	if userID != nil {
		roles, orgs, err := s.Repo.UserMemberships(ctx, *userID)
		if err != nil {
			return nil, fmt.Errorf("resolve: load user memberships: %w", err)
		}
		ectx.UserRoles = roles
		ectx.UserOrganizations = orgs
	}
	return ectx, nil
}

// apply folds the ordered discounts over their targets, threading the
// progressively discounted totals forward. Line order is never changed.
func (s *Service) apply(snap Snapshot, currency string, ordered []discount.Discount, ectx *discount.Context, couponErrs []CouponError) (Result, error) {
	lines := discount.LinesFromSnapshot(ectx.Snapshot)

	lineSum := func() int64 {
		var sum int64
		for i := range lines {
			sum += lines[i].Price.Amount
		}
		return sum
	}

	subtotal := money.New(lineSum(), currency)
	total := subtotal
	shipping := money.New(snap.ShippingPrice, currency)

	res := Result{Subtotal: subtotal, CouponErrors: couponErrs}

	for _, d := range ordered {
		applied := false
		var err error
		switch d.Target {
		case discount.TargetProducts:
			before := lineSum()
			applied, err = discount.ApplyToLines(d, lines, ectx)
			if err != nil {
				return Result{}, err
			}
			total.Amount -= before - lineSum()
		case discount.TargetCheapestProduct:
			before := lineSum()
			applied, err = discount.ApplyToCheapest(d, lines, ectx)
			if err != nil {
				return Result{}, err
			}
			total.Amount -= before - lineSum()
		case discount.TargetOrderValue:
			total, err = discount.ApplyToTotal(d, total)
			if err != nil {
				return Result{}, err
			}
			applied = true
			res.AppliedOrderDiscountIDs = append(res.AppliedOrderDiscountIDs, d.ID)
		case discount.TargetShippingPrice:
			shipping, applied, err = discount.ApplyToShipping(d, snap.ShippingMethodID, shipping)
			if err != nil {
				return Result{}, err
			}
			if applied {
				res.AppliedShippingDiscountIDs = append(res.AppliedShippingDiscountIDs, d.ID)
			}
		default:
			return Result{}, fmt.Errorf("resolve: unknown target type %q", d.Target)
		}
		if !applied {
			continue
		}
		if d.IsSale() {
			if !slices.Contains(res.AppliedSaleIDs, d.ID) {
				res.AppliedSaleIDs = append(res.AppliedSaleIDs, d.ID)
			}
		} else {
			res.AppliedCoupons = appendCoupon(res.AppliedCoupons, *d.Code, d.ID)
		}
	}

	res.Items = make([]ItemResult, 0, len(lines))
	for _, l := range lines {
		res.Items = append(res.Items, ItemResult{
			LineID:             l.LineID,
			ProductID:          l.ProductID,
			Qty:                l.Qty,
			PriceInitial:       l.PriceInitial,
			Price:              l.Price,
			AppliedDiscountIDs: l.AppliedDiscountIDs,
		})
	}

	res.Total = total
	res.Tax = total.PercentageOf(int64(s.TaxBps))
	res.ShippingPrice = shipping

	grand, err := res.Total.Add(res.Tax)
	if err != nil {
		return Result{}, err
	}
	grand, err = grand.Add(shipping)
	if err != nil {
		return Result{}, err
	}
	res.GrandTotal = grand
	return res, nil
}

func appendCoupon(list []AppliedCoupon, code string, id uuid.UUID) []AppliedCoupon {
	for _, c := range list {
		if c.ID == id {
			return list
		}
	}
	return append(list, AppliedCoupon{Code: code, ID: id})
}

func normaliseCodes(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		trimmed := strings.TrimSpace(c)
		if trimmed == "" {
			continue
		}
		if !slices.Contains(out, trimmed) {
			out = append(out, trimmed)
		}
	}
	return out
}
