package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velmart/backend-store/internal/discount"
	"github.com/velmart/backend-store/internal/money"
)

// ErrUnavailable indicates the store dependency is not configured.
var ErrUnavailable = errors.New("repo: store unavailable")

const discountColumns = `id, code, name, priority, active, percent_bps, amount, currency, target,
target_allow_list, target_product_ids, target_set_ids, target_shipping_methods,
condition_groups, max_uses`

// Store provides database accessors for discount rules and their
// collaborator lookups.
type Store struct {
	Pool *pgxpool.Pool
	// Currency backs fixed amounts stored without an explicit currency.
	Currency string
}

// NewStore constructs a Store backed by a pgx connection pool.
func NewStore(pool *pgxpool.Pool, currency string) *Store {
	return &Store{Pool: pool, Currency: currency}
}

// GetCouponByCode fetches one coupon rule by its code. Returns pgx.ErrNoRows
// when the code does not exist.
func (s *Store) GetCouponByCode(ctx context.Context, code string) (discount.Discount, error) {
	if s == nil || s.Pool == nil {
		return discount.Discount{}, ErrUnavailable
	}
	row := s.Pool.QueryRow(ctx, `SELECT `+discountColumns+` FROM discounts WHERE code = $1`, strings.TrimSpace(code))
	return s.scanDiscount(row)
}

// GetDiscount fetches one rule by id.
func (s *Store) GetDiscount(ctx context.Context, id uuid.UUID) (discount.Discount, error) {
	if s == nil || s.Pool == nil {
		return discount.Discount{}, ErrUnavailable
	}
	row := s.Pool.QueryRow(ctx, `SELECT `+discountColumns+` FROM discounts WHERE id = $1`, id)
	return s.scanDiscount(row)
}

// ListActiveSales returns every active automatic discount (rules without a
// code). Eligibility is still evaluated by the caller.
func (s *Store) ListActiveSales(ctx context.Context) ([]discount.Discount, error) {
	if s == nil || s.Pool == nil {
		return nil, ErrUnavailable
	}
	rows, err := s.Pool.Query(ctx, `SELECT `+discountColumns+` FROM discounts
WHERE active AND code IS NULL ORDER BY priority, created_at`)
	if err != nil {
		return nil, err
	}
	return s.collectDiscounts(rows)
}

// ListSalesByIDs returns the active sale rules for the given ids. Missing or
// deactivated ids are silently dropped so a stale cache entry degrades to a
// smaller set.
func (s *Store) ListSalesByIDs(ctx context.Context, ids []uuid.UUID) ([]discount.Discount, error) {
	if s == nil || s.Pool == nil {
		return nil, ErrUnavailable
	}
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.Pool.Query(ctx, `SELECT `+discountColumns+` FROM discounts
WHERE id = ANY($1) AND active AND code IS NULL ORDER BY priority, created_at`, ids)
	if err != nil {
		return nil, err
	}
	return s.collectDiscounts(rows)
}

// ListDiscounts returns rules for admin listings, newest first.
func (s *Store) ListDiscounts(ctx context.Context, limit, offset int) ([]discount.Discount, error) {
	if s == nil || s.Pool == nil {
		return nil, ErrUnavailable
	}
	rows, err := s.Pool.Query(ctx, `SELECT `+discountColumns+` FROM discounts
ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.collectDiscounts(rows)
}

// CountDiscounts returns the total number of rules for pagination.
func (s *Store) CountDiscounts(ctx context.Context) (int64, error) {
	if s == nil || s.Pool == nil {
		return 0, ErrUnavailable
	}
	var total int64
	if err := s.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM discounts`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// CreateDiscount inserts a rule and returns it with the generated id.
func (s *Store) CreateDiscount(ctx context.Context, d discount.Discount) (discount.Discount, error) {
	if s == nil || s.Pool == nil {
		return discount.Discount{}, ErrUnavailable
	}
	args, err := s.discountArgs(d)
	if err != nil {
		return discount.Discount{}, err
	}
	var id uuid.UUID
	err = s.Pool.QueryRow(ctx, `INSERT INTO discounts
(code, name, priority, active, percent_bps, amount, currency, target,
 target_allow_list, target_product_ids, target_set_ids, target_shipping_methods,
 condition_groups, max_uses)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING id`, args...).Scan(&id)
	if err != nil {
		return discount.Discount{}, err
	}
	d.ID = id
	return d, nil
}

// UpdateDiscount replaces a rule in full. Returns pgx.ErrNoRows when the id
// does not exist.
func (s *Store) UpdateDiscount(ctx context.Context, d discount.Discount) (discount.Discount, error) {
	if s == nil || s.Pool == nil {
		return discount.Discount{}, ErrUnavailable
	}
	args, err := s.discountArgs(d)
	if err != nil {
		return discount.Discount{}, err
	}
	args = append(args, d.ID)
	tag, err := s.Pool.Exec(ctx, `UPDATE discounts SET
code = $1, name = $2, priority = $3, active = $4, percent_bps = $5, amount = $6,
currency = $7, target = $8, target_allow_list = $9, target_product_ids = $10,
target_set_ids = $11, target_shipping_methods = $12, condition_groups = $13,
max_uses = $14, updated_at = now()
WHERE id = $15`, args...)
	if err != nil {
		return discount.Discount{}, err
	}
	if tag.RowsAffected() == 0 {
		return discount.Discount{}, pgx.ErrNoRows
	}
	return d, nil
}

// DeleteDiscount removes a rule. Returns pgx.ErrNoRows when the id does not
// exist.
func (s *Store) DeleteDiscount(ctx context.Context, id uuid.UUID) error {
	if s == nil || s.Pool == nil {
		return ErrUnavailable
	}
	tag, err := s.Pool.Exec(ctx, `DELETE FROM discounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *Store) discountArgs(d discount.Discount) ([]any, error) {
	var (
		code       any
		percentBps any
		amount     any
		currency   any
	)
	if d.Code != nil && strings.TrimSpace(*d.Code) != "" {
		code = strings.TrimSpace(*d.Code)
	}
	switch v := d.Value.(type) {
	case discount.Percent:
		percentBps = v.Bps
	case discount.Fixed:
		amount = v.Amount.Amount
		currency = v.Amount.Currency
	default:
		return nil, errors.New("repo: discount value is not set")
	}
	groups, err := discount.MarshalGroups(d.Groups)
	if err != nil {
		return nil, err
	}
	var maxUses any
	if d.MaxUses != nil {
		maxUses = *d.MaxUses
	}
	return []any{
		code, d.Name, d.Priority, d.Active, percentBps, amount, currency,
		string(d.Target), d.TargetAllowList, d.TargetProductIDs, d.TargetSetIDs,
		d.TargetShippingMethods, groups, maxUses,
	}, nil
}

func (s *Store) collectDiscounts(rows pgx.Rows) ([]discount.Discount, error) {
	defer rows.Close()
	var out []discount.Discount
	for rows.Next() {
		d, err := s.scanDiscount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) scanDiscount(row pgx.Row) (discount.Discount, error) {
	var (
		d          discount.Discount
		code       sql.NullString
		percentBps sql.NullInt64
		amount     sql.NullInt64
		currency   sql.NullString
		target     string
		groupsRaw  []byte
		maxUses    sql.NullInt64
	)
	err := row.Scan(
		&d.ID, &code, &d.Name, &d.Priority, &d.Active,
		&percentBps, &amount, &currency, &target,
		&d.TargetAllowList, &d.TargetProductIDs, &d.TargetSetIDs, &d.TargetShippingMethods,
		&groupsRaw, &maxUses,
	)
	if err != nil {
		return discount.Discount{}, err
	}
	if code.Valid {
		d.Code = &code.String
	}
	switch {
	case percentBps.Valid:
		d.Value = discount.Percent{Bps: percentBps.Int64}
	case amount.Valid:
		cur := s.Currency
		if currency.Valid && strings.TrimSpace(currency.String) != "" {
			cur = currency.String
		}
		d.Value = discount.Fixed{Amount: money.New(amount.Int64, cur)}
	default:
		return discount.Discount{}, errors.New("repo: discount row has neither percent nor amount")
	}
	d.Target = discount.TargetType(target)
	if !d.Target.Valid() {
		return discount.Discount{}, errors.New("repo: discount row has unknown target " + target)
	}
	groups, err := discount.UnmarshalGroups(groupsRaw)
	if err != nil {
		return discount.Discount{}, err
	}
	d.Groups = groups
	if maxUses.Valid {
		d.MaxUses = &maxUses.Int64
	}
	return d, nil
}
