package discount

import (
	"github.com/google/uuid"

	"github.com/velmart/backend-store/internal/money"
)

// TargetType names what part of a cart or order a discount mutates.
type TargetType string

const (
	// TargetProducts applies the discount to every in-scope line item.
	TargetProducts TargetType = "products"
	// TargetOrderValue applies the discount to the running order total.
	TargetOrderValue TargetType = "order_value"
	// TargetShippingPrice applies the discount to the shipping price.
	TargetShippingPrice TargetType = "shipping_price"
	// TargetCheapestProduct applies the discount to the single cheapest line.
	TargetCheapestProduct TargetType = "cheapest_product"
)

// Valid reports whether the target type is one of the known values.
func (t TargetType) Valid() bool {
	switch t {
	case TargetProducts, TargetOrderValue, TargetShippingPrice, TargetCheapestProduct:
		return true
	}
	return false
}

// rank orders target types inside a priority tier: product-level discounts
// resolve before order-value discounts, which resolve before shipping.
func (t TargetType) rank() int {
	switch t {
	case TargetProducts, TargetCheapestProduct:
		return 0
	case TargetOrderValue:
		return 1
	default:
		return 2
	}
}

// Value is the discounted amount: either a percentage in basis points or a
// fixed minor-unit amount. The sum type makes the mutual exclusivity
// structural instead of a convention to re-check at every call site.
type Value interface {
	isValue()
}

// Percent takes a fraction of the current price, expressed in basis points
// (2000 = 20%).
type Percent struct {
	Bps int64
}

// Fixed subtracts a fixed amount from the current price, clamped so the
// result never drops below one minor unit.
type Fixed struct {
	Amount money.Money
}

func (Percent) isValue() {}
func (Fixed) isValue()   {}

// Group is an AND-combined list of conditions. An empty group is satisfied.
type Group struct {
	Conditions []Condition
}

// Discount is a promotional rule: a "sale" when Code is nil (applied
// automatically) or a "coupon" when Code is set (applied by supplying the
// code). The engine consumes discounts read-only; CRUD lives elsewhere.
type Discount struct {
	ID       uuid.UUID
	Code     *string
	Name     string
	Priority int
	Active   bool
	Value    Value

	Target                TargetType
	TargetAllowList       bool
	TargetProductIDs      []uuid.UUID
	TargetSetIDs          []uuid.UUID
	TargetShippingMethods []uuid.UUID

	// Groups are OR-combined: the discount is eligible when any group is
	// satisfied, or unconditionally when no groups exist.
	Groups []Group

	// MaxUses, when set, caps total redemptions regardless of condition
	// groups. Eligible enforces it against the preloaded use count.
	MaxUses *int64
}

// IsSale reports whether the discount applies automatically (no code).
func (d Discount) IsSale() bool { return d.Code == nil }

// ByPriority orders discounts the way the orchestrator applies them:
// ascending priority first, then product-level targets before order value
// before shipping. The sort must be stable so equal discounts keep their
// gathered order.
func ByPriority(a, b Discount) int {
	if a.Priority != b.Priority {
		if a.Priority < b.Priority {
			return -1
		}
		return 1
	}
	return a.Target.rank() - b.Target.rank()
}
