package discount

import (
	"time"

	"github.com/google/uuid"

	"github.com/velmart/backend-store/internal/money"
)

// Item is a single line of the cart or order snapshot the engine evaluates
// against. Price carries the line total that discounts mutate.
type Item struct {
	LineID    uuid.UUID
	ProductID uuid.UUID
	Qty       int
	Price     money.Money
}

// Snapshot is the cart/order view supplied by collaborators. The engine
// never mutates it; applicators produce fresh Line results instead.
type Snapshot struct {
	Items            []Item
	ShippingMethodID *uuid.UUID
	ShippingPrice    money.Money
}

// Context carries everything condition evaluation needs, assembled once per
// orchestration call and passed read-only to every check. All collaborator
// state (usage counters, set ancestry, user memberships) is preloaded so
// evaluation itself performs no I/O and stays referentially transparent.
type Context struct {
	Now time.Time

	UserID            *uuid.UUID
	UserRoles         []uuid.UUID
	UserOrganizations []uuid.UUID

	Snapshot     Snapshot
	Total        money.Money
	TotalWithTax money.Money
	CouponCodes  []string

	// Uses and UserUses hold per-discount usage counters keyed by discount
	// id. Increments are owned by order finalization; the engine only reads.
	Uses     map[uuid.UUID]int64
	UserUses map[uuid.UUID]int64

	// ProductSets maps a product id to its own set plus every ancestor of
	// that set, so ProductInSet membership is a plain intersection test.
	ProductSets map[uuid.UUID][]uuid.UUID

	// Partial marks the active-sales recomputation mode: conditions that
	// depend on a cart or a user pass vacuously and are re-checked with a
	// full context on every request.
	Partial bool
}

// HasProduct reports whether any snapshot line carries the given product.
func (c *Context) HasProduct(id uuid.UUID) bool {
	for _, it := range c.Snapshot.Items {
		if it.ProductID == id {
			return true
		}
	}
	return false
}

// orderTotal picks the pre-resolved total the OrderValue condition compares
// against.
func (c *Context) orderTotal(includeTaxes bool) money.Money {
	if includeTaxes {
		return c.TotalWithTax
	}
	return c.Total
}
