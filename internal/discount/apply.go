package discount

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/velmart/backend-store/internal/money"
)

// Line is the per-item result the applicator folds discounts into. Price is
// monotonically non-increasing as discounts apply; PriceInitial never moves.
type Line struct {
	LineID             uuid.UUID
	ProductID          uuid.UUID
	Qty                int
	PriceInitial       money.Money
	Price              money.Money
	AppliedDiscountIDs []uuid.UUID
}

// LinesFromSnapshot builds fresh result lines, one per snapshot item, in the
// snapshot's order. The orchestrator never reorders them afterwards.
func LinesFromSnapshot(s Snapshot) []Line {
	lines := make([]Line, 0, len(s.Items))
	for _, it := range s.Items {
		lines = append(lines, Line{
			LineID:       it.LineID,
			ProductID:    it.ProductID,
			Qty:          it.Qty,
			PriceInitial: it.Price,
			Price:        it.Price,
		})
	}
	return lines
}

// ApplyValue computes the post-discount amount. A percentage keeps the
// remaining fraction; a fixed amount subtracts with a floor of one minor
// unit so an amount coupon never drives a price to zero.
func ApplyValue(v Value, current money.Money) (money.Money, error) {
	switch val := v.(type) {
	case Percent:
		return current.PercentageOf(10000 - val.Bps), nil
	case Fixed:
		return current.SubFloor(val.Amount, 1)
	default:
		return money.Money{}, fmt.Errorf("discount: value not set")
	}
}

// InTargetScope reports whether a product falls inside the discount's
// target scope: membership in target products or (transitively) target
// sets, combined with the allow/deny flag exactly like the membership
// conditions.
func (d Discount) InTargetScope(productID uuid.UUID, setChain []uuid.UUID) bool {
	member := contains(d.TargetProductIDs, productID) || intersects(setChain, d.TargetSetIDs)
	return matchesScope(member, d.TargetAllowList)
}

// ApplyToLines folds a product-targeted discount over every in-scope line.
// Out-of-scope lines are skipped. Reports whether anything changed.
func ApplyToLines(d Discount, lines []Line, ctx *Context) (bool, error) {
	applied := false
	for i := range lines {
		if !d.InTargetScope(lines[i].ProductID, ctx.ProductSets[lines[i].ProductID]) {
			continue
		}
		next, err := ApplyValue(d.Value, lines[i].Price)
		if err != nil {
			return applied, err
		}
		lines[i].Price = next
		lines[i].AppliedDiscountIDs = append(lines[i].AppliedDiscountIDs, d.ID)
		applied = true
	}
	return applied, nil
}

// ApplyToCheapest discounts the single line with the lowest current
// (already-discounted-so-far) price among the in-scope lines, re-selected on
// every pass since earlier discounts can change which line is cheapest.
// Ties break toward the earliest line in cart order.
func ApplyToCheapest(d Discount, lines []Line, ctx *Context) (bool, error) {
	cheapest := -1
	for i := range lines {
		if !d.InTargetScope(lines[i].ProductID, ctx.ProductSets[lines[i].ProductID]) {
			continue
		}
		if cheapest < 0 {
			cheapest = i
			continue
		}
		cmp, err := lines[i].Price.Compare(lines[cheapest].Price)
		if err != nil {
			return false, err
		}
		if cmp < 0 {
			cheapest = i
		}
	}
	if cheapest < 0 {
		return false, nil
	}
	next, err := ApplyValue(d.Value, lines[cheapest].Price)
	if err != nil {
		return false, err
	}
	lines[cheapest].Price = next
	lines[cheapest].AppliedDiscountIDs = append(lines[cheapest].AppliedDiscountIDs, d.ID)
	return true, nil
}

// ApplyToShipping discounts the shipping price when the chosen shipping
// method falls inside the discount's shipping-method scope.
func ApplyToShipping(d Discount, methodID *uuid.UUID, price money.Money) (money.Money, bool, error) {
	member := methodID != nil && contains(d.TargetShippingMethods, *methodID)
	if !matchesScope(member, d.TargetAllowList) {
		return price, false, nil
	}
	next, err := ApplyValue(d.Value, price)
	if err != nil {
		return price, false, err
	}
	return next, true, nil
}

// ApplyToTotal discounts the running order total.
func ApplyToTotal(d Discount, total money.Money) (money.Money, error) {
	return ApplyValue(d.Value, total)
}
