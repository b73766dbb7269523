package discount

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownCoupon is returned when a supplied code resolves to no
	// active coupon. Surfaced per code, never fatal to the rest of the cart.
	ErrUnknownCoupon = errors.New("discount: unknown coupon code")
	// ErrCouponIneligible is returned when a coupon resolves but fails its
	// condition evaluation. Same per-code treatment as ErrUnknownCoupon.
	ErrCouponIneligible = errors.New("discount: coupon not eligible")
)

// UnsupportedConditionError indicates a persisted condition tag the engine
// does not recognise. This is a configuration error: it aborts the whole
// resolution instead of silently passing or failing the group.
type UnsupportedConditionError struct {
	Tag string
}

func (e *UnsupportedConditionError) Error() string {
	return fmt.Sprintf("discount: unsupported condition type %q", e.Tag)
}
