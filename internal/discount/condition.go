package discount

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Condition kind tags as persisted in condition group payloads.
const (
	KindCartLength         = "cart_length"
	KindCouponsCount       = "coupons_count"
	KindDateBetween        = "date_between"
	KindTimeBetween        = "time_between"
	KindMaxUses            = "max_uses"
	KindMaxUsesPerUser     = "max_uses_per_user"
	KindOrderValue         = "order_value"
	KindProductIn          = "product_in"
	KindProductInSet       = "product_in_set"
	KindUserIn             = "user_in"
	KindUserInRole         = "user_in_role"
	KindUserInOrganization = "user_in_organization"
	KindWeekdayIn          = "weekday_in"
)

// Condition is the closed union of eligibility checks. The unexported method
// keeps the set sealed so Evaluate's type switch is exhaustive; unknown
// persisted tags are rejected at decode time instead of leaking here.
type Condition interface {
	Kind() string
	isCondition()
}

// CartLength bounds the number of lines in the cart, inclusive on both
// sides. A nil bound leaves that side open.
type CartLength struct {
	Min *int64
	Max *int64
}

// CouponsCount bounds how many coupon codes accompany the cart.
type CouponsCount struct {
	Min *int64
	Max *int64
}

// DateBetween checks the current timestamp against [Start, End] inclusive,
// inverted when InRange is false. A nil bound leaves that side open.
type DateBetween struct {
	Start   *time.Time
	End     *time.Time
	InRange bool
}

// TimeBetween checks the current time of day cyclically. Start > End means
// the window wraps past midnight.
type TimeBetween struct {
	Start   *TimeOfDay
	End     *TimeOfDay
	InRange bool
}

// MaxUses passes while the discount's global use count stays below Max.
type MaxUses struct {
	Max int64
}

// MaxUsesPerUser passes while the current user's use count stays below Max.
// With no authenticated user the condition fails, never errors.
type MaxUsesPerUser struct {
	Max int64
}

// OrderValue bounds the pre-resolved order total, inclusive, inverted when
// InRange is false.
type OrderValue struct {
	Min          *int64
	Max          *int64
	IncludeTaxes bool
	InRange      bool
}

// ProductIn tests cart membership against a product allow or deny list.
type ProductIn struct {
	Products  []uuid.UUID
	AllowList bool
}

// ProductInSet tests cart membership against product sets, transitively
// through set ancestry.
type ProductInSet struct {
	Sets      []uuid.UUID
	AllowList bool
}

// UserIn tests the current user against a user allow or deny list.
type UserIn struct {
	Users     []uuid.UUID
	AllowList bool
}

// UserInRole tests the current user's roles.
type UserInRole struct {
	Roles     []uuid.UUID
	AllowList bool
}

// UserInOrganization tests the current user's organizations.
type UserInOrganization struct {
	Organizations []uuid.UUID
	AllowList     bool
}

// WeekdayIn passes when the current weekday's flag is set. Indexing follows
// time.Weekday, Sunday = 0.
type WeekdayIn struct {
	Weekdays [7]bool
}

func (CartLength) Kind() string         { return KindCartLength }
func (CouponsCount) Kind() string       { return KindCouponsCount }
func (DateBetween) Kind() string        { return KindDateBetween }
func (TimeBetween) Kind() string        { return KindTimeBetween }
func (MaxUses) Kind() string            { return KindMaxUses }
func (MaxUsesPerUser) Kind() string     { return KindMaxUsesPerUser }
func (OrderValue) Kind() string         { return KindOrderValue }
func (ProductIn) Kind() string          { return KindProductIn }
func (ProductInSet) Kind() string       { return KindProductInSet }
func (UserIn) Kind() string             { return KindUserIn }
func (UserInRole) Kind() string         { return KindUserInRole }
func (UserInOrganization) Kind() string { return KindUserInOrganization }
func (WeekdayIn) Kind() string          { return KindWeekdayIn }

func (CartLength) isCondition()         {}
func (CouponsCount) isCondition()       {}
func (DateBetween) isCondition()        {}
func (TimeBetween) isCondition()        {}
func (MaxUses) isCondition()            {}
func (MaxUsesPerUser) isCondition()     {}
func (OrderValue) isCondition()         {}
func (ProductIn) isCondition()          {}
func (ProductInSet) isCondition()       {}
func (UserIn) isCondition()             {}
func (UserInRole) isCondition()         {}
func (UserInOrganization) isCondition() {}
func (WeekdayIn) isCondition()          {}

// TimeOfDay is minutes since midnight.
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("discount: invalid time of day %q", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("discount: invalid time of day %q", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("discount: invalid time of day %q", value)
	}
	return TimeOfDay(hour*60 + minute), nil
}

// String renders the canonical "HH:MM" form.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Eligible reports whether the discount passes: a non-nil MaxUses is an
// implicit global use cap, then OR across condition groups, AND inside each
// group, vacuously true with no groups. Errors only surface for unsupported
// condition kinds (configuration errors).
func Eligible(d Discount, ctx *Context) (bool, error) {
	if d.MaxUses != nil && ctx.Uses[d.ID] >= *d.MaxUses {
		return false, nil
	}
	if len(d.Groups) == 0 {
		return true, nil
	}
	for _, g := range d.Groups {
		ok, err := groupSatisfied(g, d, ctx)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func groupSatisfied(g Group, d Discount, ctx *Context) (bool, error) {
	for _, c := range g.Conditions {
		ok, err := Evaluate(c, d, ctx)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Evaluate runs one condition against the context. Pure: identical inputs
// always yield the identical result.
func Evaluate(c Condition, d Discount, ctx *Context) (bool, error) {
	switch cond := c.(type) {
	case CartLength:
		if ctx.Partial {
			return true, nil
		}
		return inInt64Range(int64(len(ctx.Snapshot.Items)), cond.Min, cond.Max), nil
	case CouponsCount:
		if ctx.Partial {
			return true, nil
		}
		return inInt64Range(int64(len(ctx.CouponCodes)), cond.Min, cond.Max), nil
	case DateBetween:
		return evalDateBetween(cond, ctx.Now), nil
	case TimeBetween:
		return evalTimeBetween(cond, ctx.Now), nil
	case MaxUses:
		return ctx.Uses[d.ID] < cond.Max, nil
	case MaxUsesPerUser:
		if ctx.Partial {
			return true, nil
		}
		if ctx.UserID == nil {
			return false, nil
		}
		return ctx.UserUses[d.ID] < cond.Max, nil
	case OrderValue:
		if ctx.Partial {
			return true, nil
		}
		in := inInt64Range(ctx.orderTotal(cond.IncludeTaxes).Amount, cond.Min, cond.Max)
		if !cond.InRange {
			in = !in
		}
		return in, nil
	case ProductIn:
		if ctx.Partial {
			return true, nil
		}
		member := false
		for _, id := range cond.Products {
			if ctx.HasProduct(id) {
				member = true
				break
			}
		}
		return matchesScope(member, cond.AllowList), nil
	case ProductInSet:
		if ctx.Partial {
			return true, nil
		}
		member := false
		for _, it := range ctx.Snapshot.Items {
			if intersects(ctx.ProductSets[it.ProductID], cond.Sets) {
				member = true
				break
			}
		}
		return matchesScope(member, cond.AllowList), nil
	case UserIn:
		if ctx.Partial {
			return true, nil
		}
		member := ctx.UserID != nil && contains(cond.Users, *ctx.UserID)
		return matchesScope(member, cond.AllowList), nil
	case UserInRole:
		if ctx.Partial {
			return true, nil
		}
		return matchesScope(intersects(ctx.UserRoles, cond.Roles), cond.AllowList), nil
	case UserInOrganization:
		if ctx.Partial {
			return true, nil
		}
		return matchesScope(intersects(ctx.UserOrganizations, cond.Organizations), cond.AllowList), nil
	case WeekdayIn:
		return cond.Weekdays[int(ctx.Now.Weekday())], nil
	default:
		return false, &UnsupportedConditionError{Tag: c.Kind()}
	}
}

func evalDateBetween(cond DateBetween, now time.Time) bool {
	// A degenerate single-instant window can never be "outside".
	if !cond.InRange && cond.Start != nil && cond.End != nil && cond.Start.Equal(*cond.End) {
		return false
	}
	in := true
	if cond.Start != nil && now.Before(*cond.Start) {
		in = false
	}
	if cond.End != nil && now.After(*cond.End) {
		in = false
	}
	if cond.InRange {
		return in
	}
	return !in
}

func evalTimeBetween(cond TimeBetween, now time.Time) bool {
	if !cond.InRange && cond.Start != nil && cond.End != nil && *cond.Start == *cond.End {
		return false
	}
	minute := TimeOfDay(now.Hour()*60 + now.Minute())
	in := true
	switch {
	case cond.Start != nil && cond.End != nil && *cond.Start > *cond.End:
		// Window spans midnight.
		in = minute >= *cond.Start || minute <= *cond.End
	default:
		if cond.Start != nil && minute < *cond.Start {
			in = false
		}
		if cond.End != nil && minute > *cond.End {
			in = false
		}
	}
	if cond.InRange {
		return in
	}
	return !in
}

func inInt64Range(v int64, min, max *int64) bool {
	if min != nil && v < *min {
		return false
	}
	if max != nil && v > *max {
		return false
	}
	return true
}
