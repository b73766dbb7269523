package discount

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// groupWire is the persisted JSON shape of a condition group.
type groupWire struct {
	Conditions []conditionWire `json:"conditions"`
}

// conditionWire is the flat discriminated row a condition serialises to.
// Only the fields relevant to the tagged kind are set.
type conditionWire struct {
	Type          string   `json:"type"`
	Min           *int64   `json:"min,omitempty"`
	Max           *int64   `json:"max,omitempty"`
	Start         *string  `json:"start,omitempty"`
	End           *string  `json:"end,omitempty"`
	InRange       *bool    `json:"is_in_range,omitempty"`
	IncludeTaxes  *bool    `json:"include_taxes,omitempty"`
	AllowList     *bool    `json:"is_allow_list,omitempty"`
	Products      []string `json:"products,omitempty"`
	Sets          []string `json:"sets,omitempty"`
	Users         []string `json:"users,omitempty"`
	Roles         []string `json:"roles,omitempty"`
	Organizations []string `json:"organizations,omitempty"`
	Weekdays      []bool   `json:"weekdays,omitempty"`
}

// MarshalGroups serialises condition groups to their persisted JSON form.
func MarshalGroups(groups []Group) ([]byte, error) {
	out := make([]groupWire, 0, len(groups))
	for _, g := range groups {
		gw := groupWire{Conditions: make([]conditionWire, 0, len(g.Conditions))}
		for _, c := range g.Conditions {
			cw, err := encodeCondition(c)
			if err != nil {
				return nil, err
			}
			gw.Conditions = append(gw.Conditions, cw)
		}
		out = append(out, gw)
	}
	return json.Marshal(out)
}

// UnmarshalGroups decodes persisted condition groups. An unknown condition
// tag yields UnsupportedConditionError so a misconfigured discount can never
// silently pass or fail.
func UnmarshalGroups(data []byte) ([]Group, error) {
	if len(data) == 0 || strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}
	var wire []groupWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("discount: decode condition groups: %w", err)
	}
	groups := make([]Group, 0, len(wire))
	for _, gw := range wire {
		g := Group{Conditions: make([]Condition, 0, len(gw.Conditions))}
		for _, cw := range gw.Conditions {
			c, err := decodeCondition(cw)
			if err != nil {
				return nil, err
			}
			g.Conditions = append(g.Conditions, c)
		}
		groups = append(groups, g)
	}
	return groups, nil
}

func encodeCondition(c Condition) (conditionWire, error) {
	w := conditionWire{Type: c.Kind()}
	switch cond := c.(type) {
	case CartLength:
		w.Min, w.Max = cond.Min, cond.Max
	case CouponsCount:
		w.Min, w.Max = cond.Min, cond.Max
	case DateBetween:
		w.Start = timePtrToString(cond.Start)
		w.End = timePtrToString(cond.End)
		w.InRange = boolPtr(cond.InRange)
	case TimeBetween:
		if cond.Start != nil {
			w.Start = strPtr(cond.Start.String())
		}
		if cond.End != nil {
			w.End = strPtr(cond.End.String())
		}
		w.InRange = boolPtr(cond.InRange)
	case MaxUses:
		w.Max = &cond.Max
	case MaxUsesPerUser:
		w.Max = &cond.Max
	case OrderValue:
		w.Min, w.Max = cond.Min, cond.Max
		w.IncludeTaxes = boolPtr(cond.IncludeTaxes)
		w.InRange = boolPtr(cond.InRange)
	case ProductIn:
		w.Products = uuidsToStrings(cond.Products)
		w.AllowList = boolPtr(cond.AllowList)
	case ProductInSet:
		w.Sets = uuidsToStrings(cond.Sets)
		w.AllowList = boolPtr(cond.AllowList)
	case UserIn:
		w.Users = uuidsToStrings(cond.Users)
		w.AllowList = boolPtr(cond.AllowList)
	case UserInRole:
		w.Roles = uuidsToStrings(cond.Roles)
		w.AllowList = boolPtr(cond.AllowList)
	case UserInOrganization:
		w.Organizations = uuidsToStrings(cond.Organizations)
		w.AllowList = boolPtr(cond.AllowList)
	case WeekdayIn:
		w.Weekdays = cond.Weekdays[:]
	default:
		return conditionWire{}, &UnsupportedConditionError{Tag: c.Kind()}
	}
	return w, nil
}

func decodeCondition(w conditionWire) (Condition, error) {
	switch w.Type {
	case KindCartLength:
		return CartLength{Min: w.Min, Max: w.Max}, nil
	case KindCouponsCount:
		return CouponsCount{Min: w.Min, Max: w.Max}, nil
	case KindDateBetween:
		start, err := stringToTimePtr(w.Start)
		if err != nil {
			return nil, err
		}
		end, err := stringToTimePtr(w.End)
		if err != nil {
			return nil, err
		}
		return DateBetween{Start: start, End: end, InRange: boolValue(w.InRange)}, nil
	case KindTimeBetween:
		start, err := stringToTimeOfDayPtr(w.Start)
		if err != nil {
			return nil, err
		}
		end, err := stringToTimeOfDayPtr(w.End)
		if err != nil {
			return nil, err
		}
		return TimeBetween{Start: start, End: end, InRange: boolValue(w.InRange)}, nil
	case KindMaxUses:
		if w.Max == nil {
			return nil, fmt.Errorf("discount: max_uses condition requires max")
		}
		return MaxUses{Max: *w.Max}, nil
	case KindMaxUsesPerUser:
		if w.Max == nil {
			return nil, fmt.Errorf("discount: max_uses_per_user condition requires max")
		}
		return MaxUsesPerUser{Max: *w.Max}, nil
	case KindOrderValue:
		return OrderValue{
			Min:          w.Min,
			Max:          w.Max,
			IncludeTaxes: boolValue(w.IncludeTaxes),
			InRange:      boolValue(w.InRange),
		}, nil
	case KindProductIn:
		ids, err := stringsToUUIDs(w.Products)
		if err != nil {
			return nil, err
		}
		return ProductIn{Products: ids, AllowList: boolValue(w.AllowList)}, nil
	case KindProductInSet:
		ids, err := stringsToUUIDs(w.Sets)
		if err != nil {
			return nil, err
		}
		return ProductInSet{Sets: ids, AllowList: boolValue(w.AllowList)}, nil
	case KindUserIn:
		ids, err := stringsToUUIDs(w.Users)
		if err != nil {
			return nil, err
		}
		return UserIn{Users: ids, AllowList: boolValue(w.AllowList)}, nil
	case KindUserInRole:
		ids, err := stringsToUUIDs(w.Roles)
		if err != nil {
			return nil, err
		}
		return UserInRole{Roles: ids, AllowList: boolValue(w.AllowList)}, nil
	case KindUserInOrganization:
		ids, err := stringsToUUIDs(w.Organizations)
		if err != nil {
			return nil, err
		}
		return UserInOrganization{Organizations: ids, AllowList: boolValue(w.AllowList)}, nil
	case KindWeekdayIn:
		var days [7]bool
		if len(w.Weekdays) != len(days) {
			return nil, fmt.Errorf("discount: weekday_in condition requires exactly 7 flags")
		}
		copy(days[:], w.Weekdays)
		return WeekdayIn{Weekdays: days}, nil
	default:
		return nil, &UnsupportedConditionError{Tag: w.Type}
	}
}

func timePtrToString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func stringToTimePtr(s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(*s))
	if err != nil {
		return nil, fmt.Errorf("discount: parse timestamp %q: %w", *s, err)
	}
	return &parsed, nil
}

func stringToTimeOfDayPtr(s *string) (*TimeOfDay, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	parsed, err := ParseTimeOfDay(*s)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func uuidsToStrings(ids []uuid.UUID) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

func stringsToUUIDs(values []string) ([]uuid.UUID, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make([]uuid.UUID, 0, len(values))
	for _, raw := range values {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		parsed, err := uuid.Parse(trimmed)
		if err != nil {
			return nil, fmt.Errorf("discount: parse id %q: %w", raw, err)
		}
		out = append(out, parsed)
	}
	return out, nil
}

func boolPtr(v bool) *bool    { return &v }
func strPtr(v string) *string { return &v }

func boolValue(v *bool) bool {
	return v != nil && *v
}
