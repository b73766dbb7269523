package discount_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/velmart/backend-store/internal/discount"
)

func TestGroupsRoundTrip(t *testing.T) {
	start := time.Date(2022, 4, 20, 0, 0, 0, 0, time.UTC)
	end := time.Date(2022, 4, 22, 0, 0, 0, 0, time.UTC)
	open, err := discount.ParseTimeOfDay("22:00")
	require.NoError(t, err)
	close, err := discount.ParseTimeOfDay("02:00")
	require.NoError(t, err)
	min := int64(2)
	product := uuid.New()
	set := uuid.New()
	role := uuid.New()
	var days [7]bool
	days[int(time.Saturday)] = true
	days[int(time.Sunday)] = true

	groups := []discount.Group{
		{Conditions: []discount.Condition{
			discount.DateBetween{Start: &start, End: &end, InRange: true},
			discount.TimeBetween{Start: &open, End: &close, InRange: true},
			discount.CartLength{Min: &min},
			discount.MaxUses{Max: 100},
			discount.MaxUsesPerUser{Max: 1},
		}},
		{Conditions: []discount.Condition{
			discount.ProductIn{Products: []uuid.UUID{product}, AllowList: true},
			discount.ProductInSet{Sets: []uuid.UUID{set}, AllowList: false},
			discount.UserInRole{Roles: []uuid.UUID{role}, AllowList: true},
			discount.OrderValue{Min: &min, IncludeTaxes: true, InRange: true},
			discount.WeekdayIn{Weekdays: days},
		}},
	}

	data, err := discount.MarshalGroups(groups)
	require.NoError(t, err)

	decoded, err := discount.UnmarshalGroups(data)
	require.NoError(t, err)
	require.Equal(t, groups, decoded)
}

func TestUnmarshalGroupsUnknownTag(t *testing.T) {
	payload := []byte(`[{"conditions":[{"type":"moon_phase","min":1}]}]`)
	_, err := discount.UnmarshalGroups(payload)
	var unsupported *discount.UnsupportedConditionError
	require.ErrorAs(t, err, &unsupported)
	require.Equal(t, "moon_phase", unsupported.Tag)
}

func TestUnmarshalGroupsEmpty(t *testing.T) {
	groups, err := discount.UnmarshalGroups(nil)
	require.NoError(t, err)
	require.Nil(t, groups)

	groups, err = discount.UnmarshalGroups([]byte(`[]`))
	require.NoError(t, err)
	require.Empty(t, groups)
}

func TestUnmarshalGroupsBadWeekdays(t *testing.T) {
	payload := []byte(`[{"conditions":[{"type":"weekday_in","weekdays":[true,false]}]}]`)
	_, err := discount.UnmarshalGroups(payload)
	require.Error(t, err)
}
