package rates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bali-malayali/bali-malayali/internal/catalog"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func testRoom() catalog.HotelRoom {
	return catalog.HotelRoom{
		ID:                 7,
		BasePriceIDR:       800000,
		ChildPriceIDR:      250000,
		ExtraAdultPriceIDR: 400000,
		MaxCapacity:        3,
		AllowChild:         true,
		AllowTriple:        true,
	}
}

func highSeason() []catalog.SeasonalRate {
	return []catalog.SeasonalRate{
		{HotelRoomID: 7, Season: catalog.SeasonHigh, StartDate: date("2026-06-01"), EndDate: date("2026-10-01"), RateIDR: 800000},
	}
}

func TestResolveRoomRateThreeNights(t *testing.T) {
	cost, err := ResolveRoomRate(testRoom(), highSeason(), date("2026-07-10"), date("2026-07-13"), 2, 0)
	require.NoError(t, err)
	require.Len(t, cost.NightlyRates, 3)
	require.Equal(t, int64(2400000), cost.TotalRoomCostIDR)
	for _, n := range cost.NightlyRates {
		require.Equal(t, int64(800000), n.RateIDR)
	}
}

func TestResolveRoomRateSpansSeasons(t *testing.T) {
	seasonRates := []catalog.SeasonalRate{
		{HotelRoomID: 7, Season: catalog.SeasonLow, StartDate: date("2026-02-01"), EndDate: date("2026-06-01"), RateIDR: 600000},
		{HotelRoomID: 7, Season: catalog.SeasonHigh, StartDate: date("2026-06-01"), EndDate: date("2026-10-01"), RateIDR: 900000},
	}
	// Two nights in low season, one in high.
	cost, err := ResolveRoomRate(testRoom(), seasonRates, date("2026-05-30"), date("2026-06-02"), 2, 0)
	require.NoError(t, err)
	require.Equal(t, int64(600000+600000+900000), cost.TotalRoomCostIDR)
}

func TestResolveRoomRateGap(t *testing.T) {
	// Coverage ends Oct 1; the last night of the stay is uncovered.
	_, err := ResolveRoomRate(testRoom(), highSeason(), date("2026-09-30"), date("2026-10-02"), 2, 0)
	var gap *RateGapError
	require.ErrorAs(t, err, &gap)
	require.Equal(t, int64(7), gap.RoomID)
	require.Equal(t, date("2026-10-01"), gap.Night)
}

func TestResolveRoomRateSurcharges(t *testing.T) {
	// Third adult plus one child on top of base occupancy.
	room := testRoom()
	room.MaxCapacity = 4
	cost, err := ResolveRoomRate(room, highSeason(), date("2026-07-10"), date("2026-07-12"), 3, 1)
	require.NoError(t, err)
	perNight := int64(800000 + 400000 + 250000)
	require.Equal(t, perNight*2, cost.TotalRoomCostIDR)
}

func TestResolveRoomRateCapacity(t *testing.T) {
	cases := []struct {
		name     string
		mutate   func(*catalog.HotelRoom)
		adults   int
		children int
	}{
		{"child not allowed", func(r *catalog.HotelRoom) { r.AllowChild = false }, 2, 1},
		{"triple not allowed", func(r *catalog.HotelRoom) { r.AllowTriple = false }, 3, 0},
		{"over max capacity", func(r *catalog.HotelRoom) { r.MaxCapacity = 2 }, 2, 1},
		{"four adults", func(r *catalog.HotelRoom) {}, 4, 0},
		{"no adults", func(r *catalog.HotelRoom) {}, 0, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			room := testRoom()
			tc.mutate(&room)
			_, err := ResolveRoomRate(room, highSeason(), date("2026-07-10"), date("2026-07-12"), tc.adults, tc.children)
			var capErr *CapacityError
			require.ErrorAs(t, err, &capErr)
			require.Equal(t, room.ID, capErr.RoomID)
		})
	}
}

func TestResolveRoomRateInvalidStay(t *testing.T) {
	_, err := ResolveRoomRate(testRoom(), highSeason(), date("2026-07-12"), date("2026-07-12"), 2, 0)
	require.ErrorIs(t, err, ErrInvalidStay)
}
