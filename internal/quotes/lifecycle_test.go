package quotes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanTransitionTable(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusDraft, StatusSent},
		{StatusDraft, StatusVoid},
		{StatusSent, StatusRevised},
		{StatusSent, StatusApproved},
		{StatusSent, StatusExpired},
		{StatusSent, StatusVoid},
		{StatusSent, StatusOnHold},
		{StatusRevised, StatusSent},
		{StatusRevised, StatusApproved},
		{StatusRevised, StatusVoid},
		{StatusApproved, StatusPaid},
		{StatusApproved, StatusExpired},
		{StatusApproved, StatusVoid},
		{StatusApproved, StatusOnHold},
		{StatusOnHold, StatusSent},
		{StatusOnHold, StatusApproved},
		{StatusOnHold, StatusVoid},
	}
	for _, tc := range allowed {
		require.NoError(t, CanTransition(1, tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestCanTransitionRejectsSkips(t *testing.T) {
	denied := []struct{ from, to Status }{
		{StatusDraft, StatusApproved},
		{StatusDraft, StatusPaid},
		{StatusSent, StatusPaid},
		{StatusRevised, StatusExpired},
		{StatusRevised, StatusOnHold},
		{StatusOnHold, StatusPaid},
		{StatusOnHold, StatusExpired},
	}
	for _, tc := range denied {
		err := CanTransition(7, tc.from, tc.to)
		var invalid *InvalidTransitionError
		require.ErrorAs(t, err, &invalid, "%s -> %s", tc.from, tc.to)
		require.Equal(t, int64(7), invalid.QuoteID)
		require.Equal(t, tc.from, invalid.From)
		require.Equal(t, tc.to, invalid.To)
	}
}

func TestTerminalStatusesHaveNoExit(t *testing.T) {
	all := []Status{StatusDraft, StatusSent, StatusRevised, StatusApproved, StatusPaid, StatusExpired, StatusVoid, StatusOnHold}
	for _, from := range []Status{StatusPaid, StatusExpired, StatusVoid} {
		require.True(t, from.Terminal())
		for _, to := range all {
			require.Error(t, CanTransition(1, from, to), "%s -> %s must be rejected", from, to)
		}
	}
}

func TestNonTerminalStatuses(t *testing.T) {
	for _, s := range []Status{StatusDraft, StatusSent, StatusRevised, StatusApproved, StatusOnHold} {
		require.False(t, s.Terminal(), "%s", s)
	}
}
