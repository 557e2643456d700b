package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatus_HardFailureSet(t *testing.T) {
	hard := map[Status]bool{
		StatusFailed:                       true,
		StatusRefundFailed:                 true,
		StatusRefundFailedInsufficientFund: true,
		StatusInvalidAPIKey:                true,
	}
	for _, s := range AllStatuses() {
		require.Equal(t, hard[s], s.IsHardFailure(), "status %s", s)
		if hard[s] {
			require.NotEmpty(t, s.FailMessage())
			require.True(t, s.IsTerminal())
		} else {
			require.Empty(t, s.FailMessage())
		}
	}
}

func TestStatus_ValidAndLabel(t *testing.T) {
	require.Len(t, AllStatuses(), 10)
	for _, s := range AllStatuses() {
		require.True(t, s.Valid())
		require.NotEqual(t, string(s), s.Label())
	}
	require.False(t, Status("bogus").Valid())
	require.Equal(t, "bogus", Status("bogus").Label())
}

func TestStatus_IsTerminal(t *testing.T) {
	require.True(t, StatusSuccessful.IsTerminal())
	require.True(t, StatusRefunded.IsTerminal())
	require.False(t, StatusWaitingForPayment.IsTerminal())
	require.False(t, StatusWaitingForBank.IsTerminal())
	require.False(t, StatusCanceledByUser.IsTerminal())
}
