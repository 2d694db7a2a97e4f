package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyUnitsBoundaries(t *testing.T) {
	tests := []struct {
		total int
		want  Classification
	}{
		{1, StockCritical},
		{10, StockCritical},
		{11, StockLow},
		{20, StockLow},
		{21, StockHealthy},
		{100, StockHealthy},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, ClassifyUnits(tt.total), "total=%d", tt.total)
	}
}

func TestBloodGroupValid(t *testing.T) {
	for _, g := range BloodGroups {
		require.True(t, g.Valid())
	}
	require.False(t, BloodGroup("C+").Valid())
	require.False(t, BloodGroup("").Valid())
	require.False(t, BloodGroup("o-").Valid())
}

func TestRequestStatusTransitions(t *testing.T) {
	all := []RequestStatus{StatusPending, StatusApproved, StatusRejected, StatusFulfilled}

	legal := map[RequestStatus]map[RequestStatus]bool{
		StatusPending:  {StatusApproved: true, StatusRejected: true},
		StatusApproved: {StatusFulfilled: true},
	}

	for _, from := range all {
		for _, to := range all {
			want := legal[from][to]
			require.Equal(t, want, from.CanTransition(to), "%s -> %s", from, to)
		}
	}
}

func TestRequestStatusTerminal(t *testing.T) {
	require.False(t, StatusPending.Terminal())
	require.False(t, StatusApproved.Terminal())
	require.True(t, StatusRejected.Terminal())
	require.True(t, StatusFulfilled.Terminal())
}
