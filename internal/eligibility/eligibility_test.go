package eligibility

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEvaluateNeverDonated(t *testing.T) {
	res := Evaluate(nil, time.Now())

	require.True(t, res.Eligible)
	require.Nil(t, res.NextEligibleDate)
	require.Nil(t, res.DaysRemaining)
}

func TestEvaluateCooldownBoundaries(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		daysAgo       int
		wantEligible  bool
		wantRemaining int
	}{
		{"89 days ago", 89, false, 1},
		{"90 days ago", 90, true, 0},
		{"91 days ago", 91, true, 0},
		{"30 days ago", 30, false, 60},
		{"1 day ago", 1, false, 89},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			last := now.AddDate(0, 0, -tt.daysAgo)
			res := Evaluate(&last, now)

			require.Equal(t, tt.wantEligible, res.Eligible)
			require.NotNil(t, res.NextEligibleDate)
			require.Equal(t, last.AddDate(0, 0, CooldownDays), *res.NextEligibleDate)
			require.NotNil(t, res.DaysRemaining)
			require.Equal(t, tt.wantRemaining, *res.DaysRemaining)
		})
	}
}

func TestEvaluatePartialDayRoundsUp(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	// 89 days and 12 hours ago: half a day short of the window.
	last := now.Add(-89*24*time.Hour - 12*time.Hour)

	res := Evaluate(&last, now)

	require.False(t, res.Eligible)
	require.Equal(t, 1, *res.DaysRemaining)
}

func TestEvaluateExactExpiryInstant(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	last := now.AddDate(0, 0, -CooldownDays)

	res := Evaluate(&last, now)

	require.True(t, res.Eligible)
	require.Equal(t, 0, *res.DaysRemaining)
}
