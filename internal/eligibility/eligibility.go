// Package eligibility computes donor eligibility from the biological
// cooldown window between consecutive donations.
package eligibility

import (
	"math"
	"time"
)

// CooldownDays is the fixed minimum interval, in days, between a donor's
// consecutive donations.
const CooldownDays = 90

// Result is the outcome of an eligibility check. NextEligibleDate and
// DaysRemaining are absent for donors who have never donated.
type Result struct {
	Eligible         bool       `json:"eligible"`
	NextEligibleDate *time.Time `json:"next_eligible_date,omitempty"`
	DaysRemaining    *int       `json:"days_remaining,omitempty"`
}

// Evaluate computes eligibility as of now. It is pure and must be re-evaluated
// at call time rather than cached across calendar days.
func Evaluate(lastDonation *time.Time, now time.Time) Result {
	if lastDonation == nil {
		return Result{Eligible: true}
	}

	next := lastDonation.AddDate(0, 0, CooldownDays)
	days := int(math.Ceil(next.Sub(now).Hours() / 24))
	if days < 0 {
		days = 0
	}

	return Result{
		Eligible:         !now.Before(next),
		NextEligibleDate: &next,
		DaysRemaining:    &days,
	}
}
