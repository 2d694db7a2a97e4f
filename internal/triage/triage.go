// Package triage provides the presentation-independent ordering applied
// wherever blood requests are listed or dispatched.
package triage

import (
	"sort"

	"bloodlink/internal/model"
)

// Order sorts requests in place so emergency urgency comes strictly before
// normal. The sort is stable: requests of equal urgency keep their relative
// input order. Returns the slice for convenience.
func Order(reqs []model.BloodRequest) []model.BloodRequest {
	sort.SliceStable(reqs, func(i, j int) bool {
		return rank(reqs[i].Urgency) < rank(reqs[j].Urgency)
	})
	return reqs
}

func rank(u model.Urgency) int {
	if u == model.UrgencyEmergency {
		return 0
	}
	return 1
}
