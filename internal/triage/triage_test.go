package triage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"bloodlink/internal/model"
)

func req(id string, urgency model.Urgency) model.BloodRequest {
	return model.BloodRequest{ID: id, Urgency: urgency}
}

func ids(reqs []model.BloodRequest) []string {
	out := make([]string, len(reqs))
	for i, r := range reqs {
		out[i] = r.ID
	}
	return out
}

func TestOrderEmergencyFirstStable(t *testing.T) {
	in := []model.BloodRequest{
		req("A", model.UrgencyEmergency),
		req("B", model.UrgencyNormal),
		req("C", model.UrgencyEmergency),
		req("D", model.UrgencyNormal),
	}

	out := Order(in)

	require.Equal(t, []string{"A", "C", "B", "D"}, ids(out))
}

func TestOrderSameUrgencyKeepsInputOrder(t *testing.T) {
	in := []model.BloodRequest{
		req("1", model.UrgencyNormal),
		req("2", model.UrgencyNormal),
		req("3", model.UrgencyNormal),
	}

	require.Equal(t, []string{"1", "2", "3"}, ids(Order(in)))
}

func TestOrderEmpty(t *testing.T) {
	require.Empty(t, Order(nil))
}
