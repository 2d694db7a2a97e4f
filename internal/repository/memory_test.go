package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bloodlink/internal/model"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func seedBank(t *testing.T, store *MemoryStore, id string) {
	t.Helper()
	require.NoError(t, store.CreateBank(context.Background(), model.BloodBank{
		ID: id, Name: "Central Bank", City: "Pune", AdminUserID: "admin-1", CreatedAt: testNow,
	}))
}

func seedDonor(t *testing.T, store *MemoryStore, userID string, group model.BloodGroup, last *time.Time) model.Donor {
	t.Helper()
	d := model.Donor{ID: "donor-" + userID, UserID: userID, BloodGroup: group, LastDonationDate: last}
	require.NoError(t, store.CreateDonor(context.Background(), d))
	return d
}

func seedRequest(t *testing.T, store *MemoryStore, id string, group model.BloodGroup, units int, status model.RequestStatus) {
	t.Helper()
	require.NoError(t, store.CreateRequest(context.Background(), model.BloodRequest{
		ID: id, UserID: "patient-1", BloodGroup: group, QuantityUnits: units,
		Urgency: model.UrgencyNormal, Status: status, RequestDate: testNow,
	}))
}

func TestUpdateRequestStatusGraph(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		from    model.RequestStatus
		to      model.RequestStatus
		wantErr error
	}{
		{"pending to approved", model.StatusPending, model.StatusApproved, nil},
		{"pending to rejected", model.StatusPending, model.StatusRejected, nil},
		{"pending to fulfilled", model.StatusPending, model.StatusFulfilled, ErrInvalidTransition},
		{"approved to fulfilled", model.StatusApproved, model.StatusFulfilled, nil},
		{"approved to rejected", model.StatusApproved, model.StatusRejected, ErrInvalidTransition},
		{"rejected to approved", model.StatusRejected, model.StatusApproved, ErrTerminalState},
		{"fulfilled to approved", model.StatusFulfilled, model.StatusApproved, ErrTerminalState},
		{"fulfilled to rejected", model.StatusFulfilled, model.StatusRejected, ErrTerminalState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()
			seedRequest(t, store, "req-1", model.APositive, 2, tt.from)

			updated, err := store.UpdateRequestStatus(ctx, "req-1", tt.to)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				// A failed transition leaves the status unchanged.
				r, getErr := store.GetRequest(ctx, "req-1")
				require.NoError(t, getErr)
				require.Equal(t, tt.from, r.Status)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.to, updated.Status)
		})
	}
}

func TestUpdateRequestStatusNotFound(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.UpdateRequestStatus(context.Background(), "missing", model.StatusApproved)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFulfillRequest(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seedBank(t, store, "bank-1")
	seedDonor(t, store, "user-1", model.ONegative, nil)

	_, _, err := store.CreateDonation(ctx, "user-1", "bank-1", 5, 100, testNow)
	require.NoError(t, err)

	seedRequest(t, store, "req-1", model.ONegative, 3, model.StatusApproved)

	fulfilled, err := store.FulfillRequest(ctx, "req-1", "bank-1")
	require.NoError(t, err)
	require.Equal(t, model.StatusFulfilled, fulfilled.Status)

	stock, err := store.BankStock(ctx, "bank-1")
	require.NoError(t, err)
	require.Equal(t, []model.BankStockEntry{{BloodGroup: model.ONegative, Units: 2}}, stock)
}

func TestFulfillRequestInsufficientStock(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seedBank(t, store, "bank-1")
	seedDonor(t, store, "user-1", model.APositive, nil)

	_, _, err := store.CreateDonation(ctx, "user-1", "bank-1", 2, 100, testNow)
	require.NoError(t, err)

	seedRequest(t, store, "req-1", model.APositive, 5, model.StatusApproved)

	_, err = store.FulfillRequest(ctx, "req-1", "bank-1")
	require.ErrorIs(t, err, ErrInsufficientStock)

	// No partial effect: request stays approved, stock untouched.
	r, err := store.GetRequest(ctx, "req-1")
	require.NoError(t, err)
	require.Equal(t, model.StatusApproved, r.Status)

	stock, err := store.BankStock(ctx, "bank-1")
	require.NoError(t, err)
	require.Equal(t, []model.BankStockEntry{{BloodGroup: model.APositive, Units: 2}}, stock)
}

func TestFulfillRequestNotApproved(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seedBank(t, store, "bank-1")
	seedRequest(t, store, "req-1", model.APositive, 1, model.StatusPending)

	_, err := store.FulfillRequest(ctx, "req-1", "bank-1")
	require.ErrorIs(t, err, ErrInvalidTransition)
}

// Two simultaneous fulfillments against stock that covers only one must end
// with exactly one success and non-negative stock.
func TestFulfillRequestConcurrent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seedBank(t, store, "bank-1")
	seedDonor(t, store, "user-1", model.BPositive, nil)

	_, _, err := store.CreateDonation(ctx, "user-1", "bank-1", 4, 100, testNow)
	require.NoError(t, err)

	seedRequest(t, store, "req-1", model.BPositive, 4, model.StatusApproved)
	seedRequest(t, store, "req-2", model.BPositive, 4, model.StatusApproved)

	var success, insufficient atomic.Int32
	var wg sync.WaitGroup
	for _, id := range []string{"req-1", "req-2"} {
		wg.Add(1)
		go func(requestID string) {
			defer wg.Done()
			_, err := store.FulfillRequest(ctx, requestID, "bank-1")
			switch {
			case err == nil:
				success.Add(1)
			case err == ErrInsufficientStock:
				insufficient.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(id)
	}
	wg.Wait()

	require.Equal(t, int32(1), success.Load())
	require.Equal(t, int32(1), insufficient.Load())

	stock, err := store.BankStock(ctx, "bank-1")
	require.NoError(t, err)
	require.Empty(t, stock)
}

func TestCreateDonorDuplicate(t *testing.T) {
	store := NewMemoryStore()
	seedDonor(t, store, "user-1", model.APositive, nil)

	err := store.CreateDonor(context.Background(), model.Donor{
		ID: "donor-dup", UserID: "user-1", BloodGroup: model.BNegative,
	})
	require.ErrorIs(t, err, ErrAlreadyDonor)
}

func TestCreateDonation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seedBank(t, store, "bank-1")
	seedDonor(t, store, "user-1", model.ONegative, nil)

	donation, badge, err := store.CreateDonation(ctx, "user-1", "bank-1", 3, 200, testNow)
	require.NoError(t, err)
	require.Equal(t, 3, donation.QuantityUnits)
	require.Equal(t, "First Drop", badge)

	donor, err := store.GetDonorByUser(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, donor.LastDonationDate)
	require.Equal(t, testNow, *donor.LastDonationDate)
	require.Equal(t, 200, donor.Points)
	require.Equal(t, 1, donor.TotalDonations)

	totals, err := store.StockTotals(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, totals[model.ONegative])
}

func TestCreateDonationNotEligible(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seedBank(t, store, "bank-1")
	last := testNow.AddDate(0, 0, -30)
	seedDonor(t, store, "user-1", model.ONegative, &last)

	_, _, err := store.CreateDonation(ctx, "user-1", "bank-1", 3, 100, testNow)
	require.ErrorIs(t, err, ErrNotEligible)

	// Nothing committed: stock and donor record unchanged.
	totals, err := store.StockTotals(ctx)
	require.NoError(t, err)
	require.Empty(t, totals)

	donor, err := store.GetDonorByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, last, *donor.LastDonationDate)
	require.Zero(t, donor.TotalDonations)

	history, err := store.DonationHistory(ctx, "user-1")
	require.NoError(t, err)
	require.Empty(t, history)
}

func TestCreateDonationBadgeThresholds(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seedBank(t, store, "bank-1")
	// A donor arriving at their third lifetime donation.
	require.NoError(t, store.CreateDonor(ctx, model.Donor{
		ID: "donor-1", UserID: "user-1", BloodGroup: model.ABPositive, TotalDonations: 2,
	}))

	_, badge, err := store.CreateDonation(ctx, "user-1", "bank-1", 1, 100, testNow)
	require.NoError(t, err)
	require.Equal(t, "Lifesaver", badge)
}

func TestCreateDonationUnknownDonorOrBank(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seedBank(t, store, "bank-1")

	_, _, err := store.CreateDonation(ctx, "stranger", "bank-1", 1, 100, testNow)
	require.ErrorIs(t, err, ErrNotDonor)

	seedDonor(t, store, "user-1", model.APositive, nil)
	_, _, err = store.CreateDonation(ctx, "user-1", "missing-bank", 1, 100, testNow)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStockTotalsAcrossBanks(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seedBank(t, store, "bank-1")
	seedBank(t, store, "bank-2")
	seedDonor(t, store, "user-1", model.APositive, nil)
	seedDonor(t, store, "user-2", model.APositive, nil)

	_, _, err := store.CreateDonation(ctx, "user-1", "bank-1", 7, 100, testNow)
	require.NoError(t, err)
	_, _, err = store.CreateDonation(ctx, "user-2", "bank-2", 5, 100, testNow)
	require.NoError(t, err)

	totals, err := store.StockTotals(ctx)
	require.NoError(t, err)
	require.Equal(t, 12, totals[model.APositive])
}

func TestListRequestsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seedRequest(t, store, "old", model.APositive, 1, model.StatusPending)
	seedRequest(t, store, "new", model.APositive, 1, model.StatusPending)

	reqs, err := store.ListRequests(ctx)
	require.NoError(t, err)
	require.Equal(t, "new", reqs[0].ID)
	require.Equal(t, "old", reqs[1].ID)
}

func TestDeleteBankOwnership(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seedBank(t, store, "bank-1")

	require.ErrorIs(t, store.DeleteBank(ctx, "bank-1", "someone-else"), ErrNotFound)
	require.NoError(t, store.DeleteBank(ctx, "bank-1", "admin-1"))
	_, err := store.GetBank(ctx, "bank-1")
	require.ErrorIs(t, err, ErrNotFound)
}
