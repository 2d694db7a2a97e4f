// Package repository defines the persistence contract for the blood supply
// system and its domain error taxonomy. Two implementations exist: a
// PostgreSQL store using pgx directly (no ORM) and an in-memory store.
package repository

import (
	"context"
	"errors"
	"time"

	"bloodlink/internal/model"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyDonor is returned when a user registers as donor twice.
var ErrAlreadyDonor = errors.New("user already registered as donor")

// ErrNotDonor is returned when a donor-only operation is attempted by a user
// with no donor record.
var ErrNotDonor = errors.New("user is not registered as donor")

// ErrNotEligible is returned when a donation is attempted before the cooldown
// window has expired. No record is created.
var ErrNotEligible = errors.New("donor is not eligible to donate")

// ErrInsufficientStock is returned when a fulfillment would drive a bank's
// stock negative. The request and stock are left unchanged.
var ErrInsufficientStock = errors.New("insufficient blood stock")

// ErrInvalidTransition is returned for a status change along an edge that is
// not part of the request lifecycle graph.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrTerminalState is returned when any transition is attempted on a request
// already in a terminal state (rejected or fulfilled).
var ErrTerminalState = errors.New("request is in a terminal state")

// DonorCandidate is a donor joined with the user fields the matching engine
// filters and reports on. Candidates are read at a single consistent point in
// time per call.
type DonorCandidate struct {
	model.Donor
	FullName string
	Phone    string
	City     string
}

// Store is the persistence contract the service layer is written against.
// Mutating operations are atomic: either the full state change commits, or
// nothing does.
type Store interface {
	// users
	CreateUser(ctx context.Context, u model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)

	// blood banks
	CreateBank(ctx context.Context, b model.BloodBank) error
	ListBanks(ctx context.Context) ([]model.BloodBank, error)
	GetBank(ctx context.Context, id string) (*model.BloodBank, error)
	DeleteBank(ctx context.Context, id, adminUserID string) error

	// inventory
	StockTotals(ctx context.Context) (map[model.BloodGroup]int, error)
	BankStock(ctx context.Context, bankID string) ([]model.BankStockEntry, error)

	// donors
	CreateDonor(ctx context.Context, d model.Donor) error
	GetDonorByUser(ctx context.Context, userID string) (*model.Donor, error)
	DonorCandidates(ctx context.Context) ([]DonorCandidate, error)

	// donations. CreateDonation checks eligibility, records the donation,
	// increments bank stock, and advances the donor record as one atomic step.
	// It returns the donation and the badge awarded, if any.
	CreateDonation(ctx context.Context, userID, bankID string, quantityUnits, points int, now time.Time) (*model.Donation, string, error)
	DonationHistory(ctx context.Context, userID string) ([]model.DonationHistoryEntry, error)

	// blood requests
	CreateRequest(ctx context.Context, r model.BloodRequest) error
	GetRequest(ctx context.Context, id string) (*model.BloodRequest, error)
	ListRequests(ctx context.Context) ([]model.BloodRequest, error)
	ListRequestsByUser(ctx context.Context, userID string) ([]model.BloodRequest, error)

	// UpdateRequestStatus applies a lifecycle transition, enforcing the state
	// graph under the same lock that serializes concurrent transitions.
	UpdateRequestStatus(ctx context.Context, id string, next model.RequestStatus) (*model.BloodRequest, error)

	// FulfillRequest decrements the bank's stock for the request's blood group
	// and moves the request approved -> fulfilled as a single atomic step.
	// On ErrInsufficientStock the request remains approved.
	FulfillRequest(ctx context.Context, requestID, bankID string) (*model.BloodRequest, error)
}

// Badges awarded at lifetime donation milestones.
const (
	badgeFirstDrop  = "First Drop"
	badgeLifesaver  = "Lifesaver"
	badgeEliteDonor = "Elite Donor"
)

// badgeFor returns the badge earned by reaching the given lifetime donation
// count, or "" when the count is not a threshold.
func badgeFor(totalDonations int) string {
	switch totalDonations {
	case 1:
		return badgeFirstDrop
	case 3:
		return badgeLifesaver
	case 10:
		return badgeEliteDonor
	}
	return ""
}
