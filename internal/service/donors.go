package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bloodlink/internal/eligibility"
	"bloodlink/internal/model"
	"bloodlink/internal/repository"
)

// Donation reward points.
const (
	donationPoints = 100
	emergencyBonus = 100
)

// DonorService manages donor registration, eligibility, and donations.
type DonorService struct {
	store repository.Store
	log   *zap.Logger
	now   func() time.Time
}

// NewDonorService constructs a DonorService.
func NewDonorService(store repository.Store, log *zap.Logger) *DonorService {
	return &DonorService{store: store, log: log, now: time.Now}
}

// DonorProfile is a donor record together with its eligibility, evaluated at
// call time.
type DonorProfile struct {
	model.Donor
	Eligibility eligibility.Result `json:"eligibility"`
}

// DonationResult summarises a completed donation.
type DonationResult struct {
	Donation      model.Donation `json:"donation"`
	PointsAwarded int            `json:"points_awarded"`
	BadgeAwarded  string         `json:"badge_awarded,omitempty"`
}

// Register records the acting user as a donor. One donor record per user.
func (s *DonorService) Register(ctx context.Context, actor model.Actor, req model.RegisterDonorRequest) (*model.Donor, error) {
	if !req.BloodGroup.Valid() {
		return nil, fmt.Errorf("%w: unknown blood group %q", ErrValidation, req.BloodGroup)
	}

	donor := &model.Donor{
		ID:         uuid.New().String(),
		UserID:     actor.UserID,
		BloodGroup: req.BloodGroup,
	}
	if err := s.store.CreateDonor(ctx, *donor); err != nil {
		return nil, err
	}
	s.log.Info("donor registered",
		zap.String("donor_id", donor.ID),
		zap.String("blood_group", string(donor.BloodGroup)),
	)
	return donor, nil
}

// Profile returns the caller's donor record with eligibility as of now.
func (s *DonorService) Profile(ctx context.Context, userID string) (*DonorProfile, error) {
	donor, err := s.store.GetDonorByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &DonorProfile{
		Donor:       *donor,
		Eligibility: eligibility.Evaluate(donor.LastDonationDate, s.now()),
	}, nil
}

// Donate records a donation for the acting user. The store applies the
// donation record, the stock increment, and the donor update as one atomic
// step; an ineligible donor leaves every record unchanged.
func (s *DonorService) Donate(ctx context.Context, actor model.Actor, req model.CreateDonationRequest) (*DonationResult, error) {
	if req.BloodBankID == "" {
		return nil, fmt.Errorf("%w: blood_bank_id is required", ErrValidation)
	}
	if req.QuantityUnits <= 0 {
		return nil, fmt.Errorf("%w: quantity_units must be a positive integer", ErrValidation)
	}

	points := donationPoints
	if req.Emergency {
		points += emergencyBonus
	}

	donation, badge, err := s.store.CreateDonation(ctx, actor.UserID, req.BloodBankID, req.QuantityUnits, points, s.now().UTC())
	if err != nil {
		return nil, err
	}

	s.log.Info("donation recorded",
		zap.String("donation_id", donation.ID),
		zap.String("bank_id", donation.BloodBankID),
		zap.Int("units", donation.QuantityUnits),
	)
	return &DonationResult{
		Donation:      *donation,
		PointsAwarded: points,
		BadgeAwarded:  badge,
	}, nil
}

// History returns the caller's donation history, newest first.
func (s *DonorService) History(ctx context.Context, userID string) ([]model.DonationHistoryEntry, error) {
	return s.store.DonationHistory(ctx, userID)
}
