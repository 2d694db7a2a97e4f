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
	"bloodlink/internal/triage"
)

// RequestService owns the blood request lifecycle and donor matching.
type RequestService struct {
	store repository.Store
	cache Cache
	rule  CompatibilityRule
	log   *zap.Logger
	now   func() time.Time
}

// NewRequestService constructs a RequestService. cache may be nil; a nil rule
// defaults to ExactMatch.
func NewRequestService(store repository.Store, cache Cache, rule CompatibilityRule, log *zap.Logger) *RequestService {
	if rule == nil {
		rule = ExactMatch
	}
	return &RequestService{store: store, cache: cache, rule: rule, log: log, now: time.Now}
}

// Create validates and stores a new blood request in pending state. No
// inventory check happens here: a request represents demand, not a
// reservation.
func (s *RequestService) Create(ctx context.Context, actor model.Actor, req model.CreateBloodRequestPayload) (*model.BloodRequest, error) {
	if !req.BloodGroup.Valid() {
		return nil, fmt.Errorf("%w: unknown blood group %q", ErrValidation, req.BloodGroup)
	}
	if req.QuantityUnits <= 0 {
		return nil, fmt.Errorf("%w: quantity_units must be a positive integer", ErrValidation)
	}
	if req.Urgency == "" {
		req.Urgency = model.UrgencyNormal
	}
	if !req.Urgency.Valid() {
		return nil, fmt.Errorf("%w: unknown urgency %q", ErrValidation, req.Urgency)
	}

	request := &model.BloodRequest{
		ID:            uuid.New().String(),
		UserID:        actor.UserID,
		BloodGroup:    req.BloodGroup,
		QuantityUnits: req.QuantityUnits,
		Urgency:       req.Urgency,
		City:          req.City,
		Status:        model.StatusPending,
		RequestDate:   s.now().UTC(),
	}
	if err := s.store.CreateRequest(ctx, *request); err != nil {
		return nil, fmt.Errorf("create blood request: %w", err)
	}
	s.log.Info("blood request created",
		zap.String("request_id", request.ID),
		zap.String("blood_group", string(request.BloodGroup)),
		zap.String("urgency", string(request.Urgency)),
	)
	return request, nil
}

// List returns all requests in triage order: emergency before normal, stable
// within each tier.
func (s *RequestService) List(ctx context.Context) ([]model.BloodRequest, error) {
	reqs, err := s.store.ListRequests(ctx)
	if err != nil {
		return nil, err
	}
	return triage.Order(reqs), nil
}

// ListByUser returns the caller's own requests, newest first.
func (s *RequestService) ListByUser(ctx context.Context, userID string) ([]model.BloodRequest, error) {
	return s.store.ListRequestsByUser(ctx, userID)
}

// Get returns a single request.
func (s *RequestService) Get(ctx context.Context, id string) (*model.BloodRequest, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: request id is required", ErrValidation)
	}
	return s.store.GetRequest(ctx, id)
}

// SetStatus applies an administrative transition. Only approved and rejected
// are reachable through this operation; fulfillment has its own path. Role
// policy is the caller's concern; the actor is taken for the audit log.
func (s *RequestService) SetStatus(ctx context.Context, id string, next model.RequestStatus, actor model.Actor) (*model.BloodRequest, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: request id is required", ErrValidation)
	}
	if next != model.StatusApproved && next != model.StatusRejected {
		return nil, fmt.Errorf("%w: status must be approved or rejected", ErrValidation)
	}

	request, err := s.store.UpdateRequestStatus(ctx, id, next)
	if err != nil {
		return nil, err
	}
	s.log.Info("blood request status changed",
		zap.String("request_id", id),
		zap.String("status", string(next)),
		zap.String("actor", actor.UserID),
	)
	return request, nil
}

// Fulfill moves an approved request to fulfilled against the selected bank,
// decrementing its stock atomically. On ErrInsufficientStock the request
// stays approved and the caller picks another bank; quantity is never
// silently downgraded.
func (s *RequestService) Fulfill(ctx context.Context, id, bankID string, actor model.Actor) (*model.BloodRequest, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: request id is required", ErrValidation)
	}
	if bankID == "" {
		return nil, fmt.Errorf("%w: blood_bank_id is required", ErrValidation)
	}

	request, err := s.store.FulfillRequest(ctx, id, bankID)
	if err != nil {
		return nil, err
	}
	s.log.Info("blood request fulfilled",
		zap.String("request_id", id),
		zap.String("bank_id", bankID),
		zap.String("actor", actor.UserID),
	)
	return request, nil
}

// MatchDonors returns donors whose blood group is compatible with the request
// and who are eligible as of the call time, filtered to the request's city
// when one is set. It is read-only and idempotent: it reserves nothing and is
// safe to poll, so the same donor may match several simultaneous requests.
// Output order is unspecified; callers must not depend on it.
func (s *RequestService) MatchDonors(ctx context.Context, requestID string) ([]model.MatchedDonor, error) {
	request, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}

	cacheKey := "match:" + requestID
	if s.cache != nil {
		var cached []model.MatchedDonor
		hit, err := s.cache.Get(ctx, cacheKey, &cached)
		if err != nil {
			s.log.Warn("match cache read failed", zap.Error(err))
		} else if hit {
			return cached, nil
		}
	}

	// One read gives all candidates a single consistent point in time.
	candidates, err := s.store.DonorCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("match donors: %w", err)
	}

	now := s.now()
	matches := make([]model.MatchedDonor, 0)
	for _, c := range candidates {
		if !s.rule(request.BloodGroup, c.BloodGroup) {
			continue
		}
		if !eligibility.Evaluate(c.LastDonationDate, now).Eligible {
			continue
		}
		if request.City != "" && c.City != request.City {
			continue
		}
		matches = append(matches, model.MatchedDonor{
			DonorID:    c.ID,
			FullName:   c.FullName,
			Phone:      c.Phone,
			BloodGroup: c.BloodGroup,
		})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, matches); err != nil {
			s.log.Warn("match cache write failed", zap.Error(err))
		}
	}
	return matches, nil
}
