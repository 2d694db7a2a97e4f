// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"

	"bloodlink/internal/model"
)

// ErrValidation marks a locally-detectable bad input: a malformed or missing
// field, a non-positive quantity, or an unknown enum value. Handlers branch on
// it with errors.Is.
var ErrValidation = errors.New("validation error")

// Cache is an optional read-cache for operations that clients poll. Both the
// summary and match-donors reads tolerate up to 15 seconds of staleness, so
// implementations use a TTL of that order. A nil Cache disables caching;
// cache failures are never surfaced to callers.
type Cache interface {
	Get(ctx context.Context, key string, v any) (bool, error)
	Set(ctx context.Context, key string, v any) error
}

// CompatibilityRule decides whether a donor's blood group can serve a
// request's blood group. The default is strict equality; the rule is a
// parameter so ABO/Rh substitution can be introduced without changing the
// matching contract.
type CompatibilityRule func(request, donor model.BloodGroup) bool

// ExactMatch is the default compatibility rule: exact blood group equality,
// no cross-type substitution.
func ExactMatch(request, donor model.BloodGroup) bool {
	return request == donor
}
