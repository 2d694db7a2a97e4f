package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"bloodlink/internal/eligibility"
	"bloodlink/internal/model"
)

// MemoryStore keeps all records in-process. It backs tests and local runs
// without PostgreSQL; the mutex gives the same serialization guarantees the
// database transactions provide in the pgx store.
type MemoryStore struct {
	mu           sync.RWMutex
	users        map[string]model.User
	banks        map[string]model.BloodBank
	bankOrder    []string
	stock        map[string]map[model.BloodGroup]int // bank ID -> group -> units
	donors       map[string]model.Donor              // donor ID -> donor
	donorByUser  map[string]string                   // user ID -> donor ID
	donorOrder   []string
	donations    []model.Donation
	badges       map[string][]string // donor ID -> badge names
	requests     map[string]model.BloodRequest
	requestOrder []string
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[string]model.User),
		banks:       make(map[string]model.BloodBank),
		stock:       make(map[string]map[model.BloodGroup]int),
		donors:      make(map[string]model.Donor),
		donorByUser: make(map[string]string),
		badges:      make(map[string][]string),
		requests:    make(map[string]model.BloodRequest),
	}
}

func (m *MemoryStore) CreateUser(_ context.Context, u model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func (m *MemoryStore) GetUser(_ context.Context, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *MemoryStore) CreateBank(_ context.Context, b model.BloodBank) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.banks[b.ID] = b
	m.bankOrder = append(m.bankOrder, b.ID)
	m.stock[b.ID] = make(map[model.BloodGroup]int)
	return nil
}

func (m *MemoryStore) ListBanks(_ context.Context) ([]model.BloodBank, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	banks := make([]model.BloodBank, 0, len(m.bankOrder))
	for _, id := range m.bankOrder {
		banks = append(banks, m.banks[id])
	}
	return banks, nil
}

func (m *MemoryStore) GetBank(_ context.Context, id string) (*model.BloodBank, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.banks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (m *MemoryStore) DeleteBank(_ context.Context, id, adminUserID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.banks[id]
	if !ok || b.AdminUserID != adminUserID {
		return ErrNotFound
	}
	delete(m.banks, id)
	delete(m.stock, id)
	kept := m.bankOrder[:0]
	for _, bankID := range m.bankOrder {
		if bankID != id {
			kept = append(kept, bankID)
		}
	}
	m.bankOrder = kept
	return nil
}

func (m *MemoryStore) StockTotals(_ context.Context) (map[model.BloodGroup]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	totals := make(map[model.BloodGroup]int)
	for _, byGroup := range m.stock {
		for group, units := range byGroup {
			totals[group] += units
		}
	}
	return totals, nil
}

func (m *MemoryStore) BankStock(_ context.Context, bankID string) ([]model.BankStockEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	byGroup, ok := m.stock[bankID]
	if !ok {
		return nil, ErrNotFound
	}
	var entries []model.BankStockEntry
	for _, group := range model.BloodGroups {
		if units := byGroup[group]; units > 0 {
			entries = append(entries, model.BankStockEntry{BloodGroup: group, Units: units})
		}
	}
	return entries, nil
}

func (m *MemoryStore) CreateDonor(_ context.Context, d model.Donor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.donorByUser[d.UserID]; exists {
		return ErrAlreadyDonor
	}
	m.donors[d.ID] = d
	m.donorByUser[d.UserID] = d.ID
	m.donorOrder = append(m.donorOrder, d.ID)
	return nil
}

func (m *MemoryStore) GetDonorByUser(_ context.Context, userID string) (*model.Donor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.donorByUser[userID]
	if !ok {
		return nil, ErrNotDonor
	}
	d := m.donors[id]
	return &d, nil
}

func (m *MemoryStore) DonorCandidates(_ context.Context) ([]DonorCandidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	candidates := make([]DonorCandidate, 0, len(m.donorOrder))
	for _, id := range m.donorOrder {
		d := m.donors[id]
		c := DonorCandidate{Donor: d}
		if u, ok := m.users[d.UserID]; ok {
			c.FullName = u.FullName
			c.Phone = u.Phone
			c.City = u.City
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

func (m *MemoryStore) CreateDonation(_ context.Context, userID, bankID string, quantityUnits, points int, now time.Time) (*model.Donation, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	donorID, ok := m.donorByUser[userID]
	if !ok {
		return nil, "", ErrNotDonor
	}
	donor := m.donors[donorID]

	if _, ok := m.banks[bankID]; !ok {
		return nil, "", ErrNotFound
	}

	if !eligibility.Evaluate(donor.LastDonationDate, now).Eligible {
		return nil, "", ErrNotEligible
	}

	donation := model.Donation{
		ID:            uuid.New().String(),
		DonorID:       donor.ID,
		BloodBankID:   bankID,
		QuantityUnits: quantityUnits,
		DonationDate:  now,
	}
	m.donations = append(m.donations, donation)
	m.stock[bankID][donor.BloodGroup] += quantityUnits

	donationDate := now
	donor.LastDonationDate = &donationDate
	donor.Points += points
	donor.TotalDonations++
	m.donors[donor.ID] = donor

	badge := badgeFor(donor.TotalDonations)
	if badge != "" {
		m.badges[donor.ID] = append(m.badges[donor.ID], badge)
	}

	return &donation, badge, nil
}

func (m *MemoryStore) DonationHistory(_ context.Context, userID string) ([]model.DonationHistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	donorID, ok := m.donorByUser[userID]
	if !ok {
		return nil, ErrNotDonor
	}
	// Newest first.
	var history []model.DonationHistoryEntry
	for i := len(m.donations) - 1; i >= 0; i-- {
		d := m.donations[i]
		if d.DonorID != donorID {
			continue
		}
		entry := model.DonationHistoryEntry{
			DonationDate:  d.DonationDate,
			QuantityUnits: d.QuantityUnits,
		}
		if b, ok := m.banks[d.BloodBankID]; ok {
			entry.BloodBankName = b.Name
			entry.City = b.City
		}
		history = append(history, entry)
	}
	return history, nil
}

func (m *MemoryStore) CreateRequest(_ context.Context, r model.BloodRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[r.ID] = r
	m.requestOrder = append(m.requestOrder, r.ID)
	return nil
}

func (m *MemoryStore) GetRequest(_ context.Context, id string) (*model.BloodRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *MemoryStore) ListRequests(_ context.Context) ([]model.BloodRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	// Newest first, matching the ORDER BY request_date DESC of the pgx store.
	reqs := make([]model.BloodRequest, 0, len(m.requestOrder))
	for i := len(m.requestOrder) - 1; i >= 0; i-- {
		reqs = append(reqs, m.requests[m.requestOrder[i]])
	}
	return reqs, nil
}

func (m *MemoryStore) ListRequestsByUser(_ context.Context, userID string) ([]model.BloodRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var reqs []model.BloodRequest
	for i := len(m.requestOrder) - 1; i >= 0; i-- {
		if r := m.requests[m.requestOrder[i]]; r.UserID == userID {
			reqs = append(reqs, r)
		}
	}
	return reqs, nil
}

func (m *MemoryStore) UpdateRequestStatus(_ context.Context, id string, next model.RequestStatus) (*model.BloodRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	if r.Status.Terminal() {
		return nil, ErrTerminalState
	}
	if !r.Status.CanTransition(next) {
		return nil, ErrInvalidTransition
	}

	r.Status = next
	m.requests[id] = r
	return &r, nil
}

func (m *MemoryStore) FulfillRequest(_ context.Context, requestID, bankID string) (*model.BloodRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.requests[requestID]
	if !ok {
		return nil, ErrNotFound
	}
	if r.Status.Terminal() {
		return nil, ErrTerminalState
	}
	if r.Status != model.StatusApproved {
		return nil, ErrInvalidTransition
	}

	byGroup, ok := m.stock[bankID]
	if !ok {
		return nil, ErrNotFound
	}
	if byGroup[r.BloodGroup] < r.QuantityUnits {
		return nil, ErrInsufficientStock
	}

	// Decrement and transition together; the mutex makes the pair atomic.
	byGroup[r.BloodGroup] -= r.QuantityUnits
	r.Status = model.StatusFulfilled
	m.requests[requestID] = r
	return &r, nil
}
