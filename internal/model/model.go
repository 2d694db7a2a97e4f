// Package model defines the core domain types for the blood supply
// coordination system.
package model

import "time"

// BloodGroup is the exact-match compatibility key used throughout the system.
type BloodGroup string

// The eight recognized blood groups.
const (
	APositive  BloodGroup = "A+"
	ANegative  BloodGroup = "A-"
	BPositive  BloodGroup = "B+"
	BNegative  BloodGroup = "B-"
	ABPositive BloodGroup = "AB+"
	ABNegative BloodGroup = "AB-"
	OPositive  BloodGroup = "O+"
	ONegative  BloodGroup = "O-"
)

// BloodGroups lists every recognized group in canonical order. Inventory
// summaries and per-bank views iterate this slice so output order is fixed.
var BloodGroups = []BloodGroup{
	APositive, ANegative,
	BPositive, BNegative,
	ABPositive, ABNegative,
	OPositive, ONegative,
}

// Valid reports whether g is one of the eight recognized groups.
func (g BloodGroup) Valid() bool {
	for _, known := range BloodGroups {
		if g == known {
			return true
		}
	}
	return false
}

// Urgency is the request priority tag. It drives triage ordering only.
type Urgency string

const (
	UrgencyNormal    Urgency = "normal"
	UrgencyEmergency Urgency = "emergency"
)

// Valid reports whether u is a recognized urgency value.
func (u Urgency) Valid() bool {
	return u == UrgencyNormal || u == UrgencyEmergency
}

// RequestStatus is the lifecycle state of a BloodRequest.
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusApproved  RequestStatus = "approved"
	StatusRejected  RequestStatus = "rejected"
	StatusFulfilled RequestStatus = "fulfilled"
)

// Valid reports whether s is a recognized status value.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusFulfilled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is legal from s.
func (s RequestStatus) Terminal() bool {
	return s == StatusRejected || s == StatusFulfilled
}

// CanTransition reports whether the edge s -> next exists in the lifecycle
// graph: pending -> {approved, rejected}; approved -> fulfilled.
func (s RequestStatus) CanTransition(next RequestStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusApproved || next == StatusRejected
	case StatusApproved:
		return next == StatusFulfilled
	}
	return false
}

// Classification is the health label derived from total inventory units.
type Classification string

const (
	StockCritical Classification = "critical"
	StockLow      Classification = "low"
	StockHealthy  Classification = "healthy"
)

// Classification thresholds, in units.
const (
	CriticalMaxUnits = 10
	LowMaxUnits      = 20
)

// ClassifyUnits maps a total unit count to its health label.
// It consults nothing but the total.
func ClassifyUnits(total int) Classification {
	switch {
	case total <= CriticalMaxUnits:
		return StockCritical
	case total <= LowMaxUnits:
		return StockLow
	default:
		return StockHealthy
	}
}

// Role identifies what a verified caller is allowed to do. Verification itself
// happens upstream; the core only ever sees the result.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleDonor    Role = "donor"
	RolePatient  Role = "patient"
	RoleHospital Role = "hospital"
)

// Valid reports whether r is a recognized role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDonor, RolePatient, RoleHospital:
		return true
	}
	return false
}

// Actor is the verified identity an upstream gateway attaches to each call.
type Actor struct {
	UserID string
	Role   Role
}

// User is a profile record. Credentials live in the external identity layer.
type User struct {
	ID        string    `json:"user_id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Phone     string    `json:"phone"`
	City      string    `json:"city"`
	CreatedAt time.Time `json:"created_at"`
}

// Donor is a user's donor registration. One donor record per user.
// LastDonationDate is nil until the first completed donation and afterwards
// only ever moves forward.
type Donor struct {
	ID               string     `json:"donor_id"`
	UserID           string     `json:"user_id"`
	BloodGroup       BloodGroup `json:"blood_group"`
	LastDonationDate *time.Time `json:"last_donation_date,omitempty"`
	Points           int        `json:"points"`
	TotalDonations   int        `json:"total_donations"`
}

// Donation is an immutable record of a completed donation.
type Donation struct {
	ID            string    `json:"donation_id"`
	DonorID       string    `json:"donor_id"`
	BloodBankID   string    `json:"blood_bank_id"`
	QuantityUnits int       `json:"quantity_units"`
	DonationDate  time.Time `json:"donation_date"`
}

// DonationHistoryEntry is a donation joined with its bank for display.
type DonationHistoryEntry struct {
	DonationDate  time.Time `json:"donation_date"`
	QuantityUnits int       `json:"quantity_units"`
	BloodBankName string    `json:"blood_bank_name"`
	City          string    `json:"city"`
}

// BloodBank is a stock-holding facility. Stock itself is kept per
// (bank, blood group) by the store.
type BloodBank struct {
	ID            string    `json:"blood_bank_id"`
	Name          string    `json:"name"`
	City          string    `json:"city"`
	Address       string    `json:"address"`
	ContactNumber string    `json:"contact_number"`
	AdminUserID   string    `json:"admin_user_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// BloodRequest represents demand for blood. Creating one performs no
// inventory check and reserves nothing.
type BloodRequest struct {
	ID            string        `json:"request_id"`
	UserID        string        `json:"user_id"`
	BloodGroup    BloodGroup    `json:"blood_group"`
	QuantityUnits int           `json:"quantity_units"`
	Urgency       Urgency       `json:"urgency"`
	City          string        `json:"city"`
	Status        RequestStatus `json:"status"`
	RequestDate   time.Time     `json:"request_date"`
}

// InventorySummary is derived on demand from bank stock; it is never stored.
type InventorySummary struct {
	BloodGroup     BloodGroup     `json:"blood_group"`
	TotalUnits     int            `json:"total_units"`
	Classification Classification `json:"classification"`
}

// BankStockEntry is one nonzero stock row of a single bank.
type BankStockEntry struct {
	BloodGroup BloodGroup `json:"blood_group"`
	Units      int        `json:"units"`
}

// MatchedDonor is one entry of a donor-matching result.
type MatchedDonor struct {
	DonorID    string     `json:"donor_id"`
	FullName   string     `json:"full_name"`
	Phone      string     `json:"phone"`
	BloodGroup BloodGroup `json:"blood_group"`
}

// CreateUserRequest is the payload for creating a user profile.
type CreateUserRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	Phone    string `json:"phone"`
	City     string `json:"city"`
}

// CreateBankRequest is the payload for creating a blood bank.
type CreateBankRequest struct {
	Name          string `json:"name"`
	City          string `json:"city"`
	Address       string `json:"address"`
	ContactNumber string `json:"contact_number"`
}

// RegisterDonorRequest is the payload for registering the caller as a donor.
type RegisterDonorRequest struct {
	BloodGroup BloodGroup `json:"blood_group"`
}

// CreateDonationRequest is the payload for recording a donation.
type CreateDonationRequest struct {
	BloodBankID   string `json:"blood_bank_id"`
	QuantityUnits int    `json:"quantity_units"`
	Emergency     bool   `json:"emergency"`
}

// CreateBloodRequestPayload is the payload for creating a blood request.
type CreateBloodRequestPayload struct {
	BloodGroup    BloodGroup `json:"blood_group"`
	QuantityUnits int        `json:"quantity_units"`
	Urgency       Urgency    `json:"urgency"`
	City          string     `json:"city"`
}

// UpdateStatusRequest is the payload for a lifecycle transition.
type UpdateStatusRequest struct {
	Status RequestStatus `json:"status"`
}

// FulfillRequest selects the bank a request is fulfilled against.
type FulfillRequest struct {
	BloodBankID string `json:"blood_bank_id"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
