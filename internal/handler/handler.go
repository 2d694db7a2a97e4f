// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bloodlink/internal/model"
	"bloodlink/internal/repository"
	"bloodlink/internal/service"
)

// Handler holds all HTTP handlers for the blood supply API.
type Handler struct {
	users     *service.UserService
	inventory *service.InventoryService
	donors    *service.DonorService
	requests  *service.RequestService
}

// New constructs a Handler.
func New(users *service.UserService, inventory *service.InventoryService, donors *service.DonorService, requests *service.RequestService) *Handler {
	return &Handler{users: users, inventory: inventory, donors: donors, requests: requests}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeServiceError maps the domain error taxonomy onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, repository.ErrNotDonor):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, repository.ErrAlreadyDonor),
		errors.Is(err, repository.ErrNotEligible),
		errors.Is(err, repository.ErrInsufficientStock),
		errors.Is(err, repository.ErrInvalidTransition),
		errors.Is(err, repository.ErrTerminalState):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// ─── Users ────────────────────────────────────────────────────────────────────

// CreateUser handles POST /users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req model.CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	user, err := h.users.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// GetMe handles GET /users/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	actor := ActorFrom(r.Context())

	user, err := h.users.Get(r.Context(), actor.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ─── Blood banks & inventory ──────────────────────────────────────────────────

// CreateBank handles POST /blood-banks
func (h *Handler) CreateBank(w http.ResponseWriter, r *http.Request) {
	var req model.CreateBankRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	bank, err := h.inventory.CreateBank(r.Context(), ActorFrom(r.Context()), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bank)
}

// ListBanks handles GET /blood-banks
func (h *Handler) ListBanks(w http.ResponseWriter, r *http.Request) {
	banks, err := h.inventory.ListBanks(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if banks == nil {
		banks = []model.BloodBank{}
	}
	writeJSON(w, http.StatusOK, banks)
}

// DeleteBank handles DELETE /blood-banks/{id}
func (h *Handler) DeleteBank(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.inventory.DeleteBank(r.Context(), ActorFrom(r.Context()), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "blood bank deleted"})
}

// InventorySummary handles GET /inventory/summary
// An empty array means no inventory data; callers render it as such.
func (h *Handler) InventorySummary(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.inventory.Summary(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if summaries == nil {
		summaries = []model.InventorySummary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

// BankInventory handles GET /inventory/{bankID}
func (h *Handler) BankInventory(w http.ResponseWriter, r *http.Request) {
	bankID := chi.URLParam(r, "bankID")

	entries, err := h.inventory.BankStock(r.Context(), bankID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []model.BankStockEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"blood_bank_id": bankID,
		"inventory":     entries,
	})
}

// ─── Donors & donations ───────────────────────────────────────────────────────

// RegisterDonor handles POST /donors
func (h *Handler) RegisterDonor(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterDonorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	donor, err := h.donors.Register(r.Context(), ActorFrom(r.Context()), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, donor)
}

// DonorMe handles GET /donors/me
// Eligibility is evaluated at call time, never cached across calendar days.
func (h *Handler) DonorMe(w http.ResponseWriter, r *http.Request) {
	profile, err := h.donors.Profile(r.Context(), ActorFrom(r.Context()).UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// CreateDonation handles POST /donations
func (h *Handler) CreateDonation(w http.ResponseWriter, r *http.Request) {
	var req model.CreateDonationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := h.donors.Donate(r.Context(), ActorFrom(r.Context()), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// DonationHistory handles GET /donations/me
func (h *Handler) DonationHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.donors.History(r.Context(), ActorFrom(r.Context()).UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if history == nil {
		history = []model.DonationHistoryEntry{}
	}
	writeJSON(w, http.StatusOK, history)
}

// ─── Blood requests ───────────────────────────────────────────────────────────

// CreateRequest handles POST /blood-requests
func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var req model.CreateBloodRequestPayload
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	request, err := h.requests.Create(r.Context(), ActorFrom(r.Context()), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, request)
}

// ListRequests handles GET /blood-requests
// Requests are returned in triage order: emergencies first.
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.requests.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if reqs == nil {
		reqs = []model.BloodRequest{}
	}
	writeJSON(w, http.StatusOK, reqs)
}

// MyRequests handles GET /blood-requests/me
func (h *Handler) MyRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.requests.ListByUser(r.Context(), ActorFrom(r.Context()).UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if reqs == nil {
		reqs = []model.BloodRequest{}
	}
	writeJSON(w, http.StatusOK, reqs)
}

// UpdateRequestStatus handles PUT /blood-requests/{id}/status
func (h *Handler) UpdateRequestStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req model.UpdateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	request, err := h.requests.SetStatus(r.Context(), id, req.Status, ActorFrom(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, request)
}

// FulfillRequest handles POST /blood-requests/{id}/fulfill
func (h *Handler) FulfillRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req model.FulfillRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	request, err := h.requests.Fulfill(r.Context(), id, req.BloodBankID, ActorFrom(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, request)
}

// MatchDonors handles GET /blood-requests/{id}/match-donors
// Read-only and side-effect free; clients poll it while a request is open.
func (h *Handler) MatchDonors(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	matches, err := h.requests.MatchDonors(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matched_donors": matches})
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
