package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"bloodlink/internal/eligibility"
	"bloodlink/internal/model"
)

// PostgresStore implements Store on a pgxpool connection pool.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore and bootstraps the schema.
func NewPostgresStore(ctx context.Context, db *pgxpool.Pool) (*PostgresStore, error) {
	s := &PostgresStore{db: db}
	if err := s.createTables(ctx); err != nil {
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) createTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(36) PRIMARY KEY,
			full_name TEXT NOT NULL,
			email TEXT NOT NULL,
			role VARCHAR(10) NOT NULL,
			phone TEXT NOT NULL DEFAULT '',
			city TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS blood_banks (
			id VARCHAR(36) PRIMARY KEY,
			name TEXT NOT NULL,
			city TEXT NOT NULL,
			address TEXT NOT NULL DEFAULT '',
			contact_number TEXT NOT NULL DEFAULT '',
			admin_user_id VARCHAR(36) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS bank_stock (
			bank_id VARCHAR(36) NOT NULL,
			blood_group VARCHAR(3) NOT NULL,
			units INTEGER NOT NULL CHECK (units >= 0),
			PRIMARY KEY (bank_id, blood_group)
		)`,
		`CREATE TABLE IF NOT EXISTS donors (
			id VARCHAR(36) PRIMARY KEY,
			user_id VARCHAR(36) NOT NULL UNIQUE,
			blood_group VARCHAR(3) NOT NULL,
			last_donation_date TIMESTAMPTZ,
			points INTEGER NOT NULL DEFAULT 0,
			total_donations INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS donations (
			id VARCHAR(36) PRIMARY KEY,
			donor_id VARCHAR(36) NOT NULL,
			blood_bank_id VARCHAR(36) NOT NULL,
			quantity_units INTEGER NOT NULL CHECK (quantity_units > 0),
			donation_date TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS donor_badges (
			donor_id VARCHAR(36) NOT NULL,
			badge_name TEXT NOT NULL,
			awarded_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS blood_requests (
			id VARCHAR(36) PRIMARY KEY,
			user_id VARCHAR(36) NOT NULL,
			blood_group VARCHAR(3) NOT NULL,
			quantity_units INTEGER NOT NULL CHECK (quantity_units > 0),
			urgency VARCHAR(10) NOT NULL,
			city TEXT NOT NULL DEFAULT '',
			status VARCHAR(10) NOT NULL,
			request_date TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, u model.User) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO users (id, full_name, email, role, phone, city, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.FullName, u.Email, u.Role, u.Phone, u.City, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := s.db.QueryRow(ctx,
		`SELECT id, full_name, email, role, phone, city, created_at
		 FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.FullName, &u.Email, &u.Role, &u.Phone, &u.City, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) CreateBank(ctx context.Context, b model.BloodBank) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO blood_banks (id, name, city, address, contact_number, admin_user_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		b.ID, b.Name, b.City, b.Address, b.ContactNumber, b.AdminUserID, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert blood bank: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBanks(ctx context.Context) ([]model.BloodBank, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, city, address, contact_number, admin_user_id, created_at
		 FROM blood_banks
		 ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list blood banks: %w", err)
	}
	defer rows.Close()

	var banks []model.BloodBank
	for rows.Next() {
		var b model.BloodBank
		if err := rows.Scan(&b.ID, &b.Name, &b.City, &b.Address, &b.ContactNumber, &b.AdminUserID, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan blood bank: %w", err)
		}
		banks = append(banks, b)
	}
	return banks, rows.Err()
}

func (s *PostgresStore) GetBank(ctx context.Context, id string) (*model.BloodBank, error) {
	var b model.BloodBank
	err := s.db.QueryRow(ctx,
		`SELECT id, name, city, address, contact_number, admin_user_id, created_at
		 FROM blood_banks WHERE id = $1`,
		id,
	).Scan(&b.ID, &b.Name, &b.City, &b.Address, &b.ContactNumber, &b.AdminUserID, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get blood bank: %w", err)
	}
	return &b, nil
}

func (s *PostgresStore) DeleteBank(ctx context.Context, id, adminUserID string) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM blood_banks WHERE id = $1 AND admin_user_id = $2`,
		id, adminUserID,
	)
	if err != nil {
		return fmt.Errorf("delete blood bank: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	_, err = s.db.Exec(ctx, `DELETE FROM bank_stock WHERE bank_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete bank stock: %w", err)
	}
	return nil
}

func (s *PostgresStore) StockTotals(ctx context.Context) (map[model.BloodGroup]int, error) {
	rows, err := s.db.Query(ctx,
		`SELECT blood_group, SUM(units)
		 FROM bank_stock
		 GROUP BY blood_group`,
	)
	if err != nil {
		return nil, fmt.Errorf("sum stock: %w", err)
	}
	defer rows.Close()

	totals := make(map[model.BloodGroup]int)
	for rows.Next() {
		var group model.BloodGroup
		var units int
		if err := rows.Scan(&group, &units); err != nil {
			return nil, fmt.Errorf("scan stock total: %w", err)
		}
		totals[group] = units
	}
	return totals, rows.Err()
}

func (s *PostgresStore) BankStock(ctx context.Context, bankID string) ([]model.BankStockEntry, error) {
	if _, err := s.GetBank(ctx, bankID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx,
		`SELECT blood_group, units
		 FROM bank_stock
		 WHERE bank_id = $1 AND units > 0`,
		bankID,
	)
	if err != nil {
		return nil, fmt.Errorf("bank stock: %w", err)
	}
	defer rows.Close()

	byGroup := make(map[model.BloodGroup]int)
	for rows.Next() {
		var group model.BloodGroup
		var units int
		if err := rows.Scan(&group, &units); err != nil {
			return nil, fmt.Errorf("scan bank stock: %w", err)
		}
		byGroup[group] = units
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Canonical blood group order, matching the summary view.
	var entries []model.BankStockEntry
	for _, group := range model.BloodGroups {
		if units, ok := byGroup[group]; ok {
			entries = append(entries, model.BankStockEntry{BloodGroup: group, Units: units})
		}
	}
	return entries, nil
}

func (s *PostgresStore) CreateDonor(ctx context.Context, d model.Donor) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO donors (id, user_id, blood_group, last_donation_date, points, total_donations)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		d.ID, d.UserID, d.BloodGroup, d.LastDonationDate, d.Points, d.TotalDonations,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyDonor
		}
		return fmt.Errorf("insert donor: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetDonorByUser(ctx context.Context, userID string) (*model.Donor, error) {
	var d model.Donor
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, blood_group, last_donation_date, points, total_donations
		 FROM donors WHERE user_id = $1`,
		userID,
	).Scan(&d.ID, &d.UserID, &d.BloodGroup, &d.LastDonationDate, &d.Points, &d.TotalDonations)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotDonor
		}
		return nil, fmt.Errorf("get donor: %w", err)
	}
	return &d, nil
}

func (s *PostgresStore) DonorCandidates(ctx context.Context) ([]DonorCandidate, error) {
	rows, err := s.db.Query(ctx,
		`SELECT d.id, d.user_id, d.blood_group, d.last_donation_date, d.points, d.total_donations,
		        u.full_name, u.phone, u.city
		 FROM donors d
		 JOIN users u ON d.user_id = u.id
		 ORDER BY d.id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("donor candidates: %w", err)
	}
	defer rows.Close()

	var candidates []DonorCandidate
	for rows.Next() {
		var c DonorCandidate
		if err := rows.Scan(&c.ID, &c.UserID, &c.BloodGroup, &c.LastDonationDate,
			&c.Points, &c.TotalDonations, &c.FullName, &c.Phone, &c.City); err != nil {
			return nil, fmt.Errorf("scan donor candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// CreateDonation records a donation inside one transaction. The donor row is
// locked with SELECT ... FOR UPDATE so the eligibility check and the
// last_donation_date advance cannot interleave with a concurrent donation by
// the same donor.
func (s *PostgresStore) CreateDonation(ctx context.Context, userID, bankID string, quantityUnits, points int, now time.Time) (_ *model.Donation, _ string, err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var donor model.Donor
	err = tx.QueryRow(ctx,
		`SELECT id, blood_group, last_donation_date, total_donations
		 FROM donors WHERE user_id = $1
		 FOR UPDATE`,
		userID,
	).Scan(&donor.ID, &donor.BloodGroup, &donor.LastDonationDate, &donor.TotalDonations)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", ErrNotDonor
		}
		return nil, "", fmt.Errorf("lock donor row: %w", err)
	}

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM blood_banks WHERE id = $1)`, bankID,
	).Scan(&exists)
	if err != nil {
		return nil, "", fmt.Errorf("check bank: %w", err)
	}
	if !exists {
		return nil, "", ErrNotFound
	}

	if !eligibility.Evaluate(donor.LastDonationDate, now).Eligible {
		return nil, "", ErrNotEligible
	}

	donation := &model.Donation{
		ID:            uuid.New().String(),
		DonorID:       donor.ID,
		BloodBankID:   bankID,
		QuantityUnits: quantityUnits,
		DonationDate:  now,
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO donations (id, donor_id, blood_bank_id, quantity_units, donation_date)
		 VALUES ($1, $2, $3, $4, $5)`,
		donation.ID, donation.DonorID, donation.BloodBankID, donation.QuantityUnits, donation.DonationDate,
	)
	if err != nil {
		return nil, "", fmt.Errorf("insert donation: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO bank_stock (bank_id, blood_group, units)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (bank_id, blood_group)
		 DO UPDATE SET units = bank_stock.units + EXCLUDED.units`,
		bankID, donor.BloodGroup, quantityUnits,
	)
	if err != nil {
		return nil, "", fmt.Errorf("increment stock: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE donors
		 SET last_donation_date = $1,
		     points = points + $2,
		     total_donations = total_donations + 1
		 WHERE id = $3`,
		now, points, donor.ID,
	)
	if err != nil {
		return nil, "", fmt.Errorf("update donor: %w", err)
	}

	badge := badgeFor(donor.TotalDonations + 1)
	if badge != "" {
		_, err = tx.Exec(ctx,
			`INSERT INTO donor_badges (donor_id, badge_name, awarded_at)
			 VALUES ($1, $2, $3)`,
			donor.ID, badge, now,
		)
		if err != nil {
			return nil, "", fmt.Errorf("insert badge: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, "", fmt.Errorf("commit transaction: %w", err)
	}
	return donation, badge, nil
}

func (s *PostgresStore) DonationHistory(ctx context.Context, userID string) ([]model.DonationHistoryEntry, error) {
	if _, err := s.GetDonorByUser(ctx, userID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx,
		`SELECT dn.donation_date, dn.quantity_units, bb.name, bb.city
		 FROM donations dn
		 JOIN donors d ON dn.donor_id = d.id
		 JOIN blood_banks bb ON dn.blood_bank_id = bb.id
		 WHERE d.user_id = $1
		 ORDER BY dn.donation_date DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("donation history: %w", err)
	}
	defer rows.Close()

	var history []model.DonationHistoryEntry
	for rows.Next() {
		var e model.DonationHistoryEntry
		if err := rows.Scan(&e.DonationDate, &e.QuantityUnits, &e.BloodBankName, &e.City); err != nil {
			return nil, fmt.Errorf("scan donation: %w", err)
		}
		history = append(history, e)
	}
	return history, rows.Err()
}

func (s *PostgresStore) CreateRequest(ctx context.Context, r model.BloodRequest) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO blood_requests (id, user_id, blood_group, quantity_units, urgency, city, status, request_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.ID, r.UserID, r.BloodGroup, r.QuantityUnits, r.Urgency, r.City, r.Status, r.RequestDate,
	)
	if err != nil {
		return fmt.Errorf("insert blood request: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetRequest(ctx context.Context, id string) (*model.BloodRequest, error) {
	var r model.BloodRequest
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, blood_group, quantity_units, urgency, city, status, request_date
		 FROM blood_requests WHERE id = $1`,
		id,
	).Scan(&r.ID, &r.UserID, &r.BloodGroup, &r.QuantityUnits, &r.Urgency, &r.City, &r.Status, &r.RequestDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get blood request: %w", err)
	}
	return &r, nil
}

func (s *PostgresStore) ListRequests(ctx context.Context) ([]model.BloodRequest, error) {
	return s.queryRequests(ctx,
		`SELECT id, user_id, blood_group, quantity_units, urgency, city, status, request_date
		 FROM blood_requests
		 ORDER BY request_date DESC`,
	)
}

func (s *PostgresStore) ListRequestsByUser(ctx context.Context, userID string) ([]model.BloodRequest, error) {
	return s.queryRequests(ctx,
		`SELECT id, user_id, blood_group, quantity_units, urgency, city, status, request_date
		 FROM blood_requests
		 WHERE user_id = $1
		 ORDER BY request_date DESC`,
		userID,
	)
}

func (s *PostgresStore) queryRequests(ctx context.Context, query string, args ...any) ([]model.BloodRequest, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list blood requests: %w", err)
	}
	defer rows.Close()

	var reqs []model.BloodRequest
	for rows.Next() {
		var r model.BloodRequest
		if err := rows.Scan(&r.ID, &r.UserID, &r.BloodGroup, &r.QuantityUnits,
			&r.Urgency, &r.City, &r.Status, &r.RequestDate); err != nil {
			return nil, fmt.Errorf("scan blood request: %w", err)
		}
		reqs = append(reqs, r)
	}
	return reqs, rows.Err()
}

// UpdateRequestStatus applies a lifecycle transition under a row lock so a
// request cannot be concurrently approved and rejected.
func (s *PostgresStore) UpdateRequestStatus(ctx context.Context, id string, next model.RequestStatus) (_ *model.BloodRequest, err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	r, err := lockRequest(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if r.Status.Terminal() {
		return nil, ErrTerminalState
	}
	if !r.Status.CanTransition(next) {
		return nil, ErrInvalidTransition
	}

	_, err = tx.Exec(ctx,
		`UPDATE blood_requests SET status = $1 WHERE id = $2`,
		next, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	r.Status = next
	return r, nil
}

// FulfillRequest decrements bank stock and marks the request fulfilled in one
// transaction. The request row is locked FOR UPDATE to serialize concurrent
// fulfillments of the same request; the stock decrement is conditional on
// sufficient units so the non-negative-stock invariant holds under contention
// on the same (bank, blood group) pair.
func (s *PostgresStore) FulfillRequest(ctx context.Context, requestID, bankID string) (_ *model.BloodRequest, err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	r, err := lockRequest(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	if r.Status.Terminal() {
		return nil, ErrTerminalState
	}
	if r.Status != model.StatusApproved {
		return nil, ErrInvalidTransition
	}

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM blood_banks WHERE id = $1)`, bankID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check bank: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	tag, err := tx.Exec(ctx,
		`UPDATE bank_stock
		 SET units = units - $1
		 WHERE bank_id = $2 AND blood_group = $3 AND units >= $1`,
		r.QuantityUnits, bankID, r.BloodGroup,
	)
	if err != nil {
		return nil, fmt.Errorf("decrement stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrInsufficientStock
	}

	_, err = tx.Exec(ctx,
		`UPDATE blood_requests SET status = $1 WHERE id = $2`,
		model.StatusFulfilled, requestID,
	)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	r.Status = model.StatusFulfilled
	return r, nil
}

func lockRequest(ctx context.Context, tx pgx.Tx, id string) (*model.BloodRequest, error) {
	var r model.BloodRequest
	err := tx.QueryRow(ctx,
		`SELECT id, user_id, blood_group, quantity_units, urgency, city, status, request_date
		 FROM blood_requests
		 WHERE id = $1
		 FOR UPDATE`,
		id,
	).Scan(&r.ID, &r.UserID, &r.BloodGroup, &r.QuantityUnits, &r.Urgency, &r.City, &r.Status, &r.RequestDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock request row: %w", err)
	}
	return &r, nil
}
