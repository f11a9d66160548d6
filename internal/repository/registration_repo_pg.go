package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Mnunley1/gearboxe-reservations/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RegistrationRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Registration, error)
	GetByToken(ctx context.Context, token string) (*domain.Registration, error)
	ListByEvent(ctx context.Context, eventID string) ([]domain.Registration, error)
	CreatePending(ctx context.Context, reg *domain.Registration) error
	RefreshHold(ctx context.Context, id string, expiresAt time.Time) (*domain.Registration, error)
	CompletePayment(ctx context.Context, id, paymentRef, token string) (*domain.Registration, error)
	FailPayment(ctx context.Context, id string) (bool, error)
	CountPending(ctx context.Context) (int, error)
	ExpirePendingBefore(ctx context.Context, deadline, fallbackCreatedBefore time.Time) ([]string, error)
	CheckIn(ctx context.Context, token, staffID string, at time.Time) (*domain.Registration, error)
}

const registrationColumns = `id, event_id, vehicle_id, user_id, payment_status, expires_at, COALESCE(stripe_payment_id,''), COALESCE(check_in_token,''), checked_in, checked_in_at, COALESCE(checked_in_by,''), created_at, updated_at`

type PGRegistrationRepository struct {
	db *pgxpool.Pool
}

func NewRegistrationRepository(db *pgxpool.Pool) RegistrationRepository {
	return &PGRegistrationRepository{db: db}
}

func (r *PGRegistrationRepository) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	row := r.db.QueryRow(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE id=$1`, id)
	reg, err := scanRegistration(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRegistrationNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (r *PGRegistrationRepository) GetByToken(ctx context.Context, token string) (*domain.Registration, error) {
	row := r.db.QueryRow(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE check_in_token=$1`, token)
	reg, err := scanRegistration(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (r *PGRegistrationRepository) ListByEvent(ctx context.Context, eventID string) ([]domain.Registration, error) {
	rows, err := r.db.Query(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE event_id=$1`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regs []domain.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, *reg)
	}
	return regs, rows.Err()
}

func (r *PGRegistrationRepository) CreatePending(ctx context.Context, reg *domain.Registration) error {
	reg.PaymentStatus = domain.PaymentStatusPending
	return r.db.QueryRow(ctx, `INSERT INTO registrations (id, event_id, vehicle_id, user_id, payment_status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		reg.ID, reg.EventID, reg.VehicleID, reg.UserID, reg.PaymentStatus, reg.ExpiresAt).
		Scan(&reg.CreatedAt, &reg.UpdatedAt)
}

// RefreshHold puts a non-completed registration back to pending with a fresh
// lease. Completed rows are untouchable here.
func (r *PGRegistrationRepository) RefreshHold(ctx context.Context, id string, expiresAt time.Time) (*domain.Registration, error) {
	row := r.db.QueryRow(ctx, `UPDATE registrations
		SET payment_status='pending', expires_at=$2, updated_at=now()
		WHERE id=$1 AND payment_status <> 'completed'
		RETURNING `+registrationColumns, id, expiresAt)
	reg, err := scanRegistration(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRegistrationNotFound
		}
		return nil, err
	}
	return reg, nil
}

// CompletePayment only transitions pending rows. A redelivered success can
// never mint a second token, and a success landing after the sweep failed the
// hold cannot resurrect it.
func (r *PGRegistrationRepository) CompletePayment(ctx context.Context, id, paymentRef, token string) (*domain.Registration, error) {
	row := r.db.QueryRow(ctx, `UPDATE registrations
		SET payment_status='completed', stripe_payment_id=$2, check_in_token=$3, expires_at=NULL, updated_at=now()
		WHERE id=$1 AND payment_status='pending'
		RETURNING `+registrationColumns, id, paymentRef, token)
	reg, err := scanRegistration(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRegistrationNotFound
		}
		return nil, err
	}
	return reg, nil
}

// FailPayment only downgrades pending rows; a late failure notification for an
// already-completed registration is a no-op. Returns whether a row changed.
func (r *PGRegistrationRepository) FailPayment(ctx context.Context, id string) (bool, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE registrations
		SET payment_status='failed', expires_at=NULL, updated_at=now()
		WHERE id=$1 AND payment_status='pending'`, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *PGRegistrationRepository) CountPending(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM registrations WHERE payment_status='pending'`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// ExpirePendingBefore fails every pending hold whose lease ran out. Rows
// without expires_at use created_at against the fallback deadline. The write
// is conditioned on payment_status so a concurrently completed registration
// is never reaped. Returns the event id of each reaped hold so callers can
// drop stale capacity snapshots.
func (r *PGRegistrationRepository) ExpirePendingBefore(ctx context.Context, deadline, fallbackCreatedBefore time.Time) ([]string, error) {
	rows, err := r.db.Query(ctx, `UPDATE registrations
		SET payment_status='failed', expires_at=NULL, updated_at=now()
		WHERE payment_status='pending'
		  AND ((expires_at IS NOT NULL AND expires_at <= $1)
		    OR (expires_at IS NULL AND created_at <= $2))
		RETURNING event_id`, deadline, fallbackCreatedBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var eventIDs []string
	for rows.Next() {
		var eventID string
		if err := rows.Scan(&eventID); err != nil {
			return nil, err
		}
		eventIDs = append(eventIDs, eventID)
	}
	return eventIDs, rows.Err()
}

// CheckIn flips the one-way checked_in flag. Conditioned on checked_in=false
// so a double scan cannot record two first check-ins.
func (r *PGRegistrationRepository) CheckIn(ctx context.Context, token, staffID string, at time.Time) (*domain.Registration, error) {
	row := r.db.QueryRow(ctx, `UPDATE registrations
		SET checked_in=true, checked_in_at=$2, checked_in_by=$3, updated_at=now()
		WHERE check_in_token=$1 AND payment_status='completed' AND checked_in=false
		RETURNING `+registrationColumns, token, at, staffID)
	reg, err := scanRegistration(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, err
	}
	return reg, nil
}

func scanRegistration(row pgx.Row) (*domain.Registration, error) {
	var reg domain.Registration
	if err := row.Scan(&reg.ID, &reg.EventID, &reg.VehicleID, &reg.UserID, &reg.PaymentStatus,
		&reg.ExpiresAt, &reg.StripePaymentID, &reg.CheckInToken, &reg.CheckedIn,
		&reg.CheckedInAt, &reg.CheckedInBy, &reg.CreatedAt, &reg.UpdatedAt); err != nil {
		return nil, err
	}
	return &reg, nil
}

var _ RegistrationRepository = (*PGRegistrationRepository)(nil)
