package repository

import (
	"context"
	"errors"

	"github.com/Mnunley1/gearboxe-reservations/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type EventRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	List(ctx context.Context) ([]domain.Event, error)
}

type PGEventRepository struct {
	db *pgxpool.Pool
}

func NewEventRepository(db *pgxpool.Pool) EventRepository {
	return &PGEventRepository{db: db}
}

func (r *PGEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	row := r.db.QueryRow(ctx, `SELECT id, name, starts_at, capacity, vendor_fee::text, created_at, updated_at FROM events WHERE id=$1`, id)
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEventNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *PGEventRepository) List(ctx context.Context) ([]domain.Event, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, starts_at, capacity, vendor_fee::text, created_at, updated_at FROM events ORDER BY starts_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func scanEvent(row pgx.Row) (*domain.Event, error) {
	var e domain.Event
	var fee string
	if err := row.Scan(&e.ID, &e.Name, &e.StartsAt, &e.Capacity, &fee, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	vendorFee, err := decimal.NewFromString(fee)
	if err != nil {
		return nil, err
	}
	e.VendorFee = vendorFee
	return &e, nil
}

var _ EventRepository = (*PGEventRepository)(nil)
