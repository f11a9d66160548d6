package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// WebhookEventRepository records provider deliveries for dedup and audit.
type WebhookEventRepository interface {
	Seen(ctx context.Context, provider, providerEventID string) (bool, error)
	Record(ctx context.Context, provider, providerEventID, eventType, registrationID string) error
}

type PGWebhookEventRepository struct {
	db *pgxpool.Pool
}

func NewWebhookEventRepository(db *pgxpool.Pool) WebhookEventRepository {
	return &PGWebhookEventRepository{db: db}
}

func (r *PGWebhookEventRepository) Seen(ctx context.Context, provider, providerEventID string) (bool, error) {
	var seen bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM webhook_events WHERE provider=$1 AND provider_event_id=$2)`, provider, providerEventID).Scan(&seen)
	if err != nil {
		return false, err
	}
	return seen, nil
}

func (r *PGWebhookEventRepository) Record(ctx context.Context, provider, providerEventID, eventType, registrationID string) error {
	_, err := r.db.Exec(ctx, `INSERT INTO webhook_events (provider, provider_event_id, event_type, registration_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (provider, provider_event_id) DO NOTHING`, provider, providerEventID, eventType, registrationID)
	return err
}

var _ WebhookEventRepository = (*PGWebhookEventRepository)(nil)
