package storage

import (
	"context"
	"encoding/json"

	"github.com/bookable-app/bookable/libs/db"
	"github.com/jackc/pgx/v5"
)

// Notification is the delivery log for one outbound message. Payload keeps
// the rendered template inputs for later inspection.
type Notification struct {
	AppointmentID string
	BusinessID    string
	Channel       string
	Recipient     string
	Payload       map[string]any
	Status        string
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO notifications (appointment_id, business_id, channel, recipient, payload, status)
		 VALUES (@appointment_id, @business_id, @channel, @recipient, @payload, @status)`,
		pgx.NamedArgs{
			"appointment_id": n.AppointmentID,
			"business_id":    n.BusinessID,
			"channel":        n.Channel,
			"recipient":      n.Recipient,
			"payload":        payload,
			"status":         n.Status,
		})
	return err
}
