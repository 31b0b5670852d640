// README: Offer repository backed by PostgreSQL row locks, plus the event log.
package offer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rideline/internal/types"
)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectRide = `
	SELECT id, status, driver_id, declined_driver_ids, driver_acceptance,
	       requested_at, accepted_at, processed_at, started_at, completed_at, cancelled_at, cancel_reason
	FROM rides
	WHERE id = $1`

func (s *PostgresStore) Create(ctx context.Context, o *Offer) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO rides (
			id, status, driver_id, declined_driver_ids, driver_acceptance,
			requested_at, accepted_at, processed_at, started_at, completed_at, cancelled_at, cancel_reason
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		string(o.ID),
		string(o.Status),
		string(o.DriverID),
		idsToStrings(o.DeclinedDriverIDs),
		string(o.DriverAcceptance),
		o.RequestedAt, o.AcceptedAt, o.ProcessedAt, o.StartedAt, o.CompletedAt, o.CancelledAt,
		o.CancelReason,
	)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id types.ID) (*Offer, error) {
	return scanRide(s.db.QueryRow(ctx, selectRide, string(id)))
}

// Transact locks the row with SELECT ... FOR UPDATE so concurrent
// transactions on the same ride queue behind each other until commit.
func (s *PostgresStore) Transact(ctx context.Context, id types.ID, fn func(o *Offer) error) (*Offer, error) {
	var committed *Offer
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		cur, err := scanRide(tx.QueryRow(ctx, selectRide+" FOR UPDATE", string(id)))
		if err != nil {
			return err
		}
		work := cur.Clone()
		if err := fn(work); err != nil {
			return err
		}
		committed = work

		changes, appended := Changes(cur, work)
		if len(changes) == 0 && len(appended) == 0 {
			return nil
		}
		_, err = tx.Exec(ctx, `
			UPDATE rides
			SET status = $2,
			    driver_id = $3,
			    declined_driver_ids = $4,
			    driver_acceptance = $5,
			    accepted_at = $6,
			    processed_at = $7,
			    started_at = $8,
			    completed_at = $9,
			    cancelled_at = $10,
			    cancel_reason = $11
			WHERE id = $1`,
			string(id),
			string(work.Status),
			string(work.DriverID),
			idsToStrings(work.DeclinedDriverIDs),
			string(work.DriverAcceptance),
			work.AcceptedAt, work.ProcessedAt, work.StartedAt, work.CompletedAt, work.CancelledAt,
			work.CancelReason,
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

func (s *PostgresStore) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO offer_events (
			ride_id, from_status, to_status, operation, driver_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.RideID),
		string(e.FromStatus),
		string(e.ToStatus),
		e.Operation,
		string(e.DriverID),
		e.CreatedAt,
	)
	return err
}

func scanRide(row pgx.Row) (*Offer, error) {
	var o Offer
	var declined []string
	var requestedAt, acceptedAt, processedAt, startedAt, completedAt, cancelledAt *time.Time
	err := row.Scan(
		&o.ID, &o.Status, &o.DriverID, &declined, &o.DriverAcceptance,
		&requestedAt, &acceptedAt, &processedAt, &startedAt, &completedAt, &cancelledAt, &o.CancelReason,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan ride: %w", err)
	}
	for _, d := range declined {
		o.DeclinedDriverIDs = append(o.DeclinedDriverIDs, types.ID(d))
	}
	o.RequestedAt = requestedAt
	o.AcceptedAt = acceptedAt
	o.ProcessedAt = processedAt
	o.StartedAt = startedAt
	o.CompletedAt = completedAt
	o.CancelledAt = cancelledAt
	return &o, nil
}

func idsToStrings(ids []types.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
