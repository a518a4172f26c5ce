package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/domain"
)

type timelineRepository struct {
	db *sql.DB
}

// NewTimelineRepository создаёт PostgreSQL-реализацию TimelineRepository.
func NewTimelineRepository(store *Store) domain.TimelineRepository {
	return &timelineRepository{db: store.DB()}
}

func (r *timelineRepository) Append(event domain.TimelineEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if event.Occurred.IsZero() {
		event.Occurred = time.Now().UTC()
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO payment_timeline (attempt_id, type, step, reason, occurred)
		VALUES ($1,$2,$3,$4,$5)
	`, event.AttemptID, event.Type, string(event.Step), event.Reason, event.Occurred); err != nil {
		return fmt.Errorf("append payment timeline event: %w", err)
	}

	return nil
}

func (r *timelineRepository) List(attemptID string) ([]domain.TimelineEvent, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT attempt_id, type, step, reason, occurred
		FROM payment_timeline
		WHERE attempt_id = $1
		ORDER BY occurred ASC, id ASC
	`, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list payment timeline: %w", err)
	}
	defer rows.Close()

	events := make([]domain.TimelineEvent, 0)
	for rows.Next() {
		var (
			event domain.TimelineEvent
			step  string
		)
		if err := rows.Scan(&event.AttemptID, &event.Type, &step, &event.Reason, &event.Occurred); err != nil {
			return nil, fmt.Errorf("scan payment timeline event: %w", err)
		}
		event.Step = domain.PaymentStep(step)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment timeline: %w", err)
	}

	return events, nil
}

var _ domain.TimelineRepository = (*timelineRepository)(nil)
