package history

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"cleansight-dashboard/internal/logging"
	"cleansight-dashboard/internal/store"
)

// Event is one persisted store mutation.
type Event struct {
	ID         string    `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
	Op         string    `json:"op"`
	AlertID    string    `json:"alert_id,omitempty"`
	Status     string    `json:"status,omitempty"`
	Location   string    `json:"location,omitempty"`
	Message    string    `json:"message,omitempty"`
	AssignedTo string    `json:"assigned_to,omitempty"`
}

const schema = `
CREATE TABLE IF NOT EXISTS alert_event (
    uid         UUID PRIMARY KEY,
    occurred_at TIMESTAMPTZ NOT NULL,
    op          TEXT NOT NULL,
    alert_id    TEXT,
    status      TEXT,
    location    TEXT,
    message     TEXT,
    assigned_to TEXT
)`

// Recorder persists an audit trail of store mutations to Postgres. Writes
// go through a buffered queue and a single writer goroutine so a slow
// database never blocks store mutation paths.
type Recorder struct {
	pool   *pgxpool.Pool
	logger *logging.Logger
	queue  chan Event
	ctx    context.Context
	cancel context.CancelFunc
}

func New(dsn string, logger *logging.Logger) (*Recorder, error) {
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if _, err := pool.Exec(context.Background(), schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure alert_event table: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Recorder{
		pool:   pool,
		logger: logger,
		queue:  make(chan Event, 256),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Attach subscribes the recorder to store changes.
func (r *Recorder) Attach(st *store.Store) {
	st.OnChange(func(ch store.Change) {
		ev := Event{
			ID:         uuid.NewString(),
			OccurredAt: time.Now(),
			Op:         ch.Op,
			AlertID:    string(ch.ID),
		}
		if ch.Alert != nil {
			ev.Status = ch.Alert.Status
			ev.Location = ch.Alert.Location
			ev.Message = ch.Alert.Message
			ev.AssignedTo = ch.Alert.AssignedTo
		}
		select {
		case r.queue <- ev:
		default:
			r.logger.Warnf("History queue full, dropping %s event for %s", ev.Op, ev.AlertID)
		}
	})
}

// Start launches the writer goroutine.
func (r *Recorder) Start(wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-r.ctx.Done():
				return
			case ev := <-r.queue:
				if err := r.insert(ev); err != nil {
					r.logger.Errorf("History insert failed: %v", err)
				}
			}
		}
	}()
}

// Stop cancels the writer and closes the pool.
func (r *Recorder) Stop() {
	r.cancel()
	r.pool.Close()
}

func (r *Recorder) insert(ev Event) error {
	query := `
    INSERT INTO alert_event (
        uid, occurred_at, op, alert_id, status, location, message, assigned_to
    ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(r.ctx, query,
		ev.ID,
		ev.OccurredAt,
		ev.Op,
		ev.AlertID,
		ev.Status,
		ev.Location,
		ev.Message,
		ev.AssignedTo,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert event: %w", err)
	}
	return nil
}

// RecentEvents fetches persisted events with pagination, newest first.
func (r *Recorder) RecentEvents(ctx context.Context, limit, offset int) ([]Event, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM alert_event`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count alert events: %w", err)
	}

	query := `
	SELECT uid, occurred_at, op, alert_id, status, location, message, assigned_to
	FROM alert_event
	ORDER BY occurred_at DESC
	LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get alert events: %w", err)
	}
	defer rows.Close()

	var list []Event
	for rows.Next() {
		var ev Event
		err := rows.Scan(
			&ev.ID,
			&ev.OccurredAt,
			&ev.Op,
			&ev.AlertID,
			&ev.Status,
			&ev.Location,
			&ev.Message,
			&ev.AssignedTo,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan alert event: %w", err)
		}
		list = append(list, ev)
	}

	return list, total, nil
}
