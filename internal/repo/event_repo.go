package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Relay/internal/domain"
)

// EventRepo — репозиторий worker events.
type EventRepo struct {
	pool *pgxpool.Pool
}

// NewEventRepo создаёт новый EventRepo.
func NewEventRepo(pool *pgxpool.Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

// CreateOrGet создаёт worker event либо возвращает существующий
// с той же парой (type, reference).
//
// Дедупликация на уникальном индексе: повторная эмиссия логически
// того же события при retry handler'а не создаёт вторую запись доставки.
// created=false означает, что запись уже была.
func (r *EventRepo) CreateOrGet(ctx context.Context, event *domain.WorkerEvent) (*domain.WorkerEvent, bool, error) {
	payloadJSON, err := json.Marshal(event.Payload)
	if err != nil {
		return nil, false, fmt.Errorf("marshal payload: %w", err)
	}

	insert := `
		INSERT INTO worker_events (id, type, reference, payload, state, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (type, reference) DO NOTHING
	`
	result, err := r.pool.Exec(ctx, insert,
		event.ID,
		event.Type,
		event.Reference,
		payloadJSON,
		event.State,
		event.Attempts,
		event.CreatedAt,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert worker event: %w", err)
	}

	created := result.RowsAffected() > 0

	query := selectEvent + ` WHERE type = $1 AND reference = $2`
	stored, err := r.scanEvent(r.pool.QueryRow(ctx, query, event.Type, event.Reference))
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

// GetByID возвращает worker event по ID.
func (r *EventRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkerEvent, error) {
	query := selectEvent + ` WHERE id = $1`
	return r.scanEvent(r.pool.QueryRow(ctx, query, id))
}

// Update обновляет статус доставки.
func (r *EventRepo) Update(ctx context.Context, event *domain.WorkerEvent) error {
	query := `
		UPDATE worker_events
		SET state = $2, attempts = $3, finished_at = $4
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		event.ID, event.State, event.Attempts, event.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("update worker event: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUndelivered возвращает события, ожидающие доставки
// (polling fallback: подхватывает потерянные сообщения очереди).
// Sending-события включаются, пока не исчерпан лимит попыток:
// потеря сообщения между попытками иначе оставила бы их навсегда.
func (r *EventRepo) ListUndelivered(ctx context.Context, maxAttempts, limit int) ([]domain.WorkerEvent, error) {
	query := selectEvent + `
		WHERE state IN ($1, $2)
		   OR (state = $3 AND attempts < $4)
		ORDER BY seq ASC
		LIMIT $5
	`
	rows, err := r.pool.Query(ctx, query,
		domain.WorkerEventStateAwaiting,
		domain.WorkerEventStateQueued,
		domain.WorkerEventStateSending,
		maxAttempts,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list undelivered events: %w", err)
	}
	defer rows.Close()

	var events []domain.WorkerEvent
	for rows.Next() {
		event, err := r.scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}
	return events, rows.Err()
}

// ExistsByReference проверяет наличие события с парой (type, reference).
// Используется polling fallback'ом для восстановления исходов по дедупликационному ключу.
func (r *EventRepo) ExistsByReference(ctx context.Context, eventType domain.EventType, reference string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM worker_events WHERE type = $1 AND reference = $2)`,
		eventType, reference,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("worker event exists: %w", err)
	}
	return exists, nil
}

// CountByTypes возвращает количество событий перечисленных типов.
// Используется агрегаторами (например, сколько sources закончили компиляцию).
func (r *EventRepo) CountByTypes(ctx context.Context, types ...domain.EventType) (int, error) {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}

	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM worker_events WHERE type = ANY($1)`, names,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count events by type: %w", err)
	}
	return count, nil
}

// Counts возвращает счётчики доставки для агрегаторов.
func (r *EventRepo) Counts(ctx context.Context) (total, unfinished, failed int, err error) {
	query := `
		SELECT
			count(*),
			count(*) FILTER (WHERE state NOT IN ($1, $2)),
			count(*) FILTER (WHERE state = $2)
		FROM worker_events
	`
	err = r.pool.QueryRow(ctx, query,
		domain.WorkerEventStateComplete,
		domain.WorkerEventStateFailed,
	).Scan(&total, &unfinished, &failed)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("count worker events: %w", err)
	}
	return total, unfinished, failed, nil
}

// --- Helpers ---

const selectEvent = `
	SELECT id, seq, type, reference, payload, state, attempts, created_at, finished_at
	FROM worker_events
`

// scanEvent сканирует одну строку в WorkerEvent.
func (r *EventRepo) scanEvent(row pgx.Row) (*domain.WorkerEvent, error) {
	var event domain.WorkerEvent
	var payloadJSON []byte

	err := row.Scan(
		&event.ID,
		&event.Seq,
		&event.Type,
		&event.Reference,
		&payloadJSON,
		&event.State,
		&event.Attempts,
		&event.CreatedAt,
		&event.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan worker event: %w", err)
	}

	if payloadJSON != nil {
		if err := json.Unmarshal(payloadJSON, &event.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
	}

	return &event, nil
}
