package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Relay/internal/domain"
)

// jobID — фиксированный первичный ключ единственной записи job.
// "Не более одного job" — инвариант приложения: вставка второй записи
// конфликтует по ключу и отклоняется.
const jobID = 1

// JobRepo — репозиторий единственного job.
type JobRepo struct {
	pool *pgxpool.Pool
}

// NewJobRepo создаёт новый JobRepo.
func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

// Create создаёт job. Если job уже существует — ErrAlreadyExists.
func (r *JobRepo) Create(ctx context.Context, job *domain.Job) error {
	pathsJSON, err := json.Marshal(job.TestPaths)
	if err != nil {
		return fmt.Errorf("marshal test paths: %w", err)
	}

	query := `
		INSERT INTO job (id, label, event_delivery_url, maximum_duration_seconds, test_paths, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`
	result, err := r.pool.Exec(ctx, query,
		jobID,
		job.Label,
		job.EventDeliveryURL,
		job.MaximumDurationInSeconds,
		pathsJSON,
		job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAlreadyExists
	}
	return nil
}

// Get возвращает job. Если job не существует — ErrNotFound.
func (r *JobRepo) Get(ctx context.Context) (*domain.Job, error) {
	query := `
		SELECT label, event_delivery_url, maximum_duration_seconds, started_at, test_paths, created_at
		FROM job
		WHERE id = $1
	`

	var job domain.Job
	var pathsJSON []byte

	err := r.pool.QueryRow(ctx, query, jobID).Scan(
		&job.Label,
		&job.EventDeliveryURL,
		&job.MaximumDurationInSeconds,
		&job.StartedAt,
		&pathsJSON,
		&job.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}

	if err := json.Unmarshal(pathsJSON, &job.TestPaths); err != nil {
		return nil, fmt.Errorf("unmarshal test paths: %w", err)
	}

	return &job, nil
}

// Exists проверяет наличие job.
func (r *JobRepo) Exists(ctx context.Context) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM job WHERE id = $1)`, jobID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("job exists: %w", err)
	}
	return exists, nil
}

// SetStartedAt устанавливает started_at, если он ещё не установлен.
// Повторный вызов — no-op (запись уже стартовала).
func (r *JobRepo) SetStartedAt(ctx context.Context, startedAt time.Time) error {
	query := `
		UPDATE job
		SET started_at = $2
		WHERE id = $1 AND started_at IS NULL
	`
	if _, err := r.pool.Exec(ctx, query, jobID, startedAt); err != nil {
		return fmt.Errorf("set started_at: %w", err)
	}
	return nil
}
