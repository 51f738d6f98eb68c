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

// TestRepo — репозиторий tests.
type TestRepo struct {
	pool *pgxpool.Pool
}

// NewTestRepo создаёт новый TestRepo.
func NewTestRepo(pool *pgxpool.Pool) *TestRepo {
	return &TestRepo{pool: pool}
}

// CreateAll создаёт tests одним batch'ем.
func (r *TestRepo) CreateAll(ctx context.Context, tests []domain.Test) error {
	batch := &pgx.Batch{}
	query := `
		INSERT INTO tests (id, configuration_id, source, target, step_count, step_names, position, state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for i := range tests {
		t := &tests[i]

		namesJSON, err := json.Marshal(t.StepNames)
		if err != nil {
			return fmt.Errorf("marshal step names: %w", err)
		}

		batch.Queue(query,
			t.ID, t.ConfigurationID, t.Source, t.Target,
			t.StepCount, namesJSON, t.Position, t.State, t.CreatedAt,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range tests {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert test: %w", err)
		}
	}
	return nil
}

// GetByID возвращает test по ID.
func (r *TestRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Test, error) {
	query := selectTest + ` WHERE id = $1`
	return r.scanTest(r.pool.QueryRow(ctx, query, id))
}

// NextAwaiting возвращает awaiting test с минимальной позицией —
// следующий в строго последовательном порядке выполнения.
// Если awaiting tests нет — ErrNotFound.
func (r *TestRepo) NextAwaiting(ctx context.Context) (*domain.Test, error) {
	query := selectTest + `
		WHERE state = $1
		ORDER BY position ASC
		LIMIT 1
	`
	return r.scanTest(r.pool.QueryRow(ctx, query, domain.TestStateAwaiting))
}

// List возвращает все tests в порядке выполнения.
func (r *TestRepo) List(ctx context.Context) ([]domain.Test, error) {
	query := selectTest + ` ORDER BY position ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tests: %w", err)
	}
	defer rows.Close()

	var tests []domain.Test
	for rows.Next() {
		t, err := r.scanTest(rows)
		if err != nil {
			return nil, err
		}
		tests = append(tests, *t)
	}
	return tests, rows.Err()
}

// Update обновляет изменяемые поля test.
func (r *TestRepo) Update(ctx context.Context, t *domain.Test) error {
	query := `
		UPDATE tests
		SET state = $2, started_at = $3, finished_at = $4, error = $5
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		t.ID, t.State, t.StartedAt, t.FinishedAt, nullString(t.Error),
	)
	if err != nil {
		return fmt.Errorf("update test: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FinishRunning записывает исход test'а, только если он всё ещё running.
// Возвращает false, если состояние уже изменилось конкурентно (например,
// test был отменён таймаутом, пока executor работал) — тогда исход
// не записывается.
func (r *TestRepo) FinishRunning(ctx context.Context, t *domain.Test) (bool, error) {
	query := `
		UPDATE tests
		SET state = $2, started_at = $3, finished_at = $4, error = $5
		WHERE id = $1 AND state = $6
	`
	result, err := r.pool.Exec(ctx, query,
		t.ID, t.State, t.StartedAt, t.FinishedAt, nullString(t.Error),
		domain.TestStateRunning,
	)
	if err != nil {
		return false, fmt.Errorf("finish running test: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// CancelUnfinished переводит все незавершённые tests в cancelled.
// Уже завершённые (complete/failed) не затрагиваются.
// Возвращает количество отменённых tests.
func (r *TestRepo) CancelUnfinished(ctx context.Context) (int64, error) {
	query := `
		UPDATE tests
		SET state = $1, finished_at = now()
		WHERE state IN ($2, $3)
	`
	result, err := r.pool.Exec(ctx, query,
		domain.TestStateCancelled,
		domain.TestStateAwaiting,
		domain.TestStateRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("cancel unfinished tests: %w", err)
	}
	return result.RowsAffected(), nil
}

// MaxPosition возвращает наибольшую занятую позицию (0, если tests нет).
// Используется при назначении глобального порядка новым tests.
func (r *TestRepo) MaxPosition(ctx context.Context) (int, error) {
	var max int
	err := r.pool.QueryRow(ctx, `SELECT coalesce(max(position), 0) FROM tests`).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max position: %w", err)
	}
	return max, nil
}

// Counts возвращает счётчики tests по статусам для агрегаторов.
func (r *TestRepo) Counts(ctx context.Context) (total, running, unfinished, failed int, err error) {
	query := `
		SELECT
			count(*),
			count(*) FILTER (WHERE state = $1),
			count(*) FILTER (WHERE state IN ($2, $1)),
			count(*) FILTER (WHERE state IN ($3, $4))
		FROM tests
	`
	err = r.pool.QueryRow(ctx, query,
		domain.TestStateRunning,
		domain.TestStateAwaiting,
		domain.TestStateFailed,
		domain.TestStateCancelled,
	).Scan(&total, &running, &unfinished, &failed)
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("count tests: %w", err)
	}
	return total, running, unfinished, failed, nil
}

// --- Helpers ---

const selectTest = `
	SELECT id, configuration_id, source, target, step_count, step_names,
	       position, state, started_at, finished_at, error, created_at
	FROM tests
`

// scanTest сканирует одну строку в Test.
func (r *TestRepo) scanTest(row pgx.Row) (*domain.Test, error) {
	var t domain.Test
	var namesJSON []byte
	var testError *string

	err := row.Scan(
		&t.ID,
		&t.ConfigurationID,
		&t.Source,
		&t.Target,
		&t.StepCount,
		&namesJSON,
		&t.Position,
		&t.State,
		&t.StartedAt,
		&t.FinishedAt,
		&testError,
		&t.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan test: %w", err)
	}

	if namesJSON != nil {
		if err := json.Unmarshal(namesJSON, &t.StepNames); err != nil {
			return nil, fmt.Errorf("unmarshal step names: %w", err)
		}
	}
	if testError != nil {
		t.Error = *testError
	}

	return &t, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
