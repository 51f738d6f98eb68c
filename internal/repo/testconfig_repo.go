package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Relay/internal/domain"
)

// TestConfigRepo — репозиторий дедуплицированных конфигураций tests.
type TestConfigRepo struct {
	pool *pgxpool.Pool
}

// NewTestConfigRepo создаёт новый TestConfigRepo.
func NewTestConfigRepo(pool *pgxpool.Pool) *TestConfigRepo {
	return &TestConfigRepo{pool: pool}
}

// GetOrCreate возвращает конфигурацию для пары (browser, url),
// создавая её при необходимости. Tests с одинаковой конфигурацией
// ссылаются на одну запись.
func (r *TestConfigRepo) GetOrCreate(ctx context.Context, browser, url string) (*domain.TestConfiguration, error) {
	insert := `
		INSERT INTO test_configurations (id, browser, url)
		VALUES ($1, $2, $3)
		ON CONFLICT (browser, url) DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, insert, uuid.New(), browser, url); err != nil {
		return nil, fmt.Errorf("insert test configuration: %w", err)
	}

	query := `
		SELECT id, browser, url
		FROM test_configurations
		WHERE browser = $1 AND url = $2
	`
	var cfg domain.TestConfiguration
	err := r.pool.QueryRow(ctx, query, browser, url).Scan(&cfg.ID, &cfg.Browser, &cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("scan test configuration: %w", err)
	}
	return &cfg, nil
}

// GetByID возвращает конфигурацию по ID.
func (r *TestConfigRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.TestConfiguration, error) {
	query := `
		SELECT id, browser, url
		FROM test_configurations
		WHERE id = $1
	`
	var cfg domain.TestConfiguration
	err := r.pool.QueryRow(ctx, query, id).Scan(&cfg.ID, &cfg.Browser, &cfg.URL)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan test configuration: %w", err)
	}
	return &cfg, nil
}

// List возвращает все конфигурации.
func (r *TestConfigRepo) List(ctx context.Context) ([]domain.TestConfiguration, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, browser, url FROM test_configurations`)
	if err != nil {
		return nil, fmt.Errorf("list test configurations: %w", err)
	}
	defer rows.Close()

	var configs []domain.TestConfiguration
	for rows.Next() {
		var cfg domain.TestConfiguration
		if err := rows.Scan(&cfg.ID, &cfg.Browser, &cfg.URL); err != nil {
			return nil, fmt.Errorf("scan test configuration: %w", err)
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}
