package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Relay/internal/domain"
)

// SourceRepo — репозиторий sources.
type SourceRepo struct {
	pool *pgxpool.Pool
}

// NewSourceRepo создаёт новый SourceRepo.
func NewSourceRepo(pool *pgxpool.Pool) *SourceRepo {
	return &SourceRepo{pool: pool}
}

// CreateAll создаёт все sources job'а одним batch'ем.
func (r *SourceRepo) CreateAll(ctx context.Context, sources []domain.Source) error {
	batch := &pgx.Batch{}
	query := `
		INSERT INTO sources (id, type, path, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	for i := range sources {
		s := &sources[i]
		batch.Queue(query, s.ID, s.Type, s.Path, s.Content, s.CreatedAt)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range sources {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert source: %w", err)
		}
	}
	return nil
}

// GetByPath возвращает source по пути.
func (r *SourceRepo) GetByPath(ctx context.Context, path string) (*domain.Source, error) {
	query := `
		SELECT id, type, path, content, created_at
		FROM sources
		WHERE path = $1
	`

	var s domain.Source
	err := r.pool.QueryRow(ctx, query, path).Scan(
		&s.ID, &s.Type, &s.Path, &s.Content, &s.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan source: %w", err)
	}
	return &s, nil
}

// List возвращает все sources в порядке создания.
func (r *SourceRepo) List(ctx context.Context) ([]domain.Source, error) {
	query := `
		SELECT id, type, path, content, created_at
		FROM sources
		ORDER BY created_at ASC, path ASC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		var s domain.Source
		if err := rows.Scan(&s.ID, &s.Type, &s.Path, &s.Content, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// Count возвращает количество sources.
func (r *SourceRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM sources`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count sources: %w", err)
	}
	return count, nil
}
