package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// UnitRepository manages organizational units.
type UnitRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Unit, error)
	GetHQ(ctx context.Context) (*domain.Unit, error)
	List(ctx context.Context) ([]domain.Unit, error)
}

type unitRepository struct {
	pool *pgxpool.Pool
}

// NewUnitRepository constructs repository.
func NewUnitRepository(pool *pgxpool.Pool) UnitRepository {
	return &unitRepository{pool: pool}
}

func (r *unitRepository) GetByID(ctx context.Context, id string) (*domain.Unit, error) {
	const query = `SELECT id, code, name, is_hq, created_at FROM units WHERE id=$1`
	var unit domain.Unit
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&unit.ID,
		&unit.Code,
		&unit.Name,
		&unit.IsHQ,
		&unit.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *unitRepository) GetHQ(ctx context.Context) (*domain.Unit, error) {
	const query = `SELECT id, code, name, is_hq, created_at FROM units WHERE is_hq LIMIT 1`
	var unit domain.Unit
	if err := r.pool.QueryRow(ctx, query).Scan(
		&unit.ID,
		&unit.Code,
		&unit.Name,
		&unit.IsHQ,
		&unit.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *unitRepository) List(ctx context.Context) ([]domain.Unit, error) {
	const query = `SELECT id, code, name, is_hq, created_at FROM units ORDER BY is_hq DESC, name ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Unit
	for rows.Next() {
		var unit domain.Unit
		if err := rows.Scan(&unit.ID, &unit.Code, &unit.Name, &unit.IsHQ, &unit.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, unit)
	}
	return result, rows.Err()
}
