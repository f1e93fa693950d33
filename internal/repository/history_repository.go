package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// HistoryRepository reads the append-only grievance change log.
type HistoryRepository interface {
	ListByGrievance(ctx context.Context, grievanceID string) ([]domain.HistoryEntry, error)
}

type historyRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository builds repository.
func NewHistoryRepository(pool *pgxpool.Pool) HistoryRepository {
	return &historyRepository{pool: pool}
}

// ListByGrievance returns entries newest first.
func (r *historyRepository) ListByGrievance(ctx context.Context, grievanceID string) ([]domain.HistoryEntry, error) {
	const query = `
        SELECT id, grievance_id, changed_by, change_list, created_at
        FROM grievance_history WHERE grievance_id=$1 ORDER BY created_at DESC, id DESC`
	rows, err := r.pool.Query(ctx, query, grievanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.HistoryEntry
	for rows.Next() {
		var (
			entry domain.HistoryEntry
			raw   []byte
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.GrievanceID,
			&entry.ChangedBy,
			&raw,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &entry.ChangeList); err != nil {
			return nil, fmt.Errorf("decode change list %s: %w", entry.ID, err)
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
