package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// GrievanceFilter captures dashboard search parameters.
type GrievanceFilter struct {
	CreatedBy        *string
	AssignedUserCode *string
	UnitID           *string
	Statuses         []domain.GrievanceStatus
	SearchTerm       *string
	Limit            int
	Offset           int
}

// MutateFunc computes the next state of a locked grievance and the change list to log.
type MutateFunc func(current domain.Grievance) (domain.Grievance, []domain.FieldChange, error)

// GrievanceRepository encapsulates grievance persistence.
type GrievanceRepository interface {
	Create(ctx context.Context, g *domain.Grievance, changedBy string, changes []domain.FieldChange) error
	GetByID(ctx context.Context, id string) (*domain.Grievance, error)
	GetByReferenceNo(ctx context.Context, referenceNo string) (*domain.Grievance, error)
	ListWithFilter(ctx context.Context, filter GrievanceFilter) ([]domain.Grievance, error)
	Mutate(ctx context.Context, id, changedBy string, fn MutateFunc) (*domain.Grievance, error)
}

type grievanceRepository struct {
	pool *pgxpool.Pool
}

// NewGrievanceRepository instantiates repository.
func NewGrievanceRepository(pool *pgxpool.Pool) GrievanceRepository {
	return &grievanceRepository{pool: pool}
}

const grievanceColumns = `id, reference_no, title, description, status_id, round, created_by, creator_details,
               creator_unit_id, assigned_user_code, assigned_user_details, t_group_id, t_unit_id,
               t_department, is_transferred, accept_link, reject_link, resolution_accepted,
               created_at, updated_at`

// Create inserts the grievance and its opening history entry in one transaction.
func (r *grievanceRepository) Create(ctx context.Context, g *domain.Grievance, changedBy string, changes []domain.FieldChange) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO grievances (reference_no, title, description, status_id, round, created_by, creator_details,
            creator_unit_id, assigned_user_code, assigned_user_details, t_group_id, t_unit_id, t_department,
            is_transferred)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, query,
		g.ReferenceNo,
		g.Title,
		g.Description,
		g.StatusID,
		g.Round,
		g.CreatedBy,
		g.CreatorDetails,
		g.CreatorUnitID,
		g.AssignedUserCode,
		g.AssignedUserDetails,
		g.TGroupID,
		g.TUnitID,
		g.TDepartment,
		g.IsTransferred,
	).Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return fmt.Errorf("insert grievance: %w", err)
	}

	if _, err := appendHistory(ctx, tx, g.ID, changedBy, changes); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *grievanceRepository) GetByID(ctx context.Context, id string) (*domain.Grievance, error) {
	query := `SELECT ` + grievanceColumns + ` FROM grievances WHERE id=$1`
	return scanGrievance(r.pool.QueryRow(ctx, query, id))
}

func (r *grievanceRepository) GetByReferenceNo(ctx context.Context, referenceNo string) (*domain.Grievance, error) {
	query := `SELECT ` + grievanceColumns + ` FROM grievances WHERE reference_no=$1`
	return scanGrievance(r.pool.QueryRow(ctx, query, referenceNo))
}

// Mutate locks the row, applies fn and persists the result together with a history entry.
// Nothing is written when fn fails.
func (r *grievanceRepository) Mutate(ctx context.Context, id, changedBy string, fn MutateFunc) (*domain.Grievance, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := `SELECT ` + grievanceColumns + ` FROM grievances WHERE id=$1 FOR UPDATE`
	current, err := scanGrievance(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	next, changes, err := fn(*current)
	if err != nil {
		return nil, err
	}

	const update = `
        UPDATE grievances SET status_id=$1, round=$2, assigned_user_code=$3, assigned_user_details=$4,
            t_group_id=$5, t_unit_id=$6, t_department=$7, is_transferred=$8, accept_link=$9,
            reject_link=$10, resolution_accepted=$11, updated_at=NOW()
        WHERE id=$12
        RETURNING updated_at`
	if err := tx.QueryRow(ctx, update,
		next.StatusID,
		next.Round,
		next.AssignedUserCode,
		next.AssignedUserDetails,
		next.TGroupID,
		next.TUnitID,
		next.TDepartment,
		next.IsTransferred,
		next.AcceptLink,
		next.RejectLink,
		next.ResolutionAccepted,
		current.ID,
	).Scan(&next.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update grievance: %w", err)
	}

	if len(changes) > 0 {
		if _, err := appendHistory(ctx, tx, current.ID, changedBy, changes); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &next, nil
}

func (r *grievanceRepository) ListWithFilter(ctx context.Context, filter GrievanceFilter) ([]domain.Grievance, error) {
	base := `SELECT ` + grievanceColumns + ` FROM grievances`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CreatedBy != nil {
		args = append(args, *filter.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("created_by=$%d", len(args)))
	}
	if filter.AssignedUserCode != nil {
		args = append(args, *filter.AssignedUserCode)
		clauses = append(clauses, fmt.Sprintf("assigned_user_code=$%d", len(args)))
	}
	if filter.UnitID != nil {
		args = append(args, *filter.UnitID)
		clauses = append(clauses, fmt.Sprintf("t_unit_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status_id IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(reference_no) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Grievance
	for rows.Next() {
		g, err := scanGrievance(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *g)
	}
	return result, rows.Err()
}

func scanGrievance(row pgx.Row) (*domain.Grievance, error) {
	var g domain.Grievance
	if err := row.Scan(
		&g.ID,
		&g.ReferenceNo,
		&g.Title,
		&g.Description,
		&g.StatusID,
		&g.Round,
		&g.CreatedBy,
		&g.CreatorDetails,
		&g.CreatorUnitID,
		&g.AssignedUserCode,
		&g.AssignedUserDetails,
		&g.TGroupID,
		&g.TUnitID,
		&g.TDepartment,
		&g.IsTransferred,
		&g.AcceptLink,
		&g.RejectLink,
		&g.ResolutionAccepted,
		&g.CreatedAt,
		&g.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &g, nil
}

func appendHistory(ctx context.Context, tx pgx.Tx, grievanceID, changedBy string, changes []domain.FieldChange) (string, error) {
	if changes == nil {
		changes = []domain.FieldChange{}
	}
	payload, err := json.Marshal(changes)
	if err != nil {
		return "", fmt.Errorf("encode change list: %w", err)
	}
	var id string
	const query = `
        INSERT INTO grievance_history (grievance_id, changed_by, change_list)
        VALUES ($1,$2,$3::jsonb)
        RETURNING id`
	if err := tx.QueryRow(ctx, query, grievanceID, changedBy, string(payload)).Scan(&id); err != nil {
		return "", fmt.Errorf("append history: %w", err)
	}
	return id, nil
}
