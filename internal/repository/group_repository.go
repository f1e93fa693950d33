package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// GroupRepository manages org-chart groups and their user mappings.
type GroupRepository interface {
	Create(ctx context.Context, group *domain.Group) error
	Update(ctx context.Context, group *domain.Group) error
	GetByID(ctx context.Context, id string) (*domain.Group, error)
	List(ctx context.Context) ([]domain.Group, error)
	FindByKindForUnit(ctx context.Context, kind domain.GroupKind, unitID string) (*domain.Group, error)
	Members(ctx context.Context, groupID string) ([]domain.GroupMember, error)
	MembershipsByUser(ctx context.Context, userCode string) ([]domain.GroupMember, error)
	MapUser(ctx context.Context, member domain.GroupMember) error
	UnmapUser(ctx context.Context, groupID, unitID, userCode string) error
}

type groupRepository struct {
	pool *pgxpool.Pool
}

// NewGroupRepository constructs repository.
func NewGroupRepository(pool *pgxpool.Pool) GroupRepository {
	return &groupRepository{pool: pool}
}

const groupColumns = `g.id, g.parent_id, g.name, g.kind, g.department, g.is_active, g.created_at, g.updated_at`

func (r *groupRepository) Create(ctx context.Context, group *domain.Group) error {
	const query = `
        INSERT INTO groups (parent_id, name, kind, department, is_active)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		group.ParentID,
		group.Name,
		group.Kind,
		group.Department,
		group.IsActive,
	).Scan(&group.ID, &group.CreatedAt, &group.UpdatedAt)
}

func (r *groupRepository) Update(ctx context.Context, group *domain.Group) error {
	const query = `
        UPDATE groups SET parent_id=$1, name=$2, kind=$3, department=$4, is_active=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		group.ParentID,
		group.Name,
		group.Kind,
		group.Department,
		group.IsActive,
		group.ID,
	).Scan(&group.UpdatedAt)
}

func (r *groupRepository) GetByID(ctx context.Context, id string) (*domain.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups g WHERE g.id=$1`
	return scanGroup(r.pool.QueryRow(ctx, query, id))
}

func (r *groupRepository) List(ctx context.Context) ([]domain.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups g ORDER BY g.name ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Group
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *group)
	}
	return result, rows.Err()
}

// FindByKindForUnit returns the oldest active group of kind that has a mapping in unitID.
func (r *groupRepository) FindByKindForUnit(ctx context.Context, kind domain.GroupKind, unitID string) (*domain.Group, error) {
	query := `SELECT ` + groupColumns + `
        FROM groups g
        WHERE g.kind=$1 AND g.is_active
          AND EXISTS (SELECT 1 FROM group_mappings m WHERE m.group_id=g.id AND m.unit_id=$2)
        ORDER BY g.created_at ASC
        LIMIT 1`
	return scanGroup(r.pool.QueryRow(ctx, query, kind, unitID))
}

// Members returns the mapping list ordered by position.
func (r *groupRepository) Members(ctx context.Context, groupID string) ([]domain.GroupMember, error) {
	const query = `
        SELECT m.group_id, g.kind, m.unit_id, m.user_code, e.name, e.designation, m.position
        FROM group_mappings m
        JOIN groups g ON g.id = m.group_id
        JOIN employees e ON e.user_code = m.user_code
        WHERE m.group_id=$1
        ORDER BY m.position ASC, m.created_at ASC`
	rows, err := r.pool.Query(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMembers(rows)
}

func (r *groupRepository) MembershipsByUser(ctx context.Context, userCode string) ([]domain.GroupMember, error) {
	const query = `
        SELECT m.group_id, g.kind, m.unit_id, m.user_code, e.name, e.designation, m.position
        FROM group_mappings m
        JOIN groups g ON g.id = m.group_id AND g.is_active
        JOIN employees e ON e.user_code = m.user_code
        WHERE m.user_code=$1
        ORDER BY m.position ASC`
	rows, err := r.pool.Query(ctx, query, userCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMembers(rows)
}

// MapUser inserts or repositions a mapping.
func (r *groupRepository) MapUser(ctx context.Context, member domain.GroupMember) error {
	const query = `
        INSERT INTO group_mappings (group_id, unit_id, user_code, position)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (group_id, unit_id, user_code) DO UPDATE SET position = EXCLUDED.position`
	_, err := r.pool.Exec(ctx, query, member.GroupID, member.UnitID, member.UserCode, member.Position)
	return err
}

func (r *groupRepository) UnmapUser(ctx context.Context, groupID, unitID, userCode string) error {
	const query = `DELETE FROM group_mappings WHERE group_id=$1 AND unit_id=$2 AND user_code=$3`
	cmd, err := r.pool.Exec(ctx, query, groupID, unitID, userCode)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanGroup(row pgx.Row) (*domain.Group, error) {
	var group domain.Group
	if err := row.Scan(
		&group.ID,
		&group.ParentID,
		&group.Name,
		&group.Kind,
		&group.Department,
		&group.IsActive,
		&group.CreatedAt,
		&group.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &group, nil
}

func scanMembers(rows pgx.Rows) ([]domain.GroupMember, error) {
	var result []domain.GroupMember
	for rows.Next() {
		var (
			member      domain.GroupMember
			name        string
			designation string
		)
		if err := rows.Scan(
			&member.GroupID,
			&member.GroupKind,
			&member.UnitID,
			&member.UserCode,
			&name,
			&designation,
			&member.Position,
		); err != nil {
			return nil, err
		}
		member.UserDetails = domain.Employee{Name: name, Designation: designation}.Details()
		result = append(result, member)
	}
	return result, rows.Err()
}
