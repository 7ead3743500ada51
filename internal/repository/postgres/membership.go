package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Kerhoff/IgrejaBoT/internal/models"
	"github.com/Kerhoff/IgrejaBoT/internal/repository"
)

type membershipRepository struct {
	db *sql.DB
}

// NewMembershipRepository creates a new group roster repository
func NewMembershipRepository(db *sql.DB) repository.MembershipRepository {
	return &membershipRepository{db: db}
}

// Add inserts the given members into the group roster. Pairs that already
// exist are skipped and not counted. An unknown group or member id fails with
// models.ErrNotFound.
func (r *membershipRepository) Add(ctx context.Context, groupID int64, memberIDs []int64, role string) (int, error) {
	if len(memberIDs) == 0 {
		return 0, nil
	}

	now := time.Now()
	builder := psql.Insert("discipleship_members").
		Columns("group_id", "member_id", "role", "joined_at").
		Suffix("ON CONFLICT (group_id, member_id) DO NOTHING")
	for _, memberID := range memberIDs {
		builder = builder.Values(groupID, memberID, role, now)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build membership insert: %w", err)
	}

	result, err := querier(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to add members: %w", mapError(err))
	}

	added, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(added), nil
}

func (r *membershipRepository) Remove(ctx context.Context, groupID, memberID int64) (int, error) {
	query := `DELETE FROM discipleship_members WHERE group_id = $1 AND member_id = $2`

	result, err := querier(ctx, r.db).ExecContext(ctx, query, groupID, memberID)
	if err != nil {
		return 0, fmt.Errorf("failed to remove member from group: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(removed), nil
}

func (r *membershipRepository) ListMembers(ctx context.Context, groupID int64) ([]*models.RosterMember, error) {
	query := `
		SELECT ` + memberColumns + `, dm.role
		FROM discipleship_members dm
		JOIN members m ON m.id = dm.member_id
		WHERE dm.group_id = $1
		ORDER BY dm.joined_at ASC, m.id ASC`

	rows, err := querier(ctx, r.db).QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query group members: %w", err)
	}
	defer rows.Close()

	roster := []*models.RosterMember{}
	for rows.Next() {
		var role string
		member, err := scanMember(rows, &role)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		roster = append(roster, &models.RosterMember{Member: *member, Role: role})
	}
	return roster, rows.Err()
}

func (r *membershipRepository) Count(ctx context.Context, groupID int64) (int, error) {
	var count int
	err := querier(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM discipleship_members WHERE group_id = $1`, groupID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count group members: %w", err)
	}
	return count, nil
}
