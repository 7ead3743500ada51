package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Kerhoff/IgrejaBoT/internal/models"
	"github.com/Kerhoff/IgrejaBoT/internal/repository"
)

const groupColumns = `g.id, g.name, g.leader, g.meeting_day, g.meeting_time, g.location,
	g.target_audience, g.chat_id, g.created_at, g.updated_at,
	(SELECT COUNT(*) FROM discipleship_members dm WHERE dm.group_id = g.id) AS members_count`

func scanGroup(row rowScanner) (*models.Group, error) {
	group := &models.Group{}
	var chatID sql.NullInt64
	err := row.Scan(
		&group.ID,
		&group.Name,
		&group.Leader,
		&group.MeetingDay,
		&group.MeetingTime,
		&group.Location,
		&group.TargetAudience,
		&chatID,
		&group.CreatedAt,
		&group.UpdatedAt,
		&group.MembersCount,
	)
	if err != nil {
		return nil, err
	}
	if chatID.Valid {
		group.ChatID = &chatID.Int64
	}
	return group, nil
}

type groupRepository struct {
	db *sql.DB
}

// NewGroupRepository creates a new discipleship group repository
func NewGroupRepository(db *sql.DB) repository.GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) Create(ctx context.Context, group *models.Group) (*models.Group, error) {
	query := `
		INSERT INTO discipleship_groups (name, leader, meeting_day, meeting_time, location, target_audience, chat_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	now := time.Now()
	err := querier(ctx, r.db).QueryRowContext(ctx, query,
		group.Name,
		group.Leader,
		group.MeetingDay,
		group.MeetingTime,
		group.Location,
		group.TargetAudience,
		group.ChatID,
		now,
		now,
	).Scan(&group.ID, &group.CreatedAt, &group.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create group: %w", mapError(err))
	}

	group.MembersCount = 0
	return group, nil
}

func (r *groupRepository) GetByID(ctx context.Context, id int64) (*models.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM discipleship_groups g WHERE g.id = $1`

	group, err := scanGroup(querier(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group by ID: %w", err)
	}
	return group, nil
}

func (r *groupRepository) GetByChatID(ctx context.Context, chatID int64) (*models.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM discipleship_groups g WHERE g.chat_id = $1`

	group, err := scanGroup(querier(ctx, r.db).QueryRowContext(ctx, query, chatID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group by chat ID: %w", err)
	}
	return group, nil
}

func (r *groupRepository) List(ctx context.Context) ([]*models.Group, error) {
	return r.list(ctx, `SELECT `+groupColumns+` FROM discipleship_groups g ORDER BY g.name ASC, g.id ASC`)
}

func (r *groupRepository) ListLinked(ctx context.Context) ([]*models.Group, error) {
	return r.list(ctx, `SELECT `+groupColumns+` FROM discipleship_groups g
		WHERE g.chat_id IS NOT NULL ORDER BY g.name ASC, g.id ASC`)
}

func (r *groupRepository) list(ctx context.Context, query string, args ...any) ([]*models.Group, error) {
	rows, err := querier(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	groups := []*models.Group{}
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}
	return groups, rows.Err()
}

func (r *groupRepository) Update(ctx context.Context, id int64, patch models.GroupPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	builder := psql.Update("discipleship_groups").
		Set("updated_at", time.Now()).
		Where("id = ?", id)

	if patch.Name != nil {
		builder = builder.Set("name", *patch.Name)
	}
	if patch.Leader != nil {
		builder = builder.Set("leader", *patch.Leader)
	}
	if patch.MeetingDay != nil {
		builder = builder.Set("meeting_day", *patch.MeetingDay)
	}
	if patch.MeetingTime != nil {
		builder = builder.Set("meeting_time", *patch.MeetingTime)
	}
	if patch.Location != nil {
		builder = builder.Set("location", *patch.Location)
	}
	if patch.TargetAudience != nil {
		builder = builder.Set("target_audience", *patch.TargetAudience)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build group update: %w", err)
	}

	return execAffectingOne(ctx, querier(ctx, r.db), "group", query, args...)
}

func (r *groupRepository) SetChatID(ctx context.Context, id int64, chatID *int64) error {
	query := `UPDATE discipleship_groups SET chat_id = $2, updated_at = $3 WHERE id = $1`
	return execAffectingOne(ctx, querier(ctx, r.db), "group", query, id, chatID, time.Now())
}

// Delete removes the group together with its roster, sessions and attendance.
// Deleting a group that does not exist is not an error.
func (r *groupRepository) Delete(ctx context.Context, id int64) error {
	_, err := querier(ctx, r.db).ExecContext(ctx, `DELETE FROM discipleship_groups WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	return nil
}

// execAffectingOne runs an UPDATE and reports models.ErrNotFound when no row matched.
func execAffectingOne(ctx context.Context, q executor, entity, query string, args ...any) error {
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", entity, mapError(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s not found: %w", entity, models.ErrNotFound)
	}
	return nil
}
