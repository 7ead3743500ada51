package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/Kerhoff/IgrejaBoT/internal/models"
	"github.com/Kerhoff/IgrejaBoT/internal/repository"
)

type sessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *sql.DB) repository.SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, session *models.Session) (*models.Session, error) {
	query := `
		INSERT INTO discipleship_sessions (group_id, date, lesson_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	now := time.Now()
	err := querier(ctx, r.db).QueryRowContext(ctx, query,
		session.GroupID,
		session.Date,
		session.LessonName,
		now,
		now,
	).Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", mapError(err))
	}
	return session, nil
}

// Update rewrites date and lesson name of a session that belongs to
// session.GroupID. A session of another group is reported as not found.
func (r *sessionRepository) Update(ctx context.Context, session *models.Session) error {
	query := `
		UPDATE discipleship_sessions
		SET date = $3, lesson_name = $4, updated_at = $5
		WHERE id = $1 AND group_id = $2
		RETURNING created_at, updated_at`

	err := querier(ctx, r.db).QueryRowContext(ctx, query,
		session.ID,
		session.GroupID,
		session.Date,
		session.LessonName,
		time.Now(),
	).Scan(&session.CreatedAt, &session.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("session not found: %w", models.ErrNotFound)
		}
		return fmt.Errorf("failed to update session: %w", mapError(err))
	}
	return nil
}

// ReplaceAttendance sets the present members of a session to exactly memberIDs.
// Callers run it inside a transaction so the delete and insert land together.
func (r *sessionRepository) ReplaceAttendance(ctx context.Context, sessionID int64, memberIDs []int64) error {
	q := querier(ctx, r.db)

	if _, err := q.ExecContext(ctx, `DELETE FROM discipleship_attendance WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("failed to clear attendance: %w", err)
	}
	if len(memberIDs) == 0 {
		return nil
	}

	builder := psql.Insert("discipleship_attendance").
		Columns("session_id", "member_id").
		Suffix("ON CONFLICT DO NOTHING")
	for _, memberID := range memberIDs {
		builder = builder.Values(sessionID, memberID)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build attendance insert: %w", err)
	}
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to record attendance: %w", mapError(err))
	}
	return nil
}

// ListByGroup returns the sessions of a group, most recent first, each with
// its attendance ids in ascending order.
func (r *sessionRepository) ListByGroup(ctx context.Context, groupID int64) ([]*models.Session, error) {
	query := `
		SELECT s.id, s.group_id, to_char(s.date, 'YYYY-MM-DD'), s.lesson_name, s.created_at, s.updated_at,
		       COALESCE(array_agg(a.member_id ORDER BY a.member_id) FILTER (WHERE a.member_id IS NOT NULL), '{}')
		FROM discipleship_sessions s
		LEFT JOIN discipleship_attendance a ON a.session_id = s.id
		WHERE s.group_id = $1
		GROUP BY s.id
		ORDER BY s.date DESC, s.id DESC`

	rows, err := querier(ctx, r.db).QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []*models.Session{}
	for rows.Next() {
		session := &models.Session{}
		var present pq.Int64Array
		err := rows.Scan(
			&session.ID,
			&session.GroupID,
			&session.Date,
			&session.LessonName,
			&session.CreatedAt,
			&session.UpdatedAt,
			&present,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		session.PresentMemberIDs = []int64(present)
		if session.PresentMemberIDs == nil {
			session.PresentMemberIDs = []int64{}
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}
