package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/Kerhoff/IgrejaBoT/internal/models"
	"github.com/Kerhoff/IgrejaBoT/internal/repository"
)

// memberColumns is shared by every query that returns members, always
// aliased as m.
const memberColumns = `m.id, m.name, m.email, m.phone, m.avatar_url, m.groups,
	to_char(m.join_date, 'YYYY-MM-DD'), m.status, m.created_at, m.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner, extra ...any) (*models.Member, error) {
	member := &models.Member{}
	dest := []any{
		&member.ID,
		&member.Name,
		&member.Email,
		&member.Phone,
		&member.Avatar,
		pq.Array(&member.Groups),
		&member.JoinDate,
		&member.Status,
		&member.CreatedAt,
		&member.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if member.Groups == nil {
		member.Groups = []string{}
	}
	return member, nil
}

type memberRepository struct {
	db *sql.DB
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(db *sql.DB) repository.MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) Create(ctx context.Context, member *models.Member) (*models.Member, error) {
	query := `
		INSERT INTO members (name, email, phone, avatar_url, groups, join_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE(NULLIF($6, '')::date, CURRENT_DATE), $7, $8, $9)
		RETURNING id, to_char(join_date, 'YYYY-MM-DD'), created_at, updated_at`

	now := time.Now()
	member.CreatedAt = now
	member.UpdatedAt = now
	if member.Status == "" {
		member.Status = models.MemberStatusActive
	}
	if member.Groups == nil {
		member.Groups = []string{}
	}

	err := querier(ctx, r.db).QueryRowContext(ctx, query,
		member.Name,
		member.Email,
		member.Phone,
		member.Avatar,
		pq.Array(member.Groups),
		member.JoinDate,
		member.Status,
		member.CreatedAt,
		member.UpdatedAt,
	).Scan(&member.ID, &member.JoinDate, &member.CreatedAt, &member.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create member: %w", mapError(err))
	}

	return member, nil
}

func (r *memberRepository) GetByID(ctx context.Context, id int64) (*models.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members m WHERE m.id = $1`

	member, err := scanMember(querier(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get member by ID: %w", err)
	}

	return member, nil
}

func (r *memberRepository) List(ctx context.Context, filters repository.MemberFilters) ([]*models.Member, error) {
	builder := psql.Select(memberColumns).From("members m")

	if filters.Search != "" {
		pattern := "%" + filters.Search + "%"
		builder = builder.Where(sq.Or{
			sq.ILike{"m.name": pattern},
			sq.ILike{"m.email": pattern},
			sq.ILike{"m.phone": pattern},
		})
	}
	if filters.Status != nil {
		builder = builder.Where(sq.Eq{"m.status": *filters.Status})
	}
	if filters.IDs != nil {
		builder = builder.Where(sq.Eq{"m.id": filters.IDs})
	}

	builder = builder.OrderBy("m.name ASC", "m.id ASC")
	if filters.Limit > 0 {
		builder = builder.Limit(uint64(filters.Limit))
	}
	if filters.Offset > 0 {
		builder = builder.Offset(uint64(filters.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build members query: %w", err)
	}

	rows, err := querier(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	members := []*models.Member{}
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}
	return members, rows.Err()
}
