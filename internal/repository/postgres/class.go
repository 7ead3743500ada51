package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Kerhoff/IgrejaBoT/internal/models"
	"github.com/Kerhoff/IgrejaBoT/internal/repository"
)

const classColumns = `c.id, c.name, to_char(c.start_date, 'YYYY-MM-DD'), c.status,
	c.registration_token, c.created_at, c.updated_at`

const lessonColumns = `l.id, l.class_id, l.title, to_char(l.date, 'YYYY-MM-DD'), l.completed,
	(SELECT COUNT(*) FROM new_member_attendance na WHERE na.lesson_id = l.id AND na.present)`

type classRepository struct {
	db *sql.DB
}

// NewClassRepository creates a new member class repository
func NewClassRepository(db *sql.DB) repository.ClassRepository {
	return &classRepository{db: db}
}

func scanClass(row rowScanner) (*models.NewMemberClass, error) {
	class := &models.NewMemberClass{}
	err := row.Scan(
		&class.ID,
		&class.Name,
		&class.StartDate,
		&class.Status,
		&class.RegistrationToken,
		&class.CreatedAt,
		&class.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return class, nil
}

func scanLesson(row rowScanner) (*models.ClassLesson, error) {
	lesson := &models.ClassLesson{}
	err := row.Scan(
		&lesson.ID,
		&lesson.ClassID,
		&lesson.Title,
		&lesson.Date,
		&lesson.Completed,
		&lesson.AttendanceCount,
	)
	if err != nil {
		return nil, err
	}
	return lesson, nil
}

func (r *classRepository) Create(ctx context.Context, class *models.NewMemberClass) (*models.NewMemberClass, error) {
	query := `
		INSERT INTO new_member_classes (name, start_date, status, registration_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	if class.RegistrationToken == uuid.Nil {
		class.RegistrationToken = uuid.New()
	}

	now := time.Now()
	err := querier(ctx, r.db).QueryRowContext(ctx, query,
		class.Name,
		class.StartDate,
		class.Status,
		class.RegistrationToken,
		now,
		now,
	).Scan(&class.ID, &class.CreatedAt, &class.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create class: %w", mapError(err))
	}

	class.Lessons = []models.ClassLesson{}
	class.Students = []models.Member{}
	return class, nil
}

// CreateLessons inserts the lessons one row at a time so every id is read
// back for the lesson that produced it. Callers run it inside a transaction
// to keep the batch all-or-nothing.
func (r *classRepository) CreateLessons(ctx context.Context, lessons []*models.ClassLesson) error {
	q := querier(ctx, r.db)
	for _, lesson := range lessons {
		query, args, err := psql.Insert("new_member_lessons").
			Columns("class_id", "title", "date", "completed").
			Values(lesson.ClassID, lesson.Title, lesson.Date, lesson.Completed).
			Suffix("RETURNING id").
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build lesson insert: %w", err)
		}

		if err := q.QueryRowContext(ctx, query, args...).Scan(&lesson.ID); err != nil {
			return fmt.Errorf("failed to create lesson %q: %w", lesson.Title, mapError(err))
		}
	}
	return nil
}

func (r *classRepository) GetByID(ctx context.Context, id int64) (*models.NewMemberClass, error) {
	query := `SELECT ` + classColumns + ` FROM new_member_classes c WHERE c.id = $1`
	return r.getOne(ctx, query, id)
}

func (r *classRepository) GetByToken(ctx context.Context, token uuid.UUID) (*models.NewMemberClass, error) {
	query := `SELECT ` + classColumns + ` FROM new_member_classes c WHERE c.registration_token = $1`
	return r.getOne(ctx, query, token)
}

func (r *classRepository) getOne(ctx context.Context, query string, arg any) (*models.NewMemberClass, error) {
	class, err := scanClass(querier(ctx, r.db).QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get class: %w", err)
	}

	if err := r.loadDetails(ctx, class); err != nil {
		return nil, err
	}
	return class, nil
}

func (r *classRepository) List(ctx context.Context) ([]*models.NewMemberClass, error) {
	query := `SELECT ` + classColumns + ` FROM new_member_classes c ORDER BY c.start_date DESC, c.id DESC`

	rows, err := querier(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query classes: %w", err)
	}

	classes := []*models.NewMemberClass{}
	for rows.Next() {
		class, err := scanClass(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan class: %w", err)
		}
		classes = append(classes, class)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate classes: %w", err)
	}
	rows.Close()

	// Details are loaded after the cursor is closed; inside a transaction
	// lib/pq allows only one open result set per connection.
	for _, class := range classes {
		if err := r.loadDetails(ctx, class); err != nil {
			return nil, err
		}
	}
	return classes, nil
}

func (r *classRepository) loadDetails(ctx context.Context, class *models.NewMemberClass) error {
	lessons, err := r.listLessons(ctx, class.ID)
	if err != nil {
		return err
	}
	students, err := r.listStudents(ctx, class.ID)
	if err != nil {
		return err
	}
	class.Lessons = lessons
	class.Students = students
	return nil
}

func (r *classRepository) listLessons(ctx context.Context, classID int64) ([]models.ClassLesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM new_member_lessons l
		WHERE l.class_id = $1 ORDER BY l.date ASC, l.id ASC`

	rows, err := querier(ctx, r.db).QueryContext(ctx, query, classID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lessons: %w", err)
	}
	defer rows.Close()

	lessons := []models.ClassLesson{}
	for rows.Next() {
		lesson, err := scanLesson(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lesson: %w", err)
		}
		lessons = append(lessons, *lesson)
	}
	return lessons, rows.Err()
}

func (r *classRepository) listStudents(ctx context.Context, classID int64) ([]models.Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM new_member_class_students s
		JOIN members m ON m.id = s.member_id
		WHERE s.class_id = $1
		ORDER BY s.enrolled_at ASC, m.id ASC`

	rows, err := querier(ctx, r.db).QueryContext(ctx, query, classID)
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	defer rows.Close()

	students := []models.Member{}
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		students = append(students, *member)
	}
	return students, rows.Err()
}

func (r *classRepository) Update(ctx context.Context, id int64, patch models.ClassPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	builder := psql.Update("new_member_classes").
		Set("updated_at", time.Now()).
		Where("id = ?", id)

	if patch.Name != nil {
		builder = builder.Set("name", *patch.Name)
	}
	if patch.StartDate != nil {
		builder = builder.Set("start_date", *patch.StartDate)
	}
	if patch.Status != nil {
		builder = builder.Set("status", *patch.Status)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build class update: %w", err)
	}
	return execAffectingOne(ctx, querier(ctx, r.db), "class", query, args...)
}

func (r *classRepository) GetLesson(ctx context.Context, id int64) (*models.ClassLesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM new_member_lessons l WHERE l.id = $1`

	lesson, err := scanLesson(querier(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get lesson by ID: %w", err)
	}
	return lesson, nil
}

func (r *classRepository) UpdateLesson(ctx context.Context, id int64, patch models.LessonPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	builder := psql.Update("new_member_lessons").Where("id = ?", id)
	if patch.Title != nil {
		builder = builder.Set("title", *patch.Title)
	}
	if patch.Date != nil {
		builder = builder.Set("date", *patch.Date)
	}
	if patch.Completed != nil {
		builder = builder.Set("completed", *patch.Completed)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build lesson update: %w", err)
	}
	return execAffectingOne(ctx, querier(ctx, r.db), "lesson", query, args...)
}

func (r *classRepository) AddStudents(ctx context.Context, classID int64, memberIDs []int64) (int, error) {
	if len(memberIDs) == 0 {
		return 0, nil
	}

	now := time.Now()
	builder := psql.Insert("new_member_class_students").
		Columns("class_id", "member_id", "enrolled_at").
		Suffix("ON CONFLICT (class_id, member_id) DO NOTHING")
	for _, memberID := range memberIDs {
		builder = builder.Values(classID, memberID, now)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build students insert: %w", err)
	}

	result, err := querier(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to add students: %w", mapError(err))
	}

	added, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(added), nil
}

func (r *classRepository) RemoveStudent(ctx context.Context, classID, memberID int64) error {
	query := `DELETE FROM new_member_class_students WHERE class_id = $1 AND member_id = $2`

	if _, err := querier(ctx, r.db).ExecContext(ctx, query, classID, memberID); err != nil {
		return fmt.Errorf("failed to remove student: %w", err)
	}
	return nil
}

func (r *classRepository) ReplaceLessonAttendance(ctx context.Context, lessonID int64, records []models.LessonAttendance) error {
	q := querier(ctx, r.db)

	if _, err := q.ExecContext(ctx, `DELETE FROM new_member_attendance WHERE lesson_id = $1`, lessonID); err != nil {
		return fmt.Errorf("failed to clear lesson attendance: %w", err)
	}
	if len(records) == 0 {
		return nil
	}

	builder := psql.Insert("new_member_attendance").
		Columns("lesson_id", "member_id", "present", "summary_done").
		Suffix("ON CONFLICT (lesson_id, member_id) DO UPDATE SET present = EXCLUDED.present, summary_done = EXCLUDED.summary_done")
	for _, rec := range records {
		builder = builder.Values(lessonID, rec.MemberID, rec.Present, rec.SummaryDone)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build lesson attendance insert: %w", err)
	}
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to record lesson attendance: %w", mapError(err))
	}
	return nil
}

func (r *classRepository) LessonAttendance(ctx context.Context, lessonID int64) ([]models.LessonAttendance, error) {
	query := `
		SELECT lesson_id, member_id, present, summary_done
		FROM new_member_attendance
		WHERE lesson_id = $1
		ORDER BY member_id ASC`

	rows, err := querier(ctx, r.db).QueryContext(ctx, query, lessonID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lesson attendance: %w", err)
	}
	defer rows.Close()

	records := []models.LessonAttendance{}
	for rows.Next() {
		var rec models.LessonAttendance
		if err := rows.Scan(&rec.LessonID, &rec.MemberID, &rec.Present, &rec.SummaryDone); err != nil {
			return nil, fmt.Errorf("failed to scan lesson attendance: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
