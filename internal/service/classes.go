package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/IgrejaBoT/internal/models"
)

const qrCodeEndpoint = "https://api.qrserver.com/v1/create-qr-code/?size=200x200&data="

// CreateClass opens a new member class with a fresh registration token and
// DefaultLessonCount weekly lessons starting on the class start date.
func (s *Service) CreateClass(ctx context.Context, name, startDate string) (class *models.NewMemberClass, err error) {
	defer s.observe("create_class", time.Now(), &err)

	name = strings.TrimSpace(name)
	startDate = strings.TrimSpace(startDate)

	var fe fieldErrors
	fe.required("name", name)
	fe.date("start_date", startDate)
	if err := fe.err(); err != nil {
		return nil, err
	}
	start, _ := time.Parse(models.DateLayout, startDate)

	err = s.inTx(ctx, func(ctx context.Context) error {
		created, err := s.Classes.Create(ctx, &models.NewMemberClass{
			Name:              name,
			StartDate:         startDate,
			Status:            models.ClassStatusOpen,
			RegistrationToken: uuid.New(),
		})
		if err != nil {
			return fmt.Errorf("failed to create class: %w", err)
		}

		lessons := make([]*models.ClassLesson, 0, models.DefaultLessonCount)
		for i := 0; i < models.DefaultLessonCount; i++ {
			lessons = append(lessons, &models.ClassLesson{
				ClassID: created.ID,
				Title:   fmt.Sprintf("Aula %d: Tema a definir", i+1),
				Date:    start.AddDate(0, 0, 7*i).Format(models.DateLayout),
			})
		}
		if err := s.Classes.CreateLessons(ctx, lessons); err != nil {
			return fmt.Errorf("failed to create lessons of class %d: %w", created.ID, err)
		}

		class, err = s.getClass(ctx, created.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"class_id": class.ID,
		"name":     class.Name,
	}).Info("Created new member class")
	return class, nil
}

// UpdateClass applies a sparse patch and returns the refreshed class.
func (s *Service) UpdateClass(ctx context.Context, id int64, patch models.ClassPatch) (class *models.NewMemberClass, err error) {
	defer s.observe("update_class", time.Now(), &err)

	patch.Name = trimPtr(patch.Name)
	patch.StartDate = trimPtr(patch.StartDate)

	var fe fieldErrors
	if patch.Name != nil {
		fe.required("name", *patch.Name)
	}
	if patch.StartDate != nil {
		fe.date("start_date", *patch.StartDate)
	}
	if patch.Status != nil && *patch.Status != models.ClassStatusOpen && *patch.Status != models.ClassStatusFinished {
		fe.add("status", fmt.Sprintf("must be %q or %q", models.ClassStatusOpen, models.ClassStatusFinished))
	}
	if err := fe.err(); err != nil {
		return nil, err
	}

	if !patch.IsEmpty() {
		if err := s.Classes.Update(ctx, id, patch); err != nil {
			return nil, fmt.Errorf("failed to update class %d: %w", id, err)
		}
		s.logger.WithField("class_id", id).Info("Updated new member class")
	}
	return s.getClass(ctx, id)
}

// UpdateLesson applies a sparse patch to a lesson and returns it.
func (s *Service) UpdateLesson(ctx context.Context, id int64, patch models.LessonPatch) (lesson *models.ClassLesson, err error) {
	defer s.observe("update_lesson", time.Now(), &err)

	patch.Title = trimPtr(patch.Title)
	patch.Date = trimPtr(patch.Date)

	var fe fieldErrors
	if patch.Title != nil {
		fe.required("title", *patch.Title)
	}
	if patch.Date != nil {
		fe.date("date", *patch.Date)
	}
	if err := fe.err(); err != nil {
		return nil, err
	}

	if !patch.IsEmpty() {
		if err := s.Classes.UpdateLesson(ctx, id, patch); err != nil {
			return nil, fmt.Errorf("failed to update lesson %d: %w", id, err)
		}
	}
	return s.getLesson(ctx, id)
}

// ListClasses returns every class, most recent start date first, with its
// lessons and students.
func (s *Service) ListClasses(ctx context.Context) ([]*models.NewMemberClass, error) {
	classes, err := s.Classes.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list classes: %w", err)
	}
	return classes, nil
}

// GetClass returns a class with lessons and students, or models.ErrNotFound.
func (s *Service) GetClass(ctx context.Context, id int64) (*models.NewMemberClass, error) {
	return s.getClass(ctx, id)
}

func (s *Service) getClass(ctx context.Context, id int64) (*models.NewMemberClass, error) {
	class, err := s.Classes.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get class %d: %w", id, err)
	}
	if class == nil {
		return nil, fmt.Errorf("class %d: %w", id, models.ErrNotFound)
	}
	return class, nil
}

func (s *Service) getLesson(ctx context.Context, id int64) (*models.ClassLesson, error) {
	lesson, err := s.Classes.GetLesson(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get lesson %d: %w", id, err)
	}
	if lesson == nil {
		return nil, fmt.Errorf("lesson %d: %w", id, models.ErrNotFound)
	}
	return lesson, nil
}

// GetClassByToken resolves the class behind a public invite token. A
// malformed token is reported the same way as an unknown one.
func (s *Service) GetClassByToken(ctx context.Context, token string) (*models.NewMemberClass, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(token))
	if err != nil {
		return nil, fmt.Errorf("registration token: %w", models.ErrNotFound)
	}

	class, err := s.Classes.GetByToken(ctx, parsed)
	if err != nil {
		return nil, fmt.Errorf("failed to get class by token: %w", err)
	}
	if class == nil {
		return nil, fmt.Errorf("registration token: %w", models.ErrNotFound)
	}
	return class, nil
}

// AddStudents enrolls members in a class with the same semantics as
// AddMembers on a group roster.
func (s *Service) AddStudents(ctx context.Context, classID int64, memberIDs []int64) (result models.AddResult, err error) {
	defer s.observe("add_students", time.Now(), &err)

	ids := uniqueIDs(memberIDs)
	if len(ids) == 0 {
		return result, models.NewValidationError("member_ids", "must not be empty")
	}

	err = s.inTx(ctx, func(ctx context.Context) error {
		if _, err := s.getClass(ctx, classID); err != nil {
			return err
		}
		added, err := s.Classes.AddStudents(ctx, classID, ids)
		if err != nil {
			return fmt.Errorf("failed to add students to class %d: %w", classID, err)
		}
		result.Added = added
		result.AlreadyMembers = len(ids) - added
		return nil
	})
	if err != nil {
		return models.AddResult{}, err
	}

	s.logger.WithFields(logrus.Fields{
		"class_id": classID,
		"added":    result.Added,
	}).Info("Added students to class")
	return result, nil
}

// RemoveStudent takes a member out of a class. Unknown pairs are a no-op.
func (s *Service) RemoveStudent(ctx context.Context, classID, memberID int64) (err error) {
	defer s.observe("remove_student", time.Now(), &err)

	if err := s.Classes.RemoveStudent(ctx, classID, memberID); err != nil {
		return fmt.Errorf("failed to remove student %d from class %d: %w", memberID, classID, err)
	}
	return nil
}

// SaveLessonAttendance replaces the attendance of a lesson. Every id in
// either list gets one record with the matching flags, and the lesson is
// marked completed in the same transaction.
func (s *Service) SaveLessonAttendance(ctx context.Context, lessonID int64, presentIDs, summaryDoneIDs []int64) (err error) {
	defer s.observe("save_lesson_attendance", time.Now(), &err)

	byMember := map[int64]*models.LessonAttendance{}
	records := []*models.LessonAttendance{}
	record := func(id int64) *models.LessonAttendance {
		if rec, ok := byMember[id]; ok {
			return rec
		}
		rec := &models.LessonAttendance{LessonID: lessonID, MemberID: id}
		byMember[id] = rec
		records = append(records, rec)
		return rec
	}
	for _, id := range presentIDs {
		record(id).Present = true
	}
	for _, id := range summaryDoneIDs {
		record(id).SummaryDone = true
	}

	rows := make([]models.LessonAttendance, 0, len(records))
	for _, rec := range records {
		rows = append(rows, *rec)
	}

	completed := true
	err = s.inTx(ctx, func(ctx context.Context) error {
		if _, err := s.getLesson(ctx, lessonID); err != nil {
			return err
		}
		if err := s.Classes.ReplaceLessonAttendance(ctx, lessonID, rows); err != nil {
			return fmt.Errorf("failed to replace attendance of lesson %d: %w", lessonID, err)
		}
		if err := s.Classes.UpdateLesson(ctx, lessonID, models.LessonPatch{Completed: &completed}); err != nil {
			return fmt.Errorf("failed to complete lesson %d: %w", lessonID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"lesson_id": lessonID,
		"records":   len(rows),
	}).Info("Saved lesson attendance")
	return nil
}

// LessonAttendance returns the attendance records of a lesson by member id.
func (s *Service) LessonAttendance(ctx context.Context, lessonID int64) ([]models.LessonAttendance, error) {
	if _, err := s.getLesson(ctx, lessonID); err != nil {
		return nil, err
	}

	records, err := s.Classes.LessonAttendance(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance of lesson %d: %w", lessonID, err)
	}
	return records, nil
}

// InviteLink builds the public registration link of a class and the URL of
// a QR code image that encodes it.
func (s *Service) InviteLink(class *models.NewMemberClass) models.InviteLink {
	link := s.publicBaseURL + "/register/class/" + class.RegistrationToken.String()
	return models.InviteLink{
		URL:       link,
		QRCodeURL: qrCodeEndpoint + url.QueryEscape(link),
	}
}

// ClassInvite returns the invite link of a class by id.
func (s *Service) ClassInvite(ctx context.Context, id int64) (models.InviteLink, error) {
	class, err := s.getClass(ctx, id)
	if err != nil {
		return models.InviteLink{}, err
	}
	return s.InviteLink(class), nil
}

func classLabel(id int64) string {
	return strconv.FormatInt(id, 10)
}
