package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/IgrejaBoT/internal/models"
)

// SaveSession creates a session when in.ID is nil, otherwise rewrites the
// session's date and lesson name. In both cases the attendance is replaced by
// exactly in.PresentMemberIDs, inside one transaction. An empty list is valid
// and leaves the session with no attendance. Present ids are not checked
// against the current roster.
func (s *Service) SaveSession(ctx context.Context, groupID int64, in models.SessionInput) (sessionID int64, err error) {
	defer s.observe("save_session", time.Now(), &err)

	in.Date = strings.TrimSpace(in.Date)
	in.LessonName = strings.TrimSpace(in.LessonName)

	var fe fieldErrors
	fe.date("date", in.Date)
	fe.required("lesson_name", in.LessonName)
	if err := fe.err(); err != nil {
		return 0, err
	}

	present := uniqueIDs(in.PresentMemberIDs)
	session := &models.Session{
		GroupID:    groupID,
		Date:       in.Date,
		LessonName: in.LessonName,
	}

	err = s.inTx(ctx, func(ctx context.Context) error {
		if _, err := s.GetGroup(ctx, groupID); err != nil {
			return err
		}

		if in.ID == nil {
			if _, err := s.Sessions.Create(ctx, session); err != nil {
				return fmt.Errorf("failed to create session: %w", err)
			}
		} else {
			session.ID = *in.ID
			if err := s.Sessions.Update(ctx, session); err != nil {
				return fmt.Errorf("failed to update session %d: %w", session.ID, err)
			}
		}

		if err := s.Sessions.ReplaceAttendance(ctx, session.ID, present); err != nil {
			return fmt.Errorf("failed to replace attendance of session %d: %w", session.ID, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.WithFields(logrus.Fields{
		"group_id":   groupID,
		"session_id": session.ID,
		"present":    len(present),
		"created":    in.ID == nil,
	}).Info("Saved session")
	return session.ID, nil
}

// ListSessions returns the history of a group, most recent first. The total
// on each entry is the current roster size, not the size at the time of the
// session, so rates of old sessions are approximate.
func (s *Service) ListSessions(ctx context.Context, groupID int64) ([]models.HistoryEntry, error) {
	total, err := s.Memberships.Count(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to count members of group %d: %w", groupID, err)
	}
	return s.history(ctx, groupID, total)
}

func (s *Service) history(ctx context.Context, groupID int64, total int) ([]models.HistoryEntry, error) {
	sessions, err := s.Sessions.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions of group %d: %w", groupID, err)
	}

	entries := make([]models.HistoryEntry, 0, len(sessions))
	for _, session := range sessions {
		entries = append(entries, models.HistoryEntry{
			Session:        *session,
			TotalMembers:   total,
			AttendanceRate: attendanceRate(len(session.PresentMemberIDs), total),
		})
	}
	return entries, nil
}

func attendanceRate(present, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(present) / float64(total)
}
