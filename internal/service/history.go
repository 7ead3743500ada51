package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Kerhoff/IgrejaBoT/internal/models"
)

// GroupSnapshot assembles the detail view of a group: the group itself with
// its member count taken from the roster, the roster, the session history and
// the next meeting date.
func (s *Service) GroupSnapshot(ctx context.Context, groupID int64) (snapshot *models.GroupSnapshot, err error) {
	defer s.observe("group_snapshot", time.Now(), &err)

	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	roster, err := s.ListMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	group.MembersCount = len(roster)

	history, err := s.history(ctx, groupID, len(roster))
	if err != nil {
		return nil, err
	}

	return &models.GroupSnapshot{
		Group:       group,
		Members:     roster,
		History:     history,
		NextMeeting: s.NextMeetingDate(group),
	}, nil
}

// GroupByChat returns the group linked to a Telegram chat, or
// models.ErrNotFound.
func (s *Service) GroupByChat(ctx context.Context, chatID int64) (*models.Group, error) {
	group, err := s.Groups.GetByChatID(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group for chat %d: %w", chatID, err)
	}
	if group == nil {
		return nil, fmt.Errorf("chat %d: %w", chatID, models.ErrNotFound)
	}
	return group, nil
}

// NextMeetingDate returns the next meeting date of a group on the service
// clock.
func (s *Service) NextMeetingDate(group *models.Group) string {
	return NextMeeting(group.MeetingDay, s.now())
}
