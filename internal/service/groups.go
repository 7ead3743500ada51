package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/IgrejaBoT/internal/models"
)

// ListGroups returns every group ordered by name.
func (s *Service) ListGroups(ctx context.Context) (groups []*models.Group, err error) {
	defer s.observe("list_groups", time.Now(), &err)

	groups, err = s.Groups.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}

// GetGroup returns a group or models.ErrNotFound.
func (s *Service) GetGroup(ctx context.Context, id int64) (*models.Group, error) {
	group, err := s.Groups.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get group %d: %w", id, err)
	}
	if group == nil {
		return nil, fmt.Errorf("group %d: %w", id, models.ErrNotFound)
	}
	return group, nil
}

// CreateGroup validates and stores a new group. Location and target audience
// may be empty.
func (s *Service) CreateGroup(ctx context.Context, in models.Group) (group *models.Group, err error) {
	defer s.observe("create_group", time.Now(), &err)

	in.Name = strings.TrimSpace(in.Name)
	in.Leader = strings.TrimSpace(in.Leader)
	in.MeetingDay = strings.TrimSpace(in.MeetingDay)
	in.MeetingTime = strings.TrimSpace(in.MeetingTime)
	in.Location = strings.TrimSpace(in.Location)
	in.TargetAudience = strings.TrimSpace(in.TargetAudience)
	in.ChatID = nil

	var fe fieldErrors
	fe.required("name", in.Name)
	fe.required("leader", in.Leader)
	fe.required("meeting_day", in.MeetingDay)
	fe.required("meeting_time", in.MeetingTime)
	if err := fe.err(); err != nil {
		return nil, err
	}

	group, err = s.Groups.Create(ctx, &in)
	if err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"group_id": group.ID,
		"name":     group.Name,
	}).Info("Created group")
	return group, nil
}

// UpdateGroup applies a sparse patch and returns the refreshed group.
func (s *Service) UpdateGroup(ctx context.Context, id int64, patch models.GroupPatch) (group *models.Group, err error) {
	defer s.observe("update_group", time.Now(), &err)

	patch = models.GroupPatch{
		Name:           trimPtr(patch.Name),
		Leader:         trimPtr(patch.Leader),
		MeetingDay:     trimPtr(patch.MeetingDay),
		MeetingTime:    trimPtr(patch.MeetingTime),
		Location:       trimPtr(patch.Location),
		TargetAudience: trimPtr(patch.TargetAudience),
	}

	var fe fieldErrors
	if patch.Name != nil {
		fe.required("name", *patch.Name)
	}
	if patch.Leader != nil {
		fe.required("leader", *patch.Leader)
	}
	if patch.MeetingDay != nil {
		fe.required("meeting_day", *patch.MeetingDay)
	}
	if patch.MeetingTime != nil {
		fe.required("meeting_time", *patch.MeetingTime)
	}
	if err := fe.err(); err != nil {
		return nil, err
	}

	if !patch.IsEmpty() {
		if err := s.Groups.Update(ctx, id, patch); err != nil {
			return nil, fmt.Errorf("failed to update group %d: %w", id, err)
		}
		s.logger.WithField("group_id", id).Info("Updated group")
	}

	return s.GetGroup(ctx, id)
}

// DeleteGroup removes a group with its roster, sessions and attendance.
// Deleting an unknown group is a no-op.
func (s *Service) DeleteGroup(ctx context.Context, id int64) (err error) {
	defer s.observe("delete_group", time.Now(), &err)

	if err := s.Groups.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete group %d: %w", id, err)
	}

	s.logger.WithField("group_id", id).Info("Deleted group")
	return nil
}
