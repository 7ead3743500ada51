package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/IgrejaBoT/internal/models"
)

// AddMembers adds the given members to a group with the default role.
// The insert is all-or-nothing: an unknown member id aborts the whole call
// with models.ErrNotFound. Ids that are already on the roster are counted in
// AlreadyMembers instead of failing.
func (s *Service) AddMembers(ctx context.Context, groupID int64, memberIDs []int64) (result models.AddResult, err error) {
	defer s.observe("add_members", time.Now(), &err)

	ids := uniqueIDs(memberIDs)
	if len(ids) == 0 {
		return result, models.NewValidationError("member_ids", "must not be empty")
	}

	err = s.inTx(ctx, func(ctx context.Context) error {
		if _, err := s.GetGroup(ctx, groupID); err != nil {
			return err
		}
		added, err := s.Memberships.Add(ctx, groupID, ids, models.DefaultRole)
		if err != nil {
			return fmt.Errorf("failed to add members to group %d: %w", groupID, err)
		}
		result.Added = added
		result.AlreadyMembers = len(ids) - added
		return nil
	})
	if err != nil {
		return models.AddResult{}, err
	}

	s.logger.WithFields(logrus.Fields{
		"group_id":        groupID,
		"added":           result.Added,
		"already_members": result.AlreadyMembers,
	}).Info("Added members to group")
	return result, nil
}

// RemoveMember takes a member off a group roster. Removing a pair that does
// not exist succeeds and changes nothing.
func (s *Service) RemoveMember(ctx context.Context, groupID, memberID int64) (err error) {
	defer s.observe("remove_member", time.Now(), &err)

	removed, err := s.Memberships.Remove(ctx, groupID, memberID)
	if err != nil {
		return fmt.Errorf("failed to remove member %d from group %d: %w", memberID, groupID, err)
	}

	log := s.logger.WithFields(logrus.Fields{
		"group_id":  groupID,
		"member_id": memberID,
	})
	if removed == 0 {
		log.Debug("Member was not in group")
		return nil
	}
	log.Info("Removed member from group")
	return nil
}

// ListMembers returns the current roster of a group with each member's role.
// An unknown group has an empty roster.
func (s *Service) ListMembers(ctx context.Context, groupID int64) ([]*models.RosterMember, error) {
	roster, err := s.Memberships.ListMembers(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members of group %d: %w", groupID, err)
	}
	return roster, nil
}
