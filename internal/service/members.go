package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/IgrejaBoT/internal/models"
	"github.com/Kerhoff/IgrejaBoT/internal/repository"
)

// CreateMember adds a person to the registry. Status defaults to Active, the
// join date to today and the avatar to a generated one.
func (s *Service) CreateMember(ctx context.Context, in models.Member) (member *models.Member, err error) {
	defer s.observe("create_member", time.Now(), &err)

	member, err = s.createMember(ctx, in)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"member_id": member.ID,
		"name":      member.Name,
	}).Info("Created member")
	return member, nil
}

func (s *Service) createMember(ctx context.Context, in models.Member) (*models.Member, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Avatar = strings.TrimSpace(in.Avatar)
	in.JoinDate = strings.TrimSpace(in.JoinDate)

	var fe fieldErrors
	fe.required("name", in.Name)
	if in.JoinDate != "" {
		fe.date("join_date", in.JoinDate)
	}
	switch in.Status {
	case "":
		in.Status = models.MemberStatusActive
	case models.MemberStatusActive, models.MemberStatusInactive:
	default:
		fe.add("status", "must be Active or Inactive")
	}
	if err := fe.err(); err != nil {
		return nil, err
	}

	if in.JoinDate == "" {
		in.JoinDate = s.today()
	}
	if in.Avatar == "" {
		in.Avatar = models.DefaultAvatar(in.Name)
	}
	if in.Groups == nil {
		in.Groups = []string{}
	}

	member, err := s.Members.Create(ctx, &in)
	if err != nil {
		return nil, fmt.Errorf("failed to create member: %w", err)
	}
	return member, nil
}

// GetMember returns a member or models.ErrNotFound.
func (s *Service) GetMember(ctx context.Context, id int64) (*models.Member, error) {
	member, err := s.Members.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get member %d: %w", id, err)
	}
	if member == nil {
		return nil, fmt.Errorf("member %d: %w", id, models.ErrNotFound)
	}
	return member, nil
}

// SearchMembers lists the registry ordered by name, optionally filtered.
func (s *Service) SearchMembers(ctx context.Context, filters repository.MemberFilters) ([]*models.Member, error) {
	filters.Search = strings.TrimSpace(filters.Search)
	if filters.Limit < 0 || filters.Offset < 0 {
		return nil, models.NewValidationError("limit", "must not be negative")
	}

	members, err := s.Members.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}
