package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/IgrejaBoT/internal/models"
)

// RegisterForClass is the public self-registration flow behind an invite
// link. The visitor is untrusted: input is stripped of markup and the class
// must still be open. The member is created and enrolled in one transaction.
func (s *Service) RegisterForClass(ctx context.Context, token string, reg models.Registration) (member *models.Member, err error) {
	defer s.observe("register_for_class", time.Now(), &err)

	reg.Name = s.clean(reg.Name)
	reg.Email = s.clean(reg.Email)
	reg.Phone = s.clean(reg.Phone)

	var fe fieldErrors
	fe.required("name", reg.Name)
	if err := fe.err(); err != nil {
		return nil, err
	}

	class, err := s.GetClassByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !class.IsOpen() {
		return nil, fmt.Errorf("class %d is %q: %w", class.ID, class.Status, models.ErrClassClosed)
	}

	err = s.inTx(ctx, func(ctx context.Context) error {
		created, err := s.createMember(ctx, models.Member{
			Name:  reg.Name,
			Email: reg.Email,
			Phone: reg.Phone,
		})
		if err != nil {
			return err
		}
		if _, err := s.Classes.AddStudents(ctx, class.ID, []int64{created.ID}); err != nil {
			return fmt.Errorf("failed to enroll member %d in class %d: %w", created.ID, class.ID, err)
		}
		member = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncRegistrations()
	s.logger.WithFields(logrus.Fields{
		"class_id":  class.ID,
		"member_id": member.ID,
	}).Info("Registered member through invite link")
	return member, nil
}
