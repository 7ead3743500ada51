package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/IgrejaBoT/internal/models"
)

// ErrNoSender is returned by the messaging operations when no chat transport
// has been configured.
var ErrNoSender = errors.New("messaging is not configured")

// LinkGroupChat binds a Telegram chat to a group. A chat can serve a single
// group, so any previous binding of the chat is dropped first. A group that
// is already bound to another chat is left alone and models.ErrAlreadyExists
// is returned; that chat has to unlink first.
func (s *Service) LinkGroupChat(ctx context.Context, groupID, chatID int64) (group *models.Group, err error) {
	defer s.observe("link_group_chat", time.Now(), &err)

	err = s.inTx(ctx, func(ctx context.Context) error {
		target, err := s.GetGroup(ctx, groupID)
		if err != nil {
			return err
		}
		if target.IsLinked() && *target.ChatID != chatID {
			return fmt.Errorf("group %d is linked to another chat: %w", groupID, models.ErrAlreadyExists)
		}

		current, err := s.Groups.GetByChatID(ctx, chatID)
		if err != nil {
			return fmt.Errorf("failed to look up chat %d: %w", chatID, err)
		}
		if current != nil && current.ID != groupID {
			if err := s.Groups.SetChatID(ctx, current.ID, nil); err != nil {
				return fmt.Errorf("failed to unlink chat from group %d: %w", current.ID, err)
			}
		}

		if err := s.Groups.SetChatID(ctx, groupID, &chatID); err != nil {
			return fmt.Errorf("failed to link chat to group %d: %w", groupID, err)
		}

		group, err = s.GetGroup(ctx, groupID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"group_id": groupID,
		"chat_id":  chatID,
	}).Info("Linked chat to group")
	return group, nil
}

// UnlinkGroupChat removes the binding of a chat. Unlinking a chat without a
// group is a no-op.
func (s *Service) UnlinkGroupChat(ctx context.Context, chatID int64) (err error) {
	defer s.observe("unlink_group_chat", time.Now(), &err)

	group, err := s.Groups.GetByChatID(ctx, chatID)
	if err != nil {
		return fmt.Errorf("failed to look up chat %d: %w", chatID, err)
	}
	if group == nil {
		return nil
	}

	if err := s.Groups.SetChatID(ctx, group.ID, nil); err != nil {
		return fmt.Errorf("failed to unlink chat from group %d: %w", group.ID, err)
	}

	s.logger.WithFields(logrus.Fields{
		"group_id": group.ID,
		"chat_id":  chatID,
	}).Info("Unlinked chat from group")
	return nil
}

// SendGroupMessage posts text to the chat linked to a group.
func (s *Service) SendGroupMessage(ctx context.Context, groupID int64, text string) (err error) {
	defer s.observe("send_group_message", time.Now(), &err)

	text, err = s.messageText(text)
	if err != nil {
		return err
	}

	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if !group.IsLinked() {
		return fmt.Errorf("group %d has no linked chat: %w", groupID, models.ErrNotFound)
	}

	if err := s.sender.SendMessage(*group.ChatID, text); err != nil {
		return fmt.Errorf("failed to send message to group %d: %w", groupID, err)
	}
	return nil
}

// BroadcastMessage sends text to every linked group and returns how many
// deliveries succeeded. Failures do not stop the fan-out; they are returned
// together as a multierror.
func (s *Service) BroadcastMessage(ctx context.Context, text string) (sent int, err error) {
	defer s.observe("broadcast_message", time.Now(), &err)

	text, err = s.messageText(text)
	if err != nil {
		return 0, err
	}

	groups, err := s.Groups.ListLinked(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list linked groups: %w", err)
	}

	var result *multierror.Error
	for _, group := range groups {
		if err := s.sender.SendMessage(*group.ChatID, text); err != nil {
			result = multierror.Append(result, fmt.Errorf("group %d: %w", group.ID, err))
			continue
		}
		sent++
	}

	s.logger.WithFields(logrus.Fields{
		"groups": len(groups),
		"sent":   sent,
	}).Info("Broadcast message")
	return sent, result.ErrorOrNil()
}

func (s *Service) messageText(text string) (string, error) {
	if s.sender == nil {
		return "", ErrNoSender
	}
	text = s.clean(text)
	if text == "" {
		return "", models.NewValidationError("text", "is required")
	}
	return text, nil
}
