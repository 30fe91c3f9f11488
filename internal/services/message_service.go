package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"messaging-service/internal/apperrors"
	"messaging-service/internal/events"
	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
)

// MessageService manages the message lifecycle: send, list, edit,
// soft-delete.
type MessageService struct {
	registry repositories.Registry
	bus      *events.Bus
	logger   *logrus.Logger
}

func NewMessageService(registry repositories.Registry, bus *events.Bus, logger *logrus.Logger) *MessageService {
	return &MessageService{registry: registry, bus: bus, logger: logger}
}

// SendMessage validates per message type, persists and emits
// MessageSent. The sender must be a current member of the chat.
func (s *MessageService) SendMessage(ctx context.Context, sender models.Principal, chatID uuid.UUID, req SendMessageRequest) (models.MessageDisplay, error) {
	var msgDto models.MessageDisplay

	err := s.registry.Atomic(ctx, func(r repositories.Registry) error {
		if _, err := r.Chats().GetChat(ctx, chatID); err != nil {
			return err
		}

		if _, err := r.Chats().FindMembership(ctx, chatID, sender.UserID); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.Forbidden("user is not a member of this chat")
			}
			return err
		}

		msgType := models.MessageType(req.MessageType)
		validate, ok := contentValidators[msgType]
		if !ok {
			return apperrors.Validation("unsupported message type %q", req.MessageType)
		}

		msg := models.Message{
			ChatID:         chatID,
			SenderID:       sender.UserID,
			Type:           msgType,
			SenderUsername: sender.Username,
		}
		if err := validate(req, &msg); err != nil {
			return err
		}

		if err := r.Messages().Create(ctx, &msg); err != nil {
			return err
		}

		msgDto = models.DisplayMessage(msg)
		return nil
	})
	if err != nil {
		return models.MessageDisplay{}, err
	}

	s.bus.Publish(events.MessageSent{ChatID: chatID, Message: msgDto})
	return msgDto, nil
}

// GetMessages returns one page of a chat's messages, newest first.
// Requires current membership. Size is passed through unbounded.
func (s *MessageService) GetMessages(ctx context.Context, chatID uuid.UUID, requester models.Principal, page, size int) (models.MessagePage, error) {
	if _, err := s.registry.Chats().FindMembership(ctx, chatID, requester.UserID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return models.MessagePage{}, apperrors.Forbidden("user is not a member of this chat and cannot view messages")
		}
		return models.MessagePage{}, err
	}

	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = 20
	}

	msgs, err := s.registry.Messages().ListByChat(ctx, chatID, page, size)
	if err != nil {
		return models.MessagePage{}, err
	}
	total, err := s.registry.Messages().CountByChat(ctx, chatID)
	if err != nil {
		return models.MessagePage{}, err
	}

	displays := make([]models.MessageDisplay, 0, len(msgs))
	for _, m := range msgs {
		displays = append(displays, models.DisplayMessage(m))
	}

	return models.MessagePage{
		Messages:   displays,
		Page:       page,
		Size:       size,
		TotalCount: total,
	}, nil
}

// EditMessage replaces a TEXT message's content. Only the sender may
// edit. The edited projection goes out on the same MessageSent channel.
func (s *MessageService) EditMessage(ctx context.Context, editor models.Principal, messageID uuid.UUID, newContent string) (models.MessageDisplay, error) {
	var (
		msgDto models.MessageDisplay
		chatID uuid.UUID
	)

	err := s.registry.Atomic(ctx, func(r repositories.Registry) error {
		msg, err := r.Messages().GetByID(ctx, messageID)
		if err != nil {
			return err
		}

		if msg.SenderID != editor.UserID {
			return apperrors.Forbidden("user is not authorized to edit this message")
		}
		if msg.Type != models.MessageText {
			return apperrors.Validation("only text messages can be edited")
		}
		if isBlank(newContent) {
			return apperrors.Validation("new message content cannot be empty")
		}

		if err := r.Messages().UpdateContent(ctx, messageID, newContent); err != nil {
			return err
		}

		msg.Content = newContent
		msg.IsEdited = true
		chatID = msg.ChatID
		msgDto = models.DisplayMessage(msg)
		return nil
	})
	if err != nil {
		return models.MessageDisplay{}, err
	}

	s.bus.Publish(events.MessageSent{ChatID: chatID, Message: msgDto})
	return msgDto, nil
}

// DeleteMessage tombstones a message. Allowed for the sender or an
// ADMIN of the message's chat. The tombstone projection goes out on the
// MessageSent channel.
func (s *MessageService) DeleteMessage(ctx context.Context, deleter models.Principal, messageID uuid.UUID) error {
	var (
		msgDto models.MessageDisplay
		chatID uuid.UUID
	)

	err := s.registry.Atomic(ctx, func(r repositories.Registry) error {
		msg, err := r.Messages().GetByID(ctx, messageID)
		if err != nil {
			return err
		}

		isSender := msg.SenderID == deleter.UserID

		isAdmin := false
		if member, err := r.Chats().FindMembership(ctx, msg.ChatID, deleter.UserID); err == nil {
			isAdmin = member.Role == models.RoleAdmin
		} else if !errors.Is(err, apperrors.ErrNotFound) {
			return err
		}

		if !isSender && !isAdmin {
			return apperrors.Forbidden("user is not authorized to delete this message")
		}

		if err := r.Messages().SoftDelete(ctx, messageID); err != nil {
			return err
		}

		msg.IsDeleted = true
		chatID = msg.ChatID
		msgDto = models.DisplayMessage(msg)
		return nil
	})
	if err != nil {
		return err
	}

	s.bus.Publish(events.MessageSent{ChatID: chatID, Message: msgDto})
	return nil
}
