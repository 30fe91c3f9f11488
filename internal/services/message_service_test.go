package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/apperrors"
	"messaging-service/internal/events"
	"messaging-service/internal/mocks"
	"messaging-service/internal/models"
)

func newMessageFixture() (*MessageService, *mocks.RegistryMock, *eventCollector) {
	registry := mocks.NewRegistryMock()
	bus := events.NewBus(testLogger())
	collector := &eventCollector{}
	bus.Subscribe(collector.collect)
	svc := NewMessageService(registry, bus, testLogger())
	return svc, registry, collector
}

func memberOf(chatID, userID uuid.UUID, role models.MemberRole) models.Member {
	return models.Member{ChatID: chatID, UserID: userID, Role: role}
}

func TestSendTextMessage(t *testing.T) {
	svc, registry, collector := newMessageFixture()

	chatID := uuid.New()
	senderID := uuid.New()
	msgID := uuid.New()
	sender := models.Principal{UserID: senderID, Username: "alice"}

	registry.ChatsMock.On("GetChat", mock.Anything, chatID).
		Return(models.Chat{ID: chatID, ChatType: models.ChatTypeP2P}, nil).Once()
	registry.ChatsMock.On("FindMembership", mock.Anything, chatID, senderID).
		Return(memberOf(chatID, senderID, models.RoleMember), nil).Once()
	registry.MessagesMock.On("Create", mock.Anything, mock.AnythingOfType("*models.Message")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.Message).ID = msgID
		}).Return(nil).Once()

	msg, err := svc.SendMessage(context.Background(), sender, chatID, SendMessageRequest{
		MessageType: "TEXT",
		Content:     strptr("hello"),
	})
	require.NoError(t, err)
	assert.Equal(t, msgID, msg.MessageID)
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, "alice", msg.Sender.Username)

	require.Len(t, collector.events, 1)
	sent, ok := collector.events[0].(events.MessageSent)
	require.True(t, ok)
	assert.Equal(t, chatID, sent.ChatID)

	registry.AssertExpectations(t)
}

func TestSendTextMessageRequiresContent(t *testing.T) {
	svc, registry, collector := newMessageFixture()

	chatID := uuid.New()
	senderID := uuid.New()

	registry.ChatsMock.On("GetChat", mock.Anything, chatID).
		Return(models.Chat{ID: chatID}, nil).Once()
	registry.ChatsMock.On("FindMembership", mock.Anything, chatID, senderID).
		Return(memberOf(chatID, senderID, models.RoleMember), nil).Once()

	_, err := svc.SendMessage(context.Background(), models.Principal{UserID: senderID}, chatID, SendMessageRequest{
		MessageType: "TEXT",
		Content:     strptr("   "),
	})
	require.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Empty(t, collector.events)
}

func TestSendImageMessageDefaultCaption(t *testing.T) {
	svc, registry, _ := newMessageFixture()

	chatID := uuid.New()
	senderID := uuid.New()

	registry.ChatsMock.On("GetChat", mock.Anything, chatID).
		Return(models.Chat{ID: chatID}, nil).Once()
	registry.ChatsMock.On("FindMembership", mock.Anything, chatID, senderID).
		Return(memberOf(chatID, senderID, models.RoleMember), nil).Once()
	registry.MessagesMock.On("Create", mock.Anything, mock.AnythingOfType("*models.Message")).
		Return(nil).Once()

	msg, err := svc.SendMessage(context.Background(), models.Principal{UserID: senderID}, chatID, SendMessageRequest{
		MessageType: "IMAGE",
		MediaURL:    strptr("https://cdn.example.com/p.jpg"),
	})
	require.NoError(t, err)
	assert.Equal(t, "📷 Photo", msg.Content)
	require.NotNil(t, msg.MediaURL)
	assert.Equal(t, "https://cdn.example.com/p.jpg", *msg.MediaURL)
}

func TestSendMediaMessageRequiresURL(t *testing.T) {
	svc, registry, _ := newMessageFixture()

	chatID := uuid.New()
	senderID := uuid.New()

	registry.ChatsMock.On("GetChat", mock.Anything, chatID).
		Return(models.Chat{ID: chatID}, nil).Once()
	registry.ChatsMock.On("FindMembership", mock.Anything, chatID, senderID).
		Return(memberOf(chatID, senderID, models.RoleMember), nil).Once()

	_, err := svc.SendMessage(context.Background(), models.Principal{UserID: senderID}, chatID, SendMessageRequest{
		MessageType: "VOICE",
		Content:     strptr("listen to this"),
	})
	require.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestSendMessageUnsupportedType(t *testing.T) {
	svc, registry, _ := newMessageFixture()

	chatID := uuid.New()
	senderID := uuid.New()

	registry.ChatsMock.On("GetChat", mock.Anything, chatID).
		Return(models.Chat{ID: chatID}, nil).Once()
	registry.ChatsMock.On("FindMembership", mock.Anything, chatID, senderID).
		Return(memberOf(chatID, senderID, models.RoleMember), nil).Once()

	_, err := svc.SendMessage(context.Background(), models.Principal{UserID: senderID}, chatID, SendMessageRequest{
		MessageType: "STICKER",
		Content:     strptr("x"),
	})
	require.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestSendMessageNonMemberForbidden(t *testing.T) {
	svc, registry, collector := newMessageFixture()

	chatID := uuid.New()
	senderID := uuid.New()

	registry.ChatsMock.On("GetChat", mock.Anything, chatID).
		Return(models.Chat{ID: chatID}, nil).Once()
	registry.ChatsMock.On("FindMembership", mock.Anything, chatID, senderID).
		Return(models.Member{}, apperrors.NotFound("membership not found")).Once()

	_, err := svc.SendMessage(context.Background(), models.Principal{UserID: senderID}, chatID, SendMessageRequest{
		MessageType: "TEXT",
		Content:     strptr("hello"),
	})
	require.ErrorIs(t, err, apperrors.ErrForbidden)
	assert.Empty(t, collector.events)
}

func TestSendMessageChatNotFound(t *testing.T) {
	svc, registry, _ := newMessageFixture()

	chatID := uuid.New()
	registry.ChatsMock.On("GetChat", mock.Anything, chatID).
		Return(models.Chat{}, apperrors.NotFound("chat not found")).Once()

	_, err := svc.SendMessage(context.Background(), models.Principal{UserID: uuid.New()}, chatID, SendMessageRequest{
		MessageType: "TEXT",
		Content:     strptr("hello"),
	})
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGetMessagesDefaultsPaging(t *testing.T) {
	svc, registry, _ := newMessageFixture()

	chatID := uuid.New()
	requesterID := uuid.New()

	registry.ChatsMock.On("FindMembership", mock.Anything, chatID, requesterID).
		Return(memberOf(chatID, requesterID, models.RoleMember), nil).Once()
	registry.MessagesMock.On("ListByChat", mock.Anything, chatID, 0, 20).
		Return([]models.Message{{ID: uuid.New(), ChatID: chatID, Type: models.MessageText, Content: "hi"}}, nil).Once()
	registry.MessagesMock.On("CountByChat", mock.Anything, chatID).Return(int64(1), nil).Once()

	page, err := svc.GetMessages(context.Background(), chatID, models.Principal{UserID: requesterID}, -1, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, page.Page)
	assert.Equal(t, 20, page.Size)
	assert.Equal(t, int64(1), page.TotalCount)
	require.Len(t, page.Messages, 1)

	registry.AssertExpectations(t)
}

func TestGetMessagesNonMemberForbidden(t *testing.T) {
	svc, registry, _ := newMessageFixture()

	chatID := uuid.New()
	requesterID := uuid.New()
	registry.ChatsMock.On("FindMembership", mock.Anything, chatID, requesterID).
		Return(models.Member{}, apperrors.NotFound("membership not found")).Once()

	_, err := svc.GetMessages(context.Background(), chatID, models.Principal{UserID: requesterID}, 0, 20)
	require.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestEditMessageSenderOnly(t *testing.T) {
	svc, registry, _ := newMessageFixture()

	msgID := uuid.New()
	registry.MessagesMock.On("GetByID", mock.Anything, msgID).
		Return(models.Message{ID: msgID, SenderID: uuid.New(), Type: models.MessageText}, nil).Once()

	_, err := svc.EditMessage(context.Background(), models.Principal{UserID: uuid.New()}, msgID, "new text")
	require.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestEditMessageTextOnly(t *testing.T) {
	svc, registry, _ := newMessageFixture()

	msgID := uuid.New()
	senderID := uuid.New()
	registry.MessagesMock.On("GetByID", mock.Anything, msgID).
		Return(models.Message{ID: msgID, SenderID: senderID, Type: models.MessageImage}, nil).Once()

	_, err := svc.EditMessage(context.Background(), models.Principal{UserID: senderID}, msgID, "caption")
	require.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestEditMessageSuccess(t *testing.T) {
	svc, registry, collector := newMessageFixture()

	msgID := uuid.New()
	chatID := uuid.New()
	senderID := uuid.New()

	registry.MessagesMock.On("GetByID", mock.Anything, msgID).
		Return(models.Message{ID: msgID, ChatID: chatID, SenderID: senderID, Type: models.MessageText, Content: "old"}, nil).Once()
	registry.MessagesMock.On("UpdateContent", mock.Anything, msgID, "new").Return(nil).Once()

	msg, err := svc.EditMessage(context.Background(), models.Principal{UserID: senderID}, msgID, "new")
	require.NoError(t, err)
	assert.Equal(t, "new", msg.Content)
	assert.True(t, msg.IsEdited)

	require.Len(t, collector.events, 1)
	sent, ok := collector.events[0].(events.MessageSent)
	require.True(t, ok)
	assert.Equal(t, chatID, sent.ChatID)

	registry.AssertExpectations(t)
}

func TestDeleteMessageBySenderTombstones(t *testing.T) {
	svc, registry, collector := newMessageFixture()

	msgID := uuid.New()
	chatID := uuid.New()
	senderID := uuid.New()

	registry.MessagesMock.On("GetByID", mock.Anything, msgID).
		Return(models.Message{ID: msgID, ChatID: chatID, SenderID: senderID, Type: models.MessageText, Content: "secret"}, nil).Once()
	registry.ChatsMock.On("FindMembership", mock.Anything, chatID, senderID).
		Return(memberOf(chatID, senderID, models.RoleMember), nil).Once()
	registry.MessagesMock.On("SoftDelete", mock.Anything, msgID).Return(nil).Once()

	err := svc.DeleteMessage(context.Background(), models.Principal{UserID: senderID}, msgID)
	require.NoError(t, err)

	require.Len(t, collector.events, 1)
	sent, ok := collector.events[0].(events.MessageSent)
	require.True(t, ok)
	assert.True(t, sent.Message.IsDeleted)
	assert.Equal(t, models.DeletedPlaceholder, sent.Message.Content)

	registry.AssertExpectations(t)
}

func TestDeleteMessageByChatAdmin(t *testing.T) {
	svc, registry, _ := newMessageFixture()

	msgID := uuid.New()
	chatID := uuid.New()
	adminID := uuid.New()

	registry.MessagesMock.On("GetByID", mock.Anything, msgID).
		Return(models.Message{ID: msgID, ChatID: chatID, SenderID: uuid.New(), Type: models.MessageText}, nil).Once()
	registry.ChatsMock.On("FindMembership", mock.Anything, chatID, adminID).
		Return(memberOf(chatID, adminID, models.RoleAdmin), nil).Once()
	registry.MessagesMock.On("SoftDelete", mock.Anything, msgID).Return(nil).Once()

	err := svc.DeleteMessage(context.Background(), models.Principal{UserID: adminID}, msgID)
	require.NoError(t, err)

	registry.AssertExpectations(t)
}

func TestDeleteMessageOutsiderForbidden(t *testing.T) {
	svc, registry, _ := newMessageFixture()

	msgID := uuid.New()
	chatID := uuid.New()
	outsiderID := uuid.New()

	registry.MessagesMock.On("GetByID", mock.Anything, msgID).
		Return(models.Message{ID: msgID, ChatID: chatID, SenderID: uuid.New(), Type: models.MessageText}, nil).Once()
	registry.ChatsMock.On("FindMembership", mock.Anything, chatID, outsiderID).
		Return(models.Member{}, apperrors.NotFound("membership not found")).Once()

	err := svc.DeleteMessage(context.Background(), models.Principal{UserID: outsiderID}, msgID)
	require.ErrorIs(t, err, apperrors.ErrForbidden)
}
