package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/apperrors"
	"messaging-service/internal/models"
)

func TestSendMessageEndpoint(t *testing.T) {
	f := newAPIFixture()

	chatID := uuid.New()
	senderID := uuid.New()
	msgID := uuid.New()
	sender := models.Principal{UserID: senderID, Username: "alice"}

	f.registry.ChatsMock.On("GetChat", mock.Anything, chatID).
		Return(models.Chat{ID: chatID, ChatType: models.ChatTypeP2P}, nil).Once()
	f.registry.ChatsMock.On("FindMembership", mock.Anything, chatID, senderID).
		Return(models.Member{ChatID: chatID, UserID: senderID, Role: models.RoleMember}, nil).Once()
	f.registry.MessagesMock.On("Create", mock.Anything, mock.AnythingOfType("*models.Message")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.Message).ID = msgID
		}).Return(nil).Once()

	rec := f.do(t, http.MethodPost, "/chats/"+chatID.String()+"/messages",
		`{"message_type":"TEXT","content":"hello"}`, &sender)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp models.MessageDisplay
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, msgID, resp.MessageID)
	assert.Equal(t, "hello", resp.Content)

	f.registry.AssertExpectations(t)
}

func TestSendMessageMissingType(t *testing.T) {
	f := newAPIFixture()
	sender := models.Principal{UserID: uuid.New(), Username: "alice"}

	rec := f.do(t, http.MethodPost, "/chats/"+uuid.New().String()+"/messages",
		`{"content":"hello"}`, &sender)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetMessagesEndpoint(t *testing.T) {
	f := newAPIFixture()

	chatID := uuid.New()
	requesterID := uuid.New()
	requester := models.Principal{UserID: requesterID, Username: "alice"}

	f.registry.ChatsMock.On("FindMembership", mock.Anything, chatID, requesterID).
		Return(models.Member{ChatID: chatID, UserID: requesterID, Role: models.RoleMember}, nil).Once()
	f.registry.MessagesMock.On("ListByChat", mock.Anything, chatID, 2, 5).
		Return([]models.Message{{ID: uuid.New(), ChatID: chatID, Type: models.MessageText, Content: "hi"}}, nil).Once()
	f.registry.MessagesMock.On("CountByChat", mock.Anything, chatID).Return(int64(11), nil).Once()

	rec := f.do(t, http.MethodGet, "/chats/"+chatID.String()+"/messages?page=2&size=5", "", &requester)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.MessagePage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Page)
	assert.Equal(t, 5, resp.Size)
	assert.Equal(t, int64(11), resp.TotalCount)
	require.Len(t, resp.Messages, 1)
}

func TestEditMessageForbiddenForNonSender(t *testing.T) {
	f := newAPIFixture()

	msgID := uuid.New()
	editor := models.Principal{UserID: uuid.New(), Username: "eve"}

	f.registry.MessagesMock.On("GetByID", mock.Anything, msgID).
		Return(models.Message{ID: msgID, SenderID: uuid.New(), Type: models.MessageText}, nil).Once()

	rec := f.do(t, http.MethodPatch, "/messages/"+msgID.String(), `{"content":"new"}`, &editor)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeleteMessageEndpoint(t *testing.T) {
	f := newAPIFixture()

	msgID := uuid.New()
	chatID := uuid.New()
	senderID := uuid.New()
	sender := models.Principal{UserID: senderID, Username: "alice"}

	f.registry.MessagesMock.On("GetByID", mock.Anything, msgID).
		Return(models.Message{ID: msgID, ChatID: chatID, SenderID: senderID, Type: models.MessageText}, nil).Once()
	f.registry.ChatsMock.On("FindMembership", mock.Anything, chatID, senderID).
		Return(models.Member{ChatID: chatID, UserID: senderID, Role: models.RoleMember}, nil).Once()
	f.registry.MessagesMock.On("SoftDelete", mock.Anything, msgID).Return(nil).Once()

	rec := f.do(t, http.MethodDelete, "/messages/"+msgID.String(), "", &sender)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	f.registry.AssertExpectations(t)
}

func TestDeleteMessageNotFound(t *testing.T) {
	f := newAPIFixture()

	msgID := uuid.New()
	sender := models.Principal{UserID: uuid.New(), Username: "alice"}

	f.registry.MessagesMock.On("GetByID", mock.Anything, msgID).
		Return(models.Message{}, apperrors.NotFound("message not found")).Once()

	rec := f.do(t, http.MethodDelete, "/messages/"+msgID.String(), "", &sender)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
