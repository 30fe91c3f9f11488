// Package mocks holds testify mocks for the repository layer plus a
// registry fake whose Atomic runs the closure against the same mocks.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
)

// RegistryMock hands the same repository mocks to direct calls and to
// Atomic closures, so a test observes every query regardless of
// transaction boundaries.
type RegistryMock struct {
	UsersMock    *UserRepositoryMock
	ChatsMock    *ChatRepositoryMock
	MessagesMock *MessageRepositoryMock
	ContactsMock *ContactRepositoryMock
}

func NewRegistryMock() *RegistryMock {
	return &RegistryMock{
		UsersMock:    &UserRepositoryMock{},
		ChatsMock:    &ChatRepositoryMock{},
		MessagesMock: &MessageRepositoryMock{},
		ContactsMock: &ContactRepositoryMock{},
	}
}

func (m *RegistryMock) Atomic(ctx context.Context, fn repositories.AtomicFunc) error {
	return fn(m)
}

func (m *RegistryMock) Users() repositories.UserRepository       { return m.UsersMock }
func (m *RegistryMock) Chats() repositories.ChatRepository       { return m.ChatsMock }
func (m *RegistryMock) Messages() repositories.MessageRepository { return m.MessagesMock }
func (m *RegistryMock) Contacts() repositories.ContactRepository { return m.ContactsMock }

// AssertExpectations checks every underlying repository mock.
func (m *RegistryMock) AssertExpectations(t mock.TestingT) {
	m.UsersMock.AssertExpectations(t)
	m.ChatsMock.AssertExpectations(t)
	m.MessagesMock.AssertExpectations(t)
	m.ContactsMock.AssertExpectations(t)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) FindByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	args := m.Called(ctx, id)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error) {
	args := m.Called(ctx, ids)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

func (m *UserRepositoryMock) FindByPhone(ctx context.Context, phone string) (models.User, error) {
	args := m.Called(ctx, phone)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) FindByPhones(ctx context.Context, phones []string) ([]models.User, error) {
	args := m.Called(ctx, phones)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

func (m *UserRepositoryMock) UpdatePhoneNumber(ctx context.Context, userID uuid.UUID, phone string) error {
	args := m.Called(ctx, userID, phone)
	return args.Error(0)
}

type ChatRepositoryMock struct {
	mock.Mock
}

func (m *ChatRepositoryMock) CreateChat(ctx context.Context, chat *models.Chat) error {
	args := m.Called(ctx, chat)
	return args.Error(0)
}

func (m *ChatRepositoryMock) GetChat(ctx context.Context, chatID uuid.UUID) (models.Chat, error) {
	args := m.Called(ctx, chatID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) UpdateGroupProperties(ctx context.Context, chatID uuid.UUID, groupName, groupImage *string) error {
	args := m.Called(ctx, chatID, groupName, groupImage)
	return args.Error(0)
}

func (m *ChatRepositoryMock) AddMembers(ctx context.Context, members []models.Member) error {
	args := m.Called(ctx, members)
	return args.Error(0)
}

func (m *ChatRepositoryMock) FindMembership(ctx context.Context, chatID, userID uuid.UUID) (models.Member, error) {
	args := m.Called(ctx, chatID, userID)
	var member models.Member
	if val := args.Get(0); val != nil {
		member = val.(models.Member)
	}
	return member, args.Error(1)
}

func (m *ChatRepositoryMock) FindMembersByChat(ctx context.Context, chatID uuid.UUID) ([]models.Member, error) {
	args := m.Called(ctx, chatID)
	var members []models.Member
	if val := args.Get(0); val != nil {
		members = val.([]models.Member)
	}
	return members, args.Error(1)
}

func (m *ChatRepositoryMock) FindMembersByChatIDs(ctx context.Context, chatIDs []uuid.UUID) ([]models.Member, error) {
	args := m.Called(ctx, chatIDs)
	var members []models.Member
	if val := args.Get(0); val != nil {
		members = val.([]models.Member)
	}
	return members, args.Error(1)
}

func (m *ChatRepositoryMock) FindMembershipsByUser(ctx context.Context, userID uuid.UUID) ([]models.Membership, error) {
	args := m.Called(ctx, userID)
	var memberships []models.Membership
	if val := args.Get(0); val != nil {
		memberships = val.([]models.Membership)
	}
	return memberships, args.Error(1)
}

func (m *ChatRepositoryMock) FindMembersByChatAndUsers(ctx context.Context, chatID uuid.UUID, userIDs []uuid.UUID) ([]models.Member, error) {
	args := m.Called(ctx, chatID, userIDs)
	var members []models.Member
	if val := args.Get(0); val != nil {
		members = val.([]models.Member)
	}
	return members, args.Error(1)
}

func (m *ChatRepositoryMock) DeleteMembers(ctx context.Context, chatID uuid.UUID, userIDs []uuid.UUID) error {
	args := m.Called(ctx, chatID, userIDs)
	return args.Error(0)
}

func (m *ChatRepositoryMock) UpdateMemberRole(ctx context.Context, chatID, userID uuid.UUID, role models.MemberRole) error {
	args := m.Called(ctx, chatID, userID, role)
	return args.Error(0)
}

func (m *ChatRepositoryMock) CountAdmins(ctx context.Context, chatID uuid.UUID) (int, error) {
	args := m.Called(ctx, chatID)
	return args.Int(0), args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Create(ctx context.Context, msg *models.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MessageRepositoryMock) GetByID(ctx context.Context, messageID uuid.UUID) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListByChat(ctx context.Context, chatID uuid.UUID, page, size int) ([]models.Message, error) {
	args := m.Called(ctx, chatID, page, size)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) CountByChat(ctx context.Context, chatID uuid.UUID) (int64, error) {
	args := m.Called(ctx, chatID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MessageRepositoryMock) UpdateContent(ctx context.Context, messageID uuid.UUID, content string) error {
	args := m.Called(ctx, messageID, content)
	return args.Error(0)
}

func (m *MessageRepositoryMock) SoftDelete(ctx context.Context, messageID uuid.UUID) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

type ContactRepositoryMock struct {
	mock.Mock
}

func (m *ContactRepositoryMock) Create(ctx context.Context, contact *models.Contact) error {
	args := m.Called(ctx, contact)
	return args.Error(0)
}

func (m *ContactRepositoryMock) FindRelationship(ctx context.Context, ownerID, contactUserID uuid.UUID) (models.Contact, error) {
	args := m.Called(ctx, ownerID, contactUserID)
	var contact models.Contact
	if val := args.Get(0); val != nil {
		contact = val.(models.Contact)
	}
	return contact, args.Error(1)
}

func (m *ContactRepositoryMock) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Contact, error) {
	args := m.Called(ctx, ownerID)
	var contacts []models.Contact
	if val := args.Get(0); val != nil {
		contacts = val.([]models.Contact)
	}
	return contacts, args.Error(1)
}

func (m *ContactRepositoryMock) UpdateDisplayName(ctx context.Context, contactID uuid.UUID, displayName string) error {
	args := m.Called(ctx, contactID, displayName)
	return args.Error(0)
}

func (m *ContactRepositoryMock) Delete(ctx context.Context, contactID uuid.UUID) error {
	args := m.Called(ctx, contactID)
	return args.Error(0)
}

var _ repositories.Registry = (*RegistryMock)(nil)
var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
var _ repositories.ChatRepository = (*ChatRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.ContactRepository = (*ContactRepositoryMock)(nil)
