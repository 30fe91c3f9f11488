// Package services orchestrates validation, authorization, persistence,
// cache invalidation and event emission. Each mutating operation runs in
// one transaction; eviction and publication happen only after commit.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"messaging-service/internal/apperrors"
	"messaging-service/internal/cache"
	"messaging-service/internal/events"
	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
)

// ChatService manages chat lifecycle and membership.
type ChatService struct {
	registry repositories.Registry
	cache    cache.Cache
	cacheTTL time.Duration
	bus      *events.Bus
	logger   *logrus.Logger
}

func NewChatService(registry repositories.Registry, c cache.Cache, ttl time.Duration, bus *events.Bus, logger *logrus.Logger) *ChatService {
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	return &ChatService{registry: registry, cache: c, cacheTTL: ttl, bus: bus, logger: logger}
}

// CreateChatRequest carries the parameters of chat creation.
type CreateChatRequest struct {
	ChatType   string
	GroupName  *string
	GroupImage *string
	MemberIDs  []uuid.UUID
}

// CreateChat validates the member set and cardinality rules, persists
// the chat and its initial members atomically, then evicts the owner's
// chat list and emits ChatCreated.
func (s *ChatService) CreateChat(ctx context.Context, owner models.Principal, req CreateChatRequest) (models.ChatDisplay, error) {
	var (
		chatDto   models.ChatDisplay
		usernames []string
	)

	err := s.registry.Atomic(ctx, func(r repositories.Registry) error {
		usersToAdd, err := r.Users().FindByIDs(ctx, req.MemberIDs)
		if err != nil {
			return err
		}
		if len(usersToAdd) != len(uniqueIDs(req.MemberIDs)) {
			return apperrors.Validation("some users were not found")
		}

		ownerIncluded := false
		for _, u := range usersToAdd {
			if u.ID == owner.UserID {
				ownerIncluded = true
				break
			}
		}
		if !ownerIncluded {
			ownerUser, err := r.Users().FindByID(ctx, owner.UserID)
			if err != nil {
				return err
			}
			usersToAdd = append(usersToAdd, ownerUser)
		}

		chat := models.Chat{
			GroupName:  req.GroupName,
			GroupImage: req.GroupImage,
		}

		switch models.ChatType(req.ChatType) {
		case models.ChatTypeP2P:
			if len(usersToAdd) != 2 {
				return apperrors.Validation("P2P chat must have exactly 2 users")
			}
			chat.ChatType = models.ChatTypeP2P
		case models.ChatTypeGroup:
			if req.GroupName == nil || isBlank(*req.GroupName) {
				return apperrors.Validation("group name is required")
			}
			if len(usersToAdd) < 3 {
				return apperrors.Validation("group chat must have at least 3 users")
			}
			chat.ChatType = models.ChatTypeGroup
		default:
			return apperrors.Validation("invalid chat type %q", req.ChatType)
		}

		if err := r.Chats().CreateChat(ctx, &chat); err != nil {
			return err
		}

		members := make([]models.Member, 0, len(usersToAdd))
		usernames = make([]string, 0, len(usersToAdd))
		for _, u := range usersToAdd {
			role := models.RoleMember
			if u.ID == owner.UserID {
				role = models.RoleAdmin
			}
			members = append(members, models.Member{
				ChatID:   chat.ID,
				UserID:   u.ID,
				Role:     role,
				Username: u.Username,
			})
			usernames = append(usernames, u.Username)
		}

		if err := r.Chats().AddMembers(ctx, members); err != nil {
			return err
		}

		chatDto = models.DisplayChat(chat, members)
		return nil
	})
	if err != nil {
		return models.ChatDisplay{}, err
	}

	s.evict(ctx, cache.UserChatsKey(owner.UserID.String()))
	s.bus.Publish(events.ChatCreated{Chat: chatDto, Usernames: usernames})
	return chatDto, nil
}

// GetUserChats returns all chats the owner belongs to, cache-first by
// owner id. On miss it batch-loads the owner's memberships, then every
// member across the resulting chat set in one query.
func (s *ChatService) GetUserChats(ctx context.Context, owner models.Principal) ([]models.ChatDisplay, error) {
	key := cache.UserChatsKey(owner.UserID.String())

	var cached []models.ChatDisplay
	if found, err := s.cache.Get(ctx, key, &cached); err != nil {
		s.logger.WithError(err).Warn("chat list cache read failed")
	} else if found {
		return cached, nil
	}

	memberships, err := s.registry.Chats().FindMembershipsByUser(ctx, owner.UserID)
	if err != nil {
		return nil, err
	}
	if len(memberships) == 0 {
		return []models.ChatDisplay{}, nil
	}

	chatIDs := make([]uuid.UUID, 0, len(memberships))
	for _, ms := range memberships {
		chatIDs = append(chatIDs, ms.ChatID)
	}

	allMembers, err := s.registry.Chats().FindMembersByChatIDs(ctx, chatIDs)
	if err != nil {
		return nil, err
	}

	membersByChat := make(map[uuid.UUID][]models.Member, len(chatIDs))
	for _, m := range allMembers {
		membersByChat[m.ChatID] = append(membersByChat[m.ChatID], m)
	}

	chats := make([]models.ChatDisplay, 0, len(memberships))
	for _, ms := range memberships {
		chats = append(chats, models.DisplayChat(ms.Chat, membersByChat[ms.ChatID]))
	}

	if err := s.cache.Put(ctx, key, chats, s.cacheTTL); err != nil {
		s.logger.WithError(err).Warn("chat list cache write failed")
	}
	return chats, nil
}

// GetChatMembers returns the members of a chat, cached per chat id.
// Non-members get ErrForbidden whether or not the chat exists.
func (s *ChatService) GetChatMembers(ctx context.Context, chatID uuid.UUID, requester models.Principal) ([]models.MemberDisplay, error) {
	if _, err := s.registry.Chats().FindMembership(ctx, chatID, requester.UserID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Forbidden("user is not authorized to view the members of this chat")
		}
		return nil, err
	}

	key := cache.ChatMembersKey(chatID.String())

	var cached []models.MemberDisplay
	if found, err := s.cache.Get(ctx, key, &cached); err != nil {
		s.logger.WithError(err).Warn("member list cache read failed")
	} else if found {
		return cached, nil
	}

	members, err := s.registry.Chats().FindMembersByChat(ctx, chatID)
	if err != nil {
		return nil, err
	}

	memberDtos := make([]models.MemberDisplay, 0, len(members))
	for _, m := range members {
		memberDtos = append(memberDtos, models.DisplayMember(m))
	}

	if err := s.cache.Put(ctx, key, memberDtos, s.cacheTTL); err != nil {
		s.logger.WithError(err).Warn("member list cache write failed")
	}
	return memberDtos, nil
}

// AddMember adds users to a chat. Requires ADMIN. Unknown ids fail the
// whole call; ids already present are skipped so the operation is
// idempotent on overlap.
func (s *ChatService) AddMember(ctx context.Context, owner models.Principal, chatID uuid.UUID, userIDs []uuid.UUID) (models.ChatDisplay, error) {
	var (
		chatDto models.ChatDisplay
		added   []models.MemberDisplay
	)

	err := s.registry.Atomic(ctx, func(r repositories.Registry) error {
		if err := s.authorizeAdmin(ctx, r, chatID, owner.UserID); err != nil {
			return err
		}

		chat, err := r.Chats().GetChat(ctx, chatID)
		if err != nil {
			return err
		}

		usersToAdd, err := r.Users().FindByIDs(ctx, userIDs)
		if err != nil {
			return err
		}
		if len(usersToAdd) != len(uniqueIDs(userIDs)) {
			return apperrors.Validation("one or more user IDs to add are invalid")
		}

		existing, err := r.Chats().FindMembersByChat(ctx, chatID)
		if err != nil {
			return err
		}
		existingIDs := make(map[uuid.UUID]struct{}, len(existing))
		for _, m := range existing {
			existingIDs[m.UserID] = struct{}{}
		}

		newMembers := make([]models.Member, 0, len(usersToAdd))
		for _, u := range usersToAdd {
			if _, ok := existingIDs[u.ID]; ok {
				continue
			}
			newMembers = append(newMembers, models.Member{
				ChatID:   chatID,
				UserID:   u.ID,
				Role:     models.RoleMember,
				Username: u.Username,
			})
		}

		if err := r.Chats().AddMembers(ctx, newMembers); err != nil {
			return err
		}

		added = make([]models.MemberDisplay, 0, len(newMembers))
		for _, m := range newMembers {
			added = append(added, models.DisplayMember(m))
		}

		chatDto = models.DisplayChat(chat, append(existing, newMembers...))
		return nil
	})
	if err != nil {
		return models.ChatDisplay{}, err
	}

	s.evict(ctx, cache.ChatMembersKey(chatID.String()))
	s.bus.Publish(events.MemberUpdated{
		ChatID: chatID,
		Update: models.MemberUpdate{
			ChatID:     chatID,
			Members:    added,
			UpdateType: models.UpdateMemberAdded,
		},
	})
	return chatDto, nil
}

// UpdateGroupProperties changes the group name and/or image. Requires
// ADMIN. Blank fields are ignored rather than applied.
func (s *ChatService) UpdateGroupProperties(ctx context.Context, owner models.Principal, chatID uuid.UUID, newName, newImage *string) (models.ChatDisplay, error) {
	var chatDto models.ChatDisplay

	err := s.registry.Atomic(ctx, func(r repositories.Registry) error {
		if err := s.authorizeAdmin(ctx, r, chatID, owner.UserID); err != nil {
			return err
		}

		chat, err := r.Chats().GetChat(ctx, chatID)
		if err != nil {
			return err
		}

		if newName != nil && !isBlank(*newName) {
			chat.GroupName = newName
		} else {
			newName = nil
		}
		if newImage != nil {
			chat.GroupImage = newImage
		}

		if err := r.Chats().UpdateGroupProperties(ctx, chatID, newName, newImage); err != nil {
			return err
		}

		members, err := r.Chats().FindMembersByChat(ctx, chatID)
		if err != nil {
			return err
		}
		chatDto = models.DisplayChat(chat, members)
		return nil
	})
	if err != nil {
		return models.ChatDisplay{}, err
	}

	s.bus.Publish(events.ChatUpdated{ChatID: chatID, Chat: chatDto})
	return chatDto, nil
}

// UpdateMemberRole changes one member's role. Requires ADMIN. An
// existing ADMIN's role can only be changed by themself, and the last
// remaining ADMIN cannot step down, so a chat never ends up adminless.
func (s *ChatService) UpdateMemberRole(ctx context.Context, owner models.Principal, chatID, targetUserID uuid.UUID, newRole string) (models.MemberDisplay, error) {
	var memberDto models.MemberDisplay

	err := s.registry.Atomic(ctx, func(r repositories.Registry) error {
		if err := s.authorizeAdmin(ctx, r, chatID, owner.UserID); err != nil {
			return err
		}

		target, err := r.Chats().FindMembership(ctx, chatID, targetUserID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.Forbidden("target user is not a member of this chat")
			}
			return err
		}

		if target.Role == models.RoleAdmin && owner.UserID != targetUserID {
			return apperrors.Forbidden("cannot modify the role of an existing group ADMIN")
		}

		role := models.MemberRole(newRole)
		if role != models.RoleAdmin && role != models.RoleMember {
			return apperrors.Validation("invalid role %q: role must be ADMIN or MEMBER", newRole)
		}

		if target.Role == models.RoleAdmin && role == models.RoleMember {
			admins, err := r.Chats().CountAdmins(ctx, chatID)
			if err != nil {
				return err
			}
			if admins <= 1 {
				return apperrors.Validation("cannot demote the last ADMIN of the chat")
			}
		}

		if err := r.Chats().UpdateMemberRole(ctx, chatID, targetUserID, role); err != nil {
			return err
		}

		target.Role = role
		memberDto = models.DisplayMember(target)
		return nil
	})
	if err != nil {
		return models.MemberDisplay{}, err
	}

	s.evict(ctx, cache.ChatMembersKey(chatID.String()))
	s.bus.Publish(events.MemberUpdated{
		ChatID: chatID,
		Update: models.MemberUpdate{
			ChatID:     chatID,
			Members:    []models.MemberDisplay{memberDto},
			UpdateType: models.UpdateRoleUpdated,
		},
	})
	return memberDto, nil
}

// DeleteMember removes a batch of users from a chat. An ADMIN may not
// remove themself here; any other target needs the caller to be ADMIN or
// removing themself. All targets are validated before any row is
// deleted, so the batch commits atomically or not at all.
func (s *ChatService) DeleteMember(ctx context.Context, owner models.Principal, chatID uuid.UUID, targetUserIDs []uuid.UUID) error {
	var removed []models.Member

	err := s.registry.Atomic(ctx, func(r repositories.Registry) error {
		membersToRemove, err := r.Chats().FindMembersByChatAndUsers(ctx, chatID, targetUserIDs)
		if err != nil {
			return err
		}
		if len(membersToRemove) == 0 {
			return apperrors.NotFound("no matching members found to remove from the chat")
		}

		isAdmin := false
		if ownerMember, err := r.Chats().FindMembership(ctx, chatID, owner.UserID); err == nil {
			isAdmin = ownerMember.Role == models.RoleAdmin
		} else if !errors.Is(err, apperrors.ErrNotFound) {
			return err
		}

		for _, target := range membersToRemove {
			if target.UserID == owner.UserID && target.Role == models.RoleAdmin {
				return apperrors.Forbidden("group owner cannot remove themselves using this function")
			}
			isRemovingSelf := target.UserID == owner.UserID
			if !isAdmin && !isRemovingSelf {
				return apperrors.Forbidden("user does not have permission to remove one of the specified members")
			}
		}

		removeIDs := make([]uuid.UUID, 0, len(membersToRemove))
		for _, m := range membersToRemove {
			removeIDs = append(removeIDs, m.UserID)
		}
		if err := r.Chats().DeleteMembers(ctx, chatID, removeIDs); err != nil {
			return err
		}

		removed = membersToRemove
		return nil
	})
	if err != nil {
		return err
	}

	s.evict(ctx, cache.ChatMembersKey(chatID.String()))
	for _, m := range removed {
		s.evict(ctx, cache.UserChatsKey(m.UserID.String()))
		s.bus.Publish(events.ChatRemoved{ChatID: chatID, Username: m.Username})
	}
	s.bus.Publish(events.MemberUpdated{
		ChatID: chatID,
		Update: models.MemberUpdate{
			ChatID:     chatID,
			UpdateType: models.UpdateMemberRemoved,
		},
	})
	return nil
}

// authorizeAdmin requires an ADMIN membership for (chatID, userID).
// Missing membership and non-admin membership both come back as
// ErrForbidden, differing only in message.
func (s *ChatService) authorizeAdmin(ctx context.Context, r repositories.Registry, chatID, userID uuid.UUID) error {
	member, err := r.Chats().FindMembership(ctx, chatID, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.Forbidden("user is not a member of the chat")
		}
		return err
	}
	if member.Role != models.RoleAdmin {
		return apperrors.Forbidden("user does not have administrative privileges for this group")
	}
	return nil
}

func (s *ChatService) evict(ctx context.Context, key string) {
	if err := s.cache.Evict(ctx, key); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("cache eviction failed")
	}
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
