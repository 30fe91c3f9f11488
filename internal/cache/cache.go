// Package cache provides the key→value store used for chat-list,
// member-list and contact-list reads. Mutating operations evict the
// affected keys after commit; a reader that misses repopulates.
package cache

import (
	"context"
	"time"
)

// DefaultTTL is a policy constant, not an architectural requirement.
const DefaultTTL = 10 * time.Minute

// Cache stores JSON-encoded values under string keys. Get reports a miss
// with found=false rather than an error.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (found bool, err error)
	Put(ctx context.Context, key string, value any, ttl time.Duration) error
	Evict(ctx context.Context, key string) error
}

// Cache key builders. Keys are per owner or per chat so a mutation
// evicts exactly the entries it invalidates.

func UserChatsKey(ownerID string) string {
	return "userChats:" + ownerID
}

func ChatMembersKey(chatID string) string {
	return "chatMembers:" + chatID
}

func ContactsKey(ownerID string) string {
	return "contacts:" + ownerID
}
