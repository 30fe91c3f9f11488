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

// ContactService manages the directional address book.
type ContactService struct {
	registry repositories.Registry
	cache    cache.Cache
	cacheTTL time.Duration
	bus      *events.Bus
	logger   *logrus.Logger
}

func NewContactService(registry repositories.Registry, c cache.Cache, ttl time.Duration, bus *events.Bus, logger *logrus.Logger) *ContactService {
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	return &ContactService{registry: registry, cache: c, cacheTTL: ttl, bus: bus, logger: logger}
}

// SyncContacts reports which of the supplied phone numbers belong to
// registered users. Read-only; no authorization is applied.
func (s *ContactService) SyncContacts(ctx context.Context, phoneNumbers []string) ([]models.ContactMatch, error) {
	matched, err := s.registry.Users().FindByPhones(ctx, phoneNumbers)
	if err != nil {
		return nil, err
	}

	matches := make([]models.ContactMatch, 0, len(matched))
	for _, u := range matched {
		matches = append(matches, models.ContactMatch{
			UserID:      u.ID,
			Username:    u.Username,
			Name:        u.Name,
			PhoneNumber: u.PhoneNumber,
		})
	}
	return matches, nil
}

// GetAllContacts returns the owner's contacts, cached per owner id.
func (s *ContactService) GetAllContacts(ctx context.Context, owner models.Principal) ([]models.ContactDisplay, error) {
	key := cache.ContactsKey(owner.UserID.String())

	var cached []models.ContactDisplay
	if found, err := s.cache.Get(ctx, key, &cached); err != nil {
		s.logger.WithError(err).Warn("contact list cache read failed")
	} else if found {
		return cached, nil
	}

	contacts, err := s.registry.Contacts().ListByOwner(ctx, owner.UserID)
	if err != nil {
		return nil, err
	}

	displays := make([]models.ContactDisplay, 0, len(contacts))
	for _, c := range contacts {
		displays = append(displays, models.DisplayContact(c))
	}

	if err := s.cache.Put(ctx, key, displays, s.cacheTTL); err != nil {
		s.logger.WithError(err).Warn("contact list cache write failed")
	}
	return displays, nil
}

// GetContactByPhoneNumber resolves a single phone number to a
// registered user, if any.
func (s *ContactService) GetContactByPhoneNumber(ctx context.Context, phoneNumber string) (models.ContactMatch, error) {
	user, err := s.registry.Users().FindByPhone(ctx, phoneNumber)
	if err != nil {
		return models.ContactMatch{}, err
	}
	return models.ContactMatch{
		UserID:      user.ID,
		Username:    user.Username,
		Name:        user.Name,
		PhoneNumber: user.PhoneNumber,
	}, nil
}

// AddContact creates a one-way contact entry towards the user owning
// targetPhone. Notifies the target, not the owner: being added to
// someone's address book is what the other party wants to hear about.
func (s *ContactService) AddContact(ctx context.Context, owner models.Principal, targetPhone string, displayName *string) (models.ContactDisplay, error) {
	var (
		contactDto     models.ContactDisplay
		targetUsername string
	)

	err := s.registry.Atomic(ctx, func(r repositories.Registry) error {
		target, err := r.Users().FindByPhone(ctx, targetPhone)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.NotFound("target user not found")
			}
			return err
		}

		if owner.UserID == target.ID {
			return apperrors.Validation("cannot add yourself as a contact")
		}

		if _, err := r.Contacts().FindRelationship(ctx, owner.UserID, target.ID); err == nil {
			return apperrors.Validation("contact already added")
		} else if !errors.Is(err, apperrors.ErrNotFound) {
			return err
		}

		contact := models.Contact{
			OwnerID:            owner.UserID,
			ContactUserID:      target.ID,
			DisplayName:        displayName,
			ContactUsername:    target.Username,
			ContactPhoneNumber: target.PhoneNumber,
		}
		if err := r.Contacts().Create(ctx, &contact); err != nil {
			return err
		}

		targetUsername = target.Username
		contactDto = models.DisplayContact(contact)
		return nil
	})
	if err != nil {
		return models.ContactDisplay{}, err
	}

	s.evict(ctx, cache.ContactsKey(owner.UserID.String()))
	s.bus.Publish(events.ContactUpdated{
		TargetUsername: targetUsername,
		Notification: models.ContactNotification{
			UserID:     owner.UserID,
			Username:   owner.Username,
			ChangeType: models.ContactAdded,
		},
	})
	return contactDto, nil
}

// UpdateContact changes the display name and/or the contact's phone
// number. The display name lives on the relationship row; the phone
// number lives on the shared user row, so a phone change is visible to
// every owner observing that user and is the only change notified.
func (s *ContactService) UpdateContact(ctx context.Context, owner models.Principal, targetUserID uuid.UUID, newDisplayName, newPhoneNumber *string) (models.ContactDisplay, error) {
	var (
		contactDto     models.ContactDisplay
		targetUsername string
		phoneUpdated   bool
	)

	err := s.registry.Atomic(ctx, func(r repositories.Registry) error {
		target, err := r.Users().FindByID(ctx, targetUserID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.NotFound("target user not found")
			}
			return err
		}

		relationship, err := r.Contacts().FindRelationship(ctx, owner.UserID, targetUserID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.Forbidden("contact relationship not found or unauthorized")
			}
			return err
		}

		if newPhoneNumber != nil && !isBlank(*newPhoneNumber) {
			if err := r.Users().UpdatePhoneNumber(ctx, targetUserID, *newPhoneNumber); err != nil {
				return err
			}
			relationship.ContactPhoneNumber = *newPhoneNumber
			phoneUpdated = true
		}

		if newDisplayName != nil && !isBlank(*newDisplayName) {
			if err := r.Contacts().UpdateDisplayName(ctx, relationship.ID, *newDisplayName); err != nil {
				return err
			}
			relationship.DisplayName = newDisplayName
		}

		targetUsername = target.Username
		contactDto = models.DisplayContact(relationship)
		return nil
	})
	if err != nil {
		return models.ContactDisplay{}, err
	}

	s.evict(ctx, cache.ContactsKey(owner.UserID.String()))
	if phoneUpdated {
		s.bus.Publish(events.ContactUpdated{
			TargetUsername: targetUsername,
			Notification: models.ContactNotification{
				UserID:     owner.UserID,
				Username:   owner.Username,
				ChangeType: models.ContactDetailsUpdated,
			},
		})
	}
	return contactDto, nil
}

// DeleteContact removes the owner's entry for targetUserID and notifies
// the removed party.
func (s *ContactService) DeleteContact(ctx context.Context, owner models.Principal, targetUserID uuid.UUID) error {
	var targetUsername string

	err := s.registry.Atomic(ctx, func(r repositories.Registry) error {
		relationship, err := r.Contacts().FindRelationship(ctx, owner.UserID, targetUserID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.Forbidden("contact not found or unauthorized")
			}
			return err
		}

		if err := r.Contacts().Delete(ctx, relationship.ID); err != nil {
			return err
		}

		targetUsername = relationship.ContactUsername
		return nil
	})
	if err != nil {
		return err
	}

	s.evict(ctx, cache.ContactsKey(owner.UserID.String()))
	s.bus.Publish(events.ContactUpdated{
		TargetUsername: targetUsername,
		Notification: models.ContactNotification{
			UserID:     owner.UserID,
			Username:   owner.Username,
			ChangeType: models.ContactRemoved,
		},
	})
	return nil
}

func (s *ContactService) evict(ctx context.Context, key string) {
	if err := s.cache.Evict(ctx, key); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("cache eviction failed")
	}
}
