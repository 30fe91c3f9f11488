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

func TestSyncContactsIsUnauthenticated(t *testing.T) {
	f := newAPIFixture()

	bobID := uuid.New()
	f.registry.UsersMock.On("FindByPhones", mock.Anything, []string{"+111", "+222"}).
		Return([]models.User{{ID: bobID, Username: "bob", PhoneNumber: "+222"}}, nil).Once()

	rec := f.do(t, http.MethodPost, "/contacts/sync", `{"phone_numbers":["+111","+222"]}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Contacts []models.ContactMatch `json:"contacts"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Contacts, 1)
	assert.Equal(t, bobID, resp.Contacts[0].UserID)
}

func TestAddContactEndpoint(t *testing.T) {
	f := newAPIFixture()

	ownerID := uuid.New()
	bobID := uuid.New()
	owner := models.Principal{UserID: ownerID, Username: "alice"}

	f.registry.UsersMock.On("FindByPhone", mock.Anything, "+222").
		Return(models.User{ID: bobID, Username: "bob", PhoneNumber: "+222"}, nil).Once()
	f.registry.ContactsMock.On("FindRelationship", mock.Anything, ownerID, bobID).
		Return(models.Contact{}, apperrors.NotFound("contact not found")).Once()
	f.registry.ContactsMock.On("Create", mock.Anything, mock.AnythingOfType("*models.Contact")).
		Return(nil).Once()

	rec := f.do(t, http.MethodPost, "/contacts", `{"phone_number":"+222","display_name":"Bobby"}`, &owner)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp models.ContactDisplay
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, bobID, resp.UserID)
	assert.Equal(t, "bob", resp.Username)

	f.registry.AssertExpectations(t)
}

func TestAddContactUnknownPhone(t *testing.T) {
	f := newAPIFixture()
	owner := models.Principal{UserID: uuid.New(), Username: "alice"}

	f.registry.UsersMock.On("FindByPhone", mock.Anything, "+999").
		Return(models.User{}, apperrors.NotFound("user not found")).Once()

	rec := f.do(t, http.MethodPost, "/contacts", `{"phone_number":"+999"}`, &owner)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListContactsEndpoint(t *testing.T) {
	f := newAPIFixture()

	ownerID := uuid.New()
	owner := models.Principal{UserID: ownerID, Username: "alice"}

	f.registry.ContactsMock.On("ListByOwner", mock.Anything, ownerID).
		Return([]models.Contact{{ID: uuid.New(), OwnerID: ownerID, ContactUserID: uuid.New(), ContactUsername: "bob", ContactPhoneNumber: "+222"}}, nil).Once()

	rec := f.do(t, http.MethodGet, "/contacts", "", &owner)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Contacts []models.ContactDisplay `json:"contacts"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Contacts, 1)
	assert.Equal(t, "bob", resp.Contacts[0].Username)
}

func TestGetContactByPhoneRequiresParam(t *testing.T) {
	f := newAPIFixture()
	owner := models.Principal{UserID: uuid.New(), Username: "alice"}

	rec := f.do(t, http.MethodGet, "/contacts/by-phone", "", &owner)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteContactEndpoint(t *testing.T) {
	f := newAPIFixture()

	ownerID := uuid.New()
	bobID := uuid.New()
	relID := uuid.New()
	owner := models.Principal{UserID: ownerID, Username: "alice"}

	f.registry.ContactsMock.On("FindRelationship", mock.Anything, ownerID, bobID).
		Return(models.Contact{ID: relID, OwnerID: ownerID, ContactUserID: bobID, ContactUsername: "bob"}, nil).Once()
	f.registry.ContactsMock.On("Delete", mock.Anything, relID).Return(nil).Once()

	rec := f.do(t, http.MethodDelete, "/contacts/"+bobID.String(), "", &owner)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	f.registry.AssertExpectations(t)
}
