package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"simplyinvoicing/api/internal/models"
	"simplyinvoicing/api/internal/plans"
)

func newClientFixture() (*mockClientRepo, *mockUserRepo, IClientService) {
	clients := new(mockClientRepo)
	users := new(mockUserRepo)
	return clients, users, NewClientService(clients, users, testPlanTable(), fixedClock(testNow))
}

func TestClientService_Create(t *testing.T) {
	clients, users, svc := newClientFixture()
	users.On("FindByID", mock.Anything, "user-1").Return(newTestUser("user-1", plans.KeyBasic), nil)
	clients.On("CountByUser", mock.Anything, "user-1").Return(int64(24), nil)
	clients.On("Insert", mock.Anything, mock.AnythingOfType("*models.Client")).Return(nil)

	client, err := svc.Create(context.Background(), "user-1", models.ClientInput{Name: " Acme Ltd ", Email: "ap@acme.example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Acme Ltd", client.Name)
	assert.Equal(t, "user-1", client.UserID)
	assert.Equal(t, models.ClientStatusActive, client.Status)
	assert.Equal(t, testNow, client.CreatedAt)
	assert.Equal(t, testNow, client.UpdatedAt)
}

func TestClientService_CreateAtCeiling(t *testing.T) {
	clients, users, svc := newClientFixture()
	users.On("FindByID", mock.Anything, "user-1").Return(newTestUser("user-1", plans.KeyBasic), nil)
	clients.On("CountByUser", mock.Anything, "user-1").Return(int64(25), nil)

	_, err := svc.Create(context.Background(), "user-1", models.ClientInput{Name: "Acme"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrQuotaExceeded))
	assert.Contains(t, err.Error(), "25 clients")
	clients.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestClientService_CreateValidates(t *testing.T) {
	_, _, svc := newClientFixture()

	_, err := svc.Create(context.Background(), "user-1", models.ClientInput{Name: "Acme", Phone: "not a phone!"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "phone", verr.Field)

	_, err = svc.Create(context.Background(), "user-1", models.ClientInput{})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)
}

func TestClientService_NotOwned(t *testing.T) {
	clients, _, svc := newClientFixture()
	clients.On("FindByID", mock.Anything, "client-1").Return(&models.Client{Base: models.Base{ID: "client-1"}, UserID: "user-2"}, nil)

	_, err := svc.Get(context.Background(), "user-1", "client-1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Update(context.Background(), "user-1", "client-1", models.ClientInput{Name: "Mine now"})
	assert.ErrorIs(t, err, ErrNotFound)

	err = svc.Delete(context.Background(), "user-1", "client-1")
	assert.ErrorIs(t, err, ErrNotFound)

	clients.AssertNotCalled(t, "Replace", mock.Anything, mock.Anything)
	clients.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestClientService_ListRejectsUnknownStatus(t *testing.T) {
	clients, _, svc := newClientFixture()
	clients.On("ListByUser", mock.Anything, "user-1", models.ClientStatusActive).Return([]models.Client{{Name: "Acme"}}, nil)

	list, err := svc.List(context.Background(), "user-1", models.ClientStatusActive)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.List(context.Background(), "user-1", "archived")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}
