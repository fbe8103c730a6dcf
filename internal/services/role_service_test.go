package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"simplyinvoicing/api/internal/access"
	"simplyinvoicing/api/internal/config"
	"simplyinvoicing/api/internal/models"
)

func TestRoleService_MissingRoleIsGuest(t *testing.T) {
	repo := new(mockRoleRepo)
	repo.On("Get", mock.Anything, "user-1").Return(nil, mongo.ErrNoDocuments).Once()
	svc := NewRoleService(repo, &config.Config{})

	role, err := svc.GetRole(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleGuest, role.Role)

	err = svc.Authorize(context.Background(), "user-1", access.NewPermission(access.ResourceInvoice, access.ActionCreate))
	assert.ErrorIs(t, err, ErrForbidden)
	err = svc.Authorize(context.Background(), "user-1", access.NewPermission(access.ResourceInvoice, access.ActionRead))
	assert.NoError(t, err)

	// Served from the cache after the first lookup.
	repo.AssertNumberOfCalls(t, "Get", 1)
}

func TestRoleService_AuthorizeRequiresUser(t *testing.T) {
	svc := NewRoleService(new(mockRoleRepo), &config.Config{})
	err := svc.Authorize(context.Background(), "", access.NewPermission(access.ResourceInvoice, access.ActionRead))
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRoleService_AssignInitialRole(t *testing.T) {
	tests := []struct {
		name        string
		email       string
		configured  []string
		storedAdmin bool
		want        string
	}{
		{name: "configured admin", email: "owner@example.com", configured: []string{"Owner@Example.com"}, want: models.RoleAdmin},
		{name: "stored admin", email: "ops@example.com", storedAdmin: true, want: models.RoleAdmin},
		{name: "regular user", email: "someone@example.com", want: models.RoleUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockRoleRepo)
			if len(tt.configured) == 0 {
				repo.On("IsAdminEmail", mock.Anything, tt.email).Return(tt.storedAdmin, nil)
			}
			repo.On("Upsert", mock.Anything, mock.MatchedBy(func(r *models.UserRole) bool {
				return r.ID == "user-1" && r.Role == tt.want
			})).Return(nil)
			svc := NewRoleService(repo, &config.Config{AdminEmails: tt.configured})

			role, err := svc.AssignInitialRole(context.Background(), "user-1", tt.email)
			require.NoError(t, err)
			assert.Equal(t, tt.want, role.Role)
			assert.Equal(t, access.Strings(access.PermissionsFor(tt.want)), role.Permissions)
			repo.AssertExpectations(t)
		})
	}
}

func TestRoleService_SetRoleInvalidatesCache(t *testing.T) {
	repo := new(mockRoleRepo)
	repo.On("Get", mock.Anything, "user-1").Return(&models.UserRole{ID: "user-1", Role: models.RoleGuest}, nil).Once()
	repo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	repo.On("Get", mock.Anything, "user-1").Return(&models.UserRole{ID: "user-1", Role: models.RoleManager}, nil).Once()
	svc := NewRoleService(repo, &config.Config{})

	role, err := svc.GetRole(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleGuest, role.Role)

	_, err = svc.SetRole(context.Background(), "user-1", models.RoleManager)
	require.NoError(t, err)

	role, err = svc.GetRole(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleManager, role.Role)

	_, err = svc.SetRole(context.Background(), "user-1", "superuser")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}
