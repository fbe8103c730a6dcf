package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"simplyinvoicing/api/internal/access"
	"simplyinvoicing/api/internal/config"
	"simplyinvoicing/api/internal/models"
	"simplyinvoicing/api/internal/repository"
)

const (
	roleCacheSize = 4096
	roleCacheTTL  = time.Minute
)

// IRoleService resolves user roles and checks permissions.
type IRoleService interface {
	GetRole(ctx context.Context, userID string) (*models.UserRole, error)
	Authorize(ctx context.Context, userID string, perm access.Permission) error
	AssignInitialRole(ctx context.Context, userID, email string) (*models.UserRole, error)
	SetRole(ctx context.Context, userID, role string) (*models.UserRole, error)
}

type roleService struct {
	repo  repository.IRoleRepository
	cfg   *config.Config
	cache *lru.LRU[string, *models.UserRole]
}

// NewRoleService creates a role service with a short-lived lookup cache.
func NewRoleService(repo repository.IRoleRepository, cfg *config.Config) IRoleService {
	return &roleService{
		repo:  repo,
		cfg:   cfg,
		cache: lru.NewLRU[string, *models.UserRole](roleCacheSize, nil, roleCacheTTL),
	}
}

// GetRole returns the stored role. Users without a role document are guests.
func (s *roleService) GetRole(ctx context.Context, userID string) (*models.UserRole, error) {
	if role, ok := s.cache.Get(userID); ok {
		return role, nil
	}
	role, err := s.repo.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("failed to load role for user %s: %w", userID, err)
		}
		role = newUserRole(userID, models.RoleGuest)
	}
	s.cache.Add(userID, role)
	return role, nil
}

func (s *roleService) Authorize(ctx context.Context, userID string, perm access.Permission) error {
	if userID == "" {
		return ErrUnauthenticated
	}
	role, err := s.GetRole(ctx, userID)
	if err != nil {
		return err
	}
	if !access.Allowed(role.Role, perm) {
		log.WithFields(log.Fields{"userId": userID, "role": role.Role, "permission": perm}).Debug("Permission denied")
		return ErrForbidden
	}
	return nil
}

// AssignInitialRole gives a new account the admin role when its email is on
// the allow-list, otherwise the user role.
func (s *roleService) AssignInitialRole(ctx context.Context, userID, email string) (*models.UserRole, error) {
	roleName := models.RoleUser
	if s.cfg.IsAdminEmail(email) {
		roleName = models.RoleAdmin
	} else {
		isAdmin, err := s.repo.IsAdminEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if isAdmin {
			roleName = models.RoleAdmin
		}
	}
	return s.save(ctx, newUserRole(userID, roleName))
}

func (s *roleService) SetRole(ctx context.Context, userID, role string) (*models.UserRole, error) {
	if !access.ValidRole(role) {
		return nil, newValidationError("role", "must be one of: admin manager user guest")
	}
	return s.save(ctx, newUserRole(userID, role))
}

func (s *roleService) save(ctx context.Context, role *models.UserRole) (*models.UserRole, error) {
	if err := s.repo.Upsert(ctx, role); err != nil {
		return nil, err
	}
	s.cache.Remove(role.ID)
	log.WithFields(log.Fields{"userId": role.ID, "role": role.Role}).Info("Role assigned")
	return role, nil
}

func newUserRole(userID, role string) *models.UserRole {
	return &models.UserRole{
		ID:          userID,
		Role:        role,
		Permissions: access.Strings(access.PermissionsFor(role)),
		UpdatedAt:   time.Now().UTC(),
	}
}
