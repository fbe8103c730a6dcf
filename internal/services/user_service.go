package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"simplyinvoicing/api/internal/auth"
	"simplyinvoicing/api/internal/db"
	"simplyinvoicing/api/internal/models"
	"simplyinvoicing/api/internal/plans"
	"simplyinvoicing/api/internal/repository"
)

// IUserService defines the interface for account and profile operations.
type IUserService interface {
	SignUp(ctx context.Context, email, password, displayName string) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	GetProfile(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, in models.ProfileInput) (*models.User, error)
}

type userService struct {
	users    repository.IUserRepository
	roles    IRoleService
	settings ISettingsService
	plans    *plans.Table
	queue    ITaskQueue
}

// NewUserService creates a new UserService.
func NewUserService(users repository.IUserRepository, roles IRoleService, settings ISettingsService, planTable *plans.Table, queue ITaskQueue) IUserService {
	return &userService{users: users, roles: roles, settings: settings, plans: planTable, queue: queue}
}

// SignUp creates an account on the default plan, assigns its initial role,
// stores default settings and queues the welcome email.
func (s *userService) SignUp(ctx context.Context, email, password, displayName string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := models.Validator().Var(email, "required,email"); err != nil {
		return nil, newValidationError("email", "must be a valid email address")
	}
	if err := auth.CheckPasswordPolicy(password); err != nil {
		return nil, newValidationError("password", err.Error())
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("error finding user by email %s: %w", email, err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &models.User{
		Email:        email,
		DisplayName:  strings.TrimSpace(displayName),
		Plan:         s.plans.Default().Key,
		PasswordHash: hash,
		Timestamps:   models.Timestamps{CreatedAt: now, UpdatedAt: now},
	}

	err = db.Try(ctx, func() error {
		user.GenID() // ID generated on each attempt
		return s.users.Insert(ctx, user)
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) && strings.Contains(err.Error(), "unique_email") {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("error inserting new user %s: %w", email, err)
	}

	if _, err := s.roles.AssignInitialRole(ctx, user.ID, email); err != nil {
		return nil, err
	}
	if err := s.settings.EnsureDefaults(ctx, user.ID); err != nil {
		return nil, err
	}
	if s.queue != nil {
		if err := s.queue.EnqueueWelcomeEmail(ctx, user.ID); err != nil {
			log.WithError(err).WithField("userId", user.ID).Warn("Failed to enqueue welcome email")
		}
	}

	log.WithFields(log.Fields{"userId": user.ID, "email": email}).Info("User signed up")
	return user, nil
}

// Authenticate checks an email and password pair.
func (s *userService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error finding user by email %s: %w", email, err)
	}
	if user.PasswordHash == "" || !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *userService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding user %s: %w", userID, err)
	}
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID string, in models.ProfileInput) (*models.User, error) {
	if err := in.Validate(); err != nil {
		return nil, validationFromErr(err)
	}
	if err := s.users.UpdateProfile(ctx, userID, in); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.GetProfile(ctx, userID)
}
