package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/smartcanteen/canteen-backend/pkg/db/models"
	pkgerrors "github.com/smartcanteen/canteen-backend/pkg/errors"
)

type userRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListActiveStaffIDsTx(ctx context.Context, tx *gorm.DB) ([]uuid.UUID, error)
}

// Service answers identity lookups for the order core and the /me endpoint.
type Service struct {
	repo userRepository
}

func NewService(repo userRepository) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	return &Service{repo: repo}, nil
}

// GetUser resolves the id and role of an active account.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*Identity, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Identity{ID: user.ID, Role: user.Role}, nil
}

// Profile returns the public view of the account.
func (s *Service) Profile(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

// StaffRecipients lists the accounts that receive kitchen alerts.
func (s *Service) StaffRecipients(ctx context.Context, tx *gorm.DB) ([]uuid.UUID, error) {
	ids, err := s.repo.ListActiveStaffIDsTx(ctx, tx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list staff")
	}
	return ids, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account disabled")
	}
	if !user.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("user has unknown role %q", user.Role))
	}
	return user, nil
}
