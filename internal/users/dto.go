package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/smartcanteen/canteen-backend/pkg/db/models"
	"github.com/smartcanteen/canteen-backend/pkg/enums"
)

// Identity is the minimal view of a user the order policy needs.
type Identity struct {
	ID   uuid.UUID
	Role enums.Role
}

// IsStaff reports whether the identity may run the kitchen pipeline.
func (i Identity) IsStaff() bool {
	return i.Role.IsStaffOrAdmin()
}

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	RegNumber   string     `json:"reg_number"`
	Name        string     `json:"name"`
	PhoneNumber string     `json:"phone_number"`
	Gender      string     `json:"gender,omitempty"`
	Role        enums.Role `json:"role"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		RegNumber:   u.RegNumber,
		Name:        u.Name,
		PhoneNumber: u.PhoneNumber,
		Gender:      u.Gender,
		Role:        u.Role,
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
