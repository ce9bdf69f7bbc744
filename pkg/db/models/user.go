package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/smartcanteen/canteen-backend/pkg/enums"
)

// User is a canteen account. Students place orders; staff and admins run the kitchen.
type User struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Email        string     `gorm:"column:email;not null;uniqueIndex" json:"email"`
	RegNumber    string     `gorm:"column:reg_number;not null;uniqueIndex" json:"reg_number"`
	Name         string     `gorm:"column:name;not null" json:"name"`
	PhoneNumber  string     `gorm:"column:phone_number" json:"phone_number"`
	Gender       string     `gorm:"column:gender" json:"gender,omitempty"`
	Role         enums.Role `gorm:"column:role;type:text;not null" json:"role"`
	PasswordHash string     `gorm:"column:password_hash;not null" json:"-"`
	IsActive     bool       `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}
