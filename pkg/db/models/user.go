package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/backoffice-api/pkg/enums"
)

// User is a back-office account.
type User struct {
	ID                     uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	FirstName              string     `gorm:"column:first_name;not null"`
	LastName               string     `gorm:"column:last_name;not null"`
	Email                  string     `gorm:"column:email;not null;uniqueIndex"`
	PasswordHash           string     `gorm:"column:password_hash;not null"`
	Role                   enums.Role `gorm:"column:role;not null;default:user"`
	ResetPasswordTokenHash *string    `gorm:"column:reset_password_token_hash"`
	ResetPasswordExpiresAt *time.Time `gorm:"column:reset_password_expires_at"`
	LastLoginAt            *time.Time `gorm:"column:last_login_at"`
	CreatedAt              time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(*gorm.DB) error {
	assignID(&u.ID)
	return nil
}
