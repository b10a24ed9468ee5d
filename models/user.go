package models

import (
	"context"
	"time"

	"github.com/fintally/ledger_backend/config"
)

// User is owned by the auth/membership layer; the ledger only reads it to
// decorate conflict metadata with the last modifier's identity.
type User struct {
	ID             int       `gorm:"primary_key" json:"id"`
	OrganizationId string    `gorm:"index;not null" json:"organization_id"`
	Name           string    `gorm:"size:100;not null" json:"name"`
	Email          string    `gorm:"size:255;index" json:"email"`
	IsActive       *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u User) GetId() int {
	return u.ID
}

// lookupUser tolerates missing rows; conflict metadata is best-effort.
func lookupUser(ctx context.Context, id int) *User {
	if id <= 0 {
		return nil
	}
	db := config.GetDB()
	var user User
	if err := db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil
	}
	return &user
}
