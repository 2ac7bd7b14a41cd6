package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Email       string    `json:"email" gorm:"uniqueIndex;not null"`
	Password    string    `json:"-" gorm:"not null"`
	DisplayName string    `json:"display_name" gorm:"size:100"`
	Avatar      string    `json:"avatar"`
	Status      string    `json:"status" gorm:"default:'ACTIVE'"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BeforeCreate will set ID if not set
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// PublicUser is the author view embedded in prompt and comment responses
type PublicUser struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Avatar      string    `json:"avatar"`
}

func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, DisplayName: u.DisplayName, Avatar: u.Avatar}
}
