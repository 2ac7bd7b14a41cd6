package auth

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PasswordResetAttempt is an audit record of reset requests and completions.
// The tokens themselves live in the reset token store, not here.
type PasswordResetAttempt struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Email      string    `gorm:"type:varchar(255);not null;index"`
	IPAddress  string    `gorm:"type:varchar(45);index"`
	UserAgent  string    `gorm:"type:varchar(255)"`
	Stage      string    `gorm:"type:varchar(20);not null"` // requested, completed, rejected
	Successful bool      `gorm:"default:false"`
	CreatedAt  time.Time `gorm:"not null"`
}

// BeforeCreate will set ID if not set
func (a *PasswordResetAttempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
