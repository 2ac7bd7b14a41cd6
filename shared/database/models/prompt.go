package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Prompt - A shared AI prompt
type Prompt struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Title        string    `json:"title" gorm:"size:200;not null"`
	Description  string    `json:"description" gorm:"size:1000"`
	Content      string    `json:"content" gorm:"type:text;not null"`
	Tags         []string  `json:"tags" gorm:"serializer:json;type:text"`
	Category     string    `json:"category" gorm:"size:50;index"`
	IsPublic     bool      `json:"is_public" gorm:"default:true;index"`
	AuthorID     uuid.UUID `json:"author_id" gorm:"type:uuid;not null;index"`
	VoteScore    int       `json:"vote_score" gorm:"default:0;index"`
	CommentCount int       `json:"comment_count" gorm:"default:0"`
	CreatedAt    time.Time `json:"created_at" gorm:"index"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Relations
	Author User `json:"-" gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
}

// Vote - One user's up (+1) or down (-1) vote on a prompt
type Vote struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_vote_user_prompt"`
	PromptID  uuid.UUID `json:"prompt_id" gorm:"type:uuid;not null;uniqueIndex:idx_vote_user_prompt;index"`
	Value     int       `json:"value" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Prompt Prompt `json:"-" gorm:"foreignKey:PromptID;constraint:OnDelete:CASCADE"`
}

// Comment - A user comment on a prompt
type Comment struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PromptID  uuid.UUID `json:"prompt_id" gorm:"type:uuid;not null;index"`
	AuthorID  uuid.UUID `json:"author_id" gorm:"type:uuid;not null;index"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Prompt Prompt `json:"-" gorm:"foreignKey:PromptID;constraint:OnDelete:CASCADE"`
	Author User   `json:"-" gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
}

func (p *Prompt) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (v *Vote) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
