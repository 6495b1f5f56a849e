package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Message struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey"`
	ConversationId uuid.UUID `gorm:"type:uuid;not null;index"`
	Role           string    // "user" or "assistant"
	Content        string    // text in the user's language
	OriginalContent  string  // pre-translation text when the turn was not English
	OriginalLanguage string  // ISO 639-1 code, empty for English turns
	EnglishContent   string  // English pivot text when translated
	Type           string    // "user.message", "docs.search", "jira_ticket", ...
	Sources        datatypes.JSON `gorm:"type:jsonb"` // citations for assistant turns
	Attachments    datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	DeletedAt      *time.Time
	IsDeleted      bool

	Conversation *Conversation `gorm:"foreignKey:ConversationId;references:Id;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}
