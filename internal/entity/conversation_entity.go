package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Conversation struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrganizationId string    `gorm:"index"`
	UserId         string    `gorm:"index"`
	Title          string
	State          datatypes.JSON `gorm:"type:jsonb"` // routing state, one blob per conversation
	Summary        string         // rolling summary of older turns
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	DeletedAt      *time.Time
	IsDeleted      bool
}
