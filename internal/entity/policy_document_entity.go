package entity

import (
	"time"

	"github.com/google/uuid"
)

type PolicyDocument struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title         string
	Description   string
	Type          string `gorm:"index"` // onboarding, code_of_conduct, ...
	FileName      string
	FilePath      string
	FileSize      int64
	MimeType      string
	UploadedBy    string
	Version       string
	Department    string `gorm:"index"`
	EffectiveDate *time.Time
	IsProcessed   bool
	CreatedAt     time.Time
	UpdatedAt     *time.Time
	DeletedAt     *time.Time
	IsDeleted     bool
}
