package entity

import (
	"time"

	"github.com/google/uuid"
)

type FileUpload struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey"`
	MessageId    *uuid.UUID `gorm:"type:uuid;index"` // linked once the message exists
	OriginalName string
	LocalPath    string
	ExternalPath string
	FileSize     int64
	MimeType     string
	IsProcessed    bool `gorm:"index"`
	UploadedBy     string
	OrganizationId string `gorm:"index"`
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}
