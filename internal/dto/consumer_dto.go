package dto

import "github.com/google/uuid"

// PublishFileProcessMessage asks the background consumer to process one
// uploaded file.
type PublishFileProcessMessage struct {
	FileId uuid.UUID `json:"file_id"`
}
