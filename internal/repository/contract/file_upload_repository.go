package contract

import (
	"context"

	"callcenter-assistant-be/internal/entity"

	"github.com/google/uuid"
)

type FileUploadRepository interface {
	Create(ctx context.Context, upload *entity.FileUpload) error
	FindById(ctx context.Context, id uuid.UUID) (*entity.FileUpload, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	LinkToMessage(ctx context.Context, id, messageId uuid.UUID) error
}
