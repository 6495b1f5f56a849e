package contract

import (
	"context"

	"callcenter-assistant-be/internal/entity"
	"callcenter-assistant-be/internal/repository/specification"

	"github.com/google/uuid"
)

type MessageRepository interface {
	Create(ctx context.Context, message *entity.Message) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Message, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	DeleteAllByConversationId(ctx context.Context, conversationId uuid.UUID) error
}
