package contract

import (
	"context"

	"callcenter-assistant-be/internal/entity"
	"callcenter-assistant-be/internal/repository/specification"

	"github.com/google/uuid"
)

type PolicyDocumentRepository interface {
	Create(ctx context.Context, document *entity.PolicyDocument) error
	Update(ctx context.Context, document *entity.PolicyDocument) error
	FindById(ctx context.Context, id uuid.UUID) (*entity.PolicyDocument, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.PolicyDocument, error)
}
