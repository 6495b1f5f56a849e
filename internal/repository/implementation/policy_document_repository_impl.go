package implementation

import (
	"context"
	"errors"

	"callcenter-assistant-be/internal/entity"
	"callcenter-assistant-be/internal/repository/contract"
	"callcenter-assistant-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PolicyDocumentRepositoryImpl struct {
	db *gorm.DB
}

func NewPolicyDocumentRepository(db *gorm.DB) contract.PolicyDocumentRepository {
	return &PolicyDocumentRepositoryImpl{db: db}
}

func (r *PolicyDocumentRepositoryImpl) Create(ctx context.Context, document *entity.PolicyDocument) error {
	return r.db.WithContext(ctx).Create(document).Error
}

func (r *PolicyDocumentRepositoryImpl) Update(ctx context.Context, document *entity.PolicyDocument) error {
	return r.db.WithContext(ctx).Save(document).Error
}

func (r *PolicyDocumentRepositoryImpl) FindById(ctx context.Context, id uuid.UUID) (*entity.PolicyDocument, error) {
	var document entity.PolicyDocument
	if err := r.db.WithContext(ctx).First(&document, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &document, nil
}

func (r *PolicyDocumentRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.PolicyDocument, error) {
	var documents []*entity.PolicyDocument
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&documents).Error; err != nil {
		return nil, err
	}
	return documents, nil
}
