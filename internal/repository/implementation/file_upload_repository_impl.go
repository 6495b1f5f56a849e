package implementation

import (
	"context"
	"errors"

	"callcenter-assistant-be/internal/entity"
	"callcenter-assistant-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FileUploadRepositoryImpl struct {
	db *gorm.DB
}

func NewFileUploadRepository(db *gorm.DB) contract.FileUploadRepository {
	return &FileUploadRepositoryImpl{db: db}
}

func (r *FileUploadRepositoryImpl) Create(ctx context.Context, upload *entity.FileUpload) error {
	return r.db.WithContext(ctx).Create(upload).Error
}

func (r *FileUploadRepositoryImpl) FindById(ctx context.Context, id uuid.UUID) (*entity.FileUpload, error) {
	var upload entity.FileUpload
	if err := r.db.WithContext(ctx).First(&upload, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &upload, nil
}

func (r *FileUploadRepositoryImpl) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&entity.FileUpload{}).
		Where("id = ?", id).
		Update("is_processed", true).Error
}

func (r *FileUploadRepositoryImpl) LinkToMessage(ctx context.Context, id, messageId uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&entity.FileUpload{}).
		Where("id = ?", id).
		Update("message_id", messageId).Error
}
