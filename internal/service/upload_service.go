package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"callcenter-assistant-be/internal/dto"
	"callcenter-assistant-be/internal/entity"
	"callcenter-assistant-be/internal/pkg/logger"
	"callcenter-assistant-be/internal/repository/contract"
	"callcenter-assistant-be/pkg/events"
	pkgNats "callcenter-assistant-be/pkg/nats"

	"github.com/google/uuid"
)

type UploadInput struct {
	OriginalName   string
	MimeType       string
	Content        []byte
	UploadedBy     string
	OrganizationId string
}

type IUploadService interface {
	Upload(ctx context.Context, input UploadInput) (*dto.UploadResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.UploadResponse, error)
}

type uploadService struct {
	fileUploadRepository contract.FileUploadRepository
	publisherService     IPublisherService
	eventPublisher       *pkgNats.Publisher
	uploadDir            string
	logger               logger.ILogger
}

func NewUploadService(
	fileUploadRepository contract.FileUploadRepository,
	publisherService IPublisherService,
	eventPublisher *pkgNats.Publisher,
	uploadDir string,
	log logger.ILogger,
) IUploadService {
	return &uploadService{
		fileUploadRepository: fileUploadRepository,
		publisherService:     publisherService,
		eventPublisher:       eventPublisher,
		uploadDir:            uploadDir,
		logger:               log,
	}
}

// Upload persists the file to local storage, records it, and queues it for
// background processing.
func (s *uploadService) Upload(ctx context.Context, input UploadInput) (*dto.UploadResponse, error) {
	if len(input.Content) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	id := uuid.New()
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("prepare upload dir: %w", err)
	}
	localPath := filepath.Join(s.uploadDir, id.String()+filepath.Ext(input.OriginalName))
	if err := os.WriteFile(localPath, input.Content, 0o644); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	upload := &entity.FileUpload{
		Id:             id,
		OriginalName:   input.OriginalName,
		LocalPath:      localPath,
		FileSize:       int64(len(input.Content)),
		MimeType:       input.MimeType,
		UploadedBy:     input.UploadedBy,
		OrganizationId: input.OrganizationId,
		CreatedAt:      time.Now(),
	}
	if err := s.fileUploadRepository.Create(ctx, upload); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(dto.PublishFileProcessMessage{FileId: id})
	if err != nil {
		return nil, err
	}
	if err := s.publisherService.Publish(TopicFileProcess, payload); err != nil {
		return nil, err
	}

	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, events.NewFileUploaded(id.String(), input.MimeType)); err != nil {
			s.logger.Warn("upload_service", "upload event publish failed", map[string]any{
				"file_id": id.String(),
				"error":   err.Error(),
			})
		}
	}

	return toUploadResponse(upload), nil
}

func (s *uploadService) Get(ctx context.Context, id uuid.UUID) (*dto.UploadResponse, error) {
	upload, err := s.fileUploadRepository.FindById(ctx, id)
	if err != nil {
		return nil, err
	}
	if upload == nil {
		return nil, fmt.Errorf("file %s not found", id)
	}
	return toUploadResponse(upload), nil
}

func toUploadResponse(upload *entity.FileUpload) *dto.UploadResponse {
	return &dto.UploadResponse{
		Id:           upload.Id.String(),
		OriginalName: upload.OriginalName,
		MimeType:     upload.MimeType,
		FileSize:     upload.FileSize,
		IsProcessed:  upload.IsProcessed,
	}
}
