package service

import (
	"context"
	"time"

	"callcenter-assistant-be/internal/dto"
	"callcenter-assistant-be/internal/entity"
	"callcenter-assistant-be/internal/pkg/logger"
	"callcenter-assistant-be/internal/repository/contract"
	"callcenter-assistant-be/internal/repository/specification"
	"callcenter-assistant-be/pkg/embedding"
	"callcenter-assistant-be/pkg/retriever/docs"
	"callcenter-assistant-be/pkg/searchindex"

	"github.com/google/uuid"
)

type IPolicyService interface {
	Ingest(ctx context.Context, organizationId, uploadedBy string, req *dto.PolicyUploadRequest) (string, error)
	List(ctx context.Context) ([]*entity.PolicyDocument, error)
}

type policyService struct {
	policyRepository contract.PolicyDocumentRepository
	index            searchindex.Index
	embedder         embedding.EmbeddingProvider
	logger           logger.ILogger
}

func NewPolicyService(
	policyRepository contract.PolicyDocumentRepository,
	index searchindex.Index,
	embedder embedding.EmbeddingProvider,
	log logger.ILogger,
) IPolicyService {
	return &policyService{
		policyRepository: policyRepository,
		index:            index,
		embedder:         embedder,
		logger:           log,
	}
}

// Ingest indexes a policy submitted directly as text, bypassing the file
// pipeline. The whole body becomes a single top-level section; chunking
// happens inside the indexer.
func (s *policyService) Ingest(ctx context.Context, organizationId, uploadedBy string, req *dto.PolicyUploadRequest) (string, error) {
	id := uuid.New()

	policy := docs.PolicyInput{
		DocumentID:     id.String(),
		OrganizationID: organizationId,
		Version:        "1",
		Sections: []docs.SectionInput{{
			ID:        "body",
			Level:     1,
			Title:     req.Title,
			ExactText: req.Body,
		}},
	}
	if err := docs.IndexPolicy(ctx, s.index, s.embedder, policy, req.Department); err != nil {
		return "", err
	}

	record := &entity.PolicyDocument{
		Id:          id,
		Title:       req.Title,
		Department:  req.Department,
		UploadedBy:  uploadedBy,
		Version:     "1",
		IsProcessed: true,
		CreatedAt:   time.Now(),
	}
	if err := s.policyRepository.Create(ctx, record); err != nil {
		return "", err
	}

	s.logger.Info("policy_service", "policy ingested", map[string]any{
		"policy_id": id.String(),
		"title":     req.Title,
	})
	return id.String(), nil
}

func (s *policyService) List(ctx context.Context) ([]*entity.PolicyDocument, error) {
	return s.policyRepository.FindAll(ctx,
		specification.NotDeleted{},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
}
