package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"callcenter-assistant-be/internal/dto"
	"callcenter-assistant-be/internal/entity"
	"callcenter-assistant-be/internal/pkg/logger"
	"callcenter-assistant-be/internal/repository/contract"
	"callcenter-assistant-be/pkg/embedding"
	"callcenter-assistant-be/pkg/llm"
	"callcenter-assistant-be/pkg/retriever/calls"
	"callcenter-assistant-be/pkg/retriever/docs"
	"callcenter-assistant-be/pkg/searchindex"
	"callcenter-assistant-be/pkg/speech"
	"callcenter-assistant-be/pkg/toolgate"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub               *gochannel.GoChannel
	fileUploadRepository contract.FileUploadRepository
	policyRepository     contract.PolicyDocumentRepository
	transcriber          speech.Transcriber
	index                searchindex.Index
	embedder             embedding.EmbeddingProvider
	provider             llm.LLMProvider
	logger               logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	fileUploadRepository contract.FileUploadRepository,
	policyRepository contract.PolicyDocumentRepository,
	transcriber speech.Transcriber,
	index searchindex.Index,
	embedder embedding.EmbeddingProvider,
	provider llm.LLMProvider,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:               pubSub,
		fileUploadRepository: fileUploadRepository,
		policyRepository:     policyRepository,
		transcriber:          transcriber,
		index:                index,
		embedder:             embedder,
		provider:             provider,
		logger:               log,
	}
}

func (s *consumerService) Consume(ctx context.Context) error {
	messages, err := s.pubSub.Subscribe(ctx, TopicFileProcess)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			s.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (s *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishFileProcessMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		s.logger.Error("consumer_service", "undecodable process message", map[string]any{
			"error": err.Error(),
		})
		// Malformed messages never become valid; drop them.
		msg.Ack()
		return
	}

	upload, err := s.fileUploadRepository.FindById(ctx, payload.FileId)
	if err != nil {
		s.logger.Error("consumer_service", "upload lookup failed", map[string]any{
			"file_id": payload.FileId.String(),
			"error":   err.Error(),
		})
		msg.Nack()
		return
	}
	if upload == nil || upload.IsProcessed {
		msg.Ack()
		return
	}

	if toolgate.IsAudio(upload.MimeType) {
		err = s.processAudio(ctx, upload)
	} else {
		err = s.processDocument(ctx, upload)
	}
	if err != nil {
		s.logger.Error("consumer_service", "file processing failed", map[string]any{
			"file_id": upload.Id.String(),
			"error":   err.Error(),
		})
		msg.Nack()
		return
	}

	if err := s.fileUploadRepository.MarkProcessed(ctx, upload.Id); err != nil {
		s.logger.Error("consumer_service", "mark processed failed", map[string]any{
			"file_id": upload.Id.String(),
			"error":   err.Error(),
		})
		msg.Nack()
		return
	}

	msg.Ack()
}

// callAnalysis is the model's structured read of one transcript.
type callAnalysis struct {
	Summary        string `json:"summary"`
	Intent         string `json:"intent"`
	Classification string `json:"classification"`
	Severity       string `json:"severity"`
	Sentiment      string `json:"sentiment"`
}

// processAudio transcribes a call recording, classifies it, and indexes the
// result for call search.
func (s *consumerService) processAudio(ctx context.Context, upload *entity.FileUpload) error {
	audio, err := os.ReadFile(upload.LocalPath)
	if err != nil {
		return fmt.Errorf("read audio: %w", err)
	}

	transcript, err := s.transcriber.Transcribe(ctx, audio, upload.MimeType)
	if err != nil {
		return fmt.Errorf("transcribe: %w", err)
	}

	analysis := s.analyzeCall(ctx, transcript)

	doc := calls.CallDoc{
		ID:             upload.Id.String(),
		OrganizationID: upload.OrganizationId,
		Transcript:     transcript,
		Summary:        analysis.Summary,
		Intent:         analysis.Intent,
		Classification: analysis.Classification,
		Severity:       analysis.Severity,
		Sentiment:      analysis.Sentiment,
		AudioPath:      upload.LocalPath,
		Timestamp:      upload.CreatedAt.UTC().Format(time.RFC3339),
	}
	return calls.IndexCall(ctx, s.index, s.embedder, doc)
}

func (s *consumerService) analyzeCall(ctx context.Context, transcript string) callAnalysis {
	system := "Analyze this call-center transcript. Reply with ONLY a JSON object: " +
		`{"summary": "two sentences", "intent": "what the caller wanted", ` +
		`"classification": "one of complaint, inquiry, request, escalation, other", ` +
		`"severity": "one of low, medium, high", "sentiment": "one of positive, neutral, negative"}`

	fallback := callAnalysis{Classification: "other", Severity: "low", Sentiment: "neutral"}

	raw, err := llm.Complete(ctx, s.provider, system, transcript, nil, llm.WithTemperature(0.0))
	if err != nil {
		s.logger.Warn("consumer_service", "call analysis failed", map[string]any{"error": err.Error()})
		return fallback
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return fallback
	}
	var analysis callAnalysis
	if err := json.Unmarshal([]byte(raw[start:end+1]), &analysis); err != nil {
		return fallback
	}
	return analysis
}

// extractedPolicy is the model's structured read of one policy document.
type extractedPolicy struct {
	Title      string `json:"title"`
	Department string `json:"department"`
	Sections   []struct {
		ID       string `json:"id"`
		ParentID string `json:"parent_id"`
		Level    int    `json:"level"`
		Title    string `json:"title"`
		Text     string `json:"text"`
	} `json:"sections"`
}

// processDocument extracts a section tree from an uploaded policy document
// and indexes it for docs search.
func (s *consumerService) processDocument(ctx context.Context, upload *entity.FileUpload) error {
	raw, err := os.ReadFile(upload.LocalPath)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	text := string(raw)
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("document %s has no extractable text", upload.Id)
	}

	system := "Split this policy document into its sections. Reply with ONLY a JSON object: " +
		`{"title": "document title", "department": "owning department or empty", "sections": ` +
		`[{"id": "stable slug", "parent_id": "parent slug or empty", "level": 1, "title": "heading", "text": "the section's exact text"}]}. ` +
		"Keep section text verbatim, do not paraphrase."

	reply, err := llm.Complete(ctx, s.provider, system, text, nil, llm.WithTemperature(0.0))
	if err != nil {
		return fmt.Errorf("section extraction: %w", err)
	}

	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("section extraction returned no JSON")
	}
	var extracted extractedPolicy
	if err := json.Unmarshal([]byte(reply[start:end+1]), &extracted); err != nil {
		return fmt.Errorf("decode extracted sections: %w", err)
	}
	if len(extracted.Sections) == 0 {
		return fmt.Errorf("no sections extracted from %s", upload.OriginalName)
	}

	policy := docs.PolicyInput{
		DocumentID:     upload.Id.String(),
		OrganizationID: upload.OrganizationId,
		Version:        "1",
	}
	for _, section := range extracted.Sections {
		policy.Sections = append(policy.Sections, docs.SectionInput{
			ID:        section.ID,
			ParentID:  section.ParentID,
			Level:     section.Level,
			Title:     section.Title,
			ExactText: section.Text,
		})
	}
	if err := docs.IndexPolicy(ctx, s.index, s.embedder, policy, extracted.Department); err != nil {
		return err
	}

	record := &entity.PolicyDocument{
		Id:          upload.Id,
		Title:       extracted.Title,
		FileName:    upload.OriginalName,
		FilePath:    upload.LocalPath,
		FileSize:    upload.FileSize,
		MimeType:    upload.MimeType,
		UploadedBy:  upload.UploadedBy,
		Version:     "1",
		Department:  extracted.Department,
		IsProcessed: true,
		CreatedAt:   time.Now(),
	}
	return s.policyRepository.Create(ctx, record)
}
