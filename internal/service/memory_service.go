package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"callcenter-assistant-be/internal/dto"
	"callcenter-assistant-be/internal/entity"
	"callcenter-assistant-be/internal/pkg/logger"
	"callcenter-assistant-be/internal/repository/contract"
	"callcenter-assistant-be/internal/repository/specification"
	"callcenter-assistant-be/pkg/convstate"
	"callcenter-assistant-be/pkg/llm"
	"callcenter-assistant-be/pkg/retriever"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	// historyWindow is how many recent messages feed the classifier and
	// synthesis prompts each turn.
	historyWindow = 12

	// summarizeEvery triggers a rolling-summary refresh once a conversation
	// accumulates this many messages past the last summary.
	summarizeEvery = 10
)

type AddMessageInput struct {
	ConversationId   uuid.UUID
	Role             string
	Content          string
	OriginalContent  string
	OriginalLanguage string
	EnglishContent   string
	Type             string
	Sources          []retriever.Citation
	AttachmentIds    []string
}

type IMemoryService interface {
	EnsureConversation(ctx context.Context, conversationId, organizationId, userId string) (*entity.Conversation, error)
	GetRecentHistoryAsc(ctx context.Context, conversationId uuid.UUID) ([]llm.Message, error)
	AddMessage(ctx context.Context, input AddMessageInput) (*entity.Message, error)
	GetState(ctx context.Context, conversation *entity.Conversation) convstate.State
	SetConversationState(ctx context.Context, conversation *entity.Conversation, state convstate.State) error
	UpdateTitle(ctx context.Context, conversation *entity.Conversation, title string) error
	GetConversations(ctx context.Context, organizationId, userId string) ([]*dto.ConversationResponse, error)
	GetMessages(ctx context.Context, conversationId uuid.UUID) ([]*dto.MessageResponse, error)
	DeleteConversation(ctx context.Context, conversationId uuid.UUID) error
}

type memoryService struct {
	conversationRepository contract.ConversationRepository
	messageRepository      contract.MessageRepository
	stateStore             *convstate.Store
	provider               llm.LLMProvider
	logger                 logger.ILogger
}

func NewMemoryService(
	conversationRepository contract.ConversationRepository,
	messageRepository contract.MessageRepository,
	stateStore *convstate.Store,
	provider llm.LLMProvider,
	log logger.ILogger,
) IMemoryService {
	return &memoryService{
		conversationRepository: conversationRepository,
		messageRepository:      messageRepository,
		stateStore:             stateStore,
		provider:               provider,
		logger:                 log,
	}
}

// EnsureConversation loads an existing conversation or creates a fresh one
// when the id is empty or unknown.
func (s *memoryService) EnsureConversation(ctx context.Context, conversationId, organizationId, userId string) (*entity.Conversation, error) {
	if conversationId != "" {
		id, err := uuid.Parse(conversationId)
		if err != nil {
			return nil, fmt.Errorf("invalid conversation id: %w", err)
		}
		conversation, err := s.conversationRepository.FindOne(ctx,
			specification.ByID{ID: id},
			specification.NotDeleted{},
		)
		if err != nil {
			return nil, err
		}
		if conversation != nil {
			return conversation, nil
		}
	}

	stateJson, err := json.Marshal(convstate.Initial())
	if err != nil {
		return nil, err
	}
	conversation := &entity.Conversation{
		Id:             uuid.New(),
		OrganizationId: organizationId,
		UserId:         userId,
		Title:          "New conversation",
		State:          datatypes.JSON(stateJson),
		CreatedAt:      time.Now(),
	}
	if err := s.conversationRepository.Create(ctx, conversation); err != nil {
		return nil, err
	}
	return conversation, nil
}

// GetRecentHistoryAsc returns the last historyWindow messages oldest-first,
// prefixed with the rolling summary when one exists.
func (s *memoryService) GetRecentHistoryAsc(ctx context.Context, conversationId uuid.UUID) ([]llm.Message, error) {
	conversation, err := s.conversationRepository.FindOne(ctx, specification.ByID{ID: conversationId})
	if err != nil {
		return nil, err
	}

	messages, err := s.messageRepository.FindAll(ctx,
		specification.ByConversationID{ConversationID: conversationId},
		specification.NotDeleted{},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: historyWindow},
	)
	if err != nil {
		return nil, err
	}

	history := make([]llm.Message, 0, len(messages)+1)
	if conversation != nil && conversation.Summary != "" {
		history = append(history, llm.Message{
			Role:    "system",
			Content: "Summary of the earlier conversation: " + conversation.Summary,
		})
	}
	// FindAll returned newest-first; replay oldest-first.
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		role := "user"
		if m.Role == "assistant" {
			role = "assistant"
		}
		content := m.EnglishContent
		if content == "" {
			content = m.Content
		}
		history = append(history, llm.Message{Role: role, Content: content})
	}
	return history, nil
}

func (s *memoryService) AddMessage(ctx context.Context, input AddMessageInput) (*entity.Message, error) {
	message := &entity.Message{
		Id:               uuid.New(),
		ConversationId:   input.ConversationId,
		Role:             input.Role,
		Content:          input.Content,
		OriginalContent:  input.OriginalContent,
		OriginalLanguage: input.OriginalLanguage,
		EnglishContent:   input.EnglishContent,
		Type:             input.Type,
		CreatedAt:        time.Now(),
	}
	if len(input.Sources) > 0 {
		raw, err := json.Marshal(input.Sources)
		if err != nil {
			return nil, err
		}
		message.Sources = datatypes.JSON(raw)
	}
	if len(input.AttachmentIds) > 0 {
		raw, err := json.Marshal(input.AttachmentIds)
		if err != nil {
			return nil, err
		}
		message.Attachments = datatypes.JSON(raw)
	}

	if err := s.messageRepository.Create(ctx, message); err != nil {
		return nil, err
	}

	s.maybeSummarize(ctx, input.ConversationId)

	return message, nil
}

// maybeSummarize folds older turns into the conversation's rolling summary.
// Failures are logged and skipped, the next turn retries naturally.
func (s *memoryService) maybeSummarize(ctx context.Context, conversationId uuid.UUID) {
	count, err := s.messageRepository.Count(ctx,
		specification.ByConversationID{ConversationID: conversationId},
		specification.NotDeleted{},
	)
	if err != nil || count == 0 || count%summarizeEvery != 0 {
		return
	}

	conversation, err := s.conversationRepository.FindOne(ctx, specification.ByID{ID: conversationId})
	if err != nil || conversation == nil {
		return
	}

	messages, err := s.messageRepository.FindAll(ctx,
		specification.ByConversationID{ConversationID: conversationId},
		specification.NotDeleted{},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: summarizeEvery * 2},
	)
	if err != nil || len(messages) == 0 {
		return
	}

	var transcript strings.Builder
	if conversation.Summary != "" {
		transcript.WriteString("Previous summary: ")
		transcript.WriteString(conversation.Summary)
		transcript.WriteString("\n\n")
	}
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		content := m.EnglishContent
		if content == "" {
			content = m.Content
		}
		transcript.WriteString(m.Role)
		transcript.WriteString(": ")
		transcript.WriteString(content)
		transcript.WriteString("\n")
	}

	summary, err := llm.Complete(ctx, s.provider,
		"You maintain a compact running summary of a support conversation. Fold the transcript below into a single paragraph that preserves names, ticket keys, and what the user is trying to accomplish.",
		transcript.String(), nil, llm.WithTemperature(0.2))
	if err != nil {
		s.logger.Warn("memory_service", "rolling summary failed", map[string]any{
			"conversation_id": conversationId.String(),
			"error":           err.Error(),
		})
		return
	}

	conversation.Summary = strings.TrimSpace(summary)
	now := time.Now()
	conversation.UpdatedAt = &now
	if err := s.conversationRepository.Update(ctx, conversation); err != nil {
		s.logger.Warn("memory_service", "summary persist failed", map[string]any{
			"conversation_id": conversationId.String(),
			"error":           err.Error(),
		})
	}
}

// GetState reads routing state from the hot cache, falling back to the
// persisted blob. Undecodable state resets to initial rather than failing
// the turn.
func (s *memoryService) GetState(ctx context.Context, conversation *entity.Conversation) convstate.State {
	if state, ok := s.stateStore.Get(conversation.Id.String()); ok {
		return state
	}
	var state convstate.State
	if len(conversation.State) > 0 {
		if err := json.Unmarshal(conversation.State, &state); err == nil && state.ActiveIntent.Valid() {
			s.stateStore.Save(conversation.Id.String(), state)
			return state
		}
	}
	return convstate.Initial()
}

func (s *memoryService) SetConversationState(ctx context.Context, conversation *entity.Conversation, state convstate.State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	conversation.State = datatypes.JSON(raw)
	now := time.Now()
	conversation.UpdatedAt = &now
	if err := s.conversationRepository.Update(ctx, conversation); err != nil {
		return err
	}
	s.stateStore.Save(conversation.Id.String(), state)
	return nil
}

func (s *memoryService) UpdateTitle(ctx context.Context, conversation *entity.Conversation, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}
	const maxTitle = 80
	if len([]rune(title)) > maxTitle {
		title = string([]rune(title)[:maxTitle])
	}
	conversation.Title = title
	now := time.Now()
	conversation.UpdatedAt = &now
	return s.conversationRepository.Update(ctx, conversation)
}

func (s *memoryService) GetConversations(ctx context.Context, organizationId, userId string) ([]*dto.ConversationResponse, error) {
	conversations, err := s.conversationRepository.FindAll(ctx,
		specification.Filter("organization_id", organizationId),
		specification.Filter("user_id", userId),
		specification.NotDeleted{},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	responses := make([]*dto.ConversationResponse, 0, len(conversations))
	for _, c := range conversations {
		item := &dto.ConversationResponse{
			Id:        c.Id.String(),
			Title:     c.Title,
			CreatedAt: c.CreatedAt.Format(time.RFC3339),
		}
		if c.UpdatedAt != nil {
			item.UpdatedAt = c.UpdatedAt.Format(time.RFC3339)
		}
		responses = append(responses, item)
	}
	return responses, nil
}

func (s *memoryService) GetMessages(ctx context.Context, conversationId uuid.UUID) ([]*dto.MessageResponse, error) {
	messages, err := s.messageRepository.FindAll(ctx,
		specification.ByConversationID{ConversationID: conversationId},
		specification.NotDeleted{},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, err
	}

	responses := make([]*dto.MessageResponse, 0, len(messages))
	for _, m := range messages {
		item := &dto.MessageResponse{
			Id:               m.Id.String(),
			Role:             m.Role,
			Content:          m.Content,
			OriginalLanguage: m.OriginalLanguage,
			Type:             m.Type,
			CreatedAt:        m.CreatedAt.Format(time.RFC3339),
		}
		if len(m.Sources) > 0 {
			var sources []retriever.Citation
			if err := json.Unmarshal(m.Sources, &sources); err == nil {
				item.Sources = sources
			}
		}
		responses = append(responses, item)
	}
	return responses, nil
}

func (s *memoryService) DeleteConversation(ctx context.Context, conversationId uuid.UUID) error {
	if err := s.messageRepository.DeleteAllByConversationId(ctx, conversationId); err != nil {
		return err
	}
	if err := s.conversationRepository.Delete(ctx, conversationId); err != nil {
		return err
	}
	s.stateStore.Delete(conversationId.String())
	return nil
}
