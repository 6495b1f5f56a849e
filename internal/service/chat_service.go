package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"callcenter-assistant-be/internal/dto"
	"callcenter-assistant-be/internal/entity"
	"callcenter-assistant-be/internal/pkg/logger"
	"callcenter-assistant-be/internal/repository/contract"
	"callcenter-assistant-be/pkg/convstate"
	"callcenter-assistant-be/pkg/events"
	"callcenter-assistant-be/pkg/intent"
	"callcenter-assistant-be/pkg/llm"
	pkgNats "callcenter-assistant-be/pkg/nats"
	"callcenter-assistant-be/pkg/retriever"
	"callcenter-assistant-be/pkg/retriever/calls"
	"callcenter-assistant-be/pkg/retriever/docs"
	"callcenter-assistant-be/pkg/retriever/issues"
	"callcenter-assistant-be/pkg/toolgate"
	"callcenter-assistant-be/pkg/translate"

	"github.com/google/uuid"
)

type IChatService interface {
	Ask(ctx context.Context, organizationId, userId string, req *dto.AskRequest) (*dto.AskResponse, error)
}

type chatService struct {
	memoryService        IMemoryService
	toolsService         IToolsService
	fileUploadRepository contract.FileUploadRepository
	classifier           *intent.Classifier
	translator           *translate.Translator
	docsRetriever        *docs.Retriever
	issuesRetriever      *issues.Retriever
	callsRetriever       *calls.Retriever
	provider             llm.LLMProvider
	eventPublisher       *pkgNats.Publisher
	locker               *convstate.Locker
	logger               logger.ILogger
}

func NewChatService(
	memoryService IMemoryService,
	toolsService IToolsService,
	fileUploadRepository contract.FileUploadRepository,
	classifier *intent.Classifier,
	translator *translate.Translator,
	docsRetriever *docs.Retriever,
	issuesRetriever *issues.Retriever,
	callsRetriever *calls.Retriever,
	provider llm.LLMProvider,
	eventPublisher *pkgNats.Publisher,
	log logger.ILogger,
) IChatService {
	return &chatService{
		memoryService:        memoryService,
		toolsService:         toolsService,
		fileUploadRepository: fileUploadRepository,
		classifier:           classifier,
		translator:           translator,
		docsRetriever:        docsRetriever,
		issuesRetriever:      issuesRetriever,
		callsRetriever:       callsRetriever,
		provider:             provider,
		eventPublisher:       eventPublisher,
		locker:               convstate.NewLocker(),
		logger:               log,
	}
}

// Ask runs one conversational turn end to end: language round-trip, intent
// classification, optional tool execution, domain retrieval, persistence.
func (s *chatService) Ask(ctx context.Context, organizationId, userId string, req *dto.AskRequest) (*dto.AskResponse, error) {
	conversation, err := s.memoryService.EnsureConversation(ctx, req.ConversationId, organizationId, userId)
	if err != nil {
		return nil, err
	}

	// One turn at a time per conversation.
	unlock := s.locker.Lock(conversation.Id.String())
	defer unlock()

	attachments := s.resolveAttachments(ctx, req.FileIds)

	language := s.translator.DetectLanguage(ctx, req.Query)
	englishQuery := req.Query
	if language != translate.English {
		englishQuery = s.translator.ToEnglish(ctx, req.Query, language)
	}

	history, err := s.memoryService.GetRecentHistoryAsc(ctx, conversation.Id)
	if err != nil {
		return nil, err
	}

	prior := s.memoryService.GetState(ctx, conversation)
	decision := s.classifier.Classify(ctx, englishQuery, prior, history, len(attachments))

	state := convstate.State{
		ActiveIntent:   decision.Intent,
		Topic:          decision.Title,
		LastSwitchedAt: prior.LastSwitchedAt,
		Stickiness:     decision.Confidence,
	}
	if decision.Intent != prior.ActiveIntent {
		state.LastSwitchedAt = time.Now()
	}
	if decision.SuggestedTool != nil {
		state.SuggestedTool = string(decision.SuggestedTool.Name)
		state.SuggestedToolConfidence = decision.SuggestedTool.Confidence
	}

	if _, err := s.persistUserTurn(ctx, conversation.Id, req, language, englishQuery); err != nil {
		return nil, err
	}

	if conversation.Title == "New conversation" && decision.Title != "" {
		if err := s.memoryService.UpdateTitle(ctx, conversation, decision.Title); err != nil {
			s.logger.Warn("chat_service", "title update failed", map[string]any{
				"conversation_id": conversation.Id.String(),
				"error":           err.Error(),
			})
		}
	}

	heuristic := toolgate.Infer(englishQuery, attachments)
	suggestion := toolgate.Decide(decision.SuggestedTool, heuristic, req.Tool, attachments)

	var (
		answer     string
		answerType string
		sources    []retriever.Citation
		toolRan    string
	)

	if suggestion != nil {
		outcome, toolErr := s.toolsService.Run(ctx, suggestion.Name, ToolContext{
			ConversationId: conversation.Id,
			OrganizationId: organizationId,
			Query:          englishQuery,
			Attachments:    attachments,
			History:        history,
		})
		if toolErr != nil {
			s.logger.Warn("chat_service", "tool execution failed", map[string]any{
				"tool":   string(suggestion.Name),
				"source": string(suggestion.Source),
				"error":  toolErr.Error(),
			})
			if suggestion.Source == toolgate.SourceExplicit {
				// The user asked for this action by name; tell them why it
				// could not run instead of answering with something else.
				answer = fmt.Sprintf("The %s action could not be completed: %s", suggestion.Name, toolErr.Error())
				answerType = "tool.error"
			}
			// Suggested tools degrade to retrieval instead of failing the turn.
		} else {
			answer = outcome.Message
			answerType = outcome.Type
			sources = outcome.Sources
			toolRan = string(suggestion.Name)
			now := time.Now()
			state.LastToolRun = toolRan
			state.LastToolAt = &now
		}
	}

	if answer == "" {
		answer, answerType, sources, err = s.route(ctx, decision, englishQuery, organizationId, history)
		if errors.Is(err, retriever.ErrSearchUnavailable) {
			// A backend outage degrades to an apology, not a failed turn.
			s.logger.Warn("chat_service", "retrieval backend unavailable", map[string]any{
				"intent": string(decision.Intent),
				"error":  err.Error(),
			})
			answer, answerType = unavailableAnswer(decision.Intent)
			sources = nil
			err = nil
		}
		if err != nil {
			return nil, err
		}
	}

	if err := s.memoryService.SetConversationState(ctx, conversation, state); err != nil {
		return nil, err
	}

	localizedAnswer := answer
	if language != translate.English {
		localizedAnswer = s.translator.FromEnglish(ctx, answer, language)
	}

	assistantMessage, err := s.memoryService.AddMessage(ctx, AddMessageInput{
		ConversationId:   conversation.Id,
		Role:             "assistant",
		Content:          localizedAnswer,
		OriginalLanguage: languageTag(language),
		EnglishContent:   englishContentFor(answer, language),
		Type:             answerType,
		Sources:          sources,
	})
	if err != nil {
		return nil, err
	}

	if s.eventPublisher != nil {
		event := events.NewTurnCompleted(conversation.Id.String(), assistantMessage.Id.String(), string(decision.Intent))
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.logger.Warn("chat_service", "turn event publish failed", map[string]any{
				"conversation_id": conversation.Id.String(),
				"error":           err.Error(),
			})
		}
	}

	return &dto.AskResponse{
		ConversationId: conversation.Id.String(),
		MessageId:      assistantMessage.Id.String(),
		Answer:         localizedAnswer,
		Type:           answerType,
		Intent:         string(decision.Intent),
		Language:       language,
		ToolRan:        toolRan,
		Sources:        sources,
	}, nil
}

// route dispatches the turn to the retriever owning the active intent, or to
// the general capability response when no retriever applies.
func (s *chatService) route(ctx context.Context, decision intent.Decision, englishQuery, organizationId string, history []llm.Message) (string, string, []retriever.Citation, error) {
	query := decision.Slots.Query
	if strings.TrimSpace(query) == "" {
		query = englishQuery
	}

	switch decision.Intent {
	case convstate.IntentDocsSearch, convstate.IntentDocumentUpload:
		result, err := s.docsRetriever.Search(ctx, query, 5, organizationId, history)
		if err != nil {
			return "", "", nil, err
		}
		return result.Answer, "docs.search", result.Sources, nil

	case convstate.IntentJiraAssignee:
		result, err := s.issuesRetriever.Search(ctx, query)
		if err != nil {
			return "", "", nil, err
		}
		return result.Answer, "jira_ticket", result.Sources, nil

	case convstate.IntentCallSearch:
		filters := calls.Filters{
			Tags: decision.Slots.Filters.Tags,
			TimeRange: retriever.TimeRange{
				From: decision.Slots.TimeRange.From,
				To:   decision.Slots.TimeRange.To,
			},
		}
		result, err := s.callsRetriever.Search(ctx, query, filters, organizationId)
		if err != nil {
			return "", "", nil, err
		}
		return result.Answer, "call.search", result.Sources, nil
	}

	answer, err := s.generalResponse(ctx, englishQuery, history)
	if err != nil {
		return "", "", nil, err
	}
	return answer, "general", nil, nil
}

// unavailableAnswer is the user-facing reply when a domain's search backend
// cannot be reached. The turn is persisted and answered normally.
func unavailableAnswer(intent convstate.Intent) (string, string) {
	switch intent {
	case convstate.IntentDocsSearch, convstate.IntentDocumentUpload:
		return "I'm sorry, I couldn't search the policy documents right now. Please try again in a moment.", "docs.search"
	case convstate.IntentJiraAssignee:
		return "I'm sorry, I couldn't reach the ticket data right now. Please try again in a moment.", "jira_ticket"
	case convstate.IntentCallSearch:
		return "I'm sorry, I couldn't search the call data right now. Please try again in a moment.", "call.search"
	}
	return "I'm sorry, I couldn't complete that search right now. Please try again in a moment.", "general"
}

func (s *chatService) generalResponse(ctx context.Context, query string, history []llm.Message) (string, error) {
	system := "You are a call-center assistant. You can search company policies, look up tracker tickets by assignee, " +
		"search processed call recordings, transcribe uploaded audio, summarize the conversation, and create tickets. " +
		"Answer the user's message briefly. If the request needs one of those capabilities, say how to invoke it rather than inventing data."
	answer, err := llm.Complete(ctx, s.provider, system, query, history, llm.WithTemperature(0.4))
	if err != nil {
		return "", fmt.Errorf("general response: %w", err)
	}
	return answer, nil
}

func (s *chatService) persistUserTurn(ctx context.Context, conversationId uuid.UUID, req *dto.AskRequest, language, englishQuery string) (*entity.Message, error) {
	input := AddMessageInput{
		ConversationId:   conversationId,
		Role:             "user",
		Content:          req.Query,
		OriginalLanguage: languageTag(language),
		EnglishContent:   englishContentFor(englishQuery, language),
		Type:             "user.message",
		AttachmentIds:    req.FileIds,
	}
	if language != translate.English {
		input.OriginalContent = req.Query
	}
	message, err := s.memoryService.AddMessage(ctx, input)
	if err != nil {
		return nil, err
	}

	if len(req.FileIds) > 0 {
		for _, fileId := range req.FileIds {
			id, parseErr := uuid.Parse(fileId)
			if parseErr != nil {
				continue
			}
			if linkErr := s.fileUploadRepository.LinkToMessage(ctx, id, message.Id); linkErr != nil {
				s.logger.Warn("chat_service", "attachment link failed", map[string]any{
					"file_id": fileId,
					"error":   linkErr.Error(),
				})
			}
		}
	}
	return message, nil
}

// resolveAttachments looks up the referenced uploads. Unknown or malformed
// ids are skipped so a stale reference does not sink the whole turn.
func (s *chatService) resolveAttachments(ctx context.Context, fileIds []string) []toolgate.Attachment {
	if len(fileIds) == 0 {
		return nil
	}
	attachments := make([]toolgate.Attachment, 0, len(fileIds))
	for _, fileId := range fileIds {
		id, err := uuid.Parse(fileId)
		if err != nil {
			s.logger.Warn("chat_service", "skipping malformed file id", map[string]any{"file_id": fileId})
			continue
		}
		upload, err := s.fileUploadRepository.FindById(ctx, id)
		if err != nil || upload == nil {
			s.logger.Warn("chat_service", "skipping unresolved attachment", map[string]any{"file_id": fileId})
			continue
		}
		attachments = append(attachments, toolgate.Attachment{
			ID:       upload.Id.String(),
			Name:     upload.OriginalName,
			MimeType: upload.MimeType,
		})
	}
	return attachments
}

func languageTag(language string) string {
	if language == translate.English {
		return ""
	}
	return language
}

func englishContentFor(english, language string) string {
	if language == translate.English {
		return ""
	}
	return english
}
