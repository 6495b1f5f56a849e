package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"callcenter-assistant-be/internal/pkg/logger"
	"callcenter-assistant-be/internal/repository/contract"
	"callcenter-assistant-be/pkg/jira"
	"callcenter-assistant-be/pkg/llm"
	"callcenter-assistant-be/pkg/retriever"
	"callcenter-assistant-be/pkg/retriever/docs"
	"callcenter-assistant-be/pkg/speech"
	"callcenter-assistant-be/pkg/toolgate"

	"github.com/google/uuid"
)

// ToolOutcome is what a tool run hands back to the orchestrator.
type ToolOutcome struct {
	Message string
	Type    string
	Sources []retriever.Citation
}

type ToolContext struct {
	ConversationId uuid.UUID
	OrganizationId string
	Query          string
	Attachments    []toolgate.Attachment
	History        []llm.Message
}

type IToolsService interface {
	Run(ctx context.Context, tool toolgate.Tool, tc ToolContext) (*ToolOutcome, error)
}

type toolsService struct {
	fileUploadRepository contract.FileUploadRepository
	transcriber          speech.Transcriber
	docsRetriever        *docs.Retriever
	jiraClient           *jira.Client
	priorityCache        *jira.PriorityCache
	provider             llm.LLMProvider
	defaultProjectKey    string
	logger               logger.ILogger
}

func NewToolsService(
	fileUploadRepository contract.FileUploadRepository,
	transcriber speech.Transcriber,
	docsRetriever *docs.Retriever,
	jiraClient *jira.Client,
	priorityCache *jira.PriorityCache,
	provider llm.LLMProvider,
	defaultProjectKey string,
	log logger.ILogger,
) IToolsService {
	return &toolsService{
		fileUploadRepository: fileUploadRepository,
		transcriber:          transcriber,
		docsRetriever:        docsRetriever,
		jiraClient:           jiraClient,
		priorityCache:        priorityCache,
		provider:             provider,
		defaultProjectKey:    defaultProjectKey,
		logger:               log,
	}
}

func (s *toolsService) Run(ctx context.Context, tool toolgate.Tool, tc ToolContext) (*ToolOutcome, error) {
	switch tool {
	case toolgate.ToolTranscribeAudio:
		return s.transcribeAudio(ctx, tc)
	case toolgate.ToolSummarizeConversation:
		return s.summarizeConversation(ctx, tc)
	case toolgate.ToolPolicyAudit:
		return s.policySearch(ctx, tc, "policy_audit")
	case toolgate.ToolBrowsePolicies:
		return s.policySearch(ctx, tc, "docs.search")
	case toolgate.ToolCreateJira:
		return s.createTicketFromPrompt(ctx, tc)
	default:
		return nil, fmt.Errorf("unknown tool %q", tool)
	}
}

func (s *toolsService) transcribeAudio(ctx context.Context, tc ToolContext) (*ToolOutcome, error) {
	var audio *toolgate.Attachment
	for i := range tc.Attachments {
		if toolgate.IsAudio(tc.Attachments[i].MimeType) {
			audio = &tc.Attachments[i]
			break
		}
	}
	if audio == nil {
		return nil, fmt.Errorf("transcription requires an audio attachment")
	}

	fileId, err := uuid.Parse(audio.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid attachment id: %w", err)
	}
	upload, err := s.fileUploadRepository.FindById(ctx, fileId)
	if err != nil {
		return nil, err
	}
	if upload == nil {
		return nil, fmt.Errorf("attachment %s not found", audio.ID)
	}

	payload, err := os.ReadFile(upload.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("read audio file: %w", err)
	}

	transcript, err := s.transcriber.Transcribe(ctx, payload, upload.MimeType)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}
	if strings.TrimSpace(transcript) == "" {
		transcript = "(no speech detected)"
	}

	if err := s.fileUploadRepository.MarkProcessed(ctx, upload.Id); err != nil {
		s.logger.Warn("tools_service", "mark processed failed", map[string]any{
			"file_id": upload.Id.String(),
			"error":   err.Error(),
		})
	}

	return &ToolOutcome{
		Message: fmt.Sprintf("### Transcription Complete\n\n**File:** %s\n\n%s", upload.OriginalName, transcript),
		Type:    "transcription",
		Sources: []retriever.Citation{{
			Type:  "file.audio",
			ID:    upload.Id.String(),
			Title: upload.OriginalName,
			Key:   upload.LocalPath,
		}},
	}, nil
}

func (s *toolsService) summarizeConversation(ctx context.Context, tc ToolContext) (*ToolOutcome, error) {
	if len(tc.History) == 0 {
		return &ToolOutcome{
			Message: "There is nothing to summarize yet.",
			Type:    "summary",
		}, nil
	}

	history := tc.History
	if len(history) > 20 {
		history = history[len(history)-20:]
	}
	var transcript strings.Builder
	for _, m := range history {
		transcript.WriteString(m.Role)
		transcript.WriteString(": ")
		transcript.WriteString(m.Content)
		transcript.WriteString("\n")
	}

	system := "You are an analyst summarizing a support conversation. Produce markdown with three sections: " +
		"## Overview (two sentences), ## Key Points (bullet list), ## Next Steps (bullet list of concrete actions, or 'None' if there are none)."

	answer, err := llm.Complete(ctx, s.provider, system, transcript.String(), nil, llm.WithTemperature(0.3))
	if err != nil {
		return nil, fmt.Errorf("summarize conversation: %w", err)
	}
	return &ToolOutcome{Message: answer, Type: "summary"}, nil
}

func (s *toolsService) policySearch(ctx context.Context, tc ToolContext, resultType string) (*ToolOutcome, error) {
	result, err := s.docsRetriever.Search(ctx, tc.Query, 5, tc.OrganizationId, tc.History)
	if err != nil {
		return nil, err
	}
	return &ToolOutcome{
		Message: result.Answer,
		Type:    resultType,
		Sources: result.Sources,
	}, nil
}

// ticketPlan is the structured creation request extracted from the user's
// prompt.
type ticketPlan struct {
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Priority          string   `json:"priority"` // high | medium | low
	Labels            []string `json:"labels"`
	DueDate           string   `json:"dueDate"`
	AssigneeAccountId string   `json:"assigneeAccountId"`
	ProjectKey        string   `json:"projectKey"`
	IssueType         string   `json:"issueType"`
	Comment           string   `json:"comment"`
	Status            string   `json:"status"`
}

var ticketFenceRe = regexp.MustCompile("(?s)^```(?:json)?\\s*|\\s*```$")

func (s *toolsService) createTicketFromPrompt(ctx context.Context, tc ToolContext) (*ToolOutcome, error) {
	system := "Extract a ticket creation request from the user's message. Reply with ONLY a JSON object with keys " +
		`"title", "description", "priority" (one of "high", "medium", "low"), "labels" (array of strings), ` +
		`"dueDate" (YYYY-MM-DD or empty), "assigneeAccountId" (empty unless stated), "projectKey" (empty unless stated), ` +
		`"issueType" (empty unless stated), "comment" (an initial comment, empty if none), ` +
		`"status" (a target workflow status like "In Progress", empty unless the user asks to move the ticket). ` +
		"Title must be short and imperative. Description should carry the full detail from the message."

	raw, err := llm.Complete(ctx, s.provider, system, tc.Query, tc.History, llm.WithTemperature(0.0))
	if err != nil {
		return nil, fmt.Errorf("ticket plan extraction: %w", err)
	}

	plan, err := parseTicketPlan(raw)
	if err != nil {
		return nil, fmt.Errorf("ticket plan extraction: %w", err)
	}
	if strings.TrimSpace(plan.Title) == "" {
		plan.Title = firstLine(tc.Query)
	}
	if strings.TrimSpace(plan.Title) == "" || strings.TrimSpace(plan.Description) == "" {
		return nil, fmt.Errorf("ticket plan needs a title and description, nothing was created")
	}
	if plan.ProjectKey == "" {
		plan.ProjectKey = s.defaultProjectKey
	}
	if plan.ProjectKey == "" {
		return nil, fmt.Errorf("no project key available for ticket creation")
	}

	created, err := s.jiraClient.CreateIssue(ctx, jira.CreateIssueInput{
		ProjectKey:        plan.ProjectKey,
		Title:             plan.Title,
		Description:       plan.Description,
		PriorityID:        s.priorityCache.MapSeverity(plan.Priority),
		IssueType:         plan.IssueType,
		Labels:            plan.Labels,
		DueDate:           plan.DueDate,
		AssigneeAccountID: plan.AssigneeAccountId,
	})
	if err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}

	lines := []string{fmt.Sprintf("Created ticket **%s**: %s", created.Key, plan.Title)}
	if plan.Comment != "" {
		if err := s.jiraClient.AddComment(ctx, created.Key, plan.Comment); err != nil {
			s.logger.Warn("tools_service", "initial comment failed", map[string]any{
				"issue_key": created.Key,
				"error":     err.Error(),
			})
			lines = append(lines, "The initial comment could not be added.")
		} else {
			lines = append(lines, "Added your comment to the ticket.")
		}
	}
	if plan.DueDate != "" {
		lines = append(lines, fmt.Sprintf("Due date set to %s.", plan.DueDate))
	}
	if plan.Status != "" {
		if err := s.jiraClient.TransitionIssue(ctx, created.Key, plan.Status); err != nil {
			s.logger.Warn("tools_service", "status transition failed", map[string]any{
				"issue_key": created.Key,
				"status":    plan.Status,
				"error":     err.Error(),
			})
			lines = append(lines, "The status change could not be applied.")
		} else {
			lines = append(lines, fmt.Sprintf("Moved the ticket to %s.", plan.Status))
		}
	}

	return &ToolOutcome{
		Message: strings.Join(lines, "\n"),
		Type:    "jira_ticket",
		Sources: []retriever.Citation{{
			Type:  "jira",
			ID:    created.ID,
			Title: plan.Title,
			Key:   created.Key,
		}},
	}, nil
}

func parseTicketPlan(raw string) (*ticketPlan, error) {
	cleaned := ticketFenceRe.ReplaceAllString(strings.TrimSpace(raw), "")
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in model reply")
	}
	var plan ticketPlan
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i > 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	const maxTitle = 120
	if len([]rune(s)) > maxTitle {
		s = string([]rune(s)[:maxTitle])
	}
	return s
}
