package service

import (
	"context"
	"strings"

	"callcenter-assistant-be/internal/dto"
	"callcenter-assistant-be/internal/pkg/logger"
	"callcenter-assistant-be/pkg/embedding"
	"callcenter-assistant-be/pkg/jira"
	"callcenter-assistant-be/pkg/retriever/issues"
	"callcenter-assistant-be/pkg/searchindex"
)

var issueSyncFields = []string{
	"summary", "description", "assignee", "status",
	"created", "updated", "duedate", "resolutiondate",
}

type ITicketService interface {
	SyncProject(ctx context.Context, req *dto.TicketIngestRequest) (*dto.TicketIngestResponse, error)
}

type ticketService struct {
	jiraClient *jira.Client
	index      searchindex.Index
	embedder   embedding.EmbeddingProvider
	logger     logger.ILogger
}

func NewTicketService(
	jiraClient *jira.Client,
	index searchindex.Index,
	embedder embedding.EmbeddingProvider,
	log logger.ILogger,
) ITicketService {
	return &ticketService{
		jiraClient: jiraClient,
		index:      index,
		embedder:   embedder,
		logger:     log,
	}
}

// SyncProject pulls a project's issues from the tracker and indexes them for
// assignee search. Individual index failures are counted, not fatal.
func (s *ticketService) SyncProject(ctx context.Context, req *dto.TicketIngestRequest) (*dto.TicketIngestResponse, error) {
	trackerIssues, err := s.jiraClient.SearchIssues(ctx, req.ProjectKey, issueSyncFields)
	if err != nil {
		return nil, err
	}

	response := &dto.TicketIngestResponse{}
	for _, issue := range trackerIssues {
		doc := issues.IssueDoc{
			Key:            issue.Key,
			Project:        projectOf(issue.Key, req.ProjectKey),
			Summary:        issue.Fields.Summary,
			Description:    jira.DescriptionText(issue.Fields.Description),
			Status:         issue.Fields.Status.Name,
			Created:        issue.Fields.Created,
			Updated:        issue.Fields.Updated,
			DueDate:        issue.Fields.DueDate,
			ResolutionDate: issue.Fields.ResolutionDate,
		}
		if issue.Fields.Assignee != nil {
			doc.AssigneeDisplayName = issue.Fields.Assignee.DisplayName
			doc.AssigneeAccountID = issue.Fields.Assignee.AccountID
		}

		if err := issues.IndexIssue(ctx, s.index, s.embedder, doc); err != nil {
			s.logger.Warn("ticket_service", "issue index failed", map[string]any{
				"issue_key": issue.Key,
				"error":     err.Error(),
			})
			response.Failed++
			continue
		}
		response.Indexed++
	}

	s.logger.Info("ticket_service", "project sync finished", map[string]any{
		"project": req.ProjectKey,
		"indexed": response.Indexed,
		"failed":  response.Failed,
	})
	return response, nil
}

func projectOf(issueKey, fallback string) string {
	if i := strings.IndexByte(issueKey, '-'); i > 0 {
		return issueKey[:i]
	}
	return fallback
}
