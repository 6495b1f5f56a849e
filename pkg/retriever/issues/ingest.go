package issues

import (
	"context"
	"fmt"
	"strings"

	"callcenter-assistant-be/pkg/embedding"
	"callcenter-assistant-be/pkg/searchindex"
)

// IndexIssue embeds and upserts one issue document. The deterministic id (the
// issue key) makes re-ingestion overwrite cleanly.
func IndexIssue(ctx context.Context, index searchindex.Index, embedder embedding.EmbeddingProvider, doc IssueDoc) error {
	if doc.Key == "" {
		return fmt.Errorf("issue key is required")
	}

	doc.SearchText = strings.TrimSpace(doc.Summary + " " + doc.Description)
	doc.AssigneeNormalized = NormalizeName(doc.AssigneeDisplayName)

	vectors, err := embedder.Embed(ctx, []string{doc.SearchText})
	if err != nil {
		return fmt.Errorf("embed issue %s: %w", doc.Key, err)
	}

	payload := searchindex.M{
		"key":                  doc.Key,
		"project":              doc.Project,
		"summary":              doc.Summary,
		"description":          doc.Description,
		"status":               doc.Status,
		"assignee_displayName": doc.AssigneeDisplayName,
		"assignee_accountId":   doc.AssigneeAccountID,
		"assignee_normalized":  doc.AssigneeNormalized,
		"created":              doc.Created,
		"updated":              doc.Updated,
		"duedate":              doc.DueDate,
		"resolutiondate":       doc.ResolutionDate,
		"search_text":          doc.SearchText,
		"embedding":            vectors[0],
	}

	if err := index.Upsert(ctx, issuesIndex, doc.Key, payload); err != nil {
		return fmt.Errorf("index issue %s: %w", doc.Key, err)
	}
	return nil
}

// RemoveIssue deletes an issue document, tolerating documents that are
// already gone.
func RemoveIssue(ctx context.Context, index searchindex.Index, key string) error {
	if err := index.Delete(ctx, issuesIndex, key); err != nil {
		if strings.Contains(err.Error(), "404") {
			return nil
		}
		return fmt.Errorf("delete issue %s: %w", key, err)
	}
	return nil
}
