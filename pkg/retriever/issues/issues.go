package issues

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"callcenter-assistant-be/pkg/embedding"
	"callcenter-assistant-be/pkg/fusion"
	"callcenter-assistant-be/pkg/llm"
	"callcenter-assistant-be/pkg/retriever"
	"callcenter-assistant-be/pkg/searchindex"
)

const (
	issuesIndex = "jira_issues"

	defaultSize   = 20
	numCandidates = 1000
)

// IssueDoc is the indexed shape of one tracker issue.
type IssueDoc struct {
	Key                 string `json:"key"`
	Project             string `json:"project"`
	Summary             string `json:"summary"`
	Description         string `json:"description,omitempty"`
	Status              string `json:"status"`
	AssigneeDisplayName string `json:"assignee_displayName,omitempty"`
	AssigneeAccountID   string `json:"assignee_accountId,omitempty"`
	AssigneeNormalized  string `json:"assignee_normalized,omitempty"`
	Created             string `json:"created,omitempty"`
	Updated             string `json:"updated,omitempty"`
	DueDate             string `json:"duedate,omitempty"`
	ResolutionDate      string `json:"resolutiondate,omitempty"`
	SearchText          string `json:"search_text,omitempty"`
}

// Retriever answers "what is X working on" style questions over the issue
// index: plan extraction, assignee resolution, filter derivation, hybrid
// search, then a structured LLM summary.
type Retriever struct {
	index     searchindex.Index
	embedder  embedding.EmbeddingProvider
	provider  llm.LLMProvider
	logger    *zap.Logger
	staleDays int
}

func NewRetriever(index searchindex.Index, embedder embedding.EmbeddingProvider, provider llm.LLMProvider, staleDays int, logger *zap.Logger) *Retriever {
	if staleDays <= 0 {
		staleDays = DefaultStaleDays
	}
	return &Retriever{index: index, embedder: embedder, provider: provider, staleDays: staleDays, logger: logger}
}

// Search runs the full issue lookup pipeline for one question.
func (r *Retriever) Search(ctx context.Context, query string) (*retriever.Result, error) {
	plan := ExtractPlan(ctx, r.provider, query)

	var assignee Assignee
	if plan.AssigneeText != "" {
		resolved, err := ResolveAssignee(ctx, r.index, plan.AssigneeText)
		if err != nil {
			r.logger.Error("assignee resolution failed", zap.String("name", plan.AssigneeText), zap.Error(err))
			return nil, fmt.Errorf("%w: %v", retriever.ErrSearchUnavailable, err)
		}
		assignee = resolved
	}

	filters := BuildFilters(plan, assignee.AccountID, r.staleDays)

	merged, err := r.hybridQuery(ctx, query, plan, filters, defaultSize)
	if err != nil {
		r.logger.Error("issue search failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", retriever.ErrSearchUnavailable, err)
	}

	return r.summarize(ctx, query, plan, assignee, merged)
}

func (r *Retriever) hybridQuery(ctx context.Context, query string, plan Plan, filters []searchindex.M, size int) ([]fusion.Hit[IssueDoc], error) {
	var bm25Leg, knnLeg []fusion.Hit[IssueDoc]
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		boolQuery := searchindex.M{}
		if keywords := strings.TrimSpace(plan.Keywords); keywords != "" {
			boolQuery["must"] = []searchindex.M{{
				"multi_match": searchindex.M{
					"query":    keywords,
					"fields":   []string{"summary^3", "description", "search_text"},
					"operator": "and",
				},
			}}
		}
		if len(filters) > 0 {
			boolQuery["filter"] = filters
		}

		res, err := r.index.Search(gCtx, issuesIndex, searchindex.M{
			"query": searchindex.M{"bool": boolQuery},
			"size":  size,
		})
		if err != nil {
			return fmt.Errorf("lexical leg: %w", err)
		}
		bm25Leg = retriever.Leg[IssueDoc](res.Hits.Hits)
		return nil
	})

	g.Go(func() error {
		if strings.TrimSpace(query) == "" {
			return nil
		}
		vectors, err := r.embedder.Embed(gCtx, []string{query})
		if err != nil {
			return fmt.Errorf("embed query: %w", err)
		}

		k := size * 10
		if k < 200 {
			k = 200
		}
		body := searchindex.KNN("embedding", vectors[0], k, numCandidates, filters)
		body["size"] = size
		body["min_score"] = 0.8

		res, err := r.index.Search(gCtx, issuesIndex, body)
		if err != nil {
			return fmt.Errorf("vector leg: %w", err)
		}
		knnLeg = retriever.Leg[IssueDoc](res.Hits.Hits)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := fusion.Fuse([][]fusion.Hit[IssueDoc]{bm25Leg, knnLeg}, []float64{1, 1}, size)

	// Completed lookups exclude anything that only matched lexically but is
	// still open.
	if plan.Intent == PlanCompleted {
		done := map[string]struct{}{}
		for _, s := range doneStatuses {
			done[s] = struct{}{}
		}
		filtered := merged[:0]
		for _, h := range merged {
			if _, ok := done[h.Payload.Status]; ok || h.Payload.ResolutionDate != "" {
				filtered = append(filtered, h)
			}
		}
		merged = filtered
	}
	return merged, nil
}

type summarizedAnswer struct {
	Answer  string `json:"answer"`
	Sources []struct {
		Type       string  `json:"type"`
		Snippet    string  `json:"snippet"`
		Title      string  `json:"title"`
		Confidence float64 `json:"confidence"`
		Key        string  `json:"key"`
	} `json:"sources"`
}

var summaryFenceRe = regexp.MustCompile("(?s)^```(?:json)?\\s*|\\s*```$")

func (r *Retriever) summarize(ctx context.Context, query string, plan Plan, assignee Assignee, hits []fusion.Hit[IssueDoc]) (*retriever.Result, error) {
	payload, err := json.Marshal(map[string]any{
		"assignee": assignee,
		"plan":     plan,
		"results":  hitsForPrompt(hits),
	})
	if err != nil {
		return nil, err
	}

	system := `You are a helpful assistant that summarizes tracker issues into structured JSON.
Given a search payload, analyze all tickets and produce a high-level summary.
Return only valid JSON in the format:
{
  "answer": string,
  "sources": [
    {"type": "jira_ticket", "snippet": string, "title": string, "confidence": number, "key": string}
  ]
}`

	user := fmt.Sprintf("Issue payload:\n%s\n\nQuestion: %q\n\nSummarize the tickets, including total count, key themes, progress status, and notable blockers.\nEach source represents one ticket with a short summary snippet.", payload, query)

	response, err := llm.Complete(ctx, r.provider, system, user, nil, llm.WithTemperature(0.2))
	if err != nil {
		return nil, fmt.Errorf("summarize issues: %w", err)
	}

	var parsed summarizedAnswer
	cleaned := summaryFenceRe.ReplaceAllString(strings.TrimSpace(response), "")
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		// Degrade to the raw hits rather than losing the result set.
		r.logger.Warn("issue summary parsing failed, returning raw hits", zap.Error(err))
		return &retriever.Result{
			Query:   query,
			Answer:  response,
			Sources: citationsFromHits(hits),
		}, nil
	}

	sources := make([]retriever.Citation, 0, len(parsed.Sources))
	for _, s := range parsed.Sources {
		sources = append(sources, retriever.Citation{
			Type:    "jira_ticket",
			ID:      s.Key,
			Title:   s.Title,
			Snippet: s.Snippet,
			Score:   s.Confidence,
			Key:     s.Key,
		})
	}
	return &retriever.Result{Query: query, Answer: parsed.Answer, Sources: sources}, nil
}

func hitsForPrompt(hits []fusion.Hit[IssueDoc]) []map[string]any {
	out := make([]map[string]any, 0, len(hits))
	for _, h := range hits {
		out = append(out, map[string]any{
			"key":            h.Payload.Key,
			"project":        h.Payload.Project,
			"status":         h.Payload.Status,
			"assignee":       h.Payload.AssigneeDisplayName,
			"created":        h.Payload.Created,
			"updated":        h.Payload.Updated,
			"duedate":        h.Payload.DueDate,
			"resolutiondate": h.Payload.ResolutionDate,
			"summary":        h.Payload.Summary,
			"score":          h.RawScore,
		})
	}
	return out
}

func citationsFromHits(hits []fusion.Hit[IssueDoc]) []retriever.Citation {
	sources := make([]retriever.Citation, 0, len(hits))
	for _, h := range hits {
		sources = append(sources, retriever.Citation{
			Type:    "jira_ticket",
			ID:      h.Payload.Key,
			Title:   h.Payload.Summary,
			Snippet: h.Payload.Description,
			Score:   h.RawScore,
			Key:     h.Payload.Key,
		})
	}
	return sources
}
