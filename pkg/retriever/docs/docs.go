package docs

import (
	"context"
	"fmt"
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
	sectionsIndex = "policy_sections"

	knnK          = 100
	numCandidates = 1000
)

// Section is the indexed shape of one policy document section.
type Section struct {
	PolicyID       string `json:"policy_id"`
	OrganizationID string `json:"organization_id,omitempty"`
	SectionID      string `json:"section_id"`
	ParentID       string `json:"parent_id,omitempty"`
	Level          int    `json:"level"`
	Title          string `json:"title"`
	Body           string `json:"body"`
	Version        string `json:"version,omitempty"`
	Department     string `json:"department,omitempty"`
}

// Retriever answers questions from the policy document index using hybrid
// lexical plus vector search fused with RRF.
type Retriever struct {
	index    searchindex.Index
	embedder embedding.EmbeddingProvider
	provider llm.LLMProvider
	logger   *zap.Logger
}

func NewRetriever(index searchindex.Index, embedder embedding.EmbeddingProvider, provider llm.LLMProvider, logger *zap.Logger) *Retriever {
	return &Retriever{index: index, embedder: embedder, provider: provider, logger: logger}
}

// Search runs both ranking legs, fuses them and synthesizes a cited answer.
// Index failures surface as ErrSearchUnavailable so callers can tell an outage
// from an empty result.
func (r *Retriever) Search(ctx context.Context, query string, size int, orgID string, history []llm.Message) (*retriever.Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required")
	}
	if size <= 0 {
		size = 5
	}

	var filters []searchindex.M
	if orgID != "" {
		filters = append(filters, searchindex.Term("organization_id", orgID))
	}

	var bm25Leg, knnLeg []fusion.Hit[Section]
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		res, err := r.index.Search(gCtx, sectionsIndex, searchindex.M{
			"query": searchindex.BoolQuery(
				searchindex.MultiMatch(query, []string{"title^2", "body"}),
				filters,
			),
			"size": size,
		})
		if err != nil {
			return fmt.Errorf("lexical leg: %w", err)
		}
		bm25Leg = retriever.Leg[Section](res.Hits.Hits)
		return nil
	})

	g.Go(func() error {
		vectors, err := r.embedder.Embed(gCtx, []string{query})
		if err != nil {
			return fmt.Errorf("embed query: %w", err)
		}
		body := searchindex.KNN("chunk_embedding", vectors[0], knnK, numCandidates, filters)
		body["size"] = size
		res, err := r.index.Search(gCtx, sectionsIndex, body)
		if err != nil {
			return fmt.Errorf("vector leg: %w", err)
		}
		knnLeg = retriever.Leg[Section](res.Hits.Hits)
		return nil
	})

	if err := g.Wait(); err != nil {
		r.logger.Error("policy document search failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", retriever.ErrSearchUnavailable, err)
	}

	merged := fusion.Fuse([][]fusion.Hit[Section]{bm25Leg, knnLeg}, []float64{1, 1}, size)

	answer, err := r.synthesize(ctx, query, merged, history)
	if err != nil {
		r.logger.Error("policy answer synthesis failed", zap.Error(err))
		return nil, err
	}

	sources := make([]retriever.Citation, 0, len(merged))
	for _, h := range merged {
		sources = append(sources, retriever.Citation{
			Type:    "doc",
			ID:      h.ID,
			Title:   h.Payload.Title,
			Snippet: h.Payload.Body,
			Score:   h.RawScore,
		})
	}

	return &retriever.Result{Query: query, Answer: answer, Sources: sources}, nil
}

func (r *Retriever) synthesize(ctx context.Context, query string, hits []fusion.Hit[Section], history []llm.Message) (string, error) {
	var docsBlock strings.Builder
	for i, h := range hits {
		fmt.Fprintf(&docsBlock, "Doc %d: %s\n%s\n\n", i+1, h.Payload.Title, h.Payload.Body)
	}

	system := "You are a helpful assistant. Answer using ONLY the provided documents.\n" +
		"- Cite sources like [Doc 1].\n" +
		"- If unsure or the documents do not support it, say you don't know. Keep it concise."

	user := fmt.Sprintf("Documents:\n%s\nQuestion: %s\n\nAnswer (with citations):", docsBlock.String(), query)

	return llm.Complete(ctx, r.provider, system, user, history, llm.WithTemperature(0.2))
}
