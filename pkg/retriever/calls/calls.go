package calls

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"callcenter-assistant-be/pkg/embedding"
	"callcenter-assistant-be/pkg/fusion"
	"callcenter-assistant-be/pkg/retriever"
	"callcenter-assistant-be/pkg/searchindex"
)

const (
	callsIndex = "calls"

	defaultSize   = 20
	knnK          = 100
	numCandidates = 1000
)

// CallDoc is the indexed shape of one processed call.
type CallDoc struct {
	ID             string `json:"id,omitempty"`
	OrganizationID string `json:"organizationId,omitempty"`
	Transcript     string `json:"transcript,omitempty"`
	Summary        string `json:"summary,omitempty"`
	Intent         string `json:"intent,omitempty"`
	Classification string `json:"classification,omitempty"`
	Severity       string `json:"severity,omitempty"`
	Sentiment      string `json:"sentiment,omitempty"`
	CustomerID     string `json:"customerId,omitempty"`
	AudioPath      string `json:"audioPath,omitempty"`
	Timestamp      string `json:"timestamp,omitempty"`
}

// Filters narrow a call search by classification tags and a time window. The
// window may use the relative <<NOW±N[DWMY]>> notation.
type Filters struct {
	Tags      []string
	TimeRange retriever.TimeRange
}

// Retriever searches processed call records with hybrid lexical plus vector
// ranking.
type Retriever struct {
	index    searchindex.Index
	embedder embedding.EmbeddingProvider
	logger   *zap.Logger
	now      func() time.Time
}

func NewRetriever(index searchindex.Index, embedder embedding.EmbeddingProvider, logger *zap.Logger) *Retriever {
	return &Retriever{index: index, embedder: embedder, logger: logger, now: time.Now}
}

// Search finds calls matching the query within the given filters.
func (r *Retriever) Search(ctx context.Context, query string, filters Filters, orgID string) (*retriever.Result, error) {
	indexFilters := r.buildFilters(filters, orgID)

	var bm25Leg, knnLeg []fusion.Hit[CallDoc]
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		res, err := r.index.Search(gCtx, callsIndex, searchindex.M{
			"query": searchindex.BoolQuery(
				searchindex.MultiMatch(query, []string{"transcript", "summary", "intent", "classification"}),
				indexFilters,
			),
			"size": defaultSize,
			"sort": []searchindex.M{{"timestamp": searchindex.M{"order": "desc"}}},
		})
		if err != nil {
			return fmt.Errorf("lexical leg: %w", err)
		}
		bm25Leg = retriever.Leg[CallDoc](res.Hits.Hits)
		return nil
	})

	g.Go(func() error {
		vectors, err := r.embedder.Embed(gCtx, []string{query})
		if err != nil {
			return fmt.Errorf("embed query: %w", err)
		}
		body := searchindex.KNN("embedding", vectors[0], knnK, numCandidates, indexFilters)
		body["size"] = defaultSize
		res, err := r.index.Search(gCtx, callsIndex, body)
		if err != nil {
			return fmt.Errorf("vector leg: %w", err)
		}
		knnLeg = retriever.Leg[CallDoc](res.Hits.Hits)
		return nil
	})

	if err := g.Wait(); err != nil {
		r.logger.Error("call search failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", retriever.ErrSearchUnavailable, err)
	}

	merged := fusion.Fuse([][]fusion.Hit[CallDoc]{bm25Leg, knnLeg}, []float64{1, 1}, defaultSize)

	sources := make([]retriever.Citation, 0, len(merged))
	for _, h := range merged {
		title := "Call - Unknown"
		if h.Payload.Intent != "" {
			title = "Call - " + h.Payload.Intent
		}
		sources = append(sources, retriever.Citation{
			Type:    "file.audio",
			ID:      h.ID,
			Title:   title,
			Snippet: callSnippet(h.Payload),
			Score:   h.RawScore,
			Key:     h.Payload.AudioPath,
		})
	}

	return &retriever.Result{
		Query:   query,
		Answer:  formatResults(query, merged),
		Sources: sources,
	}, nil
}

func (r *Retriever) buildFilters(filters Filters, orgID string) []searchindex.M {
	var out []searchindex.M
	if orgID != "" {
		out = append(out, searchindex.Term("organizationId", orgID))
	}
	if len(filters.Tags) > 0 {
		out = append(out, searchindex.Terms("classification.keyword", filters.Tags))
	}
	if !filters.TimeRange.Empty() {
		resolved := retriever.ResolveTimeRange(filters.TimeRange.From, filters.TimeRange.To, r.now())
		bounds := searchindex.M{}
		if resolved.From != "" {
			bounds["gte"] = resolved.From
		}
		if resolved.To != "" {
			bounds["lte"] = resolved.To
		}
		out = append(out, searchindex.Range("timestamp", bounds))
	}
	return out
}

func callSnippet(c CallDoc) string {
	if c.Summary != "" {
		return c.Summary
	}
	if c.Transcript != "" {
		if len(c.Transcript) > 200 {
			return c.Transcript[:200]
		}
		return c.Transcript
	}
	return "No summary available"
}

func formatResults(query string, hits []fusion.Hit[CallDoc]) string {
	if len(hits) == 0 {
		return fmt.Sprintf("No calls found matching %q. Try adjusting your search terms or time range.", query)
	}

	top := hits
	if len(top) > 5 {
		top = top[:5]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d call(s) matching %q:\n\n", len(hits), query)
	for i, h := range top {
		call := h.Payload
		intent := "UNKNOWN"
		if call.Intent != "" {
			intent = strings.ToUpper(call.Intent)
		}
		severity := call.Severity
		if severity == "" {
			severity = "N/A"
		}
		fmt.Fprintf(&b, "%d. **%s** (%s severity)\n", i+1, intent, severity)
		fmt.Fprintf(&b, "   - Summary: %s\n", callSnippet(call))
		if call.CustomerID != "" {
			fmt.Fprintf(&b, "   - Customer ID: %s\n", call.CustomerID)
		}
		if call.Transcript != "" {
			fmt.Fprintf(&b, "   - Transcript: %s\n", call.Transcript)
		}
		b.WriteString("\n")
	}
	return b.String()
}
