package calls

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"callcenter-assistant-be/pkg/retriever"
	"callcenter-assistant-be/pkg/searchindex"
)

type bucketAgg struct {
	Buckets []struct {
		Key      any `json:"key"`
		DocCount int `json:"doc_count"`
	} `json:"buckets"`
}

// Analytics aggregates call volume by classification, sentiment and severity
// plus a daily timeline, within the optional filters.
func (r *Retriever) Analytics(ctx context.Context, filters Filters, orgID string) (*retriever.Result, error) {
	body := searchindex.M{
		"size": 0,
		"aggs": searchindex.M{
			"by_classification": searchindex.M{"terms": searchindex.M{"field": "classification.keyword"}},
			"by_sentiment":      searchindex.M{"terms": searchindex.M{"field": "sentiment.keyword"}},
			"by_severity":       searchindex.M{"terms": searchindex.M{"field": "severity.keyword"}},
			"timeline": searchindex.M{"date_histogram": searchindex.M{
				"field":             "timestamp",
				"calendar_interval": "day",
			}},
		},
	}
	if indexFilters := r.buildFilters(filters, orgID); len(indexFilters) > 0 {
		body["query"] = searchindex.M{"bool": searchindex.M{"filter": indexFilters}}
	}

	res, err := r.index.Search(ctx, callsIndex, body)
	if err != nil {
		r.logger.Error("call analytics failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", retriever.ErrSearchUnavailable, err)
	}

	return &retriever.Result{
		Answer:  formatAnalytics(res.Aggregations),
		Sources: []retriever.Citation{},
	}, nil
}

func formatAnalytics(aggs map[string]json.RawMessage) string {
	var b strings.Builder
	b.WriteString("## Call Analytics Summary\n\n")

	sections := []struct {
		key   string
		label string
	}{
		{"by_classification", "By Classification"},
		{"by_sentiment", "By Sentiment"},
		{"by_severity", "By Severity"},
	}
	for _, s := range sections {
		raw, ok := aggs[s.key]
		if !ok {
			continue
		}
		var agg bucketAgg
		if err := json.Unmarshal(raw, &agg); err != nil || len(agg.Buckets) == 0 {
			continue
		}
		fmt.Fprintf(&b, "**%s:**\n", s.label)
		for _, bucket := range agg.Buckets {
			fmt.Fprintf(&b, "- %v: %d calls\n", bucket.Key, bucket.DocCount)
		}
		b.WriteString("\n")
	}
	return b.String()
}
