package issues

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"callcenter-assistant-be/pkg/searchindex"
)

// Assignee is a resolved account reference.
type Assignee struct {
	AccountID   string `json:"accountId,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// ResolveAssignee maps free-text ("mat", "Priya") to an account by combining a
// fuzzy match, a phrase-prefix match, and a wildcard fallback, then picking
// the account whose issues were updated most recently. An empty Assignee means
// no match.
func ResolveAssignee(ctx context.Context, index searchindex.Index, nameOrQuery string) (Assignee, error) {
	nameOrQuery = strings.TrimSpace(nameOrQuery)
	if nameOrQuery == "" {
		return Assignee{}, nil
	}

	body := searchindex.M{
		"size": 0,
		"query": searchindex.M{
			"bool": searchindex.M{
				"should": []searchindex.M{
					{"match": searchindex.M{"assignee_normalized": searchindex.M{
						"query":     nameOrQuery,
						"fuzziness": "AUTO",
					}}},
					{"match_phrase_prefix": searchindex.M{"assignee_normalized": searchindex.M{
						"query": nameOrQuery,
					}}},
					{"wildcard": searchindex.M{"assignee_displayName": searchindex.M{
						"value":            "*" + strings.ToLower(nameOrQuery) + "*",
						"case_insensitive": true,
					}}},
				},
				"minimum_should_match": 1,
			},
		},
		"aggs": searchindex.M{
			"by_assignee": searchindex.M{
				"terms": searchindex.M{
					"field":   "assignee_accountId",
					"size":    5,
					"missing": "__none__",
				},
				"aggs": searchindex.M{
					"latest": searchindex.M{
						"top_hits": searchindex.M{
							"_source": searchindex.M{"includes": []string{"assignee_displayName", "assignee_accountId"}},
							"size":    1,
							"sort":    []searchindex.M{{"updated": "desc"}},
						},
					},
				},
			},
		},
	}

	res, err := index.Search(ctx, issuesIndex, body)
	if err != nil {
		return Assignee{}, fmt.Errorf("resolve assignee: %w", err)
	}

	raw, ok := res.Aggregations["by_assignee"]
	if !ok {
		return Assignee{}, nil
	}

	var agg struct {
		Buckets []struct {
			Key    string `json:"key"`
			Latest struct {
				Hits struct {
					Hits []struct {
						Source struct {
							AccountID   string `json:"assignee_accountId"`
							DisplayName string `json:"assignee_displayName"`
						} `json:"_source"`
					} `json:"hits"`
				} `json:"hits"`
			} `json:"latest"`
		} `json:"buckets"`
	}
	if err := json.Unmarshal(raw, &agg); err != nil {
		return Assignee{}, fmt.Errorf("decode assignee aggregation: %w", err)
	}

	for _, bucket := range agg.Buckets {
		if bucket.Key == "" || bucket.Key == "__none__" {
			continue
		}
		if len(bucket.Latest.Hits.Hits) == 0 {
			continue
		}
		src := bucket.Latest.Hits.Hits[0].Source
		return Assignee{AccountID: src.AccountID, DisplayName: src.DisplayName}, nil
	}
	return Assignee{}, nil
}

// NormalizeName lowercases and strips punctuation so display names index and
// match consistently.
func NormalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
