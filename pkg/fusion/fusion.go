package fusion

import "sort"

// RRFConstant is the standard Reciprocal Rank Fusion constant. It flattens the
// influence of rank-1 dominance from any single leg while still rewarding top
// placement.
const RRFConstant = 60

// Hit is a single ranked result flowing through fusion. Payload carries the
// domain record (doc section, jira issue, call transcript) untouched.
type Hit[P any] struct {
	ID       string
	RawScore float64
	RRFScore float64
	Payload  P
}

// Fuse merges two or more ranked legs into one ranked list using Reciprocal
// Rank Fusion. For each leg, the hit at zero-based rank i gains
// weight * 1/(RRFConstant+i). Hits sharing an ID accumulate score across legs
// (and across duplicate appearances within a leg); the payload and RawScore of
// the first occurrence are retained. The merged list is sorted descending by
// accumulated score with ties broken by first-seen order, then truncated to
// limit.
//
// Fusing zero legs returns nil. A missing weight defaults to 1.0.
func Fuse[P any](legs [][]Hit[P], weights []float64, limit int) []Hit[P] {
	merged := make(map[string]*Hit[P])
	var order []*Hit[P]

	for li, leg := range legs {
		weight := 1.0
		if li < len(weights) {
			weight = weights[li]
		}
		for i, h := range leg {
			cur, ok := merged[h.ID]
			if !ok {
				hit := h
				hit.RRFScore = 0
				merged[h.ID] = &hit
				order = append(order, &hit)
				cur = &hit
			}
			cur.RRFScore += weight * (1.0 / float64(RRFConstant+i))
		}
	}

	// Stable sort keeps first-seen (leg) order on equal scores.
	sort.SliceStable(order, func(a, b int) bool {
		return order[a].RRFScore > order[b].RRFScore
	})

	if limit >= 0 && len(order) > limit {
		order = order[:limit]
	}

	out := make([]Hit[P], len(order))
	for i, h := range order {
		out[i] = *h
	}
	return out
}
