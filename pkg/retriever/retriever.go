package retriever

import (
	"encoding/json"
	"errors"

	"callcenter-assistant-be/pkg/fusion"
	"callcenter-assistant-be/pkg/searchindex"
)

// ErrSearchUnavailable marks a backend failure. Callers use it to distinguish
// "the index is down" from a successful search with no results.
var ErrSearchUnavailable = errors.New("search unavailable")

// Citation is the uniform source reference shape returned to clients
// regardless of which domain produced it.
type Citation struct {
	Type    string  `json:"type"`
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
	Key     string  `json:"key,omitempty"`
}

// Result is the answer plus citations every domain retriever returns.
type Result struct {
	Query   string     `json:"query"`
	Answer  string     `json:"answer"`
	Sources []Citation `json:"sources"`
}

// Leg converts raw index hits into a fusion leg, decoding each payload into P.
// Hits whose source cannot be decoded are skipped rather than failing the leg.
func Leg[P any](hits []searchindex.Hit) []fusion.Hit[P] {
	leg := make([]fusion.Hit[P], 0, len(hits))
	for _, h := range hits {
		var payload P
		if len(h.Source) > 0 {
			if err := json.Unmarshal(h.Source, &payload); err != nil {
				continue
			}
		}
		leg = append(leg, fusion.Hit[P]{
			ID:       h.ID,
			RawScore: h.Score,
			Payload:  payload,
		})
	}
	return leg
}
