package calls

import (
	"context"
	"fmt"
	"strings"

	"callcenter-assistant-be/pkg/embedding"
	"callcenter-assistant-be/pkg/searchindex"
)

// IndexCall writes one processed call into the search index, embedding the
// transcript and summary together for the vector leg.
func IndexCall(ctx context.Context, index searchindex.Index, embedder embedding.EmbeddingProvider, doc CallDoc) error {
	if doc.ID == "" {
		return fmt.Errorf("call id is required")
	}

	embedText := strings.TrimSpace(doc.Summary + "\n" + doc.Transcript)
	vectors, err := embedder.Embed(ctx, []string{embedText})
	if err != nil {
		return fmt.Errorf("embed call %s: %w", doc.ID, err)
	}

	body := searchindex.M{
		"organizationId": doc.OrganizationID,
		"transcript":     doc.Transcript,
		"summary":        doc.Summary,
		"intent":         doc.Intent,
		"classification": doc.Classification,
		"severity":       doc.Severity,
		"sentiment":      doc.Sentiment,
		"customerId":     doc.CustomerID,
		"audioPath":      doc.AudioPath,
		"timestamp":      doc.Timestamp,
		"embedding":      vectors[0],
	}
	return index.Upsert(ctx, callsIndex, doc.ID, body)
}
