package docs

import (
	"context"
	"fmt"

	"callcenter-assistant-be/pkg/embedding"
	"callcenter-assistant-be/pkg/searchindex"
)

const chunksIndex = "policy_chunks"

// Chunk sizing for the fine-grained index. Sections are indexed whole; chunks
// trade recall granularity for context length.
const (
	chunkSize    = 1200
	chunkOverlap = 200
)

// SectionInput is one extracted policy section ready to index.
type SectionInput struct {
	ID        string
	ParentID  string
	Level     int
	Title     string
	ExactText string
}

// PolicyInput is an extracted policy document ready to index.
type PolicyInput struct {
	DocumentID     string
	OrganizationID string
	Version        string
	Sections       []SectionInput
}

// IndexPolicy writes a policy into both search indexes: whole sections into
// policy_sections and overlapping text chunks into policy_chunks. Ids are
// deterministic so re-ingesting a document overwrites cleanly.
func IndexPolicy(ctx context.Context, index searchindex.Index, embedder embedding.EmbeddingProvider, policy PolicyInput, department string) error {
	if department == "" {
		department = "General"
	}

	var sectionLines []any
	for _, s := range policy.Sections {
		vectors, err := embedder.Embed(ctx, []string{s.Title + "\n\n" + s.ExactText})
		if err != nil {
			return fmt.Errorf("embed section %s: %w", s.ID, err)
		}
		id := fmt.Sprintf("%s__%s", policy.DocumentID, s.ID)
		sectionLines = append(sectionLines,
			searchindex.M{"index": searchindex.M{"_index": sectionsIndex, "_id": id}},
			searchindex.M{
				"policy_id":       policy.DocumentID,
				"organization_id": policy.OrganizationID,
				"section_id":      s.ID,
				"parent_id":       s.ParentID,
				"level":           s.Level,
				"title":           s.Title,
				"body":            s.ExactText,
				"chunk_embedding": vectors[0],
				"version":         policy.Version,
				"department":      department,
			},
		)
	}
	if len(sectionLines) > 0 {
		if err := index.Bulk(ctx, sectionLines); err != nil {
			return fmt.Errorf("index policy sections: %w", err)
		}
	}

	var chunkLines []any
	for _, s := range policy.Sections {
		for i, text := range SplitChunks(s.ExactText, chunkSize, chunkOverlap) {
			vectors, err := embedder.Embed(ctx, []string{text})
			if err != nil {
				return fmt.Errorf("embed chunk %s/%d: %w", s.ID, i, err)
			}
			id := fmt.Sprintf("%s__%s__%d", policy.DocumentID, s.ID, i)
			chunkLines = append(chunkLines,
				searchindex.M{"index": searchindex.M{"_index": chunksIndex, "_id": id}},
				searchindex.M{
					"policy_id":       policy.DocumentID,
					"organization_id": policy.OrganizationID,
					"section_id":      s.ID,
					"chunk_id":        i,
					"text":            text,
					"vec":             vectors[0],
					"version":         policy.Version,
				},
			)
		}
	}
	if len(chunkLines) > 0 {
		if err := index.Bulk(ctx, chunkLines); err != nil {
			return fmt.Errorf("index policy chunks: %w", err)
		}
	}
	return nil
}

// SplitChunks cuts text into fixed-size overlapping windows.
func SplitChunks(text string, size, overlap int) []string {
	if size <= 0 {
		return nil
	}
	if overlap >= size {
		overlap = size / 4
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= size {
		return []string{text}
	}

	var chunks []string
	step := size - overlap
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
