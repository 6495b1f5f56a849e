package embedding

import "context"

// EmbeddingProvider defines the interface for generating text embeddings.
// One vector is returned per input text, in input order.
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
