// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package similarity

import (
	"context"
	"fmt"
	"sync"

	embedeverything "github.com/soundprediction/go-embedeverything/pkg/embedder"
)

// Embedder turns batches of texts into vectors. The production
// implementation loads a local sentence-transformer model; tests
// substitute fakes.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Close releases model resources.
	Close() error
}

// DefaultModel is the sentence-transformer used when the config names none.
const DefaultModel = "sentence-transformers/all-MiniLM-L6-v2"

// LocalEmbedder wraps a go-embedeverything model. The model is loaded
// lazily on first use so that commands which never embed (stats,
// collections) pay no startup cost.
type LocalEmbedder struct {
	model string

	mu     sync.Mutex
	client *embedeverything.Embedder
}

// NewLocalEmbedder prepares a lazy embedder for the named model.
func NewLocalEmbedder(model string) *LocalEmbedder {
	if model == "" {
		model = DefaultModel
	}
	return &LocalEmbedder{model: model}
}

func (e *LocalEmbedder) load() (*embedeverything.Embedder, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		return e.client, nil
	}
	client, err := embedeverything.NewEmbedder(e.model)
	if err != nil {
		return nil, fmt.Errorf("loading embedding model %q: %w", e.model, err)
	}
	e.client = client
	return client, nil
}

// Embed loads the model on first call and embeds the batch. The
// underlying library does not support cancellation, so ctx is only
// checked before the call.
func (e *LocalEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	client, err := e.load()
	if err != nil {
		return nil, err
	}
	vectors, err := client.Embed(texts)
	if err != nil {
		return nil, fmt.Errorf("embedding %d texts: %w", len(texts), err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}
	return vectors, nil
}

// Close releases the model if it was loaded.
func (e *LocalEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		e.client.Close()
		e.client = nil
	}
	return nil
}
