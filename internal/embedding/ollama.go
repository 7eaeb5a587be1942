// Package embedding generates vector embeddings for chunks through a
// local Ollama instance.
package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"

	"textbook-rag/internal/models"
)

// OllamaEmbedder generates embeddings using the Ollama API.
type OllamaEmbedder struct {
	Client        *api.Client
	Model         string
	MaxRetries    int
	Timeout       time.Duration
	MaxConcurrent int

	log *slog.Logger
}

// NewOllamaEmbedder creates an embedder for the given host and model.
// An empty host falls back to the OLLAMA_HOST environment default.
func NewOllamaEmbedder(host, model string, log *slog.Logger) (*OllamaEmbedder, error) {
	hostURL := envconfig.Host()
	if host != "" {
		u, err := url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
		}
		hostURL = u
	}
	client := api.NewClient(hostURL, http.DefaultClient)

	return &OllamaEmbedder{
		Client:        client,
		Model:         model,
		MaxRetries:    3,
		Timeout:       time.Second * 30,
		MaxConcurrent: 3, // Limit concurrent requests based on hardware
		log:           log,
	}, nil
}

// EmbedText generates an embedding for a single text, retrying transient
// failures with a linear backoff.
func (e *OllamaEmbedder) EmbedText(ctx context.Context, text string) ([]float64, error) {
	var embedding []float64
	var err error

	for retries := 0; retries <= e.MaxRetries; retries++ {
		if retries > 0 {
			e.log.Warn("retrying embedding", "attempt", retries, "error", err)
			time.Sleep(time.Duration(retries) * time.Second)
		}

		embedding, err = e.createEmbedding(ctx, text)
		if err == nil {
			return embedding, nil
		}
	}

	return nil, fmt.Errorf("failed to create embedding after %d retries: %w", e.MaxRetries, err)
}

func (e *OllamaEmbedder) createEmbedding(ctx context.Context, text string) ([]float64, error) {
	req := api.EmbeddingRequest{
		Model:   e.Model,
		Prompt:  text,
		Options: map[string]any{},
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	resp, err := e.Client.Embeddings(ctxWithTimeout, &req)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	return resp.Embedding, nil
}

// EmbedChunks fills in the Embedding field of every chunk in place,
// running up to MaxConcurrent requests in parallel. progress may be nil;
// when set it is called after each completed chunk. The first failure is
// returned after all in-flight requests finish.
func (e *OllamaEmbedder) EmbedChunks(ctx context.Context, chunks []models.Chunk,
	progress func(done, total int)) error {

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, e.MaxConcurrent)

	// Guards the chunks slice and the progress counter.
	var mu sync.Mutex
	done := 0
	total := len(chunks)

	errChan := make(chan error, total)

	for i := range chunks {
		wg.Add(1)
		semaphore <- struct{}{} // Acquire semaphore

		go func(i int) {
			defer func() {
				wg.Done()
				<-semaphore // Release semaphore
			}()

			embedding, err := e.EmbedText(ctx, chunks[i].Content)
			if err != nil {
				errChan <- fmt.Errorf("failed to embed chunk %s: %w", chunks[i].ID, err)
				return
			}

			mu.Lock()
			chunks[i].Embedding = embedding
			done++
			if progress != nil {
				progress(done, total)
			}
			mu.Unlock()
		}(i)
	}

	wg.Wait()
	close(errChan)

	if err := <-errChan; err != nil {
		return err
	}
	return nil
}
