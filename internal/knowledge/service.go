package knowledge

import (
	"context"
	"fmt"
	"strings"

	"leadcall_backend/platform/logger"
	"leadcall_backend/platform/qdrant"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// NoContextSentinel is returned by Retrieve when the store has nothing
// relevant. Conversation callers treat it as "do not generate".
const NoContextSentinel = "no relevant information"

const (
	// DefaultTopK is how many matches a retrieval considers.
	DefaultTopK = 3
	// minMatchScore drops near-noise matches from the context.
	minMatchScore = 0.35
	// embedConcurrency bounds parallel embedding calls during ingestion.
	embedConcurrency = 4
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorStore is the slice of the qdrant client the service needs.
type VectorStore interface {
	Search(ctx context.Context, vector []float32, limit int) ([]qdrant.SearchResult, error)
	Upsert(ctx context.Context, points []qdrant.Point) error
}

// Document is a source text to be ingested into the corpus.
type Document struct {
	Source string
	Text   string
}

// Service embeds and stores documents and retrieves grounding context.
type Service struct {
	embedder Embedder
	store    VectorStore
	log      *logger.Logger
}

// NewService creates a knowledge service.
func NewService(embedder Embedder, store VectorStore, log *logger.Logger) *Service {
	return &Service{
		embedder: embedder,
		store:    store,
		log:      log,
	}
}

// Ingest chunks the document, embeds each chunk with bounded concurrency and
// upserts the resulting points. Returns the number of chunks stored.
func (s *Service) Ingest(ctx context.Context, doc Document) (int, error) {
	if strings.TrimSpace(doc.Source) == "" {
		return 0, fmt.Errorf("document source is required")
	}

	chunks := Chunk(doc.Text, DefaultChunkSize, DefaultChunkOverlap)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("document %q has no content to ingest", doc.Source)
	}

	points := make([]qdrant.Point, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			vector, err := s.embedder.Embed(gctx, chunk)
			if err != nil {
				return fmt.Errorf("failed to embed chunk %d of %q: %w", i, doc.Source, err)
			}
			points[i] = qdrant.Point{
				ID:     uuid.NewString(),
				Vector: vector,
				Payload: map[string]interface{}{
					"text":   chunk,
					"source": doc.Source,
				},
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	if err := s.store.Upsert(ctx, points); err != nil {
		return 0, fmt.Errorf("failed to upsert document %q: %w", doc.Source, err)
	}

	s.log.Info("document ingested", "source", doc.Source, "chunks", len(points))
	return len(points), nil
}

// Retrieve embeds the query and returns the top matches formatted as
// source-tagged context lines. Upstream failures and empty result sets both
// degrade to the sentinel so a conversation turn is never aborted by the
// retrieval side.
func (s *Service) Retrieve(ctx context.Context, query string, topK int) (string, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.log.UpstreamDegraded("embeddings", err)
		return NoContextSentinel, nil
	}

	results, err := s.store.Search(ctx, vector, topK)
	if err != nil {
		s.log.UpstreamDegraded("qdrant", err)
		return NoContextSentinel, nil
	}

	var lines []string
	for _, result := range results {
		if result.Score < minMatchScore {
			continue
		}
		text, _ := result.Payload["text"].(string)
		if strings.TrimSpace(text) == "" {
			continue
		}
		source, _ := result.Payload["source"].(string)
		if source == "" {
			source = "unknown"
		}
		lines = append(lines, fmt.Sprintf("[source: %s] %s", source, text))
	}

	if len(lines) == 0 {
		return NoContextSentinel, nil
	}
	return strings.Join(lines, "\n\n"), nil
}
