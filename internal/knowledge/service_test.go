package knowledge

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"leadcall_backend/platform/logger"
	"leadcall_backend/platform/qdrant"
)

type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return []float32{float32(len(text)), 1}, nil
}

type fakeVectorStore struct {
	mu        sync.Mutex
	points    []qdrant.Point
	results   []qdrant.SearchResult
	searchErr error
	upsertErr error
}

func (f *fakeVectorStore) Search(context.Context, []float32, int) ([]qdrant.SearchResult, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.results, nil
}

func (f *fakeVectorStore) Upsert(_ context.Context, points []qdrant.Point) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.mu.Lock()
	f.points = append(f.points, points...)
	f.mu.Unlock()
	return nil
}

func newTestService(embedder *fakeEmbedder, store *fakeVectorStore) *Service {
	return NewService(embedder, store, logger.New("development"))
}

func match(source, text string, score float64) qdrant.SearchResult {
	return qdrant.SearchResult{
		Score:   score,
		Payload: map[string]interface{}{"source": source, "text": text},
	}
}

func TestChunkOverlapAndCoverage(t *testing.T) {
	text := strings.Repeat("abcdefghij", 30) // 300 runes
	chunks := Chunk(text, 100, 20)
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1]
		overlap := prev[len(prev)-20:]
		if !strings.HasPrefix(chunks[i], overlap) {
			t.Fatalf("chunk %d does not overlap its predecessor", i)
		}
	}
}

func TestChunkShortAndEmptyInput(t *testing.T) {
	if got := Chunk("   \n  ", 100, 20); got != nil {
		t.Fatalf("expected no chunks from whitespace, got %v", got)
	}
	chunks := Chunk("short text", 100, 20)
	if len(chunks) != 1 || chunks[0] != "short text" {
		t.Fatalf("expected single chunk, got %v", chunks)
	}
}

func TestIngestEmbedsEveryChunk(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := &fakeVectorStore{}
	svc := newTestService(embedder, store)

	text := strings.Repeat("course pricing details. ", 200)
	count, err := svc.Ingest(context.Background(), Document{Source: "pricing.md", Text: text})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count < 2 {
		t.Fatalf("expected multiple chunks from a long document, got %d", count)
	}
	if embedder.calls != count {
		t.Fatalf("expected %d embed calls, got %d", count, embedder.calls)
	}
	if len(store.points) != count {
		t.Fatalf("expected %d points upserted, got %d", count, len(store.points))
	}
	for _, point := range store.points {
		if point.Payload["source"] != "pricing.md" {
			t.Fatalf("point missing source payload: %+v", point.Payload)
		}
		if point.ID == "" {
			t.Fatalf("point missing id")
		}
	}
}

func TestIngestRejectsEmptyDocument(t *testing.T) {
	svc := newTestService(&fakeEmbedder{}, &fakeVectorStore{})
	if _, err := svc.Ingest(context.Background(), Document{Source: "empty.md", Text: "  "}); err == nil {
		t.Fatalf("expected error for empty document")
	}
	if _, err := svc.Ingest(context.Background(), Document{Text: "content"}); err == nil {
		t.Fatalf("expected error for missing source")
	}
}

func TestIngestSurfacesEmbedFailure(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("embedding api down")}
	store := &fakeVectorStore{}
	svc := newTestService(embedder, store)

	if _, err := svc.Ingest(context.Background(), Document{Source: "a.md", Text: "some content"}); err == nil {
		t.Fatalf("expected ingest to fail when embedding fails")
	}
	if len(store.points) != 0 {
		t.Fatalf("no points should be stored on a failed ingest")
	}
}

func TestRetrieveFormatsSourceTaggedLines(t *testing.T) {
	store := &fakeVectorStore{results: []qdrant.SearchResult{
		match("pricing.md", "The data science course costs 1200 euro.", 0.9),
		match("schedule.md", "Evening classes run twice a week.", 0.7),
	}}
	svc := newTestService(&fakeEmbedder{}, store)

	got, err := svc.Retrieve(context.Background(), "how much is the course", DefaultTopK)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "[source: pricing.md] The data science course costs 1200 euro.") {
		t.Fatalf("missing tagged pricing line: %q", got)
	}
	if !strings.Contains(got, "[source: schedule.md]") {
		t.Fatalf("missing tagged schedule line: %q", got)
	}
}

func TestRetrieveEmptyResultsYieldSentinel(t *testing.T) {
	svc := newTestService(&fakeEmbedder{}, &fakeVectorStore{})
	got, err := svc.Retrieve(context.Background(), "anything", DefaultTopK)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != NoContextSentinel {
		t.Fatalf("expected sentinel, got %q", got)
	}
}

func TestRetrieveDropsLowScoreMatches(t *testing.T) {
	store := &fakeVectorStore{results: []qdrant.SearchResult{
		match("noise.md", "barely related text", 0.1),
	}}
	svc := newTestService(&fakeEmbedder{}, store)

	got, err := svc.Retrieve(context.Background(), "query", DefaultTopK)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != NoContextSentinel {
		t.Fatalf("low-score matches must not become context, got %q", got)
	}
}

func TestRetrieveDegradesUpstreamFailuresToSentinel(t *testing.T) {
	svc := newTestService(&fakeEmbedder{err: errors.New("timeout")}, &fakeVectorStore{})
	got, err := svc.Retrieve(context.Background(), "query", DefaultTopK)
	if err != nil {
		t.Fatalf("embed failure must degrade, not abort: %v", err)
	}
	if got != NoContextSentinel {
		t.Fatalf("expected sentinel, got %q", got)
	}

	svc = newTestService(&fakeEmbedder{}, &fakeVectorStore{searchErr: errors.New("qdrant 503")})
	got, err = svc.Retrieve(context.Background(), "query", DefaultTopK)
	if err != nil {
		t.Fatalf("search failure must degrade, not abort: %v", err)
	}
	if got != NoContextSentinel {
		t.Fatalf("expected sentinel, got %q", got)
	}
}
