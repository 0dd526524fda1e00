// Command ingest loads a YAML manifest of knowledge documents into the
// vector store. Each entry names a source and either carries the text inline
// or points at a file relative to the manifest.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"leadcall_backend/internal/knowledge"
	"leadcall_backend/platform/ai/embeddings"
	"leadcall_backend/platform/config"
	"leadcall_backend/platform/logger"
	"leadcall_backend/platform/qdrant"

	"gopkg.in/yaml.v3"
)

type manifest struct {
	Documents []manifestDocument `yaml:"documents"`
}

type manifestDocument struct {
	Source string `yaml:"source"`
	Text   string `yaml:"text,omitempty"`
	File   string `yaml:"file,omitempty"`
}

func main() {
	manifestPath := flag.String("manifest", "knowledge.yaml", "path to the ingestion manifest")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fatal("failed to load config: %v", err)
	}

	log := logger.New(cfg.Env)

	if !cfg.IsQdrantEnabled() || !cfg.IsEmbeddingEnabled() {
		fatal("QDRANT_URL and EMBEDDING_API_URL must be configured for ingestion")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	docs, err := loadManifest(*manifestPath)
	if err != nil {
		fatal("failed to load manifest: %v", err)
	}
	if len(docs) == 0 {
		fatal("manifest %s contains no documents", *manifestPath)
	}

	embedder := embeddings.NewClient(embeddings.Config{
		BaseURL: cfg.GetEmbeddingAPIURL(),
		APIKey:  cfg.GetEmbeddingAPIKey(),
	})
	store := qdrant.NewClient(qdrant.Config{
		BaseURL:    cfg.GetQdrantURL(),
		APIKey:     cfg.GetQdrantAPIKey(),
		Collection: cfg.GetQdrantCollection(),
	})
	service := knowledge.NewService(embedder, store, log)

	totalChunks := 0
	failures := 0
	for _, doc := range docs {
		chunks, err := service.Ingest(ctx, doc)
		if err != nil {
			failures++
			log.Error("ingestion failed", "source", doc.Source, "error", err)
			continue
		}
		totalChunks += chunks
	}

	log.Info("ingestion finished", "documents", len(docs)-failures, "failed", failures, "chunks", totalChunks)
	if failures > 0 {
		os.Exit(1)
	}
}

func loadManifest(path string) ([]knowledge.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}

	baseDir := filepath.Dir(path)
	docs := make([]knowledge.Document, 0, len(m.Documents))
	for i, entry := range m.Documents {
		if entry.Source == "" {
			return nil, fmt.Errorf("manifest entry %d has no source", i)
		}

		text := entry.Text
		if text == "" && entry.File != "" {
			content, err := os.ReadFile(filepath.Join(baseDir, entry.File))
			if err != nil {
				return nil, fmt.Errorf("failed to read %s for %s: %w", entry.File, entry.Source, err)
			}
			text = string(content)
		}
		if text == "" {
			return nil, fmt.Errorf("manifest entry %q has neither text nor file", entry.Source)
		}

		docs = append(docs, knowledge.Document{Source: entry.Source, Text: text})
	}
	return docs, nil
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
