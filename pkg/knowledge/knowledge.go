// Copyright 2025 The AgentLLM Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package knowledge provides agent knowledge bases backed by an embedded
// vector store.
//
// A Manager owns one chromem-go collection built from a directory of
// markdown documents. Indexing is lazy: the first search embeds and
// stores every chunk, later searches reuse the collection. Managers are
// shared across users of the same agent through the Factory.
package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/agentllm/agentllm/pkg/logger"
	"github.com/agentllm/agentllm/pkg/tool"
)

// maxChunkChars bounds chunk size so a single chunk stays well inside
// embedding model input limits.
const maxChunkChars = 1500

// defaultTopK is the number of chunks returned per search.
const defaultTopK = 5

// Embedder turns text into a vector embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Config describes one agent's knowledge base.
type Config struct {
	// Path is the directory holding markdown documents.
	Path string

	// Collection names the vector collection. Defaults to the base name
	// of Path.
	Collection string

	// Embedder generates embeddings for chunks and queries.
	Embedder Embedder
}

// Result is one retrieved knowledge chunk.
type Result struct {
	Source  string
	Content string
	Score   float32
}

// Manager owns one knowledge collection.
type Manager struct {
	cfg Config
	db  *chromem.DB
	log *slog.Logger

	mu      sync.Mutex
	col     *chromem.Collection
	indexed bool
}

// NewManager creates a manager for the given knowledge config.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("knowledge path is required")
	}
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if cfg.Collection == "" {
		cfg.Collection = filepath.Base(cfg.Path)
	}

	return &Manager{
		cfg: cfg,
		db:  chromem.NewDB(),
		log: logger.New("knowledge"),
	}, nil
}

// chunkMarkdown splits a document into search-sized chunks on blank
// lines, accumulating paragraphs up to maxChunkChars.
func chunkMarkdown(content string) []string {
	paragraphs := strings.Split(content, "\n\n")

	var chunks []string
	var current strings.Builder
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if current.Len() > 0 && current.Len()+len(p) > maxChunkChars {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// ensureIndexed builds the collection on first use. Caller holds m.mu.
func (m *Manager) ensureIndexed(ctx context.Context) error {
	if m.indexed {
		return nil
	}

	// Embeddings are computed externally, so the collection's embedding
	// function must never be reached.
	embeddingFunc := func(ctx context.Context, text string) ([]float32, error) {
		return nil, fmt.Errorf("embedding function called but vectors are pre-computed")
	}

	col, err := m.db.GetOrCreateCollection(m.cfg.Collection, nil, embeddingFunc)
	if err != nil {
		return fmt.Errorf("failed to create knowledge collection %q: %w", m.cfg.Collection, err)
	}

	var docs []chromem.Document
	err = filepath.WalkDir(m.cfg.Path, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(path), ".md") {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read knowledge file %s: %w", path, err)
		}

		rel, relErr := filepath.Rel(m.cfg.Path, path)
		if relErr != nil {
			rel = filepath.Base(path)
		}

		for i, chunk := range chunkMarkdown(string(content)) {
			embedding, err := m.cfg.Embedder.Embed(ctx, chunk)
			if err != nil {
				return fmt.Errorf("failed to embed chunk of %s: %w", rel, err)
			}
			docs = append(docs, chromem.Document{
				ID:        fmt.Sprintf("%s:%d", rel, i),
				Content:   chunk,
				Metadata:  map[string]string{"source": rel},
				Embedding: embedding,
			})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to index knowledge base at %s: %w", m.cfg.Path, err)
	}

	if len(docs) > 0 {
		if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			return fmt.Errorf("failed to store knowledge documents: %w", err)
		}
	}

	m.col = col
	m.indexed = true
	m.log.Info("indexed knowledge base",
		"path", m.cfg.Path, "collection", m.cfg.Collection, "chunks", len(docs))
	return nil
}

// Search returns the chunks most similar to the query.
func (m *Manager) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if topK <= 0 {
		topK = defaultTopK
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureIndexed(ctx); err != nil {
		return nil, err
	}
	if m.col.Count() == 0 {
		return nil, nil
	}
	if count := m.col.Count(); topK > count {
		topK = count
	}

	queryEmbedding, err := m.cfg.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed knowledge query: %w", err)
	}

	results, err := m.col.QueryEmbedding(ctx, queryEmbedding, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("knowledge search failed: %w", err)
	}

	out := make([]Result, 0, len(results))
	for _, r := range results {
		out = append(out, Result{
			Source:  r.Metadata["source"],
			Content: r.Content,
			Score:   r.Similarity,
		})
	}
	return out, nil
}

// Toolkit exposes the knowledge base to agents as a search tool.
func (m *Manager) Toolkit() tool.Toolkit {
	return &knowledgeToolkit{manager: m}
}

type knowledgeToolkit struct {
	manager *Manager
}

func (t *knowledgeToolkit) Name() string { return "knowledge" }

func (t *knowledgeToolkit) Tools() []tool.Tool {
	return []tool.Tool{
		&tool.FuncTool{
			ToolName: "search_knowledge_base",
			ToolDescription: "Search the agent's knowledge base for information relevant to a query. " +
				"Returns the most relevant document excerpts.",
			ToolParameters: []tool.Parameter{
				{Name: "query", Type: "string", Description: "What to look for", Required: true},
				{Name: "limit", Type: "integer", Description: "Maximum number of excerpts to return (default 5)"},
			},
			Fn: t.search,
		},
	}
}

func (t *knowledgeToolkit) search(ctx context.Context, args map[string]any) (string, error) {
	query, err := tool.StringArg(args, "query")
	if err != nil {
		return "", err
	}
	limit := tool.IntArg(args, "limit", defaultTopK)

	results, err := t.manager.Search(ctx, query, limit)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "No relevant information found in the knowledge base.", nil
	}

	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n---\n\n")
		}
		fmt.Fprintf(&b, "[%s] (relevance %.2f)\n%s", r.Source, r.Score, r.Content)
	}
	return b.String(), nil
}
