package retrieval

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/Chative-core-poc-v1/callcenter/internal/agent/model"
)

// ChromemSearcher keeps the knowledge base in an embedded chromem-go collection.
type ChromemSearcher struct {
	mu  sync.RWMutex
	col *chromem.Collection
}

// OpenChromem opens (or creates) a persistent chromem database at dir.
func OpenChromem(dir string) (*chromem.DB, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create chromem dir: %w", err)
	}
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("open chromem: %w", err)
	}
	return db, nil
}

// EmbeddingFunc adapts an Embedder to chromem.
func EmbeddingFunc(e Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return e.EmbedQuery(ctx, text)
	}
}

func NewChromemSearcher(db *chromem.DB, collection string, embed chromem.EmbeddingFunc) (*ChromemSearcher, error) {
	col, err := db.GetOrCreateCollection(collection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("chromem collection %s: %w", collection, err)
	}
	return &ChromemSearcher{col: col}, nil
}

// AddDocuments indexes docs. IDs continue from the current collection size.
func (s *ChromemSearcher) AddDocuments(ctx context.Context, docs []model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	base := s.col.Count()
	out := make([]chromem.Document, 0, len(docs))
	for i, d := range docs {
		meta := make(map[string]string, len(d.Metadata))
		for k, v := range d.Metadata {
			meta[k] = fmt.Sprint(v)
		}
		out = append(out, chromem.Document{
			ID:       "doc-" + strconv.Itoa(base+i),
			Content:  d.Content,
			Metadata: meta,
		})
	}
	return s.col.AddDocuments(ctx, out, 4)
}

func (s *ChromemSearcher) Search(ctx context.Context, query string, k int) ([]model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := s.col.Count()
	if count == 0 || k <= 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := s.col.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	docs := make([]model.Document, 0, len(results))
	for _, r := range results {
		var meta map[string]any
		if len(r.Metadata) > 0 {
			meta = make(map[string]any, len(r.Metadata))
			for k, v := range r.Metadata {
				meta[k] = v
			}
		}
		docs = append(docs, model.Document{Content: r.Content, Metadata: meta})
	}
	return docs, nil
}
