package retrieval

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/Chative-core-poc-v1/callcenter/internal/agent/model"
)

// Querier is the part of *pgxpool.Pool the searcher needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Rows live in the tables written by the ingestion job.
const searchSQL = `
SELECT e.document, e.cmetadata
FROM langchain_pg_embedding e
JOIN langchain_pg_collection c ON c.uuid = e.collection_id
WHERE c.name = $1
ORDER BY e.embedding <=> $2::vector
LIMIT $3`

// PGVectorSearcher runs cosine-distance search over a pgvector collection.
type PGVectorSearcher struct {
	db         Querier
	embedder   Embedder
	collection string
}

func NewPGVectorSearcher(db Querier, embedder Embedder, collection string) *PGVectorSearcher {
	return &PGVectorSearcher{db: db, embedder: embedder, collection: collection}
}

func (s *PGVectorSearcher) Search(ctx context.Context, query string, k int) ([]model.Document, error) {
	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	rows, err := s.db.Query(ctx, searchSQL, s.collection, pgvector.NewVector(vec), k)
	if err != nil {
		return nil, fmt.Errorf("pgvector search: %w", err)
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		var (
			content string
			meta    []byte
		)
		if err := rows.Scan(&content, &meta); err != nil {
			return nil, fmt.Errorf("pgvector scan: %w", err)
		}
		docs = append(docs, model.Document{Content: content, Metadata: decodeMetadata(meta)})
	}
	return docs, rows.Err()
}

func decodeMetadata(raw []byte) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}
