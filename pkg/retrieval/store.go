package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/newslens/newslens/pkg/embedding"
	"github.com/newslens/newslens/pkg/models"
)

// Store runs both search arms against PostgreSQL: full-text search
// over the chunks tsvector column and cosine search over the pgvector
// column. Documents come back as read-only snapshots.
type Store struct {
	pool     *pgxpool.Pool
	embedder embedding.Embedder // nil means the vector arm is unavailable
}

// NewStore creates a store over the shared connection pool.
func NewStore(pool *pgxpool.Pool, embedder embedding.Embedder) *Store {
	return &Store{pool: pool, embedder: embedder}
}

const docColumns = `
	c.article_id,
	a.title,
	coalesce(a.url, ''),
	to_char(a.published_at, 'YYYY-MM-DD'),
	a.language,
	left(c.content, 240)`

// SearchLexical implements LexicalSearcher via ts_rank ordering.
func (s *Store) SearchLexical(ctx context.Context, query string, f Filter) ([]models.Document, error) {
	where, args := filterClauses(f)
	args = append(args, query)
	qpos := len(args)
	where = append(where, fmt.Sprintf("c.tsv @@ plainto_tsquery('simple', $%d)", qpos))

	sql := fmt.Sprintf(`
		SELECT %s, ts_rank(c.tsv, plainto_tsquery('simple', $%d)) AS score
		FROM chunks c
		JOIN articles a ON a.id = c.article_id
		WHERE %s
		ORDER BY score DESC, a.published_at DESC, c.id
		LIMIT %d OFFSET %d`,
		docColumns, qpos, strings.Join(where, " AND "), f.Limit, f.Offset)

	return s.queryDocs(ctx, sql, args)
}

// SearchVector implements VectorSearcher via pgvector cosine distance.
// Without a configured embedder the arm reports ErrIndexUnavailable
// and the retriever degrades to lexical ranking.
func (s *Store) SearchVector(ctx context.Context, query string, f Filter) ([]models.Document, error) {
	if s.embedder == nil {
		return nil, ErrIndexUnavailable
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query embedding failed: %w", err)
	}

	where, args := filterClauses(f)
	where = append(where, "c.embedding IS NOT NULL")
	args = append(args, pgvector.NewVector(vec))
	vpos := len(args)

	sql := fmt.Sprintf(`
		SELECT %s, 1 - (c.embedding <=> $%d) AS score
		FROM chunks c
		JOIN articles a ON a.id = c.article_id
		WHERE %s
		ORDER BY c.embedding <=> $%d, a.published_at DESC, c.id
		LIMIT %d OFFSET %d`,
		docColumns, vpos, strings.Join(where, " AND "), vpos, f.Limit, f.Offset)

	return s.queryDocs(ctx, sql, args)
}

func (s *Store) queryDocs(ctx context.Context, sql string, args []any) ([]models.Document, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("search query failed: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ArticleID, &d.Title, &d.URL, &d.PublishedDate, &d.Language, &d.Snippet, &d.Score); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

// filterClauses renders the corpus pre-filter as WHERE fragments.
func filterClauses(f Filter) (clauses []string, args []any) {
	args = append(args, f.Since)
	clauses = append(clauses, fmt.Sprintf("a.published_at >= $%d", len(args)))
	args = append(args, f.Until)
	clauses = append(clauses, fmt.Sprintf("a.published_at <= $%d", len(args)))
	if f.Language != "" {
		args = append(args, f.Language)
		clauses = append(clauses, fmt.Sprintf("a.language = $%d", len(args)))
	}
	if len(f.Sources) > 0 {
		args = append(args, f.Sources)
		clauses = append(clauses, fmt.Sprintf("a.source_domain = ANY($%d)", len(args)))
	}
	return clauses, args
}
