// Package memory implements the TTL'd vector memory store: episodic
// and semantic records with cosine recall, soft deletion, and expiry
// cleanup. Embeddings are unit-normalized at insert so cosine distance
// in the index matches similarity exactly.
package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/newslens/newslens/pkg/embedding"
	"github.com/newslens/newslens/pkg/models"
)

// ErrNotFound is returned when a record ID does not exist or was deleted.
var ErrNotFound = errors.New("memory record not found")

// DefaultRecallLimit bounds recall result size when the caller passes 0.
const DefaultRecallLimit = 10

// Store persists memory records in PostgreSQL with pgvector recall.
type Store struct {
	pool     *pgxpool.Pool
	embedder embedding.Embedder
}

// NewStore creates the memory store. The embedder is required; every
// stored record carries an embedding.
func NewStore(pool *pgxpool.Pool, embedder embedding.Embedder) *Store {
	return &Store{pool: pool, embedder: embedder}
}

// StoreInput is a request to persist one new record.
type StoreInput struct {
	Type       models.MemoryType
	Content    string
	Importance float64
	TTLDays    int // 0 picks the default for the record type
	Refs       []string
	UserID     string
	Tags       []string
}

// Store embeds the content and inserts a new record, returning it with
// the database-derived timestamps. Importance is clamped to [0,1].
func (s *Store) Store(ctx context.Context, in StoreInput) (*models.MemoryRecord, error) {
	if in.Content == "" {
		return nil, fmt.Errorf("memory content must not be empty")
	}
	switch in.Type {
	case models.MemoryEpisodic, models.MemorySemantic:
	default:
		return nil, fmt.Errorf("unknown memory type %q", in.Type)
	}
	if in.TTLDays <= 0 {
		in.TTLDays = defaultTTL(in.Type)
	}
	if in.Importance < 0 {
		in.Importance = 0
	}
	if in.Importance > 1 {
		in.Importance = 1
	}

	vec, err := s.embedder.Embed(ctx, in.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to embed memory content: %w", err)
	}
	embedding.Normalize(vec)

	rec := &models.MemoryRecord{
		ID:         uuid.NewString(),
		Type:       in.Type,
		Content:    in.Content,
		Embedding:  vec,
		Importance: in.Importance,
		TTLDays:    in.TTLDays,
		Refs:       in.Refs,
		UserID:     in.UserID,
		Tags:       in.Tags,
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO memory_records
			(id, type, content, embedding, importance, ttl_days, refs, user_id, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, expires_at, accessed_at`,
		rec.ID, rec.Type, rec.Content, pgvector.NewVector(vec),
		rec.Importance, rec.TTLDays, refsOrEmpty(rec.Refs), nullable(rec.UserID), refsOrEmpty(rec.Tags))
	if err := row.Scan(&rec.CreatedAt, &rec.ExpiresAt, &rec.AccessedAt); err != nil {
		return nil, fmt.Errorf("failed to insert memory record: %w", err)
	}

	slog.Info("Stored memory record",
		"id", rec.ID, "type", rec.Type, "ttl_days", rec.TTLDays, "user_id", rec.UserID)
	return rec, nil
}

// RecallQuery selects records by similarity with optional filters.
type RecallQuery struct {
	Text    string
	Type    models.MemoryType // "" = both types
	UserID  string            // "" = all users
	Tags    []string          // any-overlap match
	MinSim  float64
	Limit   int
}

// Recall returns live records ordered by cosine similarity to the
// query text. Returned records have their access stats bumped.
func (s *Store) Recall(ctx context.Context, q RecallQuery) ([]models.RecalledRecord, error) {
	if q.Text == "" {
		return nil, fmt.Errorf("recall query text must not be empty")
	}
	if q.Limit <= 0 {
		q.Limit = DefaultRecallLimit
	}

	vec, err := s.embedder.Embed(ctx, q.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed recall query: %w", err)
	}
	embedding.Normalize(vec)

	args := []any{pgvector.NewVector(vec)}
	where := "deleted_at IS NULL AND (expires_at IS NULL OR expires_at > now())"
	if q.Type != "" {
		args = append(args, q.Type)
		where += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if q.UserID != "" {
		args = append(args, q.UserID)
		where += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if len(q.Tags) > 0 {
		args = append(args, q.Tags)
		where += fmt.Sprintf(" AND tags && $%d", len(args))
	}
	args = append(args, q.Limit)

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT id, type, content, importance, ttl_days,
		       created_at, expires_at, accessed_at, access_count,
		       refs, coalesce(user_id, ''), tags,
		       1 - (embedding <=> $1) AS similarity
		FROM memory_records
		WHERE %s
		ORDER BY embedding <=> $1
		LIMIT $%d`, where, len(args)), args...)
	if err != nil {
		return nil, fmt.Errorf("recall query failed: %w", err)
	}
	defer rows.Close()

	var out []models.RecalledRecord
	var ids []string
	for rows.Next() {
		var r models.RecalledRecord
		if err := rows.Scan(&r.ID, &r.Type, &r.Content, &r.Importance, &r.TTLDays,
			&r.CreatedAt, &r.ExpiresAt, &r.AccessedAt, &r.AccessCount,
			&r.Refs, &r.UserID, &r.Tags, &r.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan memory record: %w", err)
		}
		if r.Similarity < q.MinSim {
			continue
		}
		out = append(out, r)
		ids = append(ids, r.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(ids) > 0 {
		if _, err := s.pool.Exec(ctx, `
			UPDATE memory_records
			SET accessed_at = now(), access_count = access_count + 1
			WHERE id = ANY($1)`, ids); err != nil {
			slog.Warn("Failed to bump memory access stats", "error", err)
		}
	}
	return out, nil
}

// Get returns one live record by ID without bumping access stats.
func (s *Store) Get(ctx context.Context, id string) (*models.MemoryRecord, error) {
	var r models.MemoryRecord
	err := s.pool.QueryRow(ctx, `
		SELECT id, type, content, importance, ttl_days,
		       created_at, expires_at, accessed_at, access_count,
		       refs, coalesce(user_id, ''), tags
		FROM memory_records
		WHERE id = $1 AND deleted_at IS NULL`, id).
		Scan(&r.ID, &r.Type, &r.Content, &r.Importance, &r.TTLDays,
			&r.CreatedAt, &r.ExpiresAt, &r.AccessedAt, &r.AccessCount,
			&r.Refs, &r.UserID, &r.Tags)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load memory record: %w", err)
	}
	return &r, nil
}

// Delete soft-deletes a record. Deleting an already-deleted or unknown
// ID returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE memory_records SET deleted_at = now()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to delete memory record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CleanupExpired soft-deletes every record past its expiry and returns
// the number of records reaped. Already soft-deleted records do not
// count again.
func (s *Store) CleanupExpired(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE memory_records SET deleted_at = now()
		WHERE deleted_at IS NULL AND expires_at IS NOT NULL AND expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("memory cleanup failed: %w", err)
	}
	return tag.RowsAffected(), nil
}

func defaultTTL(t models.MemoryType) int {
	if t == models.MemorySemantic {
		return models.DefaultSemanticTTLDays
	}
	return models.DefaultEpisodicTTLDays
}

func refsOrEmpty(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
