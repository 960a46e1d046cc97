package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/newslens/newslens/pkg/budget"
	"github.com/newslens/newslens/pkg/config"
	"github.com/newslens/newslens/pkg/models"
)

// Retriever runs the hybrid retrieval algorithm. It is process-wide
// and stateless per request; the ledger passed to Retrieve scopes the
// optional rerank call.
type Retriever struct {
	lexical  LexicalSearcher
	vector   VectorSearcher
	reranker Reranker // nil disables reranking regardless of Query.UseRerank
	cache    *Cache   // nil disables caching

	now func() time.Time
}

// NewRetriever wires the two search arms with an optional reranker and cache.
func NewRetriever(lexical LexicalSearcher, vector VectorSearcher, reranker Reranker, cache *Cache) *Retriever {
	return &Retriever{
		lexical:  lexical,
		vector:   vector,
		reranker: reranker,
		cache:    cache,
		now:      time.Now,
	}
}

// Retrieve returns at most q.KFinal documents with no duplicate
// article IDs, deterministically ordered. Auto-recovery (window
// expansion, filter relaxation) lives one level up in the context
// builder; Retrieve answers exactly the query it was given.
func (r *Retriever) Retrieve(ctx context.Context, q Query, ledger *budget.Ledger) ([]models.Document, error) {
	if q.KFinal < MinKFinal || q.KFinal > MaxKFinal {
		return nil, fmt.Errorf("k_final must be in [%d,%d], got %d", MinKFinal, MaxKFinal, q.KFinal)
	}
	window, ok := config.ParseWindow(q.Window)
	if !ok {
		return nil, fmt.Errorf("unknown window %q", q.Window)
	}

	if r.cache != nil {
		if docs, ok := r.cache.Get(ctx, q); ok {
			return docs, nil
		}
	}

	now := r.now().UTC()
	filter := Filter{
		Since: now.Add(-window),
		Until: now,
		Limit: candidateLimit,
	}
	if q.Language != "" && q.Language != "auto" {
		filter.Language = models.NormalizeLanguage(q.Language)
	}
	if len(q.Sources) > 0 {
		filter.Sources = q.Sources
	}

	// Both arms run concurrently over the pre-filtered corpus. An arm
	// without a usable index degrades to the other arm's ranking.
	var lexDocs, vecDocs []models.Document
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		docs, err := r.lexical.SearchLexical(gctx, q.Text, filter)
		if err != nil {
			if errors.Is(err, ErrIndexUnavailable) {
				slog.Warn("Lexical index unavailable, using vector ranks only")
				return nil
			}
			return fmt.Errorf("lexical search failed: %w", err)
		}
		lexDocs = docs
		return nil
	})
	g.Go(func() error {
		docs, err := r.vector.SearchVector(gctx, q.Text, filter)
		if err != nil {
			if errors.Is(err, ErrIndexUnavailable) {
				slog.Warn("Vector index unavailable, using lexical ranks only")
				return nil
			}
			return fmt.Errorf("vector search failed: %w", err)
		}
		vecDocs = docs
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := FuseRRF(lexDocs, vecDocs)
	if len(fused) > candidateLimit {
		fused = fused[:candidateLimit]
	}

	if q.UseRerank && r.reranker != nil && len(fused) > 1 {
		reranked, err := r.reranker.Rerank(ctx, q.Text, fused, ledger)
		if err != nil {
			// Reranking is best-effort; fused order stands.
			slog.Warn("Rerank failed, keeping fused order", "error", err)
			if ledger != nil {
				ledger.AddWarning("rerank_failed")
			}
		} else {
			fused = reranked
		}
	}

	result := Dedup(fused)
	if len(result) > q.KFinal {
		result = result[:q.KFinal]
	}
	for i := range result {
		result[i] = models.NormalizeDocument(result[i], now)
	}

	if r.cache != nil && len(result) > 0 {
		r.cache.Put(ctx, q, result)
	}
	return result, nil
}
