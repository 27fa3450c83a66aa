package ops

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/errsolve/errsolve/internal/db"
	"github.com/errsolve/errsolve/internal/embed"
	"github.com/errsolve/errsolve/internal/errors"
	"github.com/errsolve/errsolve/internal/solution"
	"github.com/errsolve/errsolve/internal/vector"
)

// Search modes.
const (
	ModeHybrid   = "hybrid"
	ModeSparse   = "sparse"
	ModeSemantic = "semantic"
)

// minCoarseLimit floors the lexical fan-out feeding the dense re-rank.
const minCoarseLimit = 200

// SearchInput contains parameters for the Search operation.
type SearchInput struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
	Mode  string `json:"mode,omitempty"`
}

// SearchOutput contains ranked results plus the strategy that produced
// them. Strategy differs from the requested mode when the ladder degraded.
type SearchOutput struct {
	Results  []solution.SearchResult `json:"results"`
	Total    int                     `json:"total"`
	Mode     string                  `json:"mode"`
	Strategy string                  `json:"strategy"`
}

// strategy is one rung of the degradation ladder: tried in order, first
// success wins, failures are logged and the next rung runs.
type strategy struct {
	name string
	run  func() ([]solution.SearchResult, error)
}

// Search ranks records against a query. Mode selects the primary ranking
// pass; every mode degrades to a substring match over indexable fields
// before reporting failure, so a broken index or unreachable embedding
// service costs quality, not availability.
func Search(ctx context.Context, env *Env, input SearchInput) (*SearchOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, errors.NewInvalidRequest("query is required")
	}
	limit := clampLimit(input.Limit, DefaultSearchLimit, MaxSearchLimit)

	mode := input.Mode
	if mode == "" {
		mode = ModeHybrid
	}
	if mode != ModeHybrid && mode != ModeSparse && mode != ModeSemantic {
		return nil, errors.NewInvalidRequest("mode must be one of: hybrid, sparse, semantic")
	}

	if env.Remote != nil {
		results, err := env.Remote.Search(ctx, query, limit, mode)
		if err != nil {
			return nil, err
		}
		return &SearchOutput{Results: results, Total: len(results), Mode: mode, Strategy: "remote"}, nil
	}

	like := strategy{"like", func() ([]solution.SearchResult, error) {
		return db.SearchLike(env.DB, query, limit)
	}}

	var ladder []strategy
	switch mode {
	case ModeHybrid:
		ladder = []strategy{
			{"hybrid", func() ([]solution.SearchResult, error) {
				return searchHybrid(ctx, env, query, limit)
			}},
			{"sparse", func() ([]solution.SearchResult, error) {
				return searchSparse(env, query, limit)
			}},
			like,
		}
	case ModeSparse:
		ladder = []strategy{
			{"sparse", func() ([]solution.SearchResult, error) {
				return searchSparse(env, query, limit)
			}},
			like,
		}
	case ModeSemantic:
		ladder = []strategy{
			{"semantic", func() ([]solution.SearchResult, error) {
				return searchSemantic(ctx, env, query, limit)
			}},
			like,
		}
	}

	var lastErr error
	for _, st := range ladder {
		results, err := st.run()
		if err == nil {
			return &SearchOutput{Results: results, Total: len(results), Mode: mode, Strategy: st.name}, nil
		}
		lastErr = err
		slog.Warn("search strategy failed", "strategy", st.name, "error", err)
	}
	return nil, lastErr
}

// searchHybrid fuses a BM25 coarse pass with a dense re-rank restricted to
// the lexical candidates. With no lexical candidates at all it degrades to
// an unrestricted dense pass.
func searchHybrid(ctx context.Context, env *Env, query string, limit int) ([]solution.SearchResult, error) {
	coarse := limit * 5
	if coarse < minCoarseLimit {
		coarse = minCoarseLimit
	}

	sparse, err := db.SearchSparse(env.DB, query, coarse)
	if err != nil {
		return nil, err
	}
	if len(sparse) == 0 {
		return searchSemantic(ctx, env, query, limit)
	}

	ids := make([]string, len(sparse))
	sparseScore := make(map[string]float64, len(sparse))
	maxSparse := 0.0
	for i, hit := range sparse {
		ids[i] = hit.ID
		sparseScore[hit.ID] = hit.Score
		if hit.Score > maxSparse {
			maxSparse = hit.Score
		}
	}
	if maxSparse == 0 {
		maxSparse = 1
	}

	records, err := db.GetByIDs(env.DB, ids)
	if err != nil {
		return nil, err
	}

	queryVec, err := env.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, errors.NewEmbeddingUnavailable(err)
	}
	queryNorm := vector.Norm(queryVec)

	type fused struct {
		rec    *solution.Solution
		score  float64
		sparse float64
	}
	results := make([]fused, 0, len(records))
	for _, rec := range records {
		dense := 0.0
		if len(rec.Embedding) > 0 {
			dense = vector.CosineWithNorm(queryVec, queryNorm, rec.Embedding)
		}
		norm := sparseScore[rec.ID] / maxSparse
		results = append(results, fused{
			rec:    rec,
			score:  env.Cfg.DenseWeight*dense + env.Cfg.SparseWeight*norm,
			sparse: norm,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].rec.ID < results[j].rec.ID
	})
	if len(results) > limit {
		results = results[:limit]
	}

	out := make([]solution.SearchResult, len(results))
	for i, f := range results {
		out[i] = solution.SearchResult{
			ID:         f.rec.ID,
			Title:      f.rec.Title,
			ErrorType:  f.rec.ErrorType,
			Tags:       f.rec.Tags,
			CreatedAt:  f.rec.CreatedAt,
			Similarity: f.score,
			Score:      f.sparse,
			Preview:    solution.Preview(f.rec.ErrorMessage, f.rec.Context),
		}
	}
	return out, nil
}

// searchSparse ranks by BM25 alone.
func searchSparse(env *Env, query string, limit int) ([]solution.SearchResult, error) {
	hits, err := db.SearchSparse(env.DB, query, limit)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]string, len(hits))
	scores := make(map[string]float64, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
		scores[h.ID] = h.Score
	}

	records, err := db.GetByIDs(env.DB, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*solution.Solution, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
	}

	out := make([]solution.SearchResult, 0, len(hits))
	for _, h := range hits {
		rec, ok := byID[h.ID]
		if !ok {
			continue
		}
		out = append(out, solution.SearchResult{
			ID:        rec.ID,
			Title:     rec.Title,
			ErrorType: rec.ErrorType,
			Tags:      rec.Tags,
			CreatedAt: rec.CreatedAt,
			Score:     h.Score,
			Preview:   solution.Preview(rec.ErrorMessage, rec.Context),
		})
	}
	return out, nil
}

// searchSemantic ranks by cosine similarity over all embedding-bearing
// records. With zero embedded records it reports an error so the ladder
// can fall through to a lexical pass.
func searchSemantic(ctx context.Context, env *Env, query string, limit int) ([]solution.SearchResult, error) {
	rows, err := db.EmbeddingRows(env.DB, nil)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.NewInvalidRequest("no records carry an embedding")
	}

	queryVec, err := env.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, errors.NewEmbeddingUnavailable(err)
	}
	return RankByVector(env, queryVec, rows, limit)
}

// RankByVector scores embedding rows against a caller-supplied query
// vector and returns the top matches. Exposed so callers holding a
// precomputed vector can skip the embedding call.
func RankByVector(env *Env, queryVec []float32, rows []db.EmbeddingRow, limit int) ([]solution.SearchResult, error) {
	queryNorm := vector.Norm(queryVec)

	type scored struct {
		row db.EmbeddingRow
		sim float64
	}
	results := make([]scored, 0, len(rows))
	var buf []float32
	for _, row := range rows {
		vec, err := vector.DecodeInto(buf, row.Embedding)
		if err != nil {
			return nil, errors.NewIndexCorrupt(err)
		}
		buf = vec
		results = append(results, scored{row: row, sim: vector.CosineWithNorm(queryVec, queryNorm, vec)})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].sim != results[j].sim {
			return results[i].sim > results[j].sim
		}
		return results[i].row.ID < results[j].row.ID
	})
	if len(results) > limit {
		results = results[:limit]
	}

	out := make([]solution.SearchResult, len(results))
	for i, r := range results {
		out[i] = solution.SearchResult{
			ID:         r.row.ID,
			Title:      r.row.Title,
			ErrorType:  solution.ErrorType(r.row.ErrorType),
			Tags:       r.row.Tags,
			CreatedAt:  r.row.CreatedAt,
			Similarity: r.sim,
			Preview:    solution.Preview(r.row.ErrorMessage, r.row.Context),
		}
	}
	return out, nil
}

// SearchByVector ranks all embedded records against an externally
// computed query vector. The vector must match the store's embedding
// dimension.
func SearchByVector(ctx context.Context, env *Env, queryVec []float32, limit int) ([]solution.SearchResult, error) {
	if len(queryVec) == 0 {
		return nil, errors.NewInvalidRequest("query vector is required")
	}
	if len(queryVec) != embed.Dimension {
		return nil, errors.NewInvalidRequest(fmt.Sprintf(
			"query vector has %d dimensions, want %d", len(queryVec), embed.Dimension))
	}
	limit = clampLimit(limit, DefaultSearchLimit, MaxSearchLimit)
	rows, err := db.EmbeddingRows(env.DB, nil)
	if err != nil {
		return nil, err
	}
	return RankByVector(env, queryVec, rows, limit)
}
