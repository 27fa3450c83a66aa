package ops

import (
	"context"

	"github.com/errsolve/errsolve/internal/db"
	"github.com/errsolve/errsolve/internal/embed"
	"github.com/errsolve/errsolve/internal/errors"
)

// ReindexOutput summarizes an index rebuild.
type ReindexOutput struct {
	Records    int `json:"records"`
	Reembedded int `json:"reembedded"`
}

// Reindex rebuilds the lexical index from stored records and backfills
// embeddings for records that have none. Records saved before an
// embedding-model change keep their old vectors; only missing ones are
// filled in.
func Reindex(ctx context.Context, env *Env) (*ReindexOutput, error) {
	if err := db.RebuildSparseIndex(env.DB); err != nil {
		return nil, err
	}

	total, err := db.Count(env.DB)
	if err != nil {
		return nil, err
	}
	out := &ReindexOutput{Records: total}

	missing, err := db.ListMissingEmbeddings(env.DB)
	if err != nil {
		return nil, err
	}
	if len(missing) == 0 {
		return out, nil
	}

	texts := make([]string, len(missing))
	for i, rec := range missing {
		texts[i] = rec.EmbeddingText()
	}
	vecs, err := embed.Batch(ctx, env.Embedder, texts)
	if err != nil {
		return nil, errors.NewEmbeddingUnavailable(err)
	}

	for i, rec := range missing {
		if err := db.UpdateEmbedding(env.DB, rec.ID, vecs[i]); err != nil {
			return nil, err
		}
		out.Reembedded++
	}
	return out, nil
}
