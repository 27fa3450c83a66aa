package ops

import (
	"context"
	"strings"

	"github.com/errsolve/errsolve/internal/db"
	"github.com/errsolve/errsolve/internal/errors"
	"github.com/errsolve/errsolve/internal/solution"
)

// Fetch returns a single record by id.
func Fetch(ctx context.Context, env *Env, id string) (*solution.Solution, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}
	if env.Remote != nil {
		return env.Remote.GetByID(ctx, id)
	}
	return db.GetByID(env.DB, id)
}

// FetchMany returns multiple records in one call. Identifiers with no
// record are silently omitted; result order is not guaranteed to match
// input order.
func FetchMany(ctx context.Context, env *Env, ids []string) ([]*solution.Solution, error) {
	cleaned := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			cleaned = append(cleaned, id)
		}
	}
	if len(cleaned) == 0 {
		return nil, errors.NewInvalidRequest("at least one id is required")
	}
	if len(cleaned) > MaxFetchManyItems {
		return nil, errors.NewInvalidRequest("too many ids in one request")
	}
	if env.Remote != nil {
		return env.Remote.GetByIDs(ctx, cleaned)
	}
	return db.GetByIDs(env.DB, cleaned)
}
