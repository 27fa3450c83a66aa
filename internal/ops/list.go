package ops

import (
	"context"
	"strings"

	"github.com/errsolve/errsolve/internal/db"
	"github.com/errsolve/errsolve/internal/errors"
	"github.com/errsolve/errsolve/internal/solution"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// ListOutput contains a page of records, newest first.
type ListOutput struct {
	Solutions  []*solution.Solution `json:"solutions"`
	Pagination Pagination           `json:"pagination"`
}

// List returns records ordered by creation time descending.
func List(ctx context.Context, env *Env, input ListInput) (*ListOutput, error) {
	limit := clampLimit(input.Limit, DefaultListLimit, MaxListLimit)
	offset := input.Offset
	if offset < 0 {
		offset = 0
	}

	records, err := db.List(env.DB, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := db.Count(env.DB)
	if err != nil {
		return nil, err
	}

	return &ListOutput{
		Solutions: records,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(records) < total,
			Total:   total,
		},
	}, nil
}

// Delete removes a record and all its derived index state. Returns whether
// a record existed; deleting an absent id is a no-op, not an error.
func Delete(ctx context.Context, env *Env, id string) (bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return false, errors.NewInvalidRequest("id is required")
	}
	if env.Remote != nil {
		return env.Remote.Delete(ctx, id)
	}
	return db.Delete(env.DB, id)
}

// Count returns the total record count.
func Count(ctx context.Context, env *Env) (int, error) {
	if env.Remote != nil {
		return env.Remote.Count(ctx)
	}
	return db.Count(env.DB)
}
