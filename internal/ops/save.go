package ops

import (
	"context"
	"fmt"
	"time"

	"github.com/errsolve/errsolve/internal/db"
	"github.com/errsolve/errsolve/internal/errors"
	"github.com/errsolve/errsolve/internal/solution"
)

// SaveInput contains the caller-provided record fields. Identifier,
// timestamp, and embedding are assigned here, never by the caller.
type SaveInput struct {
	Title        string            `json:"title"`
	ErrorMessage string            `json:"errorMessage"`
	ErrorType    string            `json:"errorType"`
	Context      string            `json:"context,omitempty"`
	RootCause    string            `json:"rootCause"`
	Solution     string            `json:"solution"`
	CodeChanges  string            `json:"codeChanges,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	Labels       []string          `json:"labels,omitempty"`
	CLILibraryID string            `json:"cliLibraryId,omitempty"`
	Environment  map[string]string `json:"environment,omitempty"`
	ProjectPath  string            `json:"projectPath,omitempty"`
}

// SaveOutput contains the result of the Save operation.
type SaveOutput struct {
	ID        string `json:"id"`
	CreatedAt string `json:"createdAt"`
	Remote    bool   `json:"remote,omitempty"`
}

// Save validates the input, computes id, timestamp, and embedding, and
// persists the record with its lexical postings in one transaction. With a
// remote configured the record goes to the hosted service instead.
func Save(ctx context.Context, env *Env, input SaveInput) (*SaveOutput, error) {
	s := &solution.Solution{
		Title:        input.Title,
		ErrorMessage: input.ErrorMessage,
		ErrorType:    solution.ErrorType(input.ErrorType),
		Context:      input.Context,
		RootCause:    input.RootCause,
		Solution:     input.Solution,
		CodeChanges:  input.CodeChanges,
		Tags:         input.Tags,
		Labels:       input.Labels,
		CLILibraryID: input.CLILibraryID,
		Environment:  input.Environment,
		ProjectPath:  input.ProjectPath,
	}

	if input.ErrorType != "" && !solution.ValidErrorType(input.ErrorType) {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("unknown errorType %q", input.ErrorType))
	}
	if missing := s.Validate(); len(missing) > 0 {
		return nil, errors.NewMissingFields(missing)
	}

	if env.Remote != nil {
		id, err := env.Remote.Save(ctx, s)
		if err != nil {
			return nil, err
		}
		return &SaveOutput{ID: id, Remote: true}, nil
	}

	vec, err := env.Embedder.Embed(ctx, s.EmbeddingText())
	if err != nil {
		return nil, errors.NewEmbeddingUnavailable(err)
	}
	s.Embedding = vec

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	s.ID = id
	s.CreatedAt = time.Now().UTC().Format(time.RFC3339)

	if err := db.Insert(env.DB, s); err != nil {
		return nil, err
	}

	return &SaveOutput{ID: s.ID, CreatedAt: s.CreatedAt}, nil
}
