package ops

import (
	"context"

	"github.com/errsolve/errsolve/internal/config"
	"github.com/errsolve/errsolve/internal/db"
	"github.com/errsolve/errsolve/internal/errors"
	"github.com/errsolve/errsolve/internal/remote"
	"github.com/errsolve/errsolve/internal/sync"
)

// HealthOutput reports store integrity plus ambient state useful when
// diagnosing a broken install.
type HealthOutput struct {
	OK           bool     `json:"ok"`
	Issues       []string `json:"issues,omitempty"`
	Count        int      `json:"count"`
	IndexedTerms bool     `json:"indexedTerms"`
	RemoteMode   bool     `json:"remoteMode"`
}

// HealthCheck validates the schema and reports record count without
// mutating anything.
func HealthCheck(ctx context.Context, env *Env) (*HealthOutput, error) {
	report, err := db.Health(ctx, env.DB)
	if err != nil {
		return nil, err
	}

	var indexed int
	// Best effort: an empty index on a populated store is worth surfacing
	// even though queries rebuild it lazily.
	if err := env.DB.QueryRow(`SELECT COUNT(*) FROM inverted_index`).Scan(&indexed); err != nil {
		report.Issues = append(report.Issues, "inverted_index unreadable: "+err.Error())
		report.OK = false
	}

	return &HealthOutput{
		OK:           report.OK,
		Issues:       report.Issues,
		Count:        report.Count,
		IndexedTerms: indexed > 0,
		RemoteMode:   env.Remote != nil,
	}, nil
}

// PushInput contains parameters for the Push operation.
type PushInput struct {
	Force           bool `json:"force,omitempty"`
	DryRun          bool `json:"dryRun,omitempty"`
	ContinueOnError bool `json:"continueOnError,omitempty"`
}

// Push uploads unsynced local records to the configured remote.
func Push(ctx context.Context, env *Env, input PushInput) (*sync.PushResult, error) {
	var up sync.Uploader
	if env.Remote != nil {
		up = env.Remote
	} else if rc := env.Cfg.ResolveRemote("", ""); rc != nil {
		up = remote.NewClient(rc.BaseURL, rc.APIKey)
	} else {
		return nil, errors.NewInvalidRequest("push requires a configured remote (set " + config.EnvRemoteAPIKey + " or a remote URL)")
	}
	return sync.Push(ctx, env.DB, up, env.BaseDir, sync.PushOptions{
		Force:           input.Force,
		DryRun:          input.DryRun,
		ContinueOnError: input.ContinueOnError,
		Concurrency:     env.Cfg.SyncConcurrency,
	})
}
