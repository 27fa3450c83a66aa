package sync

import (
	"context"
	"database/sql"
	"log/slog"
	stdsync "sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/errsolve/errsolve/internal/db"
	"github.com/errsolve/errsolve/internal/remote"
	"github.com/errsolve/errsolve/internal/solution"
)

// DefaultConcurrency is the upload worker count when none is configured.
const DefaultConcurrency = 4

// Uploader is the remote surface Push needs. *remote.Client satisfies it.
type Uploader interface {
	Save(ctx context.Context, s *solution.Solution) (string, error)
}

var _ Uploader = (*remote.Client)(nil)

// PushOptions controls a push run.
type PushOptions struct {
	// Force re-uploads records whose content hash matches the sync map.
	Force bool
	// DryRun reports what would be pushed without uploading or touching
	// the sync map.
	DryRun bool
	// ContinueOnError keeps uploading after a failure instead of
	// stopping at the first one.
	ContinueOnError bool
	// Concurrency bounds parallel uploads; zero means DefaultConcurrency.
	Concurrency int
}

// PushFailure describes one record that could not be uploaded.
type PushFailure struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Error string `json:"error"`
}

// PushResult summarizes a push run.
type PushResult struct {
	RunID    string        `json:"runId"`
	Total    int           `json:"total"`
	Pushed   int           `json:"pushed"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	DryRun   bool          `json:"dryRun,omitempty"`
	Failures []PushFailure `json:"failures,omitempty"`
}

// Push uploads local records the remote does not have yet. Records whose
// content hash already appears in the sync map are skipped unless Force is
// set. The sync map is written back once at the end, so successes recorded
// before a failure survive it.
func Push(ctx context.Context, database *sql.DB, up Uploader, baseDir string, opts PushOptions) (*PushResult, error) {
	records, err := db.List(database, 1<<20, 0)
	if err != nil {
		return nil, err
	}

	m, err := LoadMap(baseDir)
	if err != nil {
		return nil, err
	}

	result := &PushResult{
		RunID:  uuid.NewString(),
		Total:  len(records),
		DryRun: opts.DryRun,
	}

	log := slog.With("run_id", result.RunID)
	log.Info("push started", "records", len(records), "force", opts.Force, "dry_run", opts.DryRun)

	type job struct {
		rec  *solution.Solution
		hash string
	}
	var jobs []job
	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		hash := rec.ContentHash()
		// Same-content duplicates within one run collapse to a single
		// upload; the later copies count as skipped.
		if seen[hash] {
			result.Skipped++
			continue
		}
		if _, ok := m.Entries[hash]; ok && !opts.Force {
			result.Skipped++
			continue
		}
		seen[hash] = true
		jobs = append(jobs, job{rec: rec, hash: hash})
	}

	if opts.DryRun {
		result.Pushed = len(jobs)
		log.Info("push dry run complete", "would_push", result.Pushed, "skipped", result.Skipped)
		return result, nil
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	var mu stdsync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, j := range jobs {
		g.Go(func() error {
			// A failure cancels the group, which gates jobs that have
			// not started yet. Uploads already in flight run on the
			// outer context so they finish rather than abort midway.
			if gCtx.Err() != nil {
				return nil
			}

			uploadCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()

			remoteID, err := up.Save(uploadCtx, j.rec)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				result.Failures = append(result.Failures, PushFailure{
					ID:    j.rec.ID,
					Title: j.rec.Title,
					Error: err.Error(),
				})
				log.Warn("push upload failed", "id", j.rec.ID, "error", err)
				if !opts.ContinueOnError {
					return err
				}
				return nil
			}

			m.Entries[j.hash] = Entry{
				RemoteID: remoteID,
				LocalID:  j.rec.ID,
				SyncedAt: time.Now().UTC().Format(time.RFC3339),
			}
			result.Pushed++
			return nil
		})
	}

	runErr := g.Wait()

	if err := m.Save(); err != nil {
		return result, err
	}

	log.Info("push finished",
		"pushed", result.Pushed, "skipped", result.Skipped, "failed", result.Failed)

	if runErr != nil && !opts.ContinueOnError {
		return result, runErr
	}
	return result, nil
}
