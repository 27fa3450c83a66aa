package sync

import (
	"context"
	"database/sql"
	"fmt"
	stdsync "sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/errsolve/errsolve/internal/db"
	"github.com/errsolve/errsolve/internal/solution"
)

type fakeUploader struct {
	mu     stdsync.Mutex
	saved  []string
	failOn map[string]bool
}

func (f *fakeUploader) Save(_ context.Context, s *solution.Solution) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn[s.ID] {
		return "", fmt.Errorf("upload rejected")
	}
	f.saved = append(f.saved, s.ID)
	return "srv-" + s.ID, nil
}

func seedRecords(t *testing.T, n int) (*sql.DB, string) {
	t.Helper()
	baseDir := t.TempDir()
	database, err := db.Init(baseDir)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	for i := 0; i < n; i++ {
		s := &solution.Solution{
			ID:           fmt.Sprintf("01PUSH%04d", i),
			Title:        fmt.Sprintf("Timeout waiting on lock %d", i),
			ErrorMessage: "context deadline exceeded",
			ErrorType:    "timeout",
			RootCause:    "lock held across network call",
			Solution:     "move the call outside the critical section",
			CreatedAt:    fmt.Sprintf("2026-08-30T12:00:%02dZ", i),
		}
		require.NoError(t, db.Insert(database, s))
	}
	return database, baseDir
}

func TestPush_UploadsAllNewRecords(t *testing.T) {
	database, baseDir := seedRecords(t, 5)
	up := &fakeUploader{}

	res, err := Push(context.Background(), database, up, baseDir, PushOptions{})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 5, res.Pushed)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, 0, res.Failed)
	assert.Len(t, up.saved, 5)
	assert.NotEmpty(t, res.RunID)

	m, err := LoadMap(baseDir)
	require.NoError(t, err)
	assert.Len(t, m.Entries, 5)
	remoteIDs := make(map[string]bool)
	for _, e := range m.Entries {
		remoteIDs[e.RemoteID] = true
	}
	assert.True(t, remoteIDs["srv-01PUSH0000"])
}

func TestPush_SkipsUnchangedRecords(t *testing.T) {
	database, baseDir := seedRecords(t, 3)
	up := &fakeUploader{}

	_, err := Push(context.Background(), database, up, baseDir, PushOptions{})
	require.NoError(t, err)

	res, err := Push(context.Background(), database, up, baseDir, PushOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Pushed)
	assert.Equal(t, 3, res.Skipped)
	assert.Len(t, up.saved, 3)
}

func TestPush_ForceReuploads(t *testing.T) {
	database, baseDir := seedRecords(t, 3)
	up := &fakeUploader{}

	_, err := Push(context.Background(), database, up, baseDir, PushOptions{})
	require.NoError(t, err)

	res, err := Push(context.Background(), database, up, baseDir, PushOptions{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Pushed)
	assert.Equal(t, 0, res.Skipped)
	assert.Len(t, up.saved, 6)
}

func TestPush_DuplicateContentUploadsOnce(t *testing.T) {
	baseDir := t.TempDir()
	database, err := db.Init(baseDir)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	// Two records identical in every hashed field, differing only in id
	// and timestamp.
	for i := 0; i < 2; i++ {
		s := &solution.Solution{
			ID:           fmt.Sprintf("01DUP%05d", i),
			Title:        "Port already in use",
			ErrorMessage: "bind: address already in use",
			ErrorType:    "network",
			RootCause:    "stale process holding the port",
			Solution:     "kill the old process before restarting",
			CreatedAt:    fmt.Sprintf("2026-08-30T13:00:%02dZ", i),
		}
		require.NoError(t, db.Insert(database, s))
	}
	up := &fakeUploader{}

	res, err := Push(context.Background(), database, up, baseDir, PushOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, res.Pushed)
	assert.Equal(t, 1, res.Skipped)
	assert.Len(t, up.saved, 1)

	m, err := LoadMap(baseDir)
	require.NoError(t, err)
	assert.Len(t, m.Entries, 1)
}

func TestPush_DryRunTouchesNothing(t *testing.T) {
	database, baseDir := seedRecords(t, 4)
	up := &fakeUploader{}

	res, err := Push(context.Background(), database, up, baseDir, PushOptions{DryRun: true})
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Equal(t, 4, res.Pushed)
	assert.Empty(t, up.saved)

	m, err := LoadMap(baseDir)
	require.NoError(t, err)
	assert.Empty(t, m.Entries)
}

func TestPush_ContinueOnErrorRecordsPartialFailure(t *testing.T) {
	database, baseDir := seedRecords(t, 5)
	up := &fakeUploader{failOn: map[string]bool{"01PUSH0002": true}}

	res, err := Push(context.Background(), database, up, baseDir, PushOptions{ContinueOnError: true})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Pushed)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "01PUSH0002", res.Failures[0].ID)
	assert.Contains(t, res.Failures[0].Error, "upload rejected")

	// Successful uploads still land in the map despite the failure.
	m, err := LoadMap(baseDir)
	require.NoError(t, err)
	assert.Len(t, m.Entries, 4)
	for _, e := range m.Entries {
		assert.NotEqual(t, "01PUSH0002", e.LocalID)
	}
}

func TestPush_StopOnFirstFailure(t *testing.T) {
	database, baseDir := seedRecords(t, 20)
	up := &fakeUploader{failOn: map[string]bool{"01PUSH0000": true}}

	res, err := Push(context.Background(), database, up, baseDir, PushOptions{Concurrency: 1})
	require.Error(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Less(t, res.Pushed, 20)

	// The map still reflects whatever succeeded before the stop.
	m, mapErr := LoadMap(baseDir)
	require.NoError(t, mapErr)
	assert.Len(t, m.Entries, res.Pushed)
}

// inFlightUploader coordinates two concurrent uploads: the slow one
// starts, then the other fails, then the slow one finishes and reports
// whether its context survived the failure.
type inFlightUploader struct {
	started chan struct{}
	failed  chan struct{}

	mu      stdsync.Mutex
	saved   []string
	ctxErrs []error
}

func (u *inFlightUploader) Save(ctx context.Context, s *solution.Solution) (string, error) {
	if s.ID == "01FLIGHT-BOOM" {
		<-u.started
		close(u.failed)
		return "", fmt.Errorf("upload rejected")
	}
	close(u.started)
	<-u.failed
	u.mu.Lock()
	defer u.mu.Unlock()
	u.ctxErrs = append(u.ctxErrs, ctx.Err())
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	u.saved = append(u.saved, s.ID)
	return "srv-" + s.ID, nil
}

func TestPush_FailureLetsInFlightUploadFinish(t *testing.T) {
	baseDir := t.TempDir()
	database, err := db.Init(baseDir)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	records := []struct{ id, title string }{
		{"01FLIGHT-SLOW", "Slow but healthy upload"},
		{"01FLIGHT-BOOM", "Upload the remote rejects"},
	}
	for i, r := range records {
		s := &solution.Solution{
			ID:           r.id,
			Title:        r.title,
			ErrorMessage: "context deadline exceeded",
			ErrorType:    "timeout",
			RootCause:    "lock held across network call",
			Solution:     "move the call outside the critical section",
			CreatedAt:    fmt.Sprintf("2026-08-30T14:00:%02dZ", i),
		}
		require.NoError(t, db.Insert(database, s))
	}

	up := &inFlightUploader{
		started: make(chan struct{}),
		failed:  make(chan struct{}),
	}
	res, err := Push(context.Background(), database, up, baseDir, PushOptions{Concurrency: 2})
	require.Error(t, err)

	// The upload already running when the other one failed completes on
	// an intact context instead of being canceled midway.
	require.Len(t, up.ctxErrs, 1)
	assert.NoError(t, up.ctxErrs[0])
	assert.Equal(t, 1, res.Pushed)
	assert.Equal(t, 1, res.Failed)

	m, mapErr := LoadMap(baseDir)
	require.NoError(t, mapErr)
	require.Len(t, m.Entries, 1)
	for _, e := range m.Entries {
		assert.Equal(t, "01FLIGHT-SLOW", e.LocalID)
	}
}

func TestPush_ChangedRecordGetsReuploaded(t *testing.T) {
	database, baseDir := seedRecords(t, 1)
	up := &fakeUploader{}

	_, err := Push(context.Background(), database, up, baseDir, PushOptions{})
	require.NoError(t, err)

	// Rekey the stored entry under a stale hash so the live record's
	// current hash no longer appears in the map, as after a content edit.
	m, err := LoadMap(baseDir)
	require.NoError(t, err)
	for hash, entry := range m.Entries {
		delete(m.Entries, hash)
		m.Entries["stale-hash"] = entry
	}
	require.NoError(t, m.Save())

	res, err := Push(context.Background(), database, up, baseDir, PushOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pushed)
}

func TestLoadMap_MissingFileIsEmpty(t *testing.T) {
	m, err := LoadMap(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, m.Entries)
}
