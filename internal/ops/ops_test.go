package ops

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/errsolve/errsolve/internal/config"
	"github.com/errsolve/errsolve/internal/db"
	"github.com/errsolve/errsolve/internal/embed"
	kberr "github.com/errsolve/errsolve/internal/errors"
)

func testEnv(t *testing.T) *Env {
	t.Helper()
	baseDir := t.TempDir()
	database, err := db.Init(baseDir)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	return &Env{
		DB:       database,
		Cfg:      config.DefaultConfig(),
		Embedder: embed.Fake{},
		BaseDir:  baseDir,
	}
}

// failEmbedder simulates an unreachable embedding service.
type failEmbedder struct{}

func (failEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, fmt.Errorf("connection refused")
}
func (failEmbedder) Dimension() int { return embed.Dimension }

func saveInput(i int) SaveInput {
	return SaveInput{
		Title:        fmt.Sprintf("Null pointer in event handler %d", i),
		ErrorMessage: "TypeError: cannot read properties of null",
		ErrorType:    "runtime",
		Context:      "clicking submit before the form mounts",
		RootCause:    "ref accessed before the component mounted",
		Solution:     "guard the ref access with a mounted check",
		Tags:         []string{"javascript", "react"},
		Environment:  map[string]string{"node": "22.1.0"},
	}
}

func TestSaveAndFetchRoundTrip(t *testing.T) {
	env := testEnv(t)
	ctx := context.Background()

	out, err := Save(ctx, env, saveInput(0))
	require.NoError(t, err)
	assert.NotEmpty(t, out.ID)
	assert.NotEmpty(t, out.CreatedAt)

	got, err := Fetch(ctx, env, out.ID)
	require.NoError(t, err)
	assert.Equal(t, "Null pointer in event handler 0", got.Title)
	assert.Equal(t, "TypeError: cannot read properties of null", got.ErrorMessage)
	assert.Equal(t, []string{"javascript", "react"}, got.Tags)
	assert.Equal(t, map[string]string{"node": "22.1.0"}, got.Environment)
	assert.Len(t, got.Embedding, embed.Dimension)
	assert.Equal(t, out.CreatedAt, got.CreatedAt)
}

func TestSaveRejectsMissingFields(t *testing.T) {
	env := testEnv(t)

	_, err := Save(context.Background(), env, SaveInput{Title: "only a title"})
	require.Error(t, err)
	assert.True(t, kberr.Is(err, kberr.ErrInvalidRequest))
}

func TestSaveRejectsUnknownErrorType(t *testing.T) {
	env := testEnv(t)
	in := saveInput(0)
	in.ErrorType = "catastrophic"

	_, err := Save(context.Background(), env, in)
	require.Error(t, err)
	assert.True(t, kberr.Is(err, kberr.ErrInvalidRequest))
}

func TestSaveFailsWhenEmbedderUnreachable(t *testing.T) {
	env := testEnv(t)
	env.Embedder = failEmbedder{}

	_, err := Save(context.Background(), env, saveInput(0))
	require.Error(t, err)
	assert.True(t, kberr.Is(err, kberr.ErrEmbeddingUnavailable))

	// No partial commit: the store stays empty.
	n, err := Count(context.Background(), env)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFetchNotFound(t *testing.T) {
	env := testEnv(t)

	_, err := Fetch(context.Background(), env, "01MISSING")
	require.Error(t, err)
	assert.True(t, kberr.Is(err, kberr.ErrNotFound))
}

func TestFetchManyOmitsAbsentIDs(t *testing.T) {
	env := testEnv(t)
	ctx := context.Background()

	a, err := Save(ctx, env, saveInput(0))
	require.NoError(t, err)
	b, err := Save(ctx, env, saveInput(1))
	require.NoError(t, err)

	got, err := FetchMany(ctx, env, []string{a.ID, "01MISSING", b.ID})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestFetchManyRejectsEmptyAndOversized(t *testing.T) {
	env := testEnv(t)
	ctx := context.Background()

	_, err := FetchMany(ctx, env, []string{" ", ""})
	assert.True(t, kberr.Is(err, kberr.ErrInvalidRequest))

	ids := make([]string, MaxFetchManyItems+1)
	for i := range ids {
		ids[i] = fmt.Sprintf("id-%d", i)
	}
	_, err = FetchMany(ctx, env, ids)
	assert.True(t, kberr.Is(err, kberr.ErrInvalidRequest))
}

func TestListPagination(t *testing.T) {
	env := testEnv(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := Save(ctx, env, saveInput(i))
		require.NoError(t, err)
	}

	page, err := List(ctx, env, ListInput{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Solutions, 2)
	assert.Equal(t, 5, page.Pagination.Total)
	assert.True(t, page.Pagination.HasMore)

	page, err = List(ctx, env, ListInput{Limit: 2, Offset: 4})
	require.NoError(t, err)
	assert.Len(t, page.Solutions, 1)
	assert.False(t, page.Pagination.HasMore)
}

func TestDeleteIsIdempotent(t *testing.T) {
	env := testEnv(t)
	ctx := context.Background()

	out, err := Save(ctx, env, saveInput(0))
	require.NoError(t, err)

	existed, err := Delete(ctx, env, out.ID)
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = Delete(ctx, env, out.ID)
	require.NoError(t, err)
	assert.False(t, existed)

	n, _ := Count(ctx, env)
	assert.Zero(t, n)
}

func TestHealthCheck(t *testing.T) {
	env := testEnv(t)
	ctx := context.Background()

	_, err := Save(ctx, env, saveInput(0))
	require.NoError(t, err)

	health, err := HealthCheck(ctx, env)
	require.NoError(t, err)
	assert.True(t, health.OK)
	assert.Empty(t, health.Issues)
	assert.Equal(t, 1, health.Count)
	assert.True(t, health.IndexedTerms)
	assert.False(t, health.RemoteMode)
}

func TestPushWithoutRemoteFails(t *testing.T) {
	t.Setenv(config.EnvRemoteURL, "")
	t.Setenv(config.EnvRemoteAPIKey, "")
	env := testEnv(t)

	_, err := Push(context.Background(), env, PushInput{})
	require.Error(t, err)
	assert.True(t, kberr.Is(err, kberr.ErrInvalidRequest))
}
