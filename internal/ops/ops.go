// Package ops implements the knowledge-base operations shared by the MCP
// server and the CLI. Each operation takes an Env carrying the store and
// collaborators, validates its input, and returns a typed output.
package ops

import (
	"crypto/rand"
	"database/sql"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/errsolve/errsolve/internal/config"
	"github.com/errsolve/errsolve/internal/embed"
	"github.com/errsolve/errsolve/internal/remote"
)

// Pagination limits
const (
	DefaultListLimit   = 20
	MaxListLimit       = 100
	DefaultSearchLimit = 5
	MaxSearchLimit     = 50
	MaxFetchManyItems  = 50
)

// Env carries the store and collaborators an operation needs. Remote is nil
// in local mode; when set, record operations route to the hosted service.
type Env struct {
	DB       *sql.DB
	Cfg      *config.Config
	Embedder embed.Embedder
	Remote   *remote.Client
	BaseDir  string
}

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
	Total   int  `json:"total"`
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// generateULID generates a new ULID.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
