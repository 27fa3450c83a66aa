package db

import (
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/errsolve/errsolve/internal/errors"
	"github.com/errsolve/errsolve/internal/solution"
)

// EmbeddingRow is the slim projection scanned during dense search: result
// metadata plus the raw embedding blob. Decoding is left to the caller so
// the scan loop can reuse a buffer.
type EmbeddingRow struct {
	ID           string
	Title        string
	ErrorType    string
	ErrorMessage string
	Context      string
	Tags         []string
	CreatedAt    string
	Embedding    []byte
}

// EmbeddingRows returns all embedding-bearing rows, optionally restricted
// to the given id set. A non-nil empty id set returns no rows.
func EmbeddingRows(database *sql.DB, ids []string) ([]EmbeddingRow, error) {
	if ids != nil && len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT id, title, error_type, error_message, context, tags_json, created_at, embedding
		FROM solutions WHERE embedding IS NOT NULL`
	var args []any
	if ids != nil {
		query += ` AND id IN (?` + strings.Repeat(",?", len(ids)-1) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}

	rows, err := database.Query(query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var result []EmbeddingRow
	for rows.Next() {
		var r EmbeddingRow
		var tagsJSON string
		if err := rows.Scan(&r.ID, &r.Title, &r.ErrorType, &r.ErrorMessage,
			&r.Context, &tagsJSON, &r.CreatedAt, &r.Embedding); err != nil {
			return nil, errors.NewInternal(err)
		}
		if err := json.Unmarshal([]byte(tagsJSON), &r.Tags); err != nil {
			return nil, errors.NewInternal(err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return result, nil
}

// likeColumns are the fields matched by the last-resort substring search.
var likeColumns = []string{
	"title", "error_message", "error_type", "context", "root_cause", "solution", "tags_json",
}

// SearchLike is the degraded-quality fallback: records whose indexable
// fields together contain every query term, newest first. Used when both
// ranking passes fail; quality is worse but it never depends on the
// inverted index or on embeddings.
func SearchLike(database *sql.DB, query string, limit int) ([]solution.SearchResult, error) {
	cleaned := strings.NewReplacer("'", "", `"`, "").Replace(query)
	terms := strings.Fields(cleaned)

	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`SELECT id, title, error_type, error_message, context, tags_json, created_at
		FROM solutions`)

	if len(terms) > 0 {
		sb.WriteString(` WHERE `)
		for i, term := range terms {
			if i > 0 {
				sb.WriteString(` AND `)
			}
			sb.WriteString(`(`)
			for j, col := range likeColumns {
				if j > 0 {
					sb.WriteString(` OR `)
				}
				sb.WriteString(col + ` LIKE ?`)
				args = append(args, "%"+term+"%")
			}
			sb.WriteString(`)`)
		}
	}

	sb.WriteString(` ORDER BY created_at DESC, id DESC LIMIT ?`)
	args = append(args, limit)

	rows, err := database.Query(sb.String(), args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var results []solution.SearchResult
	for rows.Next() {
		var (
			r            solution.SearchResult
			errorType    string
			errorMessage string
			context      string
			tagsJSON     string
		)
		if err := rows.Scan(&r.ID, &r.Title, &errorType, &errorMessage,
			&context, &tagsJSON, &r.CreatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		r.ErrorType = solution.ErrorType(errorType)
		if err := json.Unmarshal([]byte(tagsJSON), &r.Tags); err != nil {
			return nil, errors.NewInternal(err)
		}
		r.Preview = solution.Preview(errorMessage, context)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return results, nil
}
