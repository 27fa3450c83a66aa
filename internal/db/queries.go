package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/errsolve/errsolve/internal/errors"
	"github.com/errsolve/errsolve/internal/solution"
	"github.com/errsolve/errsolve/internal/vector"
)

const solutionColumns = `id, title, error_message, error_type, context, root_cause,
	solution, code_changes, tags_json, labels_json, cli_library_id,
	environment_json, project_path, created_at, embedding`

// Insert stores a new solution together with its lexical postings and doc
// stats in a single transaction. Either all three land or none do; a crash
// mid-save can never leave the index referencing a missing record.
func Insert(database *sql.DB, s *solution.Solution) error {
	tagsJSON, err := json.Marshal(s.Tags)
	if err != nil {
		return errors.NewInternal(err)
	}

	labelsJSON, err := marshalOptionalSlice(s.Labels)
	if err != nil {
		return errors.NewInternal(err)
	}
	envJSON, err := marshalOptionalMap(s.Environment)
	if err != nil {
		return errors.NewInternal(err)
	}

	var embedding []byte
	if len(s.Embedding) > 0 {
		embedding = vector.Encode(s.Embedding)
	}

	tx, err := database.Begin()
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO solutions (
			id, title, error_message, error_type, context, root_cause,
			solution, code_changes, tags_json, labels_json, cli_library_id,
			environment_json, project_path, created_at, embedding
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.ID, s.Title, s.ErrorMessage, string(s.ErrorType), s.Context, s.RootCause,
		s.Solution, toNullString(s.CodeChanges), string(tagsJSON), labelsJSON,
		toNullString(s.CLILibraryID), envJSON, toNullString(s.ProjectPath),
		s.CreatedAt, embedding,
	)
	if err != nil {
		return errors.NewInternal(err)
	}

	if err := updateSparseIndexTx(tx, s); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetByID retrieves a solution by its ULID.
func GetByID(database *sql.DB, id string) (*solution.Solution, error) {
	row := database.QueryRow(`SELECT `+solutionColumns+` FROM solutions WHERE id = ?`, id)
	s, err := scanSolution(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return s, nil
}

// GetByIDs retrieves multiple solutions. Absent ids are silently omitted;
// result order is not guaranteed to match input order.
func GetByIDs(database *sql.DB, ids []string) ([]*solution.Solution, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `SELECT ` + solutionColumns + ` FROM solutions WHERE id IN (?` +
		strings.Repeat(",?", len(ids)-1) + `)`

	rows, err := database.Query(query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var result []*solution.Solution
	for rows.Next() {
		s, err := scanSolution(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return result, nil
}

// List returns solutions ordered by creation time, newest first. Ties on
// created_at fall back to id (ULIDs sort by creation order too).
func List(database *sql.DB, limit, offset int) ([]*solution.Solution, error) {
	rows, err := database.Query(`
		SELECT `+solutionColumns+` FROM solutions
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var result []*solution.Solution
	for rows.Next() {
		s, err := scanSolution(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return result, nil
}

// ListMissingEmbeddings returns solutions that have no stored vector,
// oldest first so a resumed backfill picks up where it stopped.
func ListMissingEmbeddings(database *sql.DB) ([]*solution.Solution, error) {
	rows, err := database.Query(`
		SELECT ` + solutionColumns + ` FROM solutions
		WHERE embedding IS NULL
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var result []*solution.Solution
	for rows.Next() {
		s, err := scanSolution(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return result, nil
}

// UpdateEmbedding stores a vector for an existing solution.
func UpdateEmbedding(database *sql.DB, id string, vec []float32) error {
	res, err := database.Exec(`UPDATE solutions SET embedding = ? WHERE id = ?`,
		vector.Encode(vec), id)
	if err != nil {
		return errors.NewInternal(err)
	}
	changes, err := res.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if changes == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

// Count returns the total number of stored solutions.
func Count(database *sql.DB) (int, error) {
	var count int
	if err := database.QueryRow(`SELECT COUNT(*) FROM solutions`).Scan(&count); err != nil {
		return 0, errors.NewInternal(err)
	}
	return count, nil
}

// Delete removes a solution, its postings, and its doc stat in a single
// transaction. Returns whether a record existed; deleting an unknown id is
// a no-op, not an error.
func Delete(database *sql.DB, id string) (bool, error) {
	tx, err := database.Begin()
	if err != nil {
		return false, errors.NewInternal(err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM solutions WHERE id = ?`, id)
	if err != nil {
		return false, errors.NewInternal(err)
	}
	if _, err := tx.Exec(`DELETE FROM inverted_index WHERE solution_id = ?`, id); err != nil {
		return false, errors.NewInternal(err)
	}
	if _, err := tx.Exec(`DELETE FROM solution_stats WHERE solution_id = ?`, id); err != nil {
		return false, errors.NewInternal(err)
	}

	changes, err := res.RowsAffected()
	if err != nil {
		return false, errors.NewInternal(err)
	}

	if err := tx.Commit(); err != nil {
		return false, errors.NewInternal(err)
	}
	return changes > 0, nil
}

// requiredColumns are the schema columns every healthy database must carry.
var requiredColumns = []string{
	"id", "title", "error_message", "error_type", "context",
	"root_cause", "solution", "tags_json", "created_at",
}

// HealthReport describes the outcome of a schema/count check.
type HealthReport struct {
	OK     bool     `json:"ok"`
	Issues []string `json:"issues,omitempty"`
	Count  int      `json:"count"`
}

// Health validates the solutions schema against requiredColumns and reports
// the record count. It never mutates state.
func Health(ctx context.Context, database *sql.DB) (*HealthReport, error) {
	rows, err := database.QueryContext(ctx, `PRAGMA table_info(solutions);`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	present := make(map[string]bool)
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return nil, errors.NewInternal(err)
		}
		present[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	var issues []string
	for _, col := range requiredColumns {
		if !present[col] {
			issues = append(issues, "missing column: "+col)
		}
	}

	count, err := Count(database)
	if err != nil {
		return nil, err
	}

	return &HealthReport{OK: len(issues) == 0, Issues: issues, Count: count}, nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanSolution.
type scanner interface {
	Scan(dest ...any) error
}

// scanSolution reads a full solution row, decoding JSON columns and the
// embedding blob.
func scanSolution(row scanner) (*solution.Solution, error) {
	var (
		s            solution.Solution
		errorType    string
		codeChanges  sql.NullString
		tagsJSON     string
		labelsJSON   sql.NullString
		cliLibraryID sql.NullString
		envJSON      sql.NullString
		projectPath  sql.NullString
		embedding    []byte
	)

	err := row.Scan(
		&s.ID, &s.Title, &s.ErrorMessage, &errorType, &s.Context, &s.RootCause,
		&s.Solution, &codeChanges, &tagsJSON, &labelsJSON, &cliLibraryID,
		&envJSON, &projectPath, &s.CreatedAt, &embedding,
	)
	if err != nil {
		return nil, err
	}

	s.ErrorType = solution.ErrorType(errorType)
	s.CodeChanges = codeChanges.String
	s.CLILibraryID = cliLibraryID.String
	s.ProjectPath = projectPath.String

	if err := json.Unmarshal([]byte(tagsJSON), &s.Tags); err != nil {
		return nil, err
	}
	if labelsJSON.Valid {
		if err := json.Unmarshal([]byte(labelsJSON.String), &s.Labels); err != nil {
			return nil, err
		}
	}
	if envJSON.Valid {
		if err := json.Unmarshal([]byte(envJSON.String), &s.Environment); err != nil {
			return nil, err
		}
	}
	if len(embedding) > 0 {
		vec, err := vector.Decode(embedding)
		if err != nil {
			return nil, err
		}
		s.Embedding = vec
	}

	return &s, nil
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func marshalOptionalSlice(v []string) (sql.NullString, error) {
	if len(v) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func marshalOptionalMap(v map[string]string) (sql.NullString, error) {
	if len(v) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
