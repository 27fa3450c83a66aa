package db

import (
	"database/sql"
	"math"
	"sort"

	"github.com/errsolve/errsolve/internal/errors"
	"github.com/errsolve/errsolve/internal/solution"
)

// BM25 parameters.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// ScoredID is a record id with its raw BM25 score.
type ScoredID struct {
	ID    string
	Score float64
}

// updateSparseIndexTx recomputes the postings and doc stat for one record
// inside an existing transaction. Always delete-then-reinsert; postings are
// never patched in place.
func updateSparseIndexTx(tx *sql.Tx, s *solution.Solution) error {
	counts, docLength := solution.TermCounts(s.IndexableText())

	if _, err := tx.Exec(`DELETE FROM inverted_index WHERE solution_id = ?`, s.ID); err != nil {
		return errors.NewInternal(err)
	}
	if _, err := tx.Exec(`DELETE FROM solution_stats WHERE solution_id = ?`, s.ID); err != nil {
		return errors.NewInternal(err)
	}

	for term, freq := range counts {
		if _, err := tx.Exec(
			`INSERT INTO inverted_index (term, solution_id, term_freq) VALUES (?, ?, ?)`,
			term, s.ID, freq,
		); err != nil {
			return errors.NewInternal(err)
		}
	}
	if _, err := tx.Exec(
		`INSERT INTO solution_stats (solution_id, doc_length) VALUES (?, ?)`,
		s.ID, docLength,
	); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// EnsureSparseIndex rebuilds the lexical index from the solutions table if
// it is empty. Covers records inserted before the index existed (schema
// upgrades) and recovery after an index wipe.
func EnsureSparseIndex(database *sql.DB) error {
	var count int
	if err := database.QueryRow(`SELECT COUNT(*) FROM inverted_index`).Scan(&count); err != nil {
		return errors.NewIndexCorrupt(err)
	}
	if count > 0 {
		return nil
	}
	return RebuildSparseIndex(database)
}

// RebuildSparseIndex recomputes every record's postings and doc stats from
// scratch. Each record is rebuilt in its own transaction so a crash leaves
// at worst a partially rebuilt (still consistent per record) index.
func RebuildSparseIndex(database *sql.DB) error {
	// Large enough for any realistic personal knowledge base.
	all, err := List(database, 1<<20, 0)
	if err != nil {
		return err
	}

	for _, s := range all {
		tx, err := database.Begin()
		if err != nil {
			return errors.NewInternal(err)
		}
		if err := updateSparseIndexTx(tx, s); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return errors.NewInternal(err)
		}
	}
	return nil
}

// SearchSparse runs Okapi BM25 over the inverted index for the given query
// and returns up to limit record ids sorted by descending score. Records
// matching no query term are excluded. The index is lazily rebuilt if empty.
func SearchSparse(database *sql.DB, query string, limit int) ([]ScoredID, error) {
	if err := EnsureSparseIndex(database); err != nil {
		return nil, err
	}

	terms := solution.Tokenize(query)
	if len(terms) == 0 {
		return nil, nil
	}

	docLengths, err := loadDocLengths(database)
	if err != nil {
		return nil, err
	}
	totalDocs := len(docLengths)
	if totalDocs == 0 {
		return nil, nil
	}

	var lengthSum float64
	for _, l := range docLengths {
		lengthSum += float64(l)
	}
	avgDocLength := lengthSum / float64(totalDocs)

	scores := make(map[string]float64)
	for _, term := range terms {
		var df int
		err := database.QueryRow(
			`SELECT COUNT(*) FROM inverted_index WHERE term = ?`, term,
		).Scan(&df)
		if err != nil {
			return nil, errors.NewIndexCorrupt(err)
		}
		if df == 0 {
			continue
		}

		idf := math.Log(1 + (float64(totalDocs)-float64(df)+0.5)/(float64(df)+0.5))

		rows, err := database.Query(
			`SELECT solution_id, term_freq FROM inverted_index WHERE term = ?`, term,
		)
		if err != nil {
			return nil, errors.NewIndexCorrupt(err)
		}
		for rows.Next() {
			var id string
			var tf int
			if err := rows.Scan(&id, &tf); err != nil {
				rows.Close()
				return nil, errors.NewIndexCorrupt(err)
			}
			docLen := docLengths[id]
			if docLen == 0 {
				docLen = 1
			}

			norm := float64(tf) * (bm25K1 + 1)
			denom := float64(tf) + bm25K1*(1-bm25B+bm25B*float64(docLen)/avgDocLength)
			scores[id] += idf * norm / denom
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, errors.NewIndexCorrupt(err)
		}
		rows.Close()
	}

	ranked := make([]ScoredID, 0, len(scores))
	for id, score := range scores {
		ranked = append(ranked, ScoredID{ID: id, Score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ID < ranked[j].ID
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// loadDocLengths reads the full doc-stats table into memory. Doubles as the
// corpus size (one stat row per indexed record).
func loadDocLengths(database *sql.DB) (map[string]int, error) {
	rows, err := database.Query(`SELECT solution_id, doc_length FROM solution_stats`)
	if err != nil {
		return nil, errors.NewIndexCorrupt(err)
	}
	defer rows.Close()

	lengths := make(map[string]int)
	for rows.Next() {
		var id string
		var l int
		if err := rows.Scan(&id, &l); err != nil {
			return nil, errors.NewIndexCorrupt(err)
		}
		if l < 1 {
			l = 1
		}
		lengths[id] = l
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewIndexCorrupt(err)
	}
	return lengths, nil
}

// PostingCount returns the number of posting rows referencing id.
// Used by tests and the delete-completeness check.
func PostingCount(database *sql.DB, id string) (int, error) {
	var postings int
	if err := database.QueryRow(
		`SELECT COUNT(*) FROM inverted_index WHERE solution_id = ?`, id,
	).Scan(&postings); err != nil {
		return 0, errors.NewInternal(err)
	}
	var stats int
	if err := database.QueryRow(
		`SELECT COUNT(*) FROM solution_stats WHERE solution_id = ?`, id,
	).Scan(&stats); err != nil {
		return 0, errors.NewInternal(err)
	}
	return postings + stats, nil
}
