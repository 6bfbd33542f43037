package kb

import (
	"context"

	"github.com/seq2func/seq2func/internals/schemas"
)

// SavePaperResults upserts screened search results, keyed by gene
// symbol and PMID so re-running a search refreshes existing rows.
func (s *Store) SavePaperResults(ctx context.Context, results []schemas.PaperResult) error {
	if len(results) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO papers (gene_id, gene_symbol, pmid, title, year, journal, score, relevant, reasoning, modification_effects, longevity_association, search_date, url)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(gene_symbol, pmid) DO UPDATE SET
	score = excluded.score,
	relevant = excluded.relevant,
	reasoning = excluded.reasoning,
	modification_effects = excluded.modification_effects,
	longevity_association = excluded.longevity_association,
	search_date = excluded.search_date
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, result := range results {
		var geneID any
		if result.GeneID != nil {
			geneID = *result.GeneID
		}
		relevant := 0
		if result.Relevant {
			relevant = 1
		}
		_, err := stmt.ExecContext(ctx, geneID, result.GeneSymbol, result.PMID, result.Title, result.Year, result.Journal, result.Score, relevant, result.Reasoning, result.ModificationEffects, result.LongevityAssociation, result.SearchDate, result.URL)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// PapersForGene returns stored search results for a gene symbol, best
// score first.
func (s *Store) PapersForGene(ctx context.Context, geneSymbol string) ([]schemas.PaperResult, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT gene_id, gene_symbol, pmid, title, year, journal, score, relevant, reasoning, modification_effects, longevity_association, search_date, url
FROM papers
WHERE gene_symbol = ? COLLATE NOCASE
ORDER BY score DESC
`, geneSymbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []schemas.PaperResult
	for rows.Next() {
		var result schemas.PaperResult
		var geneID *int
		var relevant int
		if err := rows.Scan(&geneID, &result.GeneSymbol, &result.PMID, &result.Title, &result.Year, &result.Journal, &result.Score, &relevant, &result.Reasoning, &result.ModificationEffects, &result.LongevityAssociation, &result.SearchDate, &result.URL); err != nil {
			return nil, err
		}
		result.GeneID = geneID
		result.Relevant = relevant == 1
		results = append(results, result)
	}
	return results, rows.Err()
}
