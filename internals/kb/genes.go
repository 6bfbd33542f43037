package kb

import (
	"context"
	"database/sql"
	"errors"
)

func (s *Store) ListGenes(ctx context.Context) ([]GeneSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT
	g.gene_id,
	g.gene_symbol,
	g.hgnc_symbol,
	g.gene_name,
	COUNT(DISTINCT p.protein_id) AS protein_count,
	COUNT(DISTINCT pt.ptm_uid) AS ptm_count,
	CASE WHEN la.gene_id IS NOT NULL THEN 1 ELSE 0 END AS has_longevity_data
FROM genes g
LEFT JOIN proteins p ON g.gene_id = p.gene_id
LEFT JOIN ptms pt ON p.protein_id = pt.protein_id
LEFT JOIN longevity_association la ON g.gene_id = la.gene_id
GROUP BY g.gene_id
ORDER BY g.gene_symbol
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []GeneSummary
	for rows.Next() {
		var summary GeneSummary
		var hasLongevity int
		if err := rows.Scan(&summary.GeneID, &summary.GeneSymbol, &summary.ApprovedSymbol, &summary.GeneName, &summary.ProteinCount, &summary.PTMCount, &hasLongevity); err != nil {
			return nil, err
		}
		summary.HasLongevityData = hasLongevity == 1
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

func (s *Store) SearchGenes(ctx context.Context, query string, limit int) ([]GeneSummary, error) {
	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
SELECT
	g.gene_id,
	g.gene_symbol,
	g.hgnc_symbol,
	g.gene_name,
	COUNT(DISTINCT p.protein_id) AS protein_count,
	COUNT(DISTINCT pt.ptm_uid) AS ptm_count,
	CASE WHEN la.gene_id IS NOT NULL THEN 1 ELSE 0 END AS has_longevity_data
FROM genes g
LEFT JOIN proteins p ON g.gene_id = p.gene_id
LEFT JOIN ptms pt ON p.protein_id = pt.protein_id
LEFT JOIN longevity_association la ON g.gene_id = la.gene_id
WHERE g.gene_symbol LIKE ? COLLATE NOCASE
	OR g.hgnc_symbol LIKE ? COLLATE NOCASE
	OR g.gene_name LIKE ? COLLATE NOCASE
	OR g.gene_aliases LIKE ? COLLATE NOCASE
GROUP BY g.gene_id
ORDER BY g.gene_symbol
LIMIT ?
`, pattern, pattern, pattern, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []GeneSummary
	for rows.Next() {
		var summary GeneSummary
		var hasLongevity int
		if err := rows.Scan(&summary.GeneID, &summary.GeneSymbol, &summary.ApprovedSymbol, &summary.GeneName, &summary.ProteinCount, &summary.PTMCount, &hasLongevity); err != nil {
			return nil, err
		}
		summary.HasLongevityData = hasLongevity == 1
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

func (s *Store) GetGeneByID(ctx context.Context, geneID string) (*Gene, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT
	g.gene_id, g.gene_symbol, g.hgnc_symbol, g.gene_name, g.hgnc_id,
	g.ncbi_gene_id, g.gene_aliases, g.dna_sequence_length,
	la.confidence_level, la.evidence
FROM genes g
LEFT JOIN longevity_association la ON g.gene_id = la.gene_id
WHERE g.gene_id = ?
`, geneID)

	var gene Gene
	var ncbiID, dnaLength sql.NullInt64
	var aliases, confidence, evidence sql.NullString
	if err := row.Scan(&gene.GeneID, &gene.GeneSymbol, &gene.ApprovedSymbol, &gene.GeneName, &gene.HGNCID, &ncbiID, &aliases, &dnaLength, &confidence, &evidence); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	gene.NCBIGeneID = nullableInt(ncbiID)
	gene.DNASequenceLength = nullableInt(dnaLength)
	gene.Aliases = decodeStringList(aliases)
	gene.LongevityAssociation = buildLongevity(confidence, evidence)

	proteins, err := s.GetProteinsByGeneID(ctx, geneID)
	if err != nil {
		return nil, err
	}
	gene.Proteins = proteins
	return &gene, nil
}

// GetGeneBySymbol resolves a gene by symbol, approved symbol or alias,
// case-insensitively.
func (s *Store) GetGeneBySymbol(ctx context.Context, symbol string) (*Gene, error) {
	geneID, err := s.resolveGeneID(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return s.GetGeneByID(ctx, geneID)
}

func (s *Store) resolveGeneID(ctx context.Context, symbol string) (string, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT gene_id FROM genes
WHERE gene_symbol = ? COLLATE NOCASE
	OR hgnc_symbol = ? COLLATE NOCASE
	OR gene_aliases LIKE '%"' || ? || '"%' COLLATE NOCASE
LIMIT 1
`, symbol, symbol, symbol)

	var geneID string
	if err := row.Scan(&geneID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return geneID, nil
}

func buildLongevity(confidence, evidence sql.NullString) *LongevityAssociation {
	if !confidence.Valid && !evidence.Valid {
		return nil
	}
	association := &LongevityAssociation{
		ConfidenceLevel:    confidence.String,
		FunctionalClusters: []string{},
		AgingMechanisms:    []string{},
		CommentCauses:      []string{},
	}
	payload := decodeEvidence(evidence)
	if payload == nil {
		return association
	}
	if change, ok := payload["expression_change"].(float64); ok {
		converted := int(change)
		association.ExpressionChange = &converted
	}
	association.FunctionalClusters = anyToStrings(payload["functional_clusters"])
	association.AgingMechanisms = anyToStrings(payload["aging_mechanisms"])
	association.CommentCauses = anyToStrings(payload["comment_causes"])
	return association
}

func anyToStrings(value any) []string {
	items, ok := value.([]any)
	if !ok {
		return []string{}
	}
	strings := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			strings = append(strings, s)
		}
	}
	return strings
}
