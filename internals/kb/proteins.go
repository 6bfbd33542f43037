package kb

import (
	"context"
	"database/sql"
	"errors"
)

func (s *Store) ListProteins(ctx context.Context) ([]ProteinSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT
	p.protein_id,
	p.protein_name,
	COALESCE(g.gene_symbol, ''),
	COALESCE(p.length, 0),
	COUNT(DISTINCT pt.ptm_uid) AS ptm_count,
	COUNT(DISTINCT d.domain_id) AS domain_count
FROM proteins p
LEFT JOIN genes g ON p.gene_id = g.gene_id
LEFT JOIN ptms pt ON p.protein_id = pt.protein_id
LEFT JOIN protein_domains d ON p.protein_id = d.protein_id
GROUP BY p.protein_id
ORDER BY p.protein_name
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []ProteinSummary
	for rows.Next() {
		var summary ProteinSummary
		if err := rows.Scan(&summary.ProteinID, &summary.ProteinName, &summary.GeneSymbol, &summary.SequenceLength, &summary.PTMCount, &summary.DomainCount); err != nil {
			return nil, err
		}
		summary.UniprotID = summary.ProteinID
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

func (s *Store) SearchProteins(ctx context.Context, query string, limit int) ([]ProteinSummary, error) {
	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
SELECT
	p.protein_id,
	p.protein_name,
	COALESCE(g.gene_symbol, ''),
	COALESCE(p.length, 0),
	COUNT(DISTINCT pt.ptm_uid) AS ptm_count,
	COUNT(DISTINCT d.domain_id) AS domain_count
FROM proteins p
LEFT JOIN genes g ON p.gene_id = g.gene_id
LEFT JOIN ptms pt ON p.protein_id = pt.protein_id
LEFT JOIN protein_domains d ON p.protein_id = d.protein_id
WHERE p.protein_id LIKE ? COLLATE NOCASE
	OR p.protein_name LIKE ? COLLATE NOCASE
	OR p.protein_aliases LIKE ? COLLATE NOCASE
GROUP BY p.protein_id
ORDER BY p.protein_name
LIMIT ?
`, pattern, pattern, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []ProteinSummary
	for rows.Next() {
		var summary ProteinSummary
		if err := rows.Scan(&summary.ProteinID, &summary.ProteinName, &summary.GeneSymbol, &summary.SequenceLength, &summary.PTMCount, &summary.DomainCount); err != nil {
			return nil, err
		}
		summary.UniprotID = summary.ProteinID
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

func (s *Store) GetProteinByID(ctx context.Context, proteinID string) (*Protein, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT p.protein_id, p.protein_name, p.length, p.protein_function, p.protein_aliases
FROM proteins p
WHERE p.protein_id = ?
`, proteinID)

	protein, err := scanProtein(row)
	if err != nil {
		return nil, err
	}
	if err := s.attachPTMsAndDomains(ctx, protein); err != nil {
		return nil, err
	}
	return protein, nil
}

func (s *Store) GetProteinsByGeneID(ctx context.Context, geneID string) ([]Protein, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT p.protein_id, p.protein_name, p.length, p.protein_function, p.protein_aliases
FROM proteins p
WHERE p.gene_id = ?
ORDER BY p.protein_id
`, geneID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	proteins := []Protein{}
	for rows.Next() {
		protein, err := scanProtein(rows)
		if err != nil {
			return nil, err
		}
		proteins = append(proteins, *protein)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range proteins {
		if err := s.attachPTMsAndDomains(ctx, &proteins[i]); err != nil {
			return nil, err
		}
	}
	return proteins, nil
}

// GetProteinByGeneSymbol returns the first protein of the gene matching
// the symbol, joined with gene and longevity data. This backs the
// protein detail page keyed by gene symbol.
func (s *Store) GetProteinByGeneSymbol(ctx context.Context, symbol string) (*ProteinWithGene, error) {
	geneID, err := s.resolveGeneID(ctx, symbol)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
SELECT
	p.protein_id, p.protein_name, p.length, p.protein_function, p.protein_aliases,
	g.gene_id, g.gene_symbol, g.hgnc_symbol, g.gene_name, g.hgnc_id,
	g.ncbi_gene_id, g.gene_aliases, g.dna_sequence_length,
	la.confidence_level, la.evidence
FROM proteins p
JOIN genes g ON p.gene_id = g.gene_id
LEFT JOIN longevity_association la ON g.gene_id = la.gene_id
WHERE p.gene_id = ?
ORDER BY p.protein_id
LIMIT 1
`, geneID)

	var result ProteinWithGene
	var length, ncbiID, dnaLength sql.NullInt64
	var function, proteinAliases, geneAliases, confidence, evidence sql.NullString
	err = row.Scan(
		&result.ProteinID, &result.ProteinName, &length, &function, &proteinAliases,
		&result.GeneID, &result.GeneSymbol, &result.ApprovedSymbol, &result.GeneName, &result.HGNCID,
		&ncbiID, &geneAliases, &dnaLength,
		&confidence, &evidence,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	result.UniprotID = result.ProteinID
	result.SequenceLength = nullableInt(length)
	result.Function = function.String
	result.Aliases = decodeStringList(proteinAliases)
	result.NCBIGeneID = nullableInt(ncbiID)
	result.GeneAliases = decodeStringList(geneAliases)
	result.DNASequenceLength = nullableInt(dnaLength)
	result.LongevityAssociation = buildLongevity(confidence, evidence)

	if err := s.attachPTMsAndDomains(ctx, &result.Protein); err != nil {
		return nil, err
	}
	return &result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProtein(row rowScanner) (*Protein, error) {
	var protein Protein
	var length sql.NullInt64
	var function, aliases sql.NullString
	if err := row.Scan(&protein.ProteinID, &protein.ProteinName, &length, &function, &aliases); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	protein.UniprotID = protein.ProteinID
	protein.SequenceLength = nullableInt(length)
	protein.Function = function.String
	protein.Aliases = decodeStringList(aliases)
	return &protein, nil
}

func (s *Store) attachPTMsAndDomains(ctx context.Context, protein *Protein) error {
	ptms, err := s.ptmsForProtein(ctx, protein.ProteinID)
	if err != nil {
		return err
	}
	protein.PTMs = ptms

	domains, err := s.domainsForProtein(ctx, protein.ProteinID)
	if err != nil {
		return err
	}
	protein.Domains = domains
	return nil
}

func (s *Store) ptmsForProtein(ctx context.Context, proteinID string) ([]PTM, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT ptm_uid, modification_type, position, description, evidence, psi_mod_id
FROM ptms
WHERE protein_id = ?
ORDER BY position
`, proteinID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ptms := []PTM{}
	for rows.Next() {
		var ptm PTM
		var position sql.NullInt64
		var description, evidence, psiModID sql.NullString
		if err := rows.Scan(&ptm.PTMID, &ptm.ModificationType, &position, &description, &evidence, &psiModID); err != nil {
			return nil, err
		}
		ptm.Position = nullableInt(position)
		ptm.Description = description.String
		ptm.Evidence = decodeEvidence(evidence)
		ptm.PSIModID = psiModID.String
		ptms = append(ptms, ptm)
	}
	return ptms, rows.Err()
}

func (s *Store) domainsForProtein(ctx context.Context, proteinID string) ([]Domain, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT domain_id, accession, name, type, start_position, end_position
FROM protein_domains
WHERE protein_id = ?
ORDER BY start_position
`, proteinID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	domains := []Domain{}
	for rows.Next() {
		var domain Domain
		var start, end sql.NullInt64
		if err := rows.Scan(&domain.DomainID, &domain.Accession, &domain.Name, &domain.Type, &start, &end); err != nil {
			return nil, err
		}
		domain.StartPosition = nullableInt(start)
		domain.EndPosition = nullableInt(end)
		domains = append(domains, domain)
	}
	return domains, rows.Err()
}
