package kb

import "context"

func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT
	(SELECT COUNT(*) FROM genes),
	(SELECT COUNT(*) FROM proteins),
	(SELECT COUNT(*) FROM ptms),
	(SELECT COUNT(*) FROM protein_domains),
	(SELECT COUNT(*) FROM longevity_association)
`)
	var stats Stats
	if err := row.Scan(&stats.TotalGenes, &stats.TotalProteins, &stats.TotalPTMs, &stats.TotalDomains, &stats.GenesWithLongevity); err != nil {
		return nil, err
	}
	return &stats, nil
}
