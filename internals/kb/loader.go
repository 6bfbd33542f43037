package kb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// Dataset is the JSON import format for `seq2func load`: a list of gene
// records with nested proteins, PTMs, domains and longevity evidence.
type Dataset struct {
	Genes []DatasetGene `json:"genes"`
}

type DatasetGene struct {
	GeneID            string                  `json:"gene_id"`
	GeneSymbol        string                  `json:"gene_symbol"`
	HGNCSymbol        string                  `json:"hgnc_symbol"`
	GeneName          string                  `json:"gene_name"`
	HGNCID            string                  `json:"hgnc_id"`
	NCBIGeneID        *int                    `json:"ncbi_gene_id"`
	Aliases           []string                `json:"aliases"`
	DNASequenceLength *int                    `json:"dna_sequence_length"`
	Proteins          []DatasetProtein        `json:"proteins"`
	Longevity         *DatasetLongevityRecord `json:"longevity_association"`
}

type DatasetProtein struct {
	ProteinID string          `json:"protein_id"`
	Name      string          `json:"protein_name"`
	Length    *int            `json:"length"`
	Function  string          `json:"function"`
	Aliases   []string        `json:"aliases"`
	PTMs      []DatasetPTM    `json:"ptms"`
	Domains   []DatasetDomain `json:"domains"`
}

type DatasetPTM struct {
	PTMID            string         `json:"ptm_id"`
	ModificationType string         `json:"modification_type"`
	Position         *int           `json:"position"`
	Description      string         `json:"description"`
	Evidence         map[string]any `json:"evidence"`
	PSIModID         string         `json:"psi_mod_id"`
}

type DatasetDomain struct {
	Accession string `json:"accession"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Start     *int   `json:"start"`
	End       *int   `json:"end"`
}

type DatasetLongevityRecord struct {
	ConfidenceLevel string         `json:"confidence_level"`
	Evidence        map[string]any `json:"evidence"`
	Comment         string         `json:"comment"`
}

// LoadDataset imports a dataset file, replacing records that share ids.
func (s *Store) LoadDataset(ctx context.Context, datasetPath string) (int, error) {
	data, err := os.ReadFile(datasetPath)
	if err != nil {
		return 0, err
	}
	var dataset Dataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		return 0, fmt.Errorf("parse dataset: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	for _, gene := range dataset.Genes {
		if gene.GeneID == "" || gene.GeneSymbol == "" {
			return 0, fmt.Errorf("dataset gene is missing gene_id or gene_symbol")
		}
		aliases, err := json.Marshal(orEmpty(gene.Aliases))
		if err != nil {
			return 0, err
		}
		_, err = tx.ExecContext(ctx, `
INSERT OR REPLACE INTO genes (gene_id, gene_symbol, hgnc_symbol, gene_name, hgnc_id, ncbi_gene_id, gene_aliases, dna_sequence_length)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, gene.GeneID, gene.GeneSymbol, gene.HGNCSymbol, gene.GeneName, gene.HGNCID, intOrNil(gene.NCBIGeneID), string(aliases), intOrNil(gene.DNASequenceLength))
		if err != nil {
			return 0, err
		}

		if gene.Longevity != nil {
			evidence, err := json.Marshal(gene.Longevity.Evidence)
			if err != nil {
				return 0, err
			}
			_, err = tx.ExecContext(ctx, `
INSERT OR REPLACE INTO longevity_association (gene_id, confidence_level, evidence, comment)
VALUES (?, ?, ?, ?)
`, gene.GeneID, gene.Longevity.ConfidenceLevel, string(evidence), gene.Longevity.Comment)
			if err != nil {
				return 0, err
			}
		}

		for _, protein := range gene.Proteins {
			if protein.ProteinID == "" {
				return 0, fmt.Errorf("dataset protein under gene %s is missing protein_id", gene.GeneID)
			}
			proteinAliases, err := json.Marshal(orEmpty(protein.Aliases))
			if err != nil {
				return 0, err
			}
			_, err = tx.ExecContext(ctx, `
INSERT OR REPLACE INTO proteins (protein_id, gene_id, protein_name, length, protein_function, protein_aliases)
VALUES (?, ?, ?, ?, ?, ?)
`, protein.ProteinID, gene.GeneID, protein.Name, intOrNil(protein.Length), protein.Function, string(proteinAliases))
			if err != nil {
				return 0, err
			}

			for _, ptm := range protein.PTMs {
				evidence, err := json.Marshal(ptm.Evidence)
				if err != nil {
					return 0, err
				}
				_, err = tx.ExecContext(ctx, `
INSERT OR REPLACE INTO ptms (ptm_uid, protein_id, modification_type, position, description, evidence, psi_mod_id)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, ptm.PTMID, protein.ProteinID, ptm.ModificationType, intOrNil(ptm.Position), ptm.Description, string(evidence), ptm.PSIModID)
				if err != nil {
					return 0, err
				}
			}

			for i, domain := range protein.Domains {
				domainID := fmt.Sprintf("%s_domain_%d", protein.ProteinID, i)
				_, err = tx.ExecContext(ctx, `
INSERT OR REPLACE INTO protein_domains (domain_id, protein_id, accession, name, type, start_position, end_position)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, domainID, protein.ProteinID, domain.Accession, domain.Name, domain.Type, intOrNil(domain.Start), intOrNil(domain.End))
				if err != nil {
					return 0, err
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(dataset.Genes), nil
}

func orEmpty(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func intOrNil(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}
