package kb

type GeneSummary struct {
	GeneID           string `json:"gene_id"`
	GeneSymbol       string `json:"gene_symbol"`
	ApprovedSymbol   string `json:"approved_symbol"`
	GeneName         string `json:"gene_name"`
	ProteinCount     int    `json:"protein_count"`
	PTMCount         int    `json:"ptm_count"`
	HasLongevityData bool   `json:"has_longevity_data"`
}

type PTM struct {
	PTMID            string         `json:"ptm_id"`
	ModificationType string         `json:"modification_type"`
	Position         *int           `json:"position,omitempty"`
	Description      string         `json:"description,omitempty"`
	Evidence         map[string]any `json:"evidence,omitempty"`
	PSIModID         string         `json:"psi_mod_id,omitempty"`
}

type Domain struct {
	DomainID      string `json:"domain_id"`
	Accession     string `json:"accession"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	StartPosition *int   `json:"start_position,omitempty"`
	EndPosition   *int   `json:"end_position,omitempty"`
}

type Protein struct {
	ProteinID      string   `json:"protein_id"`
	UniprotID      string   `json:"uniprot_id"`
	ProteinName    string   `json:"protein_name"`
	SequenceLength *int     `json:"sequence_length,omitempty"`
	Function       string   `json:"function,omitempty"`
	Aliases        []string `json:"aliases"`
	PTMs           []PTM    `json:"ptms"`
	Domains        []Domain `json:"domains"`
}

type ProteinSummary struct {
	ProteinID      string `json:"protein_id"`
	UniprotID      string `json:"uniprot_id"`
	ProteinName    string `json:"protein_name"`
	GeneSymbol     string `json:"gene_symbol"`
	SequenceLength int    `json:"sequence_length"`
	PTMCount       int    `json:"ptm_count"`
	DomainCount    int    `json:"domain_count"`
}

type LongevityAssociation struct {
	ExpressionChange   *int     `json:"expression_change,omitempty"`
	ConfidenceLevel    string   `json:"confidence_level,omitempty"`
	FunctionalClusters []string `json:"functional_clusters"`
	AgingMechanisms    []string `json:"aging_mechanisms"`
	CommentCauses      []string `json:"comment_causes"`
}

type Gene struct {
	GeneID               string                `json:"gene_id"`
	GeneSymbol           string                `json:"gene_symbol"`
	ApprovedSymbol       string                `json:"approved_symbol"`
	GeneName             string                `json:"gene_name"`
	HGNCID               string                `json:"hgnc_id"`
	NCBIGeneID           *int                  `json:"ncbi_gene_id,omitempty"`
	Aliases              []string              `json:"aliases"`
	DNASequenceLength    *int                  `json:"dna_sequence_length,omitempty"`
	Proteins             []Protein             `json:"proteins"`
	LongevityAssociation *LongevityAssociation `json:"longevity_association,omitempty"`
}

// ProteinWithGene is the protein detail page payload, joined with its
// gene and longevity records.
type ProteinWithGene struct {
	Protein
	GeneID               string                `json:"gene_id"`
	GeneSymbol           string                `json:"gene_symbol"`
	ApprovedSymbol       string                `json:"approved_symbol"`
	GeneName             string                `json:"gene_name"`
	HGNCID               string                `json:"hgnc_id"`
	NCBIGeneID           *int                  `json:"ncbi_gene_id,omitempty"`
	GeneAliases          []string              `json:"gene_aliases"`
	DNASequenceLength    *int                  `json:"dna_sequence_length,omitempty"`
	LongevityAssociation *LongevityAssociation `json:"longevity_association,omitempty"`
}

type Stats struct {
	TotalGenes         int `json:"total_genes"`
	TotalProteins      int `json:"total_proteins"`
	TotalPTMs          int `json:"total_ptms"`
	TotalDomains       int `json:"total_domains"`
	GenesWithLongevity int `json:"genes_with_longevity"`
}
