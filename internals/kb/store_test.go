package kb

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/seq2func/seq2func/internals/schemas"
	"github.com/seq2func/seq2func/internals/testutil"
)

const datasetJSON = `{
  "genes": [
    {
      "gene_id": "HGNC:14929",
      "gene_symbol": "SIRT1",
      "hgnc_symbol": "SIRT1",
      "gene_name": "sirtuin 1",
      "hgnc_id": "HGNC:14929",
      "ncbi_gene_id": 23411,
      "aliases": ["SIR2L1", "SIR2alpha"],
      "dna_sequence_length": 33715,
      "proteins": [
        {
          "protein_id": "Q96EB6",
          "protein_name": "NAD-dependent protein deacetylase sirtuin-1",
          "length": 747,
          "function": "NAD-dependent deacetylase",
          "aliases": ["hSIRT1"],
          "ptms": [
            {
              "ptm_id": "Q96EB6_phospho_27",
              "modification_type": "phosphorylation",
              "position": 27,
              "description": "Phosphoserine",
              "evidence": {"source": "UniProt"},
              "psi_mod_id": "MOD:00046"
            }
          ],
          "domains": [
            {
              "accession": "PF02146",
              "name": "Sir2",
              "type": "domain",
              "start": 244,
              "end": 498
            }
          ]
        }
      ],
      "longevity_association": {
        "confidence_level": "high",
        "evidence": {
          "expression_change": 1,
          "functional_clusters": ["metabolism"],
          "aging_mechanisms": ["deacetylation"],
          "comment_causes": []
        },
        "comment": "Well studied"
      }
    },
    {
      "gene_id": "HGNC:3821",
      "gene_symbol": "FOXO3",
      "hgnc_symbol": "FOXO3",
      "gene_name": "forkhead box O3",
      "hgnc_id": "HGNC:3821",
      "aliases": ["FOXO3A"],
      "proteins": []
    }
  ]
}`

func newLoadedStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(testutil.TempKBPath(t))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	datasetPath := filepath.Join(t.TempDir(), "dataset.json")
	if err := os.WriteFile(datasetPath, []byte(datasetJSON), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	loaded, err := store.LoadDataset(context.Background(), datasetPath)
	if err != nil {
		t.Fatalf("load dataset: %v", err)
	}
	if loaded != 2 {
		t.Fatalf("expected 2 genes loaded, got %d", loaded)
	}
	return store
}

func TestListGenes(t *testing.T) {
	store := newLoadedStore(t)
	genes, err := store.ListGenes(context.Background())
	if err != nil {
		t.Fatalf("ListGenes: %v", err)
	}
	if len(genes) != 2 {
		t.Fatalf("expected 2 genes, got %d", len(genes))
	}
	if genes[0].GeneSymbol != "FOXO3" || genes[1].GeneSymbol != "SIRT1" {
		t.Fatalf("genes not sorted by symbol: %v, %v", genes[0].GeneSymbol, genes[1].GeneSymbol)
	}
	sirt1 := genes[1]
	if sirt1.ProteinCount != 1 || sirt1.PTMCount != 1 || !sirt1.HasLongevityData {
		t.Fatalf("unexpected SIRT1 summary %+v", sirt1)
	}
	if genes[0].ProteinCount != 0 || genes[0].HasLongevityData {
		t.Fatalf("unexpected FOXO3 summary %+v", genes[0])
	}
}

func TestSearchGenesByAlias(t *testing.T) {
	store := newLoadedStore(t)
	genes, err := store.SearchGenes(context.Background(), "sir2l1", 10)
	if err != nil {
		t.Fatalf("SearchGenes: %v", err)
	}
	if len(genes) != 1 || genes[0].GeneSymbol != "SIRT1" {
		t.Fatalf("alias search failed: %v", genes)
	}
}

func TestGetGeneBySymbolCaseInsensitive(t *testing.T) {
	store := newLoadedStore(t)
	gene, err := store.GetGeneBySymbol(context.Background(), "sirt1")
	if err != nil {
		t.Fatalf("GetGeneBySymbol: %v", err)
	}
	if gene.GeneID != "HGNC:14929" || gene.GeneName != "sirtuin 1" {
		t.Fatalf("unexpected gene %+v", gene)
	}
	if gene.NCBIGeneID == nil || *gene.NCBIGeneID != 23411 {
		t.Fatalf("ncbi id not loaded: %+v", gene.NCBIGeneID)
	}
	if len(gene.Proteins) != 1 || gene.Proteins[0].UniprotID != "Q96EB6" {
		t.Fatalf("proteins not attached: %+v", gene.Proteins)
	}
	protein := gene.Proteins[0]
	if len(protein.PTMs) != 1 || protein.PTMs[0].ModificationType != "phosphorylation" {
		t.Fatalf("ptms not attached: %+v", protein.PTMs)
	}
	if len(protein.Domains) != 1 || protein.Domains[0].Accession != "PF02146" {
		t.Fatalf("domains not attached: %+v", protein.Domains)
	}

	longevity := gene.LongevityAssociation
	if longevity == nil || longevity.ConfidenceLevel != "high" {
		t.Fatalf("longevity record missing: %+v", longevity)
	}
	if longevity.ExpressionChange == nil || *longevity.ExpressionChange != 1 {
		t.Fatalf("expression change not decoded: %+v", longevity)
	}
	if len(longevity.FunctionalClusters) != 1 || longevity.FunctionalClusters[0] != "metabolism" {
		t.Fatalf("functional clusters not decoded: %+v", longevity)
	}
}

func TestGetGeneBySymbolAlias(t *testing.T) {
	store := newLoadedStore(t)
	gene, err := store.GetGeneBySymbol(context.Background(), "SIR2alpha")
	if err != nil {
		t.Fatalf("GetGeneBySymbol: %v", err)
	}
	if gene.GeneSymbol != "SIRT1" {
		t.Fatalf("alias resolution failed, got %q", gene.GeneSymbol)
	}
}

func TestGetGeneBySymbolNotFound(t *testing.T) {
	store := newLoadedStore(t)
	if _, err := store.GetGeneBySymbol(context.Background(), "NOPE1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetProteinByGeneSymbol(t *testing.T) {
	store := newLoadedStore(t)
	protein, err := store.GetProteinByGeneSymbol(context.Background(), "SIRT1")
	if err != nil {
		t.Fatalf("GetProteinByGeneSymbol: %v", err)
	}
	if protein.UniprotID != "Q96EB6" || protein.GeneSymbol != "SIRT1" {
		t.Fatalf("unexpected protein %+v", protein)
	}
	if protein.SequenceLength == nil || *protein.SequenceLength != 747 {
		t.Fatalf("length not loaded: %+v", protein.SequenceLength)
	}
	if protein.LongevityAssociation == nil || protein.LongevityAssociation.ConfidenceLevel != "high" {
		t.Fatalf("longevity not joined: %+v", protein.LongevityAssociation)
	}

	// FOXO3 exists but carries no protein records.
	if _, err := store.GetProteinByGeneSymbol(context.Background(), "FOXO3"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for gene without proteins, got %v", err)
	}
}

func TestGetProteinsByGeneIDUnknownGene(t *testing.T) {
	store := newLoadedStore(t)
	proteins, err := store.GetProteinsByGeneID(context.Background(), "HGNC:0")
	if err != nil {
		t.Fatalf("GetProteinsByGeneID: %v", err)
	}
	if len(proteins) != 0 {
		t.Fatalf("expected empty list, got %v", proteins)
	}
}

func TestGetStats(t *testing.T) {
	store := newLoadedStore(t)
	stats, err := store.GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	want := Stats{TotalGenes: 2, TotalProteins: 1, TotalPTMs: 1, TotalDomains: 1, GenesWithLongevity: 1}
	if *stats != want {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestLoadDatasetReplacesExistingRecords(t *testing.T) {
	store := newLoadedStore(t)

	datasetPath := filepath.Join(t.TempDir(), "dataset.json")
	if err := os.WriteFile(datasetPath, []byte(datasetJSON), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	if _, err := store.LoadDataset(context.Background(), datasetPath); err != nil {
		t.Fatalf("reload dataset: %v", err)
	}

	stats, err := store.GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.TotalGenes != 2 || stats.TotalProteins != 1 {
		t.Fatalf("reload must not duplicate records: %+v", stats)
	}
}

func TestLoadDatasetRejectsMissingGeneID(t *testing.T) {
	store := newLoadedStore(t)
	datasetPath := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(datasetPath, []byte(`{"genes":[{"gene_symbol":"X"}]}`), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	if _, err := store.LoadDataset(context.Background(), datasetPath); err == nil {
		t.Fatal("expected error for gene without gene_id")
	}
}

func TestSavePaperResultsUpsert(t *testing.T) {
	store := newLoadedStore(t)
	ctx := context.Background()
	geneID := 23411

	first := []schemas.PaperResult{{
		GeneID:     &geneID,
		GeneSymbol: "SIRT1",
		PMID:       "111",
		Title:      "SIRT1 and lifespan",
		Year:       "2024",
		Journal:    "Aging Cell",
		Score:      0.6,
		Relevant:   true,
		Reasoning:  "first pass",
		SearchDate: "2026-08-30",
		URL:        "https://pubmed.ncbi.nlm.nih.gov/111/",
	}}
	if err := store.SavePaperResults(ctx, first); err != nil {
		t.Fatalf("SavePaperResults: %v", err)
	}

	// Re-running the search for the same paper refreshes the row.
	updated := first
	updated[0].Score = 0.9
	updated[0].Reasoning = "second pass"
	updated[0].ModificationEffects = "effect"
	updated[0].SearchDate = "2026-08-31"
	if err := store.SavePaperResults(ctx, updated); err != nil {
		t.Fatalf("SavePaperResults upsert: %v", err)
	}

	papers, err := store.PapersForGene(ctx, "sirt1")
	if err != nil {
		t.Fatalf("PapersForGene: %v", err)
	}
	if len(papers) != 1 {
		t.Fatalf("upsert must not duplicate rows, got %d", len(papers))
	}
	paper := papers[0]
	if paper.Score != 0.9 || paper.Reasoning != "second pass" || paper.ModificationEffects != "effect" {
		t.Fatalf("row not refreshed: %+v", paper)
	}
	if paper.GeneID == nil || *paper.GeneID != 23411 || !paper.Relevant {
		t.Fatalf("unexpected paper %+v", paper)
	}
	if paper.SearchDate != "2026-08-31" {
		t.Fatalf("search date not refreshed: %q", paper.SearchDate)
	}
}

func TestPapersForGeneOrdering(t *testing.T) {
	store := newLoadedStore(t)
	ctx := context.Background()

	results := []schemas.PaperResult{
		{GeneSymbol: "SIRT1", PMID: "1", Title: "low", Score: 0.2, SearchDate: "2026-08-31"},
		{GeneSymbol: "SIRT1", PMID: "2", Title: "high", Score: 0.9, SearchDate: "2026-08-31"},
	}
	if err := store.SavePaperResults(ctx, results); err != nil {
		t.Fatalf("SavePaperResults: %v", err)
	}

	papers, err := store.PapersForGene(ctx, "SIRT1")
	if err != nil {
		t.Fatalf("PapersForGene: %v", err)
	}
	if len(papers) != 2 || papers[0].PMID != "2" {
		t.Fatalf("papers not ordered by score: %+v", papers)
	}
}
