package schemas

import (
	"regexp"

	z "github.com/Oudwins/zog"
)

// PaperResult is one screened paper from a gene literature search.
type PaperResult struct {
	GeneID               *int    `json:"gene_id,omitempty"`
	GeneSymbol           string  `json:"gene_symbol"`
	PMID                 string  `json:"pmid"`
	Title                string  `json:"title"`
	Year                 string  `json:"year"`
	Journal              string  `json:"journal"`
	Score                float64 `json:"score"`
	Relevant             bool    `json:"relevant"`
	Reasoning            string  `json:"reasoning"`
	ModificationEffects  string  `json:"modification_effects,omitempty"`
	LongevityAssociation string  `json:"longevity_association,omitempty"`
	SearchDate           string  `json:"search_date"`
	URL                  string  `json:"url,omitempty"`
}

type SearchResponse struct {
	Results []PaperResult `json:"results"`
	Count   int           `json:"count"`
}

type GeneSearchRequest struct {
	GeneSymbol           string `json:"gene_symbol" zog:"gene_symbol"`
	GeneID               *int   `json:"gene_id,omitempty" zog:"gene_id"`
	MaxResults           int    `json:"max_results,omitempty" zog:"max_results"`
	TopN                 int    `json:"top_n,omitempty" zog:"top_n"`
	IncludeReprogramming bool   `json:"include_reprogramming,omitempty" zog:"include_reprogramming"`
}

var geneSymbolRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.\-]*$`)

var GeneSearchSchema = z.Struct(z.Shape{
	"GeneSymbol":           z.String().Required(z.Message("gene_symbol is required")).Trim().Match(geneSymbolRegex, z.Message("gene_symbol contains invalid characters")),
	"GeneID":               z.Ptr(z.Int().GTE(1)),
	"MaxResults":           z.Int().GTE(1).LTE(1000).Optional(),
	"TopN":                 z.Int().GTE(1).LTE(100).Optional(),
	"IncludeReprogramming": z.Bool().Optional(),
})
