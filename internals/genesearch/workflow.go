// Package genesearch orchestrates the PubMed search and LLM screening
// pipeline for a single gene.
package genesearch

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/seq2func/seq2func/internals/pubmed"
	"github.com/seq2func/seq2func/internals/schemas"
	"github.com/seq2func/seq2func/internals/screening"
)

const totalSteps = 7

type PubMedClient interface {
	Search(ctx context.Context, query string, opts pubmed.SearchOptions) ([]string, error)
	Fetch(ctx context.Context, pmids []string) ([]pubmed.Paper, error)
}

type PaperScreener interface {
	ScreenPaper(ctx context.Context, title string, keywords []string) screening.Verdict
	ScreenAssociation(ctx context.Context, title, abstract string, keywords []string) screening.Association
}

// ProgressFunc receives pipeline progress snapshots. May be nil.
type ProgressFunc func(info schemas.ProgressInfo)

type Workflow struct {
	pubmed     PubMedClient
	screener   PaperScreener
	searchOpts pubmed.SearchOptions
	logger     *slog.Logger
}

func New(client PubMedClient, screener PaperScreener, searchOpts pubmed.SearchOptions, logger *slog.Logger) *Workflow {
	return &Workflow{
		pubmed:     client,
		screener:   screener,
		searchOpts: searchOpts,
		logger:     logger,
	}
}

// screened keeps the abstract and MeSH terms alongside the result while
// they are still needed for the association step.
type screened struct {
	result    schemas.PaperResult
	abstract  string
	meshTerms []string
}

// SearchGene runs the full pipeline: build query, search, fetch
// metadata, screen every paper, rank, then extract associations for the
// top papers only. Cancellation is checked between steps and between
// papers; on cancellation the partial top results gathered so far are
// returned together with the context error.
func (w *Workflow) SearchGene(ctx context.Context, req schemas.GeneSearchRequest, report ProgressFunc) ([]schemas.PaperResult, error) {
	progress := func(step string, number int, screenedCount, total *int, message string) {
		if report != nil {
			report(schemas.ProgressInfo{
				CurrentStep:    step,
				StepNumber:     number,
				TotalSteps:     totalSteps,
				PapersScreened: screenedCount,
				TotalPapers:    total,
				Message:        message,
			})
		}
	}

	progress("Building query", 1, nil, nil, fmt.Sprintf("Building PubMed search query for %s", req.GeneSymbol))
	query := pubmed.BuildSearchQuery(req.GeneSymbol, req.IncludeReprogramming, nil)
	w.logger.Debug("built search query", "gene_symbol", req.GeneSymbol, "query", query)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := w.searchOpts
	opts.MaxResults = req.MaxResults
	progress("Searching PubMed", 2, nil, nil, fmt.Sprintf("Searching PubMed (max %d results)", req.MaxResults))
	pmids, err := w.pubmed.Search(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	w.logger.Info("pubmed search finished", "gene_symbol", req.GeneSymbol, "found", len(pmids))

	if len(pmids) == 0 {
		progress("Search complete", totalSteps, nil, nil, "No papers found")
		return nil, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	progress("Fetching metadata", 3, nil, nil, fmt.Sprintf("Fetching metadata for %d papers", len(pmids)))
	papers, err := w.pubmed.Fetch(ctx, pmids)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	searchDate := time.Now().Format("2006-01-02")
	total := len(papers)
	zero := 0
	progress("Screening papers", 4, &zero, &total, "Starting paper screening with AI")

	var cancelled bool
	results := make([]screened, 0, len(papers))
	for idx, paper := range papers {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		done := idx + 1
		progress("Screening papers", 4, &done, &total, fmt.Sprintf("Screening paper %d/%d", done, total))

		verdict := w.screener.ScreenPaper(ctx, paper.Title, paper.MeshTerms)
		results = append(results, screened{
			result: schemas.PaperResult{
				GeneID:     req.GeneID,
				GeneSymbol: req.GeneSymbol,
				PMID:       paper.PMID,
				Title:      paper.Title,
				Year:       paper.Year,
				Journal:    paper.Journal,
				Score:      verdict.Score,
				Relevant:   verdict.Relevant,
				Reasoning:  verdict.Reasoning,
				SearchDate: searchDate,
				URL:        paper.URL(),
			},
			abstract:  paper.Abstract,
			meshTerms: paper.MeshTerms,
		})
	}

	progress("Filtering results", 5, nil, nil, "Filtering and ranking papers")
	relevant := make([]screened, 0, len(results))
	for _, entry := range results {
		if entry.result.Relevant {
			relevant = append(relevant, entry)
		}
	}
	sort.SliceStable(relevant, func(i, j int) bool {
		return relevant[i].result.Score > relevant[j].result.Score
	})
	if len(relevant) > req.TopN {
		relevant = relevant[:req.TopN]
	}
	w.logger.Info("screening finished",
		"gene_symbol", req.GeneSymbol,
		"screened", len(results),
		"relevant", len(relevant),
	)

	top := make([]schemas.PaperResult, 0, len(relevant))
	if cancelled || ctx.Err() != nil {
		for _, entry := range relevant {
			top = append(top, entry.result)
		}
		return top, context.Canceled
	}

	if len(relevant) > 0 {
		topTotal := len(relevant)
		progress("Extracting associations", 6, &zero, &topTotal,
			fmt.Sprintf("Extracting modification effects and longevity associations for top %d papers", topTotal))

		for idx := range relevant {
			if ctx.Err() != nil {
				cancelled = true
				break
			}
			done := idx + 1
			progress("Extracting associations", 6, &done, &topTotal,
				fmt.Sprintf("Extracting associations for paper %d/%d", done, topTotal))

			entry := &relevant[idx]
			association := w.screener.ScreenAssociation(ctx, entry.result.Title, entry.abstract, entry.meshTerms)
			entry.result.ModificationEffects = association.ModificationEffects
			entry.result.LongevityAssociation = association.LongevityAssociation
		}
	}

	for _, entry := range relevant {
		top = append(top, entry.result)
	}

	if cancelled {
		progress("Search cancelled", totalSteps, nil, nil, fmt.Sprintf("Found %d top papers with associations", len(top)))
		return top, context.Canceled
	}
	progress("Search completed", totalSteps, nil, nil, fmt.Sprintf("Found %d top papers with associations", len(top)))
	return top, nil
}
