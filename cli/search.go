package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/seq2func/seq2func/internals/conf"
	"github.com/seq2func/seq2func/internals/env"
	"github.com/seq2func/seq2func/internals/genesearch"
	"github.com/seq2func/seq2func/internals/pubmed"
	"github.com/seq2func/seq2func/internals/schemas"
	"github.com/seq2func/seq2func/internals/screening"
	"github.com/seq2func/seq2func/sdk"
)

type searchFlags struct {
	maxResults    int
	topN          int
	reprogramming bool
	wait          bool
	waitTimeout   time.Duration
	output        string
	batchFile     string
	force         bool
}

func searchCmd() *cobra.Command {
	flags := searchFlags{}
	cmd := &cobra.Command{
		Use:   "search [gene_symbol]",
		Short: "Search PubMed for longevity literature on a gene",
		Long: "Starts an asynchronous literature search on the daemon and prints the task id.\n" +
			"With --wait the command polls until the task finishes. With --batch the\n" +
			"pipeline runs locally over every gene in a CSV mapping file.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.batchFile != "" {
				return runBatchSearch(cmd.Context(), flags)
			}
			if len(args) != 1 {
				return fmt.Errorf("gene_symbol is required unless --batch is given")
			}
			return runSearch(cmd.Context(), args[0], flags)
		},
	}
	cmd.Flags().IntVar(&flags.maxResults, "max-results", 0, "maximum PubMed results to screen")
	cmd.Flags().IntVar(&flags.topN, "top-n", 0, "number of top papers to keep")
	cmd.Flags().BoolVar(&flags.reprogramming, "reprogramming", false, "include cellular reprogramming terms in the query")
	cmd.Flags().BoolVar(&flags.wait, "wait", false, "poll until the task finishes")
	cmd.Flags().DurationVar(&flags.waitTimeout, "wait-timeout", 30*time.Minute, "give up waiting after this long")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "write results to a CSV file")
	cmd.Flags().StringVar(&flags.batchFile, "batch", "", "CSV mapping file with one gene per row")
	cmd.Flags().BoolVar(&flags.force, "force", false, "re-search genes already present in the output CSV")
	return cmd
}

func runSearch(ctx context.Context, geneSymbol string, flags searchFlags) error {
	client := sdk.NewClient()
	if err := ensureDaemonRunning(client); err != nil {
		return err
	}

	request := schemas.GeneSearchRequest{
		GeneSymbol:           geneSymbol,
		MaxResults:           flags.maxResults,
		TopN:                 flags.topN,
		IncludeReprogramming: flags.reprogramming,
	}

	poller := sdk.NewSearchPoller(client, sdk.WithOnUpdate(printProgress))
	startCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	start, err := poller.Start(startCtx, request)
	if err != nil {
		return err
	}
	fmt.Printf("task: %s\nstatus: %s\n", start.TaskID, start.Status)

	if !flags.wait {
		return nil
	}

	waitCtx, cancelWait := context.WithTimeout(ctx, flags.waitTimeout)
	defer cancelWait()
	final, err := poller.Wait(waitCtx)
	if err != nil {
		return err
	}
	printTaskStatus(final)

	if flags.output != "" && final.Result != nil {
		if err := genesearch.SaveCSV(final.Result.Results, flags.output, false); err != nil {
			return err
		}
		fmt.Printf("saved %d results to %s\n", final.Result.Count, flags.output)
	}
	return nil
}

// runBatchSearch runs the pipeline locally, gene by gene, appending to
// the output CSV after each so an interrupted run loses at most one gene.
func runBatchSearch(ctx context.Context, flags searchFlags) error {
	if flags.output == "" {
		return fmt.Errorf("--batch requires --output")
	}

	mappings, err := genesearch.ReadGeneMappings(flags.batchFile)
	if err != nil {
		return err
	}
	existing := map[string]bool{}
	if !flags.force {
		existing, err = genesearch.ExistingSymbols(flags.output)
		if err != nil {
			return err
		}
	}

	workflow := newLocalWorkflow()
	config := conf.GetConfig()
	processed := 0
	for _, mapping := range mappings {
		if existing[mapping.Symbol] {
			fmt.Printf("skipping %s: already in %s\n", mapping.Symbol, flags.output)
			continue
		}

		request := schemas.GeneSearchRequest{
			GeneSymbol:           mapping.Symbol,
			MaxResults:           orDefault(flags.maxResults, config.Search.MaxResults),
			TopN:                 orDefault(flags.topN, config.Search.TopN),
			IncludeReprogramming: mapping.IncludeReprogramming || flags.reprogramming,
		}

		fmt.Printf("searching %s\n", mapping.Symbol)
		results, err := workflow.SearchGene(ctx, request, func(info schemas.ProgressInfo) {
			if info.Message != "" {
				fmt.Printf("  [%d/%d] %s\n", info.StepNumber, info.TotalSteps, info.Message)
			}
		})
		if err != nil {
			return fmt.Errorf("search %s: %w", mapping.Symbol, err)
		}

		if err := genesearch.SaveCSV(results, flags.output, true); err != nil {
			return err
		}
		processed++
		fmt.Printf("saved %d results for %s\n", len(results), mapping.Symbol)
	}

	fmt.Printf("done: %d genes searched, %d skipped\n", processed, len(mappings)-processed)
	return nil
}

func newLocalWorkflow() *genesearch.Workflow {
	envs := env.Get()
	config := conf.GetConfig()
	pubmedClient := pubmed.NewClient(envs.NCBI_EMAIL, envs.NCBI_API_KEY)
	screener := screening.New(screening.Config{
		APIKey:      envs.NEBIUS_API_KEY,
		BaseURL:     envs.NEBIUS_BASE_URL,
		Model:       config.Screening.Model,
		Temperature: config.Screening.Temperature,
	})
	return genesearch.New(pubmedClient, screener, pubmed.SearchOptions{
		MaxResults:       config.Search.MaxResults,
		ExcludeReviews:   config.Pubmed.ExcludeReviews,
		FreeFullTextOnly: config.Pubmed.FreeFullTextOnly,
	}, slog.Default())
}

func printProgress(status *schemas.TaskStatusResponse) {
	if status.Progress == nil {
		return
	}
	p := status.Progress
	if p.PapersScreened != nil && p.TotalPapers != nil {
		fmt.Printf("  [%d/%d] %s (%d/%d papers)\n", p.StepNumber, p.TotalSteps, p.CurrentStep, *p.PapersScreened, *p.TotalPapers)
		return
	}
	fmt.Printf("  [%d/%d] %s\n", p.StepNumber, p.TotalSteps, p.CurrentStep)
}

func printTaskStatus(status *schemas.TaskStatusResponse) {
	fmt.Printf("task: %s\nstatus: %s\n", status.TaskID, status.Status)
	if status.Progress != nil && status.Progress.Message != "" {
		fmt.Printf("progress: %s\n", status.Progress.Message)
	}
	if status.Result != nil {
		fmt.Printf("results: %d\n", status.Result.Count)
		for _, paper := range status.Result.Results {
			fmt.Printf("  %.2f %s (%s, %s)\n", paper.Score, paper.Title, paper.Journal, paper.Year)
		}
	}
	if status.Error != "" {
		fmt.Printf("error: %s\n", status.Error)
	}
}

func orDefault(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}
