package genesearch

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/seq2func/seq2func/internals/schemas"
)

var csvHeader = []string{
	"symbol",
	"pmid",
	"title",
	"year",
	"journal",
	"score",
	"relevant",
	"reasoning",
	"modification_effects",
	"longevity_association",
	"search_date",
	"url",
}

// SaveCSV writes results to a CSV file, creating parent directories as
// needed. With appendMode the header is only written for a new file.
func SaveCSV(results []schemas.PaperResult, outputFile string, appendMode bool) error {
	if len(results) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(outputFile), 0o755); err != nil {
		return err
	}

	flags := os.O_CREATE | os.O_WRONLY
	writeHeader := true
	if appendMode {
		flags |= os.O_APPEND
		if _, err := os.Stat(outputFile); err == nil {
			writeHeader = false
		}
	} else {
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(outputFile, flags, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if writeHeader {
		if err := writer.Write(csvHeader); err != nil {
			return err
		}
	}
	for _, result := range results {
		record := []string{
			result.GeneSymbol,
			result.PMID,
			result.Title,
			result.Year,
			result.Journal,
			strconv.FormatFloat(result.Score, 'f', -1, 64),
			strconv.FormatBool(result.Relevant),
			result.Reasoning,
			result.ModificationEffects,
			result.LongevityAssociation,
			result.SearchDate,
			result.URL,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ExistingSymbols returns the gene symbols already present in a results
// CSV, used by batch mode to skip genes that were searched before.
func ExistingSymbols(outputFile string) (map[string]bool, error) {
	file, err := os.Open(outputFile)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, nil
		}
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read results csv: %w", err)
	}

	symbols := map[string]bool{}
	for i, record := range records {
		if i == 0 || len(record) == 0 {
			continue
		}
		if record[0] != "" {
			symbols[record[0]] = true
		}
	}
	return symbols, nil
}

// GeneMapping is one row of a batch input file.
type GeneMapping struct {
	Symbol               string
	IncludeReprogramming bool
}

// ReadGeneMappings loads a batch mapping CSV with a symbol column and an
// optional include_reprogramming column.
func ReadGeneMappings(mappingFile string) ([]GeneMapping, error) {
	file, err := os.Open(mappingFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read gene mappings: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("gene mapping file is empty")
	}

	symbolCol, reprogramCol := -1, -1
	for i, name := range records[0] {
		switch name {
		case "symbol":
			symbolCol = i
		case "include_reprogramming":
			reprogramCol = i
		}
	}
	if symbolCol < 0 {
		return nil, fmt.Errorf("gene mapping file is missing a symbol column")
	}

	mappings := make([]GeneMapping, 0, len(records)-1)
	for _, record := range records[1:] {
		if symbolCol >= len(record) || record[symbolCol] == "" {
			continue
		}
		mapping := GeneMapping{Symbol: record[symbolCol]}
		if reprogramCol >= 0 && reprogramCol < len(record) {
			mapping.IncludeReprogramming, _ = strconv.ParseBool(record[reprogramCol])
		}
		mappings = append(mappings, mapping)
	}
	return mappings, nil
}
