package pubmed

import (
	"fmt"
	"strings"
)

var longevityTerms = []string{
	"longevity",
	"lifespan",
	`"life span"`,
	"healthspan",
	"aging",
	"ageing",
	"senescence",
	`"stress resistance"`,
	"centenarian",
	`"age-related"`,
}

var reprogrammingTerms = []string{
	`"cellular reprogramming"`,
	`"partial reprogramming"`,
	`"Yamanaka factors"`,
	"rejuvenation",
}

// BuildSearchQuery assembles the PubMed term for a gene literature search.
// The gene symbol is anchored to title/abstract and combined with the
// longevity vocabulary; reprogramming terms are added on request.
func BuildSearchQuery(geneSymbol string, includeReprogramming bool, customTerms []string) string {
	terms := make([]string, 0, len(longevityTerms)+len(reprogrammingTerms)+len(customTerms))
	terms = append(terms, longevityTerms...)
	if includeReprogramming {
		terms = append(terms, reprogrammingTerms...)
	}
	for _, term := range customTerms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		if strings.ContainsAny(term, " \t") && !strings.HasPrefix(term, `"`) {
			term = `"` + term + `"`
		}
		terms = append(terms, term)
	}

	return fmt.Sprintf("%s[Title/Abstract] AND (%s)", geneSymbol, strings.Join(terms, " OR "))
}
