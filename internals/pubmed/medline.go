package pubmed

import "strings"

// ParseMedline parses records in the MEDLINE text format returned by
// efetch with rettype=medline. Records are separated by blank lines;
// fields are "TAG - value" with continuation lines indented by six
// spaces.
func ParseMedline(text string) []Paper {
	var papers []Paper
	var current map[string][]string
	var lastTag string

	flush := func() {
		if current == nil {
			return
		}
		paper := Paper{
			PMID:      firstValue(current, "PMID"),
			Title:     firstValue(current, "TI"),
			Abstract:  firstValue(current, "AB"),
			Journal:   firstValue(current, "TA"),
			MeshTerms: current["MH"],
		}
		if published := firstValue(current, "DP"); published != "" {
			paper.Year = strings.Fields(published)[0]
		}
		if paper.PMID != "" {
			papers = append(papers, paper)
		}
		current = nil
		lastTag = ""
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}

		if strings.HasPrefix(line, "      ") && lastTag != "" {
			// Continuation of the previous field.
			values := current[lastTag]
			if len(values) > 0 {
				values[len(values)-1] += " " + strings.TrimSpace(line)
			}
			continue
		}

		if len(line) < 6 || line[4:6] != "- " {
			continue
		}
		tag := strings.TrimSpace(line[:4])
		value := strings.TrimSpace(line[6:])
		if current == nil {
			current = map[string][]string{}
		}
		current[tag] = append(current[tag], value)
		lastTag = tag
	}
	flush()

	return papers
}

func firstValue(record map[string][]string, tag string) string {
	if values := record[tag]; len(values) > 0 {
		return values[0]
	}
	return ""
}
