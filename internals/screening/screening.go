// Package screening classifies papers for sequence→function→aging
// relevance with an OpenAI-compatible chat model.
package screening

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	openai "github.com/sashabaranov/go-openai"
)

const screeningPrompt = `You are filtering biomedical papers for SEQUENCE→PHENOTYPE links in aging research.

INCLUSION CRITERIA:
- Title suggests specific mutation/variant/domain change in a protein or gene
- Keywords indicate links to longevity, lifespan, survival, stress resistance, centenarians, or age-related phenotypes
- Evidence of experimental or genetic studies (not just computational predictions)
- NOT just speculation or correlation without mechanism

EXCLUSION CRITERIA:
- Review articles or meta-analyses (should already be filtered)
- No specific sequence modifications mentioned
- Only disease focus without aging/longevity context
- Purely computational predictions without validation

PAPER TO SCREEN:
Title: %s

Keywords/MeSH Terms: %s

Respond ONLY with valid JSON in this exact format:
{
  "relevant": true or false,
  "score": 0.0 to 1.0,
  "reasoning": "Brief explanation (1-2 sentences)"
}
`

const associationPrompt = `You are extracting structured findings from a biomedical paper about a protein or gene modification in the context of aging.

PAPER:
Title: %s

Abstract: %s

Keywords/MeSH Terms: %s

Extract two short statements:
1. modification_effects: what the described sequence modification does to protein function (one sentence, or "Not specified")
2. longevity_association: how the modification relates to longevity, lifespan, or aging phenotypes (one sentence, or "Not specified")

Respond ONLY with valid JSON in this exact format:
{
  "modification_effects": "...",
  "longevity_association": "..."
}
`

type Verdict struct {
	Relevant  bool    `json:"relevant"`
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

type Association struct {
	ModificationEffects  string `json:"modification_effects"`
	LongevityAssociation string `json:"longevity_association"`
}

type Screener struct {
	client      *openai.Client
	model       string
	temperature float32
}

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
}

func New(cfg Config) *Screener {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &Screener{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
	}
}

// ScreenPaper scores a paper for relevance from title and keywords only.
// Model or parse failures degrade to a not-relevant verdict with the
// failure recorded in the reasoning, matching how a human screener would
// log an unreadable entry rather than abort the whole run.
func (s *Screener) ScreenPaper(ctx context.Context, title string, keywords []string) Verdict {
	if title == "" {
		return Verdict{Reasoning: "Missing title"}
	}

	content, err := s.complete(ctx, fmt.Sprintf(screeningPrompt, title, keywordList(keywords)))
	if err != nil {
		return Verdict{Reasoning: "Screening error: " + err.Error()}
	}

	var verdict Verdict
	if err := decodeModelJSON(content, &verdict); err != nil {
		return Verdict{Reasoning: fmt.Sprintf("LLM response parsing error: %v. Raw: %s", err, truncate(content, 200))}
	}
	if verdict.Reasoning == "" {
		verdict.Reasoning = "No reasoning provided"
	}
	return verdict
}

// ScreenAssociation extracts modification-effect and longevity texts for
// a paper that already passed relevance screening.
func (s *Screener) ScreenAssociation(ctx context.Context, title, abstract string, keywords []string) Association {
	fallback := Association{ModificationEffects: "Not specified", LongevityAssociation: "Not specified"}
	if title == "" {
		return fallback
	}

	content, err := s.complete(ctx, fmt.Sprintf(associationPrompt, title, abstract, keywordList(keywords)))
	if err != nil {
		return fallback
	}

	var association Association
	if err := decodeModelJSON(content, &association); err != nil {
		return fallback
	}
	if association.ModificationEffects == "" {
		association.ModificationEffects = "Not specified"
	}
	if association.LongevityAssociation == "" {
		association.LongevityAssociation = "Not specified"
	}
	return association
}

func (s *Screener) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: s.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

// decodeModelJSON parses model output, repairing the common failure
// modes (markdown fences, trailing commas, single quotes) before giving
// up.
func decodeModelJSON(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if err := json.Unmarshal([]byte(trimmed), target); err == nil {
		return nil
	}
	repaired, err := jsonrepair.JSONRepair(trimmed)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(repaired), target)
}

func keywordList(keywords []string) string {
	if len(keywords) == 0 {
		return "None"
	}
	return strings.Join(keywords, ", ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
