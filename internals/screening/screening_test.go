package screening

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// chatServer returns an OpenAI-compatible endpoint that replies with the
// given message content for every chat completion.
func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		response := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		}
		json.NewEncoder(w).Encode(response)
	}))
}

func newTestScreener(baseURL string) *Screener {
	return New(Config{
		APIKey:      "test",
		BaseURL:     baseURL,
		Model:       "test-model",
		Temperature: 0,
	})
}

func TestScreenPaperRelevant(t *testing.T) {
	server := chatServer(t, `{"relevant": true, "score": 0.85, "reasoning": "Describes a SIRT1 point mutation with lifespan data."}`)
	defer server.Close()

	verdict := newTestScreener(server.URL).ScreenPaper(context.Background(), "SIRT1 mutation extends lifespan", []string{"Longevity"})
	if !verdict.Relevant || verdict.Score != 0.85 {
		t.Fatalf("unexpected verdict %+v", verdict)
	}
}

func TestScreenPaperRepairsSloppyJSON(t *testing.T) {
	server := chatServer(t, "```json\n{\"relevant\": true, \"score\": 0.7, \"reasoning\": \"ok\",}\n```")
	defer server.Close()

	verdict := newTestScreener(server.URL).ScreenPaper(context.Background(), "Some title", nil)
	if !verdict.Relevant || verdict.Score != 0.7 {
		t.Fatalf("fenced JSON should be repaired, got %+v", verdict)
	}
}

func TestScreenPaperMissingTitle(t *testing.T) {
	verdict := newTestScreener("http://127.0.0.1:0").ScreenPaper(context.Background(), "", nil)
	if verdict.Relevant || verdict.Reasoning != "Missing title" {
		t.Fatalf("unexpected verdict %+v", verdict)
	}
}

func TestScreenPaperModelErrorDegrades(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	verdict := newTestScreener(server.URL).ScreenPaper(context.Background(), "Some title", nil)
	if verdict.Relevant {
		t.Fatal("model errors must not mark papers relevant")
	}
	if !strings.HasPrefix(verdict.Reasoning, "Screening error:") {
		t.Fatalf("unexpected reasoning %q", verdict.Reasoning)
	}
}

func TestScreenAssociation(t *testing.T) {
	server := chatServer(t, `{"modification_effects": "Increases deacetylase activity.", "longevity_association": "Extends lifespan in mice."}`)
	defer server.Close()

	association := newTestScreener(server.URL).ScreenAssociation(context.Background(), "Title", "Abstract", nil)
	if association.ModificationEffects != "Increases deacetylase activity." {
		t.Fatalf("unexpected association %+v", association)
	}
	if association.LongevityAssociation != "Extends lifespan in mice." {
		t.Fatalf("unexpected association %+v", association)
	}
}

func TestScreenAssociationFallback(t *testing.T) {
	server := chatServer(t, "not json at all")
	defer server.Close()

	association := newTestScreener(server.URL).ScreenAssociation(context.Background(), "Title", "Abstract", nil)
	if association.ModificationEffects != "Not specified" || association.LongevityAssociation != "Not specified" {
		t.Fatalf("unexpected fallback %+v", association)
	}
}

func TestDecodeModelJSON(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"clean", `{"relevant": true, "score": 0.5, "reasoning": "r"}`, false},
		{"single quotes", `{'relevant': true, 'score': 0.5, 'reasoning': 'r'}`, false},
		{"fenced", "```json\n{\"relevant\": false, \"score\": 0.1, \"reasoning\": \"r\"}\n```", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var verdict Verdict
			err := decodeModelJSON(tc.content, &verdict)
			if (err != nil) != tc.wantErr {
				t.Fatalf("decodeModelJSON(%q) error = %v", tc.content, err)
			}
		})
	}
}

func TestKeywordList(t *testing.T) {
	if got := keywordList(nil); got != "None" {
		t.Fatalf("unexpected empty list rendering %q", got)
	}
	if got := keywordList([]string{"a", "b"}); got != "a, b" {
		t.Fatalf("unexpected list rendering %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 3); got != "abc" {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := truncate("ab", 3); got != "ab" {
		t.Fatalf("short strings should pass through, got %q", got)
	}
}

func TestPromptIncludesTitle(t *testing.T) {
	prompt := fmt.Sprintf(screeningPrompt, "My Title", "None")
	if !strings.Contains(prompt, "Title: My Title") {
		t.Fatal("prompt should embed the paper title")
	}
}
