package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/agentfleet/dispatcher/internal/llm"
)

const (
	patternConfidence = 0.7
	defaultConfidence = 0.5
)

// Classification maps free text onto one category of a fixed closed set.
type Classification struct {
	Category   string   `json:"category"`
	Confidence float64  `json:"confidence"`
	Reason     string   `json:"reason"`
	Indicators []string `json:"indicators"`
}

// KeywordRule is one category's fallback keyword list. Rules are evaluated
// in configured order, keywords within a rule likewise; the first substring
// match wins.
type KeywordRule struct {
	Category string
	Keywords []string
}

// Classifier turns free text into a Classification. It prefers a structured
// model call and falls back to deterministic keyword matching, so it always
// produces a routable answer even with the completion service down.
type Classifier struct {
	client          llm.CompletionClient
	model           string
	rules           []KeywordRule
	defaultCategory string
}

func NewClassifier(client llm.CompletionClient, model string, rules []KeywordRule, defaultCategory string) *Classifier {
	return &Classifier{
		client:          client,
		model:           model,
		rules:           rules,
		defaultCategory: defaultCategory,
	}
}

// Classify never fails: a broken model call or unparseable output degrades
// to pattern matching, and no pattern match degrades to the default
// category.
func (c *Classifier) Classify(ctx context.Context, text string) Classification {
	if c.client != nil && c.model != "" {
		if result, err := c.classifyWithModel(ctx, text); err == nil {
			return result
		} else {
			log.Printf("Classifier: model classification failed, using patterns: %v", err)
		}
	}
	return c.classifyWithPatterns(text)
}

func (c *Classifier) classifyWithModel(ctx context.Context, text string) (Classification, error) {
	prompt := c.buildPrompt(text)
	raw, err := c.client.Complete(ctx, prompt, llm.Options{Model: c.model, Temperature: 0})
	if err != nil {
		return Classification{}, err
	}

	result, err := parseClassification(raw)
	if err != nil {
		return Classification{}, err
	}

	if !c.knownCategory(result.Category) {
		return Classification{}, fmt.Errorf("model returned unknown category %q", result.Category)
	}
	if result.Confidence < 0 || result.Confidence > 1 {
		return Classification{}, fmt.Errorf("model returned confidence %v outside [0,1]", result.Confidence)
	}
	return result, nil
}

func (c *Classifier) buildPrompt(text string) string {
	categories := make([]string, 0, len(c.rules)+1)
	for _, rule := range c.rules {
		categories = append(categories, rule.Category)
	}
	categories = append(categories, c.defaultCategory)

	return fmt.Sprintf(`Classify the request into exactly one category of: %s.
Respond with a single JSON object, no prose:
{"category": "...", "confidence": 0.0, "reason": "...", "indicators": ["..."]}

Request: %s`, strings.Join(categories, ", "), text)
}

// parseClassification extracts the JSON object from the model output,
// tolerating surrounding prose or code fences.
func parseClassification(raw string) (Classification, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return Classification{}, fmt.Errorf("no JSON object in classifier output")
	}

	var result Classification
	if err := json.Unmarshal([]byte(raw[start:end+1]), &result); err != nil {
		return Classification{}, fmt.Errorf("failed to parse classifier output: %w", err)
	}
	if result.Category == "" {
		return Classification{}, fmt.Errorf("classifier output missing category")
	}
	return result, nil
}

func (c *Classifier) knownCategory(category string) bool {
	if category == c.defaultCategory {
		return true
	}
	for _, rule := range c.rules {
		if rule.Category == category {
			return true
		}
	}
	return false
}

// classifyWithPatterns walks the keyword table in fixed priority order and
// returns on the first substring match against the lower-cased input.
func (c *Classifier) classifyWithPatterns(text string) Classification {
	lowered := strings.ToLower(text)
	for _, rule := range c.rules {
		for _, keyword := range rule.Keywords {
			if strings.Contains(lowered, keyword) {
				return Classification{
					Category:   rule.Category,
					Confidence: patternConfidence,
					Reason:     fmt.Sprintf("pattern match: %s", keyword),
					Indicators: []string{keyword},
				}
			}
		}
	}

	return Classification{
		Category:   c.defaultCategory,
		Confidence: defaultConfidence,
		Reason:     "no pattern matched, using default category",
		Indicators: []string{},
	}
}
