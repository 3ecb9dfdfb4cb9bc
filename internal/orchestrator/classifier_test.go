package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyPrefersModelOutput(t *testing.T) {
	client := newFakeCompletion()
	client.responses["clf"] = `{"category": "code", "confidence": 0.92, "reason": "asks for a unit test", "indicators": ["unit test"]}`

	c := NewClassifier(client, "clf", testRules(), "conversation")
	result := c.Classify(context.Background(), "write a unit test for the parser")

	assert.Equal(t, "code", result.Category)
	assert.Equal(t, 0.92, result.Confidence)
	assert.Equal(t, []string{"unit test"}, result.Indicators)
}

func TestClassifyToleratesProseAroundJSON(t *testing.T) {
	client := newFakeCompletion()
	client.responses["clf"] = "Sure! Here is the classification:\n```json\n" +
		`{"category": "orchestration", "confidence": 0.8, "reason": "deployment request", "indicators": ["deploy"]}` +
		"\n```"

	c := NewClassifier(client, "clf", testRules(), "conversation")
	result := c.Classify(context.Background(), "deploy it")

	assert.Equal(t, "orchestration", result.Category)
	assert.Equal(t, 0.8, result.Confidence)
}

func TestClassifyFallsBackOnModelFailure(t *testing.T) {
	client := newFakeCompletion()
	client.down["clf"] = errors.New("service down")

	c := NewClassifier(client, "clf", testRules(), "conversation")
	result := c.Classify(context.Background(), "let's deploy the cluster")

	assert.Equal(t, "orchestration", result.Category)
	assert.Equal(t, 0.7, result.Confidence)
	assert.Equal(t, "pattern match: deploy", result.Reason)
	assert.Equal(t, []string{"deploy"}, result.Indicators)
}

func TestClassifyFallsBackOnUnparseableOutput(t *testing.T) {
	for _, raw := range []string{
		"definitely a coding question",
		`{"category": }`,
		`{"confidence": 0.9}`,
	} {
		client := newFakeCompletion()
		client.responses["clf"] = raw

		c := NewClassifier(client, "clf", testRules(), "conversation")
		result := c.Classify(context.Background(), "fix this bug please")

		assert.Equal(t, "code", result.Category, "raw output %q", raw)
		assert.Equal(t, 0.7, result.Confidence)
		assert.Equal(t, []string{"bug"}, result.Indicators)
	}
}

func TestClassifyRejectsUnknownCategoryAndBadConfidence(t *testing.T) {
	for _, raw := range []string{
		`{"category": "astrology", "confidence": 0.9}`,
		`{"category": "code", "confidence": 1.7}`,
		`{"category": "code", "confidence": -0.1}`,
	} {
		client := newFakeCompletion()
		client.responses["clf"] = raw

		c := NewClassifier(client, "clf", testRules(), "conversation")
		result := c.Classify(context.Background(), "refactor this function")

		// The invalid model answer degrades to pattern matching.
		assert.Equal(t, "code", result.Category, "raw output %q", raw)
		assert.Equal(t, 0.7, result.Confidence)
	}
}

func TestClassifyDefaultsWhenNothingMatches(t *testing.T) {
	client := newFakeCompletion()
	client.down["clf"] = errors.New("service down")

	c := NewClassifier(client, "clf", testRules(), "conversation")
	result := c.Classify(context.Background(), "how are you today?")

	assert.Equal(t, "conversation", result.Category)
	assert.Equal(t, 0.5, result.Confidence)
	assert.Empty(t, result.Indicators)
	require.NotNil(t, result.Indicators)
}

func TestClassifyFirstMatchWins(t *testing.T) {
	client := newFakeCompletion()
	client.down["clf"] = errors.New("service down")

	// "code" is ahead of "orchestration" in priority order, so a request
	// matching both categories lands on code.
	c := NewClassifier(client, "clf", testRules(), "conversation")
	result := c.Classify(context.Background(), "write a function to deploy the service")

	assert.Equal(t, "code", result.Category)
	assert.Equal(t, []string{"function"}, result.Indicators)
}

func TestClassifyMatchesCaseInsensitively(t *testing.T) {
	c := NewClassifier(nil, "", testRules(), "conversation")
	result := c.Classify(context.Background(), "DEPLOY the new build")

	assert.Equal(t, "orchestration", result.Category)
}
