package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// HTTPClient talks to an OpenAI-compatible completion endpoint, typically a
// local text-generation server.
type HTTPClient struct {
	apiBase    string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPClient(apiBase, apiKey string) *HTTPClient {
	return &HTTPClient{
		apiBase: apiBase,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (c *HTTPClient) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	request := chatRequest{
		Model:       opts.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", c.apiBase)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &ModelError{Model: opts.Model, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ModelError{Model: opts.Model, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp struct {
			Error struct {
				Message string `json:"message"`
				Type    string `json:"type"`
				Code    string `json:"code"`
			} `json:"error"`
		}

		if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Error.Message != "" {
			return "", &ModelError{Model: opts.Model, Err: fmt.Errorf("completion API error (%s): %s", errorResp.Error.Type, errorResp.Error.Message)}
		}

		return "", &ModelError{Model: opts.Model, Err: fmt.Errorf("completion API error (status %d): %s", resp.StatusCode, string(body))}
	}

	var response chatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", &ModelError{Model: opts.Model, Err: fmt.Errorf("failed to unmarshal response: %w", err)}
	}

	if len(response.Choices) == 0 {
		return "", &ModelError{Model: opts.Model, Err: fmt.Errorf("completion returned no choices")}
	}

	log.Printf("Completion response - ID: %s, Model: %s, Tokens: %d",
		response.ID, response.Model, response.Usage.TotalTokens)

	return response.Choices[0].Message.Content, nil
}

// Probe issues the cheapest possible completion against a model to confirm
// the service can serve it.
func (c *HTTPClient) Probe(ctx context.Context, model string) error {
	_, err := c.Complete(ctx, "ping", Options{Model: model, MaxTokens: 1})
	return err
}

// SetAPIBase allows overriding the API base URL (for testing or proxies)
func (c *HTTPClient) SetAPIBase(apiBase string) {
	c.apiBase = apiBase
}

// SetHTTPClient allows setting a custom HTTP client
func (c *HTTPClient) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
