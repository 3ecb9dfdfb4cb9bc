package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is the HTTP client for the dispatcher API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) post(path string, request, response any) error {
	body, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s%s", c.baseURL, path)
	req, err := http.NewRequest("POST", url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var errResp ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("dispatcher error (status %d): %s", resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, response); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// SubmitTask enqueues a task on a named agent's queue.
func (c *Client) SubmitTask(request SubmitTaskRequest) (*SubmitTaskResponse, error) {
	var resp SubmitTaskResponse
	if err := c.post("/tasks", request, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Route classifies free text and dispatches it to the right agent.
func (c *Client) Route(request RouteRequest) (*RouteResponse, error) {
	var resp RouteResponse
	if err := c.post("/route", request, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Delegate forwards a task to an explicit agent and waits for the result.
func (c *Client) Delegate(request DelegateRequest) (*DelegateResponse, error) {
	var resp DelegateResponse
	if err := c.post("/delegate", request, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SystemStatus reads the fleet rollup.
func (c *Client) SystemStatus() (*SystemStatusResponse, error) {
	url := fmt.Sprintf("%s/status", c.baseURL)

	resp, err := c.httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	var status SystemStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &status, nil
}

// GetHealth checks the health of the service
func (c *Client) GetHealth() (*HealthStatus, error) {
	url := fmt.Sprintf("%s/health", c.baseURL)

	resp, err := c.httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("service unhealthy: status %d", resp.StatusCode)
	}

	var health HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return &HealthStatus{
			Service:   "dispatcher",
			Status:    "healthy",
			Timestamp: time.Now(),
		}, nil
	}

	return &health, nil
}

// SetTimeout sets the HTTP client timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.httpClient.Timeout = timeout
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
