package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wricardo/mcp-training/carsim/game/engine"
	"github.com/wricardo/mcp-training/carsim/game/service"
)

// APIError is a non-2xx response from the simulation server
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API error: %d", e.Status)
	}
	return fmt.Sprintf("API error %d: %s", e.Status, e.Message)
}

// Client drives the simulation server's REST API
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) call(ctx context.Context, method, path string, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &payload) == nil {
			apiErr.Message = payload.Error
		}
		return apiErr
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("parse %s response: %w", path, err)
	}
	return nil
}

func sessionPath(id, action string) string {
	path := "/api/sessions/" + url.PathEscape(id)
	if action != "" {
		path += "/" + action
	}
	return path
}

// CreateFieldSession starts an empty session on a width x height field
func (c *Client) CreateFieldSession(ctx context.Context, width, height int) (string, error) {
	var info service.SessionInfo
	body := map[string]int{"width": width, "height": height}
	if err := c.call(ctx, http.MethodPost, "/api/sessions", body, &info); err != nil {
		return "", err
	}
	return info.ID, nil
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, sessionPath(id, ""), nil, nil)
}

func (c *Client) AddCar(ctx context.Context, id string, car engine.CarConfig) (*service.AddCarResult, error) {
	var result service.AddCarResult
	if err := c.call(ctx, http.MethodPost, sessionPath(id, "cars"), car, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Step(ctx context.Context, id string) (*service.StepResult, error) {
	var result service.StepResult
	if err := c.call(ctx, http.MethodPost, sessionPath(id, "step"), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Run executes the remaining rounds of a session; maxRounds 0 means no limit
func (c *Client) Run(ctx context.Context, id string, maxRounds int) (*service.RunSummary, error) {
	var summary service.RunSummary
	body := map[string]int{"max_rounds": maxRounds}
	if err := c.call(ctx, http.MethodPost, sessionPath(id, "run"), body, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *Client) Reset(ctx context.Context, id string) (*engine.SimState, error) {
	var resp struct {
		Message string           `json:"message"`
		State   *engine.SimState `json:"state"`
	}
	if err := c.call(ctx, http.MethodPost, sessionPath(id, "reset"), nil, &resp); err != nil {
		return nil, err
	}
	return resp.State, nil
}

// Simulate runs a scenario on the server without creating a session
func (c *Client) Simulate(ctx context.Context, scenario *engine.ScenarioConfig) (*service.SimulateResult, error) {
	var result service.SimulateResult
	if err := c.call(ctx, http.MethodPost, "/api/simulate", scenario, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
