package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fruitRouletteServer/state"
)

// RoundInfo is the server-authoritative view of the active round
type RoundInfo struct {
	RoundID          uint64      `json:"roundId"`
	SecondsRemaining int         `json:"secondsRemaining"`
	Phase            state.Phase `json:"phase"`
	Balance          int64       `json:"balance"`
}

// Backend is the substitution point for a server-authoritative round:
// the timer and the outcome live remotely and the local side only mirrors them.
type Backend interface {
	FetchCurrentRound(ctx context.Context) (*RoundInfo, error)
	SubmitBet(ctx context.Context, segmentID string, amount int64) error
}

// APIError is a rejected request. It unwraps to the matching engine error when the code is known.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d %s: %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return state.ErrorFromCode(e.Code)
}

// Client talks to the round API over HTTP
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// FetchCurrentRound calls GET /api/round
func (c *Client) FetchCurrentRound(ctx context.Context) (*RoundInfo, error) {
	var response struct {
		Round RoundInfo `json:"round"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/round", nil, &response); err != nil {
		return nil, err
	}
	return &response.Round, nil
}

// SubmitBet calls POST /api/round/bet
func (c *Client) SubmitBet(ctx context.Context, segmentID string, amount int64) error {
	body := map[string]interface{}{
		"segmentId": segmentID,
		"amount":    amount,
	}
	return c.do(ctx, http.MethodPost, "/api/round/bet", body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		var decoded struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.Unmarshal(raw, &decoded) == nil && decoded.Error != "" {
			apiErr.Code = decoded.Code
			apiErr.Message = decoded.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode backend response: %w", err)
	}
	return nil
}
