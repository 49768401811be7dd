package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/recovery/internal/domain/types"
)

const maxResponseBytes = 4 << 20

// Client talks to a running recovery server.
type Client struct {
	baseURL string
	client  *http.Client
}

// RemoteError is a non-2xx answer from the server.
type RemoteError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: status %d (%s): %s [request %s]", ErrRemote, e.Status, e.Code, e.Message, e.RequestID)
}

// Unwrap lets errors.Is match ErrRemote.
func (e *RemoteError) Unwrap() error { return ErrRemote }

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Estimate posts req to /estimate.
func (c *Client) Estimate(ctx context.Context, req types.EstimateRequest) (types.EstimateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return types.EstimateResponse{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/estimate", bytes.NewReader(body))
	if err != nil {
		return types.EstimateResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	id := uuid.NewString()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", id)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return types.EstimateResponse{}, fmt.Errorf("%w: %w", ErrRemote, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return types.EstimateResponse{}, fmt.Errorf("%w: read body: %w", ErrRemote, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		remote := &RemoteError{Status: resp.StatusCode, RequestID: id}
		var e struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &e) == nil {
			remote.Code, remote.Message = e.Code, e.Message
		} else {
			remote.Message = strings.TrimSpace(string(data))
		}
		return types.EstimateResponse{}, remote
	}

	var out types.EstimateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return types.EstimateResponse{}, fmt.Errorf("%w: decode body: %w", ErrRemote, err)
	}
	return out, nil
}
