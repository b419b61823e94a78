// Package dispatch invokes the scheduling engine. It prefers the remote
// endpoint and falls back to the in-process engine when the endpoint is
// unconfigured or unreachable. Both paths run the same recurrence library,
// so the fallback is not a second implementation of the algorithm.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/homedeskhq/homedesk/internal/service"
	"github.com/homedeskhq/homedesk/pkg/auth"
)

// Engine is the in-process fallback surface.
type Engine interface {
	Process(ctx context.Context) (*service.ProcessResult, error)
	CompleteInstance(ctx context.Context, id uuid.UUID) (*service.CompleteResult, error)
}

// Client calls the remote scheduling endpoint with dual auth headers.
// There is no implicit retry; callers needing resilience bring their own
// backoff.
type Client struct {
	endpoint      string
	serviceSecret string
	tokens        *auth.TokenManager
	httpClient    *http.Client
	local         Engine
	log           *slog.Logger
}

func New(endpoint, serviceSecret string, tokens *auth.TokenManager, local Engine, log *slog.Logger) *Client {
	return &Client{
		endpoint:      endpoint,
		serviceSecret: serviceSecret,
		tokens:        tokens,
		// Hard cap for callers that pass no deadline context; a hung
		// remote degrades into the local fallback instead of stalling.
		httpClient: &http.Client{Timeout: 30 * time.Second},
		local:      local,
		log:        log,
	}
}

type request struct {
	Action string `json:"action"`
	TaskID string `json:"taskId,omitempty"`
}

type envelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

// Process triggers a batch generation run.
func (c *Client) Process(ctx context.Context) (*service.ProcessResult, error) {
	if c.endpoint == "" {
		return c.local.Process(ctx)
	}

	var result service.ProcessResult
	err := c.post(ctx, request{Action: "process"}, &result)
	if err != nil {
		var re *remoteError
		if errors.As(err, &re) {
			return nil, err
		}
		c.log.Warn("remote endpoint unreachable, running locally", slog.Any("err", err))
		return c.local.Process(ctx)
	}
	return &result, nil
}

// CompleteInstance marks a task complete and cascades the next occurrence.
func (c *Client) CompleteInstance(ctx context.Context, id uuid.UUID) (*service.CompleteResult, error) {
	if c.endpoint == "" {
		return c.local.CompleteInstance(ctx, id)
	}

	var data struct {
		Success    bool       `json:"success"`
		NextTaskID *uuid.UUID `json:"nextTaskId"`
	}
	err := c.post(ctx, request{Action: "complete", TaskID: id.String()}, &data)
	if err != nil {
		var re *remoteError
		if errors.As(err, &re) {
			return nil, err
		}
		c.log.Warn("remote endpoint unreachable, running locally", slog.Any("err", err))
		return c.local.CompleteInstance(ctx, id)
	}
	return &service.CompleteResult{Success: data.Success, NextTaskID: data.NextTaskID}, nil
}

// remoteError marks a response the endpoint actually produced. These are
// returned as-is: the fallback path exists for availability, not to retry
// requests the remote already rejected.
type remoteError struct {
	status int
	msg    string
}

func (e *remoteError) Error() string {
	return fmt.Sprintf("remote endpoint: %s (status %d)", e.msg, e.status)
}

func (c *Client) post(ctx context.Context, req request, out interface{}) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	token, err := c.tokens.GenerateAutomationToken("scheduler")
	if err != nil {
		return fmt.Errorf("generate automation token: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)
	if c.serviceSecret != "" {
		httpReq.Header.Set("x-service-secret", c.serviceSecret)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("call endpoint: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !env.OK {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &remoteError{status: resp.StatusCode, msg: msg}
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}
