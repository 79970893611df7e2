package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"resty.dev/v3"

	"knowledge-assist/chat-api/internal/config"
	"knowledge-assist/chat-api/internal/infrastructure/logger"
	"knowledge-assist/chat-api/internal/utils/platformerrors"
)

const (
	channelBufferSize    = 100
	errorBufferSize      = 10
	dataPrefix           = "data: "
	doneMarker           = "[DONE]"
	scannerInitialBuffer = 12 * 1024        // 12KB
	scannerMaxBuffer     = 10 * 1024 * 1024 // 10MB
)

// ErrBufferOverflow is reported when the consumer falls further behind the
// engine than the stream buffer allows. The session treats it as fatal.
var ErrBufferOverflow = fmt.Errorf("engine stream buffer overflow (limit %d)", channelBufferSize)

// StreamRequest is the question forwarded to the answer engine.
type StreamRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// Client streams raw answer events from the upstream engine.
type Client struct {
	client  *resty.Client
	baseURL string
	apiKey  string
	timeout time.Duration
}

// NewClient builds an engine client from configuration.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		client:  resty.New(),
		baseURL: normalizeBaseURL(cfg.EngineBaseURL),
		apiKey:  cfg.EngineAPIKey,
		timeout: cfg.EngineTimeout,
	}
}

// Stream invokes the engine once and fans raw event records into the
// returned channel. The event channel is closed when the engine finishes;
// failures are reported on the error channel. Raw records that are not valid
// JSON objects are forwarded as-is and left to the transformer to drop.
func (c *Client) Stream(ctx context.Context, req StreamRequest) (<-chan json.RawMessage, <-chan error, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)

	resp, err := c.doStreamingRequest(ctx, req)
	if err != nil {
		cancel()
		return nil, nil, err
	}

	events := make(chan json.RawMessage, channelBufferSize)
	errs := make(chan error, errorBufferSize)

	go func() {
		defer cancel()
		defer close(events)
		defer func() {
			if closeErr := resp.RawResponse.Body.Close(); closeErr != nil {
				log := logger.GetLogger()
				log.Error().Err(closeErr).Msg("unable to close engine response body")
			}
		}()

		scanner := bufio.NewScanner(resp.RawResponse.Body)
		scanner.Buffer(make([]byte, 0, scannerInitialBuffer), scannerMaxBuffer)

		for scanner.Scan() {
			select {
			case <-ctx.Done():
				c.sendAsyncError(errs, ctx.Err())
				return
			default:
			}

			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			data, found := strings.CutPrefix(line, dataPrefix)
			if !found {
				continue
			}
			if data == doneMarker {
				return
			}

			raw := json.RawMessage(append([]byte(nil), data...))
			select {
			case events <- raw:
			default:
				// Consumer fell too far behind; abort rather than grow unbounded.
				c.sendAsyncError(errs, ErrBufferOverflow)
				return
			}
		}

		if err := scanner.Err(); err != nil {
			c.sendAsyncError(errs, err)
		}
	}()

	return events, errs, nil
}

func (c *Client) doStreamingRequest(ctx context.Context, req StreamRequest) (*resty.Response, error) {
	r := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetDoNotParseResponse(true)
	if strings.TrimSpace(c.apiKey) != "" {
		r.SetHeader("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	}
	if r.Header.Get("Accept-Encoding") == "" {
		r.SetHeader("Accept-Encoding", "identity")
	}

	resp, err := r.Post(c.endpoint("/chat/stream"))
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, c.errorFromResponse(ctx, resp, "engine request failed")
	}
	if resp.RawResponse == nil || resp.RawResponse.Body == nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, "engine request failed: empty response body", nil, "6a6e6f62-9f0a-4a3e-8a2e-2f5cf7f7a001")
	}

	return resp, nil
}

func (c *Client) errorFromResponse(ctx context.Context, resp *resty.Response, message string) error {
	if resp == nil || resp.RawResponse == nil || resp.RawResponse.Body == nil {
		return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, message, nil, "d70b2a45-71c0-44a5-9a2e-3f0f9a2b1b02")
	}
	defer resp.RawResponse.Body.Close()
	body, err := io.ReadAll(resp.RawResponse.Body)
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, message, nil, "b5b1b7e0-23c4-4a2b-81ce-8b8de2c4bb03")
	}
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, message, nil, "f0b36e42-9f58-40cf-912a-48c62ff2bc04")
	}
	return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, fmt.Sprintf("%s: %s", message, trimmed), nil, "9c3d88e1-1d3c-4a66-8b7e-0f2de41cbd05")
}

func (c *Client) endpoint(path string) string {
	if path == "" {
		return c.baseURL
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if strings.HasPrefix(path, "/") {
		return c.baseURL + path
	}
	return c.baseURL + "/" + path
}

func (c *Client) sendAsyncError(errChan chan<- error, err error) {
	if err == nil {
		return
	}

	select {
	case errChan <- err:
	default:
	}
}

// BaseURL returns the normalized engine base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func normalizeBaseURL(base string) string {
	trimmed := strings.TrimSpace(base)
	return strings.TrimRight(trimmed, "/")
}
