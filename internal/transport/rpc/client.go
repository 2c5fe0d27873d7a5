// Package rpc is the remote Executor: it ships execute requests to a
// nosqlited server over HTTP.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/nosqlite/internal/domain"
	"github.com/kailas-cloud/nosqlite/internal/logger"
	"github.com/kailas-cloud/nosqlite/internal/transport/wire"
	"github.com/kailas-cloud/nosqlite/internal/version"
)

// DefaultTimeout bounds a whole execute call, including reading the response.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of a non-2xx body is read.
const maxErrorBody = 64 << 10

// Config holds the remote endpoint settings.
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
	// HTTPClient overrides the default client. Its Timeout is left untouched.
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client implements the execute operation against a remote server.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	logger   *zap.Logger
}

// New creates a Client for the server at cfg.URL.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(cfg.URL, "/")
	if base == "" {
		return nil, errors.New("rpc: server url is required")
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return nil, fmt.Errorf("rpc: unsupported url scheme in %q", cfg.URL)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		endpoint: base + wire.ExecutePath,
		apiKey:   cfg.APIKey,
		http:     hc,
		logger:   log,
	}, nil
}

// Execute sends req and returns the rows. Server-side failures are mapped
// back to domain errors; anything that prevents a well-formed answer is a
// *domain.TransportError carrying the statement texts.
func (c *Client) Execute(ctx context.Context, req domain.Request) (domain.Response, error) {
	body, err := wire.Marshal(req)
	if err != nil {
		return domain.Response{}, c.transportErr(req, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.Response{}, c.transportErr(req, err)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Content-Type", wire.ContentTypeMsgpack)
	httpReq.Header.Set("Accept", wire.ContentTypeMsgpack)
	httpReq.Header.Set("X-Request-Id", requestID)
	httpReq.Header.Set("User-Agent", version.UserAgent())
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return domain.Response{}, c.transportErr(req, err)
	}
	defer httpResp.Body.Close()

	logger.FromContext(ctx, c.logger).Debug("rpc execute",
		zap.String("request_id", requestID),
		zap.String("target", req.Target),
		zap.Int("statements", len(req.Commands)),
		zap.Int("status", httpResp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if httpResp.StatusCode != http.StatusOK {
		return domain.Response{}, c.decodeError(req, httpResp)
	}

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return domain.Response{}, c.transportErr(req, err)
	}
	resp, err := wire.DecodeResponse(data)
	if err != nil {
		return domain.Response{}, c.transportErr(req, err)
	}
	return resp, nil
}

func (c *Client) decodeError(req domain.Request, httpResp *http.Response) error {
	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBody))
	if err != nil {
		return c.transportErr(req, err)
	}
	var er wire.ErrorResponse
	if err := json.Unmarshal(raw, &er); err != nil || er.Code == "" {
		return c.transportErr(req, fmt.Errorf("unexpected status %d: %s", httpResp.StatusCode, bytes.TrimSpace(raw)))
	}

	switch er.Code {
	case wire.CodeValidationFailed:
		return &domain.ValidationError{Field: er.Field, Reason: er.Message}
	case wire.CodeStorageError:
		return &domain.StorageError{Statement: er.Statement, Err: errors.New(er.Message)}
	case wire.CodeUnauthorized:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, er.Message)
	default:
		return c.transportErr(req, fmt.Errorf("server returned %d %s: %s", httpResp.StatusCode, er.Code, er.Message))
	}
}

func (c *Client) transportErr(req domain.Request, err error) error {
	return &domain.TransportError{Commands: req.SQLText(), Err: err}
}
