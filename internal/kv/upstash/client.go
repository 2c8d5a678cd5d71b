// Package upstash implements kv.Store over the Upstash Redis REST protocol.
package upstash

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/JakeFAU/copygate/internal/kv"
)

const maxReplyBytes = 4 << 20

// Config controls the REST endpoint and per-call budget.
type Config struct {
	URL     string
	Token   string
	Timeout time.Duration
}

// Client sends one REST call per store operation. It holds no mutable state.
type Client struct {
	baseURL    string
	token      string
	timeout    time.Duration
	httpClient *http.Client
}

// New builds a Client. It returns kv.ErrNotConfigured when the URL or token is missing so
// callers can fall back to kv.Unconfigured.
func New(cfg Config, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" || strings.TrimSpace(cfg.Token) == "" {
		return nil, kv.ErrNotConfigured
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		token:      cfg.Token,
		timeout:    timeout,
		httpClient: httpClient,
	}, nil
}

// Get implements kv.Store.
func (c *Client) Get(ctx context.Context, key string) kv.Reply {
	return c.do(ctx, "GET", key)
}

// SetWithExpiry implements kv.Store.
func (c *Client) SetWithExpiry(ctx context.Context, key, value string, ttl time.Duration) kv.Reply {
	return c.do(ctx, "SET", key, value, "EX", strconv.FormatInt(kv.TTLSeconds(ttl), 10))
}

// Increment implements kv.Store.
func (c *Client) Increment(ctx context.Context, key string) kv.Reply {
	return c.do(ctx, "INCR", key)
}

type restReply struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

func (c *Client) do(ctx context.Context, command string, args ...string) kv.Reply {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(append([]string{command}, args...))
	if err != nil {
		return kv.Unavailable(fmt.Errorf("encode %s command: %w", command, err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return kv.Unavailable(fmt.Errorf("build %s request: %w", command, err))
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return kv.Unavailable(kv.TransportError(command, err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return kv.Unavailable(kv.TransportError(command, fmt.Errorf("read reply: %w", err)))
	}
	var reply restReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return kv.Unavailable(kv.TransportError(command,
			fmt.Errorf("decode reply (status %d): %w", resp.StatusCode, err)))
	}
	if reply.Error != "" {
		return kv.Unavailable(kv.TransportError(command, errors.New(reply.Error)))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return kv.Unavailable(kv.TransportError(command, fmt.Errorf("unexpected status %d", resp.StatusCode)))
	}
	return decodeResult(reply.Result)
}

func decodeResult(result json.RawMessage) kv.Reply {
	trimmed := bytes.TrimSpace(result)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return kv.Absent()
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return kv.Unavailable(kv.TransportError("decode", err))
		}
		return kv.OK(s)
	}
	return kv.OK(string(trimmed))
}
