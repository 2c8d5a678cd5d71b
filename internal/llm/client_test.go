package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteSendsHeadersAndDefaults(t *testing.T) {
	t.Parallel()

	seen := make(chan Request, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		assert.Equal(t, DefaultVersion, r.Header.Get("anthropic-version"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req Request
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		seen <- req

		_, _ = w.Write([]byte(`{
			"id":"msg_1","type":"message","role":"assistant","model":"claude-test",
			"content":[{"type":"text","text":"{\"headlines\":[]}"}],
			"stop_reason":"end_turn","usage":{"input_tokens":12,"output_tokens":34}
		}`))
	}))
	t.Cleanup(srv.Close)

	c := New(Config{APIKey: "secret", BaseURL: srv.URL + "/"}, nil, nil)
	resp, err := c.Complete(context.Background(), Request{
		System:   "be brief",
		Messages: []Message{{Role: "user", Content: Text("hi")}},
	})
	require.NoError(t, err)

	assert.Equal(t, `{"headlines":[]}`, resp.FirstText())
	assert.Equal(t, 34, resp.Usage.OutputTokens)
	assert.Equal(t, "end_turn", resp.StopReason)

	sent := <-seen
	assert.Equal(t, DefaultModel, sent.Model)
	assert.Equal(t, DefaultMaxTokens, sent.MaxTokens)
	assert.Equal(t, "be brief", sent.System)
}

func TestCompleteUpstreamError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error"}}`))
	}))
	t.Cleanup(srv.Close)

	_, err := New(Config{APIKey: "k", BaseURL: srv.URL}, nil, nil).Complete(context.Background(),
		Request{Messages: []Message{{Role: "user", Content: Text("hi")}}})

	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusTooManyRequests, upstream.StatusCode)
	assert.JSONEq(t, `{"type":"error","error":{"type":"rate_limit_error"}}`, string(upstream.Body))
	assert.Contains(t, err.Error(), "429")
}

func TestCompleteDecodeError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	t.Cleanup(srv.Close)

	_, err := New(Config{APIKey: "k", BaseURL: srv.URL}, nil, nil).Complete(context.Background(),
		Request{Messages: []Message{{Role: "user", Content: Text("hi")}}})
	assert.ErrorContains(t, err, "decode generative response")
}

func TestCompleteTimeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	c := New(Config{APIKey: "k", BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, nil, nil)
	_, err := c.Complete(context.Background(), Request{Messages: []Message{{Role: "user", Content: Text("hi")}}})
	require.Error(t, err)
	assert.ErrorContains(t, err, "call generative service")
}

func TestCompleteRequiresConfiguration(t *testing.T) {
	t.Parallel()

	c := New(Config{}, nil, nil)
	assert.False(t, c.Configured())
	_, err := c.Complete(context.Background(), Request{Messages: []Message{{Role: "user", Content: Text("hi")}}})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = New(Config{APIKey: "k"}, nil, nil).Complete(context.Background(), Request{})
	assert.EqualError(t, err, "at least one message is required")
}

func TestFirstTextSkipsNonTextBlocks(t *testing.T) {
	t.Parallel()

	r := Response{Content: []ContentBlock{{Type: "tool_use"}, {Type: "text", Text: "hello"}}}
	assert.Equal(t, "hello", r.FirstText())
	assert.Empty(t, Response{}.FirstText())
}

func TestContentJSON(t *testing.T) {
	t.Parallel()

	var msg Message
	require.NoError(t, json.Unmarshal([]byte(`{"role":"user","content":"hola"}`), &msg))
	var text string
	require.NoError(t, json.Unmarshal(msg.Content, &text))
	assert.Equal(t, "hola", text)

	blocks := `[{"type":"text","text":"hi"},{"type":"image","source":{"type":"url","url":"https://example.com/a.png"}}]`
	require.NoError(t, json.Unmarshal([]byte(`{"role":"user","content":`+blocks+`}`), &msg))
	out, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"user","content":`+blocks+`}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"role":"user","content":{"type":"text"}}`), &msg))

	out, err = json.Marshal(Message{Role: "user", Content: Text(`say "hi"`)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"user","content":"say \"hi\""}`, string(out))
}
