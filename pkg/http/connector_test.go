package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type echoBody struct {
	Text string `json:"text"`
}

func TestConnector_DoRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/echo", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "formchat-test", r.Header.Get("User-Agent"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "abc", r.Header.Get("X-Request-ID"))

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"text":"ping"}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"pong"}`))
	}))
	defer server.Close()

	c := NewConnector(&ConnectorConfig{BaseURL: server.URL, Logger: zap.NewNop()},
		WithRequestLogging(),
		WithAuthToken("secret"),
		WithUserAgent("formchat-test"),
	)

	var resp echoBody
	err := c.DoRequest(context.Background(), http.MethodPost, "/v1/echo", echoBody{Text: "ping"}, &resp, WithHeader("X-Request-ID", "abc"))
	require.NoError(t, err)
	assert.Equal(t, "pong", resp.Text)
}

func TestConnector_WithURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"), "empty token sends no header")
		assert.Equal(t, "/hooks", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := NewConnector(&ConnectorConfig{BaseURL: "http://unused.invalid", Logger: zap.NewNop()}, WithAuthToken(""))

	err := c.DoRequest(context.Background(), http.MethodPost, "", echoBody{Text: "x"}, nil, WithURL(server.URL+"/hooks"))
	assert.NoError(t, err)
}

func TestConnector_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))

	c := NewConnector(&ConnectorConfig{BaseURL: server.URL, Logger: zap.NewNop()})

	err := c.DoRequest(context.Background(), http.MethodGet, "/", nil, nil)
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)
	assert.Contains(t, httpErr.Message, "model not loaded")

	server.Close()

	err = c.DoRequest(context.Background(), http.MethodGet, "/", nil, nil)
	var netErr *NetworkError
	assert.True(t, errors.As(err, &netErr))
}

func TestConnector_ResponseLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text":"` + strings.Repeat("a", 64) + `"}`))
	}))
	defer server.Close()

	limited := NewConnector(&ConnectorConfig{BaseURL: server.URL + "/", Logger: zap.NewNop()}, WithMaxResponseSize(16))
	err := limited.DoRequest(context.Background(), http.MethodGet, "/", nil, nil)
	assert.ErrorIs(t, err, ErrResponseTooLarge)

	unlimited := NewConnector(&ConnectorConfig{BaseURL: server.URL, Logger: zap.NewNop()}, WithMaxResponseSize(0))
	var resp echoBody
	require.NoError(t, unlimited.DoRequest(context.Background(), http.MethodGet, "/", nil, &resp))
	assert.Len(t, resp.Text, 64)
}
