package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aigateway/circuitbreaker"
	"aigateway/gemini"
)

func TestHTTPDirectProxy_NonStreamSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key-123", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(gemini.Response{
			Candidates: []gemini.Candidate{{Content: gemini.Content{Role: "model", Parts: []gemini.Part{{Text: "hi"}}}}},
		})
	}))
	defer srv.Close()

	breaker := circuitbreaker.NewHealthManager(circuitbreaker.DefaultConfig())
	breaker.InitializeEndpoints([]string{srv.URL})
	proxy := NewHTTPDirectProxy(breaker, 0, 0)

	result, err := proxy.ProxyChatCompletions(context.Background(), &gemini.Request{}, srv.URL, "key-123", false)
	require.NoError(t, err)
	require.NotNil(t, result.Response)
	assert.Equal(t, "hi", result.Response.Candidates[0].Content.Parts[0].Text)
}

func TestHTTPDirectProxy_NonOKRecordsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	breaker := circuitbreaker.NewHealthManager(circuitbreaker.DefaultConfig())
	breaker.InitializeEndpoints([]string{srv.URL})
	proxy := NewHTTPDirectProxy(breaker, 0, 0)

	_, err := proxy.ProxyChatCompletions(context.Background(), &gemini.Request{}, srv.URL, "key-123", false)
	require.Error(t, err)

	failures, circuitOpen, _, exists := breaker.GetHealthDebug(srv.URL)
	require.True(t, exists)
	assert.Equal(t, 1, failures)
	assert.False(t, circuitOpen)
}

func TestHTTPDirectProxy_StreamReturnsRawBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	proxy := NewHTTPDirectProxy(nil, 0, 0)
	result, err := proxy.ProxyChatCompletions(context.Background(), &gemini.Request{}, srv.URL, "key", true)
	require.NoError(t, err)
	require.NotNil(t, result.StreamBody)
	defer result.StreamBody.Close()
}
