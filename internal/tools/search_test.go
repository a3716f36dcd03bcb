package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSearch_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.Header.Get("X-API-KEY"))

		var req serperRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, serperRequest{Q: "world cup champions", GL: "in", Num: 5}, req)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"organic": [
				{"title": "FIFA World Cup", "link": "https://example.com/wc", "snippet": "Argentina", "position": 1}
			],
			"peopleAlsoAsk": [
				{"question": "Who won in 2022?", "snippet": "Argentina", "title": "2022 final", "link": "https://example.com/2022"}
			]
		}`))
	}))
	defer srv.Close()

	s := NewWebSearch(SearchConfig{Endpoint: srv.URL, APIKey: "secret"}, silentLog())
	res, err := s.Search(context.Background(), "world cup champions", "in")
	require.NoError(t, err)

	assert.Equal(t, []SearchEntry{{Title: "FIFA World Cup", Link: "https://example.com/wc", Snippet: "Argentina"}}, res.Results)
	require.Len(t, res.PeopleAlsoAsk, 1)
	assert.Equal(t, "Who won in 2022?", res.PeopleAlsoAsk[0].Question)
}

func TestWebSearch_EmptyResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	s := NewWebSearch(SearchConfig{Endpoint: srv.URL, Num: 3}, silentLog())
	res, err := s.Search(context.Background(), "nothing", "")
	require.NoError(t, err)
	assert.NotNil(t, res.Results)
	assert.NotNil(t, res.PeopleAlsoAsk)

	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"results":[],"peopleAlsoAsk":[]}`, string(data))
}

func TestWebSearch_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Unauthorized."}`, http.StatusForbidden)
	}))
	defer srv.Close()

	s := NewWebSearch(SearchConfig{Endpoint: srv.URL}, silentLog())
	_, err := s.Search(context.Background(), "q", "in")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "Unauthorized")
}

func TestWebSearch_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewWebSearch(SearchConfig{Endpoint: srv.URL}, silentLog())
	_, err := s.Search(ctx, "q", "in")
	assert.ErrorIs(t, err, context.Canceled)
}
