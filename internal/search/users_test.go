package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"admin-console/internal/client"
	"admin-console/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type esRequest struct {
	method string
	path   string
	body   string
}

func newFakeES(t *testing.T, handler func(r esRequest) (int, string)) (*UserIndex, *[]esRequest) {
	t.Helper()
	var reqs []esRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		req := esRequest{method: r.Method, path: r.URL.Path, body: string(raw)}
		reqs = append(reqs, req)
		status, body := handler(req)
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	es, err := client.NewESClientWithConfig(elasticsearch.Config{Addresses: []string{srv.URL}}, nil)
	require.NoError(t, err)
	return NewUserIndex(es, "users", nil), &reqs
}

func TestSync(t *testing.T) {
	idx, reqs := newFakeES(t, func(esRequest) (int, string) {
		return http.StatusOK, `{"errors":false,"items":[]}`
	})

	n, err := idx.Sync(context.Background(), []models.User{
		{UserID: "1", Username: "ann", Email: "ann@example.com", UserRole: "student"},
		{Username: "no-id"},
		{UserID: "2", Username: "bob", Email: "bob@example.com", UserRole: "admin"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, *reqs, 1)
	got := (*reqs)[0]
	assert.Equal(t, "/users/_bulk", got.path)
	lines := strings.Split(strings.TrimSpace(got.body), "\n")
	require.Len(t, lines, 4)
	assert.JSONEq(t, `{"index":{"_id":"1"}}`, lines[0])
	assert.Contains(t, lines[3], `"username":"bob"`)
}

func TestSync_Empty(t *testing.T) {
	idx, reqs := newFakeES(t, func(esRequest) (int, string) { return http.StatusOK, `{}` })

	n, err := idx.Sync(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, *reqs)
}

func TestSync_PartialFailure(t *testing.T) {
	idx, _ := newFakeES(t, func(esRequest) (int, string) {
		return http.StatusOK, `{"errors":true,"items":[{"index":{"status":201}},{"index":{"status":400,"error":{"reason":"mapper_parsing_exception"}}}]}`
	})

	n, err := idx.Sync(context.Background(), []models.User{{UserID: "1"}, {UserID: "2"}})
	require.Error(t, err)
	assert.Equal(t, 1, n)
}

func TestSearch(t *testing.T) {
	idx, reqs := newFakeES(t, func(esRequest) (int, string) {
		return http.StatusOK, `{"hits":{"hits":[{"_source":{"user_id":"1","username":"ann","email":"ann@example.com","user_role":"student"}}]}}`
	})

	users, err := idx.Search(context.Background(), " Ann ", "student")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "ann", users[0].Username)

	got := (*reqs)[0]
	assert.Equal(t, "/users/_search", got.path)
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(got.body), &body))
	boolQuery := body["query"].(map[string]any)["bool"].(map[string]any)
	assert.Len(t, boolQuery["should"], 3)
	assert.Contains(t, got.body, `"user_role":"student"`)
	assert.Contains(t, got.body, `"ann"`)
}

func TestSearch_Error(t *testing.T) {
	idx, _ := newFakeES(t, func(esRequest) (int, string) {
		return http.StatusNotFound, `{"error":{"type":"index_not_found_exception","reason":"no such index [users]"}}`
	})

	_, err := idx.Search(context.Background(), "ann", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index_not_found_exception")
}

func TestBuildQuery(t *testing.T) {
	q := buildQuery("", "all")
	assert.Contains(t, q["query"], "match_all")

	q = buildQuery("", "admin")
	boolQuery := q["query"].(map[string]any)["bool"].(map[string]any)
	assert.NotContains(t, boolQuery, "should")
	assert.Contains(t, boolQuery, "filter")
}

func TestEnsureIndex(t *testing.T) {
	idx, reqs := newFakeES(t, func(r esRequest) (int, string) {
		if r.method == http.MethodHead {
			return http.StatusNotFound, ``
		}
		return http.StatusOK, `{"acknowledged":true}`
	})

	require.NoError(t, idx.EnsureIndex(context.Background()))
	require.Len(t, *reqs, 2)
	assert.Equal(t, http.MethodPut, (*reqs)[1].method)
	assert.Contains(t, (*reqs)[1].body, `"user_role":{"type":"keyword"}`)
}
