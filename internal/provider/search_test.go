package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	es8 "github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mugo_plumbing_backend/internal/common"
	"mugo_plumbing_backend/internal/platform/elasticsearch"
	"mugo_plumbing_backend/internal/user"
)

type fakeCluster struct {
	mu       sync.Mutex
	requests map[string]string
	status   int
	response string
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	key := r.Method + " " + r.URL.Path
	f.mu.Lock()
	f.requests[key] += string(body)
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.status)
	if strings.HasSuffix(r.URL.Path, "/_bulk") {
		_, _ = io.WriteString(w, bulkResponse(string(body)))
		return
	}
	_, _ = io.WriteString(w, f.response)
}

// bulkResponse acknowledges every action line of a bulk body.
func bulkResponse(body string) string {
	var items []string
	for _, line := range strings.Split(strings.TrimSpace(body), "\n") {
		var meta map[string]map[string]interface{}
		if err := json.Unmarshal([]byte(line), &meta); err != nil {
			continue
		}
		if action, ok := meta["index"]; ok {
			if _, hasID := action["_id"]; hasID {
				items = append(items, `{"index":{"_id":"`+action["_id"].(string)+`","status":201}}`)
			}
		}
	}
	return `{"took":1,"errors":false,"items":[` + strings.Join(items, ",") + `]}`
}

func newTestSearchIndex(t *testing.T, status int, response string) (SearchIndex, *fakeCluster) {
	t.Helper()
	cluster := &fakeCluster{requests: map[string]string{}, status: status, response: response}
	srv := httptest.NewServer(cluster)
	t.Cleanup(srv.Close)

	client, err := es8.NewClient(es8.Config{Addresses: []string{srv.URL}, MaxRetries: 0, DisableRetry: true})
	require.NoError(t, err)
	return NewSearchIndex(&elasticsearch.ESClientWrapper{Client: client}, zap.NewNop()), cluster
}

func TestESIndex_Search(t *testing.T) {
	response := `{"hits":{"hits":[
		{"_id":"p1","_source":{"id":"p1","business_name":"Moyo Plumbing","rating":4.8,"services":["drain"],"is_approved":true}},
		{"_id":"p2","_source":{"business_name":"Drain Kings","rating":4.1,"services":["drain"],"is_approved":true}}
	]}}`
	index, cluster := newTestSearchIndex(t, http.StatusOK, response)

	got, err := index.Search(context.Background(), SearchQuery{Text: "drain", ServiceID: "drain"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Moyo Plumbing", got[0].BusinessName)
	assert.Equal(t, "p2", got[1].ID)

	sent := cluster.requests["POST /providers/_search"]
	require.NotEmpty(t, sent)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(sent), &body))
	assert.EqualValues(t, DefaultSearchLimit, body["size"])
	assert.Contains(t, sent, `"is_approved":true`)
	assert.Contains(t, sent, `"services":"drain"`)
	assert.Contains(t, sent, `"fuzziness":"AUTO"`)
}

func TestESIndex_Search_ClusterError(t *testing.T) {
	index, _ := newTestSearchIndex(t, http.StatusBadRequest, `{"error":"bad query"}`)
	_, err := index.Search(context.Background(), SearchQuery{Text: "drain"})
	assert.ErrorIs(t, err, common.ErrRemoteFailure)
}

func TestESIndex_Index(t *testing.T) {
	index, cluster := newTestSearchIndex(t, http.StatusCreated, `{"result":"created"}`)
	bio := "Licensed plumber"
	p := NewPending("p1", []string{"drain"}, "Harare", 30, &bio, baseTime)
	business := "Moyo Plumbing"

	err := index.Index(context.Background(), NewSearchDocument(p, &user.User{ID: "p1", DisplayName: "Tendai", BusinessName: &business}))
	require.NoError(t, err)

	var sent SearchDocument
	require.NoError(t, json.Unmarshal([]byte(cluster.requests["PUT /providers/_doc/p1"]), &sent))
	assert.Equal(t, "Moyo Plumbing", sent.BusinessName)
	assert.Equal(t, "Licensed plumber", sent.Bio)
	assert.False(t, sent.IsApproved)
}

func TestESIndex_BulkIndex(t *testing.T) {
	index, cluster := newTestSearchIndex(t, http.StatusOK, "")
	docs := []SearchDocument{
		NewSearchDocument(NewPending("p1", []string{"drain"}, "Harare", 30, nil, baseTime), nil),
		NewSearchDocument(NewPending("p2", []string{"leak"}, "Harare", 30, nil, baseTime), nil),
	}

	n, err := index.BulkIndex(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var bulk string
	for k, v := range cluster.requests {
		if strings.HasSuffix(k, "/_bulk") {
			bulk += v
		}
	}
	assert.Contains(t, bulk, `"_id":"p1"`)
	assert.Contains(t, bulk, `"_id":"p2"`)
}

func TestBuildSearchBody_MatchAllWithoutText(t *testing.T) {
	body := buildSearchBody(SearchQuery{Limit: 5})
	query := body["query"].(map[string]interface{})["bool"].(map[string]interface{})
	assert.Contains(t, query["must"], "match_all")
	assert.Len(t, query["filter"], 1)
	assert.Equal(t, 5, body["size"])
}
