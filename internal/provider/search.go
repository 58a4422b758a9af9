package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"go.uber.org/zap"

	"mugo_plumbing_backend/internal/common"
	"mugo_plumbing_backend/internal/platform/elasticsearch"
	"mugo_plumbing_backend/internal/user"
)

// DefaultSearchLimit applies when a search does not ask for a size.
const DefaultSearchLimit = 20

// SearchDocument is the providers index document.
type SearchDocument struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	DisplayName  string    `json:"display_name,omitempty"`
	BusinessName string    `json:"business_name,omitempty"`
	Bio          string    `json:"bio,omitempty"`
	Location     string    `json:"location"`
	Services     []string  `json:"services"`
	Rating       float64   `json:"rating"`
	TotalJobs    int       `json:"total_jobs"`
	HourlyRate   float64   `json:"hourly_rate"`
	IsAvailable  bool      `json:"is_available"`
	IsApproved   bool      `json:"is_approved"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewSearchDocument builds the index document. profile may be nil.
func NewSearchDocument(p *Provider, profile *user.User) SearchDocument {
	doc := SearchDocument{
		ID:          p.ID,
		UserID:      p.UserID,
		Location:    p.Location,
		Services:    []string(p.Services),
		Rating:      p.Rating,
		TotalJobs:   p.TotalJobs,
		HourlyRate:  p.HourlyRate,
		IsAvailable: p.IsAvailable,
		IsApproved:  p.IsApproved,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if doc.Services == nil {
		doc.Services = []string{}
	}
	if p.Bio != nil {
		doc.Bio = *p.Bio
	}
	if profile != nil {
		doc.DisplayName = profile.DisplayName
		if profile.BusinessName != nil {
			doc.BusinessName = *profile.BusinessName
		}
	}
	return doc
}

// SearchQuery is a free-text provider search. Only approved providers are returned.
type SearchQuery struct {
	Text      string
	ServiceID string
	Limit     int
}

// SearchIndex keeps the provider search index in sync and queries it.
type SearchIndex interface {
	Index(ctx context.Context, doc SearchDocument) error
	BulkIndex(ctx context.Context, docs []SearchDocument) (int, error)
	Search(ctx context.Context, q SearchQuery) ([]SearchDocument, error)
}

// NewSearchIndex returns the Elasticsearch index, or a disabled index when search is not configured.
func NewSearchIndex(client *elasticsearch.ESClientWrapper, logger *zap.Logger) SearchIndex {
	if client == nil {
		return disabledIndex{}
	}
	return &esIndex{client: client, logger: logger.Named("provider_search")}
}

type disabledIndex struct{}

func (disabledIndex) Index(context.Context, SearchDocument) error { return nil }

func (disabledIndex) BulkIndex(context.Context, []SearchDocument) (int, error) { return 0, nil }

func (disabledIndex) Search(context.Context, SearchQuery) ([]SearchDocument, error) {
	return nil, common.ErrServiceUnavailable.WithDetails("Provider search is not enabled.")
}

type esIndex struct {
	client *elasticsearch.ESClientWrapper
	logger *zap.Logger
}

func (e *esIndex) Index(ctx context.Context, doc SearchDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal provider search document: %w", err)
	}
	res, err := esapi.IndexRequest{
		Index:      elasticsearch.ProvidersIndexName,
		DocumentID: doc.ID,
		Body:       bytes.NewReader(body),
	}.Do(ctx, e.client.Client)
	if err != nil {
		return common.RemoteFailure("index provider", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return common.RemoteFailure("index provider", fmt.Errorf("status %s", res.Status()))
	}
	return nil
}

func (e *esIndex) BulkIndex(ctx context.Context, docs []SearchDocument) (int, error) {
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client: e.client.Client,
		Index:  elasticsearch.ProvidersIndexName,
	})
	if err != nil {
		return 0, fmt.Errorf("create bulk indexer: %w", err)
	}

	var failed int64
	for _, doc := range docs {
		body, err := json.Marshal(doc)
		if err != nil {
			return 0, fmt.Errorf("marshal provider search document: %w", err)
		}
		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: doc.ID,
			Body:       bytes.NewReader(body),
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				atomic.AddInt64(&failed, 1)
				e.logger.Warn("Bulk index item failed",
					zap.String("providerID", item.DocumentID),
					zap.String("reason", res.Error.Reason),
					zap.Error(err))
			},
		})
		if err != nil {
			return 0, common.RemoteFailure("bulk index providers", err)
		}
	}
	if err := bi.Close(ctx); err != nil {
		return 0, common.RemoteFailure("bulk index providers", err)
	}

	stats := bi.Stats()
	if failed > 0 {
		return int(stats.NumFlushed), common.RemoteFailure("bulk index providers", fmt.Errorf("%d documents failed", failed))
	}
	return int(stats.NumFlushed), nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string         `json:"_id"`
			Source SearchDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func buildSearchBody(q SearchQuery) map[string]interface{} {
	filters := []interface{}{
		map[string]interface{}{"term": map[string]interface{}{"is_approved": true}},
	}
	if q.ServiceID != "" {
		filters = append(filters, map[string]interface{}{"term": map[string]interface{}{"services": q.ServiceID}})
	}

	var must interface{} = map[string]interface{}{"match_all": map[string]interface{}{}}
	if text := strings.TrimSpace(q.Text); text != "" {
		must = map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     text,
				"fields":    []string{"business_name^3", "display_name^2", "bio", "location"},
				"fuzziness": "AUTO",
			},
		}
	}

	return map[string]interface{}{
		"size": q.Limit,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   must,
				"filter": filters,
			},
		},
		"sort": []interface{}{
			"_score",
			map[string]interface{}{"rating": map[string]interface{}{"order": "desc"}},
		},
	}
}

func (e *esIndex) Search(ctx context.Context, q SearchQuery) ([]SearchDocument, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultSearchLimit
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(buildSearchBody(q)); err != nil {
		return nil, fmt.Errorf("encode search query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(elasticsearch.ProvidersIndexName),
		e.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, common.RemoteFailure("search providers", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, common.RemoteFailure("search providers", fmt.Errorf("status %s", res.Status()))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, common.RemoteFailure("search providers", err)
	}
	out := make([]SearchDocument, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		doc := h.Source
		if doc.ID == "" {
			doc.ID = h.ID
		}
		out = append(out, doc)
	}
	return out, nil
}
