package elasticsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

const ProvidersIndexName = "providers"

// providersMapping returns the JSON mapping of the providers index.
func providersMapping() (string, error) {
	keywordSub := map[string]interface{}{"keyword": map[string]interface{}{"type": "keyword", "ignore_above": 256}}
	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"user_id":       map[string]interface{}{"type": "keyword"},
				"display_name":  map[string]interface{}{"type": "text", "fields": keywordSub},
				"business_name": map[string]interface{}{"type": "text", "fields": keywordSub},
				"bio":           map[string]interface{}{"type": "text"},
				"location":      map[string]interface{}{"type": "text", "fields": keywordSub},
				"services":      map[string]interface{}{"type": "keyword"},
				"rating":        map[string]interface{}{"type": "double"},
				"total_jobs":    map[string]interface{}{"type": "integer"},
				"hourly_rate":   map[string]interface{}{"type": "double"},
				"is_available":  map[string]interface{}{"type": "boolean"},
				"is_approved":   map[string]interface{}{"type": "boolean"},
				"created_at":    map[string]interface{}{"type": "date"},
				"updated_at":    map[string]interface{}{"type": "date"},
			},
		},
	}
	b, err := json.Marshal(mapping)
	if err != nil {
		return "", fmt.Errorf("error marshalling providers mapping to JSON: %w", err)
	}
	return string(b), nil
}

// CreateProvidersIndexIfNotExists creates the providers index with its mapping
// if it does not already exist.
func CreateProvidersIndexIfNotExists(ctx context.Context, client *ESClientWrapper, logger *zap.Logger) error {
	log := logger.Named("elasticsearch_index_setup")

	res, err := esapi.IndicesExistsRequest{Index: []string{ProvidersIndexName}}.Do(ctx, client.Client)
	if err != nil {
		log.Error("Error checking if providers index exists", zap.Error(err))
		return fmt.Errorf("error checking if providers index exists: %w", err)
	}
	res.Body.Close()

	if res.StatusCode == http.StatusOK {
		log.Info("Providers index already exists", zap.String("index_name", ProvidersIndexName))
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("error checking if providers index exists: status %s", res.Status())
	}

	mappingJSON, err := providersMapping()
	if err != nil {
		return err
	}

	createRes, err := esapi.IndicesCreateRequest{
		Index: ProvidersIndexName,
		Body:  strings.NewReader(mappingJSON),
	}.Do(ctx, client.Client)
	if err != nil {
		log.Error("Error creating providers index", zap.Error(err))
		return fmt.Errorf("error creating providers index %s: %w", ProvidersIndexName, err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		var errorBody map[string]interface{}
		if err := decodeJSONBody(createRes.Body, &errorBody); err == nil {
			log.Error("Failed to create providers index",
				zap.String("status", createRes.Status()),
				zap.Any("error_details", errorBody),
			)
		}
		return fmt.Errorf("failed to create providers index %s: status %s", ProvidersIndexName, createRes.Status())
	}

	log.Info("Providers index created successfully", zap.String("index_name", ProvidersIndexName))
	return nil
}
