package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"

	"admin-console/internal/config"
	"admin-console/internal/util"
)

type ESClient struct {
	Client *elasticsearch.Client
	logger *zap.Logger
}

func NewElasticsearchClient(cfg *config.Config, logger *zap.Logger) (*ESClient, error) {
	esConfig := cfg.Elasticsearch

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.IsDevelopment(),
		},
	}

	esClient, err := NewESClientWithConfig(elasticsearch.Config{
		Addresses: []string{esConfig.URL},
		Username:  esConfig.Username,
		Password:  esConfig.Password,
		Transport: transport,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := esClient.HealthCheck(context.Background()); err != nil {
		return nil, fmt.Errorf("elasticsearch connection test failed: %w", err)
	}

	util.Info("Elasticsearch client initialized", zap.String("url", esConfig.URL))
	return esClient, nil
}

// NewESClientWithConfig skips the connectivity check.
func NewESClientWithConfig(cfg elasticsearch.Config, logger *zap.Logger) (*ESClient, error) {
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ESClient{Client: client, logger: logger}, nil
}

func (e *ESClient) HealthCheck(ctx context.Context) error {
	res, err := e.Client.Info(e.Client.Info.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to get cluster info: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}
	return nil
}

// EnsureIndex creates index with mapping unless it already exists.
func (e *ESClient) EnsureIndex(ctx context.Context, index string, mapping map[string]any) error {
	res, err := e.Client.Indices.Exists([]string{index}, e.Client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("error checking index: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	body, err := encode(mapping)
	if err != nil {
		return err
	}
	res, err = e.Client.Indices.Create(index,
		e.Client.Indices.Create.WithContext(ctx),
		e.Client.Indices.Create.WithBody(body),
	)
	if err != nil {
		return fmt.Errorf("error creating index: %w", err)
	}
	return e.ParseResponse(res, nil)
}

func (e *ESClient) Search(ctx context.Context, index string, query map[string]any) (*esapi.Response, error) {
	body, err := encode(query)
	if err != nil {
		return nil, err
	}

	res, err := e.Client.Search(
		e.Client.Search.WithContext(ctx),
		e.Client.Search.WithIndex(index),
		e.Client.Search.WithBody(body),
		e.Client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, fmt.Errorf("error executing search: %w", err)
	}
	return res, nil
}

// Bulk sends an NDJSON bulk body against index.
func (e *ESClient) Bulk(ctx context.Context, index string, body io.Reader) (*esapi.Response, error) {
	res, err := e.Client.Bulk(body,
		e.Client.Bulk.WithContext(ctx),
		e.Client.Bulk.WithIndex(index),
		e.Client.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return nil, fmt.Errorf("error executing bulk: %w", err)
	}
	return res, nil
}

// ParseResponse closes res and decodes its body into target when target
// is non-nil.
func (e *ESClient) ParseResponse(res *esapi.Response, target any) error {
	defer res.Body.Close()

	if res.IsError() {
		var payload struct {
			Error struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		}
		if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
			return fmt.Errorf("elasticsearch error: [%s]", res.Status())
		}
		return fmt.Errorf("elasticsearch error: [%s] %s: %s", res.Status(), payload.Error.Type, payload.Error.Reason)
	}

	if target == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(target); err != nil {
		return fmt.Errorf("error unmarshaling response: %w", err)
	}
	return nil
}

func encode(v any) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("error encoding body: %w", err)
	}
	return &buf, nil
}
