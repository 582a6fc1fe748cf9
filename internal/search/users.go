// Package search mirrors upstream users into Elasticsearch for prefix
// search across username and email.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"admin-console/internal/client"
	"admin-console/internal/models"

	"go.uber.org/zap"
)

const defaultLimit = 50

var usersMapping = map[string]any{
	"mappings": map[string]any{
		"properties": map[string]any{
			"user_id":      map[string]any{"type": "keyword"},
			"username":     map[string]any{"type": "text", "fields": map[string]any{"raw": map[string]any{"type": "keyword"}}},
			"email":        map[string]any{"type": "text", "fields": map[string]any{"raw": map[string]any{"type": "keyword"}}},
			"user_role":    map[string]any{"type": "keyword"},
			"is_active":    map[string]any{"type": "boolean"},
			"email_verify": map[string]any{"type": "boolean"},
			"created_at":   map[string]any{"type": "date"},
		},
	},
}

type UserIndex struct {
	es     *client.ESClient
	index  string
	logger *zap.Logger
}

func NewUserIndex(es *client.ESClient, index string, logger *zap.Logger) *UserIndex {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserIndex{es: es, index: index, logger: logger}
}

func (u *UserIndex) EnsureIndex(ctx context.Context) error {
	return u.es.EnsureIndex(ctx, u.index, usersMapping)
}

type bulkResult struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		Status int `json:"status"`
		Error  *struct {
			Reason string `json:"reason"`
		} `json:"error,omitempty"`
	} `json:"items"`
}

// Sync upserts users, keyed by user id. Users without an id are skipped.
func (u *UserIndex) Sync(ctx context.Context, users []models.User) (int, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	n := 0
	for _, user := range users {
		if user.UserID == "" {
			continue
		}
		meta := map[string]any{"index": map[string]any{"_id": user.UserID.String()}}
		if err := enc.Encode(meta); err != nil {
			return 0, fmt.Errorf("encode bulk meta: %w", err)
		}
		if err := enc.Encode(user); err != nil {
			return 0, fmt.Errorf("encode user: %w", err)
		}
		n++
	}
	if n == 0 {
		return 0, nil
	}

	res, err := u.es.Bulk(ctx, u.index, &buf)
	if err != nil {
		return 0, err
	}
	var result bulkResult
	if err := u.es.ParseResponse(res, &result); err != nil {
		return 0, err
	}
	if result.Errors {
		failed := 0
		for _, item := range result.Items {
			for _, op := range item {
				if op.Error != nil {
					failed++
				}
			}
		}
		u.logger.Warn("User index sync partially failed", zap.Int("failed", failed), zap.Int("total", n))
		return n - failed, fmt.Errorf("bulk index: %d of %d users failed", failed, n)
	}

	u.logger.Debug("User index synced", zap.Int("users", n))
	return n, nil
}

type searchResult struct {
	Hits struct {
		Hits []struct {
			Source models.User `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search matches the query as a prefix of username or email. role "" or
// "all" disables the role filter.
func (u *UserIndex) Search(ctx context.Context, query, role string) ([]models.User, error) {
	res, err := u.es.Search(ctx, u.index, buildQuery(query, role))
	if err != nil {
		return nil, err
	}
	var result searchResult
	if err := u.es.ParseResponse(res, &result); err != nil {
		return nil, err
	}

	users := make([]models.User, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		users = append(users, hit.Source)
	}
	return users, nil
}

func buildQuery(query, role string) map[string]any {
	boolQuery := map[string]any{}

	if q := strings.ToLower(strings.TrimSpace(query)); q != "" {
		boolQuery["should"] = []any{
			map[string]any{"match_phrase_prefix": map[string]any{"username": q}},
			map[string]any{"match_phrase_prefix": map[string]any{"email": q}},
			map[string]any{"prefix": map[string]any{"email.raw": q}},
		}
		boolQuery["minimum_should_match"] = 1
	}
	if role != "" && role != "all" {
		boolQuery["filter"] = []any{
			map[string]any{"term": map[string]any{"user_role": role}},
		}
	}
	if len(boolQuery) == 0 {
		return map[string]any{"size": defaultLimit, "query": map[string]any{"match_all": map[string]any{}}}
	}
	return map[string]any{
		"size":  defaultLimit,
		"query": map[string]any{"bool": boolQuery},
	}
}
