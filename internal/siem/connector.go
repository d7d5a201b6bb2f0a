// Package siem executes generated query descriptors against the search
// backend. It is a thin wrapper: decode the response shape, nothing more.
// Retry policy belongs to callers.
package siem

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	stderrors "siem-assistant/internal/common/errors"
	"siem-assistant/internal/common/logger"
)

// SearchResult carries the decoded backend response for one query.
type SearchResult struct {
	Hits         []map[string]interface{} `json:"hits"`
	TotalHits    int64                    `json:"total_hits"`
	MaxScore     float64                  `json:"max_score"`
	Aggregations map[string]interface{}   `json:"aggregations,omitempty"`
	Took         int64                    `json:"took_ms"`
}

type Connector struct {
	client *elasticsearch.Client
	cache  *ResponseCache
	logger logger.Logger
}

// NewConnector wraps an Elasticsearch client. cache may be nil to disable
// response caching.
func NewConnector(client *elasticsearch.Client, cache *ResponseCache, log logger.Logger) *Connector {
	return &Connector{
		client: client,
		cache:  cache,
		logger: log.WithFields(map[string]interface{}{"component": "siem"}),
	}
}

// Search runs the query against the index and decodes hits, total, and any
// aggregations present.
func (c *Connector) Search(ctx context.Context, index string, query map[string]interface{}, size int) (*SearchResult, error) {
	if cached := c.cacheLookup(ctx, index, query, size); cached != nil {
		return cached, nil
	}

	body, err := json.Marshal(query)
	if err != nil {
		return nil, stderrors.NewSearchQueryFailedError(index, fmt.Errorf("encode query: %w", err))
	}

	req := esapi.SearchRequest{
		Index: []string{index},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}

	start := time.Now()
	res, err := req.Do(ctx, c.client)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, stderrors.NewSearchTimeoutError(index)
		}
		return nil, stderrors.NewSIEMConnectionFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		if res.StatusCode == 404 {
			return nil, stderrors.NewIndexNotFoundError(index)
		}
		return nil, stderrors.NewSearchQueryFailedError(index, fmt.Errorf("%s", res.String()))
	}

	var raw map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		return nil, stderrors.NewSearchQueryFailedError(index, fmt.Errorf("decode response: %w", err))
	}

	result := decodeSearchResponse(raw)
	result.Took = time.Since(start).Milliseconds()

	c.cacheStore(ctx, index, query, size, result)

	c.logger.Debug("search completed", map[string]interface{}{
		"index":     index,
		"totalHits": result.TotalHits,
		"tookMs":    result.Took,
	})

	return result, nil
}

// Count returns only the matching-document total for the query.
func (c *Connector) Count(ctx context.Context, index string, query map[string]interface{}) (int64, error) {
	// The count API accepts only the query clause, not sort/aggs/_source.
	countBody := map[string]interface{}{}
	if q, ok := query["query"]; ok {
		countBody["query"] = q
	}

	body, err := json.Marshal(countBody)
	if err != nil {
		return 0, stderrors.NewSearchQueryFailedError(index, fmt.Errorf("encode query: %w", err))
	}

	req := esapi.CountRequest{
		Index: []string{index},
		Body:  bytes.NewReader(body),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return 0, stderrors.NewSearchTimeoutError(index)
		}
		return 0, stderrors.NewSIEMConnectionFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		if res.StatusCode == 404 {
			return 0, stderrors.NewIndexNotFoundError(index)
		}
		return 0, stderrors.NewSearchQueryFailedError(index, fmt.Errorf("%s", res.String()))
	}

	var raw struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		return 0, stderrors.NewSearchQueryFailedError(index, fmt.Errorf("decode response: %w", err))
	}

	return raw.Count, nil
}

// Aggregations runs an aggregation-only query (size 0) and returns the
// decoded result.
func (c *Connector) Aggregations(ctx context.Context, index string, query map[string]interface{}) (*SearchResult, error) {
	return c.Search(ctx, index, query, 0)
}

// Ping verifies the backend is reachable.
func (c *Connector) Ping(ctx context.Context) error {
	res, err := c.client.Ping(c.client.Ping.WithContext(ctx))
	if err != nil {
		return stderrors.NewSIEMConnectionFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return stderrors.NewSIEMConnectionFailedError(fmt.Errorf("%s", res.String()))
	}
	return nil
}

func decodeSearchResponse(raw map[string]interface{}) *SearchResult {
	result := &SearchResult{Hits: []map[string]interface{}{}}

	hits, ok := raw["hits"].(map[string]interface{})
	if ok {
		if total, ok := hits["total"].(map[string]interface{}); ok {
			if value, ok := total["value"].(float64); ok {
				result.TotalHits = int64(value)
			}
		}
		if maxScore, ok := hits["max_score"].(float64); ok {
			result.MaxScore = maxScore
		}
		if list, ok := hits["hits"].([]interface{}); ok {
			for _, hit := range list {
				doc, ok := hit.(map[string]interface{})
				if !ok {
					continue
				}
				if source, ok := doc["_source"].(map[string]interface{}); ok {
					result.Hits = append(result.Hits, source)
				}
			}
		}
	}

	if aggs, ok := raw["aggregations"].(map[string]interface{}); ok {
		result.Aggregations = aggs
	}

	return result
}

func (c *Connector) cacheLookup(ctx context.Context, index string, query map[string]interface{}, size int) *SearchResult {
	if c.cache == nil {
		return nil
	}
	result, err := c.cache.Get(ctx, index, query, size)
	if err != nil {
		c.logger.Warn("cache lookup failed", map[string]interface{}{"error": err.Error()})
		return nil
	}
	return result
}

func (c *Connector) cacheStore(ctx context.Context, index string, query map[string]interface{}, size int, result *SearchResult) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, index, query, size, result); err != nil {
		c.logger.Warn("cache store failed", map[string]interface{}{"error": err.Error()})
	}
}
