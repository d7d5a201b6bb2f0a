// Package query builds Elasticsearch DSL from parsed intents and validates
// the result before it is handed to the execution layer.
package query

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"siem-assistant/internal/common/config"
	"siem-assistant/internal/common/logger"
	"siem-assistant/internal/nlq"
)

// Descriptor is the generator's output: target index, structured query
// body, and result cap. It is passed through to execution, never retained.
type Descriptor struct {
	Index string                 `json:"index"`
	Query map[string]interface{} `json:"query"`
	Size  int                    `json:"size"`
}

// Generator converts intents into Elasticsearch DSL query descriptors.
type Generator struct {
	schema  map[string]config.EventSchema
	indices map[string]string
	limits  config.LimitsConfig
	logger  logger.Logger
}

func NewGenerator(cfg *config.Config, log logger.Logger) *Generator {
	return &Generator{
		schema:  cfg.Schema,
		indices: cfg.SIEM.Indices,
		limits:  cfg.Limits,
		logger:  log.WithFields(map[string]interface{}{"component": "generator"}),
	}
}

func (g *Generator) Generate(intent *nlq.Intent) *Descriptor {
	index := g.determineIndex(intent)

	var body map[string]interface{}
	switch intent.Action {
	case nlq.ActionCount:
		body = g.buildCountQuery(intent)
	case nlq.ActionAggregate:
		body = g.buildAggregationQuery(intent)
	case nlq.ActionReport:
		body = g.buildReportQuery(intent)
	default:
		body = g.buildSearchQuery(intent)
	}

	return &Descriptor{
		Index: index,
		Query: body,
		Size:  g.determineSize(intent),
	}
}

// determineIndex maps detected categories to an index pattern. Priority
// order, first match wins.
func (g *Generator) determineIndex(intent *nlq.Intent) string {
	switch {
	case intent.HasEventType("malware") || intent.HasEventType("threat"):
		return g.indexFor("endpoint_security", "logs-*")
	case intent.HasEventType("network_connection"):
		return g.indexFor("network_traffic", "packetbeat-*")
	case intent.HasEventType("alerts"):
		return g.indexFor("alerts", ".alerts-*")
	default:
		return g.indexFor("security_events", "logs-*")
	}
}

func (g *Generator) indexFor(key, fallback string) string {
	if pattern, ok := g.indices[key]; ok && pattern != "" {
		return pattern
	}
	return fallback
}

// determineSize picks the result cap: explicit limit clamped to the
// configured maximum, zero for aggregation-only queries, else the default.
func (g *Generator) determineSize(intent *nlq.Intent) int {
	if raw, ok := intent.Filters["limit"]; ok {
		if limit, ok := toInt(raw); ok {
			if limit > g.limits.MaxResults {
				return g.limits.MaxResults
			}
			return limit
		}
	}

	if intent.Action == nlq.ActionAggregate {
		return 0
	}

	return g.limits.DefaultSize
}

func (g *Generator) buildSearchQuery(intent *nlq.Intent) map[string]interface{} {
	body := g.buildCountQuery(intent)
	body["sort"] = []interface{}{
		map[string]interface{}{
			"@timestamp": map[string]interface{}{"order": "desc"},
		},
	}
	return body
}

func (g *Generator) buildCountQuery(intent *nlq.Intent) map[string]interface{} {
	mustClauses := g.buildEventConditions(intent)
	filterClauses := g.buildFilterConditions(intent)

	if timeRange, ok := intent.Filters["time_range"]; ok {
		filterClauses = append(filterClauses, map[string]interface{}{
			"range": map[string]interface{}{
				"@timestamp": timeRange,
			},
		})
	}

	if len(mustClauses) == 0 {
		mustClauses = []interface{}{
			map[string]interface{}{"match_all": map[string]interface{}{}},
		}
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   mustClauses,
				"filter": filterClauses,
			},
		},
	}
}

func (g *Generator) buildAggregationQuery(intent *nlq.Intent) map[string]interface{} {
	body := g.buildCountQuery(intent)

	body["aggs"] = map[string]interface{}{
		"grouped_results": map[string]interface{}{
			"terms": map[string]interface{}{
				"field": g.determineAggregationField(intent),
				"size":  g.limits.AggregationSize,
			},
		},
		"over_time": map[string]interface{}{
			"date_histogram": map[string]interface{}{
				"field":             "@timestamp",
				"calendar_interval": g.determineTimeInterval(intent),
				"min_doc_count":     0,
			},
		},
	}

	return body
}

func (g *Generator) buildReportQuery(intent *nlq.Intent) map[string]interface{} {
	body := g.buildAggregationQuery(intent)
	aggs := body["aggs"].(map[string]interface{})

	aggs["severity_breakdown"] = map[string]interface{}{
		"terms": map[string]interface{}{
			"field": "event.severity",
			"size":  10,
		},
	}
	aggs["top_users"] = map[string]interface{}{
		"terms": map[string]interface{}{
			"field": "user.name.keyword",
			"size":  10,
		},
	}
	aggs["top_hosts"] = map[string]interface{}{
		"terms": map[string]interface{}{
			"field": "host.name.keyword",
			"size":  10,
		},
	}

	if intent.HasEventType("network_connection") {
		aggs["top_destinations"] = map[string]interface{}{
			"terms": map[string]interface{}{
				"field": "destination.ip",
				"size":  10,
			},
		}
	}

	return body
}

// buildEventConditions turns each detected category's schema conditions
// into must clauses: list values become terms (membership), scalars term
// (equality). Fields are visited in sorted order so generated bodies are
// stable.
func (g *Generator) buildEventConditions(intent *nlq.Intent) []interface{} {
	conditions := []interface{}{}

	for _, eventType := range intent.EventTypes() {
		schema, ok := g.schema[eventType]
		if !ok {
			continue
		}

		for _, field := range sortedKeys(schema.Conditions) {
			values := schema.Conditions[field]
			if list, ok := values.([]interface{}); ok {
				conditions = append(conditions, map[string]interface{}{
					"terms": map[string]interface{}{field: list},
				})
			} else {
				conditions = append(conditions, map[string]interface{}{
					"term": map[string]interface{}{field: values},
				})
			}
		}
	}

	return conditions
}

func (g *Generator) buildFilterConditions(intent *nlq.Intent) []interface{} {
	conditions := []interface{}{}
	filters := intent.Filters

	if user, ok := filters["user"].(string); ok {
		conditions = append(conditions, map[string]interface{}{
			"term": map[string]interface{}{"user.name.keyword": user},
		})
	}

	// A bare IP can be either end of the connection.
	if ip, ok := filters["ip"].(string); ok {
		conditions = append(conditions, map[string]interface{}{
			"bool": map[string]interface{}{
				"should": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"source.ip": ip}},
					map[string]interface{}{"term": map[string]interface{}{"destination.ip": ip}},
				},
			},
		})
	}

	if sourceIP, ok := filters["source_ip"].(string); ok {
		conditions = append(conditions, map[string]interface{}{
			"term": map[string]interface{}{"source.ip": sourceIP},
		})
	}

	if destIP, ok := filters["destination_ip"].(string); ok {
		conditions = append(conditions, map[string]interface{}{
			"term": map[string]interface{}{"destination.ip": destIP},
		})
	}

	if hostname, ok := filters["hostname"].(string); ok {
		conditions = append(conditions, map[string]interface{}{
			"term": map[string]interface{}{"host.name.keyword": hostname},
		})
	}

	if port, ok := filters["port"].(string); ok {
		if portNum, err := strconv.Atoi(port); err == nil {
			conditions = append(conditions, map[string]interface{}{
				"term": map[string]interface{}{"destination.port": portNum},
			})
		}
	}

	if severity, ok := filters["severity"].(string); ok {
		conditions = append(conditions, map[string]interface{}{
			"term": map[string]interface{}{"event.severity": strings.ToLower(severity)},
		})
	}

	if status, ok := filters["status"].(string); ok {
		conditions = append(conditions, map[string]interface{}{
			"term": map[string]interface{}{"event.outcome": strings.ToLower(status)},
		})
	}

	return conditions
}

// determineAggregationField picks a grouping field. The containment test on
// the serialized entity set is coarse but is the established contract;
// callers depend on its priority chain.
func (g *Generator) determineAggregationField(intent *nlq.Intent) string {
	serialized := strings.ToLower(fmt.Sprintf("%v", intent.Entities))

	switch {
	case strings.Contains(serialized, "user"):
		return "user.name.keyword"
	case strings.Contains(serialized, "host"):
		return "host.name.keyword"
	case strings.Contains(serialized, "ip"):
		return "source.ip"
	}

	switch {
	case intent.HasEventType("malware"):
		return "file.name.keyword"
	case intent.HasEventType("network_connection"):
		return "destination.ip"
	case intent.HasEventType("failed_login") || intent.HasEventType("successful_login"):
		return "user.name.keyword"
	}

	return "event.action.keyword"
}

// determineTimeInterval buckets the date histogram based on the resolved
// lower time bound.
func (g *Generator) determineTimeInterval(intent *nlq.Intent) string {
	gte := "now-24h"
	if timeRange, ok := intent.Filters["time_range"].(map[string]interface{}); ok {
		if v, ok := timeRange["gte"].(string); ok {
			gte = v
		}
	}

	switch {
	case strings.Contains(gte, "now-1h") || strings.Contains(gte, "last_hour"):
		return "1m"
	case strings.Contains(gte, "now-24h") || strings.Contains(gte, "now-1d"):
		return "1h"
	case strings.Contains(gte, "now-7d"):
		return "1d"
	case strings.Contains(gte, "now-30d") || strings.Contains(gte, "now-1M"):
		return "1d"
	default:
		return "1d"
	}
}

// Optimize attaches a source projection and an exact-hit counting bound to
// reduce payloads. Idempotent: fields already present are left alone.
func (g *Generator) Optimize(query map[string]interface{}) map[string]interface{} {
	if _, ok := query["_source"]; !ok {
		query["_source"] = []interface{}{
			"@timestamp",
			"event.*",
			"user.name",
			"host.name",
			"source.ip",
			"destination.ip",
			"destination.port",
			"file.name",
			"process.name",
			"message",
		}
	}

	if _, ok := query["track_total_hits"]; !ok {
		query["track_total_hits"] = 10000
	}

	return query
}

func toInt(raw interface{}) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
