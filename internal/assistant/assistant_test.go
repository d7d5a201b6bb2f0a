package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siem-assistant/internal/common/config"
	"siem-assistant/internal/common/logger"
	"siem-assistant/internal/nlq"
	"siem-assistant/internal/siem"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *config.Config {
	return &config.Config{
		Schema: map[string]config.EventSchema{
			"failed_login": {
				Conditions: map[string]interface{}{
					"event.category": "authentication",
					"event.outcome":  "failure",
				},
			},
			"malware": {
				Conditions: map[string]interface{}{
					"event.category": []interface{}{"malware", "intrusion_detection"},
				},
			},
		},
		SIEM: config.SIEMConfig{
			Indices: map[string]string{
				"security_events":   "logs-*",
				"endpoint_security": "logs-endpoint.events-*",
			},
		},
		TimeRanges: map[string]string{
			"last_hour":   "now-1h",
			"yesterday":   "now-1d/d",
			"last_week":   "now-7d",
			"last_7_days": "now-7d",
		},
		Limits: config.LimitsConfig{
			MaxResults:      10000,
			DefaultSize:     100,
			AggregationSize: 50,
			MaxHistory:      10,
		},
	}
}

// newTestAssistant backs the assistant with a stub HTTP server standing in
// for Elasticsearch, answering both search and count requests.
func newTestAssistant(t *testing.T) *Assistant {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")

		if strings.HasSuffix(r.URL.Path, "/_count") {
			json.NewEncoder(w).Encode(map[string]interface{}{"count": 7})
			return
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"hits": map[string]interface{}{
				"total":     map[string]interface{}{"value": 3, "relation": "eq"},
				"max_score": 1.0,
				"hits": []interface{}{
					map[string]interface{}{
						"_source": map[string]interface{}{
							"@timestamp": "2024-03-15T10:30:00Z",
							"user":       map[string]interface{}{"name": "admin"},
							"event":      map[string]interface{}{"action": "logon-failed", "outcome": "failure"},
						},
					},
				},
			},
			"aggregations": map[string]interface{}{
				"grouped_results": map[string]interface{}{
					"buckets": []interface{}{
						map[string]interface{}{"key": "admin", "doc_count": 3},
					},
				},
				"over_time": map[string]interface{}{
					"buckets": []interface{}{
						map[string]interface{}{"key_as_string": "2024-03-15T10:00:00Z", "doc_count": 3},
					},
				},
			},
		})
	}))
	t.Cleanup(server.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{server.URL},
	})
	require.NoError(t, err)

	log := logger.NewTestLogger(t)
	connector := siem.NewConnector(client, nil, log)

	return New(createTestConfig(), connector, nil, log)
}

// ==========================
// Ask
// ==========================

func TestAskSearch(t *testing.T) {
	asst := newTestAssistant(t)

	answer, err := asst.Ask(context.Background(), "show me failed logins from yesterday")
	require.NoError(t, err)

	assert.True(t, answer.Success)
	assert.Equal(t, asst.ConversationID(), answer.ConversationID)
	assert.Equal(t, "low", answer.QueryCost)

	require.NotNil(t, answer.Intent)
	assert.Equal(t, "search", answer.Intent.Action)

	require.NotNil(t, answer.Result)
	assert.Equal(t, "search", answer.Result.Type)
	assert.Equal(t, int64(3), answer.Result.TotalCount)
	assert.Contains(t, answer.Result.Text, "Found 3 events.")
}

func TestAskCount(t *testing.T) {
	asst := newTestAssistant(t)

	answer, err := asst.Ask(context.Background(), "how many malware events in the last week?")
	require.NoError(t, err)

	assert.True(t, answer.Success)
	require.NotNil(t, answer.Result)
	assert.Equal(t, "count", answer.Result.Type)
	assert.Equal(t, "Found 7 matching events.", answer.Result.Text)
}

func TestAskAggregate(t *testing.T) {
	asst := newTestAssistant(t)

	answer, err := asst.Ask(context.Background(), "top users with failed logins last week")
	require.NoError(t, err)

	assert.True(t, answer.Success)
	assert.Equal(t, "medium", answer.QueryCost)
	require.NotNil(t, answer.Result)
	assert.Equal(t, "aggregation", answer.Result.Type)
	require.Len(t, answer.Result.GroupedData, 1)
	assert.Equal(t, "admin", answer.Result.GroupedData[0].Key)
}

func TestAskGrowsHistory(t *testing.T) {
	asst := newTestAssistant(t)
	ctx := context.Background()

	_, err := asst.Ask(ctx, "show me failed logins from yesterday")
	require.NoError(t, err)
	_, err = asst.Ask(ctx, "how many malware events in the last week?")
	require.NoError(t, err)

	history := asst.History()
	require.Len(t, history, 2)
	assert.Equal(t, "search", history[0].Action)
	assert.Equal(t, "count", history[1].Action)
	assert.NotEmpty(t, history[0].Timestamp)
}

func TestClearContext(t *testing.T) {
	asst := newTestAssistant(t)

	_, err := asst.Ask(context.Background(), "show me failed logins from yesterday")
	require.NoError(t, err)
	require.Len(t, asst.History(), 1)

	asst.ClearContext()
	assert.Empty(t, asst.History())
}

// ==========================
// Explain
// ==========================

func TestExplain(t *testing.T) {
	asst := newTestAssistant(t)

	explanation, err := asst.Explain(context.Background(), "show me failed logins from yesterday")
	require.NoError(t, err)

	assert.Equal(t, "show me failed logins from yesterday", explanation.OriginalQuery)
	assert.Equal(t, "search", explanation.DetectedIntent.Action)
	assert.Equal(t, "logs-*", explanation.TargetIndex)
	assert.Equal(t, "low", explanation.EstimatedCost)

	assert.Contains(t, explanation.DSL, "query")
	assert.Contains(t, explanation.KQL, `event.category: "authentication"`)
	assert.Contains(t, explanation.KQL, `event.outcome: "failure"`)
}

func TestExplainDoesNotTouchHistory(t *testing.T) {
	asst := newTestAssistant(t)

	_, err := asst.Explain(context.Background(), "show me failed logins from yesterday")
	require.NoError(t, err)
	assert.Empty(t, asst.History())
}

// ==========================
// Report
// ==========================

func TestReportDefaultsToText(t *testing.T) {
	asst := newTestAssistant(t)

	out, err := asst.Report(context.Background(), "report of failed logins from yesterday", "")
	require.NoError(t, err)
	assert.Contains(t, out, "# Security Event Report")
}

func TestReportJSON(t *testing.T) {
	asst := newTestAssistant(t)

	out, err := asst.Report(context.Background(), "show me failed logins from yesterday", "json")
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "search", decoded["type"])
}

// ==========================
// Health
// ==========================

func TestHealthCheck(t *testing.T) {
	asst := newTestAssistant(t)

	health := asst.HealthCheck(context.Background())
	assert.Equal(t, "healthy", health.Overall)
	assert.Equal(t, "healthy", health.Components["siem_connection"])
	assert.NotContains(t, health.Components, "audit_store")
}

// ==========================
// Internals
// ==========================

func TestQuerySuggestions(t *testing.T) {
	asst := newTestAssistant(t)

	intent := &nlq.Intent{
		Action:   nlq.ActionSearch,
		Entities: map[string]interface{}{"event_types": []string{}},
		Filters:  map[string]interface{}{},
	}

	suggestions := asst.querySuggestions(intent)
	require.Len(t, suggestions, 3)
	assert.Contains(t, suggestions[0], "event type")
	assert.Contains(t, suggestions[1], "time range")
}

func TestFinishAnswerValidatesEnvelope(t *testing.T) {
	asst := newTestAssistant(t)

	answer, err := asst.finishAnswer(&Answer{Success: true, QueryCost: "low"})
	require.NoError(t, err)
	assert.Equal(t, asst.ConversationID(), answer.ConversationID)

	_, err = asst.finishAnswer(&Answer{Success: true, QueryCost: "astronomical"})
	assert.Error(t, err)
}
