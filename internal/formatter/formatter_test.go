package formatter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siem-assistant/internal/nlq"
	"siem-assistant/internal/siem"
)

// ==========================
// Test Helper Functions
// ==========================

func searchResult() *siem.SearchResult {
	return &siem.SearchResult{
		TotalHits: 2,
		Hits: []map[string]interface{}{
			{
				"@timestamp":  "2024-03-15T10:30:00Z",
				"event":       map[string]interface{}{"action": "logon-failed", "outcome": "failure"},
				"user":        map[string]interface{}{"name": "admin"},
				"host":        map[string]interface{}{"name": "web-01"},
				"source":      map[string]interface{}{"ip": "10.0.0.5"},
				"destination": map[string]interface{}{"ip": "10.0.0.9"},
				"message":     "Failed password for admin",
			},
			{
				"@timestamp": "2024-03-15T10:29:00Z",
				"event":      map[string]interface{}{"action": "logon-failed"},
				"user":       map[string]interface{}{"name": "jdoe"},
				"host":       map[string]interface{}{"name": "web-01"},
			},
		},
	}
}

func aggregationResult() *siem.SearchResult {
	return &siem.SearchResult{
		Aggregations: map[string]interface{}{
			"grouped_results": map[string]interface{}{
				"buckets": []interface{}{
					map[string]interface{}{"key": "admin", "doc_count": float64(30)},
					map[string]interface{}{"key": "jdoe", "doc_count": float64(10)},
				},
			},
			"over_time": map[string]interface{}{
				"buckets": []interface{}{
					map[string]interface{}{"key_as_string": "2024-03-15T10:00:00Z", "doc_count": float64(25)},
					map[string]interface{}{"key_as_string": "2024-03-15T11:00:00Z", "doc_count": float64(15)},
				},
			},
		},
	}
}

func reportResult() *siem.SearchResult {
	result := aggregationResult()
	result.Aggregations["severity_breakdown"] = map[string]interface{}{
		"buckets": []interface{}{
			map[string]interface{}{"key": "high", "doc_count": float64(5)},
			map[string]interface{}{"key": "low", "doc_count": float64(35)},
		},
	}
	result.Aggregations["top_users"] = map[string]interface{}{
		"buckets": []interface{}{
			map[string]interface{}{"key": "admin", "doc_count": float64(30)},
		},
	}
	result.Aggregations["top_hosts"] = map[string]interface{}{
		"buckets": []interface{}{
			map[string]interface{}{"key": "web-01", "doc_count": float64(40)},
		},
	}
	return result
}

// ==========================
// Search
// ==========================

func TestFormatSearch(t *testing.T) {
	response := New().Format(searchResult(), nlq.ActionSearch)

	assert.Equal(t, "search", response.Type)
	assert.Equal(t, int64(2), response.TotalCount)
	assert.Equal(t, 2, response.ResultCount)

	require.Len(t, response.Data, 2)
	first := response.Data[0]
	assert.Equal(t, "logon-failed", first.EventType)
	assert.Equal(t, "admin", first.User)
	assert.Equal(t, "10.0.0.5", first.SourceIP)

	// Missing fields come back as the placeholder, not empty strings.
	second := response.Data[1]
	assert.Equal(t, "N/A", second.SourceIP)
	assert.Equal(t, "N/A", second.Outcome)
	assert.Equal(t, "N/A", second.Message)
}

func TestFormatSearchSummary(t *testing.T) {
	response := New().Format(searchResult(), nlq.ActionSearch)

	assert.Contains(t, response.Text, "Found 2 events.")
	assert.Contains(t, response.Text, "Involving 2 unique user(s).")
	assert.Contains(t, response.Text, "Across 1 host(s).")
	assert.Contains(t, response.Text, "Latest event at 2024-03-15T10:30:00Z.")
}

func TestFormatSearchEmpty(t *testing.T) {
	response := New().Format(&siem.SearchResult{}, nlq.ActionSearch)

	assert.Equal(t, "No matching events found.", response.Text)
	assert.Equal(t, "No data to display", response.Table)
	assert.Empty(t, response.Data)
}

func TestFormatSearchTable(t *testing.T) {
	response := New().Format(searchResult(), nlq.ActionSearch)

	assert.Contains(t, response.Table, "TIMESTAMP")
	assert.Contains(t, response.Table, "admin")
	assert.Contains(t, response.Table, "web-01")
}

func TestFormatSearchTableCapsRows(t *testing.T) {
	result := &siem.SearchResult{TotalHits: 25}
	for i := 0; i < 25; i++ {
		result.Hits = append(result.Hits, map[string]interface{}{
			"@timestamp": "2024-03-15T10:30:00Z",
		})
	}

	response := New().Format(result, nlq.ActionSearch)
	assert.Contains(t, response.Table, "... 5 more rows")
}

// ==========================
// Count
// ==========================

func TestFormatCount(t *testing.T) {
	response := New().Format(&siem.SearchResult{TotalHits: 17}, nlq.ActionCount)

	assert.Equal(t, "count", response.Type)
	assert.Equal(t, "Found 17 matching events.", response.Text)
	assert.Equal(t, int64(17), response.TotalCount)
	assert.Empty(t, response.Data)
}

// ==========================
// Aggregation
// ==========================

func TestFormatAggregation(t *testing.T) {
	response := New().Format(aggregationResult(), nlq.ActionAggregate)

	assert.Equal(t, "aggregation", response.Type)
	assert.Equal(t, int64(40), response.TotalCount)

	require.Len(t, response.GroupedData, 2)
	assert.Equal(t, Bucket{Key: "admin", Count: 30}, response.GroupedData[0])

	require.Len(t, response.TimeSeries, 2)
	assert.Equal(t, TimePoint{Timestamp: "2024-03-15T10:00:00Z", Count: 25}, response.TimeSeries[0])

	assert.Equal(t,
		"Total of 40 events across 2 categories. Top category: 'admin' with 30 events (75.0% of total).",
		response.Text,
	)
}

func TestFormatAggregationCharts(t *testing.T) {
	response := New().Format(aggregationResult(), nlq.ActionAggregate)

	bar, ok := response.Charts["bar_chart"]
	require.True(t, ok)
	assert.Equal(t, "bar", bar.Type)
	assert.Equal(t, []string{"admin", "jdoe"}, bar.Labels)
	assert.Equal(t, []int64{30, 10}, bar.Values)

	line, ok := response.Charts["timeline"]
	require.True(t, ok)
	assert.Equal(t, "line", line.Type)
	assert.Equal(t, []int64{25, 15}, line.Values)
}

func TestFormatAggregationEmpty(t *testing.T) {
	response := New().Format(&siem.SearchResult{}, nlq.ActionAggregate)

	assert.Equal(t, "No data available for aggregation.", response.Text)
	assert.Empty(t, response.GroupedData)
	assert.Empty(t, response.Charts)
}

func TestFormatAggregationCapsGroups(t *testing.T) {
	buckets := []interface{}{}
	for i := 0; i < 15; i++ {
		buckets = append(buckets, map[string]interface{}{
			"key": "k", "doc_count": float64(1),
		})
	}
	result := &siem.SearchResult{
		Aggregations: map[string]interface{}{
			"grouped_results": map[string]interface{}{"buckets": buckets},
		},
	}

	response := New().Format(result, nlq.ActionAggregate)
	assert.Len(t, response.GroupedData, 10)
}

// ==========================
// Report
// ==========================

func TestFormatReport(t *testing.T) {
	response := New().Format(reportResult(), nlq.ActionReport)

	assert.Equal(t, "report", response.Type)
	require.NotNil(t, response.Report)

	assert.Equal(t, int64(40), response.Report.Overview.TotalEvents)
	assert.Equal(t, "2024-03-15T10:00:00Z to 2024-03-15T11:00:00Z", response.Report.Overview.TimeRange)
	assert.NotEmpty(t, response.Report.Overview.GeneratedAt)

	assert.Len(t, response.Report.SeverityBreakdown, 2)
	assert.Len(t, response.Report.TopUsers, 1)
}

func TestFormatReportNarrative(t *testing.T) {
	response := New().Format(reportResult(), nlq.ActionReport)

	assert.Contains(t, response.Text, "# Security Event Report")
	assert.Contains(t, response.Text, "## Executive Summary")
	assert.Contains(t, response.Text, "A total of 40 events were analyzed.")
	assert.Contains(t, response.Text, "- **admin**: 30 events (75.0%)")
	assert.Contains(t, response.Text, "- HIGH: 5 events")
	assert.Contains(t, response.Text, "## Most Active Hosts")
	assert.Contains(t, response.Text, "- web-01: 40 events")
}

func TestFormatReportCharts(t *testing.T) {
	response := New().Format(reportResult(), nlq.ActionReport)

	for _, name := range []string{"event_pie", "severity_bar", "timeline", "users_bar"} {
		assert.Contains(t, response.Charts, name)
	}
	assert.Equal(t, "pie", response.Charts["event_pie"].Type)
	assert.Equal(t, "horizontal_bar", response.Charts["users_bar"].Type)
}

// ==========================
// Exports
// ==========================

func TestExportJSON(t *testing.T) {
	response := New().Format(searchResult(), nlq.ActionSearch)

	out, err := New().ExportJSON(response)
	require.NoError(t, err)
	assert.Contains(t, out, `"type": "search"`)
	assert.Contains(t, out, `"total_count": 2`)
}

func TestExportCSV(t *testing.T) {
	response := New().Format(searchResult(), nlq.ActionSearch)

	out, err := New().ExportCSV(response)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "timestamp,event_type,user,host,source_ip,destination_ip,outcome,message", lines[0])
	assert.Contains(t, lines[1], "admin")
}

func TestExportCSVWithoutRows(t *testing.T) {
	response := New().Format(&siem.SearchResult{TotalHits: 9}, nlq.ActionCount)

	out, err := New().ExportCSV(response)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestExportHTML(t *testing.T) {
	response := New().Format(searchResult(), nlq.ActionSearch)

	out, err := New().ExportHTML(response)
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>SIEM Investigation Report</h1>")
	assert.Contains(t, out, "<td>admin</td>")
	assert.Contains(t, out, "<td>N/A</td>")
}

func TestExportHTMLWithoutRowsOmitsTable(t *testing.T) {
	response := New().Format(&siem.SearchResult{TotalHits: 9}, nlq.ActionCount)

	out, err := New().ExportHTML(response)
	require.NoError(t, err)
	assert.NotContains(t, out, "<table>")
}
