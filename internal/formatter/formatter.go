// Package formatter shapes raw backend results into user-facing responses:
// text summaries, tables, chart specs, and report narratives. Shaping only,
// no decision logic.
package formatter

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"siem-assistant/internal/nlq"
	"siem-assistant/internal/siem"
)

const notAvailable = "N/A"

// Event is one flattened hit with the fields analysts care about.
type Event struct {
	Timestamp     string `json:"timestamp"`
	EventType     string `json:"event_type"`
	User          string `json:"user"`
	Host          string `json:"host"`
	SourceIP      string `json:"source_ip"`
	DestinationIP string `json:"destination_ip"`
	Outcome       string `json:"outcome"`
	Message       string `json:"message"`
}

// Bucket is one terms-aggregation bucket.
type Bucket struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// TimePoint is one date-histogram bucket.
type TimePoint struct {
	Timestamp string `json:"timestamp"`
	Count     int64  `json:"count"`
}

// Chart is a rendering-agnostic chart specification.
type Chart struct {
	Type       string   `json:"type"`
	Title      string   `json:"title"`
	Labels     []string `json:"labels,omitempty"`
	Timestamps []string `json:"timestamps,omitempty"`
	Values     []int64  `json:"values"`
}

// ReportData is the structured payload of a report response.
type ReportData struct {
	Overview          ReportOverview `json:"overview"`
	EventBreakdown    []Bucket       `json:"event_breakdown"`
	SeverityBreakdown []Bucket       `json:"severity_breakdown"`
	TopUsers          []Bucket       `json:"top_users"`
	TopHosts          []Bucket       `json:"top_hosts"`
	Timeline          []TimePoint    `json:"timeline"`
}

type ReportOverview struct {
	TotalEvents int64  `json:"total_events"`
	TimeRange   string `json:"time_range"`
	GeneratedAt string `json:"generated_at"`
}

// Response is the formatted result for one query.
type Response struct {
	Type        string           `json:"type"`
	Text        string           `json:"text"`
	TotalCount  int64            `json:"total_count"`
	ResultCount int              `json:"result_count,omitempty"`
	Data        []Event          `json:"data,omitempty"`
	Table       string           `json:"table,omitempty"`
	GroupedData []Bucket         `json:"grouped_data,omitempty"`
	TimeSeries  []TimePoint      `json:"time_series,omitempty"`
	Charts      map[string]Chart `json:"charts,omitempty"`
	Report      *ReportData      `json:"report,omitempty"`
}

type Formatter struct{}

func New() *Formatter {
	return &Formatter{}
}

// Format dispatches on the intent's action.
func (f *Formatter) Format(result *siem.SearchResult, action nlq.Action) *Response {
	switch action {
	case nlq.ActionCount:
		return f.formatCount(result)
	case nlq.ActionAggregate:
		return f.formatAggregation(result)
	case nlq.ActionReport:
		return f.formatReport(result)
	default:
		return f.formatSearch(result)
	}
}

func (f *Formatter) formatSearch(result *siem.SearchResult) *Response {
	events := make([]Event, 0, len(result.Hits))
	for _, source := range result.Hits {
		events = append(events, Event{
			Timestamp:     stringField(source, "@timestamp"),
			EventType:     nestedString(source, "event", "action"),
			User:          nestedString(source, "user", "name"),
			Host:          nestedString(source, "host", "name"),
			SourceIP:      nestedString(source, "source", "ip"),
			DestinationIP: nestedString(source, "destination", "ip"),
			Outcome:       nestedString(source, "event", "outcome"),
			Message:       stringField(source, "message"),
		})
	}

	return &Response{
		Type:        "search",
		Text:        searchSummary(events, result.TotalHits),
		TotalCount:  result.TotalHits,
		ResultCount: len(events),
		Data:        events,
		Table:       renderTable(events),
	}
}

func (f *Formatter) formatCount(result *siem.SearchResult) *Response {
	return &Response{
		Type:       "count",
		Text:       fmt.Sprintf("Found %d matching events.", result.TotalHits),
		TotalCount: result.TotalHits,
	}
}

func (f *Formatter) formatAggregation(result *siem.SearchResult) *Response {
	grouped := decodeBuckets(result.Aggregations, "grouped_results")
	if len(grouped) > 10 {
		grouped = grouped[:10]
	}
	timeSeries := decodeTimeSeries(result.Aggregations, "over_time")

	var total int64
	for _, bucket := range grouped {
		total += bucket.Count
	}

	charts := map[string]Chart{}
	if len(grouped) > 0 {
		charts["bar_chart"] = Chart{
			Type:   "bar",
			Title:  "Event Distribution",
			Labels: bucketKeys(grouped),
			Values: bucketCounts(grouped),
		}
	}
	if len(timeSeries) > 0 {
		charts["timeline"] = timelineChart("Events Over Time", timeSeries)
	}

	return &Response{
		Type:        "aggregation",
		Text:        aggregationSummary(grouped, total),
		TotalCount:  total,
		GroupedData: grouped,
		TimeSeries:  timeSeries,
		Charts:      charts,
	}
}

func (f *Formatter) formatReport(result *siem.SearchResult) *Response {
	grouped := decodeBuckets(result.Aggregations, "grouped_results")
	timeline := decodeTimeSeries(result.Aggregations, "over_time")

	var total int64
	for _, bucket := range grouped {
		total += bucket.Count
	}

	report := &ReportData{
		Overview: ReportOverview{
			TotalEvents: total,
			TimeRange:   timelineRange(timeline),
			GeneratedAt: time.Now().Format(time.RFC3339),
		},
		EventBreakdown:    grouped,
		SeverityBreakdown: decodeBuckets(result.Aggregations, "severity_breakdown"),
		TopUsers:          decodeBuckets(result.Aggregations, "top_users"),
		TopHosts:          decodeBuckets(result.Aggregations, "top_hosts"),
		Timeline:          timeline,
	}

	return &Response{
		Type:       "report",
		Text:       reportNarrative(report),
		TotalCount: total,
		Report:     report,
		Charts:     reportCharts(report),
	}
}

func searchSummary(events []Event, total int64) string {
	if total == 0 {
		return "No matching events found."
	}

	parts := []string{fmt.Sprintf("Found %d events.", total)}

	users := map[string]struct{}{}
	hosts := map[string]struct{}{}
	for _, event := range events {
		if event.User != notAvailable {
			users[event.User] = struct{}{}
		}
		if event.Host != notAvailable {
			hosts[event.Host] = struct{}{}
		}
	}

	if len(users) > 0 {
		parts = append(parts, fmt.Sprintf("Involving %d unique user(s).", len(users)))
	}
	if len(hosts) > 0 {
		parts = append(parts, fmt.Sprintf("Across %d host(s).", len(hosts)))
	}
	if len(events) > 0 && events[0].Timestamp != notAvailable {
		parts = append(parts, fmt.Sprintf("Latest event at %s.", events[0].Timestamp))
	}

	return strings.Join(parts, " ")
}

func aggregationSummary(grouped []Bucket, total int64) string {
	if len(grouped) == 0 {
		return "No data available for aggregation."
	}

	top := grouped[0]
	percentage := 0.0
	if total > 0 {
		percentage = float64(top.Count) / float64(total) * 100
	}

	return fmt.Sprintf(
		"Total of %d events across %d categories. Top category: '%s' with %d events (%.1f%% of total).",
		total, len(grouped), top.Key, top.Count, percentage,
	)
}

func reportNarrative(report *ReportData) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Security Event Report\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n", report.Overview.GeneratedAt)
	fmt.Fprintf(&b, "**Time Range:** %s\n", report.Overview.TimeRange)
	fmt.Fprintf(&b, "**Total Events:** %d\n\n", report.Overview.TotalEvents)

	fmt.Fprintf(&b, "## Executive Summary\n\n")
	fmt.Fprintf(&b, "This report provides an analysis of security events during the specified time period. ")
	fmt.Fprintf(&b, "A total of %d events were analyzed.\n\n", report.Overview.TotalEvents)

	fmt.Fprintf(&b, "## Event Breakdown\n\n")
	for _, event := range topN(report.EventBreakdown, 5) {
		percentage := 0.0
		if report.Overview.TotalEvents > 0 {
			percentage = float64(event.Count) / float64(report.Overview.TotalEvents) * 100
		}
		fmt.Fprintf(&b, "- **%s**: %d events (%.1f%%)\n", event.Key, event.Count, percentage)
	}

	if len(report.SeverityBreakdown) > 0 {
		fmt.Fprintf(&b, "\n## Severity Analysis\n\n")
		for _, sev := range report.SeverityBreakdown {
			fmt.Fprintf(&b, "- %s: %d events\n", strings.ToUpper(sev.Key), sev.Count)
		}
	}

	if len(report.TopUsers) > 0 {
		fmt.Fprintf(&b, "\n## Most Active Users\n\n")
		for _, user := range topN(report.TopUsers, 5) {
			fmt.Fprintf(&b, "- %s: %d events\n", user.Key, user.Count)
		}
	}

	if len(report.TopHosts) > 0 {
		fmt.Fprintf(&b, "\n## Most Active Hosts\n\n")
		for _, host := range topN(report.TopHosts, 5) {
			fmt.Fprintf(&b, "- %s: %d events\n", host.Key, host.Count)
		}
	}

	return b.String()
}

func reportCharts(report *ReportData) map[string]Chart {
	charts := map[string]Chart{}

	if len(report.EventBreakdown) > 0 {
		charts["event_pie"] = Chart{
			Type:   "pie",
			Title:  "Event Type Distribution",
			Labels: bucketKeys(report.EventBreakdown),
			Values: bucketCounts(report.EventBreakdown),
		}
	}
	if len(report.SeverityBreakdown) > 0 {
		charts["severity_bar"] = Chart{
			Type:   "bar",
			Title:  "Events by Severity",
			Labels: bucketKeys(report.SeverityBreakdown),
			Values: bucketCounts(report.SeverityBreakdown),
		}
	}
	if len(report.Timeline) > 0 {
		charts["timeline"] = timelineChart("Event Timeline", report.Timeline)
	}
	if len(report.TopUsers) > 0 {
		users := topN(report.TopUsers, 10)
		charts["users_bar"] = Chart{
			Type:   "horizontal_bar",
			Title:  "Top 10 Active Users",
			Labels: bucketKeys(users),
			Values: bucketCounts(users),
		}
	}

	return charts
}

func renderTable(events []Event) string {
	if len(events) == 0 {
		return "No data to display"
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, "TIMESTAMP\tEVENT\tUSER\tHOST\tSOURCE IP\tDEST IP\tOUTCOME")
	for i, event := range events {
		if i >= 20 {
			fmt.Fprintf(w, "... %d more rows\n", len(events)-i)
			break
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			event.Timestamp, event.EventType, event.User, event.Host,
			event.SourceIP, event.DestinationIP, event.Outcome)
	}
	w.Flush()

	return buf.String()
}

func timelineChart(title string, series []TimePoint) Chart {
	timestamps := make([]string, 0, len(series))
	values := make([]int64, 0, len(series))
	for _, point := range series {
		timestamps = append(timestamps, point.Timestamp)
		values = append(values, point.Count)
	}
	return Chart{Type: "line", Title: title, Timestamps: timestamps, Values: values}
}

func timelineRange(timeline []TimePoint) string {
	if len(timeline) == 0 {
		return notAvailable
	}
	return fmt.Sprintf("%s to %s", timeline[0].Timestamp, timeline[len(timeline)-1].Timestamp)
}

func decodeBuckets(aggs map[string]interface{}, name string) []Bucket {
	buckets := rawBuckets(aggs, name)
	out := make([]Bucket, 0, len(buckets))
	for _, raw := range buckets {
		bucket, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		out = append(out, Bucket{
			Key:   fmt.Sprintf("%v", bucket["key"]),
			Count: asInt64(bucket["doc_count"]),
		})
	}
	return out
}

func decodeTimeSeries(aggs map[string]interface{}, name string) []TimePoint {
	buckets := rawBuckets(aggs, name)
	out := make([]TimePoint, 0, len(buckets))
	for _, raw := range buckets {
		bucket, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		timestamp, _ := bucket["key_as_string"].(string)
		out = append(out, TimePoint{
			Timestamp: timestamp,
			Count:     asInt64(bucket["doc_count"]),
		})
	}
	return out
}

func rawBuckets(aggs map[string]interface{}, name string) []interface{} {
	agg, ok := aggs[name].(map[string]interface{})
	if !ok {
		return nil
	}
	buckets, _ := agg["buckets"].([]interface{})
	return buckets
}

func bucketKeys(buckets []Bucket) []string {
	keys := make([]string, 0, len(buckets))
	for _, bucket := range buckets {
		keys = append(keys, bucket.Key)
	}
	return keys
}

func bucketCounts(buckets []Bucket) []int64 {
	counts := make([]int64, 0, len(buckets))
	for _, bucket := range buckets {
		counts = append(counts, bucket.Count)
	}
	return counts
}

func topN(buckets []Bucket, n int) []Bucket {
	if len(buckets) > n {
		return buckets[:n]
	}
	return buckets
}

func stringField(source map[string]interface{}, key string) string {
	if value, ok := source[key].(string); ok && value != "" {
		return value
	}
	return notAvailable
}

func nestedString(source map[string]interface{}, outer, inner string) string {
	if nested, ok := source[outer].(map[string]interface{}); ok {
		if value, ok := nested[inner].(string); ok && value != "" {
			return value
		}
	}
	return notAvailable
}

func asInt64(raw interface{}) int64 {
	switch v := raw.(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}
