// Package assistant orchestrates the natural-language query pipeline:
// parse, generate, validate, execute, format, and track conversation
// context for follow-up questions.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"siem-assistant/internal/audit"
	"siem-assistant/internal/common/config"
	stderrors "siem-assistant/internal/common/errors"
	"siem-assistant/internal/common/logger"
	"siem-assistant/internal/common/metrics"
	"siem-assistant/internal/formatter"
	"siem-assistant/internal/nlq"
	"siem-assistant/internal/query"
	"siem-assistant/internal/siem"
)

// IntentSummary is the intent echo attached to responses.
type IntentSummary struct {
	Action   string                 `json:"action"`
	Entities map[string]interface{} `json:"entities"`
	Filters  map[string]interface{} `json:"filters"`
}

// Answer is the response envelope for one question.
type Answer struct {
	Success        bool                `json:"success"`
	ConversationID string              `json:"conversation_id"`
	Error          string              `json:"error,omitempty"`
	Suggestions    []string            `json:"suggestions,omitempty"`
	QueryCost      string              `json:"query_cost,omitempty"`
	Intent         *IntentSummary      `json:"intent,omitempty"`
	Result         *formatter.Response `json:"result,omitempty"`
}

// Explanation shows how a question would be processed, without executing.
type Explanation struct {
	OriginalQuery  string                 `json:"original_query"`
	DetectedIntent *IntentSummary         `json:"detected_intent"`
	TargetIndex    string                 `json:"target_index"`
	DSL            map[string]interface{} `json:"elasticsearch_dsl"`
	KQL            string                 `json:"kql_equivalent"`
	EstimatedCost  string                 `json:"estimated_cost"`
}

// HealthStatus reports component health.
type HealthStatus struct {
	Overall    string            `json:"overall"`
	Components map[string]string `json:"components"`
}

// HistoryEntry is one prior turn, for display.
type HistoryEntry struct {
	Timestamp string                 `json:"timestamp"`
	Action    string                 `json:"action"`
	Entities  map[string]interface{} `json:"entities"`
	Filters   map[string]interface{} `json:"filters"`
}

// Assistant wires the pipeline together. Not safe for concurrent use;
// one Assistant per conversation.
type Assistant struct {
	conversationID string
	parser         *nlq.Parser
	contextMgr     *nlq.ContextManager
	generator      *query.Generator
	validator      *query.Validator
	connector      *siem.Connector
	formatter      *formatter.Formatter
	auditStore     *audit.Store
	logger         logger.Logger
}

// New builds an assistant. auditStore may be nil to disable auditing.
func New(cfg *config.Config, connector *siem.Connector, auditStore *audit.Store, log logger.Logger) *Assistant {
	maxHistory := cfg.Limits.MaxHistory
	if maxHistory <= 0 {
		maxHistory = nlq.DefaultMaxHistory
	}

	return &Assistant{
		conversationID: uuid.NewString(),
		parser:         nlq.NewParser(cfg, log),
		contextMgr:     nlq.NewContextManager(maxHistory),
		generator:      query.NewGenerator(cfg, log),
		validator:      query.NewValidator(cfg),
		connector:      connector,
		formatter:      formatter.New(),
		auditStore:     auditStore,
		logger:         log.WithFields(map[string]interface{}{"component": "assistant"}),
	}
}

// ConversationID identifies this conversation in logs and audit entries.
func (a *Assistant) ConversationID() string {
	return a.conversationID
}

// Ask processes one natural-language question end to end. Validation
// failures come back as unsuccessful answers with suggestions, not errors;
// the error return is reserved for backend and infrastructure failures.
func (a *Assistant) Ask(ctx context.Context, question string) (*Answer, error) {
	start := time.Now()

	a.logger.Info("processing query", map[string]interface{}{
		"conversationId": a.conversationID,
		"query":          question,
	})

	var priorContext map[string]interface{}
	if a.contextMgr.IsRefinementQuery(question) {
		priorContext = a.contextMgr.Context()
	}
	intent := a.parser.Parse(question, priorContext)

	descriptor := a.generator.Generate(intent)
	descriptor.Query = a.generator.Optimize(descriptor.Query)

	if ok, reason := a.validator.Validate(descriptor); !ok {
		a.logger.Warn("query validation failed", map[string]interface{}{
			"reason": reason,
		})
		metrics.QueryFailures.WithLabelValues("VALIDATION").Inc()
		return a.finishAnswer(&Answer{
			Success:     false,
			Error:       fmt.Sprintf("Query validation failed: %s", reason),
			Suggestions: a.querySuggestions(intent),
		})
	}

	cost := a.validator.EstimateCost(descriptor)
	metrics.QueryCost.WithLabelValues(cost).Inc()

	result, err := a.execute(ctx, descriptor, intent)
	if err != nil {
		reason := "OTHER"
		if se, ok := err.(*stderrors.StandardError); ok {
			reason = stderrors.GetErrorCategory(se.Code)
		}
		metrics.QueryFailures.WithLabelValues(reason).Inc()
		return nil, err
	}

	response := a.formatter.Format(result, intent.Action)

	a.contextMgr.AddIntent(intent)
	metrics.ContextHistorySize.Set(float64(len(a.contextMgr.History())))
	metrics.QueriesProcessed.WithLabelValues(string(intent.Action)).Inc()
	metrics.QueryDuration.WithLabelValues(string(intent.Action)).Observe(time.Since(start).Seconds())

	a.recordAudit(ctx, question, intent, descriptor, cost, result, time.Since(start))

	return a.finishAnswer(&Answer{
		Success:   true,
		QueryCost: cost,
		Intent:    summarize(intent),
		Result:    response,
	})
}

// Explain shows the full translation of a question without running it.
func (a *Assistant) Explain(ctx context.Context, question string) (*Explanation, error) {
	var priorContext map[string]interface{}
	if a.contextMgr.IsRefinementQuery(question) {
		priorContext = a.contextMgr.Context()
	}
	intent := a.parser.Parse(question, priorContext)

	descriptor := a.generator.Generate(intent)

	return &Explanation{
		OriginalQuery:  question,
		DetectedIntent: summarize(intent),
		TargetIndex:    descriptor.Index,
		DSL:            descriptor.Query,
		KQL:            a.generator.KQL(intent),
		EstimatedCost:  a.validator.EstimateCost(descriptor),
	}, nil
}

// Report runs the question and exports the formatted result. Supported
// formats: text (default), json, csv, html.
func (a *Assistant) Report(ctx context.Context, question, format string) (string, error) {
	answer, err := a.Ask(ctx, question)
	if err != nil {
		return "", err
	}
	if !answer.Success {
		return "", stderrors.NewQueryValidationFailedError(answer.Error)
	}

	switch format {
	case "json":
		return a.formatter.ExportJSON(answer.Result)
	case "csv":
		return a.formatter.ExportCSV(answer.Result)
	case "html":
		return a.formatter.ExportHTML(answer.Result)
	default:
		return answer.Result.Text, nil
	}
}

// History returns the conversation turns, oldest first.
func (a *Assistant) History() []HistoryEntry {
	intents := a.contextMgr.History()
	entries := make([]HistoryEntry, 0, len(intents))
	for _, intent := range intents {
		entries = append(entries, HistoryEntry{
			Timestamp: intent.CreatedAt.Format(time.RFC3339),
			Action:    string(intent.Action),
			Entities:  intent.Entities,
			Filters:   intent.Filters,
		})
	}
	return entries
}

// ClearContext drops all conversation state.
func (a *Assistant) ClearContext() {
	a.contextMgr.Clear()
	metrics.ContextHistorySize.Set(0)
	a.logger.Info("conversation context cleared", map[string]interface{}{
		"conversationId": a.conversationID,
	})
}

// HealthCheck probes each component. Degraded, not failed, when a single
// component is down.
func (a *Assistant) HealthCheck(ctx context.Context) *HealthStatus {
	health := &HealthStatus{
		Overall:    "healthy",
		Components: map[string]string{},
	}

	if err := a.connector.Ping(ctx); err != nil {
		health.Components["siem_connection"] = fmt.Sprintf("unhealthy: %v", err)
		health.Overall = "degraded"
	} else {
		health.Components["siem_connection"] = "healthy"
	}

	if a.auditStore != nil {
		if _, err := a.auditStore.Recent(ctx, 1); err != nil {
			health.Components["audit_store"] = fmt.Sprintf("unhealthy: %v", err)
			health.Overall = "degraded"
		} else {
			health.Components["audit_store"] = "healthy"
		}
	}

	return health
}

func (a *Assistant) execute(ctx context.Context, d *query.Descriptor, intent *nlq.Intent) (*siem.SearchResult, error) {
	switch intent.Action {
	case nlq.ActionCount:
		count, err := a.connector.Count(ctx, d.Index, d.Query)
		if err != nil {
			return nil, err
		}
		return &siem.SearchResult{TotalHits: count}, nil
	case nlq.ActionAggregate, nlq.ActionReport:
		return a.connector.Aggregations(ctx, d.Index, d.Query)
	default:
		return a.connector.Search(ctx, d.Index, d.Query, d.Size)
	}
}

func (a *Assistant) querySuggestions(intent *nlq.Intent) []string {
	suggestions := []string{}

	if len(intent.EventTypes()) == 0 {
		suggestions = append(suggestions, "Try specifying an event type (e.g., 'failed logins', 'malware', 'network connections')")
	}
	if _, ok := intent.Filters["time_range"]; !ok {
		suggestions = append(suggestions, "Consider adding a time range (e.g., 'yesterday', 'last week', 'last 24 hours')")
	}
	suggestions = append(suggestions, "Use more specific terms like user names, IP addresses, or hostnames")

	return suggestions
}

func (a *Assistant) recordAudit(ctx context.Context, question string, intent *nlq.Intent, d *query.Descriptor, cost string, result *siem.SearchResult, duration time.Duration) {
	if a.auditStore == nil {
		return
	}

	entry := &audit.Entry{
		ConversationID: a.conversationID,
		Question:       question,
		Action:         string(intent.Action),
		Index:          d.Index,
		Cost:           cost,
		HitCount:       result.TotalHits,
		DurationMs:     duration.Milliseconds(),
	}

	// Audit is best-effort; a failed write never fails the query.
	if _, err := a.auditStore.Record(ctx, entry); err != nil {
		a.logger.Warn("audit write failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// finishAnswer stamps the conversation id and checks the envelope against
// the response schema before handing it back.
func (a *Assistant) finishAnswer(answer *Answer) (*Answer, error) {
	answer.ConversationID = a.conversationID

	payload, err := json.Marshal(answer)
	if err != nil {
		return nil, stderrors.NewResponseInvalidError(err.Error())
	}

	validation, err := gojsonschema.Validate(answerSchema, gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return nil, stderrors.NewResponseInvalidError(err.Error())
	}
	if !validation.Valid() {
		details := ""
		for _, desc := range validation.Errors() {
			details += desc.String() + "; "
		}
		return nil, stderrors.NewResponseInvalidError(details)
	}

	return answer, nil
}

func summarize(intent *nlq.Intent) *IntentSummary {
	return &IntentSummary{
		Action:   string(intent.Action),
		Entities: intent.Entities,
		Filters:  intent.Filters,
	}
}
