package nlq

import (
	"strconv"
	"strings"
	"time"

	"siem-assistant/internal/common/config"
	"siem-assistant/internal/common/logger"
)

// Parser turns natural language into structured intents. It is stateless
// and safe to share; conversational state lives in ContextManager.
type Parser struct {
	schema   map[string]config.EventSchema
	resolver *TimeRangeResolver
	logger   logger.Logger
}

func NewParser(cfg *config.Config, log logger.Logger) *Parser {
	return &Parser{
		schema:   cfg.Schema,
		resolver: NewTimeRangeResolver(cfg.TimeRanges, log),
		logger:   log.WithFields(map[string]interface{}{"component": "parser"}),
	}
}

// Parse extracts an Intent from text. priorContext, when non-empty, is the
// previous turn's {entities, filters, action} snapshot; its entities and
// filters are merged key-for-key with the new turn (current wins) and the
// raw snapshot is carried on the Intent verbatim.
func (p *Parser) Parse(text string, priorContext map[string]interface{}) *Intent {
	lower := strings.ToLower(text)

	action := p.detectAction(lower)
	entities := p.extractEntities(lower)
	filters := p.extractFilters(text, lower)

	if len(priorContext) > 0 {
		entities = applyContext(entities, asMap(priorContext["entities"]))
		filters = applyContext(filters, asMap(priorContext["filters"]))
	}

	return &Intent{
		Action:    action,
		Entities:  entities,
		Filters:   filters,
		Context:   priorContext,
		CreatedAt: time.Now(),
	}
}

func (p *Parser) detectAction(text string) Action {
	for _, rule := range actionRules {
		for _, pattern := range rule.patterns {
			if pattern.MatchString(text) {
				return rule.action
			}
		}
	}
	return ActionSearch
}

func (p *Parser) extractEntities(text string) map[string]interface{} {
	entities := map[string]interface{}{
		"event_types": []string{},
	}
	eventTypes := []string{}

	for _, rule := range entityRules {
		for _, pattern := range rule.patterns {
			if !pattern.MatchString(text) {
				continue
			}
			eventTypes = append(eventTypes, rule.category)

			if schema, ok := p.schema[rule.category]; ok {
				entities[rule.category+"_schema"] = schema
			}
			// at most once per category
			break
		}
	}

	entities["event_types"] = eventTypes
	return entities
}

func (p *Parser) extractFilters(original, lower string) map[string]interface{} {
	filters := map[string]interface{}{}

	for _, rule := range filterRules {
		if match := rule.pattern.FindStringSubmatch(original); match != nil {
			filters[rule.name] = match[1]
		}
	}

	filters["time_range"] = p.resolver.Resolve(lower)

	if match := limitPattern.FindStringSubmatch(lower); match != nil {
		if limit, err := strconv.Atoi(match[1]); err == nil {
			filters["limit"] = limit
		}
	}

	return filters
}

// ExtractRefinements supports follow-up narrowing ("only VPN", "exclude
// user admin", "from last hour"). It is a separate channel: Parse never
// calls it.
func (p *Parser) ExtractRefinements(text string) map[string]interface{} {
	refinements := map[string]interface{}{}

	if match := includePattern.FindStringSubmatch(text); match != nil {
		refinements["include"] = strings.TrimSpace(match[1])
	}

	if match := excludePattern.FindStringSubmatch(text); match != nil {
		refinements["exclude"] = strings.TrimSpace(match[1])
	}

	if strings.Contains(strings.ToLower(text), "last hour") {
		refinements["time_range"] = map[string]interface{}{
			"gte": "now-1h",
			"lte": "now",
		}
	}

	return refinements
}

// applyContext overlays current onto a copy of previous; current wins
// key-for-key. event_types gets replace-or-inherit treatment instead: a
// non-empty current list fully replaces the previous one, an empty current
// list inherits it. This is deliberately not a union.
func applyContext(current, previous map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(previous)+len(current))
	for k, v := range previous {
		result[k] = v
	}
	for k, v := range current {
		result[k] = v
	}

	curTypes, curOK := current["event_types"]
	prevTypes, prevOK := previous["event_types"]
	if curOK && prevOK {
		if len(toStringSlice(curTypes)) > 0 {
			result["event_types"] = curTypes
		} else {
			result["event_types"] = prevTypes
		}
	}

	return result
}

func asMap(v interface{}) map[string]interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

func toStringSlice(v interface{}) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []interface{}:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}
