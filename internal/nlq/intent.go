// Package nlq turns free-text analyst questions into structured intents.
package nlq

import (
	"fmt"
	"time"
)

// Action is the query shape a parsed intent resolves to.
type Action string

const (
	ActionSearch    Action = "search"
	ActionCount     Action = "count"
	ActionAggregate Action = "aggregate"
	ActionReport    Action = "report"
)

// Intent is the structured result of classifying one user utterance.
// It is treated as immutable after construction.
type Intent struct {
	Action    Action                 `json:"action"`
	Entities  map[string]interface{} `json:"entities"`
	Filters   map[string]interface{} `json:"filters"`
	Context   map[string]interface{} `json:"context,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// EventTypes returns the detected event categories in detection order.
func (i *Intent) EventTypes() []string {
	if i.Entities == nil {
		return nil
	}
	switch v := i.Entities["event_types"].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// HasEventType reports whether category was detected.
func (i *Intent) HasEventType(category string) bool {
	for _, t := range i.EventTypes() {
		if t == category {
			return true
		}
	}
	return false
}

func (i *Intent) String() string {
	return fmt.Sprintf("Intent(action=%s, entities=%v, filters=%v)", i.Action, i.Entities, i.Filters)
}
