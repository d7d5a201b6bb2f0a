package nlq

import "strings"

// DefaultMaxHistory bounds conversation history when no limit is configured.
const DefaultMaxHistory = 10

// ContextManager holds one conversation's state: a bounded FIFO of parsed
// intents plus the current merge-base snapshot. It is not safe for
// concurrent use; give each conversation its own instance.
type ContextManager struct {
	maxHistory int
	history    []*Intent
	current    map[string]interface{}
}

func NewContextManager(maxHistory int) *ContextManager {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &ContextManager{
		maxHistory: maxHistory,
		current:    map[string]interface{}{},
	}
}

// AddIntent appends a completed turn's intent, evicting the oldest entry
// when the history is full, and refreshes the current context snapshot.
func (m *ContextManager) AddIntent(intent *Intent) {
	m.history = append(m.history, intent)
	if len(m.history) > m.maxHistory {
		m.history = m.history[1:]
	}

	m.current = map[string]interface{}{
		"entities": intent.Entities,
		"filters":  intent.Filters,
		"action":   string(intent.Action),
	}
}

// Context returns the current merge-base snapshot; empty before any turn.
func (m *ContextManager) Context() map[string]interface{} {
	return m.current
}

// Clear resets history and current context.
func (m *ContextManager) Clear() {
	m.history = nil
	m.current = map[string]interface{}{}
}

// History returns the retained intents, oldest first.
func (m *ContextManager) History() []*Intent {
	return m.history
}

// LastIntent returns the most recent intent, or nil.
func (m *ContextManager) LastIntent() *Intent {
	if len(m.history) == 0 {
		return nil
	}
	return m.history[len(m.history)-1]
}

// IsRefinementQuery reports whether text looks like it narrows the previous
// query. Callers use it to decide whether to pass context into Parse; Parse
// itself never consults it.
func (m *ContextManager) IsRefinementQuery(text string) bool {
	lower := strings.ToLower(text)
	for _, keyword := range refinementKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
