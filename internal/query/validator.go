package query

import (
	"fmt"
	"strings"

	"siem-assistant/internal/common/config"
)

// Cost classes for EstimateCost.
const (
	CostLow    = "low"
	CostMedium = "medium"
	CostHigh   = "high"
)

// Validator performs structural checks on generated descriptors before
// they reach the backend. Checks run in a fixed order and the first
// failure wins; failures are results, not errors.
type Validator struct {
	maxResults int
}

func NewValidator(cfg *config.Config) *Validator {
	return &Validator{maxResults: cfg.Limits.MaxResults}
}

// Validate reports whether the descriptor is executable, and if not, why.
func (v *Validator) Validate(d *Descriptor) (bool, string) {
	if d == nil || d.Index == "" {
		return false, "No index specified"
	}

	if d.Query == nil {
		return false, "No query specified"
	}

	if d.Size > v.maxResults {
		return false, fmt.Sprintf("Size %d exceeds maximum %d", d.Size, v.maxResults)
	}

	if _, ok := d.Query["query"]; !ok {
		return false, "Query must contain 'query' field"
	}

	return true, ""
}

// EstimateCost classifies the descriptor's expected backend expense from
// its structural shape alone.
func (v *Validator) EstimateCost(d *Descriptor) string {
	if d == nil || d.Query == nil {
		return CostLow
	}

	_, hasAggs := d.Query["aggs"]
	hasWildcards := containsClause(d.Query, "wildcard")
	hasRegex := containsClause(d.Query, "regexp")

	switch {
	case hasRegex || (hasAggs && d.Size > 1000):
		return CostHigh
	case hasWildcards || hasAggs:
		return CostMedium
	default:
		return CostLow
	}
}

// containsClause walks nested maps and lists looking for a key matching
// name, case-insensitively.
func containsClause(obj interface{}, name string) bool {
	switch value := obj.(type) {
	case map[string]interface{}:
		for key, nested := range value {
			if strings.EqualFold(key, name) {
				return true
			}
			if containsClause(nested, name) {
				return true
			}
		}
	case []interface{}:
		for _, item := range value {
			if containsClause(item, name) {
				return true
			}
		}
	}
	return false
}
