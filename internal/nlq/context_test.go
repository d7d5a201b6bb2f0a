package nlq

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIntent(user string) *Intent {
	return &Intent{
		Action: ActionSearch,
		Entities: map[string]interface{}{
			"event_types": []string{"failed_login"},
		},
		Filters: map[string]interface{}{
			"user": user,
		},
	}
}

func TestContextManagerAddIntent(t *testing.T) {
	manager := NewContextManager(10)

	assert.Empty(t, manager.Context())
	assert.Nil(t, manager.LastIntent())

	intent := testIntent("alice")
	manager.AddIntent(intent)

	context := manager.Context()
	assert.Equal(t, intent.Entities, context["entities"])
	assert.Equal(t, intent.Filters, context["filters"])
	assert.Equal(t, "search", context["action"])
	assert.Same(t, intent, manager.LastIntent())
}

func TestContextManagerEviction(t *testing.T) {
	const maxHistory = 10
	manager := NewContextManager(maxHistory)

	for i := 0; i < maxHistory+3; i++ {
		manager.AddIntent(testIntent(fmt.Sprintf("user-%d", i)))
	}

	history := manager.History()
	require.Len(t, history, maxHistory)

	// Oldest three were evicted; the newest survives.
	assert.Equal(t, "user-3", history[0].Filters["user"])
	assert.Equal(t, "user-12", history[maxHistory-1].Filters["user"])
}

func TestContextManagerClear(t *testing.T) {
	manager := NewContextManager(10)
	manager.AddIntent(testIntent("alice"))

	manager.Clear()

	assert.Empty(t, manager.History())
	assert.Empty(t, manager.Context())
	assert.Nil(t, manager.LastIntent())
}

func TestContextManagerZeroMaxFallsBackToDefault(t *testing.T) {
	manager := NewContextManager(0)

	for i := 0; i < DefaultMaxHistory+1; i++ {
		manager.AddIntent(testIntent(fmt.Sprintf("user-%d", i)))
	}

	assert.Len(t, manager.History(), DefaultMaxHistory)
}

func TestIsRefinementQuery(t *testing.T) {
	manager := NewContextManager(10)

	tests := []struct {
		text     string
		expected bool
	}{
		{"only vpn traffic", true},
		{"exclude user admin", true},
		{"filter by severity high", true},
		{"show more results", true},
		{"focus on host web-01", true},
		{"Just the failed ones", true},
		{"show me failed logins", false},
		{"how many malware detections?", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.expected, manager.IsRefinementQuery(tt.text))
		})
	}
}
