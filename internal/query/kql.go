package query

import (
	"fmt"
	"strings"

	"siem-assistant/internal/nlq"
)

// KQL renders the intent as a flattened Kibana Query Language expression.
// Time range and limit are deliberately omitted; they are transport
// concerns, not part of the text form.
func (g *Generator) KQL(intent *nlq.Intent) string {
	parts := []string{}

	for _, eventType := range intent.EventTypes() {
		schema, ok := g.schema[eventType]
		if !ok {
			continue
		}

		for _, field := range sortedKeys(schema.Conditions) {
			values := schema.Conditions[field]
			if list, ok := values.([]interface{}); ok {
				quoted := make([]string, 0, len(list))
				for _, v := range list {
					quoted = append(quoted, fmt.Sprintf("%q", fmt.Sprintf("%v", v)))
				}
				parts = append(parts, fmt.Sprintf("%s: (%s)", field, strings.Join(quoted, " or ")))
			} else {
				parts = append(parts, fmt.Sprintf("%s: %q", field, fmt.Sprintf("%v", values)))
			}
		}
	}

	filters := intent.Filters

	if user, ok := filters["user"].(string); ok {
		parts = append(parts, fmt.Sprintf("user.name: %q", user))
	}
	if sourceIP, ok := filters["source_ip"].(string); ok {
		parts = append(parts, fmt.Sprintf("source.ip: %s", sourceIP))
	}
	if destIP, ok := filters["destination_ip"].(string); ok {
		parts = append(parts, fmt.Sprintf("destination.ip: %s", destIP))
	}
	if hostname, ok := filters["hostname"].(string); ok {
		parts = append(parts, fmt.Sprintf("host.name: %q", hostname))
	}
	if port, ok := filters["port"].(string); ok {
		parts = append(parts, fmt.Sprintf("destination.port: %s", port))
	}

	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, " and ")
}
