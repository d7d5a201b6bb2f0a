package assistant

import "github.com/xeipuuv/gojsonschema"

// answerSchema is the contract every outgoing envelope must satisfy.
var answerSchema = gojsonschema.NewStringLoader(`{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["success", "conversation_id"],
	"properties": {
		"success": {"type": "boolean"},
		"conversation_id": {"type": "string", "minLength": 1},
		"error": {"type": "string"},
		"suggestions": {
			"type": "array",
			"items": {"type": "string"}
		},
		"query_cost": {"enum": ["low", "medium", "high"]},
		"intent": {
			"type": "object",
			"required": ["action"],
			"properties": {
				"action": {"enum": ["search", "count", "aggregate", "report"]},
				"entities": {"type": "object"},
				"filters": {"type": "object"}
			}
		},
		"result": {
			"type": "object",
			"required": ["type", "text"],
			"properties": {
				"type": {"enum": ["search", "count", "aggregation", "report"]},
				"text": {"type": "string"},
				"total_count": {"type": "integer"}
			}
		}
	}
}`)
