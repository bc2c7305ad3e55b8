package weakzone

import "github.com/rebootlabs/mastery/internal/llm"

// SupplementSchema defines the three-part remedial explanation.
var SupplementSchema = &llm.Schema{
	Name:        "weakzone-supplement",
	Description: "A short remedial explanation of a concept a student is struggling with",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "핵심 개념 한 줄 정리",
			},
			"example": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "쉬운 비유 또는 예시 1개",
			},
			"remember": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "\"이것만 기억하세요\" 한 줄",
			},
		},
		"required":             []any{"summary", "example", "remember"},
		"additionalProperties": false,
	},
}
