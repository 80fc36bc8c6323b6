package jobs

import "github.com/joseph-ayodele/automations/internal/gateway"

var jobItem = map[string]any{
	"type":     "object",
	"required": []any{"id"},
}

// listSchema accepts a bare array of headers or {rows|jobs: [...], total?: n}.
var listSchema = gateway.MustCompileSchema("job_listing", map[string]any{
	"oneOf": []any{
		map[string]any{"type": "array", "items": jobItem},
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"rows":  map[string]any{"type": "array", "items": jobItem},
				"jobs":  map[string]any{"type": "array", "items": jobItem},
				"total": map[string]any{"type": "integer", "minimum": 0},
			},
			"anyOf": []any{
				map[string]any{"required": []any{"rows"}},
				map[string]any{"required": []any{"jobs"}},
			},
		},
	},
})
