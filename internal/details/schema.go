package details

import "github.com/joseph-ayodele/automations/internal/gateway"

// pageSchema accepts {rows|detalles: [...], total|totalRegistros: n}.
var pageSchema = gateway.MustCompileSchema("detail_page", map[string]any{
	"type": "object",
	"properties": map[string]any{
		"rows":           map[string]any{"type": "array", "items": map[string]any{"type": "object"}},
		"detalles":       map[string]any{"type": "array", "items": map[string]any{"type": "object"}},
		"total":          map[string]any{"type": "integer", "minimum": 0},
		"totalRegistros": map[string]any{"type": "integer", "minimum": 0},
	},
	"allOf": []any{
		map[string]any{"anyOf": []any{
			map[string]any{"required": []any{"rows"}},
			map[string]any{"required": []any{"detalles"}},
		}},
		map[string]any{"anyOf": []any{
			map[string]any{"required": []any{"total"}},
			map[string]any{"required": []any{"totalRegistros"}},
		}},
	},
})
