package tools

import "context"

// helpTools lists every registered tool. The heuristic engine answers
// "quais ferramentas" intents directly from this result, without the model.
func (r *Registry) helpTools(ctx context.Context, args map[string]any) Result {
	listing := make([]map[string]any, 0, len(r.specs))
	for _, spec := range r.List() {
		listing = append(listing, map[string]any{
			"name":        spec.Name,
			"description": spec.Description,
			"params":      spec.Params,
		})
	}
	return OK(map[string]any{"tools": listing})
}
