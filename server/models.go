package server

import (
	"encoding/json"
	"net/http"

	"aigateway/catalog"
	"aigateway/gwtypes"
)

// handleModels serves GET /v1/models, sharing Synthesize with the
// chat-completions model-resolution path per spec.md §9's Open Question
// resolution (one function, two callers, eliminating drift between listing
// and dispatch).
func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	entries := catalog.Synthesize(s.BaseModels, s.catalogOptions())

	resp := gwtypes.ModelsListResponse{Object: "list"}
	created := nowUnix()
	for _, e := range entries {
		info := gwtypes.ModelInfo{
			ID:      e.ID,
			Object:  "model",
			Created: created,
			OwnedBy: "google",
		}
		if s.DescriptionFor != nil {
			if desc, ok := s.DescriptionFor(e.BaseID); ok {
				info.Description = desc
			}
		}
		resp.Data = append(resp.Data, info)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger(r).Error("failed to encode models list: %v", err)
	}
}
