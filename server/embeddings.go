package server

import (
	"encoding/json"
	"net/http"

	"aigateway/gwconfig"
	"aigateway/gwerrors"
	"aigateway/gwtypes"
	"aigateway/translate"
)

// handleEmbeddings serves POST /v1/embedded (Component H).
func (s *Server) handleEmbeddings(w http.ResponseWriter, r *http.Request) {
	var req gwtypes.EmbeddingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, gwerrors.InvalidRequest("malformed request body: %v", err))
		return
	}

	inputs := req.InputStrings()
	if err := translate.ValidateEmbeddingInput(inputs); err != nil {
		writeError(w, err)
		return
	}

	endpoint, apiKey, keyID, err := s.Credentials.SelectDirect(r.Context(), gwconfig.TierPrimary)
	if err != nil {
		writeError(w, gwerrors.Wrap(gwerrors.KindUpstream, "selecting direct credential", err))
		return
	}

	upstreamResp, err := s.Direct.ProxyEmbeddings(r.Context(), req.Model, inputs, endpoint, apiKey)
	if err != nil {
		writeError(w, err)
		return
	}

	resp, err := translate.EmbeddingUpstreamToOpenAI(upstreamResp, req.Model)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("X-Selected-Key-ID", keyID)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger(r).Error("failed to encode embeddings response: %v", err)
	}
}
