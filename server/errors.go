package server

import (
	"encoding/json"
	"net/http"

	"aigateway/gwerrors"
	"aigateway/gwtypes"
)

// writeError encodes err as an OpenAI-compatible error envelope with the
// status code gwerrors.Kind maps to (spec.md §7).
func writeError(w http.ResponseWriter, err error) {
	gwErr, ok := gwerrors.As(err)
	if !ok {
		gwErr = gwerrors.Wrap(gwerrors.KindInternal, err.Error(), err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(gwErr.HTTPStatus())
	_ = json.NewEncoder(w).Encode(gwtypes.ErrorResponse{
		Error: gwtypes.ErrorDetail{
			Message: gwErr.Message,
			Type:    gwErr.Kind.String(),
		},
	})
}
