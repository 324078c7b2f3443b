package translate

import (
	"aigateway/gemini"
	"aigateway/gwerrors"
	"aigateway/gwtypes"
)

const minEmbeddingInputLength = 5

// ValidateEmbeddingInput applies spec §4.H's input-validity check: every
// input string must be non-empty and at least minEmbeddingInputLength
// characters. A single failing element invalidates the whole request.
func ValidateEmbeddingInput(inputs []string) error {
	if len(inputs) == 0 {
		return gwerrors.InvalidRequest("embeddings request has no input")
	}
	for _, s := range inputs {
		if len(s) < minEmbeddingInputLength {
			return gwerrors.InvalidRequest("embeddings input %q is shorter than the minimum of %d characters", s, minEmbeddingInputLength)
		}
	}
	return nil
}

// EmbeddingUpstreamToOpenAI converts the upstream embed response into the
// OpenAI-compatible list form. Usage is always zeroed per spec: the
// upstream embeddings endpoint reports no token accounting.
func EmbeddingUpstreamToOpenAI(resp *gemini.EmbedResponse, model string) (gwtypes.EmbeddingResponse, error) {
	out := gwtypes.EmbeddingResponse{
		Object: "list",
		Model:  model,
		Usage:  gwtypes.EmbeddingUsage{},
	}

	switch {
	case resp == nil:
		return out, gwerrors.New(gwerrors.KindTranslation, "embeddings response was empty")
	case len(resp.Embeddings) > 0:
		out.Data = make([]gwtypes.EmbeddingData, 0, len(resp.Embeddings))
		for i, e := range resp.Embeddings {
			out.Data = append(out.Data, gwtypes.EmbeddingData{
				Object:    "embedding",
				Embedding: e.Values,
				Index:     i,
			})
		}
		return out, nil
	case resp.Embedding != nil:
		out.Data = []gwtypes.EmbeddingData{{
			Object:    "embedding",
			Embedding: resp.Embedding.Values,
			Index:     0,
		}}
		return out, nil
	default:
		return out, gwerrors.New(gwerrors.KindTranslation, "embeddings response matched neither known upstream shape")
	}
}
