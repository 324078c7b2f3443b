package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"

	"aigateway/catalog"
	"aigateway/gemini"
	"aigateway/gwconfig"
	"aigateway/gwerrors"
	"aigateway/gwlog"
	"aigateway/gwtypes"
	"aigateway/stream"
	"aigateway/translate"
	"aigateway/upstream"
)

// handleChatCompletions serves POST /v1/chat/completions, the one route
// that can answer as either a single JSON body or an SSE stream depending on
// the client's stream flag.
func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	log := s.logger(r)

	var req gwtypes.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, gwerrors.InvalidRequest("malformed request body: %v", err))
		return
	}

	entry, ok := catalog.Resolve(s.BaseModels, s.catalogOptions(), req.Model)
	if !ok {
		writeError(w, gwerrors.InvalidRequest("unknown model %q", req.Model))
		return
	}

	useAlternate := entry.Alternate && s.Alternate != nil && s.Alternate.IsEnabled() && containsString(s.Alternate.SupportedModels(), entry.BaseID)

	var endpoint, apiKey, keyID, proxiedBy string
	if useAlternate {
		proxiedBy = "alternate"
	} else {
		var err error
		endpoint, apiKey, keyID, err = s.Credentials.SelectDirect(r.Context(), gwconfig.TierPrimary)
		if err != nil {
			writeError(w, gwerrors.Wrap(gwerrors.KindUpstream, "selecting direct credential", err))
			return
		}
		proxiedBy = "direct"
	}

	safetyDisabled := false
	if !useAlternate && s.Settings != nil {
		safetyDisabled = s.Settings.GetWorkerKeySafetySetting(r.Context(), apiKey)
	}

	upstreamReq, _, err := translate.OpenAIToUpstream(req, translate.RequestOptions{
		SupportsSystemInstruction: true,
		SafetyFilteringDisabled:   safetyDisabled,
	}, log)
	if err != nil {
		writeError(w, gwerrors.Wrap(gwerrors.KindTranslation, "translating request", err))
		return
	}

	if entry.NonThinking {
		if upstreamReq.GenerationConfig == nil {
			upstreamReq.GenerationConfig = &gemini.GenConfig{}
		}
		upstreamReq.GenerationConfig.ThinkingConfig = &gemini.ThinkingConfig{ThinkingBudget: 0}
	}

	w.Header().Set("X-Proxied-By", proxiedBy)
	if keyID != "" {
		w.Header().Set("X-Selected-Key-ID", keyID)
	}

	if !req.Stream {
		s.nonStreamChatCompletion(w, r, upstreamReq, useAlternate, entry, endpoint, apiKey)
		return
	}

	// The keep-alive pump only engages when every one of spec §4.F's three
	// conditions holds: streaming requested, the pump feature enabled, and
	// safety filtering off for this caller. Any other stream request gets
	// ordinary incremental SSE translation with no pump.
	if s.KeepAliveEnabled && safetyDisabled {
		s.keepAliveChatCompletion(w, r, useAlternate, upstreamReq, entry, endpoint, apiKey, log)
		return
	}
	s.streamChatCompletion(w, r, useAlternate, upstreamReq, entry, endpoint, apiKey, log)
}

func (s *Server) nonStreamChatCompletion(w http.ResponseWriter, r *http.Request, req *gemini.Request, useAlternate bool, entry catalog.Entry, endpoint, apiKey string) {
	result, err := s.callUpstream(r.Context(), req, useAlternate, entry, endpoint, apiKey, false)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := translate.UpstreamToOpenAI(result.Response, entry.ID)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// keepAliveChatCompletion implements spec §4.F: the gateway answers with SSE
// headers immediately and emits heartbeats while a single non-streaming
// upstream call is in flight, then repackages that call's full completion
// as one closing chat.completion.chunk instead of incrementally translating
// a live stream.
func (s *Server) keepAliveChatCompletion(w http.ResponseWriter, r *http.Request, useAlternate bool, req *gemini.Request, entry catalog.Entry, endpoint, apiKey string, log gwlog.Logger) {
	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, _ := w.(http.Flusher)
	serial := stream.NewSerialWriter(&flushWriter{w: w, flusher: flusher})

	pump := stream.NewKeepAlivePump(serial)
	result, err := s.callUpstream(r.Context(), req, useAlternate, entry, endpoint, apiKey, false)
	pump.Stop()

	if err != nil {
		_ = serial.WriteFrame(stream.Frame(stream.ErrorEvent(gwerrors.KindUpstream.String(), err.Error())))
		_ = serial.WriteFrame(stream.DoneEvent())
		return
	}

	resp := translate.UpstreamToOpenAI(result.Response, entry.ID)
	var content string
	if len(resp.Choices) > 0 {
		if text, ok := resp.Choices[0].Message.AsText(); ok {
			content = text
		}
	}

	chunk, err := stream.FinalChunk("chatcmpl-"+uuid.NewString(), entry.ID, content)
	if err != nil {
		log.Warn("failed to build final keep-alive chunk: %v", err)
		_ = serial.WriteFrame(stream.DoneEvent())
		return
	}
	_ = serial.WriteFrame(stream.Frame(chunk))
	_ = serial.WriteFrame(stream.DoneEvent())
}

// streamChatCompletion runs ordinary incremental SSE translation over a
// live upstream stream: no keep-alive pump, since that only applies under
// the conditions keepAliveChatCompletion handles.
func (s *Server) streamChatCompletion(w http.ResponseWriter, r *http.Request, useAlternate bool, req *gemini.Request, entry catalog.Entry, endpoint, apiKey string, log gwlog.Logger) {
	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, _ := w.(http.Flusher)
	serial := stream.NewSerialWriter(&flushWriter{w: w, flusher: flusher})

	result, err := s.callUpstream(r.Context(), req, useAlternate, entry, endpoint, apiKey, true)
	if err != nil {
		_ = serial.WriteFrame(stream.Frame(stream.ErrorEvent(gwerrors.KindUpstream.String(), err.Error())))
		_ = serial.WriteFrame(stream.DoneEvent())
		return
	}
	defer result.StreamBody.Close()

	translator := stream.NewTranslator("chatcmpl-"+uuid.NewString(), entry.ID)
	chunker := stream.NewChunker()
	buf := make([]byte, 4096)

	var streamErr error
loop:
	for {
		n, readErr := result.StreamBody.Read(buf)
		if n > 0 {
			for _, obj := range chunker.Feed(buf[:n]) {
				for _, frame := range translator.Translate(obj) {
					if writeErr := serial.WriteFrame(stream.Frame(frame)); writeErr != nil {
						log.Warn("client disconnected mid-stream: %v", writeErr)
						streamErr = writeErr
						break loop
					}
				}
			}
		}
		if readErr != nil {
			if readErr != io.EOF {
				log.Warn("upstream stream read error: %v", readErr)
				streamErr = readErr
			}
			break
		}
	}

	// A mid-stream outcome is only knowable here, once the body has been
	// read to completion or failure; ProxyChatCompletions itself returned
	// before any of this ran.
	if !useAlternate {
		s.Direct.RecordStreamOutcome(r.Context(), endpoint, streamErr)
	}

	if streamErr != nil {
		_ = serial.WriteFrame(stream.DoneEvent())
		return
	}

	chunker.Flush(log.Debug)
	_ = serial.WriteFrame(stream.DoneEvent())
}

func (s *Server) callUpstream(ctx context.Context, req *gemini.Request, useAlternate bool, entry catalog.Entry, endpoint, apiKey string, doStream bool) (upstream.ChatResult, error) {
	if useAlternate {
		return s.Alternate.ProxyChatCompletions(ctx, req, entry.BaseID, doStream)
	}
	return s.Direct.ProxyChatCompletions(ctx, req, endpoint, apiKey, doStream)
}

func containsString(list []string, target string) bool {
	for _, v := range list {
		if v == target {
			return true
		}
	}
	return false
}

// flushWriter adapts an http.ResponseWriter (+ optional http.Flusher) to
// stream.Writer, flushing after every frame so SSE bytes reach the client
// immediately instead of sitting in a buffer.
type flushWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (f *flushWriter) WriteFrame(data []byte) error {
	if _, err := f.w.Write(data); err != nil {
		return err
	}
	if f.flusher != nil {
		f.flusher.Flush()
	}
	return nil
}
