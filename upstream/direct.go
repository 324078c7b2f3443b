package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"aigateway/circuitbreaker"
	"aigateway/gemini"
	"aigateway/gwerrors"
)

// HTTPDirectProxy calls the direct backend over plain HTTPS, recording
// endpoint health on breaker the same way the teacher's
// proxyToProviderEndpoint records failures/successes against its
// HealthManager — except a direct-tier endpoint never bypasses the breaker
// here (unlike the teacher's "big model" carve-out): spec.md never
// distinguishes a long-running tier, so every endpoint is breaker-checked.
type HTTPDirectProxy struct {
	Breaker           *circuitbreaker.HealthManager
	ConnectionTimeout time.Duration
	RequestTimeout    time.Duration

	// RatePerSecond, if positive, soft-caps outbound requests per endpoint
	// so one hot endpoint can't exhaust the direct backend's quota before
	// the circuit breaker would ever see a failure.
	RatePerSecond float64

	limitersMu sync.Mutex
	limiters   map[string]*rate.Limiter
}

// NewHTTPDirectProxy returns a DirectProxy with the given breaker and
// conservative default timeouts if zero values are passed.
func NewHTTPDirectProxy(breaker *circuitbreaker.HealthManager, connectionTimeout, requestTimeout time.Duration) *HTTPDirectProxy {
	if connectionTimeout <= 0 {
		connectionTimeout = 30 * time.Second
	}
	if requestTimeout <= 0 {
		requestTimeout = 3 * time.Minute
	}
	return &HTTPDirectProxy{
		Breaker:           breaker,
		ConnectionTimeout: connectionTimeout,
		RequestTimeout:    requestTimeout,
		limiters:          make(map[string]*rate.Limiter),
	}
}

// limiterFor lazily creates the per-endpoint limiter, one rate.NewLimiter
// per endpoint with a burst of RatePerSecond (at least 1).
func (p *HTTPDirectProxy) limiterFor(endpoint string) *rate.Limiter {
	p.limitersMu.Lock()
	defer p.limitersMu.Unlock()
	if p.limiters == nil {
		p.limiters = make(map[string]*rate.Limiter)
	}
	l, ok := p.limiters[endpoint]
	if !ok {
		burst := int(p.RatePerSecond)
		if burst < 1 {
			burst = 1
		}
		l = rate.NewLimiter(rate.Limit(p.RatePerSecond), burst)
		p.limiters[endpoint] = l
	}
	return l
}

// waitForSlot blocks until endpoint's soft rate limit allows the next
// request, a no-op when RatePerSecond is unset.
func (p *HTTPDirectProxy) waitForSlot(ctx context.Context, endpoint string) error {
	if p.RatePerSecond <= 0 {
		return nil
	}
	return p.limiterFor(endpoint).Wait(ctx)
}

func (p *HTTPDirectProxy) client() *http.Client {
	return &http.Client{
		Timeout: p.RequestTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{Timeout: p.ConnectionTimeout}).DialContext,
		},
	}
}

// ProxyChatCompletions posts req to endpoint and returns either a fully
// parsed Response (stream==false) or the raw body stream for the caller to
// chunk and translate (stream==true).
func (p *HTTPDirectProxy) ProxyChatCompletions(ctx context.Context, req *gemini.Request, endpoint, apiKey string, stream bool) (ChatResult, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return ChatResult{}, gwerrors.Wrap(gwerrors.KindInternal, "marshal upstream request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return ChatResult{}, gwerrors.Wrap(gwerrors.KindInternal, "build upstream request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	if err := p.waitForSlot(ctx, endpoint); err != nil {
		return ChatResult{}, gwerrors.Wrap(gwerrors.KindUpstream, "waiting for rate-limit slot", err)
	}

	resp, err := p.client().Do(httpReq)
	if err != nil {
		p.recordFailure(ctx, endpoint)
		return ChatResult{}, gwerrors.Wrap(gwerrors.KindUpstream, "upstream request failed", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		p.recordFailure(ctx, endpoint)
		body, _ := io.ReadAll(resp.Body)
		return ChatResult{}, gwerrors.New(gwerrors.KindUpstream, fmt.Sprintf("upstream returned status %d: %s", resp.StatusCode, string(body)))
	}

	if stream {
		// Success/failure is recorded by the caller via RecordStreamOutcome
		// once the stream drains, since a mid-stream read failure can only
		// be observed after this call returns.
		return ChatResult{StreamBody: resp.Body}, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		p.recordFailure(ctx, endpoint)
		return ChatResult{}, gwerrors.Wrap(gwerrors.KindUpstream, "reading upstream response", err)
	}
	var parsed gemini.Response
	if err := json.Unmarshal(body, &parsed); err != nil {
		p.recordFailure(ctx, endpoint)
		return ChatResult{}, gwerrors.Wrap(gwerrors.KindUpstream, "parsing upstream response", err)
	}
	p.recordSuccess(ctx, endpoint)
	return ChatResult{Response: &parsed}, nil
}

// ProxyEmbeddings posts an embeddings request to endpoint and returns the
// parsed result; the embeddings endpoint never streams.
func (p *HTTPDirectProxy) ProxyEmbeddings(ctx context.Context, model string, inputs []string, endpoint, apiKey string) (*gemini.EmbedResponse, error) {
	payload := map[string]interface{}{"model": model, "content": map[string]interface{}{"parts": toTextParts(inputs)}}
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindInternal, "marshal embedding request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindInternal, "build embedding request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	if err := p.waitForSlot(ctx, endpoint); err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindUpstream, "waiting for rate-limit slot", err)
	}

	resp, err := p.client().Do(httpReq)
	if err != nil {
		p.recordFailure(ctx, endpoint)
		return nil, gwerrors.Wrap(gwerrors.KindUpstream, "upstream embedding request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.recordFailure(ctx, endpoint)
		body, _ := io.ReadAll(resp.Body)
		return nil, gwerrors.New(gwerrors.KindUpstream, fmt.Sprintf("upstream returned status %d: %s", resp.StatusCode, string(body)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		p.recordFailure(ctx, endpoint)
		return nil, gwerrors.Wrap(gwerrors.KindUpstream, "reading embedding response", err)
	}
	var parsed gemini.EmbedResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		p.recordFailure(ctx, endpoint)
		return nil, gwerrors.Wrap(gwerrors.KindUpstream, "parsing embedding response", err)
	}
	p.recordSuccess(ctx, endpoint)
	return &parsed, nil
}

func toTextParts(inputs []string) []gemini.Part {
	parts := make([]gemini.Part, 0, len(inputs))
	for _, in := range inputs {
		parts = append(parts, gemini.Part{Text: in})
	}
	return parts
}

func (p *HTTPDirectProxy) recordFailure(ctx context.Context, endpoint string) {
	if p.Breaker != nil {
		p.Breaker.RecordFailure(ctx, endpoint, gwerrors.KindUpstream)
	}
}

func (p *HTTPDirectProxy) recordSuccess(ctx context.Context, endpoint string) {
	if p.Breaker != nil {
		p.Breaker.RecordSuccess(ctx, endpoint)
	}
}

// RecordStreamOutcome lets the caller report a streamed call's final outcome
// once the body has fully drained, since ProxyChatCompletions itself cannot
// know whether a streamed read eventually succeeded. server.streamChatCompletion
// calls this after its read loop exits.
func (p *HTTPDirectProxy) RecordStreamOutcome(ctx context.Context, endpoint string, err error) {
	if err != nil {
		p.recordFailure(ctx, endpoint)
		return
	}
	p.recordSuccess(ctx, endpoint)
}
