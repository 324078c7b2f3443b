package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2/google"

	"aigateway/gemini"
	"aigateway/gwerrors"
)

// HTTPAlternateProxy calls the alternate, service-account-authenticated
// backend. Unlike the direct backend's static API key, every call here mints
// a short-lived OAuth2 bearer token from the configured ServiceAccount via
// golang.org/x/oauth2/google, the JWT config flow also used by
// google.golang.org/api clients in the retrieval pack's cloud-backed repos.
type HTTPAlternateProxy struct {
	Enabled   bool
	Models    []string
	Endpoint  string
	Account   ServiceAccount
	Scopes    []string
	Client    *http.Client
	tokenOnce func() (string, error) // overridable in tests
}

// NewHTTPAlternateProxy returns an AlternateProxy backed by account, gated
// by enabled and restricted to models.
func NewHTTPAlternateProxy(enabled bool, models []string, endpoint string, account ServiceAccount, scopes []string) *HTTPAlternateProxy {
	return &HTTPAlternateProxy{
		Enabled:  enabled,
		Models:   models,
		Endpoint: endpoint,
		Account:  account,
		Scopes:   scopes,
		Client:   &http.Client{Timeout: 3 * time.Minute},
	}
}

// IsEnabled reports whether the alternate backend is configured for use.
func (p *HTTPAlternateProxy) IsEnabled() bool { return p.Enabled }

// SupportedModels lists the model ids the alternate backend accepts.
func (p *HTTPAlternateProxy) SupportedModels() []string { return p.Models }

func (p *HTTPAlternateProxy) bearerToken(ctx context.Context) (string, error) {
	if p.tokenOnce != nil {
		return p.tokenOnce()
	}
	cfg := &google.JWTConfig{
		Email:      p.Account.Email,
		PrivateKey: p.Account.PrivateKey,
		Scopes:     p.Scopes,
		TokenURL:   google.JWTTokenURL,
	}
	src := cfg.TokenSource(ctx)
	tok, err := src.Token()
	if err != nil {
		return "", gwerrors.Wrap(gwerrors.KindUpstream, "minting alternate backend token", err)
	}
	return tok.AccessToken, nil
}

// ProxyChatCompletions posts req to the alternate backend's chat endpoint
// using a freshly minted bearer token.
func (p *HTTPAlternateProxy) ProxyChatCompletions(ctx context.Context, req *gemini.Request, model string, stream bool) (ChatResult, error) {
	token, err := p.bearerToken(ctx)
	if err != nil {
		return ChatResult{}, err
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return ChatResult{}, gwerrors.Wrap(gwerrors.KindInternal, "marshal alternate request", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", p.Endpoint, model)
	if stream {
		url = fmt.Sprintf("%s/models/%s:streamGenerateContent", p.Endpoint, model)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return ChatResult{}, gwerrors.Wrap(gwerrors.KindInternal, "build alternate request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return ChatResult{}, gwerrors.Wrap(gwerrors.KindUpstream, "alternate backend request failed", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return ChatResult{}, gwerrors.New(gwerrors.KindUpstream, fmt.Sprintf("alternate backend returned status %d: %s", resp.StatusCode, string(body)))
	}

	if stream {
		return ChatResult{StreamBody: resp.Body}, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ChatResult{}, gwerrors.Wrap(gwerrors.KindUpstream, "reading alternate response", err)
	}
	var parsed gemini.Response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ChatResult{}, gwerrors.Wrap(gwerrors.KindUpstream, "parsing alternate response", err)
	}
	return ChatResult{Response: &parsed}, nil
}
