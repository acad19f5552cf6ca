// Package provider integrates the OAuth2 Authorization Code + PKCE login with
// the OIDC identity provider. The session layer observes it through the
// Provider interface: current token, decoded claims, and change callbacks.
package provider

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/bytefit/internal/config"
	"github.com/jrsteele09/bytefit/internal/errors"
	"github.com/jrsteele09/bytefit/provider/authflow"
	"github.com/jrsteele09/bytefit/provider/loginsession"
	"golang.org/x/oauth2"
)

const (
	stateLength = 32
	nonceLength = 16
	// flowTTL bounds how long an unanswered authorization request stays valid
	flowTTL = 15 * time.Minute
)

// Provider is the surface the session reconciler consumes. LogIn and LogOut
// report errors, but their effects are observed through Token/Claims and the
// Subscribe callback.
type Provider interface {
	Token() string
	Claims() Claims
	LogIn(ctx context.Context) error
	LogOut(ctx context.Context) error
	Subscribe(fn func()) (unsubscribe func())
}

// Opener presents the authorization URL to the user, e.g. by launching a browser
type Opener func(authURL string) error

type Option func(*PKCE)

func WithVerifier(v *oidc.IDTokenVerifier) Option {
	return func(p *PKCE) {
		p.verifier = v
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(p *PKCE) {
		p.httpClient = c
	}
}

func WithOpener(o Opener) Option {
	return func(p *PKCE) {
		p.opener = o
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(p *PKCE) {
		p.nowFunc = now
	}
}

func WithSessionRepo(r loginsession.Repo) Option {
	return func(p *PKCE) {
		p.sessions = r
	}
}

func WithFlowRepo(r authflow.Repo) Option {
	return func(p *PKCE) {
		p.flows = r
	}
}

func WithLogoutEndpoint(endpoint string) Option {
	return func(p *PKCE) {
		p.logoutEndpoint = endpoint
	}
}

func WithExtraAuthParams(params map[string]string) Option {
	return func(p *PKCE) {
		p.extraParams = params
	}
}

// PKCE is the production Provider
type PKCE struct {
	oauth2Config   *oauth2.Config
	verifier       *oidc.IDTokenVerifier
	logoutEndpoint string
	extraParams    map[string]string
	httpClient     *http.Client
	opener         Opener
	sessions       loginsession.Repo
	flows          authflow.Repo
	nowFunc        func() time.Time

	mu           sync.Mutex
	pending      map[string]chan error
	listeners    map[int]func()
	nextListener int
}

var _ Provider = (*PKCE)(nil)

func New(cfg *oauth2.Config, options ...Option) *PKCE {
	p := &PKCE{
		oauth2Config: cfg,
		pending:      make(map[string]chan error),
		listeners:    make(map[int]func()),
	}
	for _, opt := range options {
		opt(p)
	}

	if p.httpClient == nil {
		p.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if p.sessions == nil {
		p.sessions = loginsession.NewInMemoryRepo()
	}
	if p.flows == nil {
		p.flows = authflow.NewInMemoryRepo()
	}
	if p.nowFunc == nil {
		p.nowFunc = time.Now
	}
	if p.opener == nil {
		p.opener = func(authURL string) error {
			fmt.Printf("Open this URL to log in:\n\n  %s\n\n", authURL)
			return nil
		}
	}
	return p
}

// NewFromConfig builds the provider from configuration. With discovery enabled
// the endpoints come from the issuer's well-known document and ID tokens are
// verified against its keys.
func NewFromConfig(ctx context.Context, c config.OAuthConfig, options ...Option) (*PKCE, error) {
	cfg := &oauth2.Config{
		ClientID:    c.GetClientID(),
		RedirectURL: c.GetRedirectURL(),
		Scopes:      c.GetScopes(),
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.GetAuthorizationEndpoint(),
			TokenURL:  c.GetTokenEndpoint(),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	opts := []Option{
		WithLogoutEndpoint(c.GetLogoutEndpoint()),
		WithExtraAuthParams(c.GetExtraAuthParams()),
	}

	if c.GetUseDiscovery() {
		issuer, err := oidc.NewProvider(ctx, c.GetIssuer())
		if err != nil {
			return nil, fmt.Errorf("[provider NewFromConfig] discovery: %w", err)
		}
		cfg.Endpoint = issuer.Endpoint()
		cfg.Endpoint.AuthStyle = oauth2.AuthStyleInParams

		var meta struct {
			EndSession string `json:"end_session_endpoint"`
		}
		if err := issuer.Claims(&meta); err == nil && meta.EndSession != "" {
			opts = append(opts, WithLogoutEndpoint(meta.EndSession))
		}
		opts = append(opts, WithVerifier(issuer.Verifier(&oidc.Config{ClientID: cfg.ClientID})))
	}

	return New(cfg, append(opts, options...)...), nil
}

func (p *PKCE) Token() string {
	s, ok := p.session()
	if !ok {
		return ""
	}
	return s.AccessToken
}

func (p *PKCE) Claims() Claims {
	s, ok := p.session()
	if !ok || s.Claims == nil {
		return nil
	}
	out := make(Claims, len(s.Claims))
	for k, v := range s.Claims {
		out[k] = v
	}
	return out
}

// Expiry returns when the current access token expires, zero when unknown
func (p *PKCE) Expiry() time.Time {
	s, _ := p.session()
	return s.Expiry
}

func (p *PKCE) Subscribe(fn func()) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextListener
	p.nextListener++
	p.listeners[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

// AuthCodeURL builds the authorization request for one login attempt
func (p *PKCE) AuthCodeURL(state, nonce, verifier string) string {
	opts := []oauth2.AuthCodeOption{
		oauth2.S256ChallengeOption(verifier),
		oidc.Nonce(nonce),
	}
	for k, v := range p.extraParams {
		opts = append(opts, oauth2.SetAuthURLParam(k, v))
	}
	return p.oauth2Config.AuthCodeURL(state, opts...)
}

// LogIn starts an authorization request, hands the URL to the opener and
// blocks until Complete or Fail is called for it, or ctx ends.
func (p *PKCE) LogIn(ctx context.Context) error {
	state, err := randomString(stateLength)
	if err != nil {
		return fmt.Errorf("[PKCE LogIn] %w", err)
	}
	nonce, err := randomString(nonceLength)
	if err != nil {
		return fmt.Errorf("[PKCE LogIn] %w", err)
	}
	verifier := oauth2.GenerateVerifier()

	p.flows.DeleteExpired(p.nowFunc().Add(-flowTTL))
	if err := p.flows.Upsert(state, &authflow.State{
		CodeVerifier: verifier,
		Nonce:        nonce,
		CreatedAt:    p.nowFunc(),
	}); err != nil {
		return fmt.Errorf("[PKCE LogIn] %w", err)
	}

	done := make(chan error, 1)
	p.mu.Lock()
	p.pending[state] = done
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.pending, state)
		p.mu.Unlock()
	}()

	if err := p.opener(p.AuthCodeURL(state, nonce, verifier)); err != nil {
		_ = p.flows.Delete(state)
		return fmt.Errorf("[PKCE LogIn] open authorization url: %w", err)
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		_ = p.flows.Delete(state)
		return fmt.Errorf("[PKCE LogIn] %w: %w", errors.ErrLoginCancelled, ctx.Err())
	}
}

// Complete exchanges the authorization code received on the redirect
func (p *PKCE) Complete(ctx context.Context, state, code string) error {
	err := p.complete(ctx, state, code)
	p.resolve(state, err)
	return err
}

// Fail ends a pending login with an error reported by the authorization server
func (p *PKCE) Fail(state string, cause error) {
	_ = p.flows.Delete(state)
	p.resolve(state, cause)
}

func (p *PKCE) complete(ctx context.Context, state, code string) error {
	flow, err := p.flows.Get(state)
	if err != nil {
		return fmt.Errorf("[PKCE Complete] %w", errors.ErrInvalidState)
	}
	_ = p.flows.Delete(state)

	tok, err := p.oauth2Config.Exchange(p.clientContext(ctx), code, oauth2.VerifierOption(flow.CodeVerifier))
	if err != nil {
		return fmt.Errorf("[PKCE Complete] token exchange: %w", err)
	}

	claims, rawIDToken, err := p.claimsFromToken(ctx, tok, flow.Nonce)
	if err != nil {
		return fmt.Errorf("[PKCE Complete] %w", err)
	}
	if claims == nil {
		return fmt.Errorf("[PKCE Complete] %w", errors.ErrMissingIDToken)
	}

	return p.store(loginsession.Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		IDToken:      rawIDToken,
		Claims:       claims,
		Expiry:       tok.Expiry,
		CreatedAt:    p.nowFunc(),
	})
}

// Refresh silently renews the access token. When the refresh token has
// expired the provider state is cleared and ErrRefreshTokenExpired returned,
// so the caller can start a new login.
func (p *PKCE) Refresh(ctx context.Context) error {
	s, ok := p.session()
	if !ok || s.RefreshToken == "" {
		return fmt.Errorf("[PKCE Refresh] %w", errors.ErrNoToken)
	}

	tok, err := p.oauth2Config.TokenSource(p.clientContext(ctx), &oauth2.Token{RefreshToken: s.RefreshToken}).Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && ErrorCode(re.ErrorCode) == ErrorCodeInvalidGrant {
			p.clear()
			return fmt.Errorf("[PKCE Refresh] %w", errors.ErrRefreshTokenExpired)
		}
		return fmt.Errorf("[PKCE Refresh] %w", err)
	}

	claims, rawIDToken, err := p.claimsFromToken(ctx, tok, "")
	if err != nil {
		return fmt.Errorf("[PKCE Refresh] %w", err)
	}

	next := s
	next.AccessToken = tok.AccessToken
	next.Expiry = tok.Expiry
	if tok.RefreshToken != "" {
		next.RefreshToken = tok.RefreshToken
	}
	if claims != nil {
		next.Claims = claims
		next.IDToken = rawIDToken
	}
	return p.store(next)
}

// AutoRefresh renews the token shortly before it expires until ctx ends. It
// returns ErrRefreshTokenExpired when a new login is required.
func (p *PKCE) AutoRefresh(ctx context.Context, skew, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s, ok := p.session()
			if !ok || s.Expiry.IsZero() || s.Expiry.Sub(p.nowFunc()) > skew {
				continue
			}
			if err := p.Refresh(ctx); err != nil {
				if errors.Is(err, errors.ErrRefreshTokenExpired) {
					return err
				}
			}
		}
	}
}

// LogOut ends the session at the identity provider. Local provider state is
// cleared whatever the outcome of the remote call.
func (p *PKCE) LogOut(ctx context.Context) error {
	s, ok := p.session()
	defer p.clear()

	if !ok || p.logoutEndpoint == "" {
		return nil
	}

	form := url.Values{"client_id": {p.oauth2Config.ClientID}}
	if s.RefreshToken != "" {
		form.Set("refresh_token", s.RefreshToken)
	}
	if s.IDToken != "" {
		form.Set("id_token_hint", s.IDToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.logoutEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("[PKCE LogOut] %w: %w", errors.ErrRevocationFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("[PKCE LogOut] %w: %w", errors.ErrRevocationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("[PKCE LogOut] %w: status %d", errors.ErrRevocationFailed, resp.StatusCode)
	}
	return nil
}

// claimsFromToken returns nil claims when the response carries nothing to decode
func (p *PKCE) claimsFromToken(ctx context.Context, tok *oauth2.Token, nonce string) (Claims, string, error) {
	rawIDToken, _ := tok.Extra("id_token").(string)

	if p.verifier != nil {
		if rawIDToken == "" {
			return nil, "", nil
		}
		idToken, err := p.verifier.Verify(p.clientContext(ctx), rawIDToken)
		if err != nil {
			return nil, "", fmt.Errorf("id token verification: %w", err)
		}
		if nonce != "" && idToken.Nonce != nonce {
			return nil, "", errors.ErrInvalidNonce
		}
		claims := Claims{}
		if err := idToken.Claims(&claims); err != nil {
			return nil, "", fmt.Errorf("extract claims: %w", err)
		}
		return claims, rawIDToken, nil
	}

	source := rawIDToken
	if source == "" {
		source = tok.AccessToken
	}
	if source == "" {
		return nil, "", nil
	}
	claims, err := DecodeClaims(source)
	if err != nil {
		return nil, "", err
	}
	if got, ok := claims["nonce"].(string); ok && nonce != "" && got != nonce {
		return nil, "", errors.ErrInvalidNonce
	}
	return claims, rawIDToken, nil
}

func (p *PKCE) session() (loginsession.Session, bool) {
	s, err := p.sessions.Get(p.oauth2Config.ClientID)
	if err != nil {
		return loginsession.Session{}, false
	}
	return s, true
}

func (p *PKCE) store(s loginsession.Session) error {
	if err := p.sessions.Upsert(p.oauth2Config.ClientID, s); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	p.emit()
	return nil
}

func (p *PKCE) clear() {
	if _, ok := p.session(); !ok {
		return
	}
	_ = p.sessions.Delete(p.oauth2Config.ClientID)
	p.emit()
}

func (p *PKCE) emit() {
	p.mu.Lock()
	listeners := make([]func(), 0, len(p.listeners))
	for _, fn := range p.listeners {
		listeners = append(listeners, fn)
	}
	p.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

func (p *PKCE) resolve(state string, err error) {
	p.mu.Lock()
	done, ok := p.pending[state]
	p.mu.Unlock()
	if !ok {
		return
	}
	select {
	case done <- err:
	default:
	}
}

func (p *PKCE) clientContext(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	return oidc.ClientContext(ctx, p.httpClient)
}

// randomString creates a random base64url string
func randomString(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate random string: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
