package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/reelgate/internal/credentials"
	"github.com/desertthunder/reelgate/internal/models"
	"github.com/desertthunder/reelgate/internal/shared"
	"golang.org/x/oauth2"
)

// Backend endpoints.
const (
	PathGuest             = "/api/user/guest"
	PathLogin             = "/api/user/login"
	PathRegister          = "/api/user/register"
	PathRegisterVerify    = "/api/user/register/verify"
	PathResetSendCode     = "/api/user/resetPasswd/sendResetCode"
	PathResetVerify       = "/api/user/resetPasswd/verify"
	PathResetSetNewPasswd = "/api/user/resetPasswd/setNewPasswd"
	PathMovieList         = "/api/movie/list"
	PathMovieDetail       = "/api/movie/detail"
)

const (
	headerRequestID       = "X-Request-Id"
	defaultGatewayBaseURL = "http://localhost:8080"
	defaultGatewayTimeout = 5 * time.Second
	maxResponseBodyBytes  = 8 << 20
)

// Request describes one backend call. It is kept intact so it can be replayed after a refresh.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any

	// Token, when set, is attached instead of the stored credential.
	Token string

	// SkipRefresh returns a 401 to the caller as-is instead of running the refresh protocol.
	SkipRefresh bool
}

// GatewayOpts configures a [Gateway].
type GatewayOpts struct {
	BaseURL    string
	Timeout    time.Duration
	UserAgent  string
	HTTPClient *http.Client
	Store      *credentials.Store

	// Tokens supplies the Authorization value. Defaults to Store.
	Tokens oauth2.TokenSource
	Logger *log.Logger
}

// GatewayStats counts refresh protocol activity.
type GatewayStats struct {
	Unauthorized int64 // 401 responses seen on refreshable requests
	Refreshes    int64 // refresh attempts started
	Replays      int64 // queued requests re-sent after a successful refresh
}

type pendingRequest struct {
	ctx  context.Context
	req  Request
	out  any
	done chan error
}

// Gateway is the single chokepoint for backend calls.
//
// It attaches the active credential, unwraps envelopes and, on HTTP 401, clears the session,
// refreshes the guest token through its [Refresher] and replays every request that failed while
// the refresh was in flight. At most one refresh runs at a time per Gateway.
type Gateway struct {
	baseURL   string
	userAgent string
	client    *http.Client
	store     *credentials.Store
	tokens    oauth2.TokenSource
	logger    *log.Logger

	refresher Refresher

	mu         sync.Mutex
	refreshing bool
	queue      []*pendingRequest

	unauthorized atomic.Int64
	refreshes    atomic.Int64
	replays      atomic.Int64
}

// NewGateway creates a [Gateway]. Call [Gateway.SetRefresher] before issuing refreshable requests.
func NewGateway(opts GatewayOpts) *Gateway {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultGatewayBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultGatewayTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Tokens == nil && opts.Store != nil {
		opts.Tokens = opts.Store
	}

	return &Gateway{
		baseURL:   strings.TrimSuffix(opts.BaseURL, "/"),
		userAgent: opts.UserAgent,
		client:    opts.HTTPClient,
		store:     opts.Store,
		tokens:    opts.Tokens,
		logger:    shared.WithLogger(opts.Logger, "component", "gateway"),
	}
}

// SetRefresher installs the component that mints a replacement credential after a 401.
func (g *Gateway) SetRefresher(r Refresher) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refresher = r
}

// Stats returns a snapshot of the refresh counters.
func (g *Gateway) Stats() GatewayStats {
	return GatewayStats{
		Unauthorized: g.unauthorized.Load(),
		Refreshes:    g.refreshes.Load(),
		Replays:      g.replays.Load(),
	}
}

// Do sends req and decodes the envelope's data into out, which may be nil.
func (g *Gateway) Do(ctx context.Context, req Request, out any) error {
	status, err := g.send(ctx, req, out)
	if status != http.StatusUnauthorized || req.SkipRefresh {
		return err
	}

	g.unauthorized.Add(1)
	return g.recoverUnauthorized(ctx, req, out)
}

// Get is shorthand for a GET through [Gateway.Do].
func (g *Gateway) Get(ctx context.Context, path string, query url.Values, out any) error {
	return g.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

// Post is shorthand for a JSON POST through [Gateway.Do].
func (g *Gateway) Post(ctx context.Context, path string, body, out any) error {
	return g.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

// recoverUnauthorized runs the refresh protocol for a request that got a 401.
//
// The whole session is treated as invalid: both stored credentials are dropped before the
// request joins the queue. The first caller to find the gateway idle performs the refresh and
// drains the queue; everyone else waits for their own replay result.
func (g *Gateway) recoverUnauthorized(ctx context.Context, req Request, out any) error {
	g.logger.Warn("request unauthorized, clearing session", "method", req.Method, "path", req.Path)
	g.clearSession()

	p := &pendingRequest{ctx: ctx, req: req, out: out, done: make(chan error, 1)}

	g.mu.Lock()
	g.queue = append(g.queue, p)
	if g.refreshing {
		g.mu.Unlock()
		g.logger.Debug("refresh in flight, request queued", "path", req.Path)
		return p.wait()
	}
	g.refreshing = true
	refresher := g.refresher
	g.mu.Unlock()

	g.refresh(ctx, refresher)
	return <-p.done
}

// refresh mints a new guest credential and settles every queued request, including ones
// that join while earlier replays are still running. It returns with the gateway idle.
func (g *Gateway) refresh(ctx context.Context, refresher Refresher) {
	g.refreshes.Add(1)

	var err error
	if refresher == nil {
		err = fmt.Errorf("no refresher configured")
	} else {
		// One caller's cancellation must not fail every queued request.
		_, err = refresher.IssueGuestToken(context.WithoutCancel(ctx), true)
	}

	if err != nil {
		g.logger.Error("token refresh failed", "error", err)
		err = fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	} else {
		g.logger.Info("token refreshed, replaying queued requests")
	}

	for {
		g.mu.Lock()
		batch := g.queue
		g.queue = nil
		if len(batch) == 0 {
			g.refreshing = false
			g.mu.Unlock()
			return
		}
		g.mu.Unlock()

		for _, p := range batch {
			if err != nil {
				p.done <- err
				continue
			}
			p.done <- g.replay(p)
		}
	}
}

// replay re-sends a queued request with whatever credential is now stored.
//
// A replay that is rejected again still drops the session, matching the first attempt,
// but never starts a nested refresh.
func (g *Gateway) replay(p *pendingRequest) error {
	if err := p.ctx.Err(); err != nil {
		return err
	}

	g.replays.Add(1)
	status, err := g.send(p.ctx, p.req, p.out)
	if status == http.StatusUnauthorized {
		g.logger.Warn("replayed request unauthorized", "path", p.req.Path)
		g.clearSession()
	}
	return err
}

func (g *Gateway) clearSession() {
	if g.store == nil {
		return
	}
	if err := g.store.Clear(); err != nil {
		g.logger.Error("failed to clear credentials", "error", err)
	}
}

func (p *pendingRequest) wait() error {
	select {
	case err := <-p.done:
		return err
	default:
	}

	select {
	case err := <-p.done:
		return err
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

// send performs a single HTTP exchange. The returned status is 0 when no response arrived.
func (g *Gateway) send(ctx context.Context, req Request, out any) (int, error) {
	httpReq, err := g.newHTTPRequest(ctx, req)
	if err != nil {
		return 0, err
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("%w: failed to read response: %w", shared.ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, statusError(resp.StatusCode, body)
	}

	var env models.Envelope[json.RawMessage]
	if err := json.Unmarshal(body, &env); err != nil {
		return resp.StatusCode, fmt.Errorf("%w: failed to decode envelope: %v", shared.ErrAPIRequest, err)
	}

	if !env.OK() {
		return resp.StatusCode, &shared.EnvelopeError{Code: env.Code, Message: env.Message}
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("%w: failed to decode data: %v", shared.ErrAPIRequest, err)
		}
	}

	return resp.StatusCode, nil
}

func (g *Gateway) newHTTPRequest(ctx context.Context, req Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	fullURL := g.baseURL + req.Path
	if len(req.Query) > 0 {
		fullURL += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(headerRequestID, shared.GenerateID())
	if g.userAgent != "" {
		httpReq.Header.Set("User-Agent", g.userAgent)
	}

	token := req.Token
	if token == "" && g.tokens != nil {
		if tok, err := g.tokens.Token(); err == nil {
			token = tok.AccessToken
		}
	}
	if token != "" {
		httpReq.Header.Set("Authorization", token)
	}

	return httpReq, nil
}

func statusError(status int, body []byte) *shared.StatusError {
	e := &shared.StatusError{StatusCode: status}

	var payload struct {
		Message string `json:"message"`
		Details string `json:"details"`
	}
	if json.Unmarshal(body, &payload) == nil {
		e.Message = payload.Message
		e.Details = payload.Details
	}
	return e
}
