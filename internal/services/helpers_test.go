package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/reelgate/internal/credentials"
	"github.com/desertthunder/reelgate/internal/device"
	"github.com/desertthunder/reelgate/internal/repositories"
	tu "github.com/desertthunder/reelgate/internal/testing"
)

type staticDevice struct {
	dc  device.Context
	err error
}

func (s staticDevice) Collect(context.Context) (device.Context, error) { return s.dc, s.err }

var testDevice = staticDevice{dc: device.Context{Fingerprint: "fp-test", IP: "203.0.113.7", UserAgent: "reelgate-test"}}

type routeRecorder struct {
	mu     sync.Mutex
	routes []Route
}

func (r *routeRecorder) Navigate(route Route) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route)
}

func (r *routeRecorder) All() []Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Route(nil), r.routes...)
}

type stack struct {
	backend *tu.Backend
	kv      *repositories.MemoryStore
	store   *credentials.Store
	gateway *Gateway
	guest   *GuestIssuer
	auth    *AuthService
	movies  *MovieService
	nav     *routeRecorder
}

type stackOpts struct {
	validate bool
	device   DeviceContext
}

func newStack(t *testing.T, opts stackOpts) *stack {
	t.Helper()
	if opts.device == nil {
		opts.device = testDevice
	}

	backend := tu.NewBackend(t)
	kv := repositories.NewMemoryStore()
	store := credentials.NewStore(kv, nil)
	gateway := NewGateway(GatewayOpts{BaseURL: backend.URL(), Timeout: 2 * time.Second, UserAgent: "reelgate-test", Store: store})
	guest := NewGuestIssuer(GuestIssuerOpts{Gateway: gateway, Store: store, Device: opts.device, ValidateStored: opts.validate})
	gateway.SetRefresher(guest)

	nav := &routeRecorder{}
	auth := NewAuthService(AuthOpts{
		Gateway:        gateway,
		Store:          store,
		Guest:          guest,
		Device:         opts.device,
		Navigator:      nav,
		ValidateStored: opts.validate,
	})

	return &stack{
		backend: backend,
		kv:      kv,
		store:   store,
		gateway: gateway,
		guest:   guest,
		auth:    auth,
		movies:  NewMovieService(gateway),
		nav:     nav,
	}
}

func queued(g *Gateway) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.queue)
}

func kvValue(t *testing.T, kv repositories.KeyValueStore, key string) string {
	t.Helper()
	v, _, err := kv.Get(key)
	if err != nil {
		t.Fatalf("kv.Get(%q): %v", key, err)
	}
	return v
}

