// package app restores or establishes a session when the client starts.
//
// [App.Initialize] walks the fallback chain: stored user session, then stored guest token,
// then a freshly minted guest token. The first link that succeeds leaves the app Ready.
package app

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/reelgate/internal/credentials"
	"github.com/desertthunder/reelgate/internal/models"
	"github.com/desertthunder/reelgate/internal/shared"
)

// State is the bootstrap status the UI renders.
type State struct {
	Initializing bool             `json:"initializing"`
	Ready        bool             `json:"ready"`
	Error        *shared.APIError `json:"error,omitempty"`

	// Via names the link of the chain that made the app ready: "user", "guest" or "minted".
	Via string `json:"via,omitempty"`
}

// SessionRestorer restores a stored user session. [services.AuthService] implements it.
type SessionRestorer interface {
	InitializeFromStorage(ctx context.Context) (bool, error)
}

// GuestProvider validates or mints guest tokens. [services.GuestIssuer] implements it.
type GuestProvider interface {
	ValidateGuestToken(ctx context.Context) error
	IssueGuestToken(ctx context.Context, forceRefresh bool) (*models.Credential, error)
}

// Observer receives every state transition.
type Observer func(State)

// Opts configures an [App].
type Opts struct {
	Store  *credentials.Store
	Auth   SessionRestorer
	Guest  GuestProvider
	Logger *log.Logger
}

// App is the bootstrapper.
type App struct {
	store  *credentials.Store
	auth   SessionRestorer
	guest  GuestProvider
	logger *log.Logger

	run sync.Mutex

	mu        sync.RWMutex
	state     State
	observers []Observer
}

// New creates an [App]
func New(opts Opts) *App {
	return &App{
		store:  opts.Store,
		auth:   opts.Auth,
		guest:  opts.Guest,
		logger: shared.WithLogger(opts.Logger, "component", "app"),
	}
}

// State returns the current bootstrap state.
func (a *App) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Subscribe registers fn for state transitions.
func (a *App) Subscribe(fn Observer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.observers = append(a.observers, fn)
}

func (a *App) transition(s State) {
	a.mu.Lock()
	a.state = s
	observers := append([]Observer(nil), a.observers...)
	a.mu.Unlock()

	for _, fn := range observers {
		fn(s)
	}
}

// Initialize runs the bootstrap chain and returns the terminal state.
//
// Concurrent calls run one after another.
func (a *App) Initialize(ctx context.Context) State {
	a.run.Lock()
	defer a.run.Unlock()

	a.transition(State{Initializing: true})

	via, err := a.bootstrap(ctx)
	if err != nil {
		apiErr := shared.HandleError(err)
		a.logger.Error("bootstrap failed", "error", apiErr.Message, "status", apiErr.StatusCode)
		a.transition(State{Error: apiErr})
		return a.State()
	}

	a.logger.Info("bootstrap complete", "via", via)
	a.transition(State{Ready: true, Via: via})
	return a.State()
}

func (a *App) bootstrap(ctx context.Context) (string, error) {
	if a.store.UserToken() != "" {
		ok, err := a.auth.InitializeFromStorage(ctx)
		if ok && err == nil {
			return "user", nil
		}

		a.logger.Warn("stored user session unusable, falling back to guest", "error", err)
		if clearErr := a.store.ClearUser(); clearErr != nil {
			a.logger.Warn("failed to clear user credential", "error", clearErr)
		}
	}

	if a.store.GuestToken() != "" {
		err := a.guest.ValidateGuestToken(ctx)
		if err == nil {
			return "guest", nil
		}
		a.logger.Warn("stored guest token rejected, minting a new one", "error", err)
	}

	if _, err := a.guest.IssueGuestToken(ctx, true); err != nil {
		return "", err
	}
	return "minted", nil
}
