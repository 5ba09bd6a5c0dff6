// Package credentials holds the active guest or user credential on top of durable key-value storage.
//
// A user token always supersedes a guest token: [Store.Get] prefers the userToken slot,
// and storing a user credential deletes the guest slot. Storage failures on read are logged
// and reported as "no credential".
package credentials

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/reelgate/internal/models"
	"github.com/desertthunder/reelgate/internal/repositories"
	"github.com/desertthunder/reelgate/internal/shared"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// Durable storage slots.
const (
	KeyUserToken  = "userToken"
	KeyUserInfo   = "userInfo"
	KeyGuestToken = "guestToken"
)

// Observer receives the active credential after every mutation, or nil when none remains.
type Observer func(*models.Credential)

// Store is the credential store shared by every component issuing requests.
type Store struct {
	kv     repositories.KeyValueStore
	logger *log.Logger

	mu        sync.Mutex
	observers map[int]Observer
	nextID    int
}

// NewStore creates a [Store] over kv.
func NewStore(kv repositories.KeyValueStore, logger *log.Logger) *Store {
	return &Store{
		kv:        kv,
		logger:    shared.WithLogger(logger, "component", "credentials"),
		observers: make(map[int]Observer),
	}
}

// KV exposes the backing storage for components that keep their own slots.
func (s *Store) KV() repositories.KeyValueStore { return s.kv }

func (s *Store) read(key string) string {
	v, ok, err := s.kv.Get(key)
	if err != nil {
		s.logger.Warn("storage read failed, treating as empty", "key", key, "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	return v
}

// Get returns the active credential, preferring the user token.
func (s *Store) Get() (*models.Credential, bool) {
	if token := s.read(KeyUserToken); token != "" {
		return &models.Credential{Kind: models.User, Token: token}, true
	}
	if token := s.read(KeyGuestToken); token != "" {
		return &models.Credential{Kind: models.Guest, Token: token}, true
	}
	return nil, false
}

// GuestToken returns the stored guest token, or "".
func (s *Store) GuestToken() string { return s.read(KeyGuestToken) }

// UserToken returns the stored user token, or "".
func (s *Store) UserToken() string { return s.read(KeyUserToken) }

// Set stores c in its slot. A user credential deletes the guest slot.
func (s *Store) Set(c models.Credential) error {
	if c.Token == "" {
		return fmt.Errorf("%w: empty %s token", shared.ErrInvalidInput, c.Kind)
	}

	switch c.Kind {
	case models.Guest:
		if err := s.kv.Set(KeyGuestToken, c.Token); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrStorage, err)
		}
	case models.User:
		if err := s.kv.Set(KeyUserToken, c.Token); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrStorage, err)
		}
		if err := s.kv.Delete(KeyGuestToken); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrStorage, err)
		}
	default:
		return fmt.Errorf("%w: unknown credential kind %v", shared.ErrInvalidInput, c.Kind)
	}

	s.notify()
	return nil
}

// SetUser stores a user token together with its profile.
func (s *Store) SetUser(token string, profile models.UserProfile) error {
	info, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	if err := s.kv.Set(KeyUserInfo, string(info)); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}
	return s.Set(models.Credential{Kind: models.User, Token: token})
}

// Profile returns the stored user profile when a user token is also present.
func (s *Store) Profile() (*models.UserProfile, bool) {
	if s.UserToken() == "" {
		return nil, false
	}
	raw := s.read(KeyUserInfo)
	if raw == "" {
		return nil, false
	}

	var profile models.UserProfile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		s.logger.Warn("stored profile is corrupt", "error", err)
		return nil, false
	}
	return &profile, true
}

// Clear deletes both credentials and the profile.
func (s *Store) Clear() error {
	return s.remove(KeyUserToken, KeyUserInfo, KeyGuestToken)
}

// ClearGuest deletes the guest slot.
func (s *Store) ClearGuest() error {
	return s.remove(KeyGuestToken)
}

// ClearUser deletes the user token and profile.
func (s *Store) ClearUser() error {
	return s.remove(KeyUserToken, KeyUserInfo)
}

func (s *Store) remove(keys ...string) error {
	if err := s.kv.Delete(keys...); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}
	s.notify()
	return nil
}

// Subscribe registers fn for change notifications and returns a function that removes it.
func (s *Store) Subscribe(fn Observer) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	fns := make([]Observer, 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	if len(fns) == 0 {
		return
	}
	active, _ := s.Get()
	for _, fn := range fns {
		fn(active)
	}
}

// Token implements [oauth2.TokenSource] over the active credential.
//
// The token type is left empty because the backend expects the raw value without a scheme.
func (s *Store) Token() (*oauth2.Token, error) {
	c, ok := s.Get()
	if !ok {
		return nil, shared.ErrNotAuthenticated
	}

	tok := &oauth2.Token{AccessToken: c.Token}
	if exp, ok := Expiry(c.Token); ok {
		tok.Expiry = exp
	}
	return tok.WithExtra(map[string]any{"kind": c.Kind.String()}), nil
}

var _ oauth2.TokenSource = (*Store)(nil)

// Expiry reads the exp claim when token is a JWT. The signature is not checked: the client never holds the key.
func Expiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
