package services

import (
	"context"
	"testing"

	"github.com/desertthunder/reelgate/internal/credentials"
	"github.com/desertthunder/reelgate/internal/device"
	"github.com/desertthunder/reelgate/internal/models"
	"github.com/desertthunder/reelgate/internal/repositories"
	"github.com/desertthunder/reelgate/internal/shared"
	tu "github.com/desertthunder/reelgate/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuestIssuer(t *testing.T) {
	ctx := context.Background()

	t.Run("empty storage mints and stores a guest token", func(t *testing.T) {
		backend := tu.NewBackend(t)
		kv := repositories.NewMemoryStore()
		store := credentials.NewStore(kv, nil)
		g := NewGateway(GatewayOpts{BaseURL: backend.URL(), Store: store})

		ip := device.NewIPDetector(device.IPDetectorOpts{
			Config:     shared.IPConfig{LoopbackShortcut: true},
			BackendURL: backend.URL(),
		})
		collector := device.NewCollector(device.NewFingerprinter(kv), ip, "reelgate-test")
		issuer := NewGuestIssuer(GuestIssuerOpts{Gateway: g, Store: store, Device: collector})

		cred, err := issuer.IssueGuestToken(ctx, false)
		require.NoError(t, err)
		assert.Equal(t, &models.Credential{Kind: models.Guest, Token: "g1"}, cred)
		assert.Equal(t, "g1", kvValue(t, kv, credentials.KeyGuestToken))
		assert.Equal(t, 1, backend.GuestCalls())
	})

	t.Run("posts the device triple", func(t *testing.T) {
		dc := staticDevice{dc: device.Context{Fingerprint: "abc", UserAgent: "UA", IP: "1.2.3.4"}}
		s := newStack(t, stackOpts{device: dc})

		cred, err := s.guest.IssueGuestToken(ctx, false)
		require.NoError(t, err)
		assert.Equal(t, "g1", cred.Token)
		assert.Equal(t, "g1", s.store.GuestToken())

		reqs := s.backend.Requests()
		require.Len(t, reqs, 1)
		assert.Equal(t, PathGuest, reqs[0].Path)
		assert.JSONEq(t, `{"fingerprint":"abc","userAgent":"UA","ip":"1.2.3.4"}`, string(reqs[0].Body))
	})

	t.Run("stored token is reused without a request", func(t *testing.T) {
		s := newStack(t, stackOpts{})
		_, err := s.guest.IssueGuestToken(ctx, false)
		require.NoError(t, err)

		cred, err := s.guest.IssueGuestToken(ctx, false)
		require.NoError(t, err)
		assert.Equal(t, "g1", cred.Token)
		assert.Equal(t, 1, s.backend.GuestCalls())
	})

	t.Run("force refresh always mints", func(t *testing.T) {
		s := newStack(t, stackOpts{})
		_, err := s.guest.IssueGuestToken(ctx, false)
		require.NoError(t, err)

		cred, err := s.guest.IssueGuestToken(ctx, true)
		require.NoError(t, err)
		assert.Equal(t, "g2", cred.Token)
		assert.Equal(t, "g2", s.store.GuestToken())
	})

	t.Run("validation keeps an accepted token", func(t *testing.T) {
		s := newStack(t, stackOpts{validate: true})
		_, err := s.guest.IssueGuestToken(ctx, false)
		require.NoError(t, err)

		cred, err := s.guest.IssueGuestToken(ctx, false)
		require.NoError(t, err)
		assert.Equal(t, "g1", cred.Token)
		assert.Equal(t, 1, s.backend.CountPath(PathMovieList))
		assert.Equal(t, 1, s.backend.GuestCalls())
	})

	t.Run("validation replaces a rejected token", func(t *testing.T) {
		s := newStack(t, stackOpts{validate: true})
		require.NoError(t, s.store.Set(models.Credential{Kind: models.Guest, Token: "revoked"}))

		cred, err := s.guest.IssueGuestToken(ctx, false)
		require.NoError(t, err)
		assert.Equal(t, "g1", cred.Token)
		assert.Zero(t, s.gateway.Stats().Refreshes, "probe must not trigger the refresh protocol")
	})

	t.Run("failure clears the guest slot", func(t *testing.T) {
		s := newStack(t, stackOpts{})
		require.NoError(t, s.store.Set(models.Credential{Kind: models.Guest, Token: "old"}))
		s.backend.FailGuest("rate limited")

		cred, err := s.guest.IssueGuestToken(ctx, true)
		assert.Nil(t, cred)
		assert.ErrorIs(t, err, shared.ErrGuestIssue)
		assert.ErrorContains(t, err, "rate limited")
		assert.Empty(t, s.store.GuestToken())
	})

	t.Run("device failure is reported", func(t *testing.T) {
		s := newStack(t, stackOpts{device: staticDevice{err: assert.AnError}})

		_, err := s.guest.IssueGuestToken(ctx, false)
		assert.ErrorIs(t, err, shared.ErrGuestIssue)
		assert.ErrorIs(t, err, assert.AnError)
		assert.Zero(t, s.backend.GuestCalls())
	})

	t.Run("validate without a token", func(t *testing.T) {
		s := newStack(t, stackOpts{})
		assert.ErrorIs(t, s.guest.ValidateGuestToken(ctx), shared.ErrNotAuthenticated)
	})

	t.Run("validate a revoked token", func(t *testing.T) {
		s := newStack(t, stackOpts{})
		_, err := s.guest.IssueGuestToken(ctx, false)
		require.NoError(t, err)
		s.backend.Revoke("g1")

		assert.ErrorIs(t, s.guest.ValidateGuestToken(ctx), shared.ErrUnauthorized)
		assert.Equal(t, "g1", s.store.GuestToken())
	})
}
