package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/reelgate/internal/credentials"
	"github.com/desertthunder/reelgate/internal/models"
	"github.com/desertthunder/reelgate/internal/shared"
)

// GuestIssuer obtains anonymous identity tokens.
type GuestIssuer struct {
	gateway  *Gateway
	store    *credentials.Store
	device   DeviceContext
	validate bool
	logger   *log.Logger
}

// GuestIssuerOpts configures a [GuestIssuer].
type GuestIssuerOpts struct {
	Gateway *Gateway
	Store   *credentials.Store
	Device  DeviceContext

	// ValidateStored exercises a stored guest token against the backend before reusing it.
	ValidateStored bool
	Logger         *log.Logger
}

// NewGuestIssuer creates a [GuestIssuer]
func NewGuestIssuer(opts GuestIssuerOpts) *GuestIssuer {
	return &GuestIssuer{
		gateway:  opts.Gateway,
		store:    opts.Store,
		device:   opts.Device,
		validate: opts.ValidateStored,
		logger:   shared.WithLogger(opts.Logger, "component", "guest"),
	}
}

// IssueGuestToken returns a guest credential, reusing the stored one unless forceRefresh is set.
//
// On failure the stored guest token is cleared and the error is returned for the caller to handle.
func (i *GuestIssuer) IssueGuestToken(ctx context.Context, forceRefresh bool) (*models.Credential, error) {
	if !forceRefresh {
		if token := i.store.GuestToken(); token != "" {
			if !i.validate {
				return &models.Credential{Kind: models.Guest, Token: token}, nil
			}
			err := i.validateToken(ctx, token)
			if err == nil {
				return &models.Credential{Kind: models.Guest, Token: token}, nil
			}
			i.logger.Warn("stored guest token rejected, minting a new one", "error", err)
		}
	}

	return i.mint(ctx)
}

// ValidateGuestToken checks the stored guest token with a lightweight read.
func (i *GuestIssuer) ValidateGuestToken(ctx context.Context) error {
	token := i.store.GuestToken()
	if token == "" {
		return shared.ErrNotAuthenticated
	}
	return i.validateToken(ctx, token)
}

func (i *GuestIssuer) validateToken(ctx context.Context, token string) error {
	return i.gateway.Do(ctx, Request{
		Method:      http.MethodGet,
		Path:        PathMovieList,
		Query:       probeQuery(),
		Token:       token,
		SkipRefresh: true,
	}, nil)
}

func (i *GuestIssuer) mint(ctx context.Context) (*models.Credential, error) {
	cred, err := i.requestToken(ctx)
	if err != nil {
		if clearErr := i.store.ClearGuest(); clearErr != nil {
			i.logger.Warn("failed to clear guest token", "error", clearErr)
		}
		i.logger.Error("guest initialization failed", "error", err)
		return nil, fmt.Errorf("%w: %w", shared.ErrGuestIssue, err)
	}

	i.logger.Info("guest token issued", "token", shared.MaskToken(cred.Token))
	return cred, nil
}

func (i *GuestIssuer) requestToken(ctx context.Context) (*models.Credential, error) {
	dc, err := i.device.Collect(ctx)
	if err != nil {
		return nil, err
	}

	var data models.TokenData
	err = i.gateway.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   PathGuest,
		Body: models.GuestRequest{
			Fingerprint: dc.Fingerprint,
			UserAgent:   dc.UserAgent,
			IP:          dc.IP,
		},
		SkipRefresh: true,
	}, &data)
	if err != nil {
		return nil, err
	}

	if data.Token == "" {
		return nil, &shared.EnvelopeError{Code: models.CodeOK, Message: "backend returned an empty guest token"}
	}

	cred := models.Credential{Kind: models.Guest, Token: data.Token}
	if err := i.store.Set(cred); err != nil {
		return nil, err
	}
	return &cred, nil
}
