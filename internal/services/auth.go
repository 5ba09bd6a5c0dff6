package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/reelgate/internal/credentials"
	"github.com/desertthunder/reelgate/internal/models"
	"github.com/desertthunder/reelgate/internal/shared"
)

// AuthService performs login, logout, registration and session restore.
type AuthService struct {
	gateway  *Gateway
	store    *credentials.Store
	guest    Refresher
	device   DeviceContext
	nav      Navigator
	encode   PasswordEncoder
	validate bool
	logger   *log.Logger
}

// AuthOpts configures an [AuthService].
type AuthOpts struct {
	Gateway *Gateway
	Store   *credentials.Store
	Guest   Refresher
	Device  DeviceContext

	Navigator Navigator       // defaults to a no-op
	Encoder   PasswordEncoder // defaults to [SHA256Hex]

	// ValidateStored checks a restored user token against the backend.
	ValidateStored bool
	Logger         *log.Logger
}

// NewAuthService creates an [AuthService]
func NewAuthService(opts AuthOpts) *AuthService {
	if opts.Navigator == nil {
		opts.Navigator = noopNavigator{}
	}
	if opts.Encoder == nil {
		opts.Encoder = SHA256Hex
	}

	return &AuthService{
		gateway:  opts.Gateway,
		store:    opts.Store,
		guest:    opts.Guest,
		device:   opts.Device,
		nav:      opts.Navigator,
		encode:   opts.Encoder,
		validate: opts.ValidateStored,
		logger:   shared.WithLogger(opts.Logger, "component", "auth"),
	}
}

type loginRequest struct {
	Email       string `json:"email"`
	Passwd      string `json:"passwd"`
	Fingerprint string `json:"fingerprint"`
	UserAgent   string `json:"userAgent"`
	IP          string `json:"ip"`
}

// RegisterRequest holds new account details.
type RegisterRequest struct {
	UserName string
	Email    string
	Password string
}

type registerBody struct {
	UserName string `json:"userName"`
	Email    string `json:"email"`
	Passwd   string `json:"passwd"`
}

type emailCode struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// Login authenticates and makes the returned user token the active credential.
//
// The guest slot is deleted on success. On failure nothing stored changes.
func (a *AuthService) Login(ctx context.Context, email, password string) (*models.UserProfile, error) {
	if err := shared.ValidateEmail(email); err != nil {
		return nil, shared.HandleError(err)
	}
	if password == "" {
		return nil, shared.HandleError(fmt.Errorf("%w: password", shared.ErrMissingArgument))
	}

	dc, err := a.device.Collect(ctx)
	if err != nil {
		return nil, shared.HandleError(err)
	}

	var data models.LoginData
	err = a.gateway.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   PathLogin,
		Body: loginRequest{
			Email:       email,
			Passwd:      a.encode(password),
			Fingerprint: dc.Fingerprint,
			UserAgent:   dc.UserAgent,
			IP:          dc.IP,
		},
		SkipRefresh: true,
	}, &data)
	if err != nil {
		a.logger.Warn("login failed", "error", err)
		return nil, shared.HandleError(err)
	}

	if data.Token == "" {
		return nil, shared.HandleError(&shared.EnvelopeError{Code: models.CodeOK, Message: "backend returned an empty user token"})
	}

	if err := a.store.SetUser(data.Token, data.UserInfo); err != nil {
		return nil, shared.HandleError(err)
	}

	a.logger.Info("logged in", "user", data.UserInfo.Username)
	a.nav.Navigate(RouteHome)

	profile := data.UserInfo
	return &profile, nil
}

// Logout drops the user credential and re-establishes anonymous access.
func (a *AuthService) Logout(ctx context.Context) error {
	if err := a.store.ClearUser(); err != nil {
		a.logger.Warn("failed to clear user credential", "error", err)
	}

	_, err := a.guest.IssueGuestToken(ctx, true)
	a.nav.Navigate(RouteLogin)
	if err != nil {
		return shared.HandleError(err)
	}

	a.logger.Info("logged out")
	return nil
}

// Register creates an account. The backend then emails a code for [AuthService.VerifyRegistration].
func (a *AuthService) Register(ctx context.Context, req RegisterRequest) error {
	if strings.TrimSpace(req.UserName) == "" {
		return shared.HandleError(fmt.Errorf("%w: user name", shared.ErrMissingArgument))
	}
	if err := shared.ValidateEmail(req.Email); err != nil {
		return shared.HandleError(err)
	}
	if err := shared.ValidatePassword(req.Password); err != nil {
		return shared.HandleError(err)
	}

	body := registerBody{UserName: req.UserName, Email: req.Email, Passwd: a.encode(req.Password)}
	if err := a.gateway.Post(ctx, PathRegister, body, nil); err != nil {
		return shared.HandleError(err)
	}
	return nil
}

// VerifyRegistration confirms the emailed code and sends the user to the login view.
func (a *AuthService) VerifyRegistration(ctx context.Context, email, code string) error {
	if err := shared.ValidateEmail(email); err != nil {
		return shared.HandleError(err)
	}
	if code == "" {
		return shared.HandleError(fmt.Errorf("%w: verification code", shared.ErrMissingArgument))
	}

	if err := a.gateway.Post(ctx, PathRegisterVerify, emailCode{Email: email, Code: code}, nil); err != nil {
		return shared.HandleError(err)
	}

	a.nav.Navigate(RouteLogin)
	return nil
}

// InitializeFromStorage restores a stored user session.
//
// It reports false when no user token and profile are stored. When validation is enabled and
// the backend rejects the token, user storage is cleared and the error returned.
func (a *AuthService) InitializeFromStorage(ctx context.Context) (bool, error) {
	token := a.store.UserToken()
	if token == "" {
		return false, nil
	}
	if _, ok := a.store.Profile(); !ok {
		return false, nil
	}

	if a.validate {
		err := a.gateway.Do(ctx, Request{
			Method:      http.MethodGet,
			Path:        PathMovieList,
			Query:       probeQuery(),
			Token:       token,
			SkipRefresh: true,
		}, nil)
		if err != nil {
			a.logger.Warn("stored user token rejected", "error", err)
			if clearErr := a.store.ClearUser(); clearErr != nil {
				a.logger.Warn("failed to clear user credential", "error", clearErr)
			}
			return false, shared.HandleError(err)
		}
	}

	return true, nil
}

// Profile returns the active user's profile.
func (a *AuthService) Profile() (*models.UserProfile, bool) {
	return a.store.Profile()
}
