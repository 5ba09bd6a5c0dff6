package services

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/reelgate/internal/repositories"
	"github.com/desertthunder/reelgate/internal/shared"
)

// Durable keys used by the password reset flow.
const (
	KeyResetVerified = "resetVerified"
	KeyResetCode     = "resetCode"
	KeyResetEmail    = "resetEmail"
)

const defaultRedirectDelay = 1500 * time.Millisecond

// Scheduler runs f once after d.
type Scheduler func(d time.Duration, f func())

func afterFunc(d time.Duration, f func()) { time.AfterFunc(d, f) }

// ResetService drives the three-step password reset: send code, verify code, set new password.
type ResetService struct {
	gateway  *Gateway
	kv       repositories.KeyValueStore
	nav      Navigator
	encode   PasswordEncoder
	delay    time.Duration
	schedule Scheduler
	logger   *log.Logger
}

// ResetOpts configures a [ResetService].
type ResetOpts struct {
	Gateway   *Gateway
	KV        repositories.KeyValueStore
	Navigator Navigator
	Encoder   PasswordEncoder

	// RedirectDelay is how long to wait before navigating to login after a successful reset.
	// Negative means immediately.
	RedirectDelay time.Duration
	Scheduler     Scheduler
	Logger        *log.Logger
}

// NewResetService creates a [ResetService]
func NewResetService(opts ResetOpts) *ResetService {
	if opts.Navigator == nil {
		opts.Navigator = noopNavigator{}
	}
	if opts.Encoder == nil {
		opts.Encoder = SHA256Hex
	}
	if opts.Scheduler == nil {
		opts.Scheduler = afterFunc
	}
	switch {
	case opts.RedirectDelay == 0:
		opts.RedirectDelay = defaultRedirectDelay
	case opts.RedirectDelay < 0:
		opts.RedirectDelay = 0
	}

	return &ResetService{
		gateway:  opts.Gateway,
		kv:       opts.KV,
		nav:      opts.Navigator,
		encode:   opts.Encoder,
		delay:    opts.RedirectDelay,
		schedule: opts.Scheduler,
		logger:   shared.WithLogger(opts.Logger, "component", "reset"),
	}
}

type emailOnly struct {
	Email string `json:"email"`
}

type newPasswordBody struct {
	Email  string `json:"email"`
	Code   string `json:"code"`
	Passwd string `json:"passwd"`
}

// SendCode asks the backend to email a reset code.
func (r *ResetService) SendCode(ctx context.Context, email string) error {
	if err := shared.ValidateEmail(email); err != nil {
		return shared.HandleError(err)
	}
	if err := r.gateway.Post(ctx, PathResetSendCode, emailOnly{Email: email}, nil); err != nil {
		return shared.HandleError(err)
	}
	r.logger.Info("reset code sent", "email", email)
	return nil
}

// VerifyCode checks the emailed code and persists the verified marker, code and email.
func (r *ResetService) VerifyCode(ctx context.Context, email, code string) error {
	if err := shared.ValidateEmail(email); err != nil {
		return shared.HandleError(err)
	}
	if code == "" {
		return shared.HandleError(fmt.Errorf("%w: verification code", shared.ErrMissingArgument))
	}

	if err := r.gateway.Post(ctx, PathResetVerify, emailCode{Email: email, Code: code}, nil); err != nil {
		return shared.HandleError(err)
	}

	for key, value := range map[string]string{
		KeyResetVerified: "true",
		KeyResetCode:     code,
		KeyResetEmail:    email,
	} {
		if err := r.kv.Set(key, value); err != nil {
			return shared.HandleError(fmt.Errorf("%w: %w", shared.ErrStorage, err))
		}
	}
	return nil
}

// IsVerified reports whether a verified code is waiting to be used.
func (r *ResetService) IsVerified() bool {
	_, _, ok := r.pending()
	return ok
}

// SetNewPassword completes the reset.
//
// Without a verified marker and code it fails with [shared.ErrVerificationExpired] and sends nothing.
// On success the reset state is cleared and navigation to login is scheduled.
func (r *ResetService) SetNewPassword(ctx context.Context, newPassword string) error {
	email, code, ok := r.pending()
	if !ok {
		return shared.HandleError(shared.ErrVerificationExpired)
	}
	if err := shared.ValidatePassword(newPassword); err != nil {
		return shared.HandleError(err)
	}

	body := newPasswordBody{Email: email, Code: code, Passwd: r.encode(newPassword)}
	if err := r.gateway.Post(ctx, PathResetSetNewPasswd, body, nil); err != nil {
		return shared.HandleError(err)
	}

	if err := r.kv.Delete(KeyResetVerified, KeyResetCode, KeyResetEmail); err != nil {
		r.logger.Warn("failed to clear reset state", "error", err)
	}

	r.logger.Info("password reset", "email", email)
	r.schedule(r.delay, func() { r.nav.Navigate(RouteLogin) })
	return nil
}

func (r *ResetService) pending() (email, code string, ok bool) {
	verified, _, err := r.kv.Get(KeyResetVerified)
	if err != nil || verified != "true" {
		return "", "", false
	}
	code, _, err = r.kv.Get(KeyResetCode)
	if err != nil || code == "" {
		return "", "", false
	}
	email, _, _ = r.kv.Get(KeyResetEmail)
	return email, code, true
}
