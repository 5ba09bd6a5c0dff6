package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/reelgate/internal/services"
	"github.com/desertthunder/reelgate/internal/shared"
	"github.com/urfave/cli/v3"
)

// Bootstrap runs the startup chain and prints the resulting state.
func (r *Runner) Bootstrap(ctx context.Context, cmd *cli.Command) error {
	c, err := r.connect()
	if err != nil {
		return err
	}

	state := c.app.Initialize(ctx)
	if cmd.Bool("json") {
		if err := r.writeJSON(state, true); err != nil {
			return err
		}
	} else {
		r.writePlain("%s\n", r.palette.RenderState(state))
	}

	if state.Error != nil {
		return state.Error
	}
	return nil
}

// Guest obtains a guest token, reusing the stored one unless --force is set.
func (r *Runner) Guest(ctx context.Context, cmd *cli.Command) error {
	c, err := r.connect()
	if err != nil {
		return err
	}

	cred, err := c.guest.IssueGuestToken(ctx, cmd.Bool("force"))
	if err != nil {
		return shared.HandleError(err)
	}
	return r.writePlain("%s %s\n", r.palette.OK("✓"), r.palette.RenderSession(cred, nil))
}

// AuthLogin logs in with email and password.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	c, err := r.connect()
	if err != nil {
		return err
	}

	profile, err := c.auth.Login(ctx, cmd.String("email"), cmd.String("password"))
	if err != nil {
		return err
	}
	return r.writePlain("%s logged in as %s\n", r.palette.OK("✓"), profile.Username)
}

// AuthLogout drops the user session and mints a fresh guest token.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	c, err := r.connect()
	if err != nil {
		return err
	}

	if err := c.auth.Logout(ctx); err != nil {
		return err
	}
	return r.writePlain("%s logged out\n", r.palette.OK("✓"))
}

// AuthRegister creates an account.
func (r *Runner) AuthRegister(ctx context.Context, cmd *cli.Command) error {
	c, err := r.connect()
	if err != nil {
		return err
	}

	req := services.RegisterRequest{
		UserName: cmd.String("name"),
		Email:    cmd.String("email"),
		Password: cmd.String("password"),
	}
	if err := c.auth.Register(ctx, req); err != nil {
		return err
	}

	r.writePlain("%s registration submitted for %s\n", r.palette.OK("✓"), req.Email)
	return r.writePlain("%s\n", r.palette.Help("check your inbox, then run: reelgate auth verify --email "+req.Email+" --code <code>"))
}

// AuthVerify confirms a registration code.
func (r *Runner) AuthVerify(ctx context.Context, cmd *cli.Command) error {
	c, err := r.connect()
	if err != nil {
		return err
	}

	if err := c.auth.VerifyRegistration(ctx, cmd.String("email"), cmd.String("code")); err != nil {
		return err
	}
	return r.writePlain("%s account verified, you can now log in\n", r.palette.OK("✓"))
}

type sessionStatus struct {
	Kind    string `json:"kind"`
	Token   string `json:"token"`
	Expires string `json:"expires,omitempty"`
	User    any    `json:"user,omitempty"`
}

// AuthStatus prints the active credential with its token masked.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	c, err := r.connect()
	if err != nil {
		return err
	}

	cred, ok := c.store.Get()
	if !ok {
		if cmd.Bool("json") {
			return r.writeJSON(map[string]any{"kind": nil}, true)
		}
		return r.writePlain("%s\n", r.palette.RenderSession(nil, nil))
	}

	var expiry time.Time
	if tok, err := c.store.Token(); err == nil {
		expiry = tok.Expiry
	}

	profile, _ := c.store.Profile()
	if cmd.Bool("json") {
		status := sessionStatus{Kind: cred.Kind.String(), Token: shared.MaskToken(cred.Token)}
		if !expiry.IsZero() {
			status.Expires = expiry.Format("2006-01-02T15:04:05Z07:00")
		}
		if profile != nil {
			status.User = profile
		}
		return r.writeJSON(status, true)
	}

	r.writePlain("%s\n", r.palette.RenderSession(cred, profile))
	if !expiry.IsZero() {
		r.writePlain("%s\n", r.palette.Help(fmt.Sprintf("expires %s", expiry.Format("2006-01-02 15:04"))))
	}
	return nil
}
