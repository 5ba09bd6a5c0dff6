package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

// ResetSend emails a reset code.
func (r *Runner) ResetSend(ctx context.Context, cmd *cli.Command) error {
	c, err := r.connect()
	if err != nil {
		return err
	}

	email := cmd.String("email")
	if err := c.reset.SendCode(ctx, email); err != nil {
		return err
	}
	return r.writePlain("%s reset code sent to %s\n", r.palette.OK("✓"), email)
}

// ResetVerify checks the emailed code and remembers it for [Runner.ResetSet].
func (r *Runner) ResetVerify(ctx context.Context, cmd *cli.Command) error {
	c, err := r.connect()
	if err != nil {
		return err
	}

	if err := c.reset.VerifyCode(ctx, cmd.String("email"), cmd.String("code")); err != nil {
		return err
	}
	return r.writePlain("%s code verified, now run: reelgate reset set --password <new>\n", r.palette.OK("✓"))
}

// ResetSet sets the new password.
func (r *Runner) ResetSet(ctx context.Context, cmd *cli.Command) error {
	c, err := r.connect()
	if err != nil {
		return err
	}

	if err := c.reset.SetNewPassword(ctx, cmd.String("password")); err != nil {
		return err
	}
	return r.writePlain("%s password updated, log in with the new password\n", r.palette.OK("✓"))
}
