// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Output raw JSON",
	}
}

func emailFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "email",
		Aliases:  []string{"e"},
		Usage:    "Account email",
		Required: true,
	}
}

func prettyFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "pretty",
		Usage: "Pretty-print output",
		Value: true,
	}
}

// setupCommand handles setup operations for configuration and storage.
func setupCommand(r *Runner) *cli.Command {
	configFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		}
	}

	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a default configuration file",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize credential storage and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
		},
	}
}

// bootstrapCommand restores or establishes a session.
func bootstrapCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "bootstrap",
		Usage:  "Restore the stored session or mint a guest token",
		Flags:  []cli.Flag{jsonFlag()},
		Action: r.Bootstrap,
	}
}

// guestCommand handles guest token issuance.
func guestCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "guest",
		Usage: "Obtain a guest token",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "Mint a new token even when one is stored",
			},
		},
		Action: r.Guest,
	}
}

// authCommand handles account operations.
func authCommand(r *Runner) *cli.Command {
	passwordFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:     "password",
			Aliases:  []string{"p"},
			Usage:    "Account password",
			Sources:  cli.EnvVars("REELGATE_PASSWORD"),
			Required: true,
		}
	}

	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the user session",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Log in and replace the guest session",
				Flags:  []cli.Flag{emailFlag(), passwordFlag()},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Log out and fall back to a fresh guest token",
				Action: r.AuthLogout,
			},
			{
				Name:  "register",
				Usage: "Create an account; a verification code is emailed",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Aliases:  []string{"n"},
						Usage:    "User name",
						Required: true,
					},
					emailFlag(),
					passwordFlag(),
				},
				Action: r.AuthRegister,
			},
			{
				Name:  "verify",
				Usage: "Confirm a registration with the emailed code",
				Flags: []cli.Flag{
					emailFlag(),
					&cli.StringFlag{
						Name:     "code",
						Usage:    "Verification code",
						Required: true,
					},
				},
				Action: r.AuthVerify,
			},
			{
				Name:   "status",
				Usage:  "Show the active credential",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.AuthStatus,
			},
		},
	}
}

// resetCommand handles the password reset flow.
func resetCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "reset",
		Usage: "Reset a forgotten password",
		Commands: []*cli.Command{
			{
				Name:   "send",
				Usage:  "Email a reset code",
				Flags:  []cli.Flag{emailFlag()},
				Action: r.ResetSend,
			},
			{
				Name:  "verify",
				Usage: "Verify the emailed reset code",
				Flags: []cli.Flag{
					emailFlag(),
					&cli.StringFlag{
						Name:     "code",
						Usage:    "Reset code",
						Required: true,
					},
				},
				Action: r.ResetVerify,
			},
			{
				Name:  "set",
				Usage: "Set the new password after verification",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "password",
						Aliases:  []string{"p"},
						Usage:    "New password",
						Sources:  cli.EnvVars("REELGATE_NEW_PASSWORD"),
						Required: true,
					},
				},
				Action: r.ResetSet,
			},
		},
	}
}

// moviesCommand handles catalogue reads.
func moviesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "movies",
		Aliases: []string{"m"},
		Usage:   "Browse the movie catalogue",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List one page of the catalogue",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "page", Usage: "Page number", Value: 1},
					&cli.IntFlag{Name: "size", Usage: "Page size", Value: 20},
					&cli.StringFlag{Name: "title", Usage: "Filter by title"},
					&cli.StringFlag{Name: "category", Usage: "Filter by category"},
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "Output format: json, csv, markdown, txt", Value: "txt"},
				},
				Action: r.MoviesList,
			},
			{
				Name:  "detail",
				Usage: "Show one movie",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  []cli.Flag{jsonFlag(), prettyFlag()},
				Action: r.MoviesDetail,
			},
			{
				Name:  "export",
				Usage: "Fetch movie details concurrently and write them to a file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "ids", Usage: "Comma-separated movie IDs (default: walk the catalogue)"},
					&cli.StringFlag{Name: "category", Usage: "Filter the catalogue walk by category"},
					&cli.IntFlag{Name: "limit", Usage: "Maximum movies to export when walking the catalogue"},
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "Output format: json, csv, markdown, txt", Value: "json"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output file, or directory for markdown"},
					&cli.BoolFlag{Name: "covers", Usage: "Download cover images (markdown only)"},
					&cli.IntFlag{Name: "workers", Usage: "Concurrent workers (default from config)"},
				},
				Action: r.MoviesExport,
			},
		},
	}
}
