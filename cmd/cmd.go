// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// globalFlags are accepted by every command.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Enable debug logging",
		},
		&cli.StringFlag{
			Name:  "log-file",
			Usage: "Append logs to this file instead of stderr",
		},
	}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output the run result as JSON",
		},
		&cli.BoolFlag{
			Name:  "csv",
			Usage: "Output the run result as CSV",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Also write the run result to a file (format from --format or the file extension)",
		},
		&cli.StringFlag{
			Name:  "format",
			Usage: "Export format for --output: text, json, csv or markdown",
		},
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create the config file and initialize the credential database",
		Action: r.Setup,
	}
}

// authCommand handles the OAuth session
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the YouTube authorization",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authorize ytmix in the browser",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "consent",
						Usage: "Force the consent screen so a new refresh token is issued",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "status",
				Usage: "Show the session state and exchange service health",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Forget stored credentials",
				Action: r.AuthLogout,
			},
			{
				Name:   "reauth",
				Usage:  "Forget stored credentials and authorize again with forced consent",
				Action: r.AuthReauth,
			},
		},
	}
}

// generateCommand handles playlist generation
func generateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "generate",
		Aliases: []string{"gen"},
		Usage:   "Generate a new playlist",
		Commands: []*cli.Command{
			{
				Name:    "subscriptions",
				Aliases: []string{"subs"},
				Usage:   "From the latest uploads of your subscribed channels",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:    "title",
						Aliases: []string{"t"},
						Usage:   "Playlist title (defaults to the current timestamp)",
					},
				}, outputFlags()...),
				Action: r.GenerateSubscriptions,
			},
			{
				Name:      "links",
				Usage:     "From pasted video links, in order",
				ArgsUsage: "[links...]",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:    "title",
						Aliases: []string{"t"},
						Usage:   "Playlist title (defaults to \"Custom Playlist <timestamp>\")",
					},
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Read links from a file, one per line (- for stdin)",
					},
				}, outputFlags()...),
				Action: r.GenerateLinks,
			},
		},
	}
}
