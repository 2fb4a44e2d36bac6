// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

func jsonFlags(pretty bool) []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
			Value: pretty,
		},
	}
}

// setupCommand handles setup operations for configuration and the local database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config file from the built-in template",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles GitHub authentication
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage GitHub authentication",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in with GitHub using OAuth2 and store the access token",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the browser redirect",
						Value: 5 * time.Minute,
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored access token",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show the signed-in user and repository access",
				Action: r.AuthStatus,
			},
		},
	}
}

// listCommand prints the watchlist
func listCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "Show the watchlist",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "kind",
				Aliases: []string{"k"},
				Usage:   "Only show movies or series",
			},
			&cli.StringFlag{
				Name:    "filter",
				Aliases: []string{"f"},
				Usage:   "Case-insensitive match on title or notes",
			},
		}, jsonFlags(false)...),
		Action: r.List,
	}
}

// searchCommand queries OMDB
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search OMDB by title",
		ArgsUsage: "<query>",
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:    "details",
				Aliases: []string{"d"},
				Usage:   "Fetch full details (rating, poster) for the top results",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of results",
				Value: 10,
			},
		}, jsonFlags(false)...),
		Action: r.Search,
	}
}

// addCommand adds titles by IMDb id
func addCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Add titles to the watchlist by IMDb id",
		ArgsUsage: "<imdb-id>...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "rating",
				Aliases: []string{"r"},
				Usage:   "Your rating",
			},
			&cli.StringFlag{
				Name:    "notes",
				Aliases: []string{"n"},
				Usage:   "Free-form notes",
			},
		},
		Action: r.Add,
	}
}

// removeCommand removes titles by IMDb id
func removeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "remove",
		Aliases:   []string{"rm"},
		Usage:     "Remove titles from the watchlist by IMDb id",
		ArgsUsage: "<imdb-id>...",
		Action:    r.Remove,
	}
}

// exportCommand writes the watchlist to a local file
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export the watchlist as CSV, Markdown or text",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "format",
				Usage: "csv, md or txt",
				Value: "txt",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file path (- for stdout)",
			},
		},
		Action: r.Export,
	}
}

// historyCommand lists journaled saves
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent saves made from this machine",
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of saves",
				Value: 20,
			},
		}, jsonFlags(false)...),
		Action: r.History,
	}
}

// cacheCommand manages the local OMDB title cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and prune the local title cache",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List cached titles",
				Flags:  jsonFlags(false),
				Action: r.CacheList,
			},
			{
				Name:  "purge",
				Usage: "Delete cached titles older than --older-than",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "older-than",
						Usage: "Age cutoff (0 purges everything)",
						Value: 0,
					},
				},
				Action: r.CachePurge,
			},
		},
	}
}

// apiCommand handles direct GitHub API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to the GitHub API with the stored credential",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags:  jsonFlags(true),
				Action: r.APIGet,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for interactive watchlist management.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI",
		Action:  r.TUI,
	}
}
