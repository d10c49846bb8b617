// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

const version = "0.3.0"

func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "deezr",
		Usage:   "Browse the Deezer catalog, keep a local library and play track previews",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Before:   r.loadConfig,
		Commands: r.register(),
	}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
		},
	}
}

func playFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "loop",
			Usage: "Start over when the queue finishes",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Print the queue without playing it",
		},
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file and initialize storage",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config file populated with defaults",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Create the SQLite database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

func catalogCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "catalog",
		Aliases: []string{"cat"},
		Usage:   "Query the Deezer catalog",
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "Search tracks, albums, artists or playlists",
				Arguments: []cli.Argument{&cli.StringArg{Name: "query"}},
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:    "type",
						Aliases: []string{"t"},
						Usage:   "What to search for: track, album, artist or playlist",
						Value:   "track",
					},
				}, outputFlags()...),
				Action: r.CatalogSearch,
			},
			{
				Name:  "chart",
				Usage: "Show the current top tracks or albums",
				Flags: append([]cli.Flag{
					&cli.BoolFlag{
						Name:  "albums",
						Usage: "List top albums instead of tracks",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of entries",
						Value: 25,
					},
				}, outputFlags()...),
				Action: r.CatalogChart,
			},
			{
				Name:      "album",
				Usage:     "Show an album and its tracks",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     outputFlags(),
				Action:    r.CatalogAlbum,
			},
			{
				Name:      "artist",
				Usage:     "Show an artist with top tracks and albums",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: append([]cli.Flag{
					&cli.IntFlag{
						Name:  "top",
						Usage: "Number of top tracks to show",
						Value: 10,
					},
				}, outputFlags()...),
				Action: r.CatalogArtist,
			},
			{
				Name:      "playlist",
				Usage:     "Show a public Deezer playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     outputFlags(),
				Action:    r.CatalogPlaylist,
			},
		},
	}
}

func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Manage local playlists and liked tracks",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List playlists",
				Flags:  outputFlags(),
				Action: r.LibraryList,
			},
			{
				Name:      "show",
				Usage:     "Show a playlist and its tracks",
				Arguments: []cli.Argument{&cli.StringArg{Name: "playlist"}},
				Flags:     outputFlags(),
				Action:    r.LibraryShow,
			},
			{
				Name:      "create",
				Usage:     "Create an empty playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "description",
						Aliases: []string{"d"},
						Usage:   "Playlist description",
					},
				},
				Action: r.LibraryCreate,
			},
			{
				Name:      "delete",
				Usage:     "Delete a playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "playlist"}},
				Action:    r.LibraryDelete,
			},
			{
				Name:  "rename",
				Usage: "Rename a playlist or change its description",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "playlist"},
					&cli.StringArg{Name: "name"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "description",
						Aliases: []string{"d"},
						Usage:   "New description",
					},
					&cli.StringFlag{
						Name:  "cover",
						Usage: "New cover image URL",
					},
				},
				Action: r.LibraryRename,
			},
			{
				Name:  "add",
				Usage: "Add the top search result for a query to a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "playlist"},
					&cli.StringArg{Name: "query"},
				},
				Action: r.LibraryAdd,
			},
			{
				Name:  "remove",
				Usage: "Remove a track from a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "playlist"},
					&cli.StringArg{Name: "track"},
				},
				Action: r.LibraryRemove,
			},
			{
				Name:      "like",
				Usage:     "Toggle the like on the top search result for a query",
				Arguments: []cli.Argument{&cli.StringArg{Name: "query"}},
				Action:    r.LibraryLike,
			},
			{
				Name:   "liked",
				Usage:  "List liked tracks",
				Flags:  outputFlags(),
				Action: r.LibraryLiked,
			},
			{
				Name:  "import",
				Usage: "Copy an album, playlist, artist top tracks or the chart into a new playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "kind"},
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "name",
						Aliases: []string{"n"},
						Usage:   "Playlist name (defaults to the source title)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum tracks for artist-top and chart imports",
						Value: 25,
					},
				},
				Action: r.LibraryImport,
			},
			{
				Name:  "export",
				Usage: "Export playlists to files",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: json, csv, markdown, txt or yaml",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: deezr_export_{epoch})",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent export workers",
						Value: 5,
					},
					&cli.BoolFlag{
						Name:  "covers",
						Usage: "Download cover images for markdown exports",
					},
					&cli.StringSliceFlag{
						Name:  "id",
						Usage: "Only export these playlist IDs",
					},
				},
				Action: r.LibraryExport,
			},
		},
	}
}

func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Play track previews until the queue finishes or Ctrl-C",
		Commands: []*cli.Command{
			{
				Name:      "track",
				Usage:     "Play the top search result for a query",
				Arguments: []cli.Argument{&cli.StringArg{Name: "query"}},
				Flags:     playFlags(),
				Action:    r.PlayTrack,
			},
			{
				Name:      "album",
				Usage:     "Play a catalog album",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     playFlags(),
				Action:    r.PlayAlbum,
			},
			{
				Name:      "playlist",
				Usage:     "Play a local playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "playlist"}},
				Flags:     playFlags(),
				Action:    r.PlayPlaylist,
			},
			{
				Name:   "liked",
				Usage:  "Play liked tracks",
				Flags:  playFlags(),
				Action: r.PlayLiked,
			},
			{
				Name:  "chart",
				Usage: "Play the current top tracks",
				Flags: append([]cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of tracks",
						Value: 25,
					},
				}, playFlags()...),
				Action: r.PlayChart,
			},
		},
	}
}

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the catalog proxy server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (overrides server.host)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (overrides server.port)",
			},
		},
		Action: r.Serve,
	}
}

func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Launch the interactive player",
		Action: r.TUI,
	}
}
