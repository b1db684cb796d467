// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand initializes the database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Initialize database and run migrations",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// configCommand handles configuration files
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration file operations",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write an example config.toml to the current directory",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Destination path",
						Value:   "config.toml",
					},
				},
				Action: r.ConfigInit,
			},
		},
	}
}

// downloadCommand downloads a full playlist
func downloadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "download",
		Aliases:   []string{"dl"},
		Usage:     "Download every track of a playlist",
		ArgsUsage: "<playlist-url>",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "Download directory (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Render progress in an interactive view",
			},
		},
		Action: r.Download,
	}
}

// trackCommand downloads a single track by search query
func trackCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "track",
		Usage:     "Download a single track by search query",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "playlist",
				Aliases: []string{"p"},
				Usage:   "Name of the playlist to file the track under",
				Value:   "Singles",
			},
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "Download directory (overrides config)",
			},
		},
		Action: r.Track,
	}
}

// libraryCommand handles local library operations
func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Local library operations",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List downloaded playlists",
				Flags:  []cli.Flag{configFlag()},
				Action: r.LibraryList,
			},
			{
				Name:      "songs",
				Usage:     "List the songs of a playlist",
				ArgsUsage: "<playlist-id>",
				Flags:     []cli.Flag{configFlag()},
				Action:    r.LibrarySongs,
			},
			{
				Name:      "delete",
				Usage:     "Delete a playlist and its downloaded files",
				ArgsUsage: "<playlist-id>",
				Flags:     []cli.Flag{configFlag()},
				Action:    r.LibraryDelete,
			},
			{
				Name:   "sweep",
				Usage:  "Remove files in the download directory no playlist references",
				Flags:  []cli.Flag{configFlag()},
				Action: r.LibrarySweep,
			},
			{
				Name:      "export",
				Usage:     "Export a playlist's songs as CSV",
				ArgsUsage: "<playlist-id>",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (stdout when omitted)",
					},
				},
				Action: r.LibraryExport,
			},
		},
	}
}

// normalizeCommand inspects normalization gain for a measured loudness
func normalizeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "normalize",
		Usage: "Show the playback gain applied for a track loudness",
		Flags: []cli.Flag{
			configFlag(),
			&cli.FloatFlag{
				Name:     "loudness",
				Aliases:  []string{"l"},
				Usage:    "Measured track loudness in dB",
				Required: true,
			},
		},
		Action: r.Normalize,
	}
}
