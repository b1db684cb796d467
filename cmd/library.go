package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/mixtape/internal/formatter"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/urfave/cli/v3"
)

// LibraryList lists downloaded playlists.
func (r *Runner) LibraryList(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))
	if err := r.openDatabase(); err != nil {
		return err
	}

	playlists, err := r.playlists.List()
	if err != nil {
		return err
	}
	if len(playlists) == 0 {
		return r.writePlain("No playlists downloaded yet.\n")
	}

	for _, playlist := range playlists {
		songs, err := r.songs.ListByPlaylist(playlist.ID)
		if err != nil {
			return err
		}
		r.writePlain("%s  %s (%d songs)\n", playlist.ID, playlist.Name, len(songs))
	}

	return nil
}

// LibrarySongs lists the songs of one playlist in order.
func (r *Runner) LibrarySongs(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	playlistID := cmd.Args().First()
	if playlistID == "" {
		return fmt.Errorf("%w: playlist ID", shared.ErrMissingArgument)
	}

	if err := r.openDatabase(); err != nil {
		return err
	}

	playlist, err := r.playlists.Get(playlistID)
	if err != nil {
		return err
	}

	songs, err := r.songs.ListByPlaylist(playlist.ID)
	if err != nil {
		return err
	}

	r.writePlain("%s\n\n", playlist.Name)
	return r.writePlain("%s", formatter.FormatSongList(songs))
}

// LibraryDelete deletes a playlist along with its downloaded files.
func (r *Runner) LibraryDelete(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	playlistID := cmd.Args().First()
	if playlistID == "" {
		return fmt.Errorf("%w: playlist ID", shared.ErrMissingArgument)
	}

	if err := r.openDatabase(); err != nil {
		return err
	}

	playlist, err := r.playlists.Get(playlistID)
	if err != nil {
		return err
	}

	if err := r.playlists.Delete(playlist.ID); err != nil {
		return err
	}

	r.logger.Info("deleted playlist", "id", playlist.ID, "name", playlist.Name)
	return r.writePlain("Deleted %q and its files.\n", playlist.Name)
}

// LibrarySweep removes files in the download directory that no song references.
func (r *Runner) LibrarySweep(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))
	if err := r.openDatabase(); err != nil {
		return err
	}

	removed, err := r.songs.SweepOrphans(r.config.Downloads.Directory)
	if err != nil {
		return err
	}

	return r.writePlain("Removed %d orphaned file(s).\n", removed)
}

// LibraryExport writes a playlist's songs as CSV.
func (r *Runner) LibraryExport(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	playlistID := cmd.Args().First()
	if playlistID == "" {
		return fmt.Errorf("%w: playlist ID", shared.ErrMissingArgument)
	}

	if err := r.openDatabase(); err != nil {
		return err
	}

	songs, err := r.songs.ListByPlaylist(playlistID)
	if err != nil {
		return err
	}

	data, err := formatter.ExportToCSV(songs)
	if err != nil {
		return err
	}

	if output := cmd.String("output"); output != "" {
		if err := os.WriteFile(output, data, 0644); err != nil {
			return fmt.Errorf("failed to write export: %w", err)
		}
		return r.writePlain("Exported %d song(s) to %s\n", len(songs), output)
	}

	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
