package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/mixtape/internal/formatter"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tasks"
	"github.com/desertthunder/mixtape/internal/ui"
	"github.com/urfave/cli/v3"
)

// Download resolves a playlist URL and downloads every track.
func (r *Runner) Download(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	playlistURL := cmd.Args().First()
	if playlistURL == "" {
		return fmt.Errorf("%w: playlist URL", shared.ErrMissingArgument)
	}
	if err := r.requireSource(); err != nil {
		return err
	}
	if err := r.requireProviders(); err != nil {
		return err
	}

	if err := r.openDatabase(); err != nil {
		return err
	}

	r.logger.Info("resolving playlist", "url", playlistURL, "source", r.source.Name())
	name, tracks, err := r.source.Resolve(ctx, playlistURL)
	if err != nil {
		return err
	}
	if len(tracks) == 0 {
		return fmt.Errorf("%w: playlist has no tracks", shared.ErrSourceUnavailable)
	}

	playlist, err := r.ensurePlaylist(name, playlistURL)
	if err != nil {
		return err
	}

	r.writePlain("Downloading %q (%d tracks)\n\n", name, len(tracks))
	downloader := r.downloader(cmd.String("dir"))

	if cmd.Bool("tui") {
		return r.downloadInteractive(ctx, downloader, playlist.ID, name, tracks)
	}
	return r.downloadPlain(ctx, downloader, playlist.ID, tracks)
}

// downloadPlain streams progress lines to the output writer.
func (r *Runner) downloadPlain(ctx context.Context, downloader *tasks.Downloader, playlistID string, tracks []models.TrackDescriptor) error {
	progressCh := make(chan models.DownloadProgress, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.writePlain("%s\n", formatter.FormatProgress(update))
		}
	}()

	summary, err := downloader.DownloadTracks(ctx, playlistID, tracks, progressCh)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	return r.writePlainln("%s", formatter.FormatSummary(summary))
}

// downloadInteractive renders progress with the bubbletea view.
func (r *Runner) downloadInteractive(ctx context.Context, downloader *tasks.Downloader, playlistID, name string, tracks []models.TrackDescriptor) error {
	progressCh := make(chan models.DownloadProgress, 50)
	resultCh := make(chan ui.Result, 1)
	go func() {
		summary, err := downloader.DownloadTracks(ctx, playlistID, tracks, progressCh)
		close(progressCh)
		resultCh <- ui.Result{Summary: summary, Err: err}
	}()

	result, err := ui.Run(name, progressCh, resultCh)
	if err != nil {
		return err
	}
	if result.Err != nil {
		return result.Err
	}
	if result.Summary != nil {
		return r.writePlainln("%s", formatter.FormatSummary(result.Summary))
	}
	return nil
}

// Track downloads a single track by query into a named playlist.
func (r *Runner) Track(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	query := cmd.Args().First()
	if query == "" {
		return fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}
	if err := r.requireProviders(); err != nil {
		return err
	}

	if err := r.openDatabase(); err != nil {
		return err
	}

	playlist, err := r.ensurePlaylist(cmd.String("playlist"), "")
	if err != nil {
		return err
	}

	progressCh := make(chan models.DownloadProgress, 10)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.writePlain("%s\n", formatter.FormatProgress(update))
		}
	}()

	err = r.downloader(cmd.String("dir")).DownloadOne(ctx, playlist.ID, query, query, progressCh)
	close(progressCh)
	<-done

	return err
}

// ensurePlaylist finds a playlist by source URL, or by name for one-off
// downloads with no source, creating it when absent.
func (r *Runner) ensurePlaylist(name, sourceURL string) (*models.Playlist, error) {
	if sourceURL != "" {
		playlist, err := r.playlists.GetBySourceURL(sourceURL)
		if err == nil {
			return playlist, nil
		}
		if !errors.Is(err, shared.ErrPlaylistNotFound) {
			return nil, err
		}
	} else {
		playlists, err := r.playlists.List()
		if err != nil {
			return nil, err
		}
		for _, playlist := range playlists {
			if playlist.Name == name {
				return playlist, nil
			}
		}
	}

	playlist := &models.Playlist{Name: name, SourceURL: sourceURL}
	if err := r.playlists.Create(playlist); err != nil {
		return nil, err
	}
	return playlist, nil
}
