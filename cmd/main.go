package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/desertthunder/mixtape/internal/loudness"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}

	source := services.NewSpotifyService(services.SpotifyOpts{
		ClientID:     config.Credentials.Spotify.ClientID,
		ClientSecret: config.Credentials.Spotify.ClientSecret,
		HTTPClient:   httpClient,
		Logger:       logger,
	})
	providers := []services.Provider{
		services.NewSoundCloudService(services.SoundCloudOpts{HTTPClient: httpClient, Logger: logger}),
		services.NewBandcampService(services.BandcampOpts{HTTPClient: httpClient, Logger: logger}),
	}
	analyzer := loudness.NewAnalyzer(loudness.AnalyzerOpts{Logger: logger})

	runner := NewRunner(RunnerOpts{
		Config:     config,
		Source:     source,
		Providers:  providers,
		Analyzer:   analyzer,
		HTTPClient: httpClient,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "mixtape",
		Usage:    "Download playlists to a local library with loudness-aware playback",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}
