package main

import (
	"bytes"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
	tu "github.com/desertthunder/mixtape/internal/testing"
)

func newTestRunner(t *testing.T, source services.PlaylistSource, providers []services.Provider) (*Runner, *bytes.Buffer) {
	t.Helper()

	dir := t.TempDir()
	config := shared.DefaultConfig()
	config.Database.Path = filepath.Join(dir, "test.db")
	config.Downloads.Directory = filepath.Join(dir, "downloads")

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config:    config,
		Source:    source,
		Providers: providers,
		Output:    output,
	})
	t.Cleanup(func() {
		if runner.db != nil {
			runner.db.Close()
		}
	})
	return runner, output
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			source := &tu.MockSource{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Source:     source,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.source != source {
				t.Error("expected source to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})
	})

	t.Run("openDatabase", func(t *testing.T) {
		runner, _ := newTestRunner(t, &tu.MockSource{}, nil)

		if err := runner.openDatabase(); err != nil {
			t.Fatalf("openDatabase failed: %v", err)
		}
		if runner.playlists == nil || runner.songs == nil {
			t.Error("expected repositories wired")
		}

		db := runner.db
		if err := runner.openDatabase(); err != nil {
			t.Fatalf("second openDatabase failed: %v", err)
		}
		if runner.db != db {
			t.Error("expected openDatabase to be idempotent")
		}
	})

	t.Run("reloadConfig", func(t *testing.T) {
		runner, _ := newTestRunner(t, &tu.MockSource{}, nil)
		original := runner.config

		runner.reloadConfig(filepath.Join(t.TempDir(), "absent.toml"))
		if runner.config != original {
			t.Error("expected missing file to leave config untouched")
		}

		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte("[downloads]\ndirectory = \"/elsewhere\"\n"), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		runner.reloadConfig(path)
		if runner.config.Downloads.Directory != "/elsewhere" {
			t.Errorf("expected config swapped in, got %q", runner.config.Downloads.Directory)
		}
	})

	t.Run("ensurePlaylist", func(t *testing.T) {
		t.Run("creates then finds by source URL", func(t *testing.T) {
			runner, _ := newTestRunner(t, &tu.MockSource{}, nil)
			if err := runner.openDatabase(); err != nil {
				t.Fatalf("openDatabase failed: %v", err)
			}

			created, err := runner.ensurePlaylist("Mix", "https://example.com/playlist/1")
			if err != nil {
				t.Fatalf("ensurePlaylist failed: %v", err)
			}

			again, err := runner.ensurePlaylist("Renamed", "https://example.com/playlist/1")
			if err != nil {
				t.Fatalf("second ensurePlaylist failed: %v", err)
			}
			if again.ID != created.ID {
				t.Error("expected same playlist reused for the same source URL")
			}
		})

		t.Run("finds by name without source URL", func(t *testing.T) {
			runner, _ := newTestRunner(t, &tu.MockSource{}, nil)
			if err := runner.openDatabase(); err != nil {
				t.Fatalf("openDatabase failed: %v", err)
			}

			created, err := runner.ensurePlaylist("Singles", "")
			if err != nil {
				t.Fatalf("ensurePlaylist failed: %v", err)
			}
			again, err := runner.ensurePlaylist("Singles", "")
			if err != nil || again.ID != created.ID {
				t.Errorf("expected named playlist reused, got %v, %v", again, err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("propagates writer errors", func(t *testing.T) {
			runner, _ := newTestRunner(t, &tu.MockSource{}, nil)
			runner.output = &tu.FWriter{}

			if err := runner.writePlain("hello"); err == nil {
				t.Error("expected writePlain to surface the write failure")
			}
			if err := runner.writePlainln("hello"); err == nil {
				t.Error("expected writePlainln to surface the write failure")
			}
		})

		t.Run("fails once the writer gives out", func(t *testing.T) {
			runner, _ := newTestRunner(t, &tu.MockSource{}, nil)
			limited := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner.output = &limited

			if err := runner.writePlain("first"); err != nil {
				t.Fatalf("expected first write to succeed, got %v", err)
			}
			if err := runner.writePlain("second"); err == nil {
				t.Error("expected second write to fail")
			}
		})
	})

	t.Run("service guards", func(t *testing.T) {
		runner, _ := newTestRunner(t, nil, nil)

		if err := runner.requireSource(); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable without a source, got %v", err)
		}
		if err := runner.requireProviders(); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable without providers, got %v", err)
		}

		runner.source = &tu.MockSource{}
		runner.providers = []services.Provider{&tu.MockProvider{}}
		if err := runner.requireSource(); err != nil {
			t.Errorf("expected configured source accepted, got %v", err)
		}
		if err := runner.requireProviders(); err != nil {
			t.Errorf("expected configured providers accepted, got %v", err)
		}
	})

	t.Run("downloadPlain", func(t *testing.T) {
		runner, output := newTestRunner(t, &tu.MockSource{}, nil)
		if err := runner.openDatabase(); err != nil {
			t.Fatalf("openDatabase failed: %v", err)
		}

		provider := &tu.MockProvider{
			ProviderName: "SoundCloud",
			Match:        &services.MatchedTrack{Title: "Hit", Ref: "r"},
			StreamURL:    "https://s/1",
		}
		runner.providers = []services.Provider{provider}

		playlist, err := runner.ensurePlaylist("Mix", "https://example.com/playlist/1")
		if err != nil {
			t.Fatalf("ensurePlaylist failed: %v", err)
		}

		tracks := []models.TrackDescriptor{{Name: "Song One", Artist: "Artist"}}
		if err := runner.downloadPlain(t.Context(), runner.downloader(""), playlist.ID, tracks); err != nil {
			t.Fatalf("downloadPlain failed: %v", err)
		}

		out := output.String()
		if !strings.Contains(out, "Download complete") {
			t.Errorf("expected summary in output:\n%s", out)
		}
		if !strings.Contains(out, "Song One") {
			t.Errorf("expected per-track progress in output:\n%s", out)
		}
	})
}
