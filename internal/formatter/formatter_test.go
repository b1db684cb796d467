package formatter

import (
	"strings"
	"testing"

	"github.com/desertthunder/mixtape/internal/models"
)

func loudnessPtr(v float64) *float64 { return &v }

func TestFormatProgress(t *testing.T) {
	base := models.DownloadProgress{CurrentIndex: 2, TotalCount: 10, TrackName: "Some Song"}

	t.Run("Searching", func(t *testing.T) {
		update := base
		update.Status = models.StatusSearching
		line := FormatProgress(update)
		if !strings.Contains(line, "[3/10]") || !strings.Contains(line, "Some Song") {
			t.Errorf("unexpected line %q", line)
		}
	})

	t.Run("Downloading With Known Size", func(t *testing.T) {
		update := base
		update.Status = models.StatusDownloading
		update.Source = "SoundCloud"
		update.BytesRead = 50
		update.TotalBytes = 200
		line := FormatProgress(update)
		if !strings.Contains(line, "SoundCloud") || !strings.Contains(line, "25%") {
			t.Errorf("expected source and percentage, got %q", line)
		}
	})

	t.Run("Downloading With Unknown Size", func(t *testing.T) {
		update := base
		update.Status = models.StatusDownloading
		update.Source = "Bandcamp"
		update.TotalBytes = -1
		line := FormatProgress(update)
		if strings.Contains(line, "%") {
			t.Errorf("expected no percentage for unknown size, got %q", line)
		}
	})

	t.Run("Done Names Provider", func(t *testing.T) {
		update := base
		update.Status = models.StatusDone
		update.Source = "Bandcamp"
		if line := FormatProgress(update); !strings.Contains(line, "Bandcamp") {
			t.Errorf("expected provider in %q", line)
		}
	})
}

func TestFormatSummary(t *testing.T) {
	summary := &models.DownloadSummary{SoundCloudCount: 3, BandcampCount: 2, NotFoundCount: 1}
	out := FormatSummary(summary)

	for _, want := range []string{"SoundCloud", "Bandcamp", "Not found", "6"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in summary output:\n%s", want, out)
		}
	}
}

func TestFormatSongList(t *testing.T) {
	songs := []*models.Song{
		{Title: "Measured", Artist: "A", DurationMs: 215000, OrderIndex: 0, LoudnessDb: loudnessPtr(-18.2)},
		{Title: "Pending", Artist: "B", DurationMs: 180000, OrderIndex: 1},
	}
	out := FormatSongList(songs)

	if !strings.Contains(out, "-18.2 dB") {
		t.Errorf("expected loudness rendered, got:\n%s", out)
	}
	if !strings.Contains(out, "loudness pending") {
		t.Errorf("expected pending marker for unmeasured song, got:\n%s", out)
	}
	if !strings.Contains(out, "3:35") {
		t.Errorf("expected formatted duration, got:\n%s", out)
	}
}

func TestExportToCSV(t *testing.T) {
	songs := []*models.Song{
		{Title: "With, Comma", Artist: "A", DurationMs: 1000, OrderIndex: 0, LocalPath: "/tmp/a.mp3", LoudnessDb: loudnessPtr(-18.25)},
		{Title: "Plain", Artist: "B", DurationMs: 2000, OrderIndex: 1, LocalPath: "/tmp/b.mp3"},
	}

	data, err := ExportToCSV(songs)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 records, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "Index,Title,Artist") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.Contains(lines[1], `"With, Comma"`) {
		t.Errorf("expected quoted comma field, got %q", lines[1])
	}
	if !strings.Contains(lines[1], "-18.25") {
		t.Errorf("expected loudness column, got %q", lines[1])
	}
	if !strings.Contains(lines[2], ",,") {
		t.Errorf("expected empty loudness column for unmeasured song, got %q", lines[2])
	}
}
