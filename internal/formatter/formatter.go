// Package formatter renders download progress, run summaries, and library
// listings for the CLI, and exports playlists to CSV.
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F56")).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
)

// FormatProgress renders one progress event as a single line.
func FormatProgress(update models.DownloadProgress) string {
	prefix := fmt.Sprintf("[%d/%d] %s", update.CurrentIndex+1, update.TotalCount, update.TrackName)

	switch update.Status {
	case models.StatusSearching:
		return fmt.Sprintf("%s %s", prefix, dimStyle.Render("searching..."))
	case models.StatusSearchingFallback:
		return fmt.Sprintf("%s %s", prefix, warnStyle.Render("trying fallback provider..."))
	case models.StatusDownloading:
		if update.TotalBytes > 0 {
			percent := float64(update.BytesRead) / float64(update.TotalBytes) * 100
			return fmt.Sprintf("%s downloading from %s (%.0f%%)", prefix, update.Source, percent)
		}
		return fmt.Sprintf("%s downloading from %s", prefix, update.Source)
	case models.StatusDone:
		return fmt.Sprintf("%s %s", prefix, okStyle.Render("✓ "+update.Source))
	case models.StatusFailed:
		return fmt.Sprintf("%s %s", prefix, errStyle.Render("✗ failed"))
	case models.StatusNotFound:
		return fmt.Sprintf("%s %s", prefix, warnStyle.Render("not found"))
	default:
		return prefix
	}
}

// FormatSummary renders a run summary block.
func FormatSummary(summary *models.DownloadSummary) string {
	var buf bytes.Buffer

	buf.WriteString("Download complete\n")
	buf.WriteString(fmt.Sprintf("  SoundCloud: %s\n", okStyle.Render(strconv.Itoa(summary.SoundCloudCount))))
	buf.WriteString(fmt.Sprintf("  Bandcamp:   %s\n", okStyle.Render(strconv.Itoa(summary.BandcampCount))))
	buf.WriteString(fmt.Sprintf("  Not found:  %s\n", warnStyle.Render(strconv.Itoa(summary.NotFoundCount))))
	buf.WriteString(fmt.Sprintf("  Total:      %d\n", summary.Total()))

	return buf.String()
}

// FormatSongList renders the songs of a playlist, one per line.
func FormatSongList(songs []*models.Song) string {
	var buf bytes.Buffer

	for _, song := range songs {
		loudness := dimStyle.Render("loudness pending")
		if song.LoudnessDb != nil {
			loudness = fmt.Sprintf("%.1f dB", *song.LoudnessDb)
		}
		buf.WriteString(fmt.Sprintf("%3d. %s - %s [%s] %s\n",
			song.OrderIndex+1, song.Artist, song.Title, shared.FormatDuration(song.DurationMs), loudness))
	}

	return buf.String()
}

// ExportToCSV converts a playlist's songs to CSV with columns:
// Index, Title, Artist, Duration (ms), Loudness (dB), Path.
func ExportToCSV(songs []*models.Song) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Index", "Title", "Artist", "Duration (ms)", "Loudness (dB)", "Path"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, song := range songs {
		loudness := ""
		if song.LoudnessDb != nil {
			loudness = strconv.FormatFloat(*song.LoudnessDb, 'f', 2, 64)
		}
		record := []string{
			strconv.Itoa(song.OrderIndex),
			song.Title,
			song.Artist,
			strconv.Itoa(song.DurationMs),
			loudness,
			song.LocalPath,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}
