package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/mixtape/internal/formatter"
	"github.com/desertthunder/mixtape/internal/models"
)

// Result is the terminal state of a download run started through [Run].
type Result struct {
	Summary *models.DownloadSummary
	Err     error
}

// Model renders a playlist download as it progresses. Each track occupies
// one line which is rewritten as its status changes.
type Model struct {
	title    string
	progress <-chan models.DownloadProgress
	result   <-chan Result

	rows    map[int]models.DownloadProgress
	total   int
	summary *models.DownloadSummary
	err     error
	done    bool

	keys keyMap
	help help.Model
}

func NewModel(title string, progress <-chan models.DownloadProgress, result <-chan Result) Model {
	return Model{
		title:    title,
		progress: progress,
		result:   result,
		rows:     make(map[int]models.DownloadProgress),
		keys:     newKeyMap(),
		help:     help.New(),
	}
}

// Init implements [tea.Model]
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForProgress(), m.waitForResult())
}

// Update implements [tea.Model]
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}
	case progressMsg:
		update := models.DownloadProgress(msg)
		m.rows[update.CurrentIndex] = update
		if update.TotalCount > m.total {
			m.total = update.TotalCount
		}
		return m, m.waitForProgress()
	case summaryMsg:
		m.summary = msg.summary
		m.err = msg.err
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

// View implements [tea.Model]
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(styles.title.Render(m.title))
	b.WriteString("\n")

	for i := 0; i < m.total; i++ {
		update, ok := m.rows[i]
		if !ok {
			continue
		}
		b.WriteString(formatter.FormatProgress(update))
		b.WriteString("\n")
	}

	if m.done {
		if m.err != nil {
			b.WriteString(styles.err.Render("download failed: " + m.err.Error()))
			b.WriteString("\n")
		} else if m.summary != nil {
			b.WriteString("\n")
			b.WriteString(formatter.FormatSummary(m.summary))
		}
	} else {
		b.WriteString("\n")
		b.WriteString(styles.help.Render(m.help.ShortHelpView(m.keys.ShortHelp())))
		b.WriteString("\n")
	}

	return b.String()
}

// waitForProgress blocks on the next progress event. A closed channel
// produces no further messages, the summary message ends the program.
func (m Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		update, ok := <-m.progress
		if !ok {
			return nil
		}
		return progressMsg(update)
	}
}

func (m Model) waitForResult() tea.Cmd {
	return func() tea.Msg {
		res := <-m.result
		return summaryMsg{summary: res.Summary, err: res.Err}
	}
}

// Run drives the download view until the run completes or the user quits,
// then returns the run's result.
func Run(title string, progress <-chan models.DownloadProgress, result <-chan Result) (Result, error) {
	model := NewModel(title, progress, result)
	final, err := tea.NewProgram(model).Run()
	if err != nil {
		return Result{}, err
	}
	if m, ok := final.(Model); ok {
		return Result{Summary: m.summary, Err: m.err}, nil
	}
	return Result{}, nil
}
