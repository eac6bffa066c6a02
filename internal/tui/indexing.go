package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lumisproject/digital-twin-project-oracle/internal/index"
)

type indexingModel struct {
	spinner spinner.Model
	phase   string
	done    int
	total   int
	result  *index.Result
	err     error
	// finished is set once the rebuild returned.
	finished bool
}

func newIndexingModel() indexingModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = selectedStyle
	return indexingModel{
		spinner: sp,
		phase:   "Cloning repository...",
	}
}

// rebuildDoneMsg is sent when the rebuild completes.
type rebuildDoneMsg struct {
	result *index.Result
	err    error
}

// rebuildProgressMsg is sent periodically during the rebuild.
type rebuildProgressMsg struct {
	phase string
	done  int
	total int
}

func runRebuild(cfg Config) tea.Cmd {
	return func() tea.Msg {
		res, err := cfg.Rebuild(context.Background(), func(phase string, done, total int) {
			if cfg.program != nil && cfg.program.p != nil {
				cfg.program.p.Send(rebuildProgressMsg{phase: phase, done: done, total: total})
			}
		})
		return rebuildDoneMsg{result: res, err: err}
	}
}

func (m indexingModel) Update(msg tea.Msg) (indexingModel, tea.Cmd) {
	switch msg := msg.(type) {
	case rebuildDoneMsg:
		m.finished = true
		m.result = msg.result
		m.err = msg.err
		return m, nil
	case rebuildProgressMsg:
		m.phase = msg.phase
		m.done = msg.done
		m.total = msg.total
		return m, nil
	case spinner.TickMsg:
		if m.finished {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m indexingModel) View(width, height int) string {
	s := "\n"
	s += titleStyle.Render("  Indexing") + "\n\n"

	if m.finished {
		if m.err != nil {
			s += errorStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n\n"
			s += dimStyle.Render("  Press Enter to continue to chat anyway, or q to quit.") + "\n"
			return s
		}
		s += successStyle.Render("  ✓ Indexing complete!") + "\n\n"
		if m.result != nil {
			s += fmt.Sprintf("  Commit: %s\n", m.result.Commit)
			s += fmt.Sprintf("  Files:  %d\n", m.result.Files)
			s += fmt.Sprintf("  Units:  %d enriched, %d skipped\n", m.result.Enriched, m.result.Dropped)
		}
		s += "\n"
		s += dimStyle.Render("  Press Enter to start chatting") + "\n"
		return s
	}

	s += fmt.Sprintf("  %s %s\n", m.spinner.View(), m.phase)
	if m.total > 0 {
		s += fmt.Sprintf("  %d / %d units\n", m.done, m.total)
	}
	s += "\n"
	s += dimStyle.Render("  Every unit is summarized once; later syncs only revisit changes.") + "\n"
	return s
}
