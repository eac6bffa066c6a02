package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

type storeStatus int

const (
	storeEmpty storeStatus = iota
	storeReady
	storeUnreadable
)

type welcomeModel struct {
	status     storeStatus
	lastCommit string
	units      int
	canRebuild bool
	detail     string
	ready      bool // true once the check has completed
}

// checkStoreMsg is sent after reading the knowledge store.
type checkStoreMsg struct {
	status     storeStatus
	lastCommit string
	units      int
	canRebuild bool
	err        error
}

func checkStore(cfg Config) tea.Cmd {
	return func() tea.Msg {
		snap, err := cfg.Store.Load()
		if err != nil {
			return checkStoreMsg{status: storeUnreadable, err: err}
		}
		msg := checkStoreMsg{
			status:     storeEmpty,
			lastCommit: snap.LastCommit,
			units:      snap.Len(),
			canRebuild: cfg.Rebuild != nil,
		}
		if snap.Len() > 0 {
			msg.status = storeReady
		}
		return msg
	}
}

func (m welcomeModel) Update(msg tea.Msg) (welcomeModel, tea.Cmd) {
	switch msg := msg.(type) {
	case checkStoreMsg:
		m.status = msg.status
		m.lastCommit = msg.lastCommit
		m.units = msg.units
		m.canRebuild = msg.canRebuild
		if msg.err != nil {
			m.detail = msg.err.Error()
		}
		m.ready = true
	}
	return m, nil
}

func (m welcomeModel) View(width, height int) string {
	s := "\n"
	s += titleStyle.Render("  ◆ Lumis") + "\n"
	s += subtitleStyle.Render("  The digital twin of your codebase") + "\n\n"

	if !m.ready {
		s += dimStyle.Render("  Reading knowledge store...") + "\n"
		return s
	}

	switch m.status {
	case storeReady:
		s += successStyle.Render(fmt.Sprintf("  ✓ %d units indexed", m.units)) + "\n"
		if m.lastCommit != "" {
			s += dimStyle.Render("    at commit ") + commitStyle.Render(m.lastCommit) + "\n"
		}
	case storeEmpty:
		s += warnStyle.Render("  ✗ Nothing indexed yet") + "\n"
		if !m.canRebuild {
			s += dimStyle.Render("    set repo_url to index a repository") + "\n"
		}
	case storeUnreadable:
		s += errorStyle.Render("  ✗ Knowledge store unreadable") + "\n"
		s += dimStyle.Render("    "+m.detail) + "\n"
	}

	s += "\n"
	if m.status == storeEmpty && m.canRebuild {
		s += dimStyle.Render("  Press Enter to index the repository") + "\n"
	} else {
		s += dimStyle.Render("  Press Enter to continue") + "\n"
	}
	return s
}
