package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cmesserich-br/ago-dependency-checker-app/internal/session"
)

// RunBrowse starts the interactive browser over the session's graph. The
// filter left applied on exit stays on the session.
func RunBrowse(s *session.Session) error {
	m, err := NewBrowseModel(s)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
