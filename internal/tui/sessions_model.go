package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// loadSessions returns a command that fetches the shopper's sessions
func (m Model) loadSessions() tea.Cmd {
	return func() tea.Msg {
		sessions, err := m.client.ListSessions(m.client.UserID())
		return sessionsLoadedMsg{sessions: sessions, err: err}
	}
}

// deleteSession returns a command that deletes a session from the directory
func (m Model) deleteSession(sessionID string) tea.Cmd {
	return func() tea.Msg {
		err := m.client.DeleteSession(sessionID)
		return sessionDeletedMsg{sessionID: sessionID, err: err}
	}
}

// updateSessionSelection handles updates while the session selector is open
func (m Model) updateSessionSelection(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case sessionsLoadedMsg:
		m.sessionsLoading = false
		if msg.err != nil {
			m.selectingSession = false
			m.err = msg.err
		} else {
			m.sessionsList = msg.sessions
			if m.sessionsCursor >= len(m.sessionsList) {
				m.sessionsCursor = 0
			}
		}

	case sessionDeletedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		// If the open session was deleted, the engine must not keep
		// streaming into it. Hand it a fresh session right away.
		if msg.sessionID == m.controller.SessionID() {
			m.controller.Reset()
			m.selectingSession = false
			return m, m.openSession("")
		}
		m.sessionsLoading = true
		return m, m.loadSessions()

	case engineChangedMsg:
		// Keep draining engine notifications while the selector is up
		return m, m.waitForChange()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.controller.Close()
			return m, tea.Quit

		case "esc":
			m.selectingSession = false
			m.sessionsList = nil
			m.sessionsCursor = 0

		case "up", "k":
			if len(m.sessionsList) > 0 {
				m.sessionsCursor--
				if m.sessionsCursor < 0 {
					m.sessionsCursor = len(m.sessionsList) - 1
				}
			}

		case "down", "j":
			if len(m.sessionsList) > 0 {
				m.sessionsCursor++
				if m.sessionsCursor >= len(m.sessionsList) {
					m.sessionsCursor = 0
				}
			}

		case "n":
			m.selectingSession = false
			m.sessionsList = nil
			m.sessionsCursor = 0
			return m, m.openSession("")

		case "d":
			if len(m.sessionsList) > 0 && m.sessionsCursor < len(m.sessionsList) {
				target := m.sessionsList[m.sessionsCursor]
				return m, m.deleteSession(target.SessionID)
			}

		case "enter":
			if len(m.sessionsList) > 0 && m.sessionsCursor < len(m.sessionsList) {
				selected := m.sessionsList[m.sessionsCursor]
				m.selectingSession = false
				m.sessionsList = nil
				m.sessionsCursor = 0
				m.err = nil
				return m, m.openSession(selected.SessionID)
			}
		}
	}

	return m, nil
}

// renderSessionSelector renders the session picker overlay
func (m Model) renderSessionSelector() string {
	width := m.width - 8
	if width < 40 {
		width = 40
	}

	var content strings.Builder

	title := selectorTitleStyle.Render("💬 Your Conversations")
	if current := m.controller.SessionID(); current != "" {
		title += hintStyle.Render(fmt.Sprintf("  (current: %s)", shortID(current)))
	}
	content.WriteString(title)
	content.WriteString("\n\n")

	if m.sessionsLoading {
		content.WriteString(loadingStyle.Render("  Loading sessions..."))
	} else if len(m.sessionsList) == 0 {
		content.WriteString(hintStyle.Render("  No sessions yet. Press 'n' to start one"))
	} else {
		maxItems := 8
		startIdx := 0
		if m.sessionsCursor >= maxItems {
			startIdx = m.sessionsCursor - maxItems + 1
		}
		endIdx := startIdx + maxItems
		if endIdx > len(m.sessionsList) {
			endIdx = len(m.sessionsList)
		}

		if startIdx > 0 {
			content.WriteString(hintStyle.Render("  ↑ more above"))
			content.WriteString("\n")
		}

		for i := startIdx; i < endIdx; i++ {
			session := m.sessionsList[i]
			cursor := "  "
			nameStyle := selectorItemStyle
			if i == m.sessionsCursor {
				cursor = selectorCursorStyle.Render("▸ ")
				nameStyle = selectorSelectedStyle
			}

			label := session.Title
			if label == "" {
				label = shortID(session.SessionID)
			}

			meta := selectorMetaStyle.Render(fmt.Sprintf(" [%d msgs]", session.MessageCount))
			if !session.CreatedAt.IsZero() {
				meta += hintStyle.Render(" " + session.CreatedAt.Format("Jan 2 15:04"))
			}

			line := fmt.Sprintf("%s%s%s", cursor, nameStyle.Render(label), meta)
			content.WriteString(line)
			content.WriteString("\n")
		}

		if endIdx < len(m.sessionsList) {
			content.WriteString(hintStyle.Render("  ↓ more below"))
			content.WriteString("\n")
		}
	}

	content.WriteString("\n")

	shortcuts := []string{
		statusKeyStyle.Render("↑↓") + statusDescStyle.Render(" Navigate"),
		statusKeyStyle.Render("Enter") + statusDescStyle.Render(" Open"),
		statusKeyStyle.Render("n") + statusDescStyle.Render(" New"),
		statusKeyStyle.Render("d") + statusDescStyle.Render(" Delete"),
		statusKeyStyle.Render("Esc") + statusDescStyle.Render(" Cancel"),
	}
	content.WriteString(strings.Join(shortcuts, "  │  "))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorPrimary).
		Padding(1, 2).
		Width(width)

	return boxStyle.Render(content.String())
}
