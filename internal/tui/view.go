package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/sprout/internal/constants"
	"github.com/julianstephens/sprout/internal/errors"
	"github.com/julianstephens/sprout/internal/prompts"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	if m.state == constants.StateLogin {
		return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
			successStyle.Render("🌱 sprout"),
			mutedStyle.Render("A journal for a growth mindset"),
			"",
			m.form.View(),
			m.viewStatus(),
		))
	}

	var content string

	switch m.state {
	case constants.StateLearn:
		content = m.viewLearn()
	case constants.StateChallenge:
		content = m.viewChallenge()
	case constants.StateReflect:
		content = m.viewReflect()
	case constants.StateEntries:
		content = m.entriesModel.View()
	case constants.StateProgress:
		content = m.progressModel.View()
	case constants.StateWriting:
		content = m.form.View()
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewTabs(),
		docStyle.Render(content),
		m.viewStatus(),
		m.help.View(m),
	)
}

func (m Model) viewTabs() string {
	var tabs []string
	for i, title := range constants.TabTitles {
		active := m.state == constants.SessionState(i) ||
			(m.state == constants.StateWriting && constants.SessionState(i) == constants.StateReflect)
		if active {
			tabs = append(tabs, activeTabStyle.Render(title))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(title))
		}
	}
	if m.session != nil {
		tabs = append(tabs, mutedStyle.Render("  "+m.session.Username))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewStatus() string {
	if m.err != nil {
		return dangerStyle.Render(errors.Format(m.err))
	}
	if m.status != "" {
		return successStyle.Render(m.status)
	}
	return ""
}

func bullets(items []string) string {
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "• %s\n", item)
	}
	return b.String()
}

func (m Model) viewLearn() string {
	fixed := columnStyle.Render(dangerStyle.Render("Fixed Mindset") + "\n\n" + bullets(prompts.FixedMindset))
	growth := columnStyle.Render(successStyle.Render("Growth Mindset") + "\n\n" + bullets(prompts.GrowthMindset))

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, fixed, growth),
		"",
		bullets(prompts.BrainPlasticity),
		mutedStyle.Render(fmt.Sprintf("%q - %s", m.quote.Text, m.quote.Author)),
	)
}

func (m Model) viewChallenge() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		"Today's Growth Challenge",
		"",
		challengeStyle.Render(m.challenge),
		"",
		mutedStyle.Render("Press 'n' for a different challenge. Record how it went in the Reflect tab."),
	)
}

func (m Model) viewReflect() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		"Daily Reflection",
		"",
		"Take a moment to note what you achieved, what you learned and what is next.",
		"",
		mutedStyle.Render("Press 'w' to write today's reflection."),
	)
}
