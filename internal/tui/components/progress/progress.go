package progress

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/sprout/internal/models"
)

var (
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(1, 2).
			Width(24).
			Align(lipgloss.Center)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

type Model struct {
	Summary models.Summary
	width   int
}

func New(summary models.Summary) Model {
	return Model{Summary: summary}
}

func (m *Model) SetSummary(summary models.Summary) {
	m.Summary = summary
}

func (m *Model) SetSize(width, height int) {
	m.width = width
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

func card(value, label string) string {
	return cardStyle.Render(valueStyle.Render(value) + "\n" + labelStyle.Render(label))
}

func (m Model) View() string {
	last := m.Summary.LastActive()
	if last == "" {
		last = "never"
	}

	cards := []string{
		card(fmt.Sprintf("%d", m.Summary.DaysActive), "Days Active"),
		card(fmt.Sprintf("%d", m.Summary.ChallengesCompleted), "Challenges Completed"),
		card(last, "Last Active"),
	}

	// Stack the cards when the terminal is too narrow to fit them side by side
	if m.width > 0 && m.width < 3*lipgloss.Width(cards[0]) {
		return lipgloss.JoinVertical(lipgloss.Left, cards...)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}
