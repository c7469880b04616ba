package entries

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/sprout/internal/constants"
	"github.com/julianstephens/sprout/internal/models"
)

type Item struct {
	Entry models.Entry
}

func (i Item) Title() string {
	return fmt.Sprintf("%s %s  %s", i.Entry.Mood, i.Entry.Date, firstLine(i.Entry.Achievements))
}

func (i Item) Description() string {
	desc := "Learned: " + firstLine(i.Entry.Lessons)
	if i.Entry.Challenges != "" {
		desc += " | Faced: " + firstLine(i.Entry.Challenges)
	}
	return desc
}

// FilterValue lets the list's fuzzy filter match on the date and every text field
func (i Item) FilterValue() string {
	return i.Entry.Date + " " + i.Entry.SearchText()
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

// ExportMsg asks the parent model to export the journal to CSV
type ExportMsg struct{}

type KeyMap struct {
	Export key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Export: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "export csv"),
		),
	}
}

type Model struct {
	list list.Model
	keys KeyMap
}

func New(entries []models.Entry, width, height int) Model {
	l := list.New(toItems(entries), list.NewDefaultDelegate(), width, height)
	l.Title = "Entries"
	l.SetShowTitle(false)
	l.SetShowHelp(false) // Help is rendered by the parent model

	keys := DefaultKeyMap()
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Export}
	}

	return Model{list: l, keys: keys}
}

func toItems(entries []models.Entry) []list.Item {
	items := make([]list.Item, len(entries))
	for i, e := range entries {
		items[i] = Item{Entry: e}
	}
	return items
}

// SetEntries replaces the list contents. Entries are shown in the order given.
func (m *Model) SetEntries(entries []models.Entry) {
	m.list.SetItems(toItems(entries))
}

// Filtering reports whether the filter input currently has focus
func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

// Selected returns the highlighted entry
func (m Model) Selected() (models.Entry, bool) {
	i, ok := m.list.SelectedItem().(Item)
	return i.Entry, ok
}

func (m Model) Len() int {
	return len(m.list.Items())
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	if msg, ok := msg.(tea.KeyMsg); ok && !m.Filtering() {
		if key.Matches(msg, m.keys.Export) {
			return m, func() tea.Msg { return ExportMsg{} }
		}
	}

	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 && !m.Filtering() {
		return "\n  No entries yet.\n  Open the Reflect tab and press 'w' to write one."
	}
	view := m.list.View()
	if e, ok := m.Selected(); ok {
		view += "\n" + detail(e)
	}
	return view
}

func detail(e models.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s  (%s)\n", e.Date, e.Mood, e.CreatedAt.Local().Format(constants.TimestampFormat))
	fmt.Fprintf(&b, "Achievements: %s\n", e.Achievements)
	fmt.Fprintf(&b, "Lessons: %s\n", e.Lessons)
	if e.Challenges != "" {
		fmt.Fprintf(&b, "Challenges: %s\n", e.Challenges)
	}
	if e.TomorrowGoals != "" {
		fmt.Fprintf(&b, "Tomorrow: %s\n", e.TomorrowGoals)
	}
	return b.String()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}
