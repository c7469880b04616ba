package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/sprout/internal/constants"
	"github.com/julianstephens/sprout/internal/tui/components/entries"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.entriesModel.SetSize(msg.Width-4, max(msg.Height-16, 5))
		m.progressModel.SetSize(msg.Width-4, msg.Height-4)
	}

	switch m.state {
	case constants.StateLogin:
		return m.updateLogin(msg)
	case constants.StateWriting:
		return m.updateWriting(msg)
	}

	switch msg := msg.(type) {
	case entries.ExportMsg:
		if err := m.exportCSV(); err != nil {
			m.err = err
		}
		return m, nil

	case tea.KeyMsg:
		// While the entry filter has focus every key belongs to it
		if m.state == constants.StateEntries && m.entriesModel.Filtering() {
			break
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Tab):
			m.switchTab(1)
			return m, nil
		case key.Matches(msg, m.keys.ShiftTab):
			m.switchTab(-1)
			return m, nil
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}

		switch m.state {
		case constants.StateLearn:
			if key.Matches(msg, m.keys.NewQuote) {
				m.quote = m.picker.Quote()
			}
			return m, nil
		case constants.StateChallenge:
			if key.Matches(msg, m.keys.NewChallenge) {
				m.challenge = m.picker.NextChallenge(m.challenge)
			}
			return m, nil
		case constants.StateReflect:
			if key.Matches(msg, m.keys.Write) {
				m.startReflection()
				return m, m.form.Init()
			}
			return m, nil
		case constants.StateProgress:
			if key.Matches(msg, m.keys.Refresh) {
				m.err = nil
				m.status = ""
				m.reload()
			}
			return m, nil
		}
	}

	if m.state == constants.StateEntries {
		var cmd tea.Cmd
		m.entriesModel, cmd = m.entriesModel.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) switchTab(step int) {
	n := len(constants.TabTitles)
	m.state = constants.SessionState((int(m.state) + step + n) % n)
	m.status = ""
	m.err = nil
}

func (m Model) updateLogin(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyCtrlC {
		m.quitting = true
		return m, tea.Quit
	}

	var cmds []tea.Cmd
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	cmds = append(cmds, cmd)

	switch m.form.State {
	case huh.StateCompleted:
		if err := m.login(); err != nil {
			m.err = err
			// Start over keeping the username so only the password is retyped
			username := m.loginForm.Username
			m.startLogin(username)
			return m, m.form.Init()
		}
		return m, nil
	case huh.StateAborted:
		m.quitting = true
		return m, tea.Quit
	}
	return m, tea.Batch(cmds...)
}

func (m Model) updateWriting(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, m.keys.Back) {
		m.form = nil
		m.reflectForm = nil
		m.state = constants.StateReflect
		return m, nil
	}

	var cmds []tea.Cmd
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	cmds = append(cmds, cmd)

	switch m.form.State {
	case huh.StateCompleted:
		if err := m.saveReflection(); err != nil {
			// Rebuild over the same values so nothing typed is lost
			m.err = err
			m.form = NewReflectForm(m.reflectForm)
			return m, m.form.Init()
		}
		return m, nil
	case huh.StateAborted:
		m.form = nil
		m.reflectForm = nil
		m.state = constants.StateReflect
		return m, nil
	}
	return m, tea.Batch(cmds...)
}
