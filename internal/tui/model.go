package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/sprout/internal/auth"
	"github.com/julianstephens/sprout/internal/constants"
	"github.com/julianstephens/sprout/internal/journal"
	"github.com/julianstephens/sprout/internal/models"
	"github.com/julianstephens/sprout/internal/prompts"
	"github.com/julianstephens/sprout/internal/tui/components/entries"
	"github.com/julianstephens/sprout/internal/tui/components/progress"
)

const (
	modeLogin  = "login"
	modeSignup = "signup"
)

type LoginFormModel struct {
	Mode     string
	Username string
	Password string
}

type ReflectFormModel struct {
	Date          string
	Mood          string
	Achievements  string
	Lessons       string
	Challenges    string
	TomorrowGoals string
}

// Deps wires the TUI to the core services. Session is nil when the user
// has not logged in yet; OnLogin, if set, receives the token of a fresh
// login so the caller can persist it.
type Deps struct {
	Accounts   *auth.Accounts
	Sessions   *auth.Sessions
	Journal    *journal.Service
	Session    *auth.Session
	OnLogin    func(token string) error
	ExportPath string
	Seed       int64
}

type Model struct {
	deps          Deps
	session       *auth.Session
	picker        *prompts.Picker
	state         constants.SessionState
	keys          KeyMap
	help          help.Model
	form          *huh.Form
	loginForm     *LoginFormModel
	reflectForm   *ReflectFormModel
	entriesModel  entries.Model
	progressModel progress.Model
	challenge     string
	quote         prompts.Quote
	status        string
	err           error
	quitting      bool
	width         int
	height        int
}

func NewModel(deps Deps) Model {
	seed := deps.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if deps.ExportPath == "" {
		deps.ExportPath = constants.ExportFileName
	}
	picker := prompts.NewPicker(seed)

	m := Model{
		deps:          deps,
		session:       deps.Session,
		picker:        picker,
		state:         constants.StateLearn,
		keys:          DefaultKeyMap(),
		help:          help.New(),
		entriesModel:  entries.New(nil, 0, 0),
		progressModel: progress.New(models.Summary{}),
		challenge:     picker.Challenge(),
		quote:         picker.Quote(),
	}

	if m.session == nil {
		m.startLogin("")
	} else {
		m.reload()
	}
	return m
}

func (m Model) Init() tea.Cmd {
	if m.form != nil {
		return m.form.Init()
	}
	return nil
}

// Session returns the logged in session, if any
func (m Model) Session() *auth.Session {
	return m.session
}

func (m Model) ShortHelp() []key.Binding {
	keys := []key.Binding{m.keys.Tab, m.keys.Quit, m.keys.Help}
	switch m.state {
	case constants.StateLearn:
		keys = append(keys, m.keys.NewQuote)
	case constants.StateChallenge:
		keys = append(keys, m.keys.NewChallenge)
	case constants.StateReflect:
		keys = append(keys, m.keys.Write)
	case constants.StateEntries:
		keys = append(keys, m.keys.Filter, m.keys.Export)
	case constants.StateProgress:
		keys = append(keys, m.keys.Refresh)
	}
	return keys
}

func (m Model) FullHelp() [][]key.Binding {
	global := []key.Binding{m.keys.Tab, m.keys.ShiftTab, m.keys.Quit, m.keys.Help}
	navigation := []key.Binding{m.keys.Up, m.keys.Down, m.keys.Filter}
	actions := []key.Binding{m.keys.NewQuote, m.keys.NewChallenge, m.keys.Write, m.keys.Export, m.keys.Refresh}
	return [][]key.Binding{global, navigation, actions}
}

// reload pulls the session user's entries and a freshly recomputed summary,
// picking up anything written by other sessions.
func (m *Model) reload() {
	if m.session == nil {
		return
	}
	list, err := m.deps.Journal.List(*m.session, journal.Query{})
	if err != nil {
		m.err = err
		return
	}
	m.entriesModel.SetEntries(list)

	summary, err := m.deps.Journal.Refresh(*m.session)
	if err != nil {
		m.err = err
		return
	}
	m.progressModel.SetSummary(summary)
}
