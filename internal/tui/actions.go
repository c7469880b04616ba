package tui

import (
	"bytes"
	"fmt"
	"time"

	"github.com/julianstephens/sprout/internal/constants"
	"github.com/julianstephens/sprout/internal/export"
	"github.com/julianstephens/sprout/internal/logger"
	"github.com/julianstephens/sprout/internal/models"
	"github.com/julianstephens/sprout/internal/storage"
	"github.com/julianstephens/sprout/internal/validation"
)

func (m *Model) startLogin(username string) {
	m.loginForm = &LoginFormModel{Mode: modeLogin, Username: username}
	m.form = NewLoginForm(m.loginForm)
	m.state = constants.StateLogin
}

func (m *Model) startReflection() {
	m.reflectForm = &ReflectFormModel{
		Date: time.Now().Format(constants.DateFormat),
		Mood: string(models.DefaultMood),
	}
	m.form = NewReflectForm(m.reflectForm)
	m.err = nil
	m.state = constants.StateWriting
}

// login authenticates with the login form's values, creating the account
// first when the form asked for a signup.
func (m *Model) login() error {
	fm := m.loginForm
	if fm.Mode == modeSignup {
		if _, err := m.deps.Accounts.CreateAccount(fm.Username, fm.Password); err != nil {
			return err
		}
	}

	user, err := m.deps.Accounts.VerifyCredentials(fm.Username, fm.Password)
	if err != nil {
		return err
	}
	token, sess, err := m.deps.Sessions.Issue(user.Username)
	if err != nil {
		return err
	}
	if m.deps.OnLogin != nil {
		if err := m.deps.OnLogin(token); err != nil {
			// The session still works for this run
			logger.Warn("Failed to persist session token", "error", err)
		}
	}

	m.session = &sess
	m.form = nil
	m.loginForm = nil
	m.err = nil
	m.state = constants.StateLearn
	m.reload()
	return nil
}

// saveReflection appends the reflect form's values to the journal
func (m *Model) saveReflection() error {
	fm := m.reflectForm
	entry, summary, err := m.deps.Journal.Add(*m.session, validation.EntryInput{
		Date:          fm.Date,
		Mood:          fm.Mood,
		Achievements:  fm.Achievements,
		Lessons:       fm.Lessons,
		Challenges:    fm.Challenges,
		TomorrowGoals: fm.TomorrowGoals,
	})
	if err != nil {
		return err
	}

	m.progressModel.SetSummary(summary)
	m.reload()
	m.form = nil
	m.reflectForm = nil
	m.err = nil
	m.status = fmt.Sprintf("Saved your reflection for %s. Keep growing!", entry.Date)
	m.state = constants.StateReflect
	return nil
}

// exportCSV writes the journal in storage order to the export path
func (m *Model) exportCSV() error {
	list, err := m.deps.Journal.Entries(*m.session)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, list); err != nil {
		return err
	}
	if err := storage.WriteFileAtomic(m.deps.ExportPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	m.status = fmt.Sprintf("Exported %d entries to %s", len(list), m.deps.ExportPath)
	return nil
}
