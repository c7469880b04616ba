package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/sprout/internal/constants"
	"github.com/julianstephens/sprout/internal/models"
)

func notBlank(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s cannot be empty", field)
		}
		return nil
	}
}

// NewLoginForm creates the form shown before a session exists
func NewLoginForm(fm *LoginFormModel) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Welcome to sprout").
				Options(
					huh.NewOption("Log in", modeLogin),
					huh.NewOption("Create an account", modeSignup),
				).
				Value(&fm.Mode),
			huh.NewInput().
				Title("Username").
				Value(&fm.Username).
				Validate(notBlank("username")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&fm.Password).
				Validate(notBlank("password")),
		),
	).WithTheme(huh.ThemeDracula())
}

// NewReflectForm creates the daily reflection form
func NewReflectForm(fm *ReflectFormModel) *huh.Form {
	moods := make([]huh.Option[string], len(models.Moods))
	for i, mood := range models.Moods {
		moods[i] = huh.NewOption(fmt.Sprintf("%s %s", mood, mood.Name()), string(mood))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Date (YYYY-MM-DD)").
				Value(&fm.Date).
				Validate(func(s string) error {
					if _, err := time.Parse(constants.DateFormat, strings.TrimSpace(s)); err != nil {
						return fmt.Errorf("invalid date format, use YYYY-MM-DD")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("How are you feeling?").
				Options(moods...).
				Value(&fm.Mood),
		),
		huh.NewGroup(
			huh.NewText().
				Title("What did you achieve today?").
				Value(&fm.Achievements).
				Validate(notBlank("achievements")),
			huh.NewText().
				Title("What did you learn?").
				Value(&fm.Lessons).
				Validate(notBlank("lessons")),
			huh.NewText().
				Title("What challenges did you face?").
				Value(&fm.Challenges),
			huh.NewText().
				Title("What will you work on tomorrow?").
				Value(&fm.TomorrowGoals),
		),
	).WithTheme(huh.ThemeDracula())
}
