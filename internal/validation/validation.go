package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/julianstephens/sprout/internal/errors"
	"github.com/julianstephens/sprout/internal/models"
)

// bcrypt rejects passwords longer than 72 bytes
const maxPasswordBytes = 72

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// Credentials is the input to account creation
type Credentials struct {
	Username string `json:"username" validate:"required,min=4,max=64,username"`
	Password string `json:"password" validate:"required,min=6"`
}

// EntryInput is the raw input for a new journal entry
type EntryInput struct {
	Date          string `json:"date" validate:"required,datetime=2006-01-02"`
	Mood          string `json:"mood" validate:"omitempty,mood"`
	Achievements  string `json:"achievements" validate:"required"`
	Lessons       string `json:"lessons" validate:"required"`
	Challenges    string `json:"challenges"`
	TomorrowGoals string `json:"tomorrow_goals"`
}

// Validator checks user input at the core boundary and turns failures into
// validation errors with messages fit for display.
type Validator struct {
	validate *validator.Validate
}

// New creates a new Validator
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails for empty tags or nil funcs
	_ = Register(v)
	return &Validator{validate: v}
}

// Register installs the custom tags and json field naming on v. The HTTP
// layer calls it on gin's validator engine so request binding and the core
// share one rule set.
func Register(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	if err := v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("mood", func(fl validator.FieldLevel) bool {
		_, err := models.ParseMood(fl.Field().String())
		return err == nil
	})
}

// ValidateCredentials checks username and password strength. The username is
// returned trimmed.
func (v *Validator) ValidateCredentials(username, password string) (string, error) {
	in := Credentials{Username: strings.TrimSpace(username), Password: password}
	if err := v.validate.Struct(in); err != nil {
		return "", translate(err)
	}
	if len(in.Password) > maxPasswordBytes {
		return "", errors.Validationf("password must be at most %d bytes", maxPasswordBytes)
	}
	return in.Username, nil
}

// ValidateUsername checks only the username rules
func (v *Validator) ValidateUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if err := v.validate.Var(username, "required,min=4,max=64,username"); err != nil {
		return "", translateVar("username", err)
	}
	return username, nil
}

// ValidateEntry trims the free-text fields, checks required ones and returns
// the normalized input along with the parsed mood.
func (v *Validator) ValidateEntry(in EntryInput) (EntryInput, models.Mood, error) {
	in.Date = strings.TrimSpace(in.Date)
	in.Mood = strings.TrimSpace(in.Mood)
	in.Achievements = strings.TrimSpace(in.Achievements)
	in.Lessons = strings.TrimSpace(in.Lessons)
	in.Challenges = strings.TrimSpace(in.Challenges)
	in.TomorrowGoals = strings.TrimSpace(in.TomorrowGoals)

	if err := v.validate.Struct(in); err != nil {
		return in, "", translate(err)
	}
	mood, err := models.ParseMood(in.Mood)
	if err != nil {
		return in, "", errors.Validation(err.Error())
	}
	in.Mood = string(mood)
	return in, mood, nil
}

func translate(err error) error {
	var fieldErrs validator.ValidationErrors
	if ok := asFieldErrors(err, &fieldErrs); !ok || len(fieldErrs) == 0 {
		return errors.Validation(err.Error())
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, Message(fe.Field(), fe.Tag(), fe.Param()))
	}
	return errors.Validation(strings.Join(msgs, "; "))
}

func translateVar(field string, err error) error {
	var fieldErrs validator.ValidationErrors
	if ok := asFieldErrors(err, &fieldErrs); !ok || len(fieldErrs) == 0 {
		return errors.Validation(err.Error())
	}
	return errors.Validation(Message(field, fieldErrs[0].Tag(), fieldErrs[0].Param()))
}

func asFieldErrors(err error, target *validator.ValidationErrors) bool {
	fieldErrs, ok := err.(validator.ValidationErrors)
	if ok {
		*target = fieldErrs
	}
	return ok
}

// Message renders a single failed rule for display
func Message(field, tag, param string) string {
	label := strings.ReplaceAll(field, "_", " ")
	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", label)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", label, param)
	case "username":
		return "username may only contain letters, digits, '.', '_' and '-' and must start with a letter or digit"
	case "datetime":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format", label)
	case "mood":
		return "mood must be one of 😔 😐 🙂 😊 🤩 or low, meh, okay, good, great"
	default:
		return fmt.Sprintf("%s is invalid", label)
	}
}
