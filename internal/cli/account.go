package cli

import (
	stderrors "errors"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/sprout/internal/constants"
	"github.com/julianstephens/sprout/internal/keyring"
)

// readPassword returns flag when set and otherwise prompts without echo
func readPassword(flag string, confirm bool) (string, error) {
	if flag != "" {
		return flag, nil
	}

	var password, again string
	fields := []huh.Field{
		huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&password),
	}
	if confirm {
		fields = append(fields, huh.NewInput().
			Title("Confirm password").
			EchoMode(huh.EchoModePassword).
			Value(&again).
			Validate(func(s string) error {
				if s != password {
					return fmt.Errorf("passwords do not match")
				}
				return nil
			}))
	}
	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return "", err
	}
	return password, nil
}

type SignupCmd struct {
	Username string `arg:"" help:"Username (at least 4 characters)."`
	Password string `help:"Password (at least 6 characters). Prompted for when omitted." env:"SPROUT_PASSWORD"`
}

func (c *SignupCmd) Run(ctx *Context) error {
	password, err := readPassword(c.Password, true)
	if err != nil {
		return err
	}
	user, err := ctx.Accounts.CreateAccount(c.Username, password)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Account created for %s\n", user.Username)
	fmt.Printf("  Log in with: sprout login %s\n", user.Username)
	return nil
}

type LoginCmd struct {
	Username string `arg:"" help:"Username."`
	Password string `help:"Password. Prompted for when omitted." env:"SPROUT_PASSWORD"`

	saveToken func(string) error
}

func (c *LoginCmd) Run(ctx *Context) error {
	password, err := readPassword(c.Password, false)
	if err != nil {
		return err
	}
	user, err := ctx.Accounts.VerifyCredentials(c.Username, password)
	if err != nil {
		return err
	}
	token, sess, err := ctx.Sessions.Issue(user.Username)
	if err != nil {
		return err
	}

	save := c.saveToken
	if save == nil {
		save = keyring.SetToken
	}
	if err := save(token); err != nil {
		fmt.Printf("⚠️  Could not save the session in the OS keyring: %v\n", err)
		fmt.Printf("   Export it instead: export %s=%s\n", TokenEnv, token)
	}

	fmt.Printf("✓ Logged in as %s (session expires %s)\n", sess.Username, sess.ExpiresAt.Local().Format(constants.TimestampFormat))
	return nil
}

type LogoutCmd struct{}

func (c *LogoutCmd) Run(ctx *Context) error {
	if err := keyring.DeleteToken(); err != nil {
		if stderrors.Is(err, keyring.ErrNotFound) {
			fmt.Println("Not logged in.")
			return nil
		}
		return err
	}
	fmt.Println("✓ Logged out")
	return nil
}

type WhoamiCmd struct{}

func (c *WhoamiCmd) Run(ctx *Context) error {
	sess, err := ctx.CurrentSession()
	if err != nil {
		return err
	}
	fmt.Printf("%s (session expires %s)\n", sess.Username, sess.ExpiresAt.Local().Format(constants.TimestampFormat))
	return nil
}
