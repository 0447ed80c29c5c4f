package login

import (
	"context"
	"fmt"
	"strings"

	"github.com/chzyer/readline"

	"github.com/safestay/staychat/cmd/staychat/internal"
	"github.com/safestay/staychat/pkg/api"
)

func loginCmd(email string) error {
	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	rl, err := readline.New("email: ")
	if err != nil {
		return err
	}
	defer rl.Close()

	if email == "" {
		email, err = rl.Readline()
		if err != nil {
			return err
		}
		email = strings.TrimSpace(email)
	}

	password, err := rl.ReadPassword("password: ")
	if err != nil {
		return err
	}

	client := api.NewClient(api.Config{
		BaseURL: cfg.Server.BaseURL,
		Timeout: cfg.HTTPTimeout(),
	})

	result, err := client.Login(context.Background(), email, string(password))
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	cfg.Auth.Token = result.Token
	cfg.Auth.User = &result.User
	if err := internal.SaveConfig(cfg); err != nil {
		return fmt.Errorf("error saving config: %w", err)
	}

	fmt.Printf("✓ Signed in as %s (%s)\n", result.User.Name, result.User.Role)
	return nil
}
