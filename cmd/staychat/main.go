package main

import (
	"os"

	"github.com/spf13/cobra"

	chatcmd "github.com/safestay/staychat/cmd/staychat/internal/chat"
	"github.com/safestay/staychat/cmd/staychat/internal/login"
	"github.com/safestay/staychat/cmd/staychat/internal/version"
)

func NewStaychatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "staychat",
		Short:   "staychat - Safe Stay chat client",
		Example: "staychat chat",
	}

	cmd.AddCommand(
		login.NewLoginCommand(),
		chatcmd.NewChatCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	cmd := NewStaychatCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
