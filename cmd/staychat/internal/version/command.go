package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/safestay/staychat/cmd/staychat/internal"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print staychat version",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("staychat %s\n", internal.GetVersion())
		},
	}
}
