package cmd

import (
	"github.com/maneframe/aws-keychain-util/internal/cmdutils"
	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Remove the currently active entry for a name",
	Long: `Removes whatever resolution currently returns for <name>: the live session
pair when one is cached, otherwise the long lived credential itself.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := newStore()
		if err != nil {
			return err
		}
		return cmdutils.Remove(store, args[0])
	},
}

func init() {
	RootCmd.AddCommand(rmCmd)
}
