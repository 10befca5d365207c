package cmd

import (
	"github.com/maneframe/aws-keychain-util/internal/cmdutils"
	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all store entries with their record type and expiry state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := newStore()
		if err != nil {
			return err
		}
		return cmdutils.ListEntries(cmd.OutOrStdout(), store)
	},
}

func init() {
	RootCmd.AddCommand(lsCmd)
}
