package cmd

import (
	"github.com/maneframe/aws-keychain-util/internal/cmdutils"
	"github.com/spf13/cobra"
)

var mfaCmd = &cobra.Command{
	Use:   "mfa <name> <mfa-code>",
	Short: "Exchange an MFA code for a cached 12 hour session token",
	Long: `Calls GetSessionToken with the long lived key for <name> and the code from
its registered MFA device, then caches the issued session. Any previously
cached role or MFA session for <name> is removed first, so a refused
exchange leaves the name logged out of any session.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := newStore()
		if err != nil {
			return err
		}
		return cmdutils.MFALogin(cmd.Context(), cmd.OutOrStdout(), store, stsClientFactory(), args[0], args[1])
	},
}

func init() {
	RootCmd.AddCommand(mfaCmd)
}
