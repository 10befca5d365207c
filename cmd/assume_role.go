package cmd

import (
	"github.com/maneframe/aws-keychain-util/internal/cmdutils"
	"github.com/spf13/cobra"
)

var assumeRoleCmd = &cobra.Command{
	Use:   "assume-role <name> <role-name|none> [mfa-code]",
	Short: "Assume a stored role definition and cache the 1 hour session",
	Long: `Calls AssumeRole with the long lived key for <name> against the stored
role definition <role-name>, passing the MFA code when supplied, and caches
the issued session. Any previously cached role or MFA session for <name> is
removed first. Passing "none" as the role name only performs that removal,
logging the name out of any assumed role.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := newStore()
		if err != nil {
			return err
		}
		mfaCode := ""
		if len(args) == 3 {
			mfaCode = args[2]
		}
		return cmdutils.AssumeRole(cmd.Context(), cmd.OutOrStdout(), store, stsClientFactory(), args[0], args[1], mfaCode)
	},
}

func init() {
	RootCmd.AddCommand(assumeRoleCmd)
}
