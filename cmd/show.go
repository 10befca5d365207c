package cmd

import (
	"github.com/maneframe/aws-keychain-util/internal/cmdutils"
	"github.com/spf13/cobra"
)

var (
	catCmd = &cobra.Command{
		Use:   "cat <name>",
		Short: "Print the active credential set for a name",
		Long: `Resolves the active credential set for a name - cached role session,
cached MFA session, then the long lived key - and prints it as
aws_access_key_id/aws_secret_access_key lines.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := newStore()
			if err != nil {
				return err
			}
			return cmdutils.ShowCredentials(cmd.OutOrStdout(), store, args[0], cmdutils.FormatCat)
		},
	}

	envCmd = &cobra.Command{
		Use:   "env <name>",
		Short: "Print the active credential set as shell export lines",
		Long:  `Same resolution as cat, rendered as export lines for eval in a shell.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := newStore()
			if err != nil {
				return err
			}
			return cmdutils.ShowCredentials(cmd.OutOrStdout(), store, args[0], cmdutils.FormatEnv)
		},
	}

	credsCmd = &cobra.Command{
		Use:   "creds <name>",
		Short: "Print the active credential set as credential_process JSON",
		Long: `Same resolution as cat, rendered as the JSON payload the AWS CLI expects
from a credential_process entry in ~/.aws/config.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := newStore()
			if err != nil {
				return err
			}
			return cmdutils.ShowCredentials(cmd.OutOrStdout(), store, args[0], cmdutils.FormatProcess)
		},
	}

	shellCmd = &cobra.Command{
		Use:   "shell <name>",
		Short: "Spawn a subshell with the active credential set in the environment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := newStore()
			if err != nil {
				return err
			}
			return cmdutils.RunShell(store, args[0])
		},
	}
)

func init() {
	RootCmd.AddCommand(catCmd)
	RootCmd.AddCommand(envCmd)
	RootCmd.AddCommand(credsCmd)
	RootCmd.AddCommand(shellCmd)
}
