package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/maneframe/aws-keychain-util/internal/util"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	addAccessKeyID string
	addMfaArn      string

	addCmd = &cobra.Command{
		Use:   "add <name>",
		Short: "Store a long lived credential under a name",
		Long: `Stores a long lived access key pair under <name>. The secret access key is
prompted for without echo. The MFA device ARN is optional and is only
needed for the mfa and MFA protected assume-role flows.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := newStore()
			if err != nil {
				return err
			}
			secret, err := promptSecret("Secret access key: ")
			if err != nil {
				return err
			}
			if _, err := store.Create(args[0], addAccessKeyID, secret, addMfaArn); err != nil {
				return err
			}
			util.Writeln("stored credential %s", args[0])
			return nil
		},
	}

	addRoleArn         string
	addRoleSessionName string

	addRoleCmd = &cobra.Command{
		Use:   "add-role <name> <role-name>",
		Short: "Store a role definition for a name",
		Long: `Stores a role definition under <name>, to be assumed later with
assume-role <name> <role-name>. The session name defaults to <role-name>.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := newStore()
			if err != nil {
				return err
			}
			sessionName := addRoleSessionName
			if sessionName == "" {
				sessionName = args[1]
			}
			label := fmt.Sprintf("%s role %s", args[0], args[1])
			if _, err := store.Create(label, sessionName, "", addRoleArn); err != nil {
				return err
			}
			util.Writeln("stored role %s", label)
			return nil
		},
	}
)

func init() {
	addCmd.PersistentFlags().StringVarP(&addAccessKeyID, "access-key-id", "k", "", "Access key id of the long lived credential")
	addCmd.MarkPersistentFlagRequired("access-key-id")
	addCmd.PersistentFlags().StringVarP(&addMfaArn, "mfa-arn", "m", "", "ARN of the registered MFA device, if any")
	RootCmd.AddCommand(addCmd)

	addRoleCmd.PersistentFlags().StringVarP(&addRoleArn, "arn", "a", "", "ARN of the role to assume")
	addRoleCmd.MarkPersistentFlagRequired("arn")
	addRoleCmd.PersistentFlags().StringVarP(&addRoleSessionName, "session-name", "n", "", "Role session name passed to STS")
	RootCmd.AddCommand(addRoleCmd)
}

// promptSecret reads a secret from the terminal without echo, falling
// back to a plain line read when stdin is not a terminal (piped input).
func promptSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		util.Write(prompt)
		raw, err := term.ReadPassword(fd)
		util.Writeln("")
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
