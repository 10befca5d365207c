package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/maneframe/aws-keychain-util/internal/credentialexchange"
	"github.com/maneframe/aws-keychain-util/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	verbose bool
	RootCmd = &cobra.Command{
		Use:   credentialexchange.SELF_NAME,
		Short: "Manage AWS credentials and cached STS sessions in the OS secret store",
		Long: `Manage AWS credentials held in the OS secret store and exchange them for
temporary STS sessions. Resolves the active credential set for a name from
cached role sessions, cached MFA sessions and long lived keys, purging
expired caches as it goes.`,
	}
)

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		util.Exit(err)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}

func initConfig() {
	home, err := os.UserHomeDir()
	cobra.CheckErr(err)

	viper.AddConfigPath(home)
	viper.SetConfigType("yaml")
	viper.SetConfigName(fmt.Sprintf(".%s", credentialexchange.SELF_NAME))

	viper.SetEnvPrefix("AWS_KEYCHAIN")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	util.IsTraceEnabled = verbose

	if err := viper.ReadInConfig(); err == nil {
		util.Traceln("Using config file: %s", viper.ConfigFileUsed())
	}
}
