package cmd

import (
	"fmt"
	"github.com/ValentinKolb/envstore/cmd/env"
	"github.com/ValentinKolb/envstore/cmd/util"
	"github.com/spf13/cobra"
	"os"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "envstore",
		Short: "crash-safe firmware environment store",
		Long: fmt.Sprintf(`envstore (v%s)

A persistent store of named text variables (boot arguments, network
addresses, boot order) with checksummed, optionally redundant copies that
survive interrupted writes. Configuration is read from flags, a config file
and ENVSTORE_<FLAG> environment variables (e.g. ENVSTORE_LOCATIONS=flash,bolt).`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of envstore",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("envstore v%s\n", Version)
		},
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(env.Commands...)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	util.SetupEnvFlags(RootCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
