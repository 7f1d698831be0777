package env

import (
	"github.com/ValentinKolb/envstore/cmd/util"
	"github.com/ValentinKolb/envstore/lib/common"
	envstore "github.com/ValentinKolb/envstore/lib/env"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var Logger = logger.GetLogger("cli")

var (
	environment *envstore.Environment

	// fs holds the images of file backed locations and export/import files
	fs = afero.NewOsFs()

	// Commands are the environment commands, each runs on a freshly loaded
	// environment
	Commands = []*cobra.Command{
		printCmd,
		grepCmd,
		setCmd,
		deleteCmd,
		existsCmd,
		saveCmd,
		loadCmd,
		eraseCmd,
		defaultCmd,
		infoCmd,
		exportCmd,
		importCmd,
	}
)

func init() {
	for _, cmd := range Commands {
		cmd.PreRunE = openEnvironment
		cmd.PostRunE = closeEnvironment
		cmd.SilenceUsage = true
	}

	// commands that change the table can persist right away
	for _, cmd := range []*cobra.Command{setCmd, deleteCmd, defaultCmd, importCmd} {
		cmd.Flags().Bool("save", false, util.WrapString("Save the environment after the change"))
	}
}

// openEnvironment reads the configuration and loads the environment
func openEnvironment(cmd *cobra.Command, _ []string) error {
	// left open by a command that failed
	_ = closeEnvironment(cmd, nil)

	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	conf, err := util.GetEnvConfig()
	if err != nil {
		return err
	}
	if err := common.InitLoggers(conf); err != nil {
		return err
	}
	Logger.Debugf("configuration:%s", conf.String())

	environment, err = util.OpenEnvironment(conf, fs)
	return err
}

func closeEnvironment(_ *cobra.Command, _ []string) error {
	if environment == nil {
		return nil
	}
	err := environment.Close()
	environment = nil
	return err
}

// saveIfRequested saves the environment if the --save flag is set
func saveIfRequested(cmd *cobra.Command) error {
	if save, _ := cmd.Flags().GetBool("save"); !save {
		return nil
	}
	return saveEnvironment(cmd)
}
