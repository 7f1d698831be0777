package env

import (
	"fmt"
	"github.com/ValentinKolb/envstore/cmd/util"
	"github.com/ValentinKolb/envstore/lib/common"
	envstore "github.com/ValentinKolb/envstore/lib/env"
	"github.com/ValentinKolb/envstore/lib/env/backend"
	"github.com/spf13/cobra"
	"strings"
)

var (
	printCmd = &cobra.Command{
		Use:   "print [name...]",
		Short: "Prints all variables or the given ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, name := range environment.Names() {
					value, _ := environment.Get(name)
					fmt.Fprintf(out, "%s=%s\n", name, value)
				}
				info := environment.Info()
				fmt.Fprintf(out, "\nEnvironment size: %d/%d bytes\n", info.Used, info.Capacity)
				return nil
			}

			var missing []string
			for _, name := range args {
				value, ok := environment.Get(name)
				if !ok {
					missing = append(missing, name)
					continue
				}
				fmt.Fprintf(out, "%s=%s\n", name, value)
			}
			if len(missing) > 0 {
				return fmt.Errorf("not defined: %s", strings.Join(missing, ", "))
			}
			return nil
		},
	}
	grepCmd = &cobra.Command{
		Use:   "grep [-n | -v | -b] [-e] pattern...",
		Short: "Searches variables by name and/or value",
		Long: `Prints the variables where any pattern matches the name or the value
(-b, default), only the name (-n) or only the value (-v). Patterns are
substrings, with -e regular expressions. The exit status is non-zero if
nothing matches.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := envstore.GrepOptions{Target: envstore.GrepBoth}
			selected := 0
			for flag, target := range map[string]envstore.GrepTarget{
				"name":  envstore.GrepName,
				"value": envstore.GrepValue,
				"both":  envstore.GrepBoth,
			} {
				if set, _ := cmd.Flags().GetBool(flag); set {
					opts.Target = target
					selected++
				}
			}
			if selected > 1 {
				return fmt.Errorf("only one of -n, -v or -b allowed")
			}
			opts.Regex, _ = cmd.Flags().GetBool("regex")

			records, err := environment.Grep(opts, args...)
			if err != nil {
				return err
			}
			for _, r := range records {
				fmt.Fprintln(cmd.OutOrStdout(), r.String())
			}
			if len(records) == 0 {
				cmd.SilenceErrors = true
				return fmt.Errorf("no match")
			}
			return nil
		},
	}
	setCmd = &cobra.Command{
		Use:   "set [name] [value...]",
		Short: "Sets a variable, without value the variable is deleted",
		Long:  "Sets a variable. Multiple value arguments are joined with a single space. Without value the variable is deleted.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			value := strings.Join(args[1:], " ")
			if err := environment.Set(name, value); err != nil {
				return err
			}
			return saveIfRequested(cmd)
		},
	}
	deleteCmd = &cobra.Command{
		Use:   "delete [name...]",
		Short: "Deletes variables",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range args {
				if err := environment.Unset(name); err != nil {
					return err
				}
			}
			return saveIfRequested(cmd)
		},
	}
	existsCmd = &cobra.Command{
		Use:   "exists [name]",
		Short: "Checks if a variable exists (exit status 0 if it does)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !environment.Exists(args[0]) {
				cmd.SilenceErrors = true
				return fmt.Errorf("%s does not exist", args[0])
			}
			return nil
		},
	}
	saveCmd = &cobra.Command{
		Use:   "save",
		Short: "Saves the environment to persistent storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			if to, _ := cmd.Flags().GetString("to"); to != "" {
				if err := environment.Select(backend.Location(to)); err != nil {
					return err
				}
			}
			return saveEnvironment(cmd)
		},
	}
	loadCmd = &cobra.Command{
		Use:   "load",
		Short: "Loads the environment from persistent storage and reports where from",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			err := environment.Reload()
			if common.IsCode(err, common.RetCNoValidCopy) {
				fmt.Fprintln(out, "No valid environment found, using default environment")
				cmd.SilenceErrors = true
				return err
			}
			if err != nil {
				return err
			}
			info := environment.Info()
			fmt.Fprintf(out, "Loading Environment from %s... OK (%s)\n", info.LoadedFrom, info.Valid)
			return nil
		},
	}
	eraseCmd = &cobra.Command{
		Use:   "erase",
		Short: "Erases all copies of the environment on the save target",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "Erasing Environment on %s... ", environment.Target())
			if err := environment.Erase(); err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "FAILED")
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
	defaultCmd = &cobra.Command{
		Use:   "default (-a | name...)",
		Short: "Resets the whole environment or the given variables to their defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			switch {
			case all && len(args) == 0:
				fmt.Fprintln(cmd.OutOrStdout(), "## Resetting to default environment")
				if err := environment.SetDefault(); err != nil {
					return err
				}
			case !all && len(args) > 0:
				if err := environment.SetDefaultVars(args...); err != nil {
					return err
				}
			default:
				return fmt.Errorf("either -a or a list of variables is required")
			}
			return saveIfRequested(cmd)
		},
	}
	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Shows the state of the environment",
		Long: `Shows the state of the environment.

With -d or -p the command evaluates whether the default environment is used or
whether the environment can be persisted; the exit status is non-zero if one of
the conditions does not hold.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			isDefault, _ := cmd.Flags().GetBool("default")
			persist, _ := cmd.Flags().GetBool("persist")
			quiet, _ := cmd.Flags().GetBool("quiet")
			withMetrics, _ := cmd.Flags().GetBool("metrics")
			info := environment.Info()

			if !isDefault && !persist {
				fmt.Fprint(out, info.String())
				if withMetrics {
					fmt.Fprintln(out)
					envstore.WriteMetrics(out)
				}
				return nil
			}

			ok := true
			if isDefault {
				if info.UseDefault {
					printUnlessQuiet(cmd, quiet, "Default environment is used")
				} else {
					printUnlessQuiet(cmd, quiet, "Environment was loaded from persistent storage")
					ok = false
				}
			}
			if persist {
				if info.CanPersist {
					printUnlessQuiet(cmd, quiet, "Environment can be persisted")
				} else {
					printUnlessQuiet(cmd, quiet, "Environment cannot be persisted")
					ok = false
				}
			}
			if !ok {
				cmd.SilenceErrors = true
				return fmt.Errorf("condition not met")
			}
			return nil
		},
	}
)

func init() {
	saveCmd.Flags().String("to", "", util.WrapString("Location to save to (changes the save target)"))

	grepCmd.Flags().BoolP("name", "n", false, util.WrapString("Match names only"))
	grepCmd.Flags().BoolP("value", "v", false, util.WrapString("Match values only"))
	grepCmd.Flags().BoolP("both", "b", false, util.WrapString("Match names and values"))
	grepCmd.Flags().BoolP("regex", "e", false, util.WrapString("Patterns are regular expressions"))

	defaultCmd.Flags().BoolP("all", "a", false, util.WrapString("Reset the whole environment"))

	infoCmd.Flags().BoolP("default", "d", false, util.WrapString("Evaluate whether the default environment is used"))
	infoCmd.Flags().BoolP("persist", "p", false, util.WrapString("Evaluate whether the environment can be persisted"))
	infoCmd.Flags().BoolP("quiet", "q", false, util.WrapString("Only set the exit status (with -d or -p)"))
	infoCmd.Flags().Bool("metrics", false, util.WrapString("Append the metrics in Prometheus text format"))
}

// saveEnvironment saves and reports like saveenv does
func saveEnvironment(cmd *cobra.Command) error {
	fmt.Fprintf(cmd.OutOrStdout(), "Saving Environment to %s... ", environment.Target())
	if err := environment.Save(); err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), "FAILED")
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "OK")
	return nil
}

func printUnlessQuiet(cmd *cobra.Command, quiet bool, msg string) {
	if !quiet {
		fmt.Fprintln(cmd.OutOrStdout(), msg)
	}
}
