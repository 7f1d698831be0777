package env

import (
	"bytes"
	"fmt"
	"github.com/ValentinKolb/envstore/cmd/util"
	envstore "github.com/ValentinKolb/envstore/lib/env"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	exportCmd = &cobra.Command{
		Use:   "export [-t | -b | -c] [file] [name...]",
		Short: "Exports the environment to a file (or stdout)",
		Long: `Exports the environment to a file, "-" or no file writes to stdout.

Formats:
  -t  text, one name=value line per variable (default)
  -b  binary, NUL separated records with an extra NUL at the end
  -c  checksum protected, a CRC-32 followed by the payload (size - 4 bytes)

If names are given only those variables are exported.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := formatFlag(cmd)
			if err != nil {
				return err
			}

			file := "-"
			if len(args) > 0 {
				file, args = args[0], args[1:]
			}

			data, err := environment.Export(format, args...)
			if err != nil {
				return err
			}
			if file == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := afero.WriteFile(fs, file, data, 0644); err != nil {
				return err
			}
			Logger.Infof("exported %d bytes (%s) to %s", len(data), format, file)
			return nil
		},
	}
	importCmd = &cobra.Command{
		Use:   "import [-t | -b | -c] [-d] [-r] file [name...]",
		Short: "Imports variables from a file (or stdin)",
		Long: `Imports variables from a file, "-" reads stdin.

Formats are the same as for export. Variables with an empty value are deleted.
With -d the current environment is cleared first; if names are given, only
those of them missing from the input are deleted.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := formatFlag(cmd)
			if err != nil {
				return err
			}
			del, _ := cmd.Flags().GetBool("delete")
			crlf, _ := cmd.Flags().GetBool("crlf")

			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}

			opts := envstore.ImportOptions{
				Format: format,
				Clear:  del,
				CRLF:   crlf,
				Names:  args[1:],
			}
			if err := environment.Import(data, opts); err != nil {
				return err
			}
			return saveIfRequested(cmd)
		},
	}
)

func init() {
	for _, cmd := range []*cobra.Command{exportCmd, importCmd} {
		cmd.Flags().BoolP("text", "t", false, util.WrapString("Text format"))
		cmd.Flags().BoolP("binary", "b", false, util.WrapString("Binary format"))
		cmd.Flags().BoolP("checksum", "c", false, util.WrapString("Checksum protected format"))
	}
	importCmd.Flags().BoolP("delete", "d", false, util.WrapString("Delete the existing variables before importing"))
	importCmd.Flags().BoolP("crlf", "r", false, util.WrapString("Handle CRLF like LF (text format only)"))
}

// formatFlag returns the format selected by -t, -b or -c
func formatFlag(cmd *cobra.Command) (envstore.Format, error) {
	format := envstore.FormatText
	selected := 0
	for flag, f := range map[string]envstore.Format{
		"text":     envstore.FormatText,
		"binary":   envstore.FormatBinary,
		"checksum": envstore.FormatChecksum,
	} {
		if set, _ := cmd.Flags().GetBool(flag); set {
			format = f
			selected++
		}
	}
	if selected > 1 {
		return format, fmt.Errorf("only one of -t, -b or -c allowed")
	}
	return format, nil
}

// readInput reads a file, "-" is stdin
func readInput(cmd *cobra.Command, file string) ([]byte, error) {
	if file != "-" {
		return afero.ReadFile(fs, file)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(cmd.InOrStdin()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
