package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/taleyport/internal/version"
)

var (
	versionFormat string
	versionJSON   bool
	versionShort  bool
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print the taleyport version, the commit it was built from, the build date,
the Go toolchain and the platform.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if versionJSON {
			versionFormat = formatJSON
		}
		if err := checkFormat(versionFormat); err != nil {
			return err
		}

		info := version.GetInfo()
		out := cmd.OutOrStdout()
		switch {
		case structured(versionFormat):
			return printStructured(out, versionFormat, info)
		case versionShort:
			fmt.Fprintln(out, info.Version)
		default:
			fmt.Fprintln(out, info.String())
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().StringVar(&versionFormat, "format", formatText, formatUsage)
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "shorthand for --format json")
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "print only the version number")

	rootCmd.AddCommand(versionCmd)
}
