package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or create the taleyport configuration",
	Long: `Manage the configuration stored at ~/.taleyport/config.yaml.

Values are layered: built-in defaults, the config file, .env files,
TALEYPORT_* environment variables and finally command-line flags.

Examples:
  # Write the effective settings to the config file
  taleyport config init --backend-url http://localhost:5001

  # Show the effective configuration
  taleyport config view

  # Show the configuration file path
  taleyport config path
`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the current settings to the config file",
	Args:  cobra.NoArgs,
	RunE:  withContext(runConfigInit),
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Display the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  withContext(runConfigView),
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the configuration file path",
	Args:  cobra.NoArgs,
	RunE:  withContext(runConfigPath),
}

var (
	configForce       bool
	configShowSecrets bool
)

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing config file")
	configViewCmd.Flags().BoolVar(&configShowSecrets, "show-secrets", false, "print the session cookie instead of redacting it")

	configCmd.AddCommand(configInitCmd, configViewCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func configFilePath(cctx *CommandContext, cmd *cobra.Command) string {
	if p, _ := cmd.Flags().GetString("config"); p != "" {
		return p
	}
	return cctx.Config.ConfigPath()
}

func runConfigInit(cctx *CommandContext, cmd *cobra.Command, args []string) error {
	path := configFilePath(cctx, cmd)
	if err := cctx.Config.Save(path, configForce); err != nil {
		return err
	}
	fmt.Fprintf(cctx.Out, "✓ Wrote configuration to %s\n", path)
	return nil
}

func runConfigView(cctx *CommandContext, cmd *cobra.Command, args []string) error {
	data, err := cctx.Config.YAML(configShowSecrets)
	if err != nil {
		return err
	}
	_, err = cctx.Out.Write(data)
	return err
}

func runConfigPath(cctx *CommandContext, cmd *cobra.Command, args []string) error {
	fmt.Fprintln(cctx.Out, configFilePath(cctx, cmd))
	return nil
}
