package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abelbrown/geocomplete/internal/config"
)

var (
	configForce  bool
	configAPIKey string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Long: `Writes config.toml with every default filled in. The file is created
with mode 0600 because it holds the API key.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long:  `Prints the merged file, environment and default settings with the API key masked, then validates them.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd)
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")
	configInitCmd.Flags().StringVar(&configAPIKey, "api-key", "", "API key to store")
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	cfg := config.Default()
	cfg.APIKey = configAPIKey

	path := config.File(app.dir)
	if err := config.WriteDefault(path, cfg, configForce); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	if cfg.APIKey == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "set api_key in the file or export GEOCOMPLETE_API_KEY")
	}
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	if used := app.mgr.FileUsed(); used != "" {
		fmt.Fprintf(out, "# %s\n", used)
	} else {
		fmt.Fprintf(out, "# no file at %s, showing defaults\n", config.File(app.dir))
	}

	if err := config.Encode(out, app.cfg.Redacted()); err != nil {
		return err
	}
	if err := app.cfg.Validate(); err != nil {
		fmt.Fprintf(out, "\n# invalid: %v\n", err)
	}
	return nil
}
