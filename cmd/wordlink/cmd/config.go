package cmd

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/bastiangx/wordlink/pkg/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration",
	Long:  "Shows the active config file, the vault and cache locations and every setting.",
	RunE:  runConfig,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a fresh config.toml with the builtin defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.RebuildConfigFile()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	root := cfg.VaultRoot()
	cache := cfg.CachePath(root)
	if cache == "" {
		cache = "off"
	}

	fmt.Fprintf(out, "# config: %s\n", config.GetActiveConfigPath(configPath))
	fmt.Fprintf(out, "# vault:  %s\n", root)
	fmt.Fprintf(out, "# cache:  %s\n\n", cache)
	return toml.NewEncoder(out).Encode(cfg)
}
