package cmd

import (
	"fmt"

	cfgpkg "github.com/KaramelBytes/healthlens-cli/internal/config"
	"github.com/k0kubun/pp"
	"github.com/spf13/cobra"
)

var cfgShowRaw bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set healthlens configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No config loaded")
			return nil
		}
		if cfgShowRaw {
			pp.Fprintln(cmd.OutOrStdout(), cfg)
			return nil
		}
		for _, key := range cfgpkg.Keys {
			val, _ := cfg.Get(key)
			if val == "" {
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", key, val)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := cfg.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Saved config\n", okMark("✓"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configShowCmd.Flags().BoolVar(&cfgShowRaw, "raw", false, "dump the config struct")
}
