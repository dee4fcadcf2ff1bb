package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/moneyboard/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigSetCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "init",
		Short:       "Write a commented default config file",
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE:        runConfigInit,
	}
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration after all overrides",
		RunE:  runConfigShow,
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a config key",
		Long: `Set a top-level key in the config file. The result is validated before
it is written, so a typo never leaves a broken file behind.

Examples:
  moneyboard config set api_url https://money.example.com/api
  moneyboard config set credential_store sqlite`,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		Args:        cobra.ExactArgs(2),
		RunE:        runConfigSet,
	}
}

// configPath returns the config file the command should write: --config,
// then MONEYBOARD_CONFIG, then the platform default.
func configPath(cc *CLIContext) string {
	if cc.Flags.ConfigPath != "" {
		return cc.Flags.ConfigPath
	}

	if env := config.ReadEnvOverrides(); env.ConfigPath != "" {
		return env.ConfigPath
	}

	return config.DefaultConfigPath()
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	path := configPath(cc)

	if err := config.CreateDefault(path); err != nil {
		return err
	}

	cc.Statusf("Wrote %s\n", path)

	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	if cc.Cfg == nil {
		return fmt.Errorf("no configuration loaded")
	}

	if cc.Flags.JSON {
		return printJSON(cc.Stdout, cc.Cfg)
	}

	return config.RenderEffective(cc.Cfg, cc.Stdout)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	path := configPath(cc)

	if err := config.SetKey(path, args[0], args[1]); err != nil {
		return err
	}

	cc.Statusf("Set %s in %s\n", args[0], path)

	return nil
}
