package cli

import (
	"fmt"
	"io"

	"github.com/johnyburd/autbot/internal/core/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

var showSecrets bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the merged configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the configuration after environment overrides",
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeConfig(cmd.OutOrStdout(), loadConfig(), showSecrets)
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load the configuration and exit non-zero if it is invalid",
	Run: func(cmd *cobra.Command, args []string) {
		loadConfig()
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", cfgPath)
	},
}

func init() {
	configShowCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "print secrets unmasked")
	configCmd.AddCommand(configShowCmd, configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

func writeConfig(w io.Writer, cfg config.Configuration, secrets bool) error {
	if !secrets {
		cfg = cfg.Redacted()
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("render config: %w", err)
	}
	_, err = w.Write(out)
	return err
}
