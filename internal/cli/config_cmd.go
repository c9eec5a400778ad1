package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"wiggum/internal/brief"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Validate and inspect wiggum configuration",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		cmd.Println("Configuration is valid.")
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved configuration with defaults merged",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshalling config: %w", err)
		}
		cmd.Print(string(data))
		return nil
	},
}

var configInitTemplatesCmd = &cobra.Command{
	Use:   "init-templates",
	Short: "Install the builtin brief templates under ~/.wiggum/templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := brief.InstallBuiltinTemplates(); err != nil {
			return err
		}
		cmd.Println("Builtin templates installed.")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitTemplatesCmd)
}
