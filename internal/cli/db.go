package cli

import (
	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Event log management",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the event log schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _ := loadConfig()
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		_, closeEvents, err := openEvents(st)
		if err != nil {
			return err
		}
		defer closeEvents()
		cmd.Println("Event log schema is up to date.")
		return nil
	},
}

var dbResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop and recreate the event log (destructive!)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _ := loadConfig()
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		events, closeEvents, err := openEvents(st)
		if err != nil {
			return err
		}
		defer closeEvents()
		if err := events.Reset(); err != nil {
			return err
		}
		cmd.Println("Event log reset.")
		return nil
	},
}

func init() {
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbResetCmd)
}
