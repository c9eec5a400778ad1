package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"wiggum/internal/config"
	"wiggum/internal/db"
	"wiggum/internal/store"
)

var configFile string

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.Load(configFile)
	}
	return config.LoadDefault()
}

// openStore opens the task store from the config's state_dir, falling
// back to ~/.wiggum.
func openStore(cfg *config.Config) (*store.Store, error) {
	if cfg != nil && cfg.Wiggum.StateDir != "" {
		if err := os.MkdirAll(cfg.Wiggum.StateDir, 0o755); err != nil {
			return nil, fmt.Errorf("create state dir: %w", err)
		}
		return store.NewStore(cfg.Wiggum.StateDir), nil
	}
	return store.DefaultStore()
}

// openEvents opens the event log in the store's directory and applies
// the schema. Returns a cleanup that closes the connection.
func openEvents(st *store.Store) (*db.DB, func(), error) {
	d, err := db.Open(db.PathIn(st.BaseDir()))
	if err != nil {
		return nil, nil, err
	}
	if err := d.Migrate(); err != nil {
		d.Close()
		return nil, nil, err
	}
	return d, func() { d.Close() }, nil
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to wiggum config file")
}
