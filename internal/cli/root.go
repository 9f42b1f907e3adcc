// Package cli is the offline admin tool: it edits the bot's store directly,
// for setup before the bot joins a guild or when it is down.
package cli

import (
	"fmt"
	"io"

	"github.com/caarlos0/env/v11"
	"github.com/keshon/tagwarden/internal/storage"
	"github.com/keshon/tagwarden/internal/storage/backend"
	"github.com/spf13/cobra"
)

type storeConfig struct {
	Driver string `env:"STORAGE_DRIVER" envDefault:"json"`
	Path   string `env:"STORAGE_PATH" envDefault:"datastore.json"`
}

// app carries the store opened for the running command.
type app struct {
	out   io.Writer
	store storage.Store
}

// NewRootCmd builds the command tree writing to out.
func NewRootCmd(out io.Writer) *cobra.Command {
	var defaults storeConfig
	_ = env.Parse(&defaults)

	a := &app{out: out}
	var driver, path string

	root := &cobra.Command{
		Use:           "tagwarden-cli",
		Short:         "Manage tagwarden's store offline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			store, err := backend.Open(driver, path, nil)
			if err != nil {
				return fmt.Errorf("open %s store at %s: %w", driver, path, err)
			}
			a.store = store
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.store == nil {
				return nil
			}
			return a.store.Close()
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&driver, "driver", defaults.Driver, "storage driver: json or sqlite")
	root.PersistentFlags().StringVar(&path, "path", defaults.Path, "storage file path")

	root.AddCommand(
		a.levelsCmd(),
		a.channelCmd(),
		a.tagsCmd(),
		a.filterCmd(),
		a.whitelistCmd(),
	)
	return root
}
