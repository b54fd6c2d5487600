package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sayhello/sayhello/internal/config"
	"github.com/sayhello/sayhello/internal/store"
	"github.com/sayhello/sayhello/internal/store/sqlite"
	"github.com/sayhello/sayhello/internal/store/supabase"
)

var version = "dev"

var (
	noColor    bool
	forceLocal bool
)

var rootCmd = &cobra.Command{
	Use:           "sayhello",
	Short:         "Directory of language-exchange partners",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&forceLocal, "local", false, "use the local database instead of the hosted backend")

	rootCmd.AddCommand(serveCmd, listCmd, saveCmd, rmCmd, importCmd, exportCmd, wipeCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// openGateway builds the configured persistence gateway. The returned
// closer is a no-op for the hosted backend.
func openGateway(cfg config.Config) (store.Gateway, func() error, error) {
	if cfg.Storage.Local || forceLocal {
		s, err := sqlite.Open(cfg.Storage.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("opening local database: %w", err)
		}
		return s, s.Close, nil
	}
	client := supabase.New(supabase.Config{URL: cfg.Supabase.URL, Key: cfg.Supabase.Key})
	return client, func() error { return nil }, nil
}
