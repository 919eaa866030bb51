package main

import (
	"fmt"

	"github.com/runesbridge/runes-bridge/internal/config"
	"github.com/runesbridge/runes-bridge/internal/db"
	"github.com/runesbridge/runes-bridge/internal/http"
	"github.com/runesbridge/runes-bridge/internal/starknet"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "runes-bridge",
		Short:         "Bitcoin runes to Starknet bridge API",
		Version:       http.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API, block notifier and event forwarder",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "derive-address [starknet address]",
			Short: "Print the bitcoin deposit address of a starknet account",
			Args:  cobra.ExactArgs(1),
			RunE:  runDeriveAddress,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Bring the database schema up to date and exit",
			RunE:  runMigrate,
		},
	)
	return root
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		log.Errorf("Failed to load config: %v", err)
		return err
	}
	app, err := NewApplication(cfg)
	if err != nil {
		log.Errorf("Failed to start application: %v", err)
		return err
	}
	return app.Run()
}

func runDeriveAddress(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	deriver, err := newDeriver(cfg)
	if err != nil {
		return err
	}
	account, err := starknet.NormalizeAddress(args[0])
	if err != nil {
		return fmt.Errorf("invalid starknet address %q: %w", args[0], err)
	}
	addr, err := deriver.Derive(account)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), addr)
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	dbm, err := db.NewDatabaseManager(cfg)
	if err != nil {
		return err
	}
	log.Infof("Database schema is up to date (%s)", cfg.DBDriver)
	return dbm.Close()
}
