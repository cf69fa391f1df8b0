package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/listings/internal/config"
	"github.com/JonMunkholm/listings/internal/core"
	"github.com/JonMunkholm/listings/internal/store"
)

func newLoadCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "load FILE",
		Short: "Import an export and save its valid buildings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			pool, err := store.Connect(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()

			if migrate || cfg.Database.AutoMigrate {
				if err := store.MigratePool(ctx, pool); err != nil {
					return err
				}
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			svc := core.NewService(store.New(pool), core.Options{
				MaxFileSize: cfg.Import.MaxFileSize,
				Timeout:     cfg.Import.Timeout,
			})
			report, err := svc.Import(ctx, filepath.Base(args[0]), f)
			if err != nil {
				return fmt.Errorf("%s: %s", args[0], core.FormatUserError(err))
			}

			out := cmd.OutOrStdout()
			writeTextReport(out, fileReport{File: args[0], Result: report.Result})
			fmt.Fprintf(out, "import %s: saved %d buildings, %d failed\n",
				report.ImportID, report.Save.Succeeded, report.Save.Failed)
			for _, f := range report.Save.Failures {
				fmt.Fprintf(out, "  %s: %s\n", f.BuildingID, f.Error)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply migrations before loading")
	return cmd
}
