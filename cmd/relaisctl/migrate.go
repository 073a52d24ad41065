package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ecorelais/delivery-backend/internal/db"
)

func migrateCmd() *cobra.Command {
	var (
		dryRun bool
		dir    string
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Применить SQL миграции",
		Long: `Применяет ещё не выполненные файлы *.sql из каталога миграций
в лексикографическом порядке.

Примеры:
  relaisctl migrate
  relaisctl migrate --dry-run
  relaisctl migrate --dir ./migrations`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, conn, err := connect(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()

			if dir == "" {
				dir = cfg.MigrationsPath
			}
			out := cmd.OutOrStdout()

			if dryRun {
				pending, err := db.PendingMigrations(ctx, conn, dir)
				if err != nil {
					return err
				}
				if len(pending) == 0 {
					fmt.Fprintln(out, "Все миграции применены")
					return nil
				}
				fmt.Fprintf(out, "Ожидают применения (%d):\n", len(pending))
				for _, name := range pending {
					fmt.Fprintf(out, "  %s\n", name)
				}
				return nil
			}

			applied, err := db.RunMigrations(ctx, conn, dir)
			for _, name := range applied {
				fmt.Fprintf(out, "применена %s\n", name)
			}
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintf(out, "Готово, применено миграций: %d\n", len(applied))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "только показать неприменённые миграции")
	cmd.Flags().StringVar(&dir, "dir", "", "каталог миграций (по умолчанию MIGRATIONS_PATH)")

	return cmd
}
