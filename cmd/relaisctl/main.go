package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/ecorelais/delivery-backend/internal/config"
	"github.com/ecorelais/delivery-backend/internal/db"
	"github.com/ecorelais/delivery-backend/internal/logger"
)

var Version = "dev"

// Небольшой пул: утилита выполняет одну операцию и завершается.
var cliPool = db.PoolOptions{MaxOpenConns: 4, MaxIdleConns: 1, ConnMaxLifetime: time.Minute}

func main() {
	rootCmd := &cobra.Command{
		Use:           "relaisctl",
		Short:         "Служебные команды Eco-Relais: миграции и демо-данные",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// connect загружает конфигурацию и открывает соединение с базой.
func connect(ctx context.Context) (*config.Config, *sqlx.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger.Init("info")
	logger.SetTextFormatter()

	conn, err := db.NewPostgres(ctx, cfg.DatabaseURL, cliPool)
	if err != nil {
		return nil, nil, err
	}
	return cfg, conn, nil
}
