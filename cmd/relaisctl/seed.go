package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ecorelais/delivery-backend/internal/infrastructure/persistence"
	"github.com/ecorelais/delivery-backend/internal/repository"
	"github.com/ecorelais/delivery-backend/internal/service"
)

func seedCmd() *cobra.Command {
	var (
		clients  int
		partners int
		missions int
		seed     int64
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Заполнить базу демо-пользователями и миссиями",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clients < 1 && missions > 0 {
				return errors.New("seed: для миссий нужен хотя бы один клиент")
			}

			ctx := cmd.Context()
			cfg, conn, err := connect(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()

			if cfg.IsProduction() {
				return errors.New("seed: запрещено в production")
			}
			if seed == 0 {
				seed = time.Now().UnixNano()
			}

			seeder := service.NewSeedService(
				repository.NewUserRepository(conn),
				persistence.NewMissionRepositoryAdapter(conn),
				seed,
			)
			res, err := seeder.SeedData(ctx, clients, partners, missions)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Создано пользователей: %d, миссий: %d (пароль %s)\n",
				res.Users, res.Missions, service.DemoPassword)
			return nil
		},
	}

	cmd.Flags().IntVar(&clients, "clients", 5, "количество клиентов")
	cmd.Flags().IntVar(&partners, "partners", 3, "количество партнёров")
	cmd.Flags().IntVar(&missions, "missions", 20, "количество миссий")
	cmd.Flags().Int64Var(&seed, "seed", 0, "seed генератора (0: текущее время)")

	return cmd
}
