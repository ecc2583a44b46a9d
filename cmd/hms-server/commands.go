package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"hms/backend/internal/config"
	"hms/backend/internal/seed"
	"hms/backend/internal/store/postgres"
	"hms/backend/internal/worker"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.StoreDriver != config.StoreDriverPostgres {
				return fmt.Errorf("migrate requires the %s store, got %q", config.StoreDriverPostgres, cfg.StoreDriver)
			}
			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.close()
			return runMigrations(cmd.Context(), a)
		},
	}
}

func runMigrations(ctx context.Context, a *app) error {
	applied, err := postgres.Migrate(ctx, a.db)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	a.log.Info("migrations applied", slog.Int("count", len(applied)), slog.Any("versions", applied))
	return nil
}

func seedCmd() *cobra.Command {
	var doctors, patients int
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert fake doctors, patients and weekly availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			if doctors < 0 || patients < 0 {
				return errors.New("counts must not be negative")
			}
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.StoreDriver == config.StoreDriverMemory {
				log.Warn("seeding the memory store has no lasting effect")
			}
			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.close()

			res, err := seed.Run(cmd.Context(), a.users, a.availability, doctors, patients, log)
			if err != nil {
				return err
			}
			for _, d := range res.Doctors {
				fmt.Fprintf(cmd.OutOrStdout(), "doctor\t%s\t%s\n", d.ID, d.Name)
			}
			for _, p := range res.Patients {
				fmt.Fprintf(cmd.OutOrStdout(), "patient\t%s\t%s\n", p.ID, p.Name)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&doctors, "doctors", 5, "number of doctors")
	cmd.Flags().IntVar(&patients, "patients", 20, "number of patients")
	return cmd
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one appointment sweep and slot prune, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.close()

			res, err := worker.NewSweeper(a.appointments, a.availability, 0, cfg.SweepTimeout, log).RunOnce(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "completed=%d deleted=%d pruned=%d\n", res.Sweep.Completed, res.Sweep.Deleted, res.Pruned)
			return err
		},
	}
}
