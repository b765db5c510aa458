package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do"
	"github.com/spf13/cobra"

	"github.com/pgEdge/modmigrate/internal/app"
	"github.com/pgEdge/modmigrate/internal/migrate"
)

func newMigrateCommand(i *do.Injector) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Migrate every configured module",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.NewApp(i)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			orchestrator, err := do.Invoke[*migrate.Orchestrator](i)
			if err != nil {
				return fmt.Errorf("failed to initialize migration orchestrator: %w", err)
			}
			a.Register("migrations", orchestrator)

			return a.Shutdown(a.Start(ctx))
		},
	}
}
