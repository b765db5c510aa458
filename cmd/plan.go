package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do"
	"github.com/spf13/cobra"

	"github.com/pgEdge/modmigrate/internal/engine"
	"github.com/pgEdge/modmigrate/internal/migrate"
)

type planEntry struct {
	DataSource string `json:"datasource"`
	Vendor     string `json:"vendor,omitempty"`
	engine.Configuration
}

func newPlanCommand(i *do.Injector) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Print the resolved module configurations without migrating",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			orchestrator, err := do.Invoke[*migrate.Orchestrator](i)
			if err != nil {
				return fmt.Errorf("failed to initialize migration orchestrator: %w", err)
			}
			defer i.Shutdown()

			engines, err := orchestrator.Build(ctx)
			if err != nil {
				return fmt.Errorf("failed to build modules: %w", err)
			}

			entries := make([]planEntry, len(engines))
			for idx, eng := range engines {
				cfg := eng.Configuration()
				// an unknown vendor is left out of the plan
				vendor, _ := cfg.DataSource.VendorID()
				entries[idx] = planEntry{
					DataSource:    cfg.DataSource.String(),
					Vendor:        vendor,
					Configuration: cfg,
				}
			}
			raw, err := json.MarshalIndent(entries, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal plan: %w", err)
			}

			fmt.Println(string(raw))

			return nil
		},
	}
}
