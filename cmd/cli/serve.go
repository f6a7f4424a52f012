package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/flowbaker/workflow-monitor/internal/controllers"
	"github.com/flowbaker/workflow-monitor/internal/server"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func NewServeCommand(opts *rootOptions) *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the monitor over HTTP",
		Long: `Start an HTTP server exposing the monitor to a UI layer. Polling starts at boot and stops
on shutdown.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if address != "" {
				opts.viper.Set("http_address", address)
			}
			return runServe(opts)
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "Listen address (default from http_address)")

	return cmd
}

func runServe(opts *rootOptions) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, container, err := opts.buildContainer(ctx, true)
	if err != nil {
		return err
	}
	defer func() {
		if err := container.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to release monitor resources")
		}
	}()

	workflowMonitor := container.GetMonitor()

	app, err := server.NewHTTPServer(server.HTTPServerDependencies{
		MonitorController: controllers.NewMonitorController(controllers.MonitorControllerDependencies{
			Monitor: workflowMonitor,
		}),
		ControlPublicKey: cfg.ControlPublicKey,
	})
	if err != nil {
		return err
	}

	if err := workflowMonitor.StartPolling(cfg.PollInterval); err != nil {
		return err
	}

	log.Info().
		Str("address", cfg.HTTPAddress).
		Str("marketplace", workflowMonitor.Platform().Tag).
		Dur("poll_interval", cfg.PollInterval).
		Bool("signed_control", cfg.ControlPublicKey != "").
		Msg("Starting workflow monitor server")

	if err := app.Listen(cfg.HTTPAddress, fiber.ListenConfig{
		GracefulContext:       ctx,
		DisableStartupMessage: true,
	}); err != nil {
		log.Error().Err(err).Msg("HTTP server failed")
		return err
	}

	log.Info().Msg("Workflow monitor server stopped")
	return nil
}
