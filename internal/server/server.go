package server

import (
	"fmt"
	"time"

	"github.com/flowbaker/workflow-monitor/internal/auth"
	"github.com/flowbaker/workflow-monitor/internal/controllers"
	"github.com/flowbaker/workflow-monitor/internal/middlewares"
	"github.com/flowbaker/workflow-monitor/internal/version"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/requestid"
)

type HTTPServerDependencies struct {
	MonitorController *controllers.MonitorController
	// ControlPublicKey enables signature checks on mutating routes when set
	ControlPublicKey string
	// DisableRequestLog turns off the access log, mostly for tests
	DisableRequestLog bool
}

func NewHTTPServer(deps HTTPServerDependencies) (*fiber.App, error) {
	router := fiber.New(fiber.Config{
		AppName: "workflow-monitor",
	})

	router.Use(cors.New())
	router.Use(requestid.New())
	if !deps.DisableRequestLog {
		router.Use(logger.New())
	}

	router.Get("/health", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":    "healthy",
			"service":   "workflow-monitor",
			"version":   version.GetVersion(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	router.Get("/labels", deps.MonitorController.GetLabels)

	monitorGroup := router.Group("/monitor")

	if deps.ControlPublicKey != "" {
		verifier, err := auth.NewAPISignatureVerifier(deps.ControlPublicKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create API signature verifier: %w", err)
		}

		monitorGroup.Use(middlewares.MutatingOnly(middlewares.APISignatureMiddleware(verifier)))
	}

	monitorGroup.Get("/", deps.MonitorController.GetState)
	monitorGroup.Post("/polling", deps.MonitorController.StartPolling)
	monitorGroup.Delete("/polling", deps.MonitorController.StopPolling)
	monitorGroup.Post("/refresh", deps.MonitorController.Refresh)
	monitorGroup.Get("/workflows/:id/progress", deps.MonitorController.GetProgress)
	monitorGroup.Post("/workflows/:id/cancel", deps.MonitorController.CancelWorkflow)
	monitorGroup.Post("/cancel-all", deps.MonitorController.CancelAll)

	return router, nil
}
