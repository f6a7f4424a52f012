package initialization

import (
	"context"
	"errors"
	"fmt"

	"github.com/flowbaker/workflow-monitor/internal/config"
	"github.com/flowbaker/workflow-monitor/internal/domain"
	"github.com/flowbaker/workflow-monitor/internal/managers"
	"github.com/flowbaker/workflow-monitor/internal/monitor"
	"github.com/flowbaker/workflow-monitor/internal/version"
	"github.com/flowbaker/workflow-monitor/pkg/clients/orchestrator"

	"github.com/rs/zerolog/log"
)

type MonitorDependencies struct {
	Client          *orchestrator.Client
	WorkflowService domain.WorkflowService
	EventPublisher  domain.EventPublisher
	Labeler         *domain.Labeler
	Monitor         *monitor.Monitor
}

type MonitorDependencyConfig struct {
	Config      *config.Config
	Interactive bool
	// Scheduler overrides the gocron scheduler, mostly for tests
	Scheduler monitor.Scheduler
}

// MonitorContainer owns everything built around one monitor and releases it on Close.
type MonitorContainer struct {
	deps    *MonitorDependencies
	closers []func() error
}

func NewMonitorContainer(ctx context.Context, cfg MonitorDependencyConfig) (*MonitorContainer, error) {
	log.Debug().Msg("Building monitor dependencies")

	if cfg.Config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	platform, err := cfg.Config.Platform()
	if err != nil {
		return nil, err
	}

	client, err := orchestrator.NewClient(
		orchestrator.WithBaseURL(cfg.Config.APIBaseURL),
		orchestrator.WithAPIToken(cfg.Config.APIToken),
		orchestrator.WithSigningKey(cfg.Config.SigningKey),
		orchestrator.WithTimeout(cfg.Config.RequestTimeout),
		orchestrator.WithRetryAttempts(cfg.Config.RetryAttempts),
		orchestrator.WithRetryDelay(cfg.Config.RetryDelay),
		orchestrator.WithUserAgent("workflow-monitor/"+version.GetVersion()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create orchestrator client: %w", err)
	}

	container := &MonitorContainer{}

	workflowService := managers.NewWorkflowService(managers.WorkflowServiceDependencies{
		Client: client,
	})

	publishers := []domain.EventPublisher{managers.NewLogEventPublisher(log.Logger)}

	if cfg.Config.Redis.URL != "" {
		redisClient, err := managers.NewRedisClientFromURL(cfg.Config.Redis.URL)
		if err != nil {
			return nil, err
		}

		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("Redis is not reachable, events will still be logged")
		}

		redisPublisher := managers.NewRedisEventPublisher(managers.RedisEventPublisherDependencies{
			Client:  redisClient,
			Channel: cfg.Config.Redis.Channel,
		})
		publishers = append(publishers, redisPublisher)
		container.closers = append(container.closers, redisPublisher.Close)
	}

	eventPublisher := domain.NewFanoutEventPublisher(publishers...)
	labeler := domain.NewLabeler(cfg.Config.Platforms)

	workflowMonitor := monitor.NewMonitor(monitor.MonitorDependencies{
		Service:        workflowService,
		EventPublisher: eventPublisher,
		Scheduler:      cfg.Scheduler,
		Platform:       platform,
		Labeler:        labeler,
		PageLimit:      cfg.Config.PageLimit,
		Interactive:    cfg.Interactive && !cfg.Config.Headless,
	})

	// monitor first, so no poll can publish into a closed redis client
	container.closers = append([]func() error{workflowMonitor.Close}, container.closers...)

	container.deps = &MonitorDependencies{
		Client:          client,
		WorkflowService: workflowService,
		EventPublisher:  eventPublisher,
		Labeler:         labeler,
		Monitor:         workflowMonitor,
	}

	log.Debug().
		Str("marketplace", platform.Tag).
		Bool("redis_events", cfg.Config.Redis.URL != "").
		Msg("Monitor dependencies built")

	return container, nil
}

func (c *MonitorContainer) GetDependencies() *MonitorDependencies {
	return c.deps
}

func (c *MonitorContainer) GetMonitor() *monitor.Monitor {
	return c.deps.Monitor
}

// Close stops polling and releases the event publishers
func (c *MonitorContainer) Close() error {
	var errs []error
	for _, closer := range c.closers {
		if err := closer(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
