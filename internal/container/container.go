package container

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/anime-shed/authenticity-validator-go/internal/client"
	"github.com/anime-shed/authenticity-validator-go/internal/config"
	"github.com/anime-shed/authenticity-validator-go/internal/controller"
	"github.com/anime-shed/authenticity-validator-go/internal/logger"
	"github.com/anime-shed/authenticity-validator-go/internal/observer"
	"github.com/anime-shed/authenticity-validator-go/internal/repository"
	"github.com/anime-shed/authenticity-validator-go/internal/session"
	"github.com/anime-shed/authenticity-validator-go/internal/storage"
	"github.com/anime-shed/authenticity-validator-go/internal/transport"
)

// Container holds all application dependencies
type Container struct {
	config    *config.Config
	service   client.ValidationService
	publisher *observer.EventPublisher
	registry  *prometheus.Registry
	sessions  *session.Registry
	history   repository.AttemptRepository
	handler   http.Handler

	// I/O observers deliver off the controller's goroutine
	async []*observer.AsyncObserver
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	c := &Container{
		config:    cfg,
		service:   client.NewHTTPValidationClient(cfg.ServiceURL, cfg.ServiceTimeout),
		publisher: observer.NewEventPublisher(),
		registry:  prometheus.NewRegistry(),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if err := c.buildObservers(); err != nil {
		c.Close()
		return nil, err
	}

	c.sessions = session.NewRegistry(c.NewController)

	handler, err := transport.NewHandler(transport.Dependencies{
		Sessions: c.sessions,
		History:  c.history,
		Metrics:  c.registry,
	}, cfg)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.handler = handler

	logger.WithComponent("container").WithFields(logrus.Fields{
		"service_url": cfg.ServiceURL.String(),
		"history":     cfg.HistoryEnabled(),
		"archive":     cfg.ArchiveEnabled(),
	}).Info("Container initialised")

	return c, nil
}

func (c *Container) buildObservers() error {
	c.publisher.Subscribe(observer.NewLoggingObserver(logger.Logger))

	metrics, err := observer.NewMetricsObserver(c.registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	c.publisher.Subscribe(metrics)

	if c.config.HistoryEnabled() {
		repo, err := repository.NewSQLiteAttemptRepository(c.config.HistoryDBPath)
		if err != nil {
			return fmt.Errorf("failed to open attempt history: %w", err)
		}
		c.history = repo
		c.subscribeAsync(observer.NewHistoryObserver(repo))
	}

	if c.config.ArchiveEnabled() {
		archive, err := storage.NewAzureArchive(
			c.config.AzureAccountName,
			c.config.AzureAccountKey,
			c.config.AzureArchiveContainer,
		)
		if err != nil {
			return fmt.Errorf("failed to create verdict archive: %w", err)
		}
		c.subscribeAsync(observer.NewArchiveObserver(archive))
	}
	return nil
}

func (c *Container) subscribeAsync(obs observer.Observer) {
	async := observer.NewAsyncObserver(obs, 0)
	c.async = append(c.async, async)
	c.publisher.Subscribe(async)
}

// NewController builds an UploadController wired to the shared service and observers
func (c *Container) NewController(id string) *controller.UploadController {
	return controller.New(id, c.service, controller.WithPublisher(c.publisher))
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Sessions returns the per-browser controller registry
func (c *Container) Sessions() *session.Registry {
	return c.sessions
}

// Close drains queued observer work, then releases resources held by
// optional components
func (c *Container) Close() error {
	for _, async := range c.async {
		async.Close()
	}
	c.async = nil

	var errs []error
	if c.history != nil {
		errs = append(errs, c.history.Close())
	}
	return errors.Join(errs...)
}
