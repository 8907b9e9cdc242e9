// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/modsync/modsync/internal/config"
	"github.com/modsync/modsync/internal/deploy"
	"github.com/modsync/modsync/internal/modgraph"
)

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root for the CLI layer: every Cobra handler receives an App and
	// delegates through its service interfaces.
	App struct {
		Config ConfigProvider
		Deploy DeployService
		stdout io.Writer
		stderr io.Writer
		now    func() time.Time

		flags  globalFlags
		logger *log.Logger
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config ConfigProvider
		Deploy DeployService
		Stdout io.Writer
		Stderr io.Writer
		Now    func() time.Time
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// DeployService runs deployments described by a loaded configuration.
	DeployService interface {
		Run(ctx context.Context, cfg *config.Config, req deploy.Request) (*deploy.Summary, error)
		Graph(ctx context.Context, cfg *config.Config, names []string) (*modgraph.Result, error)
	}

	// globalFlags are the persistent flags of the root command.
	globalFlags struct {
		configPath string
		verbose    bool
		noVersion  bool
		delete     bool
		report     string
	}

	orchestratorService struct {
		fetcher deploy.Fetcher
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Deploy == nil {
		deps.Deploy = &orchestratorService{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &App{
		Config: deps.Config,
		Deploy: deps.Deploy,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
		now:    deps.Now,
	}, nil
}

// setupLogging routes slog through a charm logger on stderr.
func (a *App) setupLogging() {
	level := log.InfoLevel
	if a.flags.verbose {
		level = log.DebugLevel
	}
	a.logger = log.NewWithOptions(a.stderr, log.Options{
		Prefix: "modsync",
		Level:  level,
	})
	slog.SetDefault(slog.New(a.logger))
}

// loadConfig loads configuration and applies the global flag overrides.
func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.flags.configPath})
	if err != nil {
		return nil, err
	}
	if a.flags.noVersion {
		cfg.Reconcile.NoVersion = true
	}
	if a.flags.delete {
		cfg.Reconcile.Delete = true
	}
	if a.flags.report != "" {
		cfg.Report = a.flags.report
	}
	if cfg.Verbose && a.logger != nil {
		a.logger.SetLevel(log.DebugLevel)
	}
	slog.Debug("configuration loaded", "file", cfg.File, "basedir", cfg.BaseDir)
	return cfg, nil
}

func (a *App) verbose() bool {
	return a.flags.verbose || (a.logger != nil && a.logger.GetLevel() == log.DebugLevel)
}

// Run implements DeployService with a deploy.Orchestrator.
func (s *orchestratorService) Run(ctx context.Context, cfg *config.Config, req deploy.Request) (*deploy.Summary, error) {
	o, err := s.orchestrator(cfg)
	if err != nil {
		return nil, err
	}
	return o.Run(ctx, req)
}

// Graph implements DeployService with a deploy.Orchestrator.
func (s *orchestratorService) Graph(ctx context.Context, cfg *config.Config, names []string) (*modgraph.Result, error) {
	o, err := s.orchestrator(cfg)
	if err != nil {
		return nil, err
	}
	return o.Graph(ctx, names)
}

func (s *orchestratorService) orchestrator(cfg *config.Config) (*deploy.Orchestrator, error) {
	opts, err := deploy.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return deploy.New(opts, deploy.Dependencies{Fetcher: s.fetcher}), nil
}
