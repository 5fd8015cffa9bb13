package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/vk/pipewrench/internal/config"
	"github.com/vk/pipewrench/internal/ctxlog"
	"github.com/vk/pipewrench/internal/registry"
)

// RootEnvKey names the environment variable that selects the working root
// all relative source and sink patterns resolve against.
const RootEnvKey = "PIPEWRENCHDIR"

// App encapsulates one application instance: its logger, the loaded
// configuration model, the function registry, and the working root.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	appCfg   *Config
	model    *config.Model
	registry *registry.Registry
	root     string
}

// New constructs a fully initialized App: it configures the logger, resolves
// the working root, loads the configuration through the given loader, and
// populates the registry from the provided modules.
func New(outW io.Writer, appCfg *Config, loader config.Loader, modules ...registry.Module) (*App, error) {
	logger := newLogger(appCfg.LogLevel, appCfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	root, err := resolveRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working root: %w", err)
	}
	logger.Debug("Working root resolved.", "root", root)

	model, err := loader.Load(ctx, appCfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	reg := registry.New()
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All function modules registered.", "count", len(modules))

	return &App{
		outW:     outW,
		logger:   logger,
		appCfg:   appCfg,
		model:    model,
		registry: reg,
		root:     root,
	}, nil
}

// Registry returns the application's function registry, primarily for tests.
func (a *App) Registry() *registry.Registry { return a.registry }

// Model returns the loaded configuration model, primarily for tests.
func (a *App) Model() *config.Model { return a.model }

// Root returns the resolved working root.
func (a *App) Root() string { return a.root }

// resolveRoot determines the working root: the PIPEWRENCHDIR environment
// variable when set (a .env file is honored, best effort), otherwise the
// process working directory.
func resolveRoot() (string, error) {
	_ = godotenv.Load()
	if root := os.Getenv(RootEnvKey); root != "" {
		return root, nil
	}
	return os.Getwd()
}
