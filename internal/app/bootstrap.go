package app

import (
	"os"
	"path/filepath"

	"github.com/dshills/appshell/internal/dock"
	"github.com/dshills/appshell/internal/loader"
	"github.com/dshills/appshell/internal/logging"
	"github.com/dshills/appshell/internal/plugin"
	"github.com/dshills/appshell/internal/setting"
	"github.com/dshills/appshell/internal/task"
)

// bootstrapper handles component initialization with proper cleanup on failure.
type bootstrapper struct {
	app       *Application
	initOrder []string
}

// newBootstrapper creates a new bootstrapper for the application.
func newBootstrapper(app *Application) *bootstrapper {
	return &bootstrapper{
		app:       app,
		initOrder: make([]string, 0, 6),
	}
}

// bootstrap initializes all components in dependency order.
// On failure, it cleans up already-initialized components.
func (b *bootstrapper) bootstrap() error {
	steps := []func() error{
		// 1. Logger
		b.initLogger,
		// 2. Config
		b.initConfig,
		// 3. Setting store
		b.initStore,
		// 4. Loader, services, loop and runner
		b.initServices,
		// 5. Capability routing
		b.initRouter,
		// 6. Application settings
		b.initSettings,
	}

	for _, step := range steps {
		if err := step(); err != nil {
			b.cleanup()
			return err
		}
	}

	b.app.logger.Debug("bootstrap complete: %v", b.initOrder)
	return nil
}

func (b *bootstrapper) initLogger() error {
	if b.app.logger == nil {
		b.app.logger = logging.New(logging.Config{
			Level:  logging.ParseLevel(b.app.cfg.LogLevel),
			Output: os.Stderr,
			JSON:   b.app.cfg.LogJSON,
		})
	}
	b.initOrder = append(b.initOrder, "logger")
	return nil
}

func (b *bootstrapper) initConfig() error {
	if err := b.app.cfg.Validate(); err != nil {
		return &InitError{Component: "config", Err: err}
	}
	b.initOrder = append(b.initOrder, "config")
	return nil
}

func (b *bootstrapper) initStore() error {
	if b.app.store != nil {
		b.initOrder = append(b.initOrder, "store")
		return nil
	}

	cfg := b.app.cfg
	if cfg.Settings.Backend == BackendMemory {
		b.app.store = setting.NewMemoryStore()
		b.initOrder = append(b.initOrder, "store")
		return nil
	}

	path, err := cfg.SettingsPath()
	if err != nil {
		return &InitError{Component: "settings store", Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &InitError{Component: "settings store", Err: err}
	}

	var store setting.Store
	switch cfg.Settings.Backend {
	case BackendBolt:
		store, err = setting.OpenBoltStore(path)
	default:
		store, err = setting.OpenTOMLStore(path)
	}
	if err != nil {
		return &InitError{Component: "settings store", Err: err}
	}

	b.app.store = store
	b.app.logger.WithFields(map[string]any{
		"backend": cfg.Settings.Backend,
		"path":    path,
	}).Debug("opened settings store")
	b.initOrder = append(b.initOrder, "store")
	return nil
}

func (b *bootstrapper) initServices() error {
	app := b.app

	loaderOpts := []loader.Option{loader.WithLogger(app.logger)}
	if app.cfg.Loader.Isolate {
		loaderOpts = append(loaderOpts, loader.WithIsolation())
	}
	app.loader = loader.New(loaderOpts...)

	app.settings = setting.NewService(app.store, app.loader, app.logger)
	app.docks = dock.NewService(app.loader, app.logger)
	app.plugins = plugin.NewService(app.loader, app.logger,
		plugin.WithLoadArgs(loader.Args{setting.ArgService: app.settings}))

	app.loop = task.NewLoop(app.logger)
	app.runner = task.NewRunner(app.loop,
		task.WithMaxWorkers(app.cfg.Tasks.MaxWorkers),
		task.WithLogger(app.logger))

	app.stop = append(app.stop, app.settings.Close)
	b.initOrder = append(b.initOrder, "services")
	return nil
}

func (b *bootstrapper) initRouter() error {
	app := b.app
	app.router = NewRouter(app.docks, app.settings, app.logger)
	unsubscribe := app.router.Subscribe(app.plugins)
	app.stop = append(app.stop, func() error {
		unsubscribe()
		return nil
	})
	b.initOrder = append(b.initOrder, "router")
	return nil
}

func (b *bootstrapper) initSettings() error {
	app := b.app

	app.enabled = plugin.NewEnabledExtensionsSetting(app.settings)
	app.selected = setting.NewBase(SelectedPluginKey, "", "", "")
	for _, s := range []setting.Setting{app.enabled, app.selected} {
		if err := app.settings.AddSetting(s); err != nil {
			return &InitError{Component: "settings", Err: err}
		}
	}

	if app.cfg.Settings.Watch {
		stopWatch, err := app.settings.Watch(app.loop)
		if err != nil {
			app.logger.WithError(err).Warn("settings watch unavailable")
		} else {
			app.stop = append(app.stop, stopWatch)
		}
	}

	b.initOrder = append(b.initOrder, "settings")
	return nil
}

// cleanup performs cleanup in reverse initialization order.
// Called when bootstrap fails partway through.
func (b *bootstrapper) cleanup() {
	for i := len(b.initOrder) - 1; i >= 0; i-- {
		b.cleanupComponent(b.initOrder[i])
	}
}

// cleanupComponent cleans up a single component.
func (b *bootstrapper) cleanupComponent(component string) {
	app := b.app
	switch component {
	case "settings", "router":
		for i := len(app.stop) - 1; i >= 1; i-- {
			_ = app.stop[i]()
		}
		if len(app.stop) > 1 {
			app.stop = app.stop[:1]
		}
	case "services":
		app.stop = nil
		app.loop.Close()
		app.settings = nil
		app.docks = nil
		app.plugins = nil
		app.loader = nil
	case "store":
		if app.store != nil {
			_ = app.store.Close()
			app.store = nil
		}
	}
}
