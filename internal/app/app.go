package app

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/dshills/appshell/internal/dock"
	"github.com/dshills/appshell/internal/loader"
	"github.com/dshills/appshell/internal/logging"
	"github.com/dshills/appshell/internal/plugin"
	"github.com/dshills/appshell/internal/setting"
	"github.com/dshills/appshell/internal/task"
)

// SelectedPluginKey stores the id of the last plugin navigated to.
const SelectedPluginKey = "application/selectedPlugin"

// Application is the central coordinator of the extension system.
//
// Everything except LoadAsync's background half runs on the interactive
// goroutine: the one calling Run, Navigate, Close, and draining Loop.
type Application struct {
	cfg    *Config
	logger *logging.Logger

	store    setting.Store
	loader   *loader.Loader
	settings *setting.Service
	docks    *dock.Service
	plugins  *plugin.Service
	router   *Router

	loop   *task.Loop
	runner *task.Runner

	enabled  *plugin.EnabledExtensionsSetting
	selected *setting.Base

	presenter Presenter
	stop      []func() error

	closed atomic.Bool
}

// Option configures an Application.
type Option func(*Application)

// WithLogger sets the logger instead of building one from Config.
func WithLogger(logger *logging.Logger) Option {
	return func(a *Application) {
		a.logger = logger
	}
}

// WithPresenter sets the presenter. The default discards everything.
func WithPresenter(p Presenter) Option {
	return func(a *Application) {
		a.presenter = p
	}
}

// WithStore sets the setting store instead of opening the configured one.
func WithStore(store setting.Store) Option {
	return func(a *Application) {
		a.store = store
	}
}

// New creates and bootstraps an Application. A nil cfg uses DefaultConfig.
func New(cfg *Config, opts ...Option) (*Application, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	a := &Application{
		cfg:       cfg,
		presenter: NopPresenter{},
	}
	for _, opt := range opts {
		opt(a)
	}

	if err := newBootstrapper(a).bootstrap(); err != nil {
		return nil, err
	}
	return a, nil
}

// Config returns the configuration.
func (a *Application) Config() *Config { return a.cfg }

// Logger returns the application logger.
func (a *Application) Logger() *logging.Logger { return a.logger }

// Loader returns the code unit loader.
func (a *Application) Loader() *loader.Loader { return a.loader }

// Settings returns the setting service.
func (a *Application) Settings() *setting.Service { return a.settings }

// Docks returns the dock service.
func (a *Application) Docks() *dock.Service { return a.docks }

// Plugins returns the plugin service.
func (a *Application) Plugins() *plugin.Service { return a.plugins }

// Loop returns the interactive loop.
func (a *Application) Loop() *task.Loop { return a.loop }

// Runner returns the background task runner.
func (a *Application) Runner() *task.Runner { return a.runner }

// EnabledExtensions returns the setting holding the enabled module ids.
func (a *Application) EnabledExtensions() *plugin.EnabledExtensionsSetting { return a.enabled }

// Load reads the configured repositories and loads the enabled modules on
// the calling goroutine.
func (a *Application) Load() error {
	if a.closed.Load() {
		return ErrClosed
	}
	return a.plugins.Load(a.cfg.Repositories, a.enabled.ReadList())
}

type scanOutcome struct {
	result *plugin.ScanResult
	err    error
}

// LoadAsync scans the configured repositories on a worker goroutine and
// applies the result on the interactive loop. done, if non-nil, is called on
// the loop with the first error once the result has been applied.
func (a *Application) LoadAsync(done func(error)) (*task.Handle, error) {
	if a.closed.Load() {
		return nil, ErrClosed
	}

	known := a.plugins.Modules().Items()
	repositories := a.cfg.Repositories
	enabled := a.enabled.ReadList()

	finish := func(err error) {
		if done != nil {
			done(err)
		}
	}

	h := a.runner.Submit(func() (any, error) {
		result, err := a.plugins.Scan(known, repositories, enabled)
		return scanOutcome{result: result, err: err}, nil
	}, task.Callbacks{
		OnResult: func(value any) {
			outcome := value.(scanOutcome)
			if err := a.plugins.Apply(outcome.result); err != nil {
				finish(err)
				return
			}
			finish(outcome.err)
		},
		OnError: func(err *task.TaskError) {
			finish(err)
		},
	})
	return h, nil
}

// Run presents the loaded plugins: navigation entries by ascending priority,
// then the stored selection or the first plugin with navigation, then the
// docks in registration order.
func (a *Application) Run() error {
	if a.closed.Load() {
		return ErrClosed
	}

	plugins := plugin.SortByPriority(a.plugins.Plugins())
	for _, p := range plugins {
		if p.Navigation() != nil {
			a.presenter.AddNavigation(p)
		}
	}

	if id := a.settings.String(SelectedPluginKey, ""); id == "" || !a.Navigate(id) {
		for _, p := range plugins {
			if a.Navigate(p.ID()) {
				break
			}
		}
	}

	for _, d := range a.docks.Docks() {
		a.presenter.AddDock(d)
	}

	a.logger.WithFields(map[string]any{
		"plugins": len(plugins),
		"docks":   a.docks.Registry().Len(),
	}).Info("application running")
	return nil
}

// Navigate makes the plugin with id current and remembers the selection.
// It returns false when the plugin is missing or has no navigation entry.
func (a *Application) Navigate(id string) bool {
	p, ok := a.plugins.Plugin(id)
	if !ok || p.Navigation() == nil {
		return false
	}

	a.presenter.Navigate(p)
	if err := a.settings.SetValue(SelectedPluginKey, id); err != nil {
		a.logger.WithError(err).Warn("storing selected plugin")
	}
	return true
}

// Serve runs the interactive loop until ctx is done or Close is called.
func (a *Application) Serve(ctx context.Context) error {
	return a.loop.Run(ctx)
}

// Close waits for background tasks, drains the loop, persists the enabled
// modules when any are known and closes the setting store. It is safe to
// call more than once.
func (a *Application) Close() error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}

	a.runner.Wait()
	a.loop.RunPending()

	var errs []error
	if a.plugins.Modules().Len() > 0 {
		if err := a.plugins.PersistEnabled(a.enabled); err != nil {
			errs = append(errs, err)
		}
	}
	for i := len(a.stop) - 1; i >= 0; i-- {
		if err := a.stop[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.stop = nil
	a.loop.Close()

	a.logger.Info("application closed")
	return errors.Join(errs...)
}
