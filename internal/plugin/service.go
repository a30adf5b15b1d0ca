package plugin

import (
	"fmt"

	"github.com/dshills/appshell/internal/loader"
	"github.com/dshills/appshell/internal/logging"
	"github.com/dshills/appshell/internal/module"
	"github.com/dshills/appshell/internal/registry"
)

// Service owns the module list and the plugin registry.
//
// Mutating methods must be called from the interactive goroutine. Scan is
// the exception: it only reads the filesystem and may run on a worker.
type Service struct {
	registry *registry.Registry[Plugin]
	modules  *module.List
	loader   *loader.Loader
	args     loader.Args
	logger   *logging.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLoadArgs sets the arguments passed to every plugin class and to the
// classes nested in it.
func WithLoadArgs(args loader.Args) Option {
	return func(s *Service) {
		s.args = args
	}
}

// NewService creates a Service and registers the plugin factory on l. A nil
// loader is replaced by a default one.
func NewService(l *loader.Loader, logger *logging.Logger, opts ...Option) *Service {
	logger = logging.OrNop(logger)
	if l == nil {
		l = loader.New(loader.WithLogger(logger))
	}
	l.Register(loader.KindPlugin, NewFromScript)

	s := &Service{
		registry: registry.New[Plugin](),
		modules:  module.NewList(logger),
		loader:   l,
		logger:   logger.WithComponent("plugins"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the plugin registry.
func (s *Service) Registry() *registry.Registry[Plugin] {
	return s.registry
}

// Modules returns the module list.
func (s *Service) Modules() *module.List {
	return s.modules
}

// EnabledModules returns the enabled modules in list order.
func (s *Service) EnabledModules() []*module.Module {
	return s.modules.Enabled()
}

// Plugin returns the plugin with id.
func (s *Service) Plugin(id string) (Plugin, bool) {
	return s.registry.Get(id)
}

// Plugins returns every plugin in registration order.
func (s *Service) Plugins() []Plugin {
	return s.registry.Items()
}

// OnPluginAdded subscribes fn to plugin additions. The returned func
// unsubscribes.
func (s *Service) OnPluginAdded(fn func(Plugin)) func() {
	return s.registry.OnAdded(func(p Plugin) {
		fn(p)
	})
}

// AddModule appends m to the module list.
func (s *Service) AddModule(m *module.Module) {
	s.modules.Append(m)
}

// AddModulesFromRepository reads the manifest at path and appends a disabled
// module for each of its entries.
func (s *Service) AddModulesFromRepository(path string) error {
	repo, err := module.LoadRepository(path)
	if err != nil {
		return fmt.Errorf("repository %s: %w", path, err)
	}
	s.modules.Append(repo.Modules()...)
	return nil
}

// AddPlugin registers p.
func (s *Service) AddPlugin(p Plugin) error {
	if err := s.registry.Add(p); err != nil {
		return err
	}
	s.logger.Debug("added plugin %q (priority %d)", p.ID(), p.Priority())
	return nil
}

// AddPluginsFromModule marks m enabled, loads its plugins and registers
// them. The module stays enabled when loading fails. With an isolating
// loader the plugins of the healthy code units are registered and the unit
// errors are returned.
func (s *Service) AddPluginsFromModule(m *module.Module) error {
	s.enable(m)

	plugins, err := s.loadModule(m)
	if addErr := s.addPlugins(m, plugins); addErr != nil {
		return addErr
	}
	return err
}

func (s *Service) addPlugins(m *module.Module, plugins []Plugin) error {
	for _, p := range plugins {
		if err := s.AddPlugin(p); err != nil {
			return fmt.Errorf("module %s: %w", m.ID, err)
		}
	}
	return nil
}

func (s *Service) enable(m *module.Module) {
	for i, existing := range s.modules.Items() {
		if existing == m {
			s.modules.SetEnabled(i, true)
			return
		}
	}
	m.Enabled = true
}

func (s *Service) loadModule(m *module.Module) ([]Plugin, error) {
	plugins, err := loader.LoadAs[Plugin](s.loader, m.Path, loader.KindPlugin, s.args)
	if err != nil {
		return plugins, fmt.Errorf("module %s: %w", m.ID, err)
	}
	return plugins, nil
}

// Load appends the modules of every repository file, then loads the plugins
// of each module in the list whose id is in enabledIDs, including modules
// added before the call.
//
// Load stops at the first failure; work done before it is kept.
func (s *Service) Load(repositoryFiles, enabledIDs []string) error {
	result, err := s.Scan(s.modules.Items(), repositoryFiles, enabledIDs)
	if applyErr := s.Apply(result); applyErr != nil {
		return applyErr
	}
	return err
}
