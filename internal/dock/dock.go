// Package dock provides the dockable panel capability and the service that
// owns the dock registry.
package dock

import (
	"github.com/dshills/appshell/internal/loader"
	"github.com/dshills/appshell/internal/logging"
	"github.com/dshills/appshell/internal/registry"
)

// Button is the status-bar toggle of a dock.
type Button struct {
	Icon    string
	Tooltip string
}

// Dock is a dockable panel.
type Dock interface {
	registry.Registrable

	// Title is the panel title.
	Title() string
	// StatusBarButton returns the toggle button, or nil for none.
	StatusBarButton() *Button
}

// Base implements Dock.
type Base struct {
	id     string
	title  string
	button *Button
}

// NewBase creates a Base. A button is only attached when both icon and
// tooltip are given.
func NewBase(id, title, icon, tooltip string) *Base {
	b := &Base{id: id, title: title}
	if icon != "" && tooltip != "" {
		b.button = &Button{Icon: icon, Tooltip: tooltip}
	}
	return b
}

// ID returns the dock id.
func (b *Base) ID() string { return b.id }

// Title returns the panel title.
func (b *Base) Title() string { return b.title }

// StatusBarButton returns the toggle button.
func (b *Base) StatusBarButton() *Button { return b.button }

// NewFromScript is the loader factory for dock classes.
func NewFromScript(obj *loader.Object, _ loader.Args) (registry.Registrable, error) {
	title := obj.String("title")
	if title == "" {
		title = obj.Class().Name
	}
	return NewBase(obj.ID(), title, obj.String("icon"), obj.String("tooltip")), nil
}

// Service owns the dock registry.
type Service struct {
	registry *registry.Registry[Dock]
	logger   *logging.Logger
}

// NewService creates a Service and registers the dock factory on l.
func NewService(l *loader.Loader, logger *logging.Logger) *Service {
	if l != nil {
		l.Register(loader.KindDock, NewFromScript)
	}
	return &Service{
		registry: registry.New[Dock](),
		logger:   logging.OrNop(logger).WithComponent("docks"),
	}
}

// Registry returns the dock registry.
func (s *Service) Registry() *registry.Registry[Dock] {
	return s.registry
}

// AddDock registers a dock.
func (s *Service) AddDock(d Dock) error {
	if err := s.registry.Add(d); err != nil {
		return err
	}
	s.logger.Debug("added dock %q", d.ID())
	return nil
}

// Dock returns the dock with id.
func (s *Service) Dock(id string) (Dock, bool) {
	return s.registry.Get(id)
}

// Docks returns every dock in registration order.
func (s *Service) Docks() []Dock {
	return s.registry.Items()
}
