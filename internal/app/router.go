package app

import (
	"errors"
	"fmt"

	"github.com/dshills/appshell/internal/dock"
	"github.com/dshills/appshell/internal/logging"
	"github.com/dshills/appshell/internal/plugin"
	"github.com/dshills/appshell/internal/registry"
	"github.com/dshills/appshell/internal/setting"
)

// Router forwards each registrable of an added plugin to the service of its
// capability. The set of capabilities is closed: docks and settings. A
// registrable implementing both goes to both services.
type Router struct {
	docks    *dock.Service
	settings *setting.Service
	logger   *logging.Logger
}

// NewRouter creates a Router.
func NewRouter(docks *dock.Service, settings *setting.Service, logger *logging.Logger) *Router {
	return &Router{
		docks:    docks,
		settings: settings,
		logger:   logging.OrNop(logger).WithComponent("router"),
	}
}

// Route registers every registrable of p with its service, in order.
// Registrables matching no capability are skipped. Failures do not stop the
// remaining registrables; they are joined in the returned error.
func (r *Router) Route(p plugin.Plugin) error {
	var errs []error
	for _, item := range p.Registrables() {
		err := r.route(item)
		switch {
		case err == nil:
		case errors.Is(err, ErrUnknownCapability):
			r.logger.Debug("plugin %q: ignoring %T %q", p.ID(), item, item.ID())
		default:
			errs = append(errs, &RouteError{Plugin: p.ID(), ID: item.ID(), Err: err})
		}
	}
	return errors.Join(errs...)
}

func (r *Router) route(item registry.Registrable) error {
	matched := false
	var errs []error
	if d, ok := item.(dock.Dock); ok {
		matched = true
		if err := r.docks.AddDock(d); err != nil {
			errs = append(errs, err)
		}
	}
	if st, ok := item.(setting.Setting); ok {
		matched = true
		if err := r.settings.AddSetting(st); err != nil {
			errs = append(errs, err)
		}
	}
	if !matched {
		return fmt.Errorf("%w: %T", ErrUnknownCapability, item)
	}
	return errors.Join(errs...)
}

// Subscribe routes every plugin added to svc from now on. Routing errors are
// logged. The returned func unsubscribes.
func (r *Router) Subscribe(svc *plugin.Service) func() {
	return svc.OnPluginAdded(func(p plugin.Plugin) {
		if err := r.Route(p); err != nil {
			r.logger.WithError(err).Error("routing plugin %q", p.ID())
		}
	})
}
