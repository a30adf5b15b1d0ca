package app

import (
	"github.com/dshills/appshell/internal/dock"
	"github.com/dshills/appshell/internal/plugin"
)

// Presenter displays what the application hands it. It is called on the
// interactive goroutine with fully constructed objects.
type Presenter interface {
	// AddNavigation shows the navigation entry of p.
	AddNavigation(p plugin.Plugin)
	// Navigate makes p the current page.
	Navigate(p plugin.Plugin)
	// AddDock places d in the window.
	AddDock(d dock.Dock)
}

// NopPresenter discards everything.
type NopPresenter struct{}

func (NopPresenter) AddNavigation(plugin.Plugin) {}
func (NopPresenter) Navigate(plugin.Plugin)      {}
func (NopPresenter) AddDock(dock.Dock)           {}
