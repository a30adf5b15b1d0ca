package plugin

import (
	"errors"
	"fmt"

	"github.com/dshills/appshell/internal/module"
)

// ScanResult is the outcome of Scan, ready to be applied.
type ScanResult struct {
	// Modules are the modules read from the repository files, in order.
	Modules []*module.Module
	// Loaded lists the enabled modules in order with their plugins.
	Loaded []LoadedModule
}

// LoadedModule is an enabled module and the plugins found in it.
type LoadedModule struct {
	Module  *module.Module
	Plugins []Plugin

	// known modules were already in the list when Scan ran; index is then a
	// list position, otherwise a position in ScanResult.Modules.
	known bool
	index int
}

// Scan performs the blocking part of Load: it reads the repository files and
// runs the loader over each module whose id is in enabledIDs, first the
// known modules then the ones read from the files, in order. known is a
// snapshot of the module list taken by the caller. Scan does not touch the
// module list or the plugin registry and is safe to call from a worker
// goroutine.
//
// Scan stops at the first failure and returns the partial result together
// with the error. With an isolating loader, unit failures are collected and
// scanning continues.
func (s *Service) Scan(known []*module.Module, repositoryFiles, enabledIDs []string) (*ScanResult, error) {
	result := &ScanResult{}

	for _, path := range repositoryFiles {
		repo, err := module.LoadRepository(path)
		if err != nil {
			return result, fmt.Errorf("repository %s: %w", path, err)
		}
		result.Modules = append(result.Modules, repo.Modules()...)
	}

	enabled := make(map[string]bool, len(enabledIDs))
	for _, id := range enabledIDs {
		enabled[id] = true
	}

	var unitErrs []error
	scan := func(m *module.Module, index int, isKnown bool) error {
		if !enabled[m.ID] {
			return nil
		}

		plugins, err := s.loadModule(m)
		result.Loaded = append(result.Loaded, LoadedModule{
			Module:  m,
			Plugins: plugins,
			known:   isKnown,
			index:   index,
		})
		if err != nil {
			if !s.loader.Isolated() {
				return err
			}
			s.logger.WithError(err).Warn("module %s loaded with errors", m.ID)
			unitErrs = append(unitErrs, err)
		}
		return nil
	}

	for i, m := range known {
		if err := scan(m, i, true); err != nil {
			return result, err
		}
	}
	for i, m := range result.Modules {
		if err := scan(m, i, false); err != nil {
			return result, err
		}
	}

	return result, errors.Join(unitErrs...)
}

// Apply appends the scanned modules, marks the loaded ones enabled and
// registers their plugins, in the same order Load would. It must be called
// from the interactive goroutine.
func (s *Service) Apply(result *ScanResult) error {
	if result == nil {
		return nil
	}

	offset := s.modules.Len()
	s.modules.Append(result.Modules...)

	for _, loaded := range result.Loaded {
		if loaded.known {
			s.enable(loaded.Module)
		} else {
			s.modules.SetEnabled(offset+loaded.index, true)
		}
		if err := s.addPlugins(loaded.Module, loaded.Plugins); err != nil {
			return err
		}
	}
	return nil
}
