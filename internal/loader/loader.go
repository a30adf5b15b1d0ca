// Package loader discovers code units on disk and instantiates the
// capability classes they declare.
//
// A code unit is a .lua file. It declares classes through the preloaded
// shell module:
//
//	Hello = shell.class(shell.Plugin, {
//	    id = "hello",
//	    priority = 5,
//	    icon = "hello.svg",
//	    tooltip = "Say hello",
//	    registrables = { HelloDock },
//	})
//
// Loading a path with a kind instantiates every class bound to a top-level
// global of each unit that derives from that kind's root. The roots
// themselves (shell.Registrable, shell.Plugin, shell.Dock, shell.Setting)
// are never instantiated, so a unit that re-exports a root yields nothing for
// it. Go objects are built by the Factory registered for the class's kind.
package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dshills/appshell/internal/loader/lua"
	"github.com/dshills/appshell/internal/logging"
	"github.com/dshills/appshell/internal/registry"
)

// CodeUnitExt is the file extension of a code unit.
const CodeUnitExt = ".lua"

// Loader loads code units and builds their capability instances.
type Loader struct {
	mu        sync.RWMutex
	factories map[Kind]Factory

	logger    *logging.Logger
	isolate   bool
	stateOpts []lua.StateOption
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithIsolation makes Load skip failing code units instead of aborting.
// The unit errors are joined and returned alongside the loaded instances.
func WithIsolation() Option {
	return func(l *Loader) {
		l.isolate = true
	}
}

// WithStateOptions sets the options for each code unit's Lua state.
func WithStateOptions(opts ...lua.StateOption) Option {
	return func(l *Loader) {
		l.stateOpts = opts
	}
}

// New creates a Loader. Plain registrables are built with NewBasic until
// another factory is registered for KindRegistrable.
func New(opts ...Option) *Loader {
	l := &Loader{
		factories: make(map[Kind]Factory),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = logging.OrNop(l.logger).WithComponent("loader")

	l.factories[KindRegistrable] = NewBasic
	return l
}

// Register sets the factory for kind, replacing any previous one.
func (l *Loader) Register(kind Kind, factory Factory) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.factories[kind] = factory
}

// Isolated reports whether failing code units are skipped.
func (l *Loader) Isolated() bool {
	return l.isolate
}

func (l *Loader) factory(kind Kind) (Factory, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	f, ok := l.factories[kind]
	return f, ok && f != nil
}

// Load instantiates every class deriving from kind found under path.
//
// A directory is walked recursively with entries in lexical order. A file
// is a code unit only if its name does not start with "." and it has the
// .lua extension; any other file yields nothing. A missing path fails with a
// *LoadError wrapping fs.ErrNotExist.
//
// Load is safe to call from any goroutine; it does not touch registries.
func (l *Loader) Load(path string, kind Kind, args Args) ([]registry.Registrable, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	var (
		items    []registry.Registrable
		unitErrs []error
	)
	err = l.walk(path, info, func(file string) error {
		loaded, err := l.loadUnit(file, kind, args)
		if err != nil {
			if !l.isolate {
				return err
			}
			l.logger.WithError(err).Warn("skipping code unit %s", file)
			unitErrs = append(unitErrs, err)
			return nil
		}
		items = append(items, loaded...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.WithFields(map[string]any{
		"path": path,
		"kind": kind.String(),
	}).Debug("loaded %d instances", len(items))

	return items, errors.Join(unitErrs...)
}

// LoadAs loads path like Load and asserts every instance to T.
func LoadAs[T registry.Registrable](l *Loader, path string, kind Kind, args Args) ([]T, error) {
	items, err := l.Load(path, kind, args)
	if items == nil {
		return nil, err
	}

	typed := make([]T, 0, len(items))
	for _, item := range items {
		t, ok := item.(T)
		if !ok {
			return nil, &LoadError{
				Path: path,
				Err:  fmt.Errorf("%w: %s is %T", ErrTypeMismatch, item.ID(), item),
			}
		}
		typed = append(typed, t)
	}
	return typed, err
}

// walk calls fn for each code unit under path.
func (l *Loader) walk(path string, info os.FileInfo, fn func(string) error) error {
	if !info.IsDir() {
		if !IsCodeUnit(info.Name()) {
			return nil
		}
		return fn(path)
	}

	// ReadDir returns entries sorted by filename.
	entries, err := os.ReadDir(path)
	if err != nil {
		return &LoadError{Path: path, Err: err}
	}
	for _, entry := range entries {
		child := filepath.Join(path, entry.Name())
		childInfo, err := os.Stat(child)
		if err != nil {
			return &LoadError{Path: child, Err: err}
		}
		if err := l.walk(child, childInfo, fn); err != nil {
			return err
		}
	}
	return nil
}

// loadUnit executes a single code unit and instantiates its classes.
func (l *Loader) loadUnit(path string, kind Kind, args Args) ([]registry.Registrable, error) {
	u := newUnit(l, path, args)
	defer u.close()

	if err := u.state.DoFile(path); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	classes := u.discover(kind)
	items := make([]registry.Registrable, 0, len(classes))
	for _, cls := range classes {
		item, err := u.instantiate(cls)
		if err != nil {
			return nil, &LoadError{Path: path, Class: cls.Name, Err: err}
		}
		items = append(items, item)
	}

	l.logger.WithField("unit", path).Debug("instantiated %d classes", len(items))
	return items, nil
}

// IsCodeUnit reports whether a file name denotes a code unit.
func IsCodeUnit(name string) bool {
	return !strings.HasPrefix(name, ".") && filepath.Ext(name) == CodeUnitExt
}
