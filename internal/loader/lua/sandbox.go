package lua

import (
	lua "github.com/yuin/gopher-lua"
)

// ModuleLookup resolves a module name registered on the host side.
type ModuleLookup func(name string) (lua.LValue, bool)

// Sandbox restricts Lua execution to safe operations.
type Sandbox struct {
	L *lua.LState

	lookup ModuleLookup
}

// Functions removed from the global environment.
var dangerousFuncs = []string{
	"dofile",     // Load and execute file
	"loadfile",   // Load file as function
	"load",       // Load string as function
	"loadstring", // Load string as function (deprecated but may exist)
	"module",
	"setfenv",
	"getfenv",
}

// Built-in libraries require may return.
var safeModules = map[string]bool{
	"string": true,
	"table":  true,
	"math":   true,
}

// NewSandbox creates a new sandbox for the Lua state.
func NewSandbox(L *lua.LState, lookup ModuleLookup) *Sandbox {
	return &Sandbox{
		L:      L,
		lookup: lookup,
	}
}

// Install sets up the sandbox restrictions.
func (s *Sandbox) Install() {
	for _, name := range dangerousFuncs {
		s.L.SetGlobal(name, lua.LNil)
	}
	s.installSafeRequire()
}

// installSafeRequire replaces require with a version that only returns
// whitelisted built-ins and host modules. Nothing is ever read from disk.
func (s *Sandbox) installSafeRequire() {
	s.L.SetGlobal("require", s.L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)

		if safeModules[name] {
			L.Push(L.GetGlobal(name))
			return 1
		}
		if s.lookup != nil {
			if mod, ok := s.lookup(name); ok {
				L.Push(mod)
				return 1
			}
		}

		L.RaiseError("module %q is not available", name)
		return 0
	}))
}
