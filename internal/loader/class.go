package loader

import (
	"fmt"
	"sort"

	glua "github.com/yuin/gopher-lua"

	"github.com/dshills/appshell/internal/loader/lua"
	"github.com/dshills/appshell/internal/registry"
)

// ModuleName is the name of the host module preloaded into every code unit.
const ModuleName = "shell"

// Class is a class declared by a code unit with shell.class.
type Class struct {
	// Name is the global the class is bound to. Classes only reachable
	// through another class (nested registrables) have no name.
	Name string

	// Kind is the capability kind inherited from the nearest root.
	Kind Kind

	table *glua.LTable
	base  *Class
	root  bool
	seq   int
}

// IsRoot reports whether c is one of the capability roots.
func (c *Class) IsRoot() bool {
	return c.root
}

// Derives reports whether c is a strict descendant of the root of kind.
func (c *Class) Derives(kind Kind) bool {
	for p := c.base; p != nil; p = p.base {
		if p.root && p.Kind == kind {
			return true
		}
	}
	return false
}

// unit is one code unit being loaded. It owns the Lua state for the
// duration of the load.
type unit struct {
	loader *Loader
	path   string
	args   Args

	state  *lua.State
	bridge *lua.Bridge

	classes map[*glua.LTable]*Class
	nextSeq int

	// active holds the classes being instantiated, outermost first.
	active map[*Class]bool
}

func newUnit(l *Loader, path string, args Args) *unit {
	state := lua.NewState(l.stateOpts...)
	u := &unit{
		loader:  l,
		path:    path,
		args:    args,
		state:   state,
		bridge:  lua.NewBridge(state.LuaState()),
		classes: make(map[*glua.LTable]*Class),
		active:  make(map[*Class]bool),
	}
	u.installModule()
	return u
}

// installModule builds the shell module: the capability roots, class and log.
func (u *unit) installModule() {
	L := u.state.LuaState()
	mod := L.NewTable()

	var parent *Class
	for _, kind := range Kinds {
		tbl := L.NewTable()
		cls := &Class{
			Name:  kind.String(),
			Kind:  kind,
			table: tbl,
			root:  true,
		}
		// Plugin, Dock and Setting all derive from Registrable.
		if parent != nil {
			cls.base = parent
			setIndex(L, tbl, parent.table)
		} else {
			parent = cls
		}
		u.classes[tbl] = cls
		mod.RawSetString(kind.String(), tbl)
	}

	mod.RawSetString("class", L.NewFunction(u.declare))
	mod.RawSetString("is_class", L.NewFunction(func(L *glua.LState) int {
		tbl, ok := L.Get(1).(*glua.LTable)
		_, isClass := u.classes[tbl]
		L.Push(glua.LBool(ok && isClass))
		return 1
	}))
	mod.RawSetString("log", L.NewFunction(func(L *glua.LState) int {
		u.loader.logger.WithField("unit", u.path).Debug("%s", L.CheckString(1))
		return 0
	}))

	u.state.RegisterModule(ModuleName, mod)
}

// declare implements shell.class(base, definition).
func (u *unit) declare(L *glua.LState) int {
	baseTbl := L.CheckTable(1)
	base, ok := u.classes[baseTbl]
	if !ok {
		L.ArgError(1, "base must be a class")
		return 0
	}
	def := L.OptTable(2, L.NewTable())

	tbl := L.NewTable()
	def.ForEach(func(k, v glua.LValue) {
		tbl.RawSet(k, v)
	})
	setIndex(L, tbl, baseTbl)

	u.nextSeq++
	u.classes[tbl] = &Class{
		Kind:  base.Kind,
		table: tbl,
		base:  base,
		seq:   u.nextSeq,
	}

	L.Push(tbl)
	return 1
}

// discover returns the non-root classes bound to globals that derive from
// kind, in declaration order. A class bound to several globals is returned
// once, named after the lexically smallest global.
func (u *unit) discover(kind Kind) []*Class {
	names := make(map[*Class]string)
	u.state.Globals(func(name string, v glua.LValue) {
		tbl, ok := v.(*glua.LTable)
		if !ok {
			return
		}
		cls, ok := u.classes[tbl]
		if !ok || cls.root || !cls.Derives(kind) {
			return
		}
		if existing, seen := names[cls]; !seen || name < existing {
			names[cls] = name
		}
	})

	found := make([]*Class, 0, len(names))
	for cls, name := range names {
		cls.Name = name
		found = append(found, cls)
	}
	sort.Slice(found, func(i, j int) bool {
		return found[i].seq < found[j].seq
	})
	return found
}

// instantiate creates an instance of cls, runs its init method and hands it
// to the factory registered for its kind.
func (u *unit) instantiate(cls *Class) (registry.Registrable, error) {
	if u.active[cls] {
		return nil, fmt.Errorf("%w: %s", ErrRegistrableCycle, cls.label())
	}
	u.active[cls] = true
	defer delete(u.active, cls)

	factory, ok := u.loader.factory(cls.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoFactory, cls.Kind)
	}

	L := u.state.LuaState()
	inst := L.NewTable()
	setIndex(L, inst, cls.table)

	if fn, ok := u.bridge.GetFunc(inst, "init"); ok {
		if _, err := u.state.Call(fn, inst, u.bridge.ToLuaValue(map[string]any(u.args))); err != nil {
			return nil, fmt.Errorf("init: %w", err)
		}
	}

	obj := &Object{unit: u, class: cls, table: inst}
	item, err := factory(obj, u.args)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("factory for %s returned nil", cls.Kind)
	}
	if item.ID() == "" {
		return nil, registry.ErrEmptyID
	}
	return item, nil
}

// label names cls in errors. Nested classes may have no global name.
func (c *Class) label() string {
	if c.Name != "" {
		return c.Name
	}
	return fmt.Sprintf("anonymous %s class #%d", c.Kind, c.seq)
}

// classOf resolves a Lua value to a class declared in this unit.
func (u *unit) classOf(v glua.LValue) (*Class, error) {
	tbl, ok := v.(*glua.LTable)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotAClass, v.Type())
	}
	cls, ok := u.classes[tbl]
	if !ok || cls.root {
		return nil, ErrNotAClass
	}
	return cls, nil
}

func (u *unit) close() {
	_ = u.state.Close()
}

func setIndex(L *glua.LState, tbl, index *glua.LTable) {
	mt := L.NewTable()
	mt.RawSetString("__index", index)
	L.SetMetatable(tbl, mt)
}
