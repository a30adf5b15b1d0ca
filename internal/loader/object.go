package loader

import (
	"fmt"

	glua "github.com/yuin/gopher-lua"

	"github.com/dshills/appshell/internal/registry"
)

// Args are extra constructor arguments forwarded verbatim to every factory
// and to the Lua init method.
type Args map[string]any

// Factory builds the Go object for a script instance of one capability kind.
type Factory func(obj *Object, args Args) (registry.Registrable, error)

// Object is a script instance handed to a Factory. It is only valid for the
// duration of the factory call: factories copy what they need.
type Object struct {
	unit  *unit
	class *Class
	table *glua.LTable

	nested     []registry.Registrable
	nestedDone bool
}

// Class returns the class of the instance.
func (o *Object) Class() *Class {
	return o.class
}

// Path returns the code unit the class was declared in.
func (o *Object) Path() string {
	return o.unit.path
}

// ID returns the instance's id field, or the class name when it has none.
func (o *Object) ID() string {
	if id, ok := o.unit.bridge.GetString(o.table, "id"); ok && id != "" {
		return id
	}
	return o.class.Name
}

// String returns a string field, or "" when it is absent.
func (o *Object) String(key string) string {
	s, _ := o.unit.bridge.GetString(o.table, key)
	return s
}

// Int returns an integer field, or def when it is absent.
func (o *Object) Int(key string, def int) int {
	if n, ok := o.unit.bridge.GetInt(o.table, key); ok {
		return n
	}
	return def
}

// Bool returns a boolean field, or def when it is absent.
func (o *Object) Bool(key string, def bool) bool {
	if v, ok := o.unit.bridge.GetBool(o.table, key); ok {
		return v
	}
	return def
}

// Value returns a field converted to a Go value.
func (o *Object) Value(key string) any {
	return o.unit.bridge.ToGoValue(o.unit.state.LuaState().GetField(o.table, key))
}

// Registrables instantiates the classes listed in the registrables field.
// Each class is instantiated once; later calls return the same objects.
func (o *Object) Registrables() ([]registry.Registrable, error) {
	if o.nestedDone {
		return o.nested, nil
	}

	list, ok := o.unit.bridge.GetTable(o.table, "registrables")
	if !ok {
		o.nestedDone = true
		return nil, nil
	}

	items := make([]registry.Registrable, 0, list.Len())
	for i := 1; i <= list.Len(); i++ {
		cls, err := o.unit.classOf(list.RawGetInt(i))
		if err != nil {
			return nil, fmt.Errorf("registrables[%d]: %w", i, err)
		}
		item, err := o.unit.instantiate(cls)
		if err != nil {
			return nil, fmt.Errorf("registrables[%d]: %w", i, err)
		}
		items = append(items, item)
	}

	o.nested = items
	o.nestedDone = true
	return items, nil
}

// Basic is the Go object built for plain registrables.
type Basic struct {
	id     string
	class  string
	fields map[string]any
}

// NewBasic builds a Basic from a script instance.
func NewBasic(obj *Object, _ Args) (registry.Registrable, error) {
	fields, _ := obj.Value("fields").(map[string]any)
	return &Basic{
		id:     obj.ID(),
		class:  obj.Class().Name,
		fields: fields,
	}, nil
}

// ID returns the registrable id.
func (b *Basic) ID() string { return b.id }

// ClassName returns the declaring class name.
func (b *Basic) ClassName() string { return b.class }

// Field returns a value from the class's fields table.
func (b *Basic) Field(key string) (any, bool) {
	v, ok := b.fields[key]
	return v, ok
}
