package lua

import (
	"reflect"
	"testing"

	glua "github.com/yuin/gopher-lua"
)

func TestBridgeToGoValue(t *testing.T) {
	state := NewState()
	defer state.Close()
	b := NewBridge(state.LuaState())

	if err := state.DoString(`
		list = {"a", "b"}
		record = {name = "x", count = 3, ratio = 0.5, on = true}
	`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}

	list := b.ToGoValue(state.GetGlobal("list"))
	if want := []any{"a", "b"}; !reflect.DeepEqual(list, want) {
		t.Errorf("list = %#v, want %#v", list, want)
	}

	record := b.ToGoValue(state.GetGlobal("record"))
	want := map[string]any{"name": "x", "count": int64(3), "ratio": 0.5, "on": true}
	if !reflect.DeepEqual(record, want) {
		t.Errorf("record = %#v, want %#v", record, want)
	}
}

func TestBridgeToLuaValue_Userdata(t *testing.T) {
	state := NewState()
	defer state.Close()
	b := NewBridge(state.LuaState())

	type host struct{ name string }
	h := &host{name: "svc"}

	lv := b.ToLuaValue(h)
	ud, ok := lv.(*glua.LUserData)
	if !ok {
		t.Fatalf("ToLuaValue() = %T, want *LUserData", lv)
	}
	if ud.Value != h {
		t.Error("userdata should carry the original pointer")
	}
	if got := b.ToGoValue(lv); got != h {
		t.Error("ToGoValue() should return the original pointer")
	}
}

func TestBridgeGetFieldFollowsIndex(t *testing.T) {
	state := NewState()
	defer state.Close()
	b := NewBridge(state.LuaState())

	if err := state.DoString(`
		base = {title = "inherited", weight = 7, hidden = false}
		child = setmetatable({}, {__index = base})
	`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}

	child := state.GetGlobal("child").(*glua.LTable)

	if s, ok := b.GetString(child, "title"); !ok || s != "inherited" {
		t.Errorf("GetString() = %q, %v", s, ok)
	}
	if n, ok := b.GetInt(child, "weight"); !ok || n != 7 {
		t.Errorf("GetInt() = %d, %v", n, ok)
	}
	if v, ok := b.GetBool(child, "hidden"); !ok || v {
		t.Errorf("GetBool() = %v, %v", v, ok)
	}
	if _, ok := b.GetString(child, "missing"); ok {
		t.Error("GetString() on missing field should report false")
	}
}
