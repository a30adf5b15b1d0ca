package loader

// Kind is a capability kind. The set is closed: every class a code unit
// declares derives from exactly one of the capability roots.
type Kind int

const (
	// KindRegistrable is the root of every capability.
	KindRegistrable Kind = iota
	// KindPlugin is a navigable extension with auxiliary registrables.
	KindPlugin
	// KindDock is a dockable panel.
	KindDock
	// KindSetting is a persisted preference.
	KindSetting
)

// Kinds lists every capability kind.
var Kinds = []Kind{KindRegistrable, KindPlugin, KindDock, KindSetting}

// String returns the root class name of the kind, as seen from Lua.
func (k Kind) String() string {
	switch k {
	case KindRegistrable:
		return "Registrable"
	case KindPlugin:
		return "Plugin"
	case KindDock:
		return "Dock"
	case KindSetting:
		return "Setting"
	default:
		return "Unknown"
	}
}

// ParseKind returns the kind with the given root name.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if k.String() == s {
			return k, true
		}
	}
	return KindRegistrable, false
}
