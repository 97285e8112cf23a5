package descriptor

// BuiltinPackage holds the host built-in types. Its namespace is excluded from
// conversion by default.
const BuiltinPackage = "builtin"

func builtin(name string) *Type {
	return &Type{Name: name, Package: BuiltinPackage, Kind: KindPrimitive}
}

var (
	Int           = builtin("Int")
	Long          = builtin("Long")
	Bool          = builtin("Bool")
	Float         = builtin("Float")
	Double        = builtin("Double")
	Decimal       = builtin("Decimal")
	String        = builtin("String")
	Bytes         = builtin("Bytes")
	UUID          = builtin("UUID")
	ZoneID        = builtin("ZoneID")
	LocalDate     = builtin("LocalDate")
	LocalTime     = builtin("LocalTime")
	Instant       = builtin("Instant")
	ZonedDateTime = builtin("ZonedDateTime")
	Duration      = builtin("Duration")
	Any           = builtin("Any")
	List          = builtin("List")
	SetType       = builtin("Set")
	Map           = builtin("Map")
)

var builtins = map[string]*Type{}

func init() {
	for _, t := range []*Type{
		Int, Long, Bool, Float, Double, Decimal, String, Bytes, UUID, ZoneID,
		LocalDate, LocalTime, Instant, ZonedDateTime, Duration, Any, List, SetType, Map,
	} {
		builtins[t.Name] = t
		builtins[t.Identity()] = t
	}
}

// Builtin returns the builtin type with the given simple or qualified name.
func Builtin(name string) (*Type, bool) {
	t, ok := builtins[name]
	return t, ok
}

// IsRepeated reports whether t is a list-like container.
func IsRepeated(t *Type) bool {
	return t != nil && (t.Identity() == List.Identity() || t.Identity() == SetType.Identity())
}

func IsMap(t *Type) bool {
	return t != nil && t.Identity() == Map.Identity()
}

func IsContainer(t *Type) bool {
	return IsRepeated(t) || IsMap(t)
}
