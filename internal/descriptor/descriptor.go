// Package descriptor is the language-neutral description of the data types
// that get converted into protobuf messages. A front end (reflection, a parsed
// schema file, hand-written YAML) builds a graph of *Type values; the converter
// never inspects a host runtime itself.
package descriptor

type Kind int

const (
	KindPrimitive Kind = iota
	KindEnum
	KindRecord
	KindSealed
)

func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindEnum:
		return "enum"
	case KindRecord:
		return "record"
	case KindSealed:
		return "sealed"
	default:
		return "unknown"
	}
}

type Type struct {
	Name      string
	Package   string
	Kind      Kind
	Skip      bool
	Fields    []Field
	Constants []Constant
	Variants  []*Type
	// Discriminator is the property a sealed type's variants carry their tag in.
	Discriminator string
	// Tag is the discriminator value of a sealed variant. Empty means Name.
	Tag  string
	File *FileMeta
}

// Identity is the canonical package-qualified name used to deduplicate
// conversions.
func (t *Type) Identity() string {
	if t.Package == "" {
		return t.Name
	}
	return t.Package + "." + t.Name
}

func (t *Type) TypeTag() string {
	if t.Tag != "" {
		return t.Tag
	}
	return t.Name
}

func (t *Type) Field(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

type Field struct {
	Name string
	Type TypeRef
	// Index is an explicit wire index override. Zero means none.
	Index int
	Skip  bool
}

type TypeRef struct {
	Type     *Type
	Nullable bool
	Args     []TypeRef
}

type Constant struct {
	Name  string
	Index int
	Skip  bool
}

type FileMeta struct {
	Name         string
	Table        string
	Schema       string
	Polymorphism []string
}

func Ref(t *Type) TypeRef {
	return TypeRef{Type: t}
}

func Nullable(t *Type) TypeRef {
	return TypeRef{Type: t, Nullable: true}
}

func ListOf(elem TypeRef) TypeRef {
	return TypeRef{Type: List, Args: []TypeRef{elem}}
}

func SetOf(elem TypeRef) TypeRef {
	return TypeRef{Type: SetType, Args: []TypeRef{elem}}
}

func MapOf(key, value TypeRef) TypeRef {
	return TypeRef{Type: Map, Args: []TypeRef{key, value}}
}
