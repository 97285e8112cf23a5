// Package typemap maps descriptor types to protobuf type names.
package typemap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jptrs93/protogen/internal/descriptor"
	"github.com/jptrs93/protogen/internal/ir"

	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

var (
	ErrArity           = errors.New("wrong number of type arguments")
	ErrNestedContainer = errors.New("nested containers are not supported")
	ErrMissingType     = errors.New("type reference has no type")
)

// EnumSet reports whether a message name belongs to an already converted enum.
type EnumSet interface {
	IsEnum(name string) bool
}

type Mapper struct {
	// Wrappers maps nullable scalars to google.protobuf.*Value messages.
	Wrappers bool
}

// Map resolves the protobuf type of a reference to t.
func (m Mapper) Map(t *descriptor.Type, nullable bool, args []descriptor.TypeRef, enums EnumSet) (ir.TypeDef, error) {
	if t == nil {
		return ir.TypeDef{}, ErrMissingType
	}
	for _, arg := range args {
		if arg.Type == nil {
			return ir.TypeDef{}, fmt.Errorf("%s: %w", t.Name, ErrMissingType)
		}
	}
	def := m.lookup(t, nullable)
	if enums != nil && !descriptor.IsContainer(t) && enums.IsEnum(def.Name) {
		def.Name += ".Enum"
	}

	switch {
	case descriptor.IsRepeated(t):
		if len(args) != 1 {
			return ir.TypeDef{}, fmt.Errorf("%s: expected 1 type argument, found %d: %w", t.Name, len(args), ErrArity)
		}
		if descriptor.IsContainer(args[0].Type) {
			return ir.TypeDef{}, fmt.Errorf("%s<%s>: %w", t.Name, args[0].Type.Name, ErrNestedContainer)
		}
		elem, err := m.Map(args[0].Type, false, args[0].Args, enums)
		if err != nil {
			return ir.TypeDef{}, err
		}
		return ir.TypeDef{Name: "repeated " + elem.Name, Import: elem.Import, Repeated: true}, nil
	case descriptor.IsMap(t):
		if len(args) != 2 {
			return ir.TypeDef{}, fmt.Errorf("%s: expected 2 type arguments, found %d: %w", t.Name, len(args), ErrArity)
		}
		names := make([]string, 0, 2)
		var value ir.TypeDef
		for _, arg := range args {
			if descriptor.IsContainer(arg.Type) {
				return ir.TypeDef{}, fmt.Errorf("%s<..%s..>: %w", t.Name, arg.Type.Name, ErrNestedContainer)
			}
			def, err := m.Map(arg.Type, false, arg.Args, enums)
			if err != nil {
				return ir.TypeDef{}, err
			}
			names = append(names, def.Name)
			value = def
		}
		return ir.TypeDef{Name: "map<" + strings.Join(names, ", ") + ">", Import: value.Import, Map: true}, nil
	default:
		return def, nil
	}
}

func (m Mapper) lookup(t *descriptor.Type, nullable bool) ir.TypeDef {
	table := scalars
	if m.Wrappers {
		table = withWrappers
	}
	key := t.Identity()
	if nullable {
		key += "?"
	}
	if def, ok := table[key]; ok {
		return def
	}
	return ir.TypeDef{Name: t.Name}
}

func wellKnown(file protoreflect.FileDescriptor, name protoreflect.Name) ir.TypeDef {
	msg := file.Messages().ByName(name)
	if msg == nil {
		panic(fmt.Sprintf("typemap: %s not found in %s", name, file.Path()))
	}
	return ir.TypeDef{Name: string(msg.FullName()), Import: file.Path()}
}

var (
	timestampType = wellKnown(timestamppb.File_google_protobuf_timestamp_proto, "Timestamp")
	durationType  = wellKnown(durationpb.File_google_protobuf_duration_proto, "Duration")
	anyType       = wellKnown(anypb.File_google_protobuf_any_proto, "Any")
)

func wrapper(name protoreflect.Name) ir.TypeDef {
	return wellKnown(wrapperspb.File_google_protobuf_wrappers_proto, name)
}

type mapping struct {
	typ     *descriptor.Type
	scalar  ir.TypeDef
	wrapped ir.TypeDef
}

// Single precision is upgraded to double on purpose.
var mappings = []mapping{
	{descriptor.Int, ir.TypeDef{Name: "int32"}, wrapper("Int32Value")},
	{descriptor.Long, ir.TypeDef{Name: "int64"}, wrapper("Int64Value")},
	{descriptor.Bool, ir.TypeDef{Name: "bool"}, wrapper("BoolValue")},
	{descriptor.Float, ir.TypeDef{Name: "double"}, wrapper("DoubleValue")},
	{descriptor.Double, ir.TypeDef{Name: "double"}, wrapper("DoubleValue")},
	{descriptor.Decimal, ir.TypeDef{Name: "double"}, wrapper("DoubleValue")},
	{descriptor.String, ir.TypeDef{Name: "string"}, wrapper("StringValue")},
	{descriptor.Bytes, ir.TypeDef{Name: "bytes"}, wrapper("BytesValue")},
	{descriptor.UUID, ir.TypeDef{Name: "string"}, wrapper("StringValue")},
	{descriptor.ZoneID, ir.TypeDef{Name: "string"}, wrapper("StringValue")},
	{descriptor.LocalDate, ir.TypeDef{Name: "string"}, wrapper("StringValue")},
	{descriptor.LocalTime, ir.TypeDef{Name: "string"}, wrapper("StringValue")},
	{descriptor.Instant, timestampType, timestampType},
	{descriptor.ZonedDateTime, timestampType, timestampType},
	{descriptor.Duration, durationType, durationType},
	{descriptor.Any, anyType, anyType},
}

var (
	scalars      = map[string]ir.TypeDef{}
	withWrappers = map[string]ir.TypeDef{}
)

func init() {
	for _, m := range mappings {
		id := m.typ.Identity()
		scalars[id] = m.scalar
		scalars[id+"?"] = m.scalar
		withWrappers[id] = m.scalar
		withWrappers[id+"?"] = m.wrapped
	}
}
