// Package parser reads existing proto3 files into a generation snapshot, so a
// project with hand-maintained schemas can switch to evolution numbering
// without renumbering anything.
package parser

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/jptrs93/protogen/internal/ir"

	"github.com/bufbuild/protocompile"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// maxReservedSpan bounds how many numbers a single reserved range may expand
// to. "reserved 1000 to max" cannot be represented entry by entry.
const maxReservedSpan = 4096

type Parser struct {
	ImportPaths []string
	// Accessor overrides how source files are opened. Defaults to os.Open.
	Accessor func(path string) (io.ReadCloser, error)
}

func (p *Parser) Parse(ctx context.Context, filePaths []string) (*ir.ProtoDef, error) {
	accessor := p.Accessor
	if accessor == nil {
		accessor = func(path string) (io.ReadCloser, error) {
			return os.Open(path)
		}
	}
	resolver := &protocompile.SourceResolver{
		ImportPaths: p.ImportPaths,
		Accessor:    accessor,
	}
	compiler := protocompile.Compiler{
		Resolver: protocompile.WithStandardImports(resolver),
	}
	files, err := compiler.Compile(ctx, filePaths...)
	if err != nil {
		return nil, err
	}

	byName := map[protoreflect.FullName]*ir.ClassDef{}
	var variants []pendingVariants
	def := &ir.ProtoDef{}
	for _, file := range files {
		irFile, pending, err := fileToIR(file, byName)
		if err != nil {
			return nil, err
		}
		def.Files = append(def.Files, irFile)
		variants = append(variants, pending...)
	}
	for _, v := range variants {
		for _, name := range v.names {
			sub, ok := byName[name]
			if !ok {
				return nil, fmt.Errorf("%s: oneof variant %s is not defined in the parsed files", v.class.Identity, name)
			}
			v.class.SealedSubclasses = append(v.class.SealedSubclasses, sub)
		}
	}
	return def, nil
}

// pendingVariants are the oneof members of a sealed message, linked once every
// file has been read.
type pendingVariants struct {
	class *ir.ClassDef
	names []protoreflect.FullName
}

func fileToIR(file protoreflect.FileDescriptor, byName map[protoreflect.FullName]*ir.ClassDef) (ir.FileDef, []pendingVariants, error) {
	if file.Syntax() != protoreflect.Proto3 {
		return ir.FileDef{}, nil, fmt.Errorf("only proto3 is supported: %s", file.Path())
	}
	out := ir.FileDef{
		Name:    file.Path(),
		Package: string(file.Package()),
	}
	for i := 0; i < file.Imports().Len(); i++ {
		out.Imports = append(out.Imports, file.Imports().Get(i).Path())
	}
	slices.Sort(out.Imports)

	for i := 0; i < file.Enums().Len(); i++ {
		class, err := enumToIR(file.Enums().Get(i), file)
		if err != nil {
			return ir.FileDef{}, nil, err
		}
		byName[file.Enums().Get(i).FullName()] = class
		out.Classes = append(out.Classes, class)
	}
	classes, pending, err := collectMessages(file.Messages(), file, byName)
	if err != nil {
		return ir.FileDef{}, nil, err
	}
	out.Classes = append(out.Classes, classes...)
	return out, pending, nil
}

func collectMessages(messages protoreflect.MessageDescriptors, file protoreflect.FileDescriptor, byName map[protoreflect.FullName]*ir.ClassDef) ([]*ir.ClassDef, []pendingVariants, error) {
	var result []*ir.ClassDef
	var pending []pendingVariants
	for i := 0; i < messages.Len(); i++ {
		msg := messages.Get(i)
		if msg.IsMapEntry() {
			continue
		}
		class := &ir.ClassDef{
			Name:     string(msg.Name()),
			Package:  string(file.Package()),
			Identity: string(msg.FullName()),
			Meta:     ir.Meta{Name: file.Path()},
		}
		switch {
		case isEnumWrapper(msg):
			wrapped, err := enumToIR(msg.Enums().Get(0), file)
			if err != nil {
				return nil, nil, err
			}
			class.IsEnum = true
			class.Fields = wrapped.Fields
		case isSealed(msg):
			var names []protoreflect.FullName
			for j := 0; j < msg.Fields().Len(); j++ {
				names = append(names, msg.Fields().Get(j).Message().FullName())
			}
			pending = append(pending, pendingVariants{class: class, names: names})
		default:
			fields, err := collectFields(msg, file)
			if err != nil {
				return nil, nil, err
			}
			class.Fields = fields
		}
		byName[msg.FullName()] = class
		result = append(result, class)

		nested, nestedPending, err := collectMessages(msg.Messages(), file, byName)
		if err != nil {
			return nil, nil, err
		}
		result = append(result, nested...)
		pending = append(pending, nestedPending...)
	}
	return result, pending, nil
}

// isEnumWrapper matches the message Name { enum Enum { ... } } shape that
// enums are emitted in.
func isEnumWrapper(msg protoreflect.MessageDescriptor) bool {
	return msg.Fields().Len() == 0 &&
		msg.Messages().Len() == 0 &&
		msg.Enums().Len() == 1 &&
		msg.Enums().Get(0).Name() == "Enum"
}

// isSealed matches a message made of a single oneof of message fields.
func isSealed(msg protoreflect.MessageDescriptor) bool {
	oneofs := msg.Oneofs()
	if oneofs.Len() != 1 || oneofs.Get(0).IsSynthetic() {
		return false
	}
	if oneofs.Get(0).Fields().Len() != msg.Fields().Len() {
		return false
	}
	for i := 0; i < msg.Fields().Len(); i++ {
		if msg.Fields().Get(i).Kind() != protoreflect.MessageKind {
			return false
		}
	}
	return msg.Fields().Len() > 0
}

func enumToIR(enum protoreflect.EnumDescriptor, file protoreflect.FileDescriptor) (*ir.ClassDef, error) {
	class := &ir.ClassDef{
		Name:     string(enum.Name()),
		Package:  string(file.Package()),
		Identity: string(enum.FullName()),
		IsEnum:   true,
		Meta:     ir.Meta{Name: file.Path()},
	}
	if parent, ok := enum.Parent().(protoreflect.MessageDescriptor); ok {
		class.Name = string(parent.Name())
		class.Identity = string(parent.FullName())
	}
	values := enum.Values()
	for i := 0; i < values.Len(); i++ {
		v := values.Get(i)
		class.Fields = append(class.Fields, ir.EnumValue(string(v.Name()), int(v.Number()), false))
	}
	ranges := enum.ReservedRanges()
	for i := 0; i < ranges.Len(); i++ {
		// Enum reserved ranges are inclusive.
		r := ranges.Get(i)
		numbers, err := reservedNumbers(enum.FullName(), int(r[0]), int(r[1])+1)
		if err != nil {
			return nil, err
		}
		for _, n := range numbers {
			class.Fields = append(class.Fields, ir.EnumValue("", n, true))
		}
	}
	sortByIndex(class.Fields)
	return class, nil
}

func collectFields(msg protoreflect.MessageDescriptor, file protoreflect.FileDescriptor) ([]ir.FieldDef, error) {
	var result []ir.FieldDef
	fields := msg.Fields()
	for i := 0; i < fields.Len(); i++ {
		field := fields.Get(i)
		if oneof := field.ContainingOneof(); oneof != nil && !oneof.IsSynthetic() {
			return nil, fmt.Errorf("oneof mixed with plain fields is not supported: %s", field.FullName())
		}
		result = append(result, ir.FieldDef{
			Kind:         ir.FieldGeneric,
			Name:         field.JSONName(),
			Index:        int(field.Number()),
			Type:         typeOf(field, file),
			OriginalType: string(field.FullName()),
			Import:       importOf(field),
			Nullable:     field.HasOptionalKeyword(),
		})
	}

	ranges := msg.ReservedRanges()
	for i := 0; i < ranges.Len(); i++ {
		// Message reserved ranges are half-open.
		r := ranges.Get(i)
		numbers, err := reservedNumbers(msg.FullName(), int(r[0]), int(r[1]))
		if err != nil {
			return nil, err
		}
		for _, n := range numbers {
			result = append(result, ir.FieldDef{
				Kind:         ir.FieldGeneric,
				Index:        n,
				Skip:         true,
				Type:         ir.TypeDef{Name: "Skipped"},
				OriginalType: "Skipped",
				Nullable:     true,
			})
		}
	}
	sortByIndex(result)
	return result, nil
}

// reservedNumbers expands the half-open range [start, end).
func reservedNumbers(owner protoreflect.FullName, start, end int) ([]int, error) {
	if end-start > maxReservedSpan {
		return nil, fmt.Errorf("%s: reserved range %d to %d is too wide to import", owner, start, end-1)
	}
	numbers := make([]int, 0, end-start)
	for n := start; n < end; n++ {
		numbers = append(numbers, n)
	}
	return numbers, nil
}

func typeOf(field protoreflect.FieldDescriptor, file protoreflect.FileDescriptor) ir.TypeDef {
	if field.IsMap() {
		key := typeOf(field.MapKey(), file)
		value := typeOf(field.MapValue(), file)
		return ir.TypeDef{Name: "map<" + key.Name + ", " + value.Name + ">", Import: value.Import, Map: true}
	}
	def := ir.TypeDef{Name: field.Kind().String(), Import: importOf(field)}
	switch field.Kind() {
	case protoreflect.MessageKind, protoreflect.GroupKind:
		def.Name = relativeName(field.Message().FullName(), file)
	case protoreflect.EnumKind:
		def.Name = relativeName(field.Enum().FullName(), file)
	}
	if field.IsList() {
		def.Name = "repeated " + def.Name
		def.Repeated = true
	}
	return def
}

func relativeName(name protoreflect.FullName, file protoreflect.FileDescriptor) string {
	if pkg := string(file.Package()); pkg != "" {
		if rest, ok := strings.CutPrefix(string(name), pkg+"."); ok {
			return rest
		}
	}
	return string(name)
}

// importOf is the file defining the field's message or enum type.
func importOf(field protoreflect.FieldDescriptor) string {
	if field.IsMap() {
		return importOf(field.MapValue())
	}
	switch {
	case field.Message() != nil:
		return field.Message().ParentFile().Path()
	case field.Enum() != nil:
		return field.Enum().ParentFile().Path()
	default:
		return ""
	}
}

func sortByIndex(fields []ir.FieldDef) {
	slices.SortStableFunc(fields, func(a, b ir.FieldDef) int {
		return a.Index - b.Index
	})
}
