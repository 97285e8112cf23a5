// Package convert turns a graph of type descriptors into the protobuf schema
// model, keeping wire indices stable across generations.
package convert

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/jptrs93/protogen/internal/descriptor"
	"github.com/jptrs93/protogen/internal/ir"
	"github.com/jptrs93/protogen/internal/typemap"

	"github.com/google/uuid"
)

const DefaultFile = "default.proto"

type Options struct {
	Strategy Strategy
	// Wrappers maps nullable scalars to google.protobuf wrapper messages.
	Wrappers bool
	// DefaultFile receives every type without file metadata.
	DefaultFile string
	// Package is written as the proto package of every file.
	Package string
	// ExcludedNamespaces are identity prefixes that are never converted.
	ExcludedNamespaces []string
	Logger             *slog.Logger
	Now                func() time.Time
	NewID              func() string
}

type Converter struct {
	opts   Options
	mapper typemap.Mapper
}

func New(opts Options) *Converter {
	if opts.DefaultFile == "" {
		opts.DefaultFile = DefaultFile
	}
	if opts.ExcludedNamespaces == nil {
		opts.ExcludedNamespaces = []string{descriptor.BuiltinPackage + "."}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.NewString() }
	}
	return &Converter{opts: opts, mapper: typemap.Mapper{Wrappers: opts.Wrappers}}
}

// Convert converts roots and everything reachable from them. prior is the
// previous generation and is required by StrategyEvolution.
func (c *Converter) Convert(roots []*descriptor.Type, prior *ir.ProtoDef) (*ir.ProtoDef, error) {
	if c.opts.Strategy == StrategyEvolution && prior == nil {
		return nil, ErrPriorRequired
	}
	r := &run{
		Converter: c,
		prior:     prior,
		assign:    assigner{strategy: c.opts.Strategy, prior: prior},
		seen:      map[string]*ir.ClassDef{},
		enums:     map[string]bool{},
	}
	for _, t := range roots {
		if err := r.convert(t); err != nil {
			return nil, err
		}
	}
	files, err := r.group()
	if err != nil {
		return nil, err
	}
	c.opts.Logger.Info("conversion finished",
		"component", "convert",
		"strategy", c.opts.Strategy,
		"types", len(r.order),
		"files", len(files))
	return &ir.ProtoDef{
		GeneratedAt:  c.opts.Now().UTC(),
		GenerationID: c.opts.NewID(),
		Files:        files,
	}, nil
}

// run owns the accumulator of one Convert call.
type run struct {
	*Converter
	prior  *ir.ProtoDef
	assign assigner
	// seen is keyed by identity and filled before a type's members are
	// resolved, which is what stops cycles.
	seen  map[string]*ir.ClassDef
	order []*ir.ClassDef
	enums map[string]bool
}

func (r *run) IsEnum(name string) bool {
	return r.enums[name]
}

func (r *run) skip(t *descriptor.Type) bool {
	if t == nil || t.Skip || t.Kind == descriptor.KindPrimitive {
		return true
	}
	if _, ok := r.seen[t.Identity()]; ok {
		return true
	}
	for _, ns := range r.opts.ExcludedNamespaces {
		if strings.HasPrefix(t.Identity(), ns) {
			return true
		}
	}
	return false
}

func (r *run) convert(t *descriptor.Type) error {
	if r.skip(t) {
		return nil
	}
	r.opts.Logger.Debug("converting type", "component", "convert", "type", t.Identity(), "kind", t.Kind)

	class := &ir.ClassDef{
		Name:     t.Name,
		Package:  t.Package,
		Identity: t.Identity(),
		Meta:     r.meta(t),
	}
	r.seen[t.Identity()] = class

	var err error
	switch t.Kind {
	case descriptor.KindEnum:
		class.IsEnum = true
		class.Fields, err = r.enumFields(t)
		if err != nil {
			return err
		}
		r.enums[t.Name] = true
	case descriptor.KindSealed:
		for _, v := range t.Variants {
			if err := r.convert(v); err != nil {
				return err
			}
		}
		for _, v := range t.Variants {
			if sub, ok := r.seen[v.Identity()]; ok {
				class.SealedSubclasses = append(class.SealedSubclasses, sub)
			}
		}
		class.Fields, err = r.recordFields(t)
		if err != nil {
			return err
		}
	default:
		class.Fields, err = r.recordFields(t)
		if err != nil {
			return err
		}
	}

	r.order = append(r.order, class)
	return nil
}

func (r *run) meta(t *descriptor.Type) ir.Meta {
	if t.File == nil {
		return ir.Meta{Name: r.opts.DefaultFile}
	}
	m := ir.Meta{
		Name:         t.File.Name,
		Table:        t.File.Table,
		Schema:       t.File.Schema,
		Polymorphism: t.File.Polymorphism,
	}
	if m.Name == "" {
		m.Name = r.opts.DefaultFile
	}
	return m
}

func (r *run) recordFields(t *descriptor.Type) ([]ir.FieldDef, error) {
	var fields []ir.FieldDef
	for i, f := range t.Fields {
		if slices.ContainsFunc(fields, func(d ir.FieldDef) bool { return d.Name == f.Name }) {
			return nil, fmt.Errorf("%s :: duplicate field %s", t.Name, f.Name)
		}
		index, err := r.assign.index(t.Name, f.Name, i+1, f.Index, fields)
		if err != nil {
			return nil, err
		}
		if f.Skip {
			fields = append(fields, skippedField(f.Name, index))
			continue
		}
		if err := checkTypes(f.Type); err != nil {
			return nil, fmt.Errorf("%s :: %s: %w", t.Name, f.Name, err)
		}

		if err := r.convertRef(f.Type); err != nil {
			return nil, err
		}
		def, err := r.mapper.Map(f.Type.Type, f.Type.Nullable, f.Type.Args, r)
		if err != nil {
			return nil, fmt.Errorf("%s :: %s: %w", t.Name, f.Name, err)
		}
		fields = append(fields, ir.FieldDef{
			Kind:         ir.FieldGeneric,
			Name:         f.Name,
			Index:        index,
			Type:         def,
			OriginalType: f.Type.Type.Identity(),
			Import:       r.importFor(f.Type, def),
			Nullable:     f.Type.Nullable,
		})
	}

	if r.opts.Strategy == StrategyEvolution {
		fields = reinsertHistory(r.prior.ClassOf(t.Name), ir.FieldGeneric, fields)
	}
	if err := checkIndices(t.Name, fields); err != nil {
		return nil, err
	}
	sortByIndex(fields)
	return fields, nil
}

// checkTypes rejects a reference whose type, or any type argument's type, is
// unset.
func checkTypes(ref descriptor.TypeRef) error {
	if ref.Type == nil {
		return typemap.ErrMissingType
	}
	for _, arg := range ref.Args {
		if err := checkTypes(arg); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) convertRef(ref descriptor.TypeRef) error {
	if err := r.convert(ref.Type); err != nil {
		return err
	}
	for _, arg := range ref.Args {
		if err := r.convertRef(arg); err != nil {
			return err
		}
	}
	return nil
}

// importFor picks the file a field's type lives in: the referenced type's own
// file, then the well-known import, then the default file for messages.
// Containers are judged by their element (list) or value (map) type.
func (r *run) importFor(ref descriptor.TypeRef, def ir.TypeDef) string {
	target := ref.Type
	switch {
	case descriptor.IsRepeated(target) && len(ref.Args) == 1:
		target = ref.Args[0].Type
	case descriptor.IsMap(target) && len(ref.Args) == 2:
		target = ref.Args[1].Type
	}
	if target.File != nil && target.File.Name != "" {
		return target.File.Name
	}
	if def.Import != "" {
		return def.Import
	}
	if target.Kind == descriptor.KindPrimitive {
		return ""
	}
	return r.opts.DefaultFile
}

func skippedField(name string, index int) ir.FieldDef {
	return ir.FieldDef{
		Kind:         ir.FieldGeneric,
		Name:         name,
		Index:        index,
		Skip:         true,
		Type:         ir.TypeDef{Name: "Skipped"},
		OriginalType: "Skipped",
		Nullable:     true,
	}
}

var ErrNameClash = errors.New("message name declared by two types")

// group buckets classes into files in conversion order.
func (r *run) group() ([]ir.FileDef, error) {
	byName := map[string]string{}
	index := map[string]int{}
	var files []ir.FileDef
	for _, class := range r.order {
		if other, ok := byName[class.Name]; ok && other != class.Identity {
			return nil, fmt.Errorf("%s: %s and %s: %w", class.Name, other, class.Identity, ErrNameClash)
		}
		byName[class.Name] = class.Identity

		i, ok := index[class.Meta.Name]
		if !ok {
			i = len(files)
			index[class.Meta.Name] = i
			files = append(files, ir.FileDef{Name: class.Meta.Name, Package: r.opts.Package})
		}
		files[i].Classes = append(files[i].Classes, class)
	}
	for i := range files {
		files[i].Imports = fileImports(files[i])
	}
	return files, nil
}

func fileImports(file ir.FileDef) []string {
	set := map[string]bool{}
	for _, class := range file.Classes {
		for _, f := range class.Fields {
			if f.Kind == ir.FieldGeneric && !f.Skip && f.Import != "" {
				set[f.Import] = true
			}
		}
		for _, sub := range class.SealedSubclasses {
			set[sub.Meta.Name] = true
		}
	}
	delete(set, file.Name)
	imports := make([]string, 0, len(set))
	for name := range set {
		imports = append(imports, name)
	}
	slices.Sort(imports)
	return imports
}
