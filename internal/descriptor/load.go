package descriptor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type document struct {
	Package string    `yaml:"package"`
	Types   []typeDoc `yaml:"types"`
}

type typeDoc struct {
	Name          string     `yaml:"name"`
	Kind          string     `yaml:"kind"`
	Skip          bool       `yaml:"skip"`
	Discriminator string     `yaml:"discriminator"`
	Tag           string     `yaml:"tag"`
	File          *FileMeta  `yaml:"file"`
	Fields        []fieldDoc `yaml:"fields"`
	Constants     []Constant `yaml:"constants"`
	Variants      []string   `yaml:"variants"`
}

type fieldDoc struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Nullable bool   `yaml:"nullable"`
	Index    int    `yaml:"index"`
	Skip     bool   `yaml:"skip"`
}

// UnmarshalYAML accepts either a bare constant name or a {name, index, skip}
// mapping.
func (c *Constant) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		c.Name = value.Value
		return nil
	}
	var raw struct {
		Name  string `yaml:"name"`
		Index int    `yaml:"index"`
		Skip  bool   `yaml:"skip"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*c = Constant{Name: raw.Name, Index: raw.Index, Skip: raw.Skip}
	return nil
}

func (m *FileMeta) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		m.Name = value.Value
		return nil
	}
	var raw struct {
		Name         string   `yaml:"name"`
		Table        string   `yaml:"table"`
		Schema       string   `yaml:"schema"`
		Polymorphism []string `yaml:"polymorphism"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*m = FileMeta{Name: raw.Name, Table: raw.Table, Schema: raw.Schema, Polymorphism: raw.Polymorphism}
	return nil
}

// Set is a resolved graph of descriptors loaded from one or more documents.
type Set struct {
	types    []*Type
	byID     map[string]*Type
	bySimple map[string][]*Type
}

func (s *Set) Types() []*Type {
	return s.types
}

// Lookup resolves a qualified name, or a simple name when it is unambiguous.
func (s *Set) Lookup(name string) (*Type, error) {
	if t, ok := s.byID[name]; ok {
		return t, nil
	}
	matches := s.bySimple[name]
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("unknown type %q", name)
	case 1:
		return matches[0], nil
	default:
		ids := make([]string, 0, len(matches))
		for _, m := range matches {
			ids = append(ids, m.Identity())
		}
		return nil, fmt.Errorf("type %q is ambiguous: %s", name, strings.Join(ids, ", "))
	}
}

// LoadFiles reads and resolves every document in the given YAML files.
func LoadFiles(paths ...string) (*Set, error) {
	var docs []document
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read descriptors %s: %w", path, err)
		}
		parsed, err := decodeDocuments(data)
		if err != nil {
			return nil, fmt.Errorf("parse descriptors %s: %w", path, err)
		}
		docs = append(docs, parsed...)
	}
	return resolve(docs)
}

// Parse reads descriptors from YAML source. Multiple documents separated by
// "---" are allowed.
//
// Inside flow mappings a type expression ending in "?" or holding a comma must
// be quoted, as in {name: note, type: "String?"}. The nullable key is an
// alternative to the suffix: {name: note, type: String, nullable: true}.
func Parse(data []byte) (*Set, error) {
	docs, err := decodeDocuments(data)
	if err != nil {
		return nil, err
	}
	return resolve(docs)
}

func decodeDocuments(data []byte) ([]document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var docs []document
	for {
		var doc document
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return docs, nil
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
}

func resolve(docs []document) (*Set, error) {
	s := &Set{byID: map[string]*Type{}, bySimple: map[string][]*Type{}}
	for _, doc := range docs {
		for _, td := range doc.Types {
			if td.Name == "" {
				return nil, fmt.Errorf("package %q: type without a name", doc.Package)
			}
			kind, err := parseKind(td.Kind)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", td.Name, err)
			}
			t := &Type{
				Name:          td.Name,
				Package:       doc.Package,
				Kind:          kind,
				Skip:          td.Skip,
				Constants:     td.Constants,
				Discriminator: td.Discriminator,
				Tag:           td.Tag,
				File:          td.File,
			}
			if _, dup := s.byID[t.Identity()]; dup {
				return nil, fmt.Errorf("type %s declared twice", t.Identity())
			}
			s.byID[t.Identity()] = t
			s.bySimple[t.Name] = append(s.bySimple[t.Name], t)
			s.types = append(s.types, t)
		}
	}

	i := 0
	for _, doc := range docs {
		for _, td := range doc.Types {
			t := s.types[i]
			i++
			if err := s.resolveType(t, td); err != nil {
				return nil, fmt.Errorf("%s: %w", t.Identity(), err)
			}
		}
	}
	return s, nil
}

func (s *Set) resolveType(t *Type, td typeDoc) error {
	switch t.Kind {
	case KindEnum:
		if len(td.Fields) > 0 {
			return errors.New("enum types cannot declare fields")
		}
	case KindSealed:
		if len(td.Variants) == 0 {
			return errors.New("sealed type without variants")
		}
	default:
		if len(td.Constants) > 0 {
			return fmt.Errorf("%s types cannot declare constants", t.Kind)
		}
	}
	for _, fd := range td.Fields {
		if fd.Name == "" {
			return errors.New("field without a name")
		}
		expr, err := parseTypeExpr(fd.Type)
		if err != nil {
			return fmt.Errorf("field %s: %w", fd.Name, err)
		}
		ref, err := s.resolveExpr(expr, t.Package)
		if err != nil {
			return fmt.Errorf("field %s: %w", fd.Name, err)
		}
		ref.Nullable = ref.Nullable || fd.Nullable
		t.Fields = append(t.Fields, Field{Name: fd.Name, Type: ref, Index: fd.Index, Skip: fd.Skip})
	}
	for _, name := range td.Variants {
		v, err := s.resolveName(name, t.Package)
		if err != nil {
			return fmt.Errorf("variant %s: %w", name, err)
		}
		if v.Kind != KindRecord && v.Kind != KindSealed {
			return fmt.Errorf("variant %s is a %s", name, v.Kind)
		}
		t.Variants = append(t.Variants, v)
	}
	return nil
}

func (s *Set) resolveExpr(e typeExpr, pkg string) (TypeRef, error) {
	t, err := s.resolveName(e.name, pkg)
	if err != nil {
		return TypeRef{}, err
	}
	ref := TypeRef{Type: t, Nullable: e.nullable}
	for _, arg := range e.args {
		a, err := s.resolveExpr(arg, pkg)
		if err != nil {
			return TypeRef{}, err
		}
		ref.Args = append(ref.Args, a)
	}
	return ref, nil
}

func (s *Set) resolveName(name, pkg string) (*Type, error) {
	if pkg != "" {
		if t, ok := s.byID[pkg+"."+name]; ok {
			return t, nil
		}
	}
	if t, ok := s.byID[name]; ok {
		return t, nil
	}
	if t, ok := Builtin(name); ok {
		return t, nil
	}
	return nil, fmt.Errorf("unknown type %q", name)
}

func parseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "", "record":
		return KindRecord, nil
	case "enum":
		return KindEnum, nil
	case "sealed":
		return KindSealed, nil
	default:
		return 0, fmt.Errorf("unknown kind %q", s)
	}
}
