package ir

import (
	"slices"
	"time"
)

// TypeDef is the resolved protobuf type of a field.
type TypeDef struct {
	Name     string `json:"name"`
	Import   string `json:"import,omitempty"`
	Repeated bool   `json:"repeated"`
	Map      bool   `json:"map"`
}

type FieldKind string

const (
	FieldEnum    FieldKind = "ENUM"
	FieldGeneric FieldKind = "GENERIC"
)

// FieldDef is either an enum value (Kind == FieldEnum) or a message field
// (Kind == FieldGeneric). Type, OriginalType, Import and Nullable are only
// meaningful for message fields. Skip marks an index that is reserved rather
// than emitted.
type FieldDef struct {
	Kind         FieldKind
	Name         string
	Index        int
	Skip         bool
	Type         TypeDef
	OriginalType string
	Import       string
	Nullable     bool
}

func EnumValue(name string, index int, skip bool) FieldDef {
	return FieldDef{Kind: FieldEnum, Name: name, Index: index, Skip: skip}
}

// ClassDef is one converted type. IsEnum and a non-empty SealedSubclasses
// select how it is rendered.
type ClassDef struct {
	Name             string      `json:"name"`
	Package          string      `json:"package"`
	Identity         string      `json:"identity"`
	IsEnum           bool        `json:"isEnum"`
	Fields           []FieldDef  `json:"fields"`
	SealedSubclasses []*ClassDef `json:"sealedSubclasses"`
	Meta             Meta        `json:"meta"`
}

type Meta struct {
	Name         string   `json:"name"`
	Table        string   `json:"table"`
	Schema       string   `json:"schema"`
	Polymorphism []string `json:"polymorphism"`
}

func (c *ClassDef) IsSealed() bool {
	return len(c.SealedSubclasses) > 0
}

func (c *ClassDef) Field(name string) (FieldDef, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDef{}, false
}

// MaxIndex returns the largest index in use, reserved entries included.
func (c *ClassDef) MaxIndex() int {
	max := 0
	for _, f := range c.Fields {
		if f.Index > max {
			max = f.Index
		}
	}
	return max
}

func (c *ClassDef) ReservedIndices() []int {
	var out []int
	for _, f := range c.Fields {
		if f.Skip {
			out = append(out, f.Index)
		}
	}
	slices.Sort(out)
	return out
}

type FileDef struct {
	Name    string      `json:"name"`
	Imports []string    `json:"imports"`
	Classes []*ClassDef `json:"classes"`
	Package string      `json:"package"`
}

// ProtoDef is the output of one conversion run and the prior generation of
// the next one.
type ProtoDef struct {
	GeneratedAt  time.Time
	GenerationID string
	Files        []FileDef
}

// ClassOf finds a class by message name.
func (p *ProtoDef) ClassOf(name string) *ClassDef {
	if p == nil {
		return nil
	}
	for _, f := range p.Files {
		for _, c := range f.Classes {
			if c.Name == name {
				return c
			}
		}
	}
	return nil
}

func (p *ProtoDef) FieldOf(class, field string) (FieldDef, bool) {
	c := p.ClassOf(class)
	if c == nil {
		return FieldDef{}, false
	}
	return c.Field(field)
}

func (p *ProtoDef) Classes() []*ClassDef {
	if p == nil {
		return nil
	}
	var out []*ClassDef
	for _, f := range p.Files {
		out = append(out, f.Classes...)
	}
	return out
}
