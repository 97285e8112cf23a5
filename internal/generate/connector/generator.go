// Package connector renders the change-data-capture connector settings that
// accompany a generation: which schemas and tables to capture, which JSON
// fields to drop, and how polymorphic payloads are routed to messages.
package connector

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jptrs93/protogen/internal/descriptor"
	"github.com/jptrs93/protogen/internal/generate"
	"github.com/jptrs93/protogen/internal/ir"

	"gopkg.in/yaml.v3"
)

const FileName = "connector.yml"

var ErrPolymorphicTarget = errors.New("polymorphic target not found")

// Types resolves the descriptor behind a converted class. *descriptor.Set
// implements it.
type Types interface {
	Lookup(name string) (*descriptor.Type, error)
}

type Generator struct {
	Types       Types
	TopicPrefix string
}

func (g Generator) Name() string {
	return "connector"
}

func (g Generator) Generate(def *ir.ProtoDef, options generate.Options) ([]generate.OutputFile, error) {
	content, err := g.Render(def)
	if err != nil {
		return nil, err
	}
	return []generate.OutputFile{{
		Path:    filepath.Join(options.OutDir, FileName),
		Content: content,
	}}, nil
}

func (g Generator) Render(def *ir.ProtoDef) ([]byte, error) {
	var tables []*ir.ClassDef
	for _, c := range def.Classes() {
		if c.Meta.Schema != "" {
			tables = append(tables, c)
		}
	}

	config := &yaml.Node{Kind: yaml.MappingNode}
	if g.TopicPrefix != "" {
		config.Content = append(config.Content, scalar("topic.prefix"), scalar(g.TopicPrefix))
	}

	var schemas, names []string
	for _, c := range tables {
		schemas = append(schemas, c.Meta.Schema)
		names = append(names, tableName(c))
	}
	addList(config, "schema.include.list", schemas)
	addList(config, "table.include.list", names)

	skips, err := g.skipPaths(tables)
	if err != nil {
		return nil, err
	}
	addList(config, "transforms.json.ignore.fields", skips)

	routes, err := g.polymorphicPaths(def, tables)
	if err != nil {
		return nil, err
	}
	addList(config, "transforms.polymorphic.paths", routes)

	doc := &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{
		scalar("spec"),
		{Kind: yaml.MappingNode, Content: []*yaml.Node{scalar("config"), config}},
	}}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode %s: %w", FileName, err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode %s: %w", FileName, err)
	}
	return buf.Bytes(), nil
}

func scalar(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}

// addList writes the distinct sorted values as a literal block, one entry per
// line. Empty lists are omitted.
func addList(config *yaml.Node, key string, values []string) {
	values = slices.Compact(slices.Sorted(slices.Values(values)))
	if len(values) == 0 {
		return
	}
	block := scalar(strings.Join(values, ",\n"))
	block.Style = yaml.LiteralStyle
	config.Content = append(config.Content, scalar(key), block)
}

// tableName is schema.table, with the table defaulting to the file base name.
func tableName(c *ir.ClassDef) string {
	table := c.Meta.Table
	if table == "" {
		table = ir.FileBase(c.Meta.Name)
	}
	if c.Meta.Schema == "" {
		return table
	}
	return c.Meta.Schema + "." + table
}

func (g Generator) qualify(c *ir.ClassDef, path string) string {
	name := tableName(c) + "." + path
	if g.TopicPrefix != "" {
		name = g.TopicPrefix + "." + name
	}
	return name
}

func (g Generator) lookup(c *ir.ClassDef) (*descriptor.Type, error) {
	if g.Types == nil {
		return nil, fmt.Errorf("%s: no type descriptors available", c.Identity)
	}
	t, err := g.Types.Lookup(c.Identity)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Identity, err)
	}
	return t, nil
}

func (g Generator) skipPaths(tables []*ir.ClassDef) ([]string, error) {
	var out []string
	for _, c := range tables {
		t, err := g.lookup(c)
		if err != nil {
			return nil, err
		}
		for _, p := range SkipPaths(t) {
			out = append(out, g.qualify(c, p))
		}
	}
	return out, nil
}

// SkipPaths lists the dotted paths of every skip-marked field reachable from t.
// Field names are snake_case and repeated segments carry a "[]" suffix.
// Sealed types contribute the fields of all their variants at their own path.
// A recursive type is unrolled once, so a skipped field of a nested child is
// listed under the child's path.
func SkipPaths(t *descriptor.Type) []string {
	acc := map[string]bool{}
	walkSkips(t, "", acc, map[string]int{})
	out := make([]string, 0, len(acc))
	for p := range acc {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// maxUnroll is how many times one type may appear on a single skip path.
const maxUnroll = 2

func walkSkips(t *descriptor.Type, path string, acc map[string]bool, visiting map[string]int) {
	if t == nil || t.Kind == descriptor.KindEnum || t.Kind == descriptor.KindPrimitive {
		return
	}
	id := t.Identity()
	if visiting[id] >= maxUnroll {
		return
	}
	visiting[id]++
	defer func() { visiting[id]-- }()

	for _, v := range t.Variants {
		walkSkips(v, path, acc, visiting)
	}
	for _, f := range t.Fields {
		ref := f.Type
		name := ir.SnakeCase(f.Name)
		if descriptor.IsRepeated(ref.Type) {
			name += "[]"
			if len(ref.Args) == 1 {
				ref = ref.Args[0]
			}
		}
		p := name
		if path != "" {
			p = path + "." + name
		}
		if f.Skip {
			acc[p] = true
		}
		walkSkips(ref.Type, p, acc, visiting)
	}
}

func (g Generator) polymorphicPaths(def *ir.ProtoDef, tables []*ir.ClassDef) ([]string, error) {
	var out []string
	for _, c := range tables {
		if len(c.Meta.Polymorphism) == 0 {
			continue
		}
		t, err := g.lookup(c)
		if err != nil {
			return nil, err
		}
		for _, path := range c.Meta.Polymorphism {
			r, err := route(def, t, path)
			if err != nil {
				return nil, fmt.Errorf("%s polymorphism %q: %w", c.Name, path, err)
			}
			out = append(out, g.qualify(c, r))
		}
	}
	return out, nil
}

// route follows a dotted field path from t to a sealed type and renders it as
// snake_case segments, "[]" after each repeated one, then
// .discriminator{Tag:variant,...}.
func route(def *ir.ProtoDef, t *descriptor.Type, path string) (string, error) {
	cur := t
	segments := strings.Split(path, ".")
	for i, seg := range segments {
		f, ok := cur.Field(seg)
		if !ok {
			return "", fmt.Errorf("%s has no field %s: %w", cur.Name, seg, ErrPolymorphicTarget)
		}
		ref := f.Type
		segments[i] = ir.SnakeCase(seg)
		if descriptor.IsRepeated(ref.Type) {
			if len(ref.Args) != 1 {
				return "", fmt.Errorf("%s.%s: expected 1 type argument, found %d", cur.Name, seg, len(ref.Args))
			}
			segments[i] += "[]"
			ref = ref.Args[0]
		}
		if ref.Type == nil {
			return "", fmt.Errorf("%s.%s has no type: %w", cur.Name, seg, ErrPolymorphicTarget)
		}
		cur = ref.Type
	}

	class := def.ClassOf(cur.Name)
	if cur.Kind != descriptor.KindSealed || class == nil || !class.IsSealed() {
		return "", fmt.Errorf("polymorphic class %s: %w", cur.Name, ErrPolymorphicTarget)
	}
	if cur.Discriminator == "" {
		return "", fmt.Errorf("sealed type %s declares no discriminator", cur.Name)
	}

	tags := make([]string, 0, len(class.SealedSubclasses))
	for _, sub := range class.SealedSubclasses {
		tag := sub.Name
		for _, v := range cur.Variants {
			if v.Name == sub.Name {
				tag = v.TypeTag()
				break
			}
		}
		tags = append(tags, tag+":"+ir.SnakeCase(sub.Name))
	}
	return strings.Join(segments, ".") + "." + cur.Discriminator + "{" + strings.Join(tags, ",") + "}", nil
}
