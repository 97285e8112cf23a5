// Package pbgen renders converted classes as proto3 source files.
package pbgen

import (
	"bytes"
	_ "embed"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"text/template"

	"github.com/jptrs93/protogen/internal/generate"
	"github.com/jptrs93/protogen/internal/ir"
)

//go:embed proto_file.tmpl
var fileTemplateSource string

var fileTemplate = template.Must(template.New("proto_file.tmpl").Parse(fileTemplateSource))

type Generator struct{}

func (g Generator) Name() string {
	return "proto"
}

func (g Generator) Generate(def *ir.ProtoDef, options generate.Options) ([]generate.OutputFile, error) {
	var outputs []generate.OutputFile
	for _, file := range def.Files {
		content, err := RenderFile(file)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, generate.OutputFile{
			Path:    filepath.Join(options.OutDir, file.Name),
			Content: content,
		})
	}
	return outputs, nil
}

type fileData struct {
	Package    string
	OuterClass string
	Imports    []string
	Messages   []string
}

func RenderFile(file ir.FileDef) ([]byte, error) {
	data := fileData{
		Package:    file.Package,
		OuterClass: ir.OuterClassName(file.Name),
		Imports:    slices.Sorted(slices.Values(file.Imports)),
	}
	for _, class := range file.Classes {
		data.Messages = append(data.Messages, RenderClass(class))
	}
	var buf bytes.Buffer
	if err := fileTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", file.Name, err)
	}
	return buf.Bytes(), nil
}

// RenderClass renders one message. The shape is picked by IsEnum first, then
// by the presence of sealed subclasses.
func RenderClass(class *ir.ClassDef) string {
	var b strings.Builder
	b.WriteString("message " + class.Name + " {\n")
	switch {
	case class.IsEnum:
		b.WriteString("  enum Enum {\n")
		writeMembers(&b, class, "    ")
		b.WriteString("  }\n")
	case class.IsSealed():
		b.WriteString("  oneof " + ir.SnakeCase(class.Name) + " {\n")
		for i, sub := range class.SealedSubclasses {
			fmt.Fprintf(&b, "    %s %s = %d;\n", sub.Name, ir.SnakeCase(sub.Name), i+1)
		}
		b.WriteString("  }\n")
	default:
		writeMembers(&b, class, "  ")
	}
	b.WriteString("}")
	return b.String()
}

func writeMembers(b *strings.Builder, class *ir.ClassDef, indent string) {
	if reserved := class.ReservedIndices(); len(reserved) > 0 {
		nums := make([]string, len(reserved))
		for i, n := range reserved {
			nums[i] = strconv.Itoa(n)
		}
		b.WriteString(indent + "reserved " + strings.Join(nums, ", ") + ";\n")
	}
	for _, f := range class.Fields {
		if f.Skip {
			continue
		}
		b.WriteString(indent + fieldLine(f) + "\n")
	}
}

func fieldLine(f ir.FieldDef) string {
	if f.Kind == ir.FieldEnum {
		return fmt.Sprintf("%s = %d;", f.Name, f.Index)
	}
	optional := ""
	if f.Nullable && !f.Type.Repeated && !f.Type.Map {
		optional = "optional "
	}
	return fmt.Sprintf("%s%s %s = %d;", optional, f.Type.Name, ir.SnakeCase(f.Name), f.Index)
}
