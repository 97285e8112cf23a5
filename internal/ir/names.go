package ir

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SnakeCase converts a lowerCamel name to lower_underscore. Hyphens become
// underscores.
func SnakeCase(name string) string {
	if name == "" {
		return ""
	}

	var out strings.Builder
	out.Grow(len(name) + 4)
	for i, r := range name {
		if r == '-' {
			out.WriteByte('_')
			continue
		}
		if i > 0 && unicode.IsUpper(r) {
			out.WriteByte('_')
		}
		out.WriteRune(unicode.ToLower(r))
	}
	return out.String()
}

// UpperCamel converts a lower_underscore name to UpperCamel.
func UpperCamel(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_'
	})
	caser := cases.Title(language.Und)
	for i := range parts {
		parts[i] = caser.String(parts[i])
	}
	return strings.Join(parts, "")
}

// OuterClassName derives java_outer_classname from a .proto file name.
func OuterClassName(file string) string {
	base := FileBase(file)
	if i := strings.LastIndexByte(base, '/'); i != -1 {
		base = base[i+1:]
	}
	base = strings.ReplaceAll(base, "-", "_")
	return UpperCamel(base) + "Proto"
}

func FileBase(file string) string {
	return strings.TrimSuffix(file, ".proto")
}
