package typemap

import (
	"testing"

	"github.com/jptrs93/protogen/internal/descriptor"
	"github.com/jptrs93/protogen/internal/ir"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type enumNames map[string]bool

func (e enumNames) IsEnum(name string) bool { return e[name] }

func TestMapScalars(t *testing.T) {
	order := &descriptor.Type{Name: "Order", Package: "shop", Kind: descriptor.KindRecord}

	tests := []struct {
		name     string
		wrappers bool
		ref      descriptor.TypeRef
		want     ir.TypeDef
	}{
		{name: "int", ref: descriptor.Ref(descriptor.Int), want: ir.TypeDef{Name: "int32"}},
		{name: "nullable int", ref: descriptor.Nullable(descriptor.Int), want: ir.TypeDef{Name: "int32"}},
		{name: "long", ref: descriptor.Ref(descriptor.Long), want: ir.TypeDef{Name: "int64"}},
		{name: "float upgraded", ref: descriptor.Nullable(descriptor.Float), want: ir.TypeDef{Name: "double"}},
		{name: "uuid", ref: descriptor.Ref(descriptor.UUID), want: ir.TypeDef{Name: "string"}},
		{
			name: "instant",
			ref:  descriptor.Ref(descriptor.Instant),
			want: ir.TypeDef{Name: "google.protobuf.Timestamp", Import: "google/protobuf/timestamp.proto"},
		},
		{
			name: "any",
			ref:  descriptor.Nullable(descriptor.Any),
			want: ir.TypeDef{Name: "google.protobuf.Any", Import: "google/protobuf/any.proto"},
		},
		{name: "wrapped non-null", wrappers: true, ref: descriptor.Ref(descriptor.Int), want: ir.TypeDef{Name: "int32"}},
		{
			name:     "wrapped nullable",
			wrappers: true,
			ref:      descriptor.Nullable(descriptor.Bool),
			want:     ir.TypeDef{Name: "google.protobuf.BoolValue", Import: "google/protobuf/wrappers.proto"},
		},
		{
			name:     "wrapped nullable float",
			wrappers: true,
			ref:      descriptor.Nullable(descriptor.Float),
			want:     ir.TypeDef{Name: "google.protobuf.DoubleValue", Import: "google/protobuf/wrappers.proto"},
		},
		{name: "message passthrough", ref: descriptor.Nullable(order), want: ir.TypeDef{Name: "Order"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Mapper{Wrappers: tc.wrappers}.Map(tc.ref.Type, tc.ref.Nullable, tc.ref.Args, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMapContainers(t *testing.T) {
	status := &descriptor.Type{Name: "Status", Kind: descriptor.KindEnum}
	enums := enumNames{"Status": true}
	m := Mapper{}

	got, err := m.Map(descriptor.List, false, []descriptor.TypeRef{descriptor.Ref(descriptor.String)}, enums)
	require.NoError(t, err)
	assert.Equal(t, ir.TypeDef{Name: "repeated string", Repeated: true}, got)

	got, err = m.Map(descriptor.Map, true, []descriptor.TypeRef{descriptor.Ref(descriptor.String), descriptor.Ref(descriptor.Int)}, enums)
	require.NoError(t, err)
	assert.Equal(t, ir.TypeDef{Name: "map<string, int32>", Map: true}, got)

	got, err = m.Map(descriptor.SetType, false, []descriptor.TypeRef{descriptor.Ref(status)}, enums)
	require.NoError(t, err)
	assert.Equal(t, ir.TypeDef{Name: "repeated Status.Enum", Repeated: true}, got)

	got, err = m.Map(descriptor.Map, false, []descriptor.TypeRef{descriptor.Ref(descriptor.String), descriptor.Ref(descriptor.Instant)}, enums)
	require.NoError(t, err)
	assert.Equal(t, ir.TypeDef{Name: "map<string, google.protobuf.Timestamp>", Import: "google/protobuf/timestamp.proto", Map: true}, got)

	got, err = m.Map(status, false, nil, enums)
	require.NoError(t, err)
	assert.Equal(t, ir.TypeDef{Name: "Status.Enum"}, got)
}

func TestMapContainerErrors(t *testing.T) {
	m := Mapper{}
	str := descriptor.Ref(descriptor.String)

	_, err := m.Map(descriptor.List, false, nil, nil)
	assert.ErrorIs(t, err, ErrArity)

	_, err = m.Map(descriptor.Map, false, []descriptor.TypeRef{str}, nil)
	assert.ErrorIs(t, err, ErrArity)

	_, err = m.Map(descriptor.List, false, []descriptor.TypeRef{descriptor.ListOf(str)}, nil)
	assert.ErrorIs(t, err, ErrNestedContainer)

	_, err = m.Map(descriptor.Map, false, []descriptor.TypeRef{str, descriptor.SetOf(str)}, nil)
	assert.ErrorIs(t, err, ErrNestedContainer)

	_, err = m.Map(descriptor.SetType, false, []descriptor.TypeRef{descriptor.MapOf(str, str)}, nil)
	assert.ErrorIs(t, err, ErrNestedContainer)

	_, err = m.Map(nil, false, nil, nil)
	assert.ErrorIs(t, err, ErrMissingType)

	_, err = m.Map(descriptor.List, false, []descriptor.TypeRef{{}}, nil)
	assert.ErrorIs(t, err, ErrMissingType)

	_, err = m.Map(descriptor.Map, false, []descriptor.TypeRef{str, {Nullable: true}}, nil)
	assert.ErrorIs(t, err, ErrMissingType)
}
