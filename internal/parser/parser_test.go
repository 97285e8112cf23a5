package parser

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"testing"

	"github.com/jptrs93/protogen/internal/convert"
	"github.com/jptrs93/protogen/internal/descriptor"
	"github.com/jptrs93/protogen/internal/ir"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, sources map[string]string, names ...string) (*ir.ProtoDef, error) {
	t.Helper()
	p := Parser{Accessor: func(path string) (io.ReadCloser, error) {
		src, ok := sources[path]
		if !ok {
			return nil, fs.ErrNotExist
		}
		return io.NopCloser(strings.NewReader(src)), nil
	}}
	return p.Parse(context.Background(), names)
}

const ordersProto = `syntax = "proto3";

package shop;

import "google/protobuf/timestamp.proto";
import "customers.proto";

message Order {
  reserved 2, 4 to 5;
  string id = 1;
  optional int64 total_cents = 3;
  repeated Line lines = 6;
  map<string, Customer> contacts = 7;
  Status.Enum status = 8;
  google.protobuf.Timestamp placed_at = 9;
  Payment payment = 10;
}

message Line {
  string sku = 1;
}

message Status {
  enum Enum {
    reserved 2;
    PROTO_EMPTY = 0;
    NEW = 1;
    PAID = 3;
  }
}

message Payment {
  oneof payment {
    Card card = 1;
    Cash cash = 2;
  }
}

message Card {
}

message Cash {
}

enum Channel {
  CHANNEL_UNSPECIFIED = 0;
  WEB = 1;
}
`

const customersProto = `syntax = "proto3";

package shop;

message Customer {
  string name = 1;
}
`

func TestParseSeedsSnapshot(t *testing.T) {
	def, err := parse(t, map[string]string{
		"orders.proto":    ordersProto,
		"customers.proto": customersProto,
	}, "orders.proto")
	require.NoError(t, err)

	require.Len(t, def.Files, 1)
	file := def.Files[0]
	assert.Equal(t, "orders.proto", file.Name)
	assert.Equal(t, "shop", file.Package)
	assert.Equal(t, []string{"customers.proto", "google/protobuf/timestamp.proto"}, file.Imports)

	order := def.ClassOf("Order")
	require.NotNil(t, order)
	assert.Equal(t, "shop.Order", order.Identity)
	assert.Equal(t, []int{2, 4, 5}, order.ReservedIndices())

	total, ok := order.Field("totalCents")
	require.True(t, ok)
	assert.Equal(t, 3, total.Index)
	assert.True(t, total.Nullable)
	assert.Equal(t, "int64", total.Type.Name)

	lines, _ := order.Field("lines")
	assert.Equal(t, ir.TypeDef{Name: "repeated Line", Import: "orders.proto", Repeated: true}, lines.Type)
	contacts, _ := order.Field("contacts")
	assert.Equal(t, ir.TypeDef{Name: "map<string, Customer>", Import: "customers.proto", Map: true}, contacts.Type)
	assert.Equal(t, "customers.proto", contacts.Import)
	status, _ := order.Field("status")
	assert.Equal(t, "Status.Enum", status.Type.Name)
	placed, _ := order.Field("placedAt")
	assert.Equal(t, "google.protobuf.Timestamp", placed.Type.Name)
	assert.Equal(t, "google/protobuf/timestamp.proto", placed.Import)

	enum := def.ClassOf("Status")
	require.NotNil(t, enum)
	assert.True(t, enum.IsEnum)
	assert.Equal(t, []ir.FieldDef{
		ir.EnumValue(convert.ProtoEmpty, 0, false),
		ir.EnumValue("NEW", 1, false),
		ir.EnumValue("", 2, true),
		ir.EnumValue("PAID", 3, false),
	}, enum.Fields)

	payment := def.ClassOf("Payment")
	require.NotNil(t, payment)
	require.True(t, payment.IsSealed())
	assert.Equal(t, "Card", payment.SealedSubclasses[0].Name)
	assert.Equal(t, "Cash", payment.SealedSubclasses[1].Name)

	channel := def.ClassOf("Channel")
	require.NotNil(t, channel)
	assert.True(t, channel.IsEnum)
	assert.Len(t, channel.Fields, 2)
}

// A parsed snapshot is a valid prior generation: indices carry over and
// reserved numbers stay out of reach.
func TestParsedSnapshotDrivesEvolution(t *testing.T) {
	prior, err := parse(t, map[string]string{
		"orders.proto":    ordersProto,
		"customers.proto": customersProto,
	}, "orders.proto")
	require.NoError(t, err)

	line := &descriptor.Type{Name: "Line", Package: "shop", Kind: descriptor.KindRecord, Fields: []descriptor.Field{
		{Name: "sku", Type: descriptor.Ref(descriptor.String)},
	}}
	order := &descriptor.Type{Name: "Order", Package: "shop", Kind: descriptor.KindRecord, Fields: []descriptor.Field{
		{Name: "coupon", Type: descriptor.Nullable(descriptor.String)},
		{Name: "lines", Type: descriptor.ListOf(descriptor.Ref(line))},
		{Name: "id", Type: descriptor.Ref(descriptor.String)},
	}}
	c := convert.New(convert.Options{
		Strategy: convert.StrategyEvolution,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	def, err := c.Convert([]*descriptor.Type{order}, prior)
	require.NoError(t, err)

	got := def.ClassOf("Order")
	coupon, _ := got.Field("coupon")
	assert.Equal(t, 11, coupon.Index)
	id, _ := got.Field("id")
	assert.Equal(t, 1, id.Index)
	lines, _ := got.Field("lines")
	assert.Equal(t, 6, lines.Index)
	assert.Equal(t, []int{2, 3, 4, 5, 7, 8, 9, 10}, got.ReservedIndices())
}

// Imported enums keep their own zero value name; the default slot moves to
// PROTO_EMPTY without touching the other numbers.
func TestParsedEnumWithForeignZeroValueEvolves(t *testing.T) {
	prior, err := parse(t, map[string]string{
		"orders.proto":    ordersProto,
		"customers.proto": customersProto,
	}, "orders.proto")
	require.NoError(t, err)

	c := convert.New(convert.Options{
		Strategy: convert.StrategyEvolution,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	channel := func(constants ...string) []*descriptor.Type {
		enum := &descriptor.Type{Name: "Channel", Package: "shop", Kind: descriptor.KindEnum}
		for _, name := range constants {
			enum.Constants = append(enum.Constants, descriptor.Constant{Name: name})
		}
		return []*descriptor.Type{enum}
	}

	def, err := c.Convert(channel("WEB"), prior)
	require.NoError(t, err)
	assert.Equal(t, []ir.FieldDef{
		ir.EnumValue(convert.ProtoEmpty, 0, false),
		ir.EnumValue("WEB", 1, false),
	}, def.ClassOf("Channel").Fields)

	def, err = c.Convert(channel("CHANNEL_UNSPECIFIED", "WEB"), prior)
	require.NoError(t, err)
	assert.Equal(t, []ir.FieldDef{
		ir.EnumValue(convert.ProtoEmpty, 0, false),
		ir.EnumValue("WEB", 1, false),
		ir.EnumValue("CHANNEL_UNSPECIFIED", 2, false),
	}, def.ClassOf("Channel").Fields)
}

func TestParseRejectsProto2(t *testing.T) {
	_, err := parse(t, map[string]string{
		"legacy.proto": "syntax = \"proto2\";\nmessage Legacy { optional string name = 1; }\n",
	}, "legacy.proto")
	assert.ErrorContains(t, err, "only proto3 is supported")
}

func TestParseRejectsMixedOneof(t *testing.T) {
	_, err := parse(t, map[string]string{
		"mixed.proto": `syntax = "proto3";
message Mixed {
  string id = 1;
  oneof choice {
    string a = 2;
    int32 b = 3;
  }
}
`,
	}, "mixed.proto")
	assert.ErrorContains(t, err, "oneof mixed with plain fields")
}

func TestParseRejectsUnboundedReservedRange(t *testing.T) {
	_, err := parse(t, map[string]string{
		"wide.proto": "syntax = \"proto3\";\nmessage Wide {\n  reserved 10 to max;\n}\n",
	}, "wide.proto")
	assert.ErrorContains(t, err, "too wide")
}
