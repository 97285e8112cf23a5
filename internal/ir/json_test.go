package ir

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A snapshot in the layout written by earlier generations of the tool.
const legacySnapshot = `{
  "generatedAt": 1700000000123,
  "files": [{
    "name": "test1.proto",
    "imports": ["google/protobuf/timestamp.proto"],
    "package": "com.example",
    "classes": [{
      "name": "Kind",
      "package": "com.example",
      "identity": "com.example.Test1$Kind",
      "isEnum": true,
      "fields": [
        {"kind": "ENUM", "name": "PROTO_EMPTY", "index": 0, "skip": false},
        {"kind": "ENUM", "name": "A", "index": 1, "skip": false}
      ],
      "sealedSubclasses": [],
      "meta": {"name": "test1.proto", "table": "", "schema": "", "polymorphism": []}
    }, {
      "name": "Test1",
      "package": "com.example",
      "identity": "com.example.Test1",
      "isEnum": false,
      "fields": [
        {"kind": "GENERIC", "name": "a", "index": 1, "skip": true,
         "type": {"name": "Skipped", "repeated": false, "map": false},
         "originalType": "Skipped", "import": "default.proto", "nullable": true},
        {"kind": "GENERIC", "name": "b", "index": 2, "skip": false,
         "type": {"name": "repeated string", "repeated": true, "map": false},
         "originalType": "java.util.List", "import": "default.proto", "nullable": false},
        {"kind": "GENERIC", "name": "at", "index": 3, "skip": false,
         "type": {"name": "google.protobuf.Timestamp", "import": "google/protobuf/timestamp.proto", "repeated": false, "map": false},
         "originalType": "java.time.Instant", "import": "google/protobuf/timestamp.proto", "nullable": true}
      ],
      "sealedSubclasses": [],
      "meta": {"name": "test1.proto", "table": "t1", "schema": "schema1", "polymorphism": ["sealed"]}
    }]
  }]
}`

func TestDecodeLegacySnapshot(t *testing.T) {
	var def ProtoDef
	require.NoError(t, json.Unmarshal([]byte(legacySnapshot), &def))

	assert.Equal(t, time.UnixMilli(1700000000123).UTC(), def.GeneratedAt)
	require.Len(t, def.Files, 1)
	assert.Len(t, def.Classes(), 2)

	kind := def.ClassOf("Kind")
	require.NotNil(t, kind)
	assert.True(t, kind.IsEnum)
	assert.Equal(t, EnumValue("A", 1, false), kind.Fields[1])

	at, ok := def.FieldOf("Test1", "at")
	require.True(t, ok)
	assert.Equal(t, FieldGeneric, at.Kind)
	assert.Equal(t, "google.protobuf.Timestamp", at.Type.Name)
	assert.Equal(t, "google/protobuf/timestamp.proto", at.Type.Import)
	assert.True(t, at.Nullable)

	test1 := def.ClassOf("Test1")
	assert.Equal(t, []int{1}, test1.ReservedIndices())
	assert.Equal(t, 3, test1.MaxIndex())
	assert.Equal(t, []string{"sealed"}, test1.Meta.Polymorphism)

	assert.Nil(t, def.ClassOf("Missing"))
	_, ok = def.FieldOf("Test1", "missing")
	assert.False(t, ok)
}

func TestEncodeKeepsSnapshotShape(t *testing.T) {
	def := ProtoDef{
		GeneratedAt:  time.UnixMilli(42),
		GenerationID: "gen-1",
		Files: []FileDef{{
			Name: "default.proto",
			Classes: []*ClassDef{{
				Name:   "E",
				IsEnum: true,
				Fields: []FieldDef{EnumValue("PROTO_EMPTY", 0, false)},
			}},
		}},
	}
	data, err := json.Marshal(def)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(data, &generic))
	assert.EqualValues(t, 42, generic["generatedAt"])
	assert.Equal(t, "gen-1", generic["generationId"])

	file := generic["files"].([]any)[0].(map[string]any)
	assert.Equal(t, []any{}, file["imports"])
	class := file["classes"].([]any)[0].(map[string]any)
	assert.Equal(t, []any{}, class["sealedSubclasses"])
	field := class["fields"].([]any)[0].(map[string]any)
	assert.Equal(t, map[string]any{"kind": "ENUM", "name": "PROTO_EMPTY", "index": float64(0), "skip": false}, field)

	var back ProtoDef
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, def.Files[0].Classes[0].Fields, back.Files[0].Classes[0].Fields)
	assert.True(t, def.GeneratedAt.Equal(back.GeneratedAt))
}

func TestDecodeRejectsUnknownFieldKind(t *testing.T) {
	var f FieldDef
	err := json.Unmarshal([]byte(`{"kind":"ONEOF","name":"x","index":1}`), &f)
	assert.ErrorContains(t, err, `unknown kind "ONEOF"`)
}

func TestDecodeRFC3339GeneratedAt(t *testing.T) {
	var def ProtoDef
	require.NoError(t, json.Unmarshal([]byte(`{"generatedAt":"2024-03-01T10:00:00Z","files":[]}`), &def))
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), def.GeneratedAt)
}
