package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

type enumValueJSON struct {
	Kind  FieldKind `json:"kind"`
	Name  string    `json:"name"`
	Index int       `json:"index"`
	Skip  bool      `json:"skip"`
}

type genericFieldJSON struct {
	Kind         FieldKind `json:"kind"`
	Name         string    `json:"name"`
	Index        int       `json:"index"`
	Skip         bool      `json:"skip"`
	Type         *TypeDef  `json:"type"`
	OriginalType string    `json:"originalType"`
	Import       string    `json:"import"`
	Nullable     bool      `json:"nullable"`
}

func (f FieldDef) MarshalJSON() ([]byte, error) {
	switch f.Kind {
	case FieldEnum:
		return json.Marshal(enumValueJSON{Kind: f.Kind, Name: f.Name, Index: f.Index, Skip: f.Skip})
	case FieldGeneric:
		t := f.Type
		return json.Marshal(genericFieldJSON{
			Kind:         f.Kind,
			Name:         f.Name,
			Index:        f.Index,
			Skip:         f.Skip,
			Type:         &t,
			OriginalType: f.OriginalType,
			Import:       f.Import,
			Nullable:     f.Nullable,
		})
	default:
		return nil, fmt.Errorf("field %s: unknown kind %q", f.Name, f.Kind)
	}
}

func (f *FieldDef) UnmarshalJSON(data []byte) error {
	var raw genericFieldJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Kind {
	case FieldEnum:
		*f = EnumValue(raw.Name, raw.Index, raw.Skip)
	case FieldGeneric:
		*f = FieldDef{
			Kind:         FieldGeneric,
			Name:         raw.Name,
			Index:        raw.Index,
			Skip:         raw.Skip,
			OriginalType: raw.OriginalType,
			Import:       raw.Import,
			Nullable:     raw.Nullable,
		}
		if raw.Type != nil {
			f.Type = *raw.Type
		}
	default:
		return fmt.Errorf("field %s: unknown kind %q", raw.Name, raw.Kind)
	}
	return nil
}

func (c ClassDef) MarshalJSON() ([]byte, error) {
	type classJSON ClassDef
	out := classJSON(c)
	if out.Fields == nil {
		out.Fields = []FieldDef{}
	}
	if out.SealedSubclasses == nil {
		out.SealedSubclasses = []*ClassDef{}
	}
	if out.Meta.Polymorphism == nil {
		out.Meta.Polymorphism = []string{}
	}
	return json.Marshal(out)
}

func (f FileDef) MarshalJSON() ([]byte, error) {
	type fileJSON FileDef
	out := fileJSON(f)
	if out.Imports == nil {
		out.Imports = []string{}
	}
	if out.Classes == nil {
		out.Classes = []*ClassDef{}
	}
	return json.Marshal(out)
}

type protoDefJSON struct {
	GeneratedAt  json.RawMessage `json:"generatedAt,omitempty"`
	GenerationID string          `json:"generationId,omitempty"`
	Files        []FileDef       `json:"files"`
}

// MarshalJSON writes generatedAt as epoch milliseconds.
func (p ProtoDef) MarshalJSON() ([]byte, error) {
	out := protoDefJSON{GenerationID: p.GenerationID, Files: p.Files}
	if out.Files == nil {
		out.Files = []FileDef{}
	}
	if !p.GeneratedAt.IsZero() {
		out.GeneratedAt = json.RawMessage(fmt.Sprintf("%d", p.GeneratedAt.UnixMilli()))
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts generatedAt as integer epoch milliseconds, decimal
// epoch seconds, or an RFC 3339 string.
func (p *ProtoDef) UnmarshalJSON(data []byte) error {
	var raw protoDefJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	at, err := parseTimestamp(raw.GeneratedAt)
	if err != nil {
		return fmt.Errorf("generatedAt: %w", err)
	}
	*p = ProtoDef{GeneratedAt: at, GenerationID: raw.GenerationID, Files: raw.Files}
	return nil
}

func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, err
		}
		return time.Parse(time.RFC3339Nano, s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return time.Time{}, err
	}
	if ms, err := n.Int64(); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	secs, err := n.Float64()
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(int64(secs * 1000)).UTC(), nil
}
