package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Codec converts snapshots to and from bytes. Encode must be deterministic:
// equal snapshots produce equal bytes.
type Codec interface {
	Name() string
	Encode(s *Snapshot) ([]byte, error)
	Decode(data []byte) (*Snapshot, error)
}

// ByName resolves a codec from its configuration name: "json", "yaml", or
// either of them with a "+gzip" suffix.
func ByName(name string) (Codec, error) {
	base, compressed := strings.CutSuffix(name, "+gzip")

	var codec Codec
	switch base {
	case "json":
		codec = JSON()
	case "yaml":
		codec = YAML()
	default:
		return nil, fmt.Errorf("snapshot: unknown codec %q", name)
	}

	if compressed {
		codec = Gzip(codec)
	}
	return codec, nil
}

type jsonCodec struct{}

// JSON returns the default codec: indented JSON with sorted type keys.
func JSON() Codec {
	return jsonCodec{}
}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Encode(s *Snapshot) ([]byte, error) {
	out := *s
	if out.Globals == nil {
		out.Globals = Attachments{}
	}
	if out.Entities == nil {
		out.Entities = []Entity{}
	}
	return json.MarshalIndent(&out, "", "  ")
}

func (jsonCodec) Decode(data []byte) (*Snapshot, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var s Snapshot
	if err := dec.Decode(&s); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after snapshot")
	}
	if s.Globals == nil {
		s.Globals = Attachments{}
	}
	return &s, nil
}
