package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/plus3/keepsake/ecs"
	"gopkg.in/yaml.v3"
)

type yamlEntity struct {
	Id         uint64               `yaml:"id"`
	Components map[TypeKey]yaml.Node `yaml:"components"`
}

type yamlSnapshot struct {
	Globals  map[TypeKey]yaml.Node `yaml:"globals"`
	Entities []yamlEntity          `yaml:"entities"`
}

type yamlCodec struct{}

// YAML returns a codec writing block-style YAML. Attachment values are the
// same documents the JSON codec writes, re-expressed as YAML.
func YAML() Codec {
	return yamlCodec{}
}

func (yamlCodec) Name() string { return "yaml" }

func (yamlCodec) Encode(s *Snapshot) ([]byte, error) {
	globals, err := toYAMLNodes(s.Globals)
	if err != nil {
		return nil, err
	}
	out := yamlSnapshot{
		Globals:  globals,
		Entities: make([]yamlEntity, 0, len(s.Entities)),
	}
	for _, entity := range s.Entities {
		components, err := toYAMLNodes(entity.Components)
		if err != nil {
			return nil, fmt.Errorf("entity %d: %w", entity.Id, err)
		}
		out.Entities = append(out.Entities, yamlEntity{Id: uint64(entity.Id), Components: components})
	}
	return yaml.Marshal(&out)
}

func (yamlCodec) Decode(data []byte) (*Snapshot, error) {
	var in yamlSnapshot
	if err := yaml.Unmarshal(data, &in); err != nil {
		return nil, err
	}

	globals, err := fromYAMLNodes(in.Globals)
	if err != nil {
		return nil, fmt.Errorf("globals: %w", err)
	}
	s := &Snapshot{Globals: globals, Entities: make([]Entity, 0, len(in.Entities))}
	for _, entity := range in.Entities {
		components, err := fromYAMLNodes(entity.Components)
		if err != nil {
			return nil, fmt.Errorf("entity %d: %w", entity.Id, err)
		}
		s.Entities = append(s.Entities, Entity{Id: ecs.EntityId(entity.Id), Components: components})
	}
	return s, nil
}

func toYAMLNodes(values Attachments) (map[TypeKey]yaml.Node, error) {
	nodes := make(map[TypeKey]yaml.Node, len(values))
	for key, raw := range values {
		var doc yaml.Node
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("%q: %w", key, err)
		}
		if len(doc.Content) == 0 {
			nodes[key] = yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
			continue
		}
		node := doc.Content[0]
		blockStyle(node)
		nodes[key] = *node
	}
	return nodes, nil
}

// blockStyle drops the flow style JSON input parses with. Scalar styles are
// kept so quoted strings stay strings.
func blockStyle(n *yaml.Node) {
	if n.Kind == yaml.MappingNode || n.Kind == yaml.SequenceNode {
		n.Style &^= yaml.FlowStyle
	}
	for _, child := range n.Content {
		blockStyle(child)
	}
}

func fromYAMLNodes(nodes map[TypeKey]yaml.Node) (Attachments, error) {
	values := make(Attachments, len(nodes))
	for key, node := range nodes {
		var buf bytes.Buffer
		if err := writeJSON(&buf, &node); err != nil {
			return nil, fmt.Errorf("%q: %w", key, err)
		}
		values[key] = buf.Bytes()
	}
	return values, nil
}

// writeJSON rebuilds the JSON document a node tree was made from. Number
// scalars are copied as written so values like -0 or 1e400 survive.
func writeJSON(buf *bytes.Buffer, n *yaml.Node) error {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return writeJSON(buf, n.Content[0])
	case yaml.AliasNode:
		return writeJSON(buf, n.Alias)
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, child := range n.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, child); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			k := n.Content[i]
			if k.Kind == yaml.AliasNode {
				k = k.Alias
			}
			if k.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: mapping key is not a scalar", k.Line)
			}
			name, _ := json.Marshal(k.Value)
			buf.Write(name)
			buf.WriteByte(':')
			if err := writeJSON(buf, n.Content[i+1]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case yaml.ScalarNode:
		return writeScalar(buf, n)
	}
	return fmt.Errorf("line %d: unexpected node kind %d", n.Line, n.Kind)
}

func writeScalar(buf *bytes.Buffer, n *yaml.Node) error {
	tag := n.ShortTag()
	plain := n.Style&(yaml.TaggedStyle|yaml.SingleQuotedStyle|yaml.DoubleQuotedStyle|yaml.LiteralStyle|yaml.FoldedStyle) == 0
	switch {
	case tag == "!!int" || tag == "!!float" || (tag == "!!str" && plain):
		// Plain numbers that overflow float64 resolve as strings.
		if isJSONNumber(n.Value) {
			buf.WriteString(n.Value)
			return nil
		}
	case tag == "!!str":
		raw, _ := json.Marshal(n.Value)
		buf.Write(raw)
		return nil
	}
	var v any
	if err := n.Decode(&v); err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(raw)
	return nil
}

func isJSONNumber(s string) bool {
	if s == "" || (s[0] != '-' && (s[0] < '0' || s[0] > '9')) {
		return false
	}
	return json.Valid([]byte(s))
}
