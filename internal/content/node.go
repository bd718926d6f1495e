package content

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates the three shapes a document node can take.
type Kind int

const (
	KindScalar Kind = iota
	KindMapping
	KindSequence
)

// Node is one element of the portfolio document tree. A mapping node may
// carry an optional "access" field (minimum level required to view it) and
// an optional "type" tag used for sibling grouping.
type Node struct {
	kind     Kind
	scalar   interface{}
	mapping  map[string]*Node
	sequence []*Node
}

func Scalar(v interface{}) *Node {
	return &Node{kind: KindScalar, scalar: v}
}

func Mapping(fields map[string]*Node) *Node {
	if fields == nil {
		fields = map[string]*Node{}
	}
	return &Node{kind: KindMapping, mapping: fields}
}

func Sequence(items ...*Node) *Node {
	return &Node{kind: KindSequence, sequence: items}
}

func (n *Node) Kind() Kind { return n.kind }

// Field returns a mapping field by name.
func (n *Node) Field(name string) (*Node, bool) {
	if n.kind != KindMapping {
		return nil, false
	}
	v, ok := n.mapping[name]
	return v, ok
}

// Items returns the elements of a sequence node.
func (n *Node) Items() []*Node {
	if n.kind != KindSequence {
		return nil
	}
	return n.sequence
}

func (n *Node) Value() interface{} { return n.scalar }

// Access returns the node's visibility threshold. Missing or non-numeric
// values default to 0, matching the document's loose schema.
func (n *Node) Access() int {
	if n.kind != KindMapping {
		return 0
	}
	f, ok := n.mapping["access"]
	if !ok || f.kind != KindScalar {
		return 0
	}
	switch v := f.scalar.(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// TypeTag returns the node's "type" tag, or "" when absent.
func (n *Node) TypeTag() string {
	if n.kind != KindMapping {
		return ""
	}
	f, ok := n.mapping["type"]
	if !ok || f.kind != KindScalar {
		return ""
	}
	s, _ := f.scalar.(string)
	return s
}

// String returns the scalar string value of a mapping field, or "".
func (n *Node) StringField(name string) string {
	f, ok := n.Field(name)
	if !ok || f.kind != KindScalar {
		return ""
	}
	s, _ := f.scalar.(string)
	return s
}

func (n *Node) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	built, err := fromValue(raw)
	if err != nil {
		return err
	}
	*n = *built
	return nil
}

func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.toValue())
}

func fromValue(v interface{}) (*Node, error) {
	switch t := v.(type) {
	case map[string]interface{}:
		fields := make(map[string]*Node, len(t))
		for k, fv := range t {
			fn, err := fromValue(fv)
			if err != nil {
				return nil, err
			}
			fields[k] = fn
		}
		return Mapping(fields), nil
	case []interface{}:
		items := make([]*Node, 0, len(t))
		for _, iv := range t {
			in, err := fromValue(iv)
			if err != nil {
				return nil, err
			}
			items = append(items, in)
		}
		return Sequence(items...), nil
	case nil, bool, float64, string:
		return Scalar(t), nil
	default:
		return nil, fmt.Errorf("unsupported document value %T", v)
	}
}

func (n *Node) toValue() interface{} {
	switch n.kind {
	case KindMapping:
		out := make(map[string]interface{}, len(n.mapping))
		for k, f := range n.mapping {
			out[k] = f.toValue()
		}
		return out
	case KindSequence:
		out := make([]interface{}, 0, len(n.sequence))
		for _, it := range n.sequence {
			out = append(out, it.toValue())
		}
		return out
	default:
		return n.scalar
	}
}
