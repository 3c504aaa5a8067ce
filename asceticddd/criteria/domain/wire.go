package criteria

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type nodeDocument struct {
	ID              NodeID          `json:"id"`
	Operator        Operator        `json:"operator"`
	Connective      Connective      `json:"connective"`
	Selector        string          `json:"selector,omitempty"`
	OperandKind     OperandKind     `json:"operandKind"`
	SerializedValue serializedValue `json:"serializedValue"`
	Children        []*nodeDocument `json:"children,omitempty"`
}

type conditionDocument struct {
	ID             string        `json:"id"`
	EntityTypeName string        `json:"entityTypeName"`
	Tree           *nodeDocument `json:"tree"`
}

// serializedValue is the operand text. Hand-written documents may put the
// JSON value inline instead of quoting it, both forms are accepted.
type serializedValue string

func (s *serializedValue) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*s = serializedValue(text)
		return nil
	}
	*s = serializedValue(bytes.TrimSpace(data))
	return nil
}

func (c *Condition) MarshalJSON() ([]byte, error) {
	doc, err := c.document()
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

func (c *Condition) UnmarshalJSON(data []byte) error {
	var doc conditionDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return errors.Wrap(err, "decode condition")
	}
	if doc.Tree == nil {
		return errors.New("decode condition: missing tree")
	}
	restored := make(map[NodeID]*ConditionNode)
	c.ID = doc.ID
	c.EntityTypeName = doc.EntityTypeName
	c.Tree = restoreNode(doc.Tree, restored)
	return nil
}

func (c *Condition) document() (*conditionDocument, error) {
	if c.Tree == nil {
		return nil, errors.New("encode condition: missing tree")
	}
	onPath := make(map[*ConditionNode]struct{})
	tree, err := documentOf(c.Tree, onPath)
	if err != nil {
		return nil, err
	}
	return &conditionDocument{
		ID:             c.ID,
		EntityTypeName: c.EntityTypeName,
		Tree:           tree,
	}, nil
}

// documentOf emits shared subtrees once per appearance; they keep their ids.
// A node that is its own ancestor cannot be written as a tree.
func documentOf(n *ConditionNode, onPath map[*ConditionNode]struct{}) (*nodeDocument, error) {
	if _, ok := onPath[n]; ok {
		return nil, errors.Wrapf(ErrCyclicTree, "node %s", n.id)
	}
	onPath[n] = struct{}{}
	defer delete(onPath, n)

	doc := &nodeDocument{
		ID:              n.id,
		Operator:        n.operator,
		Connective:      n.connective,
		Selector:        n.selector,
		OperandKind:     n.operand.kind,
		SerializedValue: serializedValue(n.operand.text),
	}
	for _, child := range n.children {
		if child == nil {
			continue
		}
		cd, err := documentOf(child, onPath)
		if err != nil {
			return nil, err
		}
		doc.Children = append(doc.Children, cd)
	}
	return doc, nil
}

// restoreNode relinks repeated ids to one node, so a shared subtree is
// shared again after decoding.
func restoreNode(doc *nodeDocument, restored map[NodeID]*ConditionNode) *ConditionNode {
	id := doc.ID
	if id == "" {
		id = NewNodeID()
	} else if n, ok := restored[id]; ok {
		return n
	}
	connective := doc.Connective
	if connective == 0 {
		connective = And
	}
	n := RestoreNode(id, doc.Operator, connective, doc.Selector, DecodedOperand(doc.OperandKind, string(doc.SerializedValue)), nil)
	restored[id] = n
	for _, child := range doc.Children {
		if child == nil {
			continue
		}
		n.children = append(n.children, restoreNode(child, restored))
	}
	return n
}

func EncodeCondition(c *Condition) ([]byte, error) {
	return json.Marshal(c)
}

func DecodeCondition(data []byte) (*Condition, error) {
	c := &Condition{}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DecodeConditionYAML reads the same document shape written as YAML.
func DecodeConditionYAML(data []byte) (*Condition, error) {
	raw, err := yamlToJSON(data)
	if err != nil {
		return nil, err
	}
	return DecodeCondition(raw)
}

func EncodeConditionYAML(c *Condition) ([]byte, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return jsonToYAML(raw)
}

func (c *Criteria[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.condition)
}

func yamlToJSON(data []byte) ([]byte, error) {
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, errors.Wrap(err, "decode yaml")
	}
	raw, err := json.Marshal(generic)
	if err != nil {
		return nil, errors.Wrap(err, "decode yaml")
	}
	return raw, nil
}

func jsonToYAML(raw []byte) ([]byte, error) {
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return yaml.Marshal(generic)
}
