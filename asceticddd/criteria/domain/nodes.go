package criteria

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

type NodeID string

func NewNodeID() NodeID {
	return NodeID(uuid.NewString())
}

type Visitable interface {
	Accept(Visitor) error
}

type Visitor interface {
	VisitBase(*ConditionNode) error
	VisitLeaf(*ConditionNode) error
}

// ConditionNode is one vertex of the condition graph. Children may be shared
// between parents; the id tells shared vertices apart from equal ones.
type ConditionNode struct {
	id         NodeID
	operator   Operator
	connective Connective
	selector   string
	operand    Operand
	children   []*ConditionNode
}

func NewBaseNode(base BaseCase, connective Connective) *ConditionNode {
	operand, _ := NewOperand(base)
	return &ConditionNode{
		id:         NewNodeID(),
		operator:   None,
		connective: connective,
		operand:    operand,
	}
}

func NewLeafNode(selector string, operator Operator, operand Operand, connective Connective) *ConditionNode {
	return &ConditionNode{
		id:         NewNodeID(),
		operator:   operator,
		connective: connective,
		selector:   selector,
		operand:    operand,
	}
}

// RestoreNode rebuilds a node with a known id, as read from the wire or
// copied by Cast.
func RestoreNode(id NodeID, operator Operator, connective Connective, selector string, operand Operand, children []*ConditionNode) *ConditionNode {
	return &ConditionNode{
		id:         id,
		operator:   operator,
		connective: connective,
		selector:   selector,
		operand:    operand,
		children:   children,
	}
}

func (n *ConditionNode) ID() NodeID {
	return n.id
}

func (n *ConditionNode) Operator() Operator {
	return n.operator
}

func (n *ConditionNode) Connective() Connective {
	return n.connective
}

func (n *ConditionNode) Selector() string {
	return n.selector
}

func (n *ConditionNode) Operand() Operand {
	return n.operand
}

func (n *ConditionNode) Children() []*ConditionNode {
	return append([]*ConditionNode(nil), n.children...)
}

func (n *ConditionNode) IsBase() bool {
	return n.operator == None
}

func (n *ConditionNode) Accept(v Visitor) error {
	if n.IsBase() {
		return v.VisitBase(n)
	}
	return v.VisitLeaf(n)
}

func (n *ConditionNode) appendChild(child *ConditionNode, connective Connective) {
	n.children = append(n.children, child)
	n.connective = connective
}

// Walk calls fn once per distinct node reachable from n, parents first.
// Shared and cyclic references are visited once.
func (n *ConditionNode) Walk(fn func(*ConditionNode) error) error {
	seen := make(map[*ConditionNode]struct{})
	var walk func(*ConditionNode) error
	walk = func(node *ConditionNode) error {
		if node == nil {
			return nil
		}
		if _, ok := seen[node]; ok {
			return nil
		}
		seen[node] = struct{}{}
		if err := fn(node); err != nil {
			return err
		}
		for _, child := range node.children {
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(n)
}

// Condition is the envelope shipped over the wire.
type Condition struct {
	ID             string
	EntityTypeName string
	Tree           *ConditionNode
}

func NewCondition(entityTypeName string, tree *ConditionNode) *Condition {
	return &Condition{
		ID:             ulid.Make().String(),
		EntityTypeName: entityTypeName,
		Tree:           tree,
	}
}
