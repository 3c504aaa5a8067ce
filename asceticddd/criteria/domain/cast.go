package criteria

import "reflect"

// Cast copies c into a criteria for U. The condition keeps its id, every
// node is copied with its id, and sharing inside the source (cycles too) is
// reproduced inside the copy.
// Selectors are not checked: a selector U lacks fails at compile time, or
// earlier through Validate.
func Cast[T, U any](c *Criteria[T]) *Criteria[U] {
	entity := reflect.TypeFor[U]()
	copies := make(map[*ConditionNode]*ConditionNode)
	return &Criteria[U]{
		condition: &Condition{
			ID:             c.condition.ID,
			EntityTypeName: TypeName(entity),
			Tree:           copyNode(c.condition.Tree, copies),
		},
		entity:  entity,
		coercer: c.coercer,
		err:     c.err,
	}
}

func copyNode(n *ConditionNode, copies map[*ConditionNode]*ConditionNode) *ConditionNode {
	if n == nil {
		return nil
	}
	if cp, ok := copies[n]; ok {
		return cp
	}
	cp := RestoreNode(n.id, n.operator, n.connective, n.selector, n.operand, nil)
	copies[n] = cp
	if len(n.children) > 0 {
		cp.children = make([]*ConditionNode, len(n.children))
		for i, child := range n.children {
			cp.children[i] = copyNode(child, copies)
		}
	}
	return cp
}
