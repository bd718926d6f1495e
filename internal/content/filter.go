package content

// Access level below which a visitor sees nothing at all.
const blockedLevel = -1

// typeProject is exempt from sibling grouping: every project survives
// individually, grouped types collapse to their best-tier representative.
const typeProject = "project"

// typeAccess marks authorization metadata nodes, always stripped for viewers.
const typeAccess = "access"

// maxDepth bounds structural recursion on adversarial input. Anything nested
// deeper is pruned rather than traversed.
const maxDepth = 64

// Filter returns the subtree of node visible at the given access level, or
// nil when nothing is visible. It never mutates its input and is safe for
// concurrent use.
//
// Rules:
//   - level -1 sees nothing, regardless of input.
//   - A mapping whose "access" field (default 0) exceeds level is removed
//     together with everything under it, as is any mapping tagged
//     type "access".
//   - Mapping fields whose filtered value is absent are omitted, not nulled.
//   - In a sequence, untyped items and "project" items are kept in their
//     original order; the remaining items are grouped by type tag and each
//     group collapses to the admissible item with the highest "access".
//
// Tie-breaks are deterministic: within a group the first-occurring item wins
// on equal access, and groups are emitted after the ungrouped items in the
// order their type tags first appear.
func Filter(node *Node, level int) *Node {
	if level == blockedLevel {
		return nil
	}
	return filterNode(node, level, 0)
}

func filterNode(node *Node, level, depth int) *Node {
	if node == nil || depth > maxDepth {
		return nil
	}

	switch node.kind {
	case KindSequence:
		return filterSequence(node, level, depth)
	case KindMapping:
		return filterMapping(node, level, depth)
	default:
		// Null scalars are pruned like any other absent value.
		if node.scalar == nil {
			return nil
		}
		return node
	}
}

func filterMapping(node *Node, level, depth int) *Node {
	if node.Access() > level {
		return nil
	}
	if node.TypeTag() == typeAccess {
		return nil
	}

	fields := make(map[string]*Node, len(node.mapping))
	for name, value := range node.mapping {
		if filtered := filterNode(value, level, depth+1); filtered != nil {
			fields[name] = filtered
		}
	}
	return Mapping(fields)
}

func filterSequence(node *Node, level, depth int) *Node {
	kept := make([]*Node, 0, len(node.sequence))

	type group struct {
		winner *Node
		access int
	}
	groups := make(map[string]*group)
	var groupOrder []string

	for _, item := range node.sequence {
		filtered := filterNode(item, level, depth+1)
		if filtered == nil {
			continue
		}

		tag := filtered.TypeTag()
		if tag == "" || tag == typeProject {
			kept = append(kept, filtered)
			continue
		}

		// Grouped type: one conceptual fact per tag, best admissible
		// tier wins. Strict > keeps the first occurrence on ties.
		if g, ok := groups[tag]; ok {
			if filtered.Access() > g.access {
				g.winner, g.access = filtered, filtered.Access()
			}
		} else {
			groups[tag] = &group{winner: filtered, access: filtered.Access()}
			groupOrder = append(groupOrder, tag)
		}
	}

	for _, tag := range groupOrder {
		kept = append(kept, groups[tag].winner)
	}
	return Sequence(kept...)
}
