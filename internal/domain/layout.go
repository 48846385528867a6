package domain

// Layout grid used by LayoutGraphByType
const (
	layoutSpacing        = 100
	layoutMaxNodesPerCol = 7
	layoutShift          = 20
)

// LayoutGraphByType groups nodes by component type and arranges them on a
// grid, one block of columns per type. Each non-empty type gets a new group
// labelled with its collection name. Every placed node is labelled with its
// id.
func (e *Editor) LayoutGraphByType(g Graph) Graph {
	out := g.Clone()

	var (
		colCounter     = 0
		rowCounter     = 0
		lastGroupIndex = 0
		groupIndex     = -1
		isShifted      = true
		xOffset        = float64(layoutSpacing) / 2
		yOffset        = float64(layoutSpacing) / 2
	)

	for _, componentType := range ComponentTypes {
		var selection []string
		for _, id := range sortedKeys(out.Nodes) {
			if out.Nodes[id].ModelComponentType == componentType {
				selection = append(selection, id)
			}
		}
		if len(selection) == 0 {
			continue
		}

		group := e.DuplicateGroup(Group{Label: componentType.CollectionName()}, false)
		groupIndex++

		for _, id := range selection {
			node := out.Nodes[id]
			group.NodeIDs = append(group.NodeIDs, id)

			if rowCounter > layoutMaxNodesPerCol || lastGroupIndex != groupIndex {
				if lastGroupIndex != groupIndex {
					lastGroupIndex = groupIndex
					isShifted = true
					xOffset += float64(layoutSpacing) / 2
				} else {
					isShifted = !isShifted
				}
				rowCounter = 0
				colCounter++
			}

			node.Label = node.ID
			y := yOffset + float64(rowCounter*layoutSpacing)
			if !isShifted {
				y += layoutShift
			}
			out.Nodes[id] = node.WithPosition(Point{
				X: xOffset + float64(colCounter*layoutSpacing),
				Y: y,
			})
			rowCounter++
		}

		out.Groups[group.ID] = group
	}

	return out
}

// InferEdgeType proposes a relation for an edge drawn between two component
// types, or "" when none can be inferred
func InferEdgeType(fromType, toType ComponentType) string {
	switch {
	case fromType == ComponentLocation && toType == ComponentLocation:
		return RelationConnects
	case fromType == ComponentItem && toType == ComponentItem:
		return RelationNetwork
	case fromType == ComponentItem && toType == ComponentLocation:
		return RelationAtLocation
	case fromType == ComponentData && toType == ComponentItem:
		return RelationAtLocation
	}
	return ""
}

// ImpossibleEdgeTypes lists the engine relations that can never hold between
// the two component types
func ImpossibleEdgeTypes(fromType, toType ComponentType) []string {
	var out []string
	if !(fromType == ComponentLocation && toType == ComponentLocation) {
		out = append(out, RelationConnects)
	}
	if !(fromType == ComponentItem && toType == ComponentItem) {
		out = append(out, RelationNetwork)
	}
	if !isAtLocationPair(fromType, toType) {
		out = append(out, RelationAtLocation)
	}
	return out
}

func isAtLocationPair(fromType, toType ComponentType) bool {
	switch fromType {
	case ComponentItem:
		return toType == ComponentLocation
	case ComponentData:
		return toType == ComponentItem || toType == ComponentLocation
	case ComponentActor:
		return toType == ComponentLocation
	}
	return false
}
