package domain

import "slices"

// HasLiteral reports whether value is a non-node value of the predicate
func (p Predicate) HasLiteral(value string) bool {
	return slices.Contains(p.Literals, value)
}

// PrunePredicates keeps the retained predicates in step with the edges
// unfolded from them. A tuple is split wherever two adjacent node values are
// no longer joined by an edge whose relation is the predicate id.
func PrunePredicates(g Graph) Graph {
	out := g.Clone()
	prunePredicatesInPlace(&out)
	return out
}

func prunePredicatesInPlace(g *Graph) {
	if len(g.Predicates) == 0 {
		return
	}
	backed := make(map[[3]string]bool, len(g.Edges))
	for _, edge := range g.Edges {
		backed[[3]string{edge.Relation, edge.From, edge.To}] = true
	}
	for id, p := range g.Predicates {
		cut := func(i int, tuple []string) bool {
			from, to := tuple[i-1], tuple[i]
			if from == to {
				return false
			}
			_, fromOK := g.Nodes[from]
			_, toOK := g.Nodes[to]
			return fromOK && toOK && !backed[[3]string{p.ID, from, to}]
		}
		if updated, changed := rewriteTuples(p, cut, nil); changed {
			setPredicate(g, id, updated)
		}
	}
}

// stripPredicateValue removes nodeID from every tuple, splitting the tuple
// where the value stood
func stripPredicateValue(g *Graph, nodeID string) {
	for id, p := range g.Predicates {
		drop := func(value string) bool { return value == nodeID }
		if updated, changed := rewriteTuples(p, nil, drop); changed {
			setPredicate(g, id, updated)
		}
	}
}

// setPredicate stores p, deleting it once its last tuple is gone
func setPredicate(g *Graph, id string, p Predicate) {
	if len(p.Tuples) == 0 {
		delete(g.Predicates, id)
		return
	}
	g.Predicates[id] = p
}

// rewriteTuples splits each tuple before index i when cut(i, tuple) holds and
// removes the values matched by drop. Tuples that change keep only the pieces
// that still pair two values; unchanged tuples are kept as they are, so unary
// tuples survive. Literals no longer used by any tuple are dropped.
func rewriteTuples(p Predicate, cut func(i int, tuple []string) bool, drop func(value string) bool) (Predicate, bool) {
	changed := false
	tuples := make([][]string, 0, len(p.Tuples))

	for _, tuple := range p.Tuples {
		var pieces [][]string
		var current []string
		split := false
		for i, value := range tuple {
			if drop != nil && drop(value) {
				pieces = append(pieces, current)
				current = nil
				split = true
				continue
			}
			if cut != nil && i > 0 && len(current) > 0 && cut(i, tuple) {
				pieces = append(pieces, current)
				current = nil
				split = true
			}
			current = append(current, value)
		}
		pieces = append(pieces, current)

		if !split {
			tuples = append(tuples, tuple)
			continue
		}
		changed = true
		for _, piece := range pieces {
			if len(piece) >= 2 {
				tuples = append(tuples, piece)
			}
		}
	}
	if !changed {
		return p, false
	}

	out := p.Clone()
	out.Tuples = tuples
	out.Literals = nil
	for _, literal := range p.Literals {
		for _, tuple := range tuples {
			if slices.Contains(tuple, literal) {
				out.Literals = append(out.Literals, literal)
				break
			}
		}
	}
	return out, true
}
