package domain

import (
	"fmt"
	"regexp"
	"strings"
)

var slugInvalid = regexp.MustCompile(`[^a-z0-9_]+`)

// Slugify turns a label into an id-safe slug: lower case, runs of other
// characters collapsed to "-"
func Slugify(label string) string {
	s := slugInvalid.ReplaceAllString(strings.ToLower(strings.TrimSpace(label)), "-")
	return strings.Trim(s, "-")
}

// HumanizeModelIDs replaces node ids with readable ids of the form
// "node__<label slug>". Nodes sharing a label get "-2", "-3", ... appended in
// id order. The rename is applied to every reference: edge endpoints, group
// members, the id-bearing fields of policies and processes, and predicate
// tuples. The old-to-new mapping is returned with the new graph.
func HumanizeModelIDs(g Graph) (Graph, map[string]string) {
	mapping := make(map[string]string, len(g.Nodes))
	used := make(map[string]bool, len(g.Nodes))

	for _, id := range sortedKeys(g.Nodes) {
		node := g.Nodes[id]
		slug := Slugify(node.Label)
		if slug == "" {
			slug = Slugify(id)
		}
		base := fmt.Sprintf("%s__%s", KindNode, slug)

		candidate := base
		for n := 2; used[candidate]; n++ {
			candidate = fmt.Sprintf("%s-%d", base, n)
		}
		used[candidate] = true
		mapping[id] = candidate
	}

	out := replaceReferences(g, mapping)
	out.Nodes = make(map[string]Node, len(g.Nodes))
	for oldID, node := range g.Nodes {
		renamed := node.Clone()
		renamed.ID = mapping[oldID]
		out.Nodes[renamed.ID] = renamed
	}

	return out, mapping
}
