package domain

import "strings"

// IDPath addresses an id-bearing field inside a Document. Segments are map
// keys; a segment ending in "[]" iterates the list stored under that key.
// The leaf may hold a string or a list of strings.
type IDPath []string

// ParseIDPath parses a dotted path such as "credentials.credPredicate[].value"
func ParseIDPath(s string) IDPath {
	return IDPath(strings.Split(s, "."))
}

func (p IDPath) String() string {
	return strings.Join(p, ".")
}

// PolicyIDPaths lists every field of a policy document that references node ids
var PolicyIDPaths = []IDPath{
	ParseIDPath("atLocations[]"),
	ParseIDPath("credentials.credPredicate[].value"),
	ParseIDPath("enabled.in.loc"),
	ParseIDPath("enabled.out.loc"),
	ParseIDPath("enabled.move.loc"),
	ParseIDPath("enabled.eval.loc"),
}

// ProcessIDPaths lists every field of a process document that references node ids
var ProcessIDPaths = []IDPath{
	ParseIDPath("atLocations[]"),
}

// ReplaceIDInDocument returns a copy of doc with every id found at one of the
// given paths rewritten through mapping. Values at other locations are never
// touched, even if they happen to equal a mapped id.
func ReplaceIDInDocument(mapping map[string]string, doc Document, paths []IDPath) Document {
	out := doc.Clone()
	if out == nil {
		return nil
	}
	for _, path := range paths {
		rewritePath(map[string]any(out), path, mapping)
	}
	return out
}

// DocumentIDs collects the ids referenced at the given paths
func DocumentIDs(doc Document, paths []IDPath) []string {
	var ids []string
	for _, path := range paths {
		collectPath(map[string]any(doc), path, &ids)
	}
	return ids
}

// rewritePath walks container in place; container must already be a private copy
func rewritePath(container map[string]any, path IDPath, mapping map[string]string) {
	if len(path) == 0 || container == nil {
		return
	}
	key, iterate := splitSegment(path[0])
	val, ok := container[key]
	if !ok {
		return
	}

	if len(path) == 1 {
		container[key] = rewriteLeaf(val, mapping)
		return
	}

	if !iterate {
		if child := asMap(val); child != nil {
			rewritePath(child, path[1:], mapping)
		}
		return
	}

	if items, ok := val.([]any); ok {
		for _, item := range items {
			if child := asMap(item); child != nil {
				rewritePath(child, path[1:], mapping)
			}
		}
	}
}

func collectPath(container map[string]any, path IDPath, ids *[]string) {
	if len(path) == 0 || container == nil {
		return
	}
	key, iterate := splitSegment(path[0])
	val, ok := container[key]
	if !ok {
		return
	}

	if len(path) == 1 {
		switch v := val.(type) {
		case string:
			*ids = append(*ids, v)
		default:
			if list, ok := toStringSlice(v); ok {
				*ids = append(*ids, list...)
			}
		}
		return
	}

	if !iterate {
		collectPath(asMap(val), path[1:], ids)
		return
	}
	if items, ok := val.([]any); ok {
		for _, item := range items {
			collectPath(asMap(item), path[1:], ids)
		}
	}
}

func rewriteLeaf(val any, mapping map[string]string) any {
	switch v := val.(type) {
	case string:
		return replaceID(mapping, v)
	case []string:
		out := make([]string, len(v))
		for i, s := range v {
			out[i] = replaceID(mapping, s)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			if s, ok := item.(string); ok {
				out[i] = replaceID(mapping, s)
			} else {
				out[i] = item
			}
		}
		return out
	}
	return val
}

func splitSegment(seg string) (string, bool) {
	if strings.HasSuffix(seg, "[]") {
		return strings.TrimSuffix(seg, "[]"), true
	}
	return seg, false
}

func asMap(v any) map[string]any {
	switch m := v.(type) {
	case map[string]any:
		return m
	case Document:
		return map[string]any(m)
	}
	return nil
}

// replaceID maps id, leaving unmapped ids unchanged
func replaceID(mapping map[string]string, id string) string {
	if newID, ok := mapping[id]; ok {
		return newID
	}
	return id
}

// ReplaceIDInValue returns a copy of v with every string inside it, at any
// nesting depth, rewritten through mapping
func ReplaceIDInValue(mapping map[string]string, v any) any {
	switch t := v.(type) {
	case string:
		return replaceID(mapping, t)
	case []string:
		out := make([]string, len(t))
		for i, s := range t {
			out[i] = replaceID(mapping, s)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = ReplaceIDInValue(mapping, item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = ReplaceIDInValue(mapping, item)
		}
		return out
	case Document:
		return Document(ReplaceIDInValue(mapping, map[string]any(t)).(map[string]any))
	}
	return cloneValue(v)
}
