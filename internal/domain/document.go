package domain

// Document is a semi-structured record such as a policy or a process.
// Node ids may appear at several nesting depths; see IDPath.
type Document map[string]any

// ID returns the document id, or "" when missing
func (d Document) ID() string {
	s, _ := d["id"].(string)
	return s
}

// Clone returns a deep copy of the document
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return Document(cloneMap(d))
}

// Predicate is a retained predicate of the external model. Each tuple holds
// node ids; tuples are unfolded into edges whose relation is the predicate id.
// Tuple values that never named a node are listed in Literals.
type Predicate struct {
	ID       string     `json:"id" yaml:"id"`
	Label    string     `json:"label,omitempty" yaml:"label,omitempty"`
	Arity    int        `json:"arity,omitempty" yaml:"arity,omitempty"`
	Tuples   [][]string `json:"tuples,omitempty" yaml:"tuples,omitempty"`
	Literals []string   `json:"literals,omitempty" yaml:"literals,omitempty"`
}

// Clone returns a deep copy of the predicate
func (p Predicate) Clone() Predicate {
	out := p
	if p.Tuples != nil {
		out.Tuples = make([][]string, len(p.Tuples))
		for i, t := range p.Tuples {
			out.Tuples[i] = append([]string(nil), t...)
		}
	}
	if p.Literals != nil {
		out.Literals = append([]string(nil), p.Literals...)
	}
	return out
}
