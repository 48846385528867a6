package codec

import (
	"fmt"
	"io"

	"anm/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles YAML import/export. Fragments use a list layout that is
// convenient to write by hand; edge ids may be omitted.
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// yamlFragment represents the YAML structure for graph data
type yamlFragment struct {
	Nodes      []domain.Node      `yaml:"nodes"`
	Edges      []yamlEdge         `yaml:"edges"`
	Groups     []domain.Group     `yaml:"groups,omitempty"`
	Policies   []domain.Document  `yaml:"policies,omitempty"`
	Processes  []domain.Document  `yaml:"processes,omitempty"`
	Predicates []domain.Predicate `yaml:"predicates,omitempty"`
}

type yamlEdge struct {
	ID       string `yaml:"id,omitempty"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
	Relation string `yaml:"relation,omitempty"`
	Directed *bool  `yaml:"directed,omitempty"`
	Label    string `yaml:"label,omitempty"`
}

// Parse imports a fragment from YAML
func (c *YAMLCodec) Parse(r io.Reader) (domain.Fragment, error) {
	var yf yamlFragment
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&yf); err != nil && err != io.EOF {
		return domain.Fragment{}, fmt.Errorf("%w: failed to parse YAML: %w", ErrMalformedInput, err)
	}

	fragment := domain.NewFragment()

	for _, node := range yf.Nodes {
		if node.Attributes == nil {
			node.Attributes = make(map[string]any)
		}
		fragment.AddNode(node)
	}

	for _, ye := range yf.Edges {
		edge := domain.NewEdge(ye.ID, ye.From, ye.To, ye.Relation)
		edge.Label = ye.Label
		if ye.Directed != nil {
			edge.Directed = *ye.Directed
		}
		if edge.ID == "" {
			edge = domain.DuplicateEdge(edge, false)
		}
		fragment.AddEdge(edge)
	}

	for _, group := range yf.Groups {
		fragment.AddGroup(domain.DuplicateGroup(group, true))
	}

	fragment.Policies = documentMap(yf.Policies)
	fragment.Processes = documentMap(yf.Processes)
	if len(yf.Predicates) > 0 {
		fragment.Predicates = make(map[string]domain.Predicate, len(yf.Predicates))
		for _, p := range yf.Predicates {
			fragment.Predicates[p.ID] = p
		}
	}

	return fragment, nil
}

// Export exports a fragment to YAML, ordered by id
func (c *YAMLCodec) Export(fragment domain.Fragment, w io.Writer) error {
	yf := yamlFragment{
		Nodes: make([]domain.Node, 0, len(fragment.Nodes)),
		Edges: make([]yamlEdge, 0, len(fragment.Edges)),
	}

	for _, id := range sortedIDs(fragment.Nodes) {
		yf.Nodes = append(yf.Nodes, fragment.Nodes[id])
	}

	for _, id := range sortedIDs(fragment.Edges) {
		edge := fragment.Edges[id]
		directed := edge.Directed
		yf.Edges = append(yf.Edges, yamlEdge{
			ID:       edge.ID,
			From:     edge.From,
			To:       edge.To,
			Relation: edge.Relation,
			Directed: &directed,
			Label:    edge.Label,
		})
	}

	for _, id := range sortedIDs(fragment.Groups) {
		yf.Groups = append(yf.Groups, fragment.Groups[id])
	}
	for _, id := range sortedIDs(fragment.Policies) {
		yf.Policies = append(yf.Policies, fragment.Policies[id])
	}
	for _, id := range sortedIDs(fragment.Processes) {
		yf.Processes = append(yf.Processes, fragment.Processes[id])
	}
	for _, id := range sortedIDs(fragment.Predicates) {
		yf.Predicates = append(yf.Predicates, fragment.Predicates[id])
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(&yf); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}

// DecodeModel reads an external model from YAML
func (c *YAMLCodec) DecodeModel(r io.Reader) (*Model, error) {
	m := NewModel(Metadata{})
	if err := yaml.NewDecoder(r).Decode(m); err != nil {
		return nil, fmt.Errorf("%w: failed to parse YAML model: %w", ErrMalformedInput, err)
	}
	return m, nil
}

// EncodeModel writes an external model as YAML
func (c *YAMLCodec) EncodeModel(m *Model, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(m); err != nil {
		return fmt.Errorf("failed to encode YAML model: %w", err)
	}

	return nil
}

func documentMap(docs []domain.Document) map[string]domain.Document {
	if len(docs) == 0 {
		return nil
	}
	out := make(map[string]domain.Document, len(docs))
	for _, doc := range docs {
		out[doc.ID()] = doc
	}
	return out
}
