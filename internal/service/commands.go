package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"anm/internal/domain"
)

// ErrUnknownCommand is returned when decoding a command name with no registration
var ErrUnknownCommand = errors.New("unknown command")

// Command is one graph mutation. Apply must be pure: it derives a new graph
// from g and draws every fresh id from ed.
type Command interface {
	Name() string
	Apply(ed *domain.Editor, g domain.Graph) (domain.Graph, error)
}

// Envelope is the wire form of a command
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

var registry = map[string]func() Command{
	"import_fragment":         func() Command { return &ImportFragmentCmd{} },
	"add_node":                func() Command { return &AddNodeCmd{} },
	"remove_node":             func() Command { return &RemoveNodeCmd{} },
	"clone_node":              func() Command { return &CloneNodeCmd{} },
	"move_node":               func() Command { return &MoveNodeCmd{} },
	"add_edge":                func() Command { return &AddEdgeCmd{} },
	"remove_edge":             func() Command { return &RemoveEdgeCmd{} },
	"add_group":               func() Command { return &AddGroupCmd{} },
	"remove_group":            func() Command { return &RemoveGroupCmd{} },
	"clone_group":             func() Command { return &CloneGroupCmd{} },
	"move_group":              func() Command { return &MoveGroupCmd{} },
	"add_node_to_group":       func() Command { return &AddNodeToGroupCmd{} },
	"ungroup_node":            func() Command { return &UngroupNodeCmd{} },
	"update_properties":       func() Command { return &UpdatePropertiesCmd{} },
	"humanize_ids":            func() Command { return &HumanizeIDsCmd{} },
	"layout_by_type":          func() Command { return &LayoutByTypeCmd{} },
	"clean_group_membership":  func() Command { return &CleanGroupMembershipCmd{} },
	"add_background_image":    func() Command { return &AddBackgroundImageCmd{} },
	"resize_background_image": func() Command { return &ResizeBackgroundImageCmd{} },
	"move_background_image":   func() Command { return &MoveBackgroundImageCmd{} },
	"remove_background_image": func() Command { return &RemoveBackgroundImageCmd{} },
}

// CommandNames lists the registered command names
func CommandNames() []string {
	return slices.Sorted(maps.Keys(registry))
}

// DecodeCommand builds a command from its name and JSON payload
func DecodeCommand(name string, payload json.RawMessage) (Command, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	cmd := factory()
	if len(payload) > 0 && string(payload) != "null" {
		if err := json.Unmarshal(payload, cmd); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", name, err)
		}
	}
	return cmd, nil
}

// EncodeCommand returns the wire form of cmd
func EncodeCommand(cmd Command) (Envelope, error) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", cmd.Name(), err)
	}
	return Envelope{Type: cmd.Name(), Payload: payload}, nil
}

// ImportFragmentCmd merges a fragment at a position. With Copy set the
// fragment is duplicated first so its entities get fresh ids.
type ImportFragmentCmd struct {
	Fragment domain.Fragment `json:"fragment"`
	At       domain.Point    `json:"at"`
	Copy     bool            `json:"copy,omitempty"`
}

func (c ImportFragmentCmd) Name() string { return "import_fragment" }

func (c ImportFragmentCmd) Apply(ed *domain.Editor, g domain.Graph) (domain.Graph, error) {
	f := domain.CreateFragment(c.Fragment)
	if c.Copy {
		f, _ = ed.DuplicateFragment(f)
	}
	return domain.ImportFragment(g, f, c.At), nil
}

// AddNodeCmd adds a single node. A node without id gets a fresh one.
type AddNodeCmd struct {
	Node domain.Node  `json:"node"`
	At   domain.Point `json:"at"`
}

func (c AddNodeCmd) Name() string { return "add_node" }

func (c AddNodeCmd) Apply(ed *domain.Editor, g domain.Graph) (domain.Graph, error) {
	node := c.Node.Clone()
	if node.ID == "" {
		node.ID = ed.NewID("node")
	}
	if err := domain.ValidateNode(node); err != nil {
		return g, err
	}
	if _, exists := g.Nodes[node.ID]; exists {
		return g, fmt.Errorf("%w: node %s", domain.ErrDuplicateID, node.ID)
	}
	return domain.ImportFragment(g, domain.NodeAsFragment(node), c.At), nil
}

type RemoveNodeCmd struct {
	NodeID string `json:"node_id"`
}

func (c RemoveNodeCmd) Name() string { return "remove_node" }

func (c RemoveNodeCmd) Apply(_ *domain.Editor, g domain.Graph) (domain.Graph, error) {
	return domain.RemoveNode(g, c.NodeID)
}

type CloneNodeCmd struct {
	NodeID string `json:"node_id"`
}

func (c CloneNodeCmd) Name() string { return "clone_node" }

func (c CloneNodeCmd) Apply(ed *domain.Editor, g domain.Graph) (domain.Graph, error) {
	return ed.CloneNode(g, c.NodeID)
}

type MoveNodeCmd struct {
	NodeID string       `json:"node_id"`
	XY     domain.Point `json:"xy"`
}

func (c MoveNodeCmd) Name() string { return "move_node" }

func (c MoveNodeCmd) Apply(_ *domain.Editor, g domain.Graph) (domain.Graph, error) {
	return domain.MoveNode(g, c.NodeID, c.XY)
}

type AddEdgeCmd struct {
	Edge domain.Edge `json:"edge"`
}

func (c AddEdgeCmd) Name() string { return "add_edge" }

func (c AddEdgeCmd) Apply(ed *domain.Editor, g domain.Graph) (domain.Graph, error) {
	return ed.AddEdge(g, c.Edge)
}

type RemoveEdgeCmd struct {
	EdgeID string `json:"edge_id"`
}

func (c RemoveEdgeCmd) Name() string { return "remove_edge" }

func (c RemoveEdgeCmd) Apply(_ *domain.Editor, g domain.Graph) (domain.Graph, error) {
	return domain.RemoveEdge(g, c.EdgeID)
}

type AddGroupCmd struct {
	Group domain.Group `json:"group"`
}

func (c AddGroupCmd) Name() string { return "add_group" }

func (c AddGroupCmd) Apply(ed *domain.Editor, g domain.Graph) (domain.Graph, error) {
	return ed.AddGroup(g, c.Group)
}

type RemoveGroupCmd struct {
	GroupID     string `json:"group_id"`
	RemoveNodes bool   `json:"remove_nodes,omitempty"`
}

func (c RemoveGroupCmd) Name() string { return "remove_group" }

func (c RemoveGroupCmd) Apply(_ *domain.Editor, g domain.Graph) (domain.Graph, error) {
	return domain.RemoveGroup(g, c.GroupID, c.RemoveNodes)
}

type CloneGroupCmd struct {
	GroupID string `json:"group_id"`
}

func (c CloneGroupCmd) Name() string { return "clone_group" }

func (c CloneGroupCmd) Apply(ed *domain.Editor, g domain.Graph) (domain.Graph, error) {
	return ed.CloneGroup(g, c.GroupID)
}

type MoveGroupCmd struct {
	GroupID string       `json:"group_id"`
	Delta   domain.Point `json:"delta"`
}

func (c MoveGroupCmd) Name() string { return "move_group" }

func (c MoveGroupCmd) Apply(_ *domain.Editor, g domain.Graph) (domain.Graph, error) {
	return domain.MoveGroup(g, c.GroupID, c.Delta)
}

type AddNodeToGroupCmd struct {
	NodeID  string `json:"node_id"`
	GroupID string `json:"group_id"`
}

func (c AddNodeToGroupCmd) Name() string { return "add_node_to_group" }

func (c AddNodeToGroupCmd) Apply(_ *domain.Editor, g domain.Graph) (domain.Graph, error) {
	return domain.AddNodeToGroup(g, c.NodeID, c.GroupID)
}

type UngroupNodeCmd struct {
	NodeID string `json:"node_id"`
}

func (c UngroupNodeCmd) Name() string { return "ungroup_node" }

func (c UngroupNodeCmd) Apply(_ *domain.Editor, g domain.Graph) (domain.Graph, error) {
	return domain.UngroupNode(g, c.NodeID)
}

// UpdatePropertiesCmd merges properties into a node, edge or group
type UpdatePropertiesCmd struct {
	Kind       domain.GraphComponentKind `json:"kind"`
	ID         string                    `json:"id"`
	Properties map[string]any            `json:"properties"`
}

func (c UpdatePropertiesCmd) Name() string { return "update_properties" }

func (c UpdatePropertiesCmd) Apply(_ *domain.Editor, g domain.Graph) (domain.Graph, error) {
	return domain.UpdateComponentProperties(g, c.Kind, c.ID, c.Properties)
}

// HumanizeIDsCmd replaces node ids with label slugs. The id mapping of the
// last Apply is kept on the command.
type HumanizeIDsCmd struct {
	mapping map[string]string
}

func (c *HumanizeIDsCmd) Name() string { return "humanize_ids" }

func (c *HumanizeIDsCmd) Apply(_ *domain.Editor, g domain.Graph) (domain.Graph, error) {
	out, mapping := domain.HumanizeModelIDs(g)
	c.mapping = mapping
	return out, nil
}

// Mapping returns the old-to-new id mapping of the last Apply
func (c *HumanizeIDsCmd) Mapping() map[string]string {
	return c.mapping
}

type LayoutByTypeCmd struct{}

func (c LayoutByTypeCmd) Name() string { return "layout_by_type" }

func (c LayoutByTypeCmd) Apply(ed *domain.Editor, g domain.Graph) (domain.Graph, error) {
	return ed.LayoutGraphByType(g), nil
}

type CleanGroupMembershipCmd struct{}

func (c CleanGroupMembershipCmd) Name() string { return "clean_group_membership" }

func (c CleanGroupMembershipCmd) Apply(_ *domain.Editor, g domain.Graph) (domain.Graph, error) {
	return domain.CleanGroupMembership(g), nil
}

type AddBackgroundImageCmd struct {
	GroupID     string  `json:"group_id"`
	URL         string  `json:"url"`
	AspectRatio float64 `json:"aspect_ratio"`
}

func (c AddBackgroundImageCmd) Name() string { return "add_background_image" }

func (c AddBackgroundImageCmd) Apply(_ *domain.Editor, g domain.Graph) (domain.Graph, error) {
	return domain.AddGroupBackgroundImage(g, c.GroupID, c.URL, c.AspectRatio)
}

type ResizeBackgroundImageCmd struct {
	GroupID string  `json:"group_id"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
}

func (c ResizeBackgroundImageCmd) Name() string { return "resize_background_image" }

func (c ResizeBackgroundImageCmd) Apply(_ *domain.Editor, g domain.Graph) (domain.Graph, error) {
	return domain.ResizeGroupBackgroundImage(g, c.GroupID, c.Width, c.Height)
}

type MoveBackgroundImageCmd struct {
	GroupID string       `json:"group_id"`
	Offset  domain.Point `json:"offset"`
}

func (c MoveBackgroundImageCmd) Name() string { return "move_background_image" }

func (c MoveBackgroundImageCmd) Apply(_ *domain.Editor, g domain.Graph) (domain.Graph, error) {
	return domain.MoveGroupBackgroundImage(g, c.GroupID, c.Offset)
}

type RemoveBackgroundImageCmd struct {
	GroupID string `json:"group_id"`
}

func (c RemoveBackgroundImageCmd) Name() string { return "remove_background_image" }

func (c RemoveBackgroundImageCmd) Apply(_ *domain.Editor, g domain.Graph) (domain.Graph, error) {
	return domain.RemoveGroupBackgroundImage(g, c.GroupID)
}
