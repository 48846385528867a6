package domain

import "slices"

// Background image size limits
const (
	BackgroundImageWidth   = 550
	BackgroundImageMinSize = 100
)

// BackgroundImage is an image drawn behind a group
type BackgroundImage struct {
	URL                string  `json:"url" yaml:"url"`
	Width              float64 `json:"width" yaml:"width"`
	Height             float64 `json:"height" yaml:"height"`
	GroupCenterOffsetX float64 `json:"groupCenterOffsetX,omitempty" yaml:"groupCenterOffsetX,omitempty"`
	GroupCenterOffsetY float64 `json:"groupCenterOffsetY,omitempty" yaml:"groupCenterOffsetY,omitempty"`
}

// Group records membership of nodes; NodeIDs is semantically a set
type Group struct {
	ID              string           `json:"id" yaml:"id" validate:"required"`
	Label           string           `json:"label,omitempty" yaml:"label,omitempty"`
	NodeIDs         []string         `json:"nodeIds" yaml:"nodeIds" validate:"unique"`
	BackgroundImage *BackgroundImage `json:"_bgImage,omitempty" yaml:"_bgImage,omitempty"`
}

// NewGroup creates an empty group
func NewGroup(id, label string) Group {
	return Group{
		ID:      id,
		Label:   label,
		NodeIDs: make([]string, 0),
	}
}

// Contains reports whether nodeID is a member
func (g Group) Contains(nodeID string) bool {
	return slices.Contains(g.NodeIDs, nodeID)
}

// Clone returns a deep copy of the group
func (g Group) Clone() Group {
	out := g
	if g.NodeIDs != nil {
		out.NodeIDs = append(make([]string, 0, len(g.NodeIDs)), g.NodeIDs...)
	}
	if g.BackgroundImage != nil {
		img := *g.BackgroundImage
		out.BackgroundImage = &img
	}
	return out
}
