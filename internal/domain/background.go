package domain

import "math"

// AddGroupBackgroundImage attaches an image to a group, sized to the default
// width and the given aspect ratio
func AddGroupBackgroundImage(g Graph, groupID, url string, aspectRatio float64) (Graph, error) {
	if _, err := g.Group(groupID); err != nil {
		return g, err
	}
	if aspectRatio <= 0 {
		aspectRatio = 1
	}
	return updateGroup(g, groupID, func(group *Group) {
		img := BackgroundImage{URL: url}
		if group.BackgroundImage != nil {
			img = *group.BackgroundImage
			img.URL = url
		}
		img.Width = BackgroundImageWidth
		img.Height = BackgroundImageWidth / aspectRatio
		group.BackgroundImage = &img
	}), nil
}

// ResizeGroupBackgroundImage resizes a group image, enforcing the minimum
// size. Groups without an image are left unchanged.
func ResizeGroupBackgroundImage(g Graph, groupID string, width, height float64) (Graph, error) {
	group, err := g.Group(groupID)
	if err != nil {
		return g, err
	}
	if group.BackgroundImage == nil {
		return g, nil
	}
	return updateGroup(g, groupID, func(group *Group) {
		group.BackgroundImage.Width = math.Max(width, BackgroundImageMinSize)
		group.BackgroundImage.Height = math.Max(height, BackgroundImageMinSize)
	}), nil
}

// MoveGroupBackgroundImage sets the image offset from the group center.
// Groups without an image are left unchanged.
func MoveGroupBackgroundImage(g Graph, groupID string, offset Point) (Graph, error) {
	group, err := g.Group(groupID)
	if err != nil {
		return g, err
	}
	if group.BackgroundImage == nil {
		return g, nil
	}
	return updateGroup(g, groupID, func(group *Group) {
		group.BackgroundImage.GroupCenterOffsetX = offset.X
		group.BackgroundImage.GroupCenterOffsetY = offset.Y
	}), nil
}

// RemoveGroupBackgroundImage detaches the image of a group
func RemoveGroupBackgroundImage(g Graph, groupID string) (Graph, error) {
	if _, err := g.Group(groupID); err != nil {
		return g, err
	}
	return updateGroup(g, groupID, func(group *Group) {
		group.BackgroundImage = nil
	}), nil
}

func updateGroup(g Graph, groupID string, fn func(*Group)) Graph {
	out := g.Clone()
	group := out.Groups[groupID]
	fn(&group)
	out.Groups[groupID] = group
	return out
}
