package domain

// Point is a position or offset on the editor canvas
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Origin is the default import position
var Origin = Point{}

const (
	// CloneOffset separates a clone from its original on both axes
	CloneOffset = 70

	// StaggerX and StaggerY place imported nodes that carry no coordinates
	StaggerX = 60
	StaggerY = 30
)

// Add returns p translated by d
func (p Point) Add(d Point) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

func float64Ptr(f float64) *float64 {
	return &f
}
