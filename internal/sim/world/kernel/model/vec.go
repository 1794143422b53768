package model

type Vec3i struct {
	X int
	Y int
	Z int
}

func (v Vec3i) Add(d Vec3i) Vec3i { return Vec3i{X: v.X + d.X, Y: v.Y + d.Y, Z: v.Z + d.Z} }

func (v Vec3i) ToArray() [3]int { return [3]int{v.X, v.Y, v.Z} }

func FromArray(a [3]int) Vec3i { return Vec3i{X: a[0], Y: a[1], Z: a[2]} }

// Faces lists the six neighbour offsets in scan order: north, east, south, west, up, down.
// North is -Z and east is +X.
var Faces = [6]Vec3i{
	{X: 0, Y: 0, Z: -1},
	{X: 1, Y: 0, Z: 0},
	{X: 0, Y: 0, Z: 1},
	{X: -1, Y: 0, Z: 0},
	{X: 0, Y: 1, Z: 0},
	{X: 0, Y: -1, Z: 0},
}

// IsFace reports whether d is a unit offset along one axis.
func IsFace(d Vec3i) bool {
	for _, f := range Faces {
		if f == d {
			return true
		}
	}
	return false
}
