package host

type Vec2 struct {
	X, Y float64
}

type Vec3 struct {
	X, Y, Z float64
}

// Transform2D is a position, rotation (radians) and scale in 2D.
type Transform2D struct {
	Position Vec2
	Rotation float64
	Scale    Vec2
}

// Transform3D is an origin, euler rotation (radians) and scale in 3D.
type Transform3D struct {
	Origin   Vec3
	Rotation Vec3
	Scale    Vec3
}

func Identity2D() Transform2D {
	return Transform2D{Scale: Vec2{1, 1}}
}

func Identity3D() Transform3D {
	return Transform3D{Scale: Vec3{1, 1, 1}}
}

// Translation2D returns an identity transform moved to (x, y).
func Translation2D(x, y float64) Transform2D {
	t := Identity2D()
	t.Position = Vec2{x, y}
	return t
}

// Translation3D returns an identity transform moved to (x, y, z).
func Translation3D(x, y, z float64) Transform3D {
	t := Identity3D()
	t.Origin = Vec3{x, y, z}
	return t
}
