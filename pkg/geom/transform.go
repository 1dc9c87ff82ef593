package geom

// Transform places a local space inside its parent: scale, then rotate,
// then translate.
type Transform struct {
	Position Vec3
	Rotation Quat
	Scale    Vec3
}

// NewTransform returns a unit-scale transform.
func NewTransform(position Vec3, rotation Quat) Transform {
	return Transform{Position: position, Rotation: rotation, Scale: Vec3{1, 1, 1}}
}

func (t Transform) scale() Vec3 {
	if t.Scale.IsZero() {
		return Vec3{1, 1, 1}
	}
	return t.Scale
}

func (t Transform) rotation() Quat {
	if t.Rotation == (Quat{}) {
		return Identity()
	}
	return t.Rotation
}

// TransformPoint maps a local point to parent space.
func (t Transform) TransformPoint(p Vec3) Vec3 {
	return t.rotation().Rotate(p.Mul(t.scale())).Add(t.Position)
}

// InverseTransformPoint maps a parent-space point into local space.
func (t Transform) InverseTransformPoint(p Vec3) Vec3 {
	return t.rotation().Inverse().Rotate(p.Sub(t.Position)).Div(t.scale())
}

func (t Transform) TransformRotation(q Quat) Quat {
	return t.rotation().Mul(q)
}

func (t Transform) InverseTransformRotation(q Quat) Quat {
	return t.rotation().Inverse().Mul(q)
}
