package geom

import "math"

// Quat is a rotation quaternion.
type Quat struct{ X, Y, Z, W float64 }

func Identity() Quat {
	return Quat{W: 1}
}

// AxisAngle returns the rotation of angle radians around axis.
func AxisAngle(axis Vec3, angle float64) Quat {
	a := axis.Normalize()
	s, c := math.Sincos(angle / 2)
	return Quat{a.X * s, a.Y * s, a.Z * s, c}
}

// Mul returns q*o, the rotation applying o first and then q.
func (q Quat) Mul(o Quat) Quat {
	return Quat{
		q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
		q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
	}
}

func (q Quat) Dot(o Quat) float64 {
	return q.X*o.X + q.Y*o.Y + q.Z*o.Z + q.W*o.W
}

func (q Quat) Scale(s float64) Quat {
	return Quat{q.X * s, q.Y * s, q.Z * s, q.W * s}
}

func (q Quat) Sub(o Quat) Quat {
	return Quat{q.X - o.X, q.Y - o.Y, q.Z - o.Z, q.W - o.W}
}

func (q Quat) Length() float64 {
	return math.Sqrt(q.Dot(q))
}

// Normalize returns the unit quaternion of q, or identity for a zero q.
func (q Quat) Normalize() Quat {
	l := q.Length()
	if l == 0 {
		return Identity()
	}
	return q.Scale(1 / l)
}

func (q Quat) Conjugate() Quat {
	return Quat{-q.X, -q.Y, -q.Z, q.W}
}

func (q Quat) Inverse() Quat {
	n := q.Dot(q)
	if n == 0 {
		return Identity()
	}
	return q.Conjugate().Scale(1 / n)
}

// Rotate applies q to v.
func (q Quat) Rotate(v Vec3) Vec3 {
	u := Vec3{q.X, q.Y, q.Z}
	t := u.Cross(v).Scale(2)
	return v.Add(t.Scale(q.W)).Add(u.Cross(t))
}

// Angle returns the angle in radians between two rotations.
func (q Quat) Angle(o Quat) float64 {
	d := math.Min(math.Abs(q.Normalize().Dot(o.Normalize())), 1)
	return 2 * math.Acos(d)
}
