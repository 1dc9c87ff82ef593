package geom

import (
	"math"
	"testing"
)

const eps = 1e-9

func sector() Transform {
	return Transform{
		Position: Vec3{120, -40, 3.5},
		Rotation: AxisAngle(Vec3{0.3, 1, -0.2}, 1.1),
		Scale:    Vec3{1, 1, 1},
	}
}

// TestInverseTransformRoundTrip tests that local coordinates map back to the same world transform.
func TestInverseTransformRoundTrip(t *testing.T) {
	s := sector()
	points := []Vec3{{}, {1, 2, 3}, {-500, 12.5, 0.001}}
	rot := AxisAngle(Vec3{1, 0, 0}, 0.4)

	for _, p := range points {
		local := s.InverseTransformPoint(p)
		if back := s.TransformPoint(local); !back.ApproxEqual(p, 1e-6) {
			t.Errorf("point %v round trip gave %v", p, back)
		}
	}

	local := s.InverseTransformRotation(rot)
	if back := s.TransformRotation(local); back.Angle(rot) > 1e-6 {
		t.Errorf("rotation round trip off by %v rad", back.Angle(rot))
	}
}

// TestInverseTransformScaled tests a non-unit scale.
func TestInverseTransformScaled(t *testing.T) {
	s := Transform{Position: Vec3{1, 0, 0}, Rotation: Identity(), Scale: Vec3{2, 2, 2}}
	if got := s.InverseTransformPoint(Vec3{5, 4, 0}); !got.ApproxEqual(Vec3{2, 2, 0}, eps) {
		t.Fatalf("got %v", got)
	}
}

// TestQuatRotate tests a quarter turn around Y.
func TestQuatRotate(t *testing.T) {
	q := AxisAngle(Vec3{0, 1, 0}, math.Pi/2)
	if got := q.Rotate(Vec3{1, 0, 0}); !got.ApproxEqual(Vec3{0, 0, -1}, 1e-9) {
		t.Fatalf("got %v", got)
	}
	if got := q.Mul(q.Inverse()); got.Angle(Identity()) > 1e-9 {
		t.Fatalf("q*q^-1 = %v", got)
	}
}

// TestSmoothDampMonotone tests that a constant target is approached monotonically and reached.
func TestSmoothDampMonotone(t *testing.T) {
	const smoothTime, dt = 0.1, 1.0 / 60

	cur, target := Vec3{}, Vec3{10, -4, 2}
	var vel Vec3
	prev := cur.Distance(target)

	for i := 0; i < 120; i++ {
		cur = SmoothDamp(cur, target, &vel, smoothTime, dt)
		d := cur.Distance(target)
		if d > prev+eps {
			t.Fatalf("tick %d: distance grew from %v to %v", i, prev, d)
		}
		prev = d
	}
	if prev > 1e-3 {
		t.Fatalf("did not converge, distance %v", prev)
	}
}

// TestSmoothDampNoOvershoot tests a large step never passes the target.
func TestSmoothDampNoOvershoot(t *testing.T) {
	v := 0.0
	if got := SmoothDampFloat(0, 1, &v, 0.1, 10); got != 1 || v != 0 {
		t.Fatalf("got %v with velocity %v", got, v)
	}
}

// TestSmoothDampQuat tests convergence toward a target on the opposite hemisphere.
func TestSmoothDampQuat(t *testing.T) {
	cur := Identity()
	target := AxisAngle(Vec3{0, 0, 1}, 2).Scale(-1)
	var deriv Quat

	for i := 0; i < 120; i++ {
		cur = SmoothDampQuat(cur, target, &deriv, 0.1, 1.0/60)
	}
	if a := cur.Angle(target); a > 1e-2 {
		t.Fatalf("did not converge, angle %v", a)
	}
	if math.Abs(cur.Length()-1) > 1e-9 {
		t.Fatalf("result not normalized: %v", cur.Length())
	}
}
