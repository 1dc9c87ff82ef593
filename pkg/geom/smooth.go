package geom

import "math"

const minSmoothTime = 0.0001

// SmoothDampFloat moves current toward target as a critically damped
// spring reaching it in roughly smoothTime seconds. velocity carries the
// spring state between calls.
func SmoothDampFloat(current, target float64, velocity *float64, smoothTime, dt float64) float64 {
	smoothTime = math.Max(minSmoothTime, smoothTime)
	omega := 2 / smoothTime
	x := omega * dt
	exp := 1 / (1 + x + 0.48*x*x + 0.235*x*x*x)

	change := current - target
	temp := (*velocity + omega*change) * dt
	*velocity = (*velocity - omega*temp) * exp
	out := target + (change+temp)*exp

	// no overshoot
	if (target-current > 0) == (out > target) {
		out = target
		*velocity = 0
	}
	return out
}

// SmoothDamp is the vector form of SmoothDampFloat.
func SmoothDamp(current, target Vec3, velocity *Vec3, smoothTime, dt float64) Vec3 {
	smoothTime = math.Max(minSmoothTime, smoothTime)
	omega := 2 / smoothTime
	x := omega * dt
	exp := 1 / (1 + x + 0.48*x*x + 0.235*x*x*x)

	change := current.Sub(target)
	temp := velocity.Add(change.Scale(omega)).Scale(dt)
	*velocity = velocity.Sub(temp.Scale(omega)).Scale(exp)
	out := target.Add(change.Add(temp).Scale(exp))

	if target.Sub(current).Dot(out.Sub(target)) > 0 {
		out = target
		*velocity = Vec3{}
	}
	return out
}

// SmoothDampQuat damps each component toward target on the same
// hemisphere as current, then keeps deriv tangent to the result.
func SmoothDampQuat(current, target Quat, deriv *Quat, smoothTime, dt float64) Quat {
	if dt <= 0 {
		return current
	}
	if current.Dot(target) < 0 {
		target = target.Scale(-1)
	}

	out := Quat{
		SmoothDampFloat(current.X, target.X, &deriv.X, smoothTime, dt),
		SmoothDampFloat(current.Y, target.Y, &deriv.Y, smoothTime, dt),
		SmoothDampFloat(current.Z, target.Z, &deriv.Z, smoothTime, dt),
		SmoothDampFloat(current.W, target.W, &deriv.W, smoothTime, dt),
	}.Normalize()

	*deriv = deriv.Sub(out.Scale(deriv.Dot(out)))
	return out
}
