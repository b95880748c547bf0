package builtin

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/collidebench/internal/shape"
)

// Geometry predicates shared by the collision backends. All tests
// work on the collision geometry of a body in its own frame; callers
// transform points in and results out.

// toLocal maps a world-space point into the body's local, unscaled
// frame.
func toLocal(b *Body, p mgl64.Vec3) mgl64.Vec3 {
	q := b.Rot.Inverse().Rotate(p.Sub(b.Pos))
	return mgl64.Vec3{q[0] / b.Scale[0], q[1] / b.Scale[1], q[2] / b.Scale[2]}
}

func toWorld(b *Body, p mgl64.Vec3) mgl64.Vec3 {
	q := mgl64.Vec3{p[0] * b.Scale[0], p[1] * b.Scale[1], p[2] * b.Scale[2]}
	return b.Rot.Rotate(q).Add(b.Pos)
}

// axisAligned reports whether the body's rotation is close enough to
// identity for axis-aligned shortcuts.
func axisAligned(b *Body) bool {
	return math.Abs(b.Rot.W) > 1-1e-9
}

// bodyAABB returns the world-space axis-aligned bounding box of a
// body's collision geometry.
func bodyAABB(b *Body) (min, max mgl64.Vec3) {
	g := b.Geom
	switch g.Kind() {
	case shape.KindBox:
		h := mgl64.Vec3{
			g.Box.Size[0] * b.Scale[0] / 2,
			g.Box.Size[1] * b.Scale[1] / 2,
			g.Box.Size[2] * b.Scale[2] / 2,
		}
		e := rotatedExtent(b.Rot, h)
		return b.Pos.Sub(e), b.Pos.Add(e)
	case shape.KindSphere:
		r := g.Sphere.Radius * maxScale(b.Scale)
		e := mgl64.Vec3{r, r, r}
		return b.Pos.Sub(e), b.Pos.Add(e)
	case shape.KindCylinder:
		r := g.Cylinder.Radius * math.Max(b.Scale[0], b.Scale[1])
		a := b.Rot.Rotate(mgl64.Vec3{0, 0, g.Cylinder.Length * b.Scale[2] / 2})
		al := a.Len()
		var e mgl64.Vec3
		for i := 0; i < 3; i++ {
			u := 0.0
			if al > 1e-12 {
				u = a[i] / al
			}
			e[i] = math.Abs(a[i]) + r*math.Sqrt(math.Max(0, 1-u*u))
		}
		return b.Pos.Sub(e), b.Pos.Add(e)
	case shape.KindPlane:
		h := mgl64.Vec3{g.Plane.Size[0] / 2, g.Plane.Size[1] / 2, 1e-6}
		e := rotatedExtent(planeRot(b, g.Plane.Normal), h)
		return b.Pos.Sub(e), b.Pos.Add(e)
	case shape.KindMesh:
		first := true
		for _, v := range g.Mesh.Vertices {
			w := toWorld(b, v)
			if first {
				min, max = w, w
				first = false
				continue
			}
			for i := 0; i < 3; i++ {
				min[i] = math.Min(min[i], w[i])
				max[i] = math.Max(max[i], w[i])
			}
		}
		return min, max
	}
	return b.Pos, b.Pos
}

func rotatedExtent(q mgl64.Quat, h mgl64.Vec3) mgl64.Vec3 {
	cx := q.Rotate(mgl64.Vec3{h[0], 0, 0})
	cy := q.Rotate(mgl64.Vec3{0, h[1], 0})
	cz := q.Rotate(mgl64.Vec3{0, 0, h[2]})
	var e mgl64.Vec3
	for i := 0; i < 3; i++ {
		e[i] = math.Abs(cx[i]) + math.Abs(cy[i]) + math.Abs(cz[i])
	}
	return e
}

func planeRot(b *Body, normal mgl64.Vec3) mgl64.Quat {
	n := normal
	if n.Len() < 1e-12 {
		n = mgl64.Vec3{0, 0, 1}
	}
	return b.Rot.Mul(mgl64.QuatBetweenVectors(mgl64.Vec3{0, 0, 1}, n))
}

func maxScale(s mgl64.Vec3) float64 {
	return math.Max(s[0], math.Max(s[1], s[2]))
}

// pointDepth tests a world-space point against a body's collision
// volume. It returns the penetration depth and the outward surface
// normal (world space) when the point is inside.
func pointDepth(b *Body, p mgl64.Vec3) (depth float64, normal mgl64.Vec3, inside bool) {
	g := b.Geom
	lp := toLocal(b, p)
	switch g.Kind() {
	case shape.KindSphere:
		d := lp.Len()
		if d >= g.Sphere.Radius {
			return 0, normal, false
		}
		n := mgl64.Vec3{0, 0, 1}
		if d > 1e-12 {
			n = lp.Mul(1 / d)
		}
		return g.Sphere.Radius - d, b.Rot.Rotate(n), true
	case shape.KindBox:
		h := g.Box.Size.Mul(0.5)
		best := math.Inf(1)
		var n mgl64.Vec3
		for i := 0; i < 3; i++ {
			if math.Abs(lp[i]) >= h[i] {
				return 0, normal, false
			}
			d := h[i] - math.Abs(lp[i])
			if d < best {
				best = d
				n = mgl64.Vec3{}
				if lp[i] >= 0 {
					n[i] = 1
				} else {
					n[i] = -1
				}
			}
		}
		return best, b.Rot.Rotate(n), true
	case shape.KindCylinder:
		half := g.Cylinder.Length / 2
		if math.Abs(lp[2]) >= half {
			return 0, normal, false
		}
		rad := math.Hypot(lp[0], lp[1])
		if rad >= g.Cylinder.Radius {
			return 0, normal, false
		}
		radialDepth := g.Cylinder.Radius - rad
		capDepth := half - math.Abs(lp[2])
		if radialDepth <= capDepth {
			n := mgl64.Vec3{1, 0, 0}
			if rad > 1e-12 {
				n = mgl64.Vec3{lp[0] / rad, lp[1] / rad, 0}
			}
			return radialDepth, b.Rot.Rotate(n), true
		}
		n := mgl64.Vec3{0, 0, 1}
		if lp[2] < 0 {
			n[2] = -1
		}
		return capDepth, b.Rot.Rotate(n), true
	case shape.KindPlane:
		// Half-space below the plane surface.
		n := g.Plane.Normal
		if n.Len() < 1e-12 {
			n = mgl64.Vec3{0, 0, 1}
		}
		n = n.Normalize()
		d := lp.Dot(n)
		if d >= 0 {
			return 0, normal, false
		}
		return -d, b.Rot.Rotate(n), true
	case shape.KindMesh:
		return meshPointDepth(g.Mesh, lp, b.Rot)
	}
	return 0, normal, false
}

// meshPointDepth tests a local point against a closed triangle mesh
// with a ray parity test, reporting distance to the nearest triangle
// as depth.
func meshPointDepth(m *shape.MeshGeom, lp mgl64.Vec3, rot mgl64.Quat) (float64, mgl64.Vec3, bool) {
	crossings := 0
	nearest := math.Inf(1)
	var nearestNormal mgl64.Vec3
	dir := mgl64.Vec3{1, 0, 0}
	for _, f := range m.Faces {
		a, b, c := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
		if hit, _ := rayTriangle(lp, dir, a, b, c); hit {
			crossings++
		}
		if d := pointTriangleDistance(lp, a, b, c); d < nearest {
			nearest = d
			nearestNormal = b.Sub(a).Cross(c.Sub(a))
		}
	}
	if crossings%2 == 0 {
		return 0, mgl64.Vec3{}, false
	}
	n := mgl64.Vec3{0, 0, 1}
	if nearestNormal.Len() > 1e-12 {
		n = nearestNormal.Normalize()
	}
	return nearest, rot.Rotate(n), true
}

// rayTriangle is the Moeller-Trumbore intersection test for a ray
// from origin o along d.
func rayTriangle(o, d, a, b, c mgl64.Vec3) (bool, float64) {
	const eps = 1e-12
	e1 := b.Sub(a)
	e2 := c.Sub(a)
	p := d.Cross(e2)
	det := e1.Dot(p)
	if math.Abs(det) < eps {
		return false, 0
	}
	inv := 1 / det
	s := o.Sub(a)
	u := s.Dot(p) * inv
	if u < 0 || u > 1 {
		return false, 0
	}
	q := s.Cross(e1)
	v := d.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return false, 0
	}
	t := e2.Dot(q) * inv
	if t < eps {
		return false, 0
	}
	return true, t
}

func pointTriangleDistance(p, a, b, c mgl64.Vec3) float64 {
	// Project onto the triangle plane and clamp to the edges.
	n := b.Sub(a).Cross(c.Sub(a))
	if n.Len() < 1e-12 {
		return math.Min(p.Sub(a).Len(), math.Min(p.Sub(b).Len(), p.Sub(c).Len()))
	}
	n = n.Normalize()
	dist := p.Sub(a).Dot(n)
	proj := p.Sub(n.Mul(dist))
	if pointInTriangle(proj, a, b, c) {
		return math.Abs(dist)
	}
	return math.Min(segmentDistance(p, a, b),
		math.Min(segmentDistance(p, b, c), segmentDistance(p, c, a)))
}

func pointInTriangle(p, a, b, c mgl64.Vec3) bool {
	n := b.Sub(a).Cross(c.Sub(a))
	if b.Sub(a).Cross(p.Sub(a)).Dot(n) < 0 {
		return false
	}
	if c.Sub(b).Cross(p.Sub(b)).Dot(n) < 0 {
		return false
	}
	if a.Sub(c).Cross(p.Sub(c)).Dot(n) < 0 {
		return false
	}
	return true
}

func segmentDistance(p, a, b mgl64.Vec3) float64 {
	ab := b.Sub(a)
	t := p.Sub(a).Dot(ab) / ab.Dot(ab)
	t = math.Max(0, math.Min(1, t))
	return p.Sub(a.Add(ab.Mul(t))).Len()
}
