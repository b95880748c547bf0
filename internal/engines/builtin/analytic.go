package builtin

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/collidebench/internal/contact"
	"github.com/san-kum/collidebench/internal/shape"
)

// AnalyticCollider computes contacts from closed-form overlap tests
// between primitive volumes, falling back to vertex tests for meshes
// and to bounding boxes for shape pairs it has no exact test for.
type AnalyticCollider struct{}

func NewAnalyticCollider() *AnalyticCollider { return &AnalyticCollider{} }

func (c *AnalyticCollider) Name() string { return "analytic" }

func (c *AnalyticCollider) Supports(g *shape.Geometry) bool {
	return g.Kind() >= shape.KindBox && g.Kind() <= shape.KindMesh
}

func (c *AnalyticCollider) AABB(b *Body) (mgl64.Vec3, mgl64.Vec3) {
	return bodyAABB(b)
}

func (c *AnalyticCollider) Contacts(a, b *Body) ([]contact.Contact, bool) {
	ka, kb := a.Geom.Kind(), b.Geom.Kind()
	// Normalize the pair order so each case is written once.
	if ka > kb {
		cs, hit := c.Contacts(b, a)
		return flipContacts(cs), hit
	}

	switch {
	case ka == shape.KindBox && kb == shape.KindBox:
		return boxBox(a, b)
	case ka == shape.KindBox && kb == shape.KindSphere:
		return flip(sphereVolume(b, a))
	case ka == shape.KindSphere && kb == shape.KindSphere:
		return sphereSphere(a, b)
	case ka == shape.KindSphere && kb == shape.KindCylinder:
		return sphereVolume(a, b)
	case ka == shape.KindBox && kb == shape.KindCylinder:
		return boxCylinder(a, b)
	case ka == shape.KindCylinder && kb == shape.KindCylinder:
		return cylinderCylinder(a, b)
	case kb == shape.KindMesh:
		return meshVolume(b, a)
	case ka == shape.KindPlane:
		return flip(supportPlane(b, a))
	case kb == shape.KindPlane:
		return supportPlane(a, b)
	}
	return aabbOverlap(a, b)
}

func flip(cs []contact.Contact, hit bool) ([]contact.Contact, bool) {
	return flipContacts(cs), hit
}

func flipContacts(cs []contact.Contact) []contact.Contact {
	for i := range cs {
		cs[i].Normal = cs[i].Normal.Mul(-1)
	}
	return cs
}

func sphereSphere(a, b *Body) ([]contact.Contact, bool) {
	ra := a.Geom.Sphere.Radius * maxScale(a.Scale)
	rb := b.Geom.Sphere.Radius * maxScale(b.Scale)
	d := b.Pos.Sub(a.Pos)
	dist := d.Len()
	depth := ra + rb - dist
	if depth <= 0 {
		return nil, false
	}
	n := mgl64.Vec3{0, 0, 1}
	if dist > 1e-12 {
		n = d.Mul(1 / dist)
	}
	p := a.Pos.Add(n.Mul(ra - depth/2))
	return []contact.Contact{{Position: p, Normal: n, Depth: depth}}, true
}

// sphereVolume handles a sphere against any volume with a pointDepth
// test by probing the closest point of the volume to the sphere
// center.
func sphereVolume(s, v *Body) ([]contact.Contact, bool) {
	r := s.Geom.Sphere.Radius * maxScale(s.Scale)
	if depth, n, inside := pointDepth(v, s.Pos); inside {
		return []contact.Contact{{Position: s.Pos, Normal: n, Depth: depth + r}}, true
	}
	cp, ok := closestPoint(v, s.Pos)
	if !ok {
		return aabbOverlap(s, v)
	}
	d := s.Pos.Sub(cp)
	dist := d.Len()
	depth := r - dist
	if depth <= 0 {
		return nil, false
	}
	n := mgl64.Vec3{0, 0, 1}
	if dist > 1e-12 {
		n = d.Mul(1 / dist)
	}
	return []contact.Contact{{Position: cp, Normal: n, Depth: depth}}, true
}

// closestPoint returns the closest point of the body's volume to a
// world-space point, for the volume kinds with an easy closed form.
func closestPoint(b *Body, p mgl64.Vec3) (mgl64.Vec3, bool) {
	lp := toLocal(b, p)
	switch b.Geom.Kind() {
	case shape.KindBox:
		h := b.Geom.Box.Size.Mul(0.5)
		var q mgl64.Vec3
		for i := 0; i < 3; i++ {
			q[i] = math.Max(-h[i], math.Min(h[i], lp[i]))
		}
		return toWorld(b, q), true
	case shape.KindCylinder:
		half := b.Geom.Cylinder.Length / 2
		r := b.Geom.Cylinder.Radius
		q := lp
		q[2] = math.Max(-half, math.Min(half, q[2]))
		rad := math.Hypot(q[0], q[1])
		if rad > r {
			q[0] *= r / rad
			q[1] *= r / rad
		}
		return toWorld(b, q), true
	}
	return mgl64.Vec3{}, false
}

type obb struct {
	c    mgl64.Vec3
	axis [3]mgl64.Vec3
	h    [3]float64
}

func makeOBB(b *Body) obb {
	size := b.Geom.Box.Size
	o := obb{c: b.Pos}
	units := [3]mgl64.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	for i := 0; i < 3; i++ {
		o.axis[i] = b.Rot.Rotate(units[i])
		o.h[i] = size[i] * b.Scale[i] / 2
	}
	return o
}

func (o obb) radius(axis mgl64.Vec3) float64 {
	r := 0.0
	for i := 0; i < 3; i++ {
		r += o.h[i] * math.Abs(o.axis[i].Dot(axis))
	}
	return r
}

// boxBox runs the separating-axis test over the 15 candidate axes of
// two oriented boxes and reports a single contact on the axis of
// least overlap.
func boxBox(a, b *Body) ([]contact.Contact, bool) {
	oa, ob := makeOBB(a), makeOBB(b)
	d := ob.c.Sub(oa.c)

	var axes []mgl64.Vec3
	for i := 0; i < 3; i++ {
		axes = append(axes, oa.axis[i], ob.axis[i])
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			cr := oa.axis[i].Cross(ob.axis[j])
			if cr.Len() > 1e-9 {
				axes = append(axes, cr.Normalize())
			}
		}
	}

	minDepth := math.Inf(1)
	var minAxis mgl64.Vec3
	for _, ax := range axes {
		overlap := oa.radius(ax) + ob.radius(ax) - math.Abs(d.Dot(ax))
		if overlap <= 0 {
			return nil, false
		}
		if overlap < minDepth {
			minDepth = overlap
			minAxis = ax
		}
	}
	if minAxis.Dot(d) < 0 {
		minAxis = minAxis.Mul(-1)
	}
	p := oa.c.Add(d.Mul(0.5))
	return []contact.Contact{{Position: p, Normal: minAxis, Depth: minDepth}}, true
}

// boxCylinder is exact for the axis-aligned case: radial distance
// from the cylinder axis to the box footprint against the radius, and
// interval overlap along the cylinder axis. Rotated pairs fall back
// to bounding boxes.
func boxCylinder(box, cyl *Body) ([]contact.Contact, bool) {
	if !axisAligned(box) || !axisAligned(cyl) {
		return aabbOverlap(box, cyl)
	}
	r := cyl.Geom.Cylinder.Radius * math.Max(cyl.Scale[0], cyl.Scale[1])
	halfLen := cyl.Geom.Cylinder.Length * cyl.Scale[2] / 2
	h := mgl64.Vec3{
		box.Geom.Box.Size[0] * box.Scale[0] / 2,
		box.Geom.Box.Size[1] * box.Scale[1] / 2,
		box.Geom.Box.Size[2] * box.Scale[2] / 2,
	}

	zOverlap := math.Min(box.Pos[2]+h[2], cyl.Pos[2]+halfLen) -
		math.Max(box.Pos[2]-h[2], cyl.Pos[2]-halfLen)
	if zOverlap <= 0 {
		return nil, false
	}

	// Closest point of the box footprint to the axis, in the XY plane.
	cx := math.Max(box.Pos[0]-h[0], math.Min(box.Pos[0]+h[0], cyl.Pos[0]))
	cy := math.Max(box.Pos[1]-h[1], math.Min(box.Pos[1]+h[1], cyl.Pos[1]))
	radial := math.Hypot(cx-cyl.Pos[0], cy-cyl.Pos[1])
	radialDepth := r - radial
	if radialDepth <= 0 {
		return nil, false
	}

	depth := math.Min(radialDepth, zOverlap)
	n := mgl64.Vec3{1, 0, 0}
	if radial > 1e-12 {
		n = mgl64.Vec3{(cx - cyl.Pos[0]) / radial, (cy - cyl.Pos[1]) / radial, 0}
	}
	zMid := math.Max(box.Pos[2]-h[2], cyl.Pos[2]-halfLen) + zOverlap/2
	p := mgl64.Vec3{cx, cy, zMid}
	return []contact.Contact{{Position: p, Normal: n, Depth: depth}}, true
}

func cylinderCylinder(a, b *Body) ([]contact.Contact, bool) {
	if !axisAligned(a) || !axisAligned(b) {
		return aabbOverlap(a, b)
	}
	ra := a.Geom.Cylinder.Radius * math.Max(a.Scale[0], a.Scale[1])
	rb := b.Geom.Cylinder.Radius * math.Max(b.Scale[0], b.Scale[1])
	ha := a.Geom.Cylinder.Length * a.Scale[2] / 2
	hb := b.Geom.Cylinder.Length * b.Scale[2] / 2

	zOverlap := math.Min(a.Pos[2]+ha, b.Pos[2]+hb) - math.Max(a.Pos[2]-ha, b.Pos[2]-hb)
	if zOverlap <= 0 {
		return nil, false
	}
	dx, dy := b.Pos[0]-a.Pos[0], b.Pos[1]-a.Pos[1]
	dist := math.Hypot(dx, dy)
	radialDepth := ra + rb - dist
	if radialDepth <= 0 {
		return nil, false
	}
	depth := math.Min(radialDepth, zOverlap)
	n := mgl64.Vec3{1, 0, 0}
	if dist > 1e-12 {
		n = mgl64.Vec3{dx / dist, dy / dist, 0}
	}
	zMid := math.Max(a.Pos[2]-ha, b.Pos[2]-hb) + zOverlap/2
	p := mgl64.Vec3{a.Pos[0] + dx/2, a.Pos[1] + dy/2, zMid}
	return []contact.Contact{{Position: p, Normal: n, Depth: depth}}, true
}

// meshVolume probes the mesh body's vertices and face centroids
// against the other body's volume. Centroids catch overlaps that sit
// between vertices on sparse meshes.
func meshVolume(mesh, other *Body) ([]contact.Contact, bool) {
	var cs []contact.Contact
	for _, v := range meshProbePoints(mesh.Geom.Mesh) {
		w := toWorld(mesh, v)
		if depth, n, inside := pointDepth(other, w); inside {
			cs = append(cs, contact.Contact{Position: w, Normal: n.Mul(-1), Depth: depth})
		}
	}
	if other.Geom.Kind() == shape.KindMesh {
		for _, v := range meshProbePoints(other.Geom.Mesh) {
			w := toWorld(other, v)
			if depth, n, inside := pointDepth(mesh, w); inside {
				cs = append(cs, contact.Contact{Position: w, Normal: n, Depth: depth})
			}
		}
	}
	return cs, len(cs) > 0
}

func meshProbePoints(m *shape.MeshGeom) []mgl64.Vec3 {
	pts := make([]mgl64.Vec3, 0, len(m.Vertices)+len(m.Faces))
	pts = append(pts, m.Vertices...)
	for _, f := range m.Faces {
		a := m.Vertices[f[0]]
		b := m.Vertices[f[1]]
		c := m.Vertices[f[2]]
		pts = append(pts, a.Add(b).Add(c).Mul(1.0/3.0))
	}
	return pts
}

// supportPlane tests a body against a plane half-space via the body's
// lowest support point along the plane normal.
func supportPlane(b, plane *Body) ([]contact.Contact, bool) {
	n := plane.Geom.Plane.Normal
	if n.Len() < 1e-12 {
		n = mgl64.Vec3{0, 0, 1}
	}
	n = plane.Rot.Rotate(n.Normalize())

	min, max := bodyAABB(b)
	// Deepest corner of the AABB against the half-space.
	low := min
	for i := 0; i < 3; i++ {
		if n[i] > 0 {
			low[i] = min[i]
		} else {
			low[i] = max[i]
		}
	}
	depth := plane.Pos.Sub(low).Dot(n)
	if depth <= 0 {
		return nil, false
	}
	return []contact.Contact{{Position: low, Normal: n, Depth: depth}}, true
}

// aabbOverlap is the last-resort test: world bounding boxes.
func aabbOverlap(a, b *Body) ([]contact.Contact, bool) {
	amin, amax := bodyAABB(a)
	bmin, bmax := bodyAABB(b)
	depth := math.Inf(1)
	var n mgl64.Vec3
	var p mgl64.Vec3
	for i := 0; i < 3; i++ {
		over := math.Min(amax[i], bmax[i]) - math.Max(amin[i], bmin[i])
		if over <= 0 {
			return nil, false
		}
		p[i] = math.Max(amin[i], bmin[i]) + over/2
		if over < depth {
			depth = over
			n = mgl64.Vec3{}
			if b.Pos[i] >= a.Pos[i] {
				n[i] = 1
			} else {
				n[i] = -1
			}
		}
	}
	return []contact.Contact{{Position: p, Normal: n, Depth: depth}}, true
}
