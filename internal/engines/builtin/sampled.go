package builtin

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/collidebench/internal/contact"
	"github.com/san-kum/collidebench/internal/shape"
)

// SampledCollider detects contacts by scattering sample points over
// each body's surface and probing them against the other body's
// volume. It deliberately disagrees with the analytic backend near
// shape boundaries by roughly the sample spacing, which is what makes
// it useful as a second lane in comparison runs.
type SampledCollider struct {
	// Resolution is the approximate number of samples per surface
	// dimension. Higher is tighter and slower.
	Resolution int

	mu    sync.Mutex
	cache map[*Body][]mgl64.Vec3
}

func NewSampledCollider(resolution int) *SampledCollider {
	if resolution < 8 {
		resolution = 8
	}
	return &SampledCollider{Resolution: resolution, cache: make(map[*Body][]mgl64.Vec3)}
}

func (c *SampledCollider) Name() string { return "sampled" }

func (c *SampledCollider) Supports(g *shape.Geometry) bool {
	// Half-spaces cannot be surface-sampled usefully.
	return g.Kind() != shape.KindPlane && g.Kind() >= shape.KindBox && g.Kind() <= shape.KindMesh
}

func (c *SampledCollider) AABB(b *Body) (mgl64.Vec3, mgl64.Vec3) {
	return bodyAABB(b)
}

func (c *SampledCollider) Contacts(a, b *Body) ([]contact.Contact, bool) {
	var cs []contact.Contact
	for _, p := range c.samples(a) {
		w := toWorld(a, p)
		if depth, n, inside := pointDepth(b, w); inside {
			cs = append(cs, contact.Contact{Position: w, Normal: n.Mul(-1), Depth: depth})
		}
	}
	for _, p := range c.samples(b) {
		w := toWorld(b, p)
		if depth, n, inside := pointDepth(a, w); inside {
			cs = append(cs, contact.Contact{Position: w, Normal: n, Depth: depth})
		}
	}
	return cs, len(cs) > 0
}

// samples returns the body's local-frame surface samples. Samples
// depend only on the collision geometry, so they are computed once
// per body.
func (c *SampledCollider) samples(b *Body) []mgl64.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.cache[b]; ok {
		return s
	}
	s := surfaceSamples(b.Geom, c.Resolution)
	c.cache[b] = s
	return s
}

// Forget drops the cached samples of a removed body.
func (c *SampledCollider) Forget(b *Body) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cache, b)
}

func surfaceSamples(g *shape.Geometry, res int) []mgl64.Vec3 {
	var out []mgl64.Vec3
	switch g.Kind() {
	case shape.KindBox:
		h := g.Box.Size.Mul(0.5)
		for i := 0; i <= res; i++ {
			for j := 0; j <= res; j++ {
				u := -h[0] + g.Box.Size[0]*float64(i)/float64(res)
				v := -h[1] + g.Box.Size[1]*float64(j)/float64(res)
				out = append(out, mgl64.Vec3{u, v, -h[2]}, mgl64.Vec3{u, v, h[2]})
				w := -h[2] + g.Box.Size[2]*float64(j)/float64(res)
				out = append(out, mgl64.Vec3{u, -h[1], w}, mgl64.Vec3{u, h[1], w})
				out = append(out, mgl64.Vec3{-h[0], v, w}, mgl64.Vec3{h[0], v, w})
			}
		}
	case shape.KindSphere:
		r := g.Sphere.Radius
		for i := 0; i <= res; i++ {
			phi := math.Pi * float64(i) / float64(res)
			for j := 0; j < 2*res; j++ {
				theta := math.Pi * float64(j) / float64(res)
				out = append(out, mgl64.Vec3{
					r * math.Sin(phi) * math.Cos(theta),
					r * math.Sin(phi) * math.Sin(theta),
					r * math.Cos(phi),
				})
			}
		}
	case shape.KindCylinder:
		r := g.Cylinder.Radius
		half := g.Cylinder.Length / 2
		for j := 0; j < 4*res; j++ {
			theta := math.Pi * float64(j) / float64(2*res)
			x, y := r*math.Cos(theta), r*math.Sin(theta)
			// Side wall rings.
			for i := 0; i <= res; i++ {
				z := -half + g.Cylinder.Length*float64(i)/float64(res)
				out = append(out, mgl64.Vec3{x, y, z})
			}
			// Caps, sampled on concentric rings.
			for i := 1; i <= res/2; i++ {
				f := float64(i) / float64(res/2)
				out = append(out,
					mgl64.Vec3{x * f, y * f, -half},
					mgl64.Vec3{x * f, y * f, half})
			}
		}
		out = append(out, mgl64.Vec3{0, 0, -half}, mgl64.Vec3{0, 0, half})
	case shape.KindMesh:
		out = append(out, g.Mesh.Vertices...)
		// Face centroids catch penetrations between vertices.
		for _, f := range g.Mesh.Faces {
			a := g.Mesh.Vertices[f[0]]
			b := g.Mesh.Vertices[f[1]]
			c := g.Mesh.Vertices[f[2]]
			out = append(out, a.Add(b).Add(c).Mul(1.0/3.0))
		}
	}
	return out
}
