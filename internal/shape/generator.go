package shape

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// MakeSphereMesh builds a UV sphere with the given number of rings
// and segments. Rings and segments below 3 are clamped to 3.
func MakeSphereMesh(radius float64, rings, segments int) *MeshData {
	if rings < 3 {
		rings = 3
	}
	if segments < 3 {
		segments = 3
	}

	m := &MeshData{}
	for r := 0; r <= rings; r++ {
		phi := math.Pi * float64(r) / float64(rings)
		for s := 0; s < segments; s++ {
			theta := 2 * math.Pi * float64(s) / float64(segments)
			m.Vertices = append(m.Vertices, mgl64.Vec3{
				radius * math.Sin(phi) * math.Cos(theta),
				radius * math.Sin(phi) * math.Sin(theta),
				radius * math.Cos(phi),
			})
		}
	}
	for r := 0; r < rings; r++ {
		for s := 0; s < segments; s++ {
			a := r*segments + s
			b := r*segments + (s+1)%segments
			c := (r+1)*segments + s
			d := (r+1)*segments + (s+1)%segments
			m.Faces = append(m.Faces, [3]int{a, b, c}, [3]int{b, d, c})
		}
	}
	return m
}

// MakeCylinderMesh builds a closed cylinder mesh with the axis along
// +Z, centered on the origin.
func MakeCylinderMesh(radius, length float64, segments int) *MeshData {
	if segments < 3 {
		segments = 3
	}

	m := &MeshData{}
	half := length / 2
	for s := 0; s < segments; s++ {
		theta := 2 * math.Pi * float64(s) / float64(segments)
		x, y := radius*math.Cos(theta), radius*math.Sin(theta)
		m.Vertices = append(m.Vertices,
			mgl64.Vec3{x, y, -half},
			mgl64.Vec3{x, y, half})
	}
	bottom := len(m.Vertices)
	m.Vertices = append(m.Vertices,
		mgl64.Vec3{0, 0, -half},
		mgl64.Vec3{0, 0, half})
	top := bottom + 1

	for s := 0; s < segments; s++ {
		n := (s + 1) % segments
		b0, t0 := 2*s, 2*s+1
		b1, t1 := 2*n, 2*n+1
		m.Faces = append(m.Faces,
			[3]int{b0, b1, t0},
			[3]int{b1, t1, t0},
			[3]int{b1, b0, bottom},
			[3]int{t0, t1, top})
	}
	return m
}

// MakeBoxMesh builds the two-triangles-per-face mesh of a box with
// the given full extents, centered on the origin.
func MakeBoxMesh(x, y, z float64) *MeshData {
	hx, hy, hz := x/2, y/2, z/2
	m := &MeshData{
		Vertices: []mgl64.Vec3{
			{-hx, -hy, -hz}, {hx, -hy, -hz}, {hx, hy, -hz}, {-hx, hy, -hz},
			{-hx, -hy, hz}, {hx, -hy, hz}, {hx, hy, hz}, {-hx, hy, hz},
		},
		Faces: [][3]int{
			{0, 2, 1}, {0, 3, 2}, // bottom
			{4, 5, 6}, {4, 6, 7}, // top
			{0, 1, 5}, {0, 5, 4},
			{1, 2, 6}, {1, 6, 5},
			{2, 3, 7}, {2, 7, 6},
			{3, 0, 4}, {3, 4, 7},
		},
	}
	return m
}
