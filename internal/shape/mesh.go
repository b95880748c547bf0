package shape

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// MeshData holds a triangle mesh as a vertex list plus face index
// triples. It is shared by value semantics: shapes built from it must
// not mutate it.
type MeshData struct {
	Vertices []mgl64.Vec3
	Faces    [][3]int
}

func (m *MeshData) Validate() error {
	g := Geometry{Mesh: &MeshGeom{Vertices: m.Vertices, Faces: m.Faces}}
	return g.Validate()
}

// Bounds returns the axis-aligned bounding box of the vertices.
func (m *MeshData) Bounds() (min, max mgl64.Vec3) {
	if len(m.Vertices) == 0 {
		return min, max
	}
	min, max = m.Vertices[0], m.Vertices[0]
	for _, v := range m.Vertices[1:] {
		for i := 0; i < 3; i++ {
			if v[i] < min[i] {
				min[i] = v[i]
			}
			if v[i] > max[i] {
				max[i] = v[i]
			}
		}
	}
	return min, max
}

// TriMesh is a Shape backed by a triangle mesh, with an optional
// lower-resolution mesh used for collision checking.
type TriMesh struct {
	data   *MeshData
	lowRes *MeshData
	pose   Pose
}

func NewTriMesh(data *MeshData) (*TriMesh, error) {
	if err := data.Validate(); err != nil {
		return nil, fmt.Errorf("mesh shape: %w", err)
	}
	return &TriMesh{data: data}, nil
}

// SetLowRes attaches a low-resolution variant of the mesh.
func (t *TriMesh) SetLowRes(data *MeshData) error {
	if err := data.Validate(); err != nil {
		return fmt.Errorf("low-res mesh: %w", err)
	}
	t.lowRes = data
	return nil
}

func (t *TriMesh) Kind() Kind { return KindMesh }

func (t *TriMesh) SetPose(pose Pose) { t.pose = pose }

func (t *TriMesh) PoseFragment() Pose { return t.pose }

// GeometryFragment returns the low-res mesh when highRes is false and
// one is attached; otherwise it falls back to the full mesh.
func (t *TriMesh) GeometryFragment(highRes, collisionOnly bool) (*Geometry, error) {
	data := t.data
	if !highRes && t.lowRes != nil {
		data = t.lowRes
	}
	return &Geometry{Mesh: &MeshGeom{Vertices: data.Vertices, Faces: data.Faces}}, nil
}

func (t *TriMesh) SupportsLowRes() bool { return t.lowRes != nil }
