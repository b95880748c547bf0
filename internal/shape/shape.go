package shape

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Kind identifies the geometry variant of a Shape.
type Kind int

const (
	KindBox Kind = iota
	KindSphere
	KindCylinder
	KindPlane
	KindMesh
)

func (k Kind) String() string {
	switch k {
	case KindBox:
		return "box"
	case KindSphere:
		return "sphere"
	case KindCylinder:
		return "cylinder"
	case KindPlane:
		return "plane"
	case KindMesh:
		return "mesh"
	}
	return "unknown"
}

// Pose is the engine-independent pose fragment of a scene element:
// a position and a roll/pitch/yaw rotation.
type Pose struct {
	Position mgl64.Vec3 `yaml:"position,flow"`
	RPY      mgl64.Vec3 `yaml:"rpy,flow"`
}

// Quat converts the roll/pitch/yaw rotation to a quaternion.
func (p Pose) Quat() mgl64.Quat {
	return mgl64.AnglesToQuat(p.RPY[0], p.RPY[1], p.RPY[2], mgl64.XYZ)
}

// Geometry is the engine-independent geometry fragment: exactly one
// of the variant fields is set.
type Geometry struct {
	Box      *BoxGeom      `yaml:"box,omitempty"`
	Sphere   *SphereGeom   `yaml:"sphere,omitempty"`
	Cylinder *CylinderGeom `yaml:"cylinder,omitempty"`
	Plane    *PlaneGeom    `yaml:"plane,omitempty"`
	Mesh     *MeshGeom     `yaml:"mesh,omitempty"`
}

type BoxGeom struct {
	Size mgl64.Vec3 `yaml:"size,flow"`
}

type SphereGeom struct {
	Radius float64 `yaml:"radius"`
}

// CylinderGeom is a cylinder centered on the origin with its axis
// along +Z, matching the convention of the scene formats we consume.
type CylinderGeom struct {
	Radius float64 `yaml:"radius"`
	Length float64 `yaml:"length"`
}

type PlaneGeom struct {
	Normal mgl64.Vec3 `yaml:"normal,flow"`
	Size   mgl64.Vec2 `yaml:"size,flow"`
}

type MeshGeom struct {
	Vertices []mgl64.Vec3 `yaml:"vertices"`
	Faces    [][3]int     `yaml:"faces"`
}

// Kind reports which variant is set, or -1 if none is.
func (g *Geometry) Kind() Kind {
	switch {
	case g.Box != nil:
		return KindBox
	case g.Sphere != nil:
		return KindSphere
	case g.Cylinder != nil:
		return KindCylinder
	case g.Plane != nil:
		return KindPlane
	case g.Mesh != nil:
		return KindMesh
	}
	return Kind(-1)
}

func (g *Geometry) Validate() error {
	n := 0
	if g.Box != nil {
		n++
	}
	if g.Sphere != nil {
		n++
	}
	if g.Cylinder != nil {
		n++
	}
	if g.Plane != nil {
		n++
	}
	if g.Mesh != nil {
		n++
	}
	if n != 1 {
		return fmt.Errorf("geometry must have exactly one variant, has %d", n)
	}
	if g.Mesh != nil {
		if len(g.Mesh.Vertices) == 0 || len(g.Mesh.Faces) == 0 {
			return fmt.Errorf("mesh geometry needs vertices and faces")
		}
		for _, f := range g.Mesh.Faces {
			for _, idx := range f {
				if idx < 0 || idx >= len(g.Mesh.Vertices) {
					return fmt.Errorf("mesh face index %d out of range", idx)
				}
			}
		}
	}
	return nil
}

// Shape describes a geometric primitive or mesh independently of any
// physics engine. A shape is pure data: it produces a pose fragment
// and a geometry fragment from which a model can be constructed, and
// never touches a world itself.
type Shape interface {
	Kind() Kind

	// PoseFragment returns the pose part of the scene fragment.
	PoseFragment() Pose

	// GeometryFragment returns the geometry part. With highRes false
	// the shape may return a coarser representation; shapes that have
	// none (SupportsLowRes false) return the full-resolution geometry
	// instead. With collisionOnly true the fragment is meant for
	// collision checking rather than display.
	GeometryFragment(highRes, collisionOnly bool) (*Geometry, error)

	// SupportsLowRes reports whether a separate low-resolution
	// representation is available.
	SupportsLowRes() bool
}

// Primitive is a box, sphere, cylinder or plane shape.
type Primitive struct {
	geom Geometry
	pose Pose
}

func NewBox(x, y, z float64) *Primitive {
	return &Primitive{geom: Geometry{Box: &BoxGeom{Size: mgl64.Vec3{x, y, z}}}}
}

func NewSphere(radius float64) *Primitive {
	return &Primitive{geom: Geometry{Sphere: &SphereGeom{Radius: radius}}}
}

func NewCylinder(radius, length float64) *Primitive {
	return &Primitive{geom: Geometry{Cylinder: &CylinderGeom{Radius: radius, Length: length}}}
}

func NewPlane(normal mgl64.Vec3, sx, sy float64) *Primitive {
	return &Primitive{geom: Geometry{Plane: &PlaneGeom{Normal: normal, Size: mgl64.Vec2{sx, sy}}}}
}

func (p *Primitive) Kind() Kind { return p.geom.Kind() }

func (p *Primitive) SetPose(pose Pose) { p.pose = pose }

func (p *Primitive) PoseFragment() Pose { return p.pose }

// Primitives have a single exact representation, so high and low
// resolution are the same thing.
func (p *Primitive) GeometryFragment(highRes, collisionOnly bool) (*Geometry, error) {
	g := p.geom
	return &g, nil
}

func (p *Primitive) SupportsLowRes() bool { return false }
