package config

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/collidebench/internal/manager"
	"github.com/san-kum/collidebench/internal/scenario"
	"github.com/san-kum/collidebench/internal/shape"
)

// Preset bundles a scenario with the sweep that exercises it.
type Preset struct {
	Scenario *scenario.World
	Sweep    manager.SweepConfig
}

var presets = map[string]func() *Preset{
	"box-cylinder":  boxCylinder,
	"mesh-cylinder": meshCylinder,
	"sphere-mesh":   sphereMesh,
}

func GetPreset(name string) (*Preset, error) {
	fn, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown preset: %s", name)
	}
	return fn(), nil
}

func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sweepFor(m1, m2 string) manager.SweepConfig {
	cfg := manager.DefaultSweepConfig()
	cfg.Model1 = m1
	cfg.Model2 = m2
	return cfg
}

// boxCylinder places a 2x2x2 box overlapping a cylinder of radius 1
// and length 3, then sweeps the box through the cylinder's bounding
// box.
func boxCylinder() *Preset {
	return &Preset{
		Scenario: &scenario.World{
			Name: "box-cylinder",
			Models: []scenario.Model{
				{
					Name:     "box",
					Pose:     shape.Pose{Position: mgl64.Vec3{0.5, 0, 0}},
					Geometry: shape.Geometry{Box: &shape.BoxGeom{Size: mgl64.Vec3{2, 2, 2}}},
					Static:   true,
				},
				{
					Name:     "cylinder",
					Geometry: shape.Geometry{Cylinder: &shape.CylinderGeom{Radius: 1, Length: 3}},
					Static:   true,
				},
			},
		},
		Sweep: sweepFor("box", "cylinder"),
	}
}

// meshCylinder sweeps a minimal two-triangle mesh through the same
// cylinder.
func meshCylinder() *Preset {
	mesh := &shape.MeshGeom{
		Vertices: []mgl64.Vec3{
			{-1, 0, -1},
			{1, 0, -1},
			{0, 0, 1},
			{0, 1, 0},
		},
		Faces: [][3]int{{0, 1, 2}, {0, 1, 3}},
	}
	return &Preset{
		Scenario: &scenario.World{
			Name: "mesh-cylinder",
			Models: []scenario.Model{
				{
					Name:     "wedge",
					Pose:     shape.Pose{Position: mgl64.Vec3{0.3, 0, 0}},
					Geometry: shape.Geometry{Mesh: mesh},
					Static:   true,
				},
				{
					Name:     "cylinder",
					Geometry: shape.Geometry{Cylinder: &shape.CylinderGeom{Radius: 1, Length: 3}},
					Static:   true,
				},
			},
		},
		Sweep: sweepFor("wedge", "cylinder"),
	}
}

// sphereMesh compares a tessellated sphere against an exact sphere
// primitive of the same radius.
func sphereMesh() *Preset {
	data := shape.MakeSphereMesh(1.0, 16, 24)
	return &Preset{
		Scenario: &scenario.World{
			Name: "sphere-mesh",
			Models: []scenario.Model{
				{
					Name: "meshsphere",
					Pose: shape.Pose{Position: mgl64.Vec3{0.5, 0, 0}},
					Geometry: shape.Geometry{
						Mesh: &shape.MeshGeom{Vertices: data.Vertices, Faces: data.Faces},
					},
					Static: true,
				},
				{
					Name:     "sphere",
					Geometry: shape.Geometry{Sphere: &shape.SphereGeom{Radius: 1}},
					Static:   true,
				},
			},
		},
		Sweep: sweepFor("meshsphere", "sphere"),
	}
}
