// Package scenario defines the structured scene description consumed
// identically by every world implementation: a named world holding
// named models, each built from a pose and a geometry fragment. Scenes
// are written as YAML and can also be assembled in memory from shapes.
package scenario

import (
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/collidebench/internal/shape"
)

// Model is one named entity of a scene.
type Model struct {
	Name     string         `yaml:"name"`
	Pose     shape.Pose     `yaml:"pose"`
	Geometry shape.Geometry `yaml:"geometry"`
	// Collision optionally overrides Geometry for collision checking;
	// when nil the display geometry is used.
	Collision *shape.Geometry `yaml:"collision,omitempty"`
	Static    bool            `yaml:"static,omitempty"`
}

func (m *Model) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("model without a name")
	}
	if err := m.Geometry.Validate(); err != nil {
		return fmt.Errorf("model %q: %w", m.Name, err)
	}
	if m.Collision != nil {
		if err := m.Collision.Validate(); err != nil {
			return fmt.Errorf("model %q collision: %w", m.Name, err)
		}
	}
	return nil
}

// CollisionGeometry returns the geometry to use for collision
// checking, falling back to the display geometry.
func (m *Model) CollisionGeometry() *shape.Geometry {
	if m.Collision != nil {
		return m.Collision
	}
	return &m.Geometry
}

// World is a complete scene description.
type World struct {
	Name    string     `yaml:"name"`
	Gravity mgl64.Vec3 `yaml:"gravity,flow"`
	// Physics enables dynamics; with it off, models hold their poses
	// and only collision states are checked.
	Physics bool    `yaml:"physics"`
	Models  []Model `yaml:"models"`
}

func (w *World) Validate() error {
	seen := make(map[string]bool)
	for i := range w.Models {
		m := &w.Models[i]
		if err := m.Validate(); err != nil {
			return err
		}
		if seen[m.Name] {
			return fmt.Errorf("duplicate model name %q", m.Name)
		}
		seen[m.Name] = true
	}
	return nil
}

// Model returns the named model, or nil.
func (w *World) Model(name string) *Model {
	for i := range w.Models {
		if w.Models[i].Name == name {
			return &w.Models[i]
		}
	}
	return nil
}

// Parse reads a scene description from YAML text.
func Parse(data []byte) (*World, error) {
	w := &World{}
	if err := yaml.Unmarshal(data, w); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// Load reads a scene description from a YAML file.
func Load(path string) (*World, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// ParseModel reads a single model description from YAML text.
func ParseModel(data []byte) (*Model, error) {
	m := &Model{}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse model: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadModel reads a single model description from a YAML file.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseModel(data)
}

// Marshal renders the scene back to YAML.
func (w *World) Marshal() ([]byte, error) {
	return yaml.Marshal(w)
}

// FromShape builds a scene model from a shape, using the shape's
// full-resolution geometry for display. When the shape carries a
// low-resolution variant it becomes the collision geometry; otherwise
// collision falls back to the display geometry. An optional collShape
// overrides the collision geometry entirely.
func FromShape(name string, s shape.Shape, collShape shape.Shape) (*Model, error) {
	geom, err := s.GeometryFragment(true, false)
	if err != nil {
		return nil, fmt.Errorf("shape %q: %w", name, err)
	}
	m := &Model{
		Name:     name,
		Pose:     s.PoseFragment(),
		Geometry: *geom,
		Static:   true,
	}
	switch {
	case collShape != nil:
		cg, err := collShape.GeometryFragment(true, true)
		if err != nil {
			return nil, fmt.Errorf("collision shape for %q: %w", name, err)
		}
		m.Collision = cg
	case s.SupportsLowRes():
		cg, err := s.GeometryFragment(false, true)
		if err != nil {
			return nil, fmt.Errorf("low-res geometry for %q: %w", name, err)
		}
		m.Collision = cg
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
